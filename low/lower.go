// Copyright 2016 The Gofem Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package low

import (
	"sort"

	"github.com/cpmech/gosl/chk"
	"github.com/cpmech/gosl/io"
	"github.com/ratnania/vale/inp"
	"github.com/ratnania/vale/sym"
)

// binding associates an argument name of a form with a basis placeholder
type binding struct {
	role  sym.Role
	block int
	space string
}

// value holds a lowered scalar (v == nil) or vector
type value struct {
	s sym.Expr
	v []sym.Expr
}

// rawTerm holds a lowered integrand before splitting
type rawTerm struct {
	itg  *Integrand
	expr sym.Expr
}

// lowerer holds the state of one lowering
type lowerer struct {
	scope  Scope
	form   string // name of top form
	ndim   int
	domain string
	itgs   map[string]*Integrand
	order  []*Integrand
	fields map[string]bool
	deps   map[string]bool
	unset  map[string]bool
}

// Lower resolves the arguments of form, inlines form calls, substitutes coefficient functions
// and constants, expands differential operators with the pullback
//
//	∂u/∂x_i = Σ_j invJ[j][i] ∂û/∂ξ_j
//
// and returns the sum of terms coef·D^α(trial)·D^β(test) grouped by domain of integration
func Lower(form *inp.FormDef, scope Scope) (k *Kernel, err error) {

	o := &lowerer{
		scope:  scope,
		form:   form.Name,
		itgs:   make(map[string]*Integrand),
		fields: make(map[string]bool),
		deps:   make(map[string]bool),
		unset:  make(map[string]bool),
	}

	// test space and domain
	tsp, err := o.space(form.Test.Space)
	if err != nil {
		return
	}
	dom, ok := scope.Decl(tsp.Domain).(*inp.DomainDecl)
	if !ok {
		return nil, &UnboundSymbolError{tsp.Domain, form.Name}
	}
	o.domain, o.ndim = dom.Name, dom.Dim

	// bindings
	env := make(map[string]binding)
	k = &Kernel{
		Form:      form.Name,
		Bilinear:  form.Bilinear(),
		Ndim:      o.ndim,
		TestSpace: form.Test.Space,
		Ntest:     len(form.Test.Names),
	}
	for i, name := range form.Test.Names {
		if err = o.bind(env, name, binding{sym.Test, i, form.Test.Space}); err != nil {
			return nil, err
		}
	}
	if form.Trial != nil {
		var usp *inp.SpaceDecl
		usp, err = o.space(form.Trial.Space)
		if err != nil {
			return nil, err
		}
		if usp.Domain != o.domain {
			return nil, o.mismatch("trial space %q is defined on %q but test space %q is defined on %q", usp.Name, usp.Domain, tsp.Name, o.domain)
		}
		k.TrialSpace = form.Trial.Space
		k.Ntrial = len(form.Trial.Names)
		for i, name := range form.Trial.Names {
			if err = o.bind(env, name, binding{sym.Trial, i, form.Trial.Space}); err != nil {
				return nil, err
			}
		}
	}

	// lower body
	raw, err := o.body(form, env, sym.N(1), []string{form.Name})
	if err != nil {
		return nil, err
	}

	// split and collect terms
	type key struct {
		itg            *Integrand
		ta, da, tb, db int
	}
	coefs := make(map[key][]sym.Expr)
	var keys []key
	for _, r := range raw {
		terms, err := o.split(r.expr, k.Bilinear)
		if err != nil {
			return nil, err
		}
		for _, t := range terms {
			kk := key{r.itg, t.TestBlock, t.TestDeriv, t.TrialBlock, t.TrialDeriv}
			if _, found := coefs[kk]; !found {
				keys = append(keys, kk)
			}
			coefs[kk] = append(coefs[kk], t.Coef)
		}
	}
	for _, kk := range keys {
		c := sym.Canonical(sym.Sum(coefs[kk]...))
		if n, isnum := c.(*sym.Num); isnum && n.Val == 0 {
			continue
		}
		kk.itg.Terms = append(kk.itg.Terms, &Term{kk.ta, kk.da, kk.tb, kk.db, c})
	}
	for _, itg := range o.order {
		if len(itg.Terms) > 0 {
			sort.SliceStable(itg.Terms, func(i, j int) bool { return itg.Terms[i].less(itg.Terms[j]) })
			k.Integrands = append(k.Integrands, itg)
		}
	}
	k.Fields = sortedKeys(o.fields)
	k.Deps = sortedKeys(o.deps)
	k.Unset = sortedKeys(o.unset)
	return
}

// forms ///////////////////////////////////////////////////////////////////////////////////////////

// body lowers all terms of a form scaled by coef. stack holds the forms being inlined
func (o *lowerer) body(def *inp.FormDef, env map[string]binding, coef sym.Expr, stack []string) (res []rawTerm, err error) {
	for _, t := range def.Body {
		var c value
		c, err = o.expr(t.Coef, nil)
		if err != nil {
			return
		}
		if c.v != nil {
			return nil, o.mismatch("factor %v of form %q must be a scalar", t.Coef, def.Name)
		}
		scale := sym.Prod(coef, c.s)

		// integral
		if t.Integral != nil {
			var itg *Integrand
			itg, err = o.integrand(t.Integral.Domain)
			if err != nil {
				return
			}
			var val value
			val, err = o.expr(t.Integral.Expr, env)
			if err != nil {
				return
			}
			if val.v != nil {
				return nil, o.mismatch("integrand %v of form %q is a vector of length %d", t.Integral.Expr, def.Name, len(val.v))
			}
			res = append(res, rawTerm{itg, sym.Prod(scale, val.s)})
			continue
		}

		// call
		var sub []rawTerm
		sub, err = o.call(def, t.Call, env, scale, stack)
		if err != nil {
			return
		}
		res = append(res, sub...)
	}
	return
}

// call inlines a call to another form renaming its arguments
func (o *lowerer) call(caller *inp.FormDef, c *inp.FormCall, env map[string]binding, scale sym.Expr, stack []string) ([]rawTerm, error) {
	d := o.scope.Decl(c.Name)
	if d == nil {
		return nil, &UnboundSymbolError{c.Name, o.form}
	}
	callee, ok := d.(*inp.FormDef)
	if !ok {
		return nil, o.mismatch("%q is a %s and cannot be called as a form", c.Name, KindOf(d))
	}
	for _, s := range stack {
		if s == c.Name {
			return nil, chk.Err("form %q: recursive call to form %q", o.form, c.Name)
		}
	}
	args := []inp.Arg{callee.Test}
	if callee.Trial != nil {
		args = append(args, *callee.Trial)
	}
	if len(c.Args) != len(args) {
		return nil, o.mismatch("form %q takes %d argument(s); got %d in %q", c.Name, len(args), len(c.Args), caller.Name)
	}
	sub := make(map[string]binding)
	for i, a := range args {
		group := c.Args[i]
		if len(group) != len(a.Names) {
			return nil, o.mismatch("argument %d of form %q has %d component(s); got %d", i+1, c.Name, len(a.Names), len(group))
		}
		for j, name := range group {
			b, found := env[name]
			if !found {
				return nil, &UnboundSymbolError{name, o.form}
			}
			if b.space != a.Space {
				return nil, o.mismatch("%q lives in %q but form %q expects %q", name, b.space, c.Name, a.Space)
			}
			sub[a.Names[j]] = b
		}
	}
	return o.body(callee, sub, scale, append(stack, c.Name))
}

// integrand returns the integrand collecting the terms over a domain or boundary
func (o *lowerer) integrand(name string) (*Integrand, error) {
	if itg, ok := o.itgs[name]; ok {
		return itg, nil
	}
	itg := &Integrand{Domain: name}
	switch d := o.scope.Decl(name).(type) {
	case nil:
		return nil, &UnboundSymbolError{name, o.form}
	case *inp.DomainDecl:
		if d.Name != o.domain {
			return nil, o.mismatch("cannot integrate over %q; the arguments are defined on %q", name, o.domain)
		}
	case *inp.BoundaryDecl:
		if d.Domain != o.domain {
			return nil, o.mismatch("boundary %q belongs to %q; the arguments are defined on %q", name, d.Domain, o.domain)
		}
		itg.Boundary = true
		for _, s := range d.Sides {
			idx := inp.SideIndex(s)
			if idx < 0 || idx/2 >= o.ndim {
				return nil, o.mismatch("side %q of boundary %q does not exist in %dD", s, name, o.ndim)
			}
			itg.Sides = append(itg.Sides, idx)
		}
	default:
		return nil, o.mismatch("%q is a %s and cannot be integrated over", name, KindOf(d))
	}
	o.itgs[name] = itg
	o.order = append(o.order, itg)
	return itg, nil
}

// expressions /////////////////////////////////////////////////////////////////////////////////////

func (o *lowerer) expr(e sym.Expr, env map[string]binding) (res value, err error) {
	switch n := e.(type) {

	case *sym.Num:
		return value{s: n}, nil

	case *sym.Sym:
		return o.symbol(n.Name, env)

	case *sym.Add:
		for i, t := range n.Terms {
			var v value
			v, err = o.expr(t, env)
			if err != nil {
				return
			}
			if i == 0 {
				res = v
				continue
			}
			if len(res.v) != len(v.v) {
				return res, o.mismatch("cannot add %s and %s in %v", shape(res), shape(v), e)
			}
			if res.v == nil {
				res.s = sym.Sum(res.s, v.s)
				continue
			}
			comps := make([]sym.Expr, len(v.v))
			for k := range comps {
				comps[k] = sym.Sum(res.v[k], v.v[k])
			}
			res.v = comps
		}
		return

	case *sym.Mul:
		for i, f := range n.Factors {
			var v value
			v, err = o.expr(f, env)
			if err != nil {
				return
			}
			if i == 0 {
				res = v
				continue
			}
			res, err = o.mul(res, v, e)
			if err != nil {
				return
			}
		}
		return

	case *sym.Pow:
		var b, x value
		b, err = o.expr(n.Base, env)
		if err != nil {
			return
		}
		x, err = o.expr(n.Exp, env)
		if err != nil {
			return
		}
		if b.v != nil || x.v != nil {
			return res, o.mismatch("powers of vectors are not defined in %v", e)
		}
		return value{s: &sym.Pow{Base: b.s, Exp: x.s}}, nil

	case *sym.Call:
		return o.apply(n, env)
	}
	return res, chk.Err("form %q: cannot lower %v", o.form, e)
}

// mul multiplies scalars, scales vectors and takes the dot product of two vectors
func (o *lowerer) mul(a, b value, e sym.Expr) (value, error) {
	switch {
	case a.v == nil && b.v == nil:
		return value{s: sym.Prod(a.s, b.s)}, nil
	case a.v == nil:
		return value{v: scale(a.s, b.v)}, nil
	case b.v == nil:
		return value{v: scale(b.s, a.v)}, nil
	}
	return o.dot(a, b, e)
}

func (o *lowerer) dot(a, b value, e sym.Expr) (value, error) {
	if a.v == nil || b.v == nil || len(a.v) != len(b.v) {
		return value{}, o.mismatch("cannot take the dot product of %s and %s in %v", shape(a), shape(b), e)
	}
	terms := make([]sym.Expr, len(a.v))
	for k := range terms {
		terms[k] = sym.Prod(a.v[k], b.v[k])
	}
	return value{s: sym.Sum(terms...)}, nil
}

// symbol resolves a name: arguments, coordinates, constants and declarations
func (o *lowerer) symbol(name string, env map[string]binding) (value, error) {
	if b, ok := env[name]; ok {
		return value{s: &sym.Basis{Role: b.role, Block: b.block}}, nil
	}
	for k, c := range Coords {
		if c == name {
			if k >= o.ndim {
				return value{}, o.mismatch("coordinate %q does not exist in %dD", name, o.ndim)
			}
			return value{s: sym.S(name)}, nil
		}
	}
	if v, ok := sym.Constants[name]; ok {
		return value{s: sym.N(v)}, nil
	}
	switch d := o.scope.Decl(name).(type) {
	case nil:
		return value{}, &UnboundSymbolError{name, o.form}
	case *inp.FunctionDecl:
		e, err := o.function(d, nil)
		return value{s: e}, err
	case *inp.RealDecl:
		return value{s: o.constant(d.Name)}, nil
	case *inp.FieldDecl:
		if err := o.fieldSpace(d); err != nil {
			return value{}, err
		}
		o.fields[d.Name] = true
		return value{s: &sym.FieldRef{Name: d.Name}}, nil
	case inp.Decl:
		return value{}, o.mismatch("%q is a %s and cannot be used in an expression", name, KindOf(d))
	}
	return value{}, &UnboundSymbolError{name, o.form}
}

// apply lowers calls to differential operators, elementary functions and coefficient functions
func (o *lowerer) apply(c *sym.Call, env map[string]binding) (res value, err error) {
	args := make([]value, len(c.Args))
	for i, a := range c.Args {
		args[i], err = o.expr(a, env)
		if err != nil {
			return
		}
	}
	switch c.Fn {

	case "grad":
		if args[0].v != nil {
			return res, o.mismatch("gradient of a vector is not supported in %v", c)
		}
		res.v = make([]sym.Expr, o.ndim)
		for k := 0; k < o.ndim; k++ {
			res.v[k], err = o.pdiff(args[0].s, k)
			if err != nil {
				return
			}
		}
		return

	case "dx", "dy", "dz":
		k := int(c.Fn[1] - 'x')
		if k >= o.ndim {
			return res, o.mismatch("%s does not exist in %dD", c.Fn, o.ndim)
		}
		if args[0].v != nil {
			return res, o.mismatch("%s of a vector is not supported in %v", c.Fn, c)
		}
		res.s, err = o.pdiff(args[0].s, k)
		return

	case "dot":
		return o.dot(args[0], args[1], c)
	}

	if _, ok := sym.Elementary[c.Fn]; ok {
		if len(args) != 1 || args[0].v != nil {
			return res, o.mismatch("%s takes one scalar argument in %v", c.Fn, c)
		}
		return value{s: &sym.Call{Fn: c.Fn, Args: []sym.Expr{args[0].s}}}, nil
	}

	switch d := o.scope.Decl(c.Fn).(type) {
	case nil:
		return res, &UnboundSymbolError{c.Fn, o.form}
	case *inp.FunctionDecl:
		list := make([]sym.Expr, len(args))
		for i, a := range args {
			if a.v != nil {
				return res, o.mismatch("argument %d of %s must be a scalar", i+1, c.Fn)
			}
			list[i] = a.s
		}
		res.s, err = o.function(d, list)
		return
	case inp.Decl:
		return res, o.mismatch("%q is a %s and cannot be called", c.Fn, KindOf(d))
	}
	return res, &UnboundSymbolError{c.Fn, o.form}
}

// function substitutes the current expression of a coefficient function. args == nil means
// the function is evaluated at the physical coordinates
func (o *lowerer) function(d *inp.FunctionDecl, args []sym.Expr) (sym.Expr, error) {
	if args == nil {
		if len(d.Args) > o.ndim {
			return nil, o.mismatch("function %q has %d arguments but the domain is %dD", d.Name, len(d.Args), o.ndim)
		}
		for k := range d.Args {
			args = append(args, sym.S(Coords[k]))
		}
	}
	if len(args) != len(d.Args) {
		return nil, o.mismatch("function %q takes %d argument(s); got %d", d.Name, len(d.Args), len(args))
	}
	o.deps[d.Name] = true
	e := o.scope.Expression(d.Name)
	if e == nil {
		o.unset[d.Name] = true
		return sym.S(d.Name), nil
	}
	m := make(map[string]sym.Expr)
	for k, a := range d.Args {
		m[a] = args[k]
	}
	for _, name := range sym.FreeSymbols(e) {
		if _, isarg := m[name]; isarg {
			continue
		}
		if v, ok := sym.Constants[name]; ok {
			m[name] = sym.N(v)
			continue
		}
		if _, ok := o.scope.Decl(name).(*inp.RealDecl); ok {
			m[name] = o.constant(name)
			continue
		}
		return nil, &UnboundSymbolError{name, o.form}
	}
	for _, fn := range sym.Calls(e) {
		if _, ok := sym.Elementary[fn]; !ok {
			return nil, &UnboundSymbolError{fn, o.form}
		}
	}
	return sym.Subst(e, m), nil
}

// constant returns the value of a constant or its symbol if not set
func (o *lowerer) constant(name string) sym.Expr {
	o.deps[name] = true
	v, ok := o.scope.Value(name)
	if !ok {
		o.unset[name] = true
		return sym.S(name)
	}
	return sym.N(v)
}

// pdiff differentiates a lowered scalar w.r.t the k-th physical coordinate
func (o *lowerer) pdiff(e sym.Expr, k int) (sym.Expr, error) {
	return sym.DiffWith(e, Coords[k], func(leaf sym.Expr) (sym.Expr, bool, error) {
		switch n := leaf.(type) {
		case *sym.Basis:
			if n.Deriv != 0 {
				return nil, false, o.order2(leaf)
			}
			return o.pullback(k, func(j int) sym.Expr { return &sym.Basis{Role: n.Role, Block: n.Block, Deriv: j + 1} }), true, nil
		case *sym.FieldRef:
			if n.Deriv != 0 {
				return nil, false, o.order2(leaf)
			}
			return o.pullback(k, func(j int) sym.Expr { return &sym.FieldRef{Name: n.Name, Deriv: j + 1} }), true, nil
		case *sym.Metric:
			return nil, false, o.order2(leaf)
		}
		return nil, false, nil
	})
}

// pullback returns Σ_j invJ[j][k] ∂(·)/∂ξ_j
func (o *lowerer) pullback(k int, param func(j int) sym.Expr) sym.Expr {
	terms := make([]sym.Expr, o.ndim)
	for j := 0; j < o.ndim; j++ {
		terms[j] = sym.Prod(&sym.Metric{I: j, J: k}, param(j))
	}
	return sym.Sum(terms...)
}

// terms ///////////////////////////////////////////////////////////////////////////////////////////

// split expands a lowered integrand into terms and checks linearity
func (o *lowerer) split(e sym.Expr, bilinear bool) (terms []*Term, err error) {
	ex := sym.Expand(e)
	list := []sym.Expr{ex}
	if a, ok := ex.(*sym.Add); ok {
		list = a.Terms
	}
	for _, t := range list {
		if n, ok := t.(*sym.Num); ok && n.Val == 0 {
			continue
		}
		factors := []sym.Expr{t}
		if m, ok := t.(*sym.Mul); ok {
			factors = m.Factors
		}
		var test, trial *sym.Basis
		var coef []sym.Expr
		for _, f := range factors {
			if b, ok := f.(*sym.Basis); ok {
				switch {
				case b.Role == sym.Test && test == nil:
					test = b
				case b.Role == sym.Trial && trial == nil:
					trial = b
				default:
					return nil, &LinearityError{o.form, t.String(), "term is quadratic in a basis function"}
				}
				continue
			}
			if sym.HasBasis(f, sym.Test) || sym.HasBasis(f, sym.Trial) {
				return nil, &LinearityError{o.form, t.String(), "term depends non-linearly on a basis function"}
			}
			coef = append(coef, f)
		}
		if test == nil {
			return nil, &LinearityError{o.form, t.String(), "term does not contain the test function"}
		}
		if bilinear && trial == nil {
			return nil, &LinearityError{o.form, t.String(), "term of bilinear form does not contain the trial function"}
		}
		if !bilinear && trial != nil {
			return nil, &LinearityError{o.form, t.String(), "term of linear form contains a trial function"}
		}
		term := &Term{TestBlock: test.Block, TestDeriv: test.Deriv, TrialBlock: -1, TrialDeriv: -1, Coef: sym.Simplify(&sym.Mul{Factors: coef})}
		if trial != nil {
			term.TrialBlock, term.TrialDeriv = trial.Block, trial.Deriv
		}
		terms = append(terms, term)
	}
	return
}

// auxiliary ///////////////////////////////////////////////////////////////////////////////////////

func (o *lowerer) bind(env map[string]binding, name string, b binding) error {
	if _, dup := env[name]; dup {
		return o.mismatch("argument %q is repeated", name)
	}
	env[name] = b
	return nil
}

func (o *lowerer) space(name string) (*inp.SpaceDecl, error) {
	d := o.scope.Decl(name)
	if d == nil {
		return nil, &UnboundSymbolError{name, o.form}
	}
	s, ok := d.(*inp.SpaceDecl)
	if !ok {
		return nil, o.mismatch("%q is a %s, not a space", name, KindOf(d))
	}
	return s, nil
}

func (o *lowerer) fieldSpace(f *inp.FieldDecl) error {
	s, err := o.space(f.Space)
	if err != nil {
		return err
	}
	if s.Domain != o.domain {
		return o.mismatch("field %q lives on %q but the arguments are defined on %q", f.Name, s.Domain, o.domain)
	}
	return nil
}

func (o *lowerer) mismatch(msg string, prm ...interface{}) error {
	return &DimensionMismatchError{o.form, io.Sf(msg, prm...)}
}

func (o *lowerer) order2(e sym.Expr) error {
	return chk.Err("form %q: second-order derivatives are not supported (derivative of %v)", o.form, e)
}

func scale(s sym.Expr, v []sym.Expr) []sym.Expr {
	res := make([]sym.Expr, len(v))
	for k := range v {
		res[k] = sym.Prod(s, v[k])
	}
	return res
}

func shape(v value) string {
	if v.v == nil {
		return "a scalar"
	}
	return io.Sf("a vector of length %d", len(v.v))
}

// KindOf returns the kind of a declaration
func KindOf(d inp.Decl) string {
	switch d.(type) {
	case *inp.DomainDecl:
		return "domain"
	case *inp.BoundaryDecl:
		return "boundary"
	case *inp.SpaceDecl:
		return "space"
	case *inp.FieldDecl:
		return "field"
	case *inp.FunctionDecl:
		return "function"
	case *inp.RealDecl:
		return "constant"
	case *inp.FormDef:
		return "form"
	}
	return "declaration"
}

// Copyright 2016 The Gofem Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package inp

import (
	"math"
	"os"
	"strings"

	"github.com/cpmech/gosl/chk"
	"github.com/cpmech/gosl/io"
	"github.com/ratnania/vale/sym"
)

// Builtins holds the number of arguments of the differential and vector operators
var Builtins = map[string]int{
	"grad": 1,
	"dx":   1,
	"dy":   1,
	"dz":   1,
	"dot":  2,
}

// keywords holds the declaration keywords
var keywords = map[string]bool{
	"Domain":   true,
	"Boundary": true,
	"Space":    true,
	"Field":    true,
	"Function": true,
	"Real":     true,
}

// Sides holds the names of the faces of the parametric cube
var Sides = []string{"x-", "x+", "y-", "y+", "z-", "z+"}

// parser holds the state of a parsing session
type parser struct {
	file string
	toks []token
	i    int
}

// Parse parses a whole source file
func Parse(file, src string) (prog *Program, err error) {
	toks, err := lex(file, src)
	if err != nil {
		return
	}
	o := &parser{file: file, toks: toks}
	prog = &Program{File: file}
	for {
		o.skipNewlines()
		if o.cur().kind == tEOF {
			break
		}
		decls, e := o.statement()
		if e != nil {
			return nil, e
		}
		prog.Decls = append(prog.Decls, decls...)
	}
	return
}

// ReadFile reads and parses a source file
func ReadFile(path string) (prog *Program, err error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, chk.Err("cannot read source file %q:\n%v", path, err)
	}
	return Parse(path, string(b))
}

// ParseExpr parses a standalone expression; e.g. "2*x*(1-x)"
func ParseExpr(src string) (e sym.Expr, err error) {
	toks, err := lex("<expr>", src)
	if err != nil {
		return
	}
	o := &parser{file: "<expr>", toks: toks}
	o.skipNewlines()
	e, err = o.expr()
	if err != nil {
		return nil, err
	}
	o.skipNewlines()
	if t := o.cur(); t.kind != tEOF {
		return nil, o.errorf(t.pos, "unexpected %s after expression", t.describe())
	}
	return sym.Simplify(e), nil
}

// statements //////////////////////////////////////////////////////////////////////////////////////

func (o *parser) statement() ([]Decl, error) {
	t := o.cur()
	if t.kind != tIdent {
		return nil, o.errorf(t.pos, "expected declaration or form definition, found %s", t.describe())
	}
	if keywords[t.text] {
		return o.declaration()
	}
	if o.at(1).is("(") {
		j := o.matching(o.i + 1)
		if j < 0 {
			return nil, o.errorf(o.at(1).pos, "unmatched '('")
		}
		if j+1 < len(o.toks) && o.toks[j+1].is("::") {
			return nil, o.errorf(t.pos, "unknown declaration keyword %q", t.text)
		}
	}
	f, err := o.formDef()
	if err != nil {
		return nil, err
	}
	return []Decl{f}, nil
}

// declArg holds an argument of a declaration; key is empty for positional arguments
type declArg struct {
	key string
	tok token
}

func (o *parser) declaration() (decls []Decl, err error) {

	// keyword and arguments
	kw := o.next()
	var args []declArg
	if o.cur().is("(") {
		if o.matching(o.i) < 0 {
			return nil, o.errorf(o.cur().pos, "unmatched '('")
		}
		open := o.next()
		for !o.cur().is(")") {
			if err = o.unclosed(open); err != nil {
				return
			}
			if len(args) > 0 {
				if err = o.expect(",", &open); err != nil {
					return
				}
			}
			var a declArg
			if o.cur().kind == tIdent && o.at(1).is("=") {
				a.key = o.next().text
				o.next()
			}
			a.tok, err = o.declValue()
			if err != nil {
				return
			}
			args = append(args, a)
		}
		o.next()
	}

	// names
	if err = o.expect("::", nil); err != nil {
		return
	}
	var names []token
	for {
		t := o.cur()
		if t.kind != tIdent {
			return nil, o.errorf(t.pos, "expected name after '::', found %s", t.describe())
		}
		names = append(names, o.next())
		if !o.cur().is(",") {
			break
		}
		o.next()
	}
	if err = o.endOfStatement(); err != nil {
		return
	}

	// build declarations
	for _, n := range names {
		var d Decl
		d, err = o.buildDecl(kw, args, n)
		if err != nil {
			return
		}
		decls = append(decls, d)
	}
	return
}

func (o *parser) declValue() (t token, err error) {
	t = o.cur()
	switch {
	case t.kind == tIdent || t.kind == tString || t.kind == tNumber:
		o.next()
		return
	case t.is("-") && o.at(1).kind == tNumber:
		o.next()
		t = o.next()
		t.num = -t.num
		t.text = "-" + t.text
		return
	}
	return t, o.errorf(t.pos, "unexpected %s in declaration arguments", t.describe())
}

func (o *parser) buildDecl(kw token, args []declArg, name token) (d Decl, err error) {
	p := name.pos
	kwargs := make(map[string]token)
	var positional []token
	for _, a := range args {
		if a.key == "" {
			positional = append(positional, a.tok)
		} else {
			kwargs[a.key] = a.tok
		}
	}
	arity := func(allowed ...string) error {
		for k, t := range kwargs {
			found := false
			for _, a := range allowed {
				if a == k {
					found = true
				}
			}
			if !found {
				return o.errorf(t.pos, "%s does not accept argument %q", kw.text, k)
			}
		}
		return nil
	}
	required := func(key string, kind tokKind) (token, error) {
		t, ok := kwargs[key]
		if !ok {
			return t, o.errorf(kw.pos, "%s requires argument %q", kw.text, key)
		}
		if t.kind != kind {
			return t, o.errorf(t.pos, "invalid value %s for argument %q of %s", t.describe(), key, kw.text)
		}
		return t, nil
	}

	switch kw.text {

	case "Domain":
		if len(positional) > 0 {
			return nil, o.errorf(positional[0].pos, "wrong arity: Domain takes keyword arguments only")
		}
		if err = arity("dim", "kind"); err != nil {
			return
		}
		dim, e := required("dim", tNumber)
		if e != nil {
			return nil, e
		}
		if dim.num != math.Trunc(dim.num) || dim.num < 1 || dim.num > 3 {
			return nil, o.errorf(dim.pos, "dimension must be 1, 2 or 3; got %s", dim.text)
		}
		kind := "structured"
		if t, ok := kwargs["kind"]; ok {
			kind = t.text
		}
		return &DomainDecl{p, name.text, int(dim.num), kind}, nil

	case "Boundary":
		if len(positional) > 0 {
			return nil, o.errorf(positional[0].pos, "wrong arity: Boundary takes keyword arguments only")
		}
		if err = arity("domain", "sides"); err != nil {
			return
		}
		dom, e := required("domain", tIdent)
		if e != nil {
			return nil, e
		}
		sides, e := required("sides", tString)
		if e != nil {
			return nil, e
		}
		b := &BoundaryDecl{Pos: p, Name: name.text, Domain: dom.text}
		for _, s := range strings.Split(sides.text, ",") {
			s = strings.TrimSpace(s)
			if SideIndex(s) < 0 {
				return nil, o.errorf(sides.pos, "unknown side %q; valid sides are %v", s, Sides)
			}
			b.Sides = append(b.Sides, s)
		}
		return b, nil

	case "Space":
		if len(positional) > 0 {
			return nil, o.errorf(positional[0].pos, "wrong arity: Space takes keyword arguments only")
		}
		if err = arity("domain", "kind"); err != nil {
			return
		}
		dom, e := required("domain", tIdent)
		if e != nil {
			return nil, e
		}
		kind := "h1"
		if t, ok := kwargs["kind"]; ok {
			kind = t.text
		}
		return &SpaceDecl{p, name.text, dom.text, kind}, nil

	case "Field":
		if len(kwargs) > 0 || len(positional) != 1 || positional[0].kind != tIdent {
			return nil, o.errorf(kw.pos, "wrong arity: Field takes exactly one space name")
		}
		return &FieldDecl{p, name.text, positional[0].text}, nil

	case "Function":
		if len(kwargs) > 0 || len(positional) == 0 {
			return nil, o.errorf(kw.pos, "wrong arity: Function takes one or more coordinate names")
		}
		f := &FunctionDecl{Pos: p, Name: name.text}
		for _, t := range positional {
			if t.kind != tIdent {
				return nil, o.errorf(t.pos, "invalid coordinate %s", t.describe())
			}
			f.Args = append(f.Args, t.text)
		}
		return f, nil

	case "Real":
		if len(kwargs) > 0 || len(positional) > 1 {
			return nil, o.errorf(kw.pos, "wrong arity: Real takes at most one value")
		}
		r := &RealDecl{Pos: p, Name: name.text}
		if len(positional) == 1 {
			if positional[0].kind != tNumber {
				return nil, o.errorf(positional[0].pos, "invalid value %s for Real", positional[0].describe())
			}
			r.Value, r.HasValue = positional[0].num, true
		}
		return r, nil
	}
	return nil, o.errorf(kw.pos, "unknown declaration keyword %q", kw.text)
}

// forms ///////////////////////////////////////////////////////////////////////////////////////////

func (o *parser) formDef() (f *FormDef, err error) {
	name := o.next()
	f = &FormDef{Pos: name.pos, Name: name.text}
	open := o.cur()
	if err = o.expect("(", nil); err != nil {
		return
	}
	var args []Arg
	for !o.cur().is(")") {
		if err = o.unclosed(open); err != nil {
			return
		}
		if len(args) > 0 {
			if err = o.expect(",", &open); err != nil {
				return
			}
		}
		var a Arg
		a, err = o.formArg()
		if err != nil {
			return
		}
		args = append(args, a)
	}
	o.next()
	switch len(args) {
	case 1:
		f.Test = args[0]
	case 2:
		f.Test, f.Trial = args[0], &args[1]
	default:
		return nil, o.errorf(open.pos, "wrong arity: form %q takes a test and an optional trial argument; got %d arguments", f.Name, len(args))
	}
	if err = o.expect(":=", nil); err != nil {
		return
	}
	f.Body, err = o.formBody()
	if err != nil {
		return
	}
	err = o.endOfStatement()
	return
}

func (o *parser) formArg() (a Arg, err error) {
	if o.cur().is("(") {
		open := o.next()
		a.Tuple = true
		for !o.cur().is(")") {
			if err = o.unclosed(open); err != nil {
				return
			}
			if len(a.Names) > 0 {
				if err = o.expect(",", &open); err != nil {
					return
				}
			}
			t := o.cur()
			if t.kind != tIdent {
				return a, o.errorf(t.pos, "expected function name in tuple, found %s", t.describe())
			}
			a.Names = append(a.Names, o.next().text)
		}
		o.next()
		if len(a.Names) == 0 {
			return a, o.errorf(open.pos, "empty tuple")
		}
	} else {
		t := o.cur()
		if t.kind != tIdent {
			return a, o.errorf(t.pos, "expected function name, found %s", t.describe())
		}
		a.Names = []string{o.next().text}
	}
	if err = o.expect("::", nil); err != nil {
		return
	}
	t := o.cur()
	if t.kind != tIdent {
		return a, o.errorf(t.pos, "expected space name after '::', found %s", t.describe())
	}
	a.Space = o.next().text
	return
}

func (o *parser) formBody() (terms []FormTerm, err error) {
	sign := 1.0
	if t := o.cur(); t.is("+") || t.is("-") {
		if t.is("-") {
			sign = -1
		}
		o.next()
	}
	for {
		var term FormTerm
		term, err = o.formTerm(sign)
		if err != nil {
			return
		}
		terms = append(terms, term)
		t := o.cur()
		if !t.is("+") && !t.is("-") {
			return
		}
		sign = 1
		if t.is("-") {
			sign = -1
		}
		o.next()
	}
}

func (o *parser) formTerm(sign float64) (term FormTerm, err error) {
	term.Pos = o.cur().pos
	factors := []sym.Expr{sym.N(sign)}
	for {
		t := o.cur()
		switch {
		case t.is("<"):
			if term.Integral != nil || term.Call != nil {
				return term, o.errorf(t.pos, "a form term holds a single integral or form call")
			}
			term.Integral, err = o.integral()
		case t.kind == tIdent && o.at(1).is("(") && !isCallable(t.text):
			if term.Integral != nil || term.Call != nil {
				return term, o.errorf(t.pos, "a form term holds a single integral or form call")
			}
			term.Call, err = o.formCall()
		default:
			var e sym.Expr
			e, err = o.unary()
			factors = append(factors, e)
		}
		if err != nil {
			return
		}
		if !o.cur().is("*") {
			break
		}
		o.next()
	}
	if term.Integral == nil && term.Call == nil {
		return term, o.errorf(term.Pos, "expected an integral '< ... >_Domain' or a form call")
	}
	term.Coef = sym.Simplify(sym.Prod(factors...))
	return
}

func (o *parser) integral() (in *Integral, err error) {
	open := o.next()
	e, err := o.expr()
	if err != nil {
		return
	}
	t := o.cur()
	if !t.is(">_") {
		if t.kind == tNewline || t.kind == tEOF {
			return nil, o.errorf(open.pos, "unmatched '<'")
		}
		return nil, o.errorf(t.pos, "expected '>_' closing the integral, found %s", t.describe())
	}
	o.next()
	d := o.cur()
	if d.kind != tIdent {
		return nil, o.errorf(d.pos, "expected domain name after '>_', found %s", d.describe())
	}
	o.next()
	return &Integral{Expr: sym.Simplify(e), Domain: d.text}, nil
}

func (o *parser) formCall() (c *FormCall, err error) {
	c = &FormCall{Name: o.next().text}
	open := o.next()
	for !o.cur().is(")") {
		if len(c.Args) > 0 {
			if err = o.expect(",", &open); err != nil {
				return
			}
		}
		t := o.cur()
		switch {
		case t.kind == tIdent:
			c.Args = append(c.Args, []string{o.next().text})
		case t.is("("):
			in := o.next()
			var tuple []string
			for !o.cur().is(")") {
				if err = o.unclosed(in); err != nil {
					return
				}
				if len(tuple) > 0 {
					if err = o.expect(",", &in); err != nil {
						return
					}
				}
				n := o.cur()
				if n.kind != tIdent {
					return nil, o.errorf(n.pos, "expected function name in tuple, found %s", n.describe())
				}
				tuple = append(tuple, o.next().text)
			}
			o.next()
			c.Args = append(c.Args, tuple)
		case t.kind == tNewline || t.kind == tEOF:
			return nil, o.errorf(open.pos, "unmatched '('")
		default:
			return nil, o.errorf(t.pos, "unexpected %s in arguments of form %q", t.describe(), c.Name)
		}
	}
	o.next()
	if len(c.Args) < 1 || len(c.Args) > 2 {
		return nil, o.errorf(open.pos, "wrong arity: call to form %q takes one or two arguments; got %d", c.Name, len(c.Args))
	}
	return
}

// expressions /////////////////////////////////////////////////////////////////////////////////////

func (o *parser) expr() (e sym.Expr, err error) {
	e, err = o.term()
	if err != nil {
		return
	}
	for {
		t := o.cur()
		if !t.is("+") && !t.is("-") {
			return
		}
		o.next()
		r, err := o.term()
		if err != nil {
			return nil, err
		}
		if t.is("-") {
			r = sym.Neg(r)
		}
		e = &sym.Add{Terms: []sym.Expr{e, r}}
	}
}

func (o *parser) term() (e sym.Expr, err error) {
	e, err = o.unary()
	if err != nil {
		return
	}
	for {
		t := o.cur()
		if !t.is("*") && !t.is("/") {
			return
		}
		o.next()
		r, err := o.unary()
		if err != nil {
			return nil, err
		}
		if t.is("/") {
			e = sym.Div(e, r)
		} else {
			e = &sym.Mul{Factors: []sym.Expr{e, r}}
		}
	}
}

func (o *parser) unary() (sym.Expr, error) {
	t := o.cur()
	if t.is("-") || t.is("+") {
		o.next()
		e, err := o.unary()
		if err != nil {
			return nil, err
		}
		if t.is("-") {
			return sym.Neg(e), nil
		}
		return e, nil
	}
	return o.power()
}

func (o *parser) power() (e sym.Expr, err error) {
	e, err = o.primary()
	if err != nil {
		return
	}
	if t := o.cur(); t.is("^") || t.is("**") {
		o.next()
		x, err := o.unary()
		if err != nil {
			return nil, err
		}
		e = &sym.Pow{Base: e, Exp: x}
	}
	return
}

func (o *parser) primary() (sym.Expr, error) {
	t := o.cur()
	switch {

	case t.kind == tNumber:
		o.next()
		return sym.N(t.num), nil

	case t.kind == tIdent:
		o.next()
		if !o.cur().is("(") {
			return sym.S(t.text), nil
		}
		open := o.next()
		var args []sym.Expr
		for !o.cur().is(")") {
			if err := o.unclosed(open); err != nil {
				return nil, err
			}
			if len(args) > 0 {
				if err := o.expect(",", &open); err != nil {
					return nil, err
				}
			}
			a, err := o.expr()
			if err != nil {
				return nil, err
			}
			args = append(args, a)
		}
		o.next()
		if n, ok := arityOf(t.text); ok && n != len(args) {
			return nil, o.errorf(t.pos, "wrong arity: %s takes %d argument(s); got %d", t.text, n, len(args))
		}
		return &sym.Call{Fn: t.text, Args: args}, nil

	case t.is("("):
		open := o.next()
		e, err := o.expr()
		if err != nil {
			return nil, err
		}
		if err = o.expect(")", &open); err != nil {
			return nil, err
		}
		return e, nil
	}
	if t.kind == tNewline || t.kind == tEOF {
		return nil, o.errorf(t.pos, "unexpected %s: expression is incomplete", t.describe())
	}
	return nil, o.errorf(t.pos, "unexpected %s in expression", t.describe())
}

// auxiliary ///////////////////////////////////////////////////////////////////////////////////////

// SideIndex returns the index of a side name in Sides or -1
func SideIndex(side string) int {
	for i, s := range Sides {
		if s == side {
			return i
		}
	}
	return -1
}

func isCallable(name string) bool {
	_, ok := arityOf(name)
	return ok
}

func arityOf(name string) (int, bool) {
	if n, ok := Builtins[name]; ok {
		return n, true
	}
	if _, ok := sym.Elementary[name]; ok {
		return 1, true
	}
	return 0, false
}

func (o *parser) cur() token { return o.at(0) }

func (o *parser) at(k int) token {
	if o.i+k < len(o.toks) {
		return o.toks[o.i+k]
	}
	return o.toks[len(o.toks)-1]
}

func (o *parser) next() token {
	t := o.cur()
	if o.i < len(o.toks)-1 {
		o.i++
	}
	return t
}

func (o *parser) skipNewlines() {
	for o.cur().kind == tNewline {
		o.next()
	}
}

// matching returns the index of the ')' matching the '(' at index j or -1
func (o *parser) matching(j int) int {
	depth := 0
	for k := j; k < len(o.toks); k++ {
		switch {
		case o.toks[k].is("("):
			depth++
		case o.toks[k].is(")"):
			depth--
			if depth == 0 {
				return k
			}
		case o.toks[k].kind == tNewline || o.toks[k].kind == tEOF:
			return -1
		}
	}
	return -1
}

// expect consumes the operator op. open is the opening delimiter to report when the
// statement ends before op is found
func (o *parser) expect(op string, open *token) error {
	t := o.cur()
	if t.is(op) {
		o.next()
		return nil
	}
	if open != nil && (t.kind == tNewline || t.kind == tEOF || t.is(")") || t.is("]") || t.is(">_")) {
		return o.errorf(open.pos, "unmatched %q", open.text)
	}
	return o.errorf(t.pos, "expected %q, found %s", op, t.describe())
}

// unclosed reports an unmatched delimiter when the statement ends inside it
func (o *parser) unclosed(open token) error {
	if k := o.cur().kind; k == tNewline || k == tEOF {
		return o.errorf(open.pos, "unmatched %q", open.text)
	}
	return nil
}

func (o *parser) endOfStatement() error {
	t := o.cur()
	if t.kind == tNewline || t.kind == tEOF {
		return nil
	}
	if t.is(")") || t.is("]") || t.is(">_") {
		return o.errorf(t.pos, "unmatched %q", t.text)
	}
	return o.errorf(t.pos, "unexpected %s at end of statement", t.describe())
}

func (o *parser) errorf(p Pos, msg string, prm ...interface{}) error {
	return &SyntaxError{o.file, p, io.Sf(msg, prm...)}
}

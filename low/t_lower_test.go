// Copyright 2016 The Gofem Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package low

import (
	"errors"
	"strings"
	"testing"

	"github.com/cpmech/gosl/chk"
	"github.com/cpmech/gosl/io"
	"github.com/ratnania/vale/inp"
	"github.com/ratnania/vale/sym"
)

func verbose() {
	io.Verbose = true
	chk.Verbose = true
}

const poissonBlock = `
Domain(dim=3, kind='structured') :: Omega
Space(domain=Omega, kind='h1') :: V
Field(V) :: phi, psi
Function(x,y,z) :: f, g
a1(v::V, u::V) := < grad(v) * grad(u) >_Omega
b1(v::V) := < f * v >_Omega
b2(v::V) := < g * v >_Omega
a((v1,v2)::V, (u1,u2)::V) := a1(v1,u1) + a1(v2,u2)
b((v1,v2)::V) := b1(v1) + b2(v2)
`

func newScope(tst *testing.T, src string) *ProgramScope {
	prog, err := inp.Parse("test.vl", src)
	if err != nil {
		tst.Fatalf("Parse failed:\n%v", err)
	}
	return &ProgramScope{Prog: prog, Functions: make(map[string]sym.Expr), Constants: make(map[string]float64)}
}

func lowerForm(scope *ProgramScope, name string) (*Kernel, error) {
	return Lower(scope.Prog.Find(name).(*inp.FormDef), scope)
}

func findTerm(itg *Integrand, ta, da, tb, db int) *Term {
	for _, t := range itg.Terms {
		if t.TestBlock == ta && t.TestDeriv == da && t.TrialBlock == tb && t.TrialDeriv == db {
			return t
		}
	}
	return nil
}

func Test_lower01(tst *testing.T) {

	//verbose()
	chk.PrintTitle("lower01. block Laplacian with pullback")

	scope := newScope(tst, poissonBlock)
	k, err := lowerForm(scope, "a")
	if err != nil {
		tst.Errorf("Lower failed:\n%v", err)
		return
	}
	io.Pforan("%v\n", k)
	if !k.Bilinear {
		tst.Errorf("a must be bilinear")
		return
	}
	chk.Int(tst, "ndim", k.Ndim, 3)
	chk.Int(tst, "ntest", k.Ntest, 2)
	chk.Int(tst, "ntrial", k.Ntrial, 2)
	chk.Int(tst, "integrands", len(k.Integrands), 1)
	itg := k.Integrands[0]
	chk.String(tst, itg.Domain, "Omega")
	if itg.Boundary {
		tst.Errorf("Omega is not a boundary")
	}

	// 2 diagonal blocks × 3 × 3 parametric derivatives
	chk.Int(tst, "terms", len(itg.Terms), 18)
	for _, t := range itg.Terms {
		if t.TestBlock != t.TrialBlock {
			tst.Errorf("blocks must be decoupled; got test=%d trial=%d", t.TestBlock, t.TrialBlock)
			return
		}
		if t.TestDeriv == 0 || t.TrialDeriv == 0 {
			tst.Errorf("Laplacian has no terms with basis values")
			return
		}
	}
	t11 := findTerm(itg, 1, 1, 1, 1)
	if t11 == nil {
		tst.Errorf("missing term (1,d1)x(1,d1)")
		return
	}
	chk.String(tst, t11.Coef.String(), "((invJ00*invJ00) + (invJ01*invJ01) + (invJ02*invJ02))")
	t12 := findTerm(itg, 0, 1, 0, 2)
	if t12 == nil {
		tst.Errorf("missing term (0,d1)x(0,d2)")
		return
	}
	chk.String(tst, t12.Coef.String(), "((invJ00*invJ10) + (invJ01*invJ11) + (invJ02*invJ12))")

	// canonical text is deterministic
	k2, err := lowerForm(scope, "a")
	if err != nil {
		tst.Errorf("Lower failed:\n%v", err)
		return
	}
	chk.String(tst, k.Text(), k2.Text())
}

func Test_lower02(tst *testing.T) {

	//verbose()
	chk.PrintTitle("lower02. coefficient functions")

	scope := newScope(tst, poissonBlock)
	k, err := lowerForm(scope, "b")
	if err != nil {
		tst.Errorf("Lower failed:\n%v", err)
		return
	}
	chk.Strings(tst, "unset", k.Unset, []string{"f", "g"})
	chk.Strings(tst, "deps", k.Deps, []string{"f", "g"})
	if k.Bilinear {
		tst.Errorf("b must be linear")
	}

	f, err := inp.ParseExpr("2*x*(1-x)*y*(1-y) + 2*y*(1-y)*z*(1-z) + 2*z*(1-z)*x*(1-x)")
	if err != nil {
		tst.Errorf("ParseExpr failed:\n%v", err)
		return
	}
	scope.Functions["f"] = f
	scope.Functions["g"] = sym.N(0)
	k, err = lowerForm(scope, "b")
	if err != nil {
		tst.Errorf("Lower failed:\n%v", err)
		return
	}
	chk.Int(tst, "unset", len(k.Unset), 0)
	itg := k.Integrands[0]

	// g = 0 removes the term of the second block
	chk.Int(tst, "terms", len(itg.Terms), 1)
	t := itg.Terms[0]
	chk.Int(tst, "test block", t.TestBlock, 0)
	chk.Int(tst, "test deriv", t.TestDeriv, 0)
	chk.Int(tst, "trial block", t.TrialBlock, -1)
	chk.Strings(tst, "symbols", sym.FreeSymbols(t.Coef), []string{"x", "y", "z"})
	v, err := sym.Eval(t.Coef, map[string]float64{"x": 0.5, "y": 0.5, "z": 0.5})
	if err != nil {
		tst.Errorf("Eval failed:\n%v", err)
		return
	}
	chk.Float64(tst, "f(½,½,½)", 1e-15, v, 0.375)
}

func Test_lower03(tst *testing.T) {

	//verbose()
	chk.PrintTitle("lower03. boundaries, constants, fields and function calls")

	src := `
Domain(dim=2) :: Omega
Boundary(domain=Omega, sides='x-, y+') :: Gamma
Space(domain=Omega) :: V
Field(V) :: phi
Real :: alpha
Real(-2.5) :: beta
Function(s,t) :: h
m(v::V, u::V) := - 2 * alpha * < v * u >_Omega + < (1 + x^2) * dot(grad(v), grad(u)) >_Omega
l(v::V) := beta * < v >_Gamma + < h(2*x, y) * v >_Omega
c(v::V) := < dx(phi) * v >_Omega + < phi * v >_Omega
`
	scope := newScope(tst, src)

	// constant without value
	k, err := lowerForm(scope, "m")
	if err != nil {
		tst.Errorf("Lower failed:\n%v", err)
		return
	}
	chk.Strings(tst, "unset", k.Unset, []string{"alpha"})
	scope.Constants["alpha"] = 0.5
	k, err = lowerForm(scope, "m")
	if err != nil {
		tst.Errorf("Lower failed:\n%v", err)
		return
	}
	chk.Int(tst, "unset", len(k.Unset), 0)
	mass := findTerm(k.Integrands[0], 0, 0, 0, 0)
	if mass == nil {
		tst.Errorf("missing mass term")
		return
	}
	chk.String(tst, mass.Coef.String(), "-1")
	stiff := findTerm(k.Integrands[0], 0, 1, 0, 1)
	if stiff == nil {
		tst.Errorf("missing stiffness term")
		return
	}
	if !strings.Contains(stiff.Coef.String(), "x") {
		tst.Errorf("stiffness coefficient must depend on x; got %v", stiff.Coef)
	}

	// boundary and function with arguments
	h, _ := inp.ParseExpr("s*t")
	scope.Functions["h"] = h
	k, err = lowerForm(scope, "l")
	if err != nil {
		tst.Errorf("Lower failed:\n%v", err)
		return
	}
	chk.Int(tst, "integrands", len(k.Integrands), 2)
	gam := k.Integrands[0]
	if !gam.Boundary {
		tst.Errorf("Gamma is a boundary")
		return
	}
	chk.Ints(tst, "sides", gam.Sides, []int{0, 3})
	chk.String(tst, gam.Terms[0].Coef.String(), "-2.5")
	v, err := sym.Eval(k.Integrands[1].Terms[0].Coef, map[string]float64{"x": 1, "y": 3})
	if err != nil {
		tst.Errorf("Eval failed:\n%v", err)
		return
	}
	chk.Float64(tst, "h(2x,y)", 1e-15, v, 6)

	// coefficient field
	k, err = lowerForm(scope, "c")
	if err != nil {
		tst.Errorf("Lower failed:\n%v", err)
		return
	}
	chk.Strings(tst, "fields", k.Fields, []string{"phi"})
	t := findTerm(k.Integrands[0], 0, 0, -1, -1)
	if t == nil {
		tst.Errorf("missing term")
		return
	}
	s := t.Coef.String()
	for _, want := range []string{"phi_d0", "phi_d1", "phi_d2", "invJ00", "invJ10"} {
		if !strings.Contains(s, want) {
			tst.Errorf("coefficient %q should contain %q", s, want)
		}
	}
}

func Test_lower04(tst *testing.T) {

	//verbose()
	chk.PrintTitle("lower04. errors")

	head := "Domain(dim=2) :: Omega\nDomain(dim=2) :: Other\nSpace(domain=Omega) :: V\nSpace(domain=Other) :: W\nField(V) :: phi\n"
	unbound := []struct {
		src  string
		name string
	}{
		{"a(v::V) := < h * v >_Omega", "h"},
		{"a(v::V) := c(v)", "c"},
		{"a(v::U) := < v >_Omega", "U"},
		{"a(v::V) := < v >_Gamma", "Gamma"},
		{"a(v::V) := < q(x) * v >_Omega", "q"},
	}
	for _, c := range unbound {
		scope := newScope(tst, head+c.src)
		_, err := lowerForm(scope, "a")
		var ue *UnboundSymbolError
		if !errors.As(err, &ue) {
			tst.Errorf("%q: expected UnboundSymbolError; got %v", c.src, err)
			continue
		}
		io.Pforan("%v\n", err)
		chk.String(tst, ue.Name, c.name)
		chk.String(tst, ue.Form, "a")
	}

	mismatch := []string{
		"a(v::V) := < z * v >_Omega",
		"a(v::V) := < grad(v) >_Omega",
		"a(v::V) := < dz(v) >_Omega",
		"a(v::V, u::W) := < v * u >_Omega",
		"a(v::V) := < v >_Other",
		"a(v::V) := < V * v >_Omega",
		"b(v::V, u::V) := < v * u >_Omega\na(v::V) := b(v)",
		"b(w::W) := < w >_Other\na(v::V) := b(v)",
		"b((w1,w2)::V) := < w1 >_Omega\na(v::V) := b(v)",
		"a(v::V) := < dot(grad(v), grad(phi) + 1) >_Omega",
	}
	for _, src := range mismatch {
		scope := newScope(tst, head+src)
		_, err := lowerForm(scope, "a")
		var de *DimensionMismatchError
		if !errors.As(err, &de) {
			tst.Errorf("%q: expected DimensionMismatchError; got %v", src, err)
			continue
		}
		io.Pforan("%v\n", err)
	}

	nonlinear := []string{
		"a(v::V) := < v * v >_Omega",
		"a(v::V) := < sin(v) >_Omega",
		"a(v::V, u::V) := < v * u * u >_Omega",
		"a(v::V, u::V) := < v >_Omega",
		"a(v::V) := < phi >_Omega",
		"a(v::V) := < 1 / (1 + v) >_Omega",
	}
	for _, src := range nonlinear {
		scope := newScope(tst, head+src)
		_, err := lowerForm(scope, "a")
		var le *LinearityError
		if !errors.As(err, &le) {
			tst.Errorf("%q: expected LinearityError; got %v", src, err)
			continue
		}
		io.Pforan("%v\n", err)
	}

	others := []string{
		"a(v::V) := a(v)",
		"a(v::V) := < dx(dx(v)) >_Omega",
	}
	for _, src := range others {
		scope := newScope(tst, head+src)
		_, err := lowerForm(scope, "a")
		if err == nil {
			tst.Errorf("%q: lowering should fail", src)
			continue
		}
		io.Pforan("%v\n", err)
	}
}

// evalCoef evaluates a coefficient with the inverse Jacobian entries taken from invJ
func evalCoef(tst *testing.T, c sym.Expr, invJ [][]float64, x float64) float64 {
	env := map[string]float64{"x": x, "y": 0.3}
	e := sym.Map(c, func(n sym.Expr) sym.Expr {
		if m, ok := n.(*sym.Metric); ok {
			name := io.Sf("invJ_%d_%d", m.I, m.J)
			env[name] = invJ[m.I][m.J]
			return sym.S(name)
		}
		return n
	})
	v, err := sym.Eval(e, env)
	if err != nil {
		tst.Fatalf("Eval failed:\n%v", err)
	}
	return v
}

func Test_lower05(tst *testing.T) {

	//verbose()
	chk.PrintTitle("lower05. scaled calls and variable coefficients in bilinear forms")

	src := `
# comment before the first declaration
Domain(dim=2) :: Omega
Space(domain=Omega) :: V
Real(3) :: k
a1(v::V, u::V) := < grad(v) * grad(u) >_Omega
s2(v::V, u::V) := 2 * a1(v,u)
s3(v::V, u::V) := < k * dot(grad(v), grad(u)) >_Omega
s4(v::V, u::V) := < (1 + x^2) * dot(grad(v), grad(u)) >_Omega - a1(v,u)
s5(v::V, u::V) := -0.5 * < grad(v) * grad(u) >_Omega - 0.5 * s2(v,u)
`
	scope := newScope(tst, src)
	ref, err := lowerForm(scope, "a1")
	if err != nil {
		tst.Errorf("Lower failed:\n%v", err)
		return
	}
	invJ := [][]float64{{1.5, -0.2}, {0.3, 0.8}}
	xval := 0.5
	cases := []struct {
		form  string
		scale float64
	}{
		{"s2", 2},
		{"s3", 3},
		{"s4", xval * xval},
		{"s5", -1.5},
	}
	for _, c := range cases {
		k, err := lowerForm(scope, c.form)
		if err != nil {
			tst.Errorf("%s: Lower failed:\n%v", c.form, err)
			continue
		}
		chk.Int(tst, c.form+" integrands", len(k.Integrands), 1)
		chk.Int(tst, c.form+" terms", len(k.Integrands[0].Terms), len(ref.Integrands[0].Terms))
		for _, t := range ref.Integrands[0].Terms {
			s := findTerm(k.Integrands[0], t.TestBlock, t.TestDeriv, t.TrialBlock, t.TrialDeriv)
			if s == nil {
				tst.Errorf("%s: missing term (%d,d%d)x(%d,d%d)", c.form, t.TestBlock, t.TestDeriv, t.TrialBlock, t.TrialDeriv)
				continue
			}
			want := c.scale * evalCoef(tst, t.Coef, invJ, xval)
			chk.Float64(tst, io.Sf("%s coef d%d d%d", c.form, t.TestDeriv, t.TrialDeriv), 1e-14, evalCoef(tst, s.Coef, invJ, xval), want)
		}
	}
}

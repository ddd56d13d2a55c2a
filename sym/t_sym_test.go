// Copyright 2016 The Gofem Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package sym

import (
	"math"
	"testing"

	"github.com/cpmech/gosl/chk"
)

func Test_sym01(tst *testing.T) {

	//verbose()
	chk.PrintTitle("sym01. simplify")

	x := S("x")
	e := Simplify(Sum(Prod(N(2), N(3), x), N(0), Prod(N(0), S("y")), N(1), N(-1)))
	chk.String(tst, e.String(), "(6*x)")

	e = Simplify(&Pow{Sum(x, N(0)), N(1)})
	chk.String(tst, e.String(), "x")

	e = Simplify(&Call{"sin", []Expr{N(0)}})
	chk.String(tst, e.String(), "0")

	e = Simplify(Prod(x, Prod(N(2), S("y")), N(0.5)))
	chk.String(tst, e.String(), "(x*y)")
}

func Test_sym02(tst *testing.T) {

	//verbose()
	chk.PrintTitle("sym02. differentiation")

	// f(x) = x²·sin(x) + exp(2x) / x
	x := S("x")
	f := Sum(Prod(&Pow{x, N(2)}, &Call{"sin", []Expr{x}}), Div(&Call{"exp", []Expr{Prod(N(2), x)}}, x))
	df, err := Diff(f, "x")
	if err != nil {
		tst.Errorf("Diff failed:\n%v", err)
		return
	}
	for _, xAt := range []float64{0.3, 0.7, 1.2} {
		ana, err := Eval(df, map[string]float64{"x": xAt})
		if err != nil {
			tst.Errorf("Eval failed:\n%v", err)
			return
		}
		chk.DerivScaSca(tst, "df/dx", 1e-8, ana, xAt, 1e-3, chk.Verbose, func(t float64) float64 {
			v, _ := Eval(f, map[string]float64{"x": t})
			return v
		})
	}

	// derivative w.r.t another symbol
	dfy, err := Diff(f, "y")
	if err != nil {
		tst.Errorf("Diff failed:\n%v", err)
		return
	}
	chk.String(tst, dfy.String(), "0")

	// non-differentiable leaves
	_, err = Diff(Prod(x, &Basis{Test, 0, 0}), "x")
	if err == nil {
		tst.Errorf("Diff should have failed on basis placeholder")
	}
}

func Test_sym03(tst *testing.T) {

	//verbose()
	chk.PrintTitle("sym03. expansion and substitution")

	v := &Basis{Test, 0, 1}
	u := &Basis{Trial, 0, 1}
	e := Expand(Prod(Sum(S("a"), S("b")), Sum(v, Prod(N(2), u))))
	add, ok := e.(*Add)
	if !ok {
		tst.Errorf("expansion should produce a sum. got %v", e)
		return
	}
	chk.Int(tst, "number of terms", len(add.Terms), 4)

	r := Subst(Prod(S("a"), S("x")), map[string]Expr{"a": Sum(S("x"), N(1))})
	chk.String(tst, r.String(), "((x + 1)*x)")
	val, err := Eval(r, map[string]float64{"x": 2})
	if err != nil {
		tst.Errorf("Eval failed:\n%v", err)
		return
	}
	chk.Float64(tst, "(x+1)·x @ 2", 1e-15, val, 6)

	// constants and missing symbols
	val, err = Eval(Prod(S("pi"), N(2)), nil)
	if err != nil {
		tst.Errorf("Eval failed:\n%v", err)
		return
	}
	chk.Float64(tst, "2π", 1e-15, val, 2*math.Pi)
	_, err = Eval(S("nope"), nil)
	if err == nil {
		tst.Errorf("Eval should have failed with unbound symbol")
	}
}

func Test_sym04(tst *testing.T) {

	//verbose()
	chk.PrintTitle("sym04. structural hash and queries")

	a := Sum(Prod(S("x"), S("y")), &Metric{0, 1})
	b := Sum(Prod(S("x"), S("y")), &Metric{0, 1})
	c := Sum(Prod(S("y"), S("x")), &Metric{0, 1})
	if Hash(a) != Hash(b) || !Equal(a, b) {
		tst.Errorf("identical trees must hash identically")
	}
	if Hash(a) == Hash(c) {
		tst.Errorf("different trees should hash differently")
	}
	chk.Strings(tst, "free symbols", FreeSymbols(Sum(a, S("z"))), []string{"x", "y", "z"})
	chk.Strings(tst, "calls", Calls(Prod(&Call{"sin", []Expr{S("x")}}, &Call{"exp", []Expr{S("x")}})), []string{"exp", "sin"})
	if !HasBasis(Prod(S("x"), &Basis{Trial, 1, 0}), Trial) {
		tst.Errorf("HasBasis should find trial placeholder")
	}
}

func Test_sym05(tst *testing.T) {

	//verbose()
	chk.PrintTitle("sym05. expansion of products over nested sums")

	// k * Σ_i (J_i0 v_d1 + J_i1 v_d2) (J_i0 u_d1 + J_i1 u_d2); i.e. k * dot(grad(v), grad(u))
	gradDot := func(v1, v2, u1, u2 Expr) Expr {
		J := [][]Expr{{S("p"), S("q")}, {S("r"), S("s")}}
		var comps []Expr
		for i := 0; i < 2; i++ {
			gv := Sum(Prod(J[i][0], v1), Prod(J[i][1], v2))
			gu := Sum(Prod(J[i][0], u1), Prod(J[i][1], u2))
			comps = append(comps, Prod(gv, gu))
		}
		return Prod(S("k"), Sum(comps...))
	}
	e := Expand(gradDot(&Basis{Test, 0, 1}, &Basis{Test, 0, 2}, &Basis{Trial, 0, 1}, &Basis{Trial, 0, 2}))
	add, ok := e.(*Add)
	if !ok {
		tst.Errorf("expansion should produce a sum. got %v", e)
		return
	}
	chk.Int(tst, "number of terms", len(add.Terms), 8)
	for _, t := range add.Terms {
		Walk(t, func(n Expr) bool {
			if _, isadd := n.(*Add); isadd {
				tst.Errorf("term %v must not contain sums", t)
			}
			return true
		})
		if !HasBasis(t, Test) || !HasBasis(t, Trial) {
			tst.Errorf("term %v must have one test and one trial placeholder", t)
		}
	}

	// values are preserved
	f := Prod(N(2), gradDot(S("a"), S("b"), S("c"), S("d")))
	env := map[string]float64{"k": 3, "p": 1.5, "q": -2, "r": 0.25, "s": 0.7, "a": 1, "b": 2, "c": -1, "d": 0.5}
	want, err := Eval(f, env)
	if err != nil {
		tst.Errorf("Eval failed:\n%v", err)
		return
	}
	g := Expand(f)
	got, err := Eval(g, env)
	if err != nil {
		tst.Errorf("Eval failed:\n%v", err)
		return
	}
	chk.Float64(tst, "expanded value", 1e-13, got, want)
	if add, ok = g.(*Add); !ok {
		tst.Errorf("expansion should produce a sum. got %v", g)
		return
	}
	for _, t := range add.Terms {
		if _, isadd := t.(*Add); isadd {
			tst.Errorf("expanded sum must be flat; got term %v", t)
		}
	}
}

// Copyright 2016 The Gofem Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// package ana implements analytical (manufactured) solutions
package ana

import (
	"strings"
	"testing"

	"github.com/cpmech/gosl/chk"
	"github.com/cpmech/gosl/io"
	"github.com/ratnania/vale/inp"
	"github.com/ratnania/vale/low"
	"github.com/ratnania/vale/sym"
)

// Poisson holds a manufactured solution u of -Δu = f on a box
//
//	f = -Σ_k ∂²u/∂x_k²
type Poisson struct {
	Ndim int        // space dimension
	U    sym.Expr   // solution
	Grad []sym.Expr // ∂u/∂x_k
	F    sym.Expr   // source term
}

// Init initialises this structure with the expression of the solution; e.g. "sin(pi*x)*sin(pi*y)"
func (o *Poisson) Init(solution string, ndim int) (err error) {
	if ndim < 1 || ndim > 3 {
		return chk.Err("manufactured solution requires 1, 2 or 3 dimensions; got %d", ndim)
	}
	o.Ndim = ndim
	o.U, err = inp.ParseExpr(solution)
	if err != nil {
		return
	}
	for _, name := range sym.FreeSymbols(o.U) {
		if _, ok := sym.Constants[name]; ok {
			continue
		}
		if !o.isCoord(name) {
			return chk.Err("solution %q: symbol %q is not a coordinate", solution, name)
		}
	}
	o.Grad = make([]sym.Expr, ndim)
	lap := make([]sym.Expr, ndim)
	for k := 0; k < ndim; k++ {
		o.Grad[k], err = sym.Diff(o.U, low.Coords[k])
		if err != nil {
			return
		}
		lap[k], err = sym.Diff(o.Grad[k], low.Coords[k])
		if err != nil {
			return
		}
	}
	o.F = sym.Simplify(sym.Neg(sym.Sum(lap...)))
	return
}

// Solution computes u @ x
func (o Poisson) Solution(x []float64) float64 { return o.eval(o.U, x) }

// Source computes f @ x
func (o Poisson) Source(x []float64) float64 { return o.eval(o.F, x) }

// Gradient computes ∇u @ x
func (o Poisson) Gradient(x []float64) (g []float64) {
	g = make([]float64, o.Ndim)
	for k, e := range o.Grad {
		g[k] = o.eval(e, x)
	}
	return
}

// CheckSolution checks u @ x
func (o Poisson) CheckSolution(tst *testing.T, u float64, x []float64, tol float64) {
	chk.Float64(tst, io.Sf("u @ %v", x), tol, u, o.Solution(x))
}

func (o Poisson) eval(e sym.Expr, x []float64) float64 {
	env := make(map[string]float64)
	for k := 0; k < o.Ndim; k++ {
		env[low.Coords[k]] = x[k]
	}
	v, err := sym.Eval(e, env)
	if err != nil {
		chk.Panic("cannot evaluate %v:\n%v", e, err)
	}
	return v
}

func (o Poisson) isCoord(name string) bool {
	for k := 0; k < o.Ndim; k++ {
		if low.Coords[k] == name {
			return true
		}
	}
	return false
}

// SineProduct returns Π_k sin(π x_k), which vanishes on the boundary of the unit box
func SineProduct(ndim int) string {
	f := make([]string, ndim)
	for k := range f {
		f[k] = io.Sf("sin(pi*%s)", low.Coords[k])
	}
	return strings.Join(f, "*")
}

// BubbleProduct returns Π_k x_k (1 - x_k), which vanishes on the boundary of the unit box
func BubbleProduct(ndim int) string {
	f := make([]string, ndim)
	for k := range f {
		f[k] = io.Sf("%s*(1-%s)", low.Coords[k], low.Coords[k])
	}
	return strings.Join(f, "*")
}

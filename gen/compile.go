// Copyright 2016 The Gofem Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// package gen compiles lowered kernels into evaluators made of Go closures
package gen

import (
	"math"

	"github.com/cpmech/gosl/chk"
	"github.com/ratnania/vale/low"
	"github.com/ratnania/vale/sym"
)

// Point holds the data of one integration point
type Point struct {
	X      []float64   // physical coordinates
	InvJ   [][]float64 // inverse Jacobian: InvJ[i][j] = ∂ξ_i/∂x_j
	Fields [][]float64 // Fields[f][0] = value and Fields[f][k+1] = ∂/∂ξ_k of the f-th field of the kernel
}

// Fcn evaluates a compiled expression at one point
type Fcn func(p *Point) float64

// compiler holds the symbol tables of one compilation
type compiler struct {
	fields map[string]int // index of field in Point.Fields
}

// Expr compiles a coefficient expression. fields gives the order of field values in Point.Fields
func Expr(e sym.Expr, fields []string) (f Fcn, err error) {
	o := &compiler{fields: make(map[string]int)}
	for i, name := range fields {
		o.fields[name] = i
	}
	f, _, _, err = o.compile(e)
	return
}

// compile returns the closure of e; constant subtrees are folded into isconst == true and val
func (o *compiler) compile(e sym.Expr) (f Fcn, isconst bool, val float64, err error) {
	switch n := e.(type) {

	case *sym.Num:
		v := n.Val
		return func(*Point) float64 { return v }, true, v, nil

	case *sym.Sym:
		for k, c := range low.Coords {
			if c == n.Name {
				return func(p *Point) float64 { return p.X[k] }, false, 0, nil
			}
		}
		if v, ok := sym.Constants[n.Name]; ok {
			return func(*Point) float64 { return v }, true, v, nil
		}
		return nil, false, 0, chk.Err("symbol %q has no value", n.Name)

	case *sym.Metric:
		i, j := n.I, n.J
		return func(p *Point) float64 { return p.InvJ[i][j] }, false, 0, nil

	case *sym.FieldRef:
		idx, ok := o.fields[n.Name]
		if !ok {
			return nil, false, 0, chk.Err("field %q is not available", n.Name)
		}
		d := n.Deriv
		return func(p *Point) float64 { return p.Fields[idx][d] }, false, 0, nil

	case *sym.Basis:
		return nil, false, 0, chk.Err("basis placeholder %v cannot appear in a coefficient", n)

	case *sym.Add:
		return o.add(n)

	case *sym.Mul:
		return o.mul(n)

	case *sym.Pow:
		return o.pow(n)

	case *sym.Call:
		fe, ok := sym.Elementary[n.Fn]
		if !ok || len(n.Args) != 1 {
			return nil, false, 0, chk.Err("cannot compile call to %q", n.Fn)
		}
		a, c, v, err := o.compile(n.Args[0])
		if err != nil {
			return nil, false, 0, err
		}
		fcn := fe.F
		if c {
			r := fcn(v)
			return func(*Point) float64 { return r }, true, r, nil
		}
		return func(p *Point) float64 { return fcn(a(p)) }, false, 0, nil
	}
	return nil, false, 0, chk.Err("cannot compile %v", e)
}

func (o *compiler) list(items []sym.Expr, neutral float64, op func(a, b float64) float64) (fcns []Fcn, cte float64, err error) {
	cte = neutral
	for _, it := range items {
		f, c, v, err := o.compile(it)
		if err != nil {
			return nil, 0, err
		}
		if c {
			cte = op(cte, v)
			continue
		}
		fcns = append(fcns, f)
	}
	return
}

func (o *compiler) add(n *sym.Add) (Fcn, bool, float64, error) {
	fcns, cte, err := o.list(n.Terms, 0, func(a, b float64) float64 { return a + b })
	if err != nil {
		return nil, false, 0, err
	}
	switch len(fcns) {
	case 0:
		return func(*Point) float64 { return cte }, true, cte, nil
	case 1:
		a := fcns[0]
		return func(p *Point) float64 { return a(p) + cte }, false, 0, nil
	case 2:
		a, b := fcns[0], fcns[1]
		return func(p *Point) float64 { return a(p) + b(p) + cte }, false, 0, nil
	}
	return func(p *Point) float64 {
		res := cte
		for _, f := range fcns {
			res += f(p)
		}
		return res
	}, false, 0, nil
}

func (o *compiler) mul(n *sym.Mul) (Fcn, bool, float64, error) {
	fcns, cte, err := o.list(n.Factors, 1, func(a, b float64) float64 { return a * b })
	if err != nil {
		return nil, false, 0, err
	}
	if cte == 0 || len(fcns) == 0 {
		return func(*Point) float64 { return cte }, true, cte, nil
	}
	switch len(fcns) {
	case 1:
		a := fcns[0]
		if cte == 1 {
			return a, false, 0, nil
		}
		return func(p *Point) float64 { return cte * a(p) }, false, 0, nil
	case 2:
		a, b := fcns[0], fcns[1]
		return func(p *Point) float64 { return cte * a(p) * b(p) }, false, 0, nil
	}
	return func(p *Point) float64 {
		res := cte
		for _, f := range fcns {
			res *= f(p)
		}
		return res
	}, false, 0, nil
}

func (o *compiler) pow(n *sym.Pow) (Fcn, bool, float64, error) {
	b, bc, bv, err := o.compile(n.Base)
	if err != nil {
		return nil, false, 0, err
	}
	x, xc, xv, err := o.compile(n.Exp)
	if err != nil {
		return nil, false, 0, err
	}
	switch {
	case bc && xc:
		r := math.Pow(bv, xv)
		return func(*Point) float64 { return r }, true, r, nil
	case xc:
		switch xv {
		case 1:
			return b, false, 0, nil
		case 2:
			return func(p *Point) float64 { v := b(p); return v * v }, false, 0, nil
		case 3:
			return func(p *Point) float64 { v := b(p); return v * v * v }, false, 0, nil
		case -1:
			return func(p *Point) float64 { return 1 / b(p) }, false, 0, nil
		case 0.5:
			return func(p *Point) float64 { return math.Sqrt(b(p)) }, false, 0, nil
		}
		return func(p *Point) float64 { return math.Pow(b(p), xv) }, false, 0, nil
	}
	return func(p *Point) float64 { return math.Pow(b(p), x(p)) }, false, 0, nil
}

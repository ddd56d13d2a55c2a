// Copyright 2016 The Gofem Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package fem

import (
	"math"

	"github.com/cpmech/gosl/chk"
	"github.com/cpmech/gosl/la"
	"github.com/cpmech/gosl/utl"
	"github.com/ratnania/vale/gen"
	"github.com/ratnania/vale/geo"
	"github.com/ratnania/vale/out"
	"github.com/ratnania/vale/sym"
)

// Field holds the coefficients of a discrete function living in a space
type Field struct {
	Name  string    // name of field
	Space *Space    // space of the field
	Coefs la.Vector // one coefficient per equation of the space
}

func (o *Field) DeclName() string { return o.Name }
func (o *Field) Kind() string     { return "field" }

// Set sets the coefficients
func (o *Field) Set(coefs []float64) error {
	if len(coefs) != len(o.Coefs) {
		return &BlockLayoutError{[]int{len(o.Coefs)}, []int{len(coefs)}}
	}
	copy(o.Coefs, coefs)
	return nil
}

// Eval evaluates the field @ parametric point u ∈ [0,1]^d
func (o *Field) Eval(u []float64) (res float64, err error) {
	sp := o.Space.Shp
	if len(u) != sp.Ndim {
		return 0, chk.Err("field %q: point %v must have %d coordinates", o.Name, u, sp.Ndim)
	}
	for _, t := range u {
		if t < 0 || t > 1 {
			return 0, chk.Err("field %q: point %v is outside the parametric domain", o.Name, u)
		}
	}
	span := make([]int, sp.Ndim)
	D := sp.AllocBasis(1)[0]
	eqs := make([]int, sp.Nlocal)
	sp.PointBasis(u, span, D)
	sp.LocalEquations(span, eqs)
	for a, eq := range eqs {
		if eq >= 0 {
			res += o.Coefs[eq] * D[a][0]
		}
	}
	return
}

// ToVTK writes npts^d samples of the field on the image of the mapping
func (o *Field) ToVTK(path string, mapping geo.Mapping, npts int) error {
	return out.WriteVTK(path, o.Name, npts, mapping, o.Eval)
}

// L2Error returns ‖u_h - ref‖ over the physical domain, computed with the quadrature of the
// assembly. ref may depend on the coordinates x, y and z only
func (o *Field) L2Error(mapping geo.Mapping, ref sym.Expr) (res float64, err error) {
	fcn, err := gen.Expr(ref, nil)
	if err != nil {
		return 0, chk.Err("field %q: invalid reference solution:\n%v", o.Name, err)
	}
	sp := o.Space.Shp
	if mapping.Ndim() != sp.Ndim {
		return 0, chk.Err("field %q: mapping is %dD but the space is %dD", o.Name, mapping.Ndim(), sp.Ndim)
	}
	D := sp.AllocBasis(sp.Nqp)
	u := utl.Alloc(sp.Nqp, sp.Ndim)
	w := make([]float64, sp.Nqp)
	span := make([]int, sp.Ndim)
	eqs := make([]int, sp.Nlocal)
	pt := &gen.Point{X: make([]float64, sp.Ndim)}
	for e := 0; e < sp.Nelems; e++ {
		sp.SpanIndex(e, span)
		sp.ElemBasis(span, D, u, w)
		sp.LocalEquations(span, eqs)
		for q := 0; q < sp.Nqp; q++ {
			detJ := mapping.Eval(u[q], pt.X, nil)
			if !(detJ > 0) {
				return 0, chk.Err("field %q: non-positive Jacobian determinant %g at u = %v", o.Name, detJ, u[q])
			}
			uh := 0.0
			for a, eq := range eqs {
				if eq >= 0 {
					uh += o.Coefs[eq] * D[q][a][0]
				}
			}
			diff := uh - fcn(pt)
			res += w[q] * detJ * diff * diff
		}
	}
	return math.Sqrt(res), nil
}

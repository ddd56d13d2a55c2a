// Copyright 2016 The Gofem Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// package shp implements tensor-product B-spline spaces, their quadrature rules and numbering
package shp

import (
	"math"
	"sync"

	"github.com/cpmech/gosl/chk"
	"github.com/cpmech/gosl/gm"
	"github.com/cpmech/gosl/utl"
	"gonum.org/v1/gonum/integrate/quad"
)

// Axis holds a univariate B-spline basis with open uniform knots on [0,1]
//
//	span e covers [e/nspans, (e+1)/nspans] and supports the basis functions e ... e+degree
type Axis struct {
	Nspans int       // number of knot spans
	Degree int       // polynomial degree
	BcMin  int       // 0 => first basis function eliminated (homogeneous Dirichlet); 1 => natural
	BcMax  int       // 0 => last basis function eliminated; 1 => natural
	Knots  []float64 // open knot vector with degree+1 repeated end knots
	Nbasis int       // number of basis functions = nspans + degree
	Dofs   []int     // [nbasis] equation number of each basis function; -1 if eliminated
	Ndofs  int       // number of equations

	// quadrature tables
	Nqp  int           // number of quadrature points per span
	Pts  [][]float64   // [nspans][nqp] parametric coordinates
	Wts  [][]float64   // [nspans][nqp] weights (include the span length)
	N    [][][]float64 // [nspans][nqp][degree+1] values of local basis functions
	DN   [][][]float64 // [nspans][nqp][degree+1] derivatives of local basis functions
	EndN [2][]float64  // [side][degree+1] local values @ 0 (first span) and @ 1 (last span)
	EndD [2][]float64  // [side][degree+1] local derivatives @ 0 and @ 1

	// point evaluation
	bsp *gm.Bspline
	mu  sync.Mutex
}

// NewAxis allocates a new axis. nqp is the number of Gauss-Legendre points per span
func NewAxis(nspans, degree, bcmin, bcmax, nqp int) (o *Axis, err error) {

	// check
	if nspans < 1 {
		return nil, chk.Err("number of spans must be positive; got %d", nspans)
	}
	if degree < 1 {
		return nil, chk.Err("degree must be at least 1; got %d", degree)
	}
	if nqp < 1 {
		return nil, chk.Err("number of quadrature points must be positive; got %d", nqp)
	}
	for _, bc := range []int{bcmin, bcmax} {
		if bc != 0 && bc != 1 {
			return nil, chk.Err("boundary flags must be 0 (Dirichlet) or 1 (natural); got %d", bc)
		}
	}

	// knots
	o = &Axis{Nspans: nspans, Degree: degree, BcMin: bcmin, BcMax: bcmax, Nqp: nqp}
	o.Knots = make([]float64, 0, nspans+2*degree+1)
	for i := 0; i < degree; i++ {
		o.Knots = append(o.Knots, 0)
	}
	o.Knots = append(o.Knots, utl.LinSpace(0, 1, nspans+1)...)
	for i := 0; i < degree; i++ {
		o.Knots = append(o.Knots, 1)
	}
	o.Nbasis = nspans + degree
	o.bsp = gm.NewBspline(o.Knots, degree)
	if o.bsp.NumBasis() != o.Nbasis {
		return nil, chk.Err("B-spline has %d basis functions; expected %d", o.bsp.NumBasis(), o.Nbasis)
	}

	// numbering
	o.Dofs = make([]int, o.Nbasis)
	for i := range o.Dofs {
		if (i == 0 && bcmin == 0) || (i == o.Nbasis-1 && bcmax == 0) {
			o.Dofs[i] = -1
			continue
		}
		o.Dofs[i] = o.Ndofs
		o.Ndofs++
	}
	if o.Ndofs == 0 {
		return nil, chk.Err("all basis functions are eliminated; increase the number of spans or the degree")
	}

	// quadrature tables
	np1 := degree + 1
	o.Pts = utl.Alloc(nspans, nqp)
	o.Wts = utl.Alloc(nspans, nqp)
	o.N = make([][][]float64, nspans)
	o.DN = make([][][]float64, nspans)
	var rule quad.Legendre
	for e := 0; e < nspans; e++ {
		a, b := o.Knots[degree+e], o.Knots[degree+e+1]
		rule.FixedLocations(o.Pts[e], o.Wts[e], a, b)
		o.N[e] = utl.Alloc(nqp, np1)
		o.DN[e] = utl.Alloc(nqp, np1)
		for q, t := range o.Pts[e] {
			o.local(e, t, o.N[e][q], o.DN[e][q])
		}
	}

	// end values
	for side := 0; side < 2; side++ {
		o.EndN[side] = make([]float64, np1)
		o.EndD[side] = make([]float64, np1)
		e, t := 0, 0.0
		if side == 1 {
			e, t = nspans-1, 1
		}
		o.local(e, t, o.EndN[side], o.EndD[side])
	}
	return
}

// Span returns the index of the span containing t ∈ [0,1]
func (o *Axis) Span(t float64) int {
	e := int(math.Floor(t * float64(o.Nspans)))
	if e < 0 {
		return 0
	}
	if e >= o.Nspans {
		return o.Nspans - 1
	}
	return e
}

// Eval computes the local basis functions of the span containing t
func (o *Axis) Eval(t float64, N, dN []float64) (span int) {
	span = o.Span(t)
	o.local(span, t, N, dN)
	return
}

// local computes the degree+1 basis functions supported on span e @ t
func (o *Axis) local(e int, t float64, N, dN []float64) {
	if t >= 1 {
		t = 1 - 1e-14 // the last knot belongs to the last span
	}
	o.mu.Lock()
	defer o.mu.Unlock()
	o.bsp.CalcBasisAndDerivs(t)
	for a := 0; a <= o.Degree; a++ {
		N[a] = o.bsp.GetBasis(e + a)
		dN[a] = o.bsp.GetDeriv(e + a)
	}
}

// Check verifies that the tables form a partition of unity in every span
func (o *Axis) Check(tol float64) error {
	for e := 0; e < o.Nspans; e++ {
		for q := 0; q < o.Nqp; q++ {
			sum, dsum := 0.0, 0.0
			for a := 0; a <= o.Degree; a++ {
				sum += o.N[e][q][a]
				dsum += o.DN[e][q][a]
			}
			if math.Abs(sum-1) > tol || math.Abs(dsum) > tol*float64(o.Nspans) {
				return chk.Err("basis functions of span %d are inconsistent with degree %d @ t=%g: ΣN=%g ΣdN=%g", e, o.Degree, o.Pts[e][q], sum, dsum)
			}
		}
	}
	return nil
}

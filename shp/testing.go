// Copyright 2016 The Gofem Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package shp

import (
	"math"
	"testing"

	"github.com/cpmech/gosl/chk"
	"github.com/cpmech/gosl/io"
)

// CheckPartition checks that the tensor basis sums to 1.0 and its gradient to 0.0 @ quadrature points
// and that the weights add up to the volume of the parametric domain
func CheckPartition(tst *testing.T, sp *Space, tol float64, verbose bool) {

	// loop over all elements
	D := sp.AllocBasis(sp.Nqp)
	u := make([][]float64, sp.Nqp)
	for q := range u {
		u[q] = make([]float64, sp.Ndim)
	}
	w := make([]float64, sp.Nqp)
	span := make([]int, sp.Ndim)
	errS, errG, sumW := 0.0, 0.0, 0.0
	for e := 0; e < sp.Nelems; e++ {
		sp.SpanIndex(e, span)
		sp.ElemBasis(span, D, u, w)
		for q := 0; q < sp.Nqp; q++ {
			sumW += w[q]
			s, g := 0.0, make([]float64, sp.Ndim)
			for a := 0; a < sp.Nlocal; a++ {
				s += D[q][a][0]
				for k := 0; k < sp.Ndim; k++ {
					g[k] += D[q][a][k+1]
				}
			}
			errS = math.Max(errS, math.Abs(s-1.0))
			for k := range g {
				errG = math.Max(errG, math.Abs(g[k]))
			}
		}
	}

	// error
	if verbose {
		io.Pforan("errS = %g  errG = %g  Σw = %g\n", errS, errG, sumW)
	}
	if errS > tol || errG > tol*float64(sp.Nelems) { // derivatives scale with the number of spans
		tst.Errorf("%s: partition of unity failed with errS = %g and errG = %g\n", sp.Name, errS, errG)
		return
	}
	chk.Float64(tst, "Σw", tol, sumW, 1)
}

// CheckDerivs checks the derivatives of all univariate basis functions of ax @ t using finite differences
func CheckDerivs(tst *testing.T, ax *Axis, t, tol float64, verbose bool) {
	np1 := ax.Degree + 1
	N := make([]float64, np1)
	dN := make([]float64, np1)
	span := ax.Eval(t, N, dN)
	tmp := make([]float64, np1)
	dtmp := make([]float64, np1)
	for a := 0; a < np1; a++ {
		chk.DerivScaSca(tst, io.Sf("dN%d/dt", span+a), tol, dN[a], t, 1e-3, verbose, func(x float64) float64 {
			ax.local(span, x, tmp, dtmp)
			return tmp[a]
		})
	}
}

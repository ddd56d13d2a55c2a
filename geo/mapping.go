// Copyright 2016 The Gofem Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// package geo implements mappings from the parametric domain [0,1]^d to physical domains
package geo

import (
	"github.com/cpmech/gosl/chk"
	"github.com/cpmech/gosl/utl"
	"gonum.org/v1/gonum/mat"
)

// Mapping maps parametric points u ∈ [0,1]^d to physical points x
type Mapping interface {
	Ndim() int                                         // dimension
	Eval(u, x []float64, J [][]float64) (detJ float64) // x(u) and J[i][j] = ∂x_i/∂u_j
}

// Metric computes the inverse Jacobian invJ[i][j] = ∂u_i/∂x_j and returns det(J)
func Metric(J, invJ [][]float64) (detJ float64, err error) {
	n := len(J)
	data := make([]float64, 0, n*n)
	for i := 0; i < n; i++ {
		data = append(data, J[i][:n]...)
	}
	Jm := mat.NewDense(n, n, data)
	detJ = mat.Det(Jm)
	var inv mat.Dense
	err = inv.Inverse(Jm)
	if err != nil {
		return detJ, chk.Err("Jacobian matrix is singular (det = %g):\n%v", detJ, err)
	}
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			invJ[i][j] = inv.At(i, j)
		}
	}
	return
}

// Affine implements x = Origin + A·u
type Affine struct {
	Origin []float64   // image of u = 0
	A      [][]float64 // constant Jacobian
	det    float64
}

// NewAffine returns a new affine mapping
func NewAffine(origin []float64, A [][]float64) (o *Affine, err error) {
	n := len(origin)
	if n < 1 || n > 3 || len(A) != n {
		return nil, chk.Err("affine mapping requires 1, 2 or 3 dimensions and a square matrix; got origin=%v A=%v", origin, A)
	}
	for _, row := range A {
		if len(row) != n {
			return nil, chk.Err("affine mapping requires a square matrix; got %v", A)
		}
	}
	o = &Affine{Origin: origin, A: A}
	invA := utl.Alloc(n, n)
	o.det, err = Metric(A, invA)
	if err != nil {
		return nil, err
	}
	if o.det <= 0 {
		return nil, chk.Err("affine mapping must preserve orientation; det(A) = %g", o.det)
	}
	return
}

// NewBox returns the mapping of [0,1]^d onto the box [min,max]
func NewBox(min, max []float64) (o *Affine, err error) {
	if len(min) != len(max) {
		return nil, chk.Err("box corners must have the same dimension; got %v and %v", min, max)
	}
	A := utl.Alloc(len(min), len(min))
	for i := range min {
		A[i][i] = max[i] - min[i]
	}
	return NewAffine(min, A)
}

// Ndim returns the dimension
func (o *Affine) Ndim() int { return len(o.Origin) }

// Eval computes x and J @ u
func (o *Affine) Eval(u, x []float64, J [][]float64) (detJ float64) {
	for i := range o.Origin {
		x[i] = o.Origin[i]
		for j := range o.Origin {
			x[i] += o.A[i][j] * u[j]
			if J != nil {
				J[i][j] = o.A[i][j]
			}
		}
	}
	return o.det
}

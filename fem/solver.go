// Copyright 2016 The Gofem Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package fem

import (
	"math"

	"github.com/cpmech/gosl/chk"
	"github.com/cpmech/gosl/io"
	"github.com/cpmech/gosl/la"
	"github.com/ratnania/vale/inp"
)

// LinSol solves the linear system A·x = b
type LinSol interface {
	Solve(A *BlockMatrix, b la.Vector) (x la.Vector, err error)
}

// linsolAllocators holds all available linear solvers
var linsolAllocators = make(map[string]func(prms *inp.LinSolData) LinSol)

// NewLinSol returns a new linear solver
func NewLinSol(prms *inp.LinSolData) (LinSol, error) {
	if alloc, ok := linsolAllocators[prms.Name]; ok {
		return alloc(prms), nil
	}
	return nil, chk.Err("cannot find linear solver named %q", prms.Name)
}

// register adds a solver to the factory
func register(name string, alloc func(prms *inp.LinSolData) LinSol) {
	if _, ok := linsolAllocators[name]; ok {
		chk.Panic("linear solver %q is already registered", name)
	}
	linsolAllocators[name] = alloc
}

func init() {
	register("gmres", func(prms *inp.LinSolData) LinSol {
		o := &Gmres{Prms: *prms}
		if o.Prms.Tol <= 0 {
			o.Prms.Tol = 1e-10
		}
		if o.Prms.MaxIt <= 0 {
			o.Prms.MaxIt = 2000
		}
		if o.Prms.Restart <= 0 {
			o.Prms.Restart = 60
		}
		return o
	})
	register("umfpack", func(prms *inp.LinSolData) LinSol { return &Umfpack{} })
}

// checkSystem verifies the dimensions of the system
func checkSystem(A *BlockMatrix, b la.Vector) error {
	m, n := A.Shape()
	if m != n {
		return chk.Err("linear system requires a square matrix; got %d×%d", m, n)
	}
	if len(b) != m {
		return &BlockLayoutError{[]int{m}, []int{len(b)}}
	}
	return nil
}

// umfpack /////////////////////////////////////////////////////////////////////////////////////////

// Umfpack implements a direct solver with UMFPACK
type Umfpack struct{}

// Solve solves A·x = b
func (o *Umfpack) Solve(A *BlockMatrix, b la.Vector) (x la.Vector, err error) {
	if err = checkSystem(A, b); err != nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			x, err = nil, chk.Err("umfpack failed:\n%v", r)
		}
	}()
	s := la.NewSparseSolver("umfpack")
	defer s.Free()
	s.Init(A.Flat(), nil)
	s.Fact()
	x = la.NewVector(len(b))
	s.Solve(x, b, false)
	return
}

// gmres ///////////////////////////////////////////////////////////////////////////////////////////

// Gmres implements the restarted generalised minimal residual method
type Gmres struct {
	Prms  inp.LinSolData // tolerance, maximum number of iterations and restart length
	Nit   int            // number of iterations of the last solve
	Resid float64        // relative residual of the last solve
}

// Solve solves A·x = b starting from x = 0
func (o *Gmres) Solve(A *BlockMatrix, b la.Vector) (x la.Vector, err error) {
	if err = checkSystem(A, b); err != nil {
		return
	}
	n := len(b)
	x = la.NewVector(n)
	bnorm := b.Norm()
	o.Nit, o.Resid = 0, 0
	if bnorm == 0 {
		return
	}

	// workspace
	cc := A.ToCC()
	m := min(o.Prms.Restart, n)
	V := make([]la.Vector, m+1)
	for i := range V {
		V[i] = la.NewVector(n)
	}
	H := make([][]float64, m+1)
	for i := range H {
		H[i] = make([]float64, m)
	}
	cs, sn, g := make([]float64, m), make([]float64, m), make([]float64, m+1)
	r := la.NewVector(n)

	// restarts
	for o.Nit < o.Prms.MaxIt {

		// r = b - A·x
		la.SpMatVecMul(r, 1, cc, x)
		for i := range r {
			r[i] = b[i] - r[i]
		}
		beta := r.Norm()
		o.Resid = beta / bnorm
		if o.Resid < o.Prms.Tol {
			return
		}
		for i := range r {
			V[0][i] = r[i] / beta
		}
		for i := range g {
			g[i] = 0
		}
		g[0] = beta

		// Arnoldi
		k := 0
		for k < m && o.Nit < o.Prms.MaxIt {
			w := V[k+1]
			la.SpMatVecMul(w, 1, cc, V[k])
			for i := 0; i <= k; i++ {
				H[i][k] = la.VecDot(w, V[i])
				for j := range w {
					w[j] -= H[i][k] * V[i][j]
				}
			}
			H[k+1][k] = w.Norm()
			if H[k+1][k] > 0 {
				for j := range w {
					w[j] /= H[k+1][k]
				}
			}

			// Givens rotations
			for i := 0; i < k; i++ {
				t := cs[i]*H[i][k] + sn[i]*H[i+1][k]
				H[i+1][k] = -sn[i]*H[i][k] + cs[i]*H[i+1][k]
				H[i][k] = t
			}
			d := math.Hypot(H[k][k], H[k+1][k])
			if d == 0 {
				return nil, chk.Err("gmres: breakdown at iteration %d", o.Nit)
			}
			cs[k], sn[k] = H[k][k]/d, H[k+1][k]/d
			H[k][k], H[k+1][k] = d, 0
			g[k+1] = -sn[k] * g[k]
			g[k] = cs[k] * g[k]
			k++
			o.Nit++
			o.Resid = math.Abs(g[k]) / bnorm
			if o.Prms.Verbose {
				io.Pf("%6d%23.15e\n", o.Nit, o.Resid)
			}
			if o.Resid < o.Prms.Tol {
				break
			}
		}

		// x += V·y with H·y = g
		y := make([]float64, k)
		for i := k - 1; i >= 0; i-- {
			y[i] = g[i]
			for j := i + 1; j < k; j++ {
				y[i] -= H[i][j] * y[j]
			}
			y[i] /= H[i][i]
		}
		for i := 0; i < k; i++ {
			for j := range x {
				x[j] += y[i] * V[i][j]
			}
		}
		if o.Resid < o.Prms.Tol {
			return
		}
	}
	return x, chk.Err("gmres did not converge after %d iterations: relative residual = %g", o.Nit, o.Resid)
}

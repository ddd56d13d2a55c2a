// Copyright 2016 The Gofem Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package shp

import (
	"os"
	"path/filepath"

	"github.com/cpmech/gosl/chk"
	"gopkg.in/yaml.v3"
)

// Params holds the parameters of tensor-product B-spline spaces
type Params struct {
	Nspans []int // number of knot spans per axis
	Degree []int // degree per axis
	BcMin  []int // boundary flag @ min side per axis: 0 => homogeneous Dirichlet; 1 => natural
	BcMax  []int // boundary flag @ max side per axis
	Extra  int   // extra quadrature points per axis on top of degree+1
}

// Ndim returns the number of axes
func (o *Params) Ndim() int { return len(o.Nspans) }

// Validate checks the consistency of the parameters
func (o *Params) Validate() error {
	ndim := len(o.Nspans)
	if ndim < 1 || ndim > 3 {
		return chk.Err("B-spline parameters must have 1, 2 or 3 axes; got %d", ndim)
	}
	if len(o.Degree) != ndim || len(o.BcMin) != ndim || len(o.BcMax) != ndim {
		return chk.Err("B-spline parameters have inconsistent lengths: nspans=%v degree=%v bcmin=%v bcmax=%v", o.Nspans, o.Degree, o.BcMin, o.BcMax)
	}
	if o.Extra < 0 {
		return chk.Err("number of extra quadrature points must not be negative; got %d", o.Extra)
	}
	return nil
}

// Space holds a tensor-product B-spline space
//
//	local functions and quadrature points are numbered with the first axis running fastest
type Space struct {
	Name   string  // name of space
	Ndim   int     // number of axes
	Axes   []*Axis // univariate bases
	Ndofs  int     // number of equations
	Nelems int     // number of elements (tensor-product spans)
	Nlocal int     // number of local functions per element
	Nqp    int     // number of quadrature points per element
}

// NewSpace returns a new space
func NewSpace(name string, prms *Params) (o *Space, err error) {
	err = prms.Validate()
	if err != nil {
		return
	}
	o = &Space{Name: name, Ndim: prms.Ndim(), Ndofs: 1, Nelems: 1, Nlocal: 1, Nqp: 1}
	o.Axes = make([]*Axis, o.Ndim)
	for k := 0; k < o.Ndim; k++ {
		o.Axes[k], err = NewAxis(prms.Nspans[k], prms.Degree[k], prms.BcMin[k], prms.BcMax[k], prms.Degree[k]+1+prms.Extra)
		if err != nil {
			return nil, chk.Err("cannot allocate axis %d of space %q:\n%v", k, name, err)
		}
		o.Ndofs *= o.Axes[k].Ndofs
		o.Nelems *= o.Axes[k].Nspans
		o.Nlocal *= o.Axes[k].Degree + 1
		o.Nqp *= o.Axes[k].Nqp
	}
	return
}

// SpanIndex returns the multi-index of element e
func (o *Space) SpanIndex(e int, span []int) {
	for k, ax := range o.Axes {
		span[k] = e % ax.Nspans
		e /= ax.Nspans
	}
}

// LocalIndex returns the multi-index of the local function or point a with n[k] entries per axis
func LocalIndex(a int, n, idx []int) {
	for k := range n {
		idx[k] = a % n[k]
		a /= n[k]
	}
}

// Equation returns the equation number of the tensor basis function with 1D indices ibasis; -1 if eliminated
func (o *Space) Equation(ibasis []int) int {
	eq, stride := 0, 1
	for k, ax := range o.Axes {
		d := ax.Dofs[ibasis[k]]
		if d < 0 {
			return -1
		}
		eq += stride * d
		stride *= ax.Ndofs
	}
	return eq
}

// LocalEquations computes the equation numbers of the local functions of element span
func (o *Space) LocalEquations(span []int, eqs []int) {
	n := o.localCounts()
	idx := make([]int, o.Ndim)
	ibasis := make([]int, o.Ndim)
	for a := 0; a < o.Nlocal; a++ {
		LocalIndex(a, n, idx)
		for k := range idx {
			ibasis[k] = span[k] + idx[k]
		}
		eqs[a] = o.Equation(ibasis)
	}
}

// ElemBasis computes the local functions of element span at all quadrature points
//
//	D[q][a][0] = N_a(ξ_q) and D[q][a][k+1] = ∂N_a/∂ξ_k; u[q] = parametric coordinates; w[q] = weights
func (o *Space) ElemBasis(span []int, D [][][]float64, u [][]float64, w []float64) {
	nloc := o.localCounts()
	npts := o.qpCounts()
	iq := make([]int, o.Ndim)
	ia := make([]int, o.Ndim)
	for q := 0; q < o.Nqp; q++ {
		LocalIndex(q, npts, iq)
		w[q] = 1
		for k, ax := range o.Axes {
			u[q][k] = ax.Pts[span[k]][iq[k]]
			w[q] *= ax.Wts[span[k]][iq[k]]
		}
		for a := 0; a < o.Nlocal; a++ {
			LocalIndex(a, nloc, ia)
			o.tensor(D[q][a], func(k int) (float64, float64) {
				ax := o.Axes[k]
				return ax.N[span[k]][iq[k]][ia[k]], ax.DN[span[k]][iq[k]][ia[k]]
			})
		}
	}
}

// FaceBasis computes the local functions of a face element at the face quadrature points.
//
//	side = 2*axis + (0 for min, 1 for max); span[axis] is set to the first or last span;
//	the fixed coordinate gets the weight 1
func (o *Space) FaceBasis(side int, span []int, D [][][]float64, u [][]float64, w []float64) {
	fixed, end := side/2, side%2
	span[fixed] = 0
	t := 0.0
	if end == 1 {
		span[fixed] = o.Axes[fixed].Nspans - 1
		t = 1
	}
	nloc := o.localCounts()
	npts := o.qpCounts()
	npts[fixed] = 1
	nfqp := o.FaceNqp(side)
	iq := make([]int, o.Ndim)
	ia := make([]int, o.Ndim)
	for q := 0; q < nfqp; q++ {
		LocalIndex(q, npts, iq)
		w[q] = 1
		for k, ax := range o.Axes {
			if k == fixed {
				u[q][k] = t
				continue
			}
			u[q][k] = ax.Pts[span[k]][iq[k]]
			w[q] *= ax.Wts[span[k]][iq[k]]
		}
		for a := 0; a < o.Nlocal; a++ {
			LocalIndex(a, nloc, ia)
			o.tensor(D[q][a], func(k int) (float64, float64) {
				ax := o.Axes[k]
				if k == fixed {
					return ax.EndN[end][ia[k]], ax.EndD[end][ia[k]]
				}
				return ax.N[span[k]][iq[k]][ia[k]], ax.DN[span[k]][iq[k]][ia[k]]
			})
		}
	}
}

// FaceNqp returns the number of quadrature points of face elements on side
func (o *Space) FaceNqp(side int) int {
	return o.Nqp / o.Axes[side/2].Nqp
}

// FaceNelems returns the number of face elements on side
func (o *Space) FaceNelems(side int) int {
	return o.Nelems / o.Axes[side/2].Nspans
}

// FaceSpan returns the multi-index of the face element f on side; the fixed axis is left at 0
func (o *Space) FaceSpan(side, f int, span []int) {
	fixed := side / 2
	for k, ax := range o.Axes {
		if k == fixed {
			span[k] = 0
			continue
		}
		span[k] = f % ax.Nspans
		f /= ax.Nspans
	}
}

// PointBasis computes the local functions @ parametric point u and sets span to the element holding u
func (o *Space) PointBasis(u []float64, span []int, D [][]float64) {
	N := make([][]float64, o.Ndim)
	dN := make([][]float64, o.Ndim)
	for k, ax := range o.Axes {
		N[k] = make([]float64, ax.Degree+1)
		dN[k] = make([]float64, ax.Degree+1)
		span[k] = ax.Eval(u[k], N[k], dN[k])
	}
	nloc := o.localCounts()
	ia := make([]int, o.Ndim)
	for a := 0; a < o.Nlocal; a++ {
		LocalIndex(a, nloc, ia)
		o.tensor(D[a], func(k int) (float64, float64) { return N[k][ia[k]], dN[k][ia[k]] })
	}
}

// AllocBasis allocates D[npts][Nlocal][Ndim+1]
func (o *Space) AllocBasis(npts int) (D [][][]float64) {
	D = make([][][]float64, npts)
	for q := range D {
		D[q] = make([][]float64, o.Nlocal)
		for a := range D[q] {
			D[q][a] = make([]float64, o.Ndim+1)
		}
	}
	return
}

// Check verifies the basis tables of all axes
func (o *Space) Check(tol float64) error {
	for k, ax := range o.Axes {
		if err := ax.Check(tol); err != nil {
			return chk.Err("space %q, axis %d:\n%v", o.Name, k, err)
		}
	}
	return nil
}

// tensor computes the product of univariate values and its parametric gradient
func (o *Space) tensor(D []float64, fcn func(k int) (N, dN float64)) {
	var n, dn [3]float64
	for k := 0; k < o.Ndim; k++ {
		n[k], dn[k] = fcn(k)
	}
	D[0] = 1
	for k := 0; k < o.Ndim; k++ {
		D[0] *= n[k]
		D[k+1] = dn[k]
		for j := 0; j < o.Ndim; j++ {
			if j != k {
				D[k+1] *= n[j]
			}
		}
	}
}

func (o *Space) localCounts() []int {
	n := make([]int, o.Ndim)
	for k, ax := range o.Axes {
		n[k] = ax.Degree + 1
	}
	return n
}

func (o *Space) qpCounts() []int {
	n := make([]int, o.Ndim)
	for k, ax := range o.Axes {
		n[k] = ax.Nqp
	}
	return n
}

// artifacts ///////////////////////////////////////////////////////////////////////////////////////

// AxisData holds the description of an axis written to the working directory
type AxisData struct {
	Nspans int       `yaml:"nspans"`
	Degree int       `yaml:"degree"`
	BcMin  int       `yaml:"bcmin"`
	BcMax  int       `yaml:"bcmax"`
	Nqp    int       `yaml:"nqp"`
	Knots  []float64 `yaml:"knots,flow"`
	Dofs   []int     `yaml:"dofs,flow"`
}

// SpaceData holds the description of a space written to the working directory
type SpaceData struct {
	Name  string     `yaml:"name"`
	Ndim  int        `yaml:"ndim"`
	Ndofs int        `yaml:"ndofs"`
	Axes  []AxisData `yaml:"axes"`
}

// Data returns the description of the space
func (o *Space) Data() (d SpaceData) {
	d = SpaceData{Name: o.Name, Ndim: o.Ndim, Ndofs: o.Ndofs}
	for _, ax := range o.Axes {
		d.Axes = append(d.Axes, AxisData{ax.Nspans, ax.Degree, ax.BcMin, ax.BcMax, ax.Nqp, ax.Knots, ax.Dofs})
	}
	return
}

// Write writes the description of the space to <dirname>/<name>.yaml, overwriting previous files
func (o *Space) Write(dirname string) (path string, err error) {
	b, err := yaml.Marshal(o.Data())
	if err != nil {
		return "", chk.Err("cannot encode space %q:\n%v", o.Name, err)
	}
	path = filepath.Join(dirname, o.Name+".yaml")
	err = os.WriteFile(path, b, 0644)
	if err != nil {
		return "", chk.Err("cannot write space %q:\n%v", o.Name, err)
	}
	return
}

// ReadSpaceData reads the description of a space
func ReadSpaceData(path string) (d SpaceData, err error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return d, chk.Err("cannot read space file:\n%v", err)
	}
	err = yaml.Unmarshal(b, &d)
	if err != nil {
		err = chk.Err("cannot decode space file %q:\n%v", path, err)
	}
	return
}

// Copyright 2016 The Gofem Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// package out implements the output of fields and convergence studies
package out

import (
	"bytes"
	"os"

	"github.com/cpmech/gosl/chk"
	"github.com/cpmech/gosl/io"
	"github.com/ratnania/vale/geo"
)

// Sampler evaluates a scalar field @ parametric point u
type Sampler func(u []float64) (float64, error)

// WriteVTK writes npts samples per axis of a scalar field on the image of the mapping as a
// legacy ASCII VTK structured grid
func WriteVTK(path, name string, npts int, mapping geo.Mapping, sampler Sampler) (err error) {

	// check
	ndim := mapping.Ndim()
	if npts < 2 {
		return chk.Err("vtk: at least 2 points per axis are required; got %d", npts)
	}
	dims := []int{1, 1, 1}
	for k := 0; k < ndim; k++ {
		dims[k] = npts
	}

	// points and values
	var bp, bv bytes.Buffer
	u := make([]float64, ndim)
	x := make([]float64, ndim)
	n := dims[0] * dims[1] * dims[2]
	for p := 0; p < n; p++ {
		idx := []int{p % dims[0], (p / dims[0]) % dims[1], p / (dims[0] * dims[1])}
		for k := 0; k < ndim; k++ {
			u[k] = float64(idx[k]) / float64(npts-1)
		}
		mapping.Eval(u, x, nil)
		var c [3]float64
		copy(c[:], x)
		io.Ff(&bp, "%23.15e %23.15e %23.15e\n", c[0], c[1], c[2])
		v, err := sampler(u)
		if err != nil {
			return chk.Err("vtk: cannot sample %q @ %v:\n%v", name, u, err)
		}
		io.Ff(&bv, "%23.15e\n", v)
	}

	// file
	var b bytes.Buffer
	io.Ff(&b, "# vtk DataFile Version 3.0\n")
	io.Ff(&b, "%s\n", name)
	io.Ff(&b, "ASCII\n")
	io.Ff(&b, "DATASET STRUCTURED_GRID\n")
	io.Ff(&b, "DIMENSIONS %d %d %d\n", dims[0], dims[1], dims[2])
	io.Ff(&b, "POINTS %d double\n", n)
	b.Write(bp.Bytes())
	io.Ff(&b, "POINT_DATA %d\n", n)
	io.Ff(&b, "SCALARS %s double 1\n", name)
	io.Ff(&b, "LOOKUP_TABLE default\n")
	b.Write(bv.Bytes())
	err = os.WriteFile(path, b.Bytes(), 0644)
	if err != nil {
		return chk.Err("vtk: cannot write file:\n%v", err)
	}
	return
}

// Copyright 2016 The Gofem Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// package fem implements the discrete model of Vale programs and the assembly of block matrices
// and vectors with tensor-product B-splines
package fem

import (
	"os"
	"runtime"

	"github.com/cpmech/gosl/chk"
	"github.com/cpmech/gosl/io"
	"github.com/ratnania/vale/gen"
	"github.com/ratnania/vale/shp"
)

// Context holds the discretization shared by all spaces of a model and the working directory
// where discretization artifacts are written
type Context struct {
	Dir      string      // working directory
	Prms     *shp.Params // B-spline parameters
	Nworkers int         // number of assembly workers; 0 => number of CPUs
	Verbose  bool        // show messages
	Cache    *gen.Cache  // compiled kernels shared by all models using this context
}

// NewContext returns a new context. The working directory is created if it does not exist
func NewContext(dirname string, prms *shp.Params) (o *Context, err error) {
	if prms == nil {
		return nil, chk.Err("context requires B-spline parameters")
	}
	err = prms.Validate()
	if err != nil {
		return
	}
	if dirname == "" {
		return nil, chk.Err("context requires a working directory")
	}
	err = os.MkdirAll(dirname, 0755)
	if err != nil {
		return nil, chk.Err("cannot create working directory %q:\n%v", dirname, err)
	}
	o = &Context{Dir: dirname, Prms: prms, Cache: gen.NewCache()}
	return
}

// Ndim returns the dimension of the discretization
func (o *Context) Ndim() int { return o.Prms.Ndim() }

// Workers returns the number of assembly workers
func (o *Context) Workers() int {
	if o.Nworkers > 0 {
		return o.Nworkers
	}
	return runtime.NumCPU()
}

// NewSpace builds a B-spline space and writes its description to the working directory
func (o *Context) NewSpace(name string) (sp *shp.Space, err error) {
	sp, err = shp.NewSpace(name, o.Prms)
	if err != nil {
		return
	}
	path, err := sp.Write(o.Dir)
	if err != nil {
		return nil, err
	}
	if o.Verbose {
		io.Pf(">> Space %q: number of equations = %d (file %s)\n", name, sp.Ndofs, path)
	}
	return
}

// Copyright 2016 The Gofem Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package fem

import (
	"path/filepath"
	"time"

	"github.com/cpmech/gosl/chk"
	"github.com/cpmech/gosl/io"
	"github.com/cpmech/gosl/la"
	"github.com/ratnania/vale/geo"
	"github.com/ratnania/vale/inp"
	"github.com/ratnania/vale/shp"
)

// Main holds all data for running the pipeline described by a configuration file:
// build the model, assemble, solve, store solution blocks in fields and post-process
type Main struct {
	Cfg     *inp.Config        // configuration
	Ctx     *Context           // discretization
	Mapping geo.Mapping        // geometry
	Model   *Model             // discrete model
	LinSol  LinSol             // linear solver
	Errors  map[string]float64 // L2 errors of fields with reference solutions
	ShowMsg bool               // show messages
}

// NewMain returns a new Main structure
//
//	Input:
//	 cfg     -- configuration
//	 verbose -- show messages
func NewMain(cfg *inp.Config, verbose bool) (o *Main, err error) {

	// new Main object
	o = &Main{Cfg: cfg, Errors: make(map[string]float64), ShowMsg: verbose}
	if o.ShowMsg {
		io.Pf("> Configuration file read\n")
	}

	// discretization
	d := cfg.Discrete
	prms := &shp.Params{Nspans: d.Nspans, Degree: d.Degree, BcMin: d.BcMin, BcMax: d.BcMax, Extra: d.Extra}
	workdir := cfg.Workdir
	if !filepath.IsAbs(workdir) {
		workdir = filepath.Join(cfg.Dir, workdir)
	}
	o.Ctx, err = NewContext(workdir, prms)
	if err != nil {
		return nil, err
	}
	o.Ctx.Nworkers = cfg.Nworkers
	o.Ctx.Verbose = verbose

	// geometry
	o.Mapping, err = NewMapping(&cfg.Mapping)
	if err != nil {
		return nil, err
	}

	// model
	o.Model, err = ConstructFile(cfg.Source, o.Ctx, o.Mapping)
	if err != nil {
		return nil, err
	}
	for name, expr := range cfg.Functions {
		f, err := o.Model.Function(name)
		if err != nil {
			return nil, err
		}
		if err = f.Set(expr); err != nil {
			return nil, err
		}
	}
	for name, v := range cfg.Constants {
		c, err := o.Model.Constant(name)
		if err != nil {
			return nil, err
		}
		c.Set(v)
	}

	// linear solver
	o.LinSol, err = NewLinSol(&cfg.LinSol)
	if err != nil {
		return nil, err
	}
	if o.ShowMsg {
		io.Pf("> Model built\n")
	}
	return
}

// NewMapping returns the mapping described by the configuration
func NewMapping(d *inp.MappingData) (geo.Mapping, error) {
	switch d.Kind {
	case "box":
		return geo.NewBox(d.Min, d.Max)
	}
	return nil, chk.Err("cannot find mapping kind %q", d.Kind)
}

// Run assembles and solves the problem, then distributes the solution to the fields
func (o *Main) Run() (err error) {

	// exit commands
	cputime := time.Now()
	defer func() { err = o.onexit(cputime, err) }()

	// forms
	a, err := o.Model.Form(o.Cfg.Problem.Matrix)
	if err != nil {
		return
	}
	l, err := o.Model.Form(o.Cfg.Problem.Rhs)
	if err != nil {
		return
	}
	if !a.Bilinear() || l.Bilinear() {
		return chk.Err("problem requires a bilinear form and a linear form; got %q (%s) and %q (%s)", a.Name, arity(a), l.Name, arity(l))
	}

	// assemble
	if o.ShowMsg {
		io.Pf("> Assembling\n")
	}
	if err = a.Assemble(); err != nil {
		return
	}
	if err = l.Assemble(); err != nil {
		return
	}

	// solve
	if o.ShowMsg {
		io.Pf("> Solving linear system with %d equations\n", l.Vector.Layout.Size())
	}
	x, err := o.LinSol.Solve(a.Matrix, l.Vector.Raw())
	if err != nil {
		return
	}
	sol := NewBlockVector(a.ColLayout())
	if err = sol.Set(x); err != nil {
		return
	}

	// fields
	for _, fd := range o.Cfg.Fields {
		if err = o.store(sol, fd); err != nil {
			return
		}
	}
	return
}

// store copies one solution block to a field and post-processes it
func (o *Main) store(sol *BlockVector, fd inp.FieldData) (err error) {
	f, err := o.Model.Field(fd.Name)
	if err != nil {
		return
	}
	if fd.Block >= sol.Layout.Nblocks() {
		return chk.Err("field %q: solution has %d blocks; block %d is not available", fd.Name, sol.Layout.Nblocks(), fd.Block)
	}
	if err = f.Set(sol.Block(fd.Block)); err != nil {
		return
	}
	if fd.Reference != "" {
		ref, err := inp.ParseExpr(fd.Reference)
		if err != nil {
			return err
		}
		o.Errors[fd.Name], err = f.L2Error(o.Mapping, ref)
		if err != nil {
			return err
		}
		if o.ShowMsg {
			io.Pf(">> Field %q: L2 error = %.6e\n", fd.Name, o.Errors[fd.Name])
		}
	}
	if fd.Vtk != "" {
		path := fd.Vtk
		if !filepath.IsAbs(path) {
			path = filepath.Join(o.Ctx.Dir, path)
		}
		if err = f.ToVTK(path, o.Mapping, fd.Npts); err != nil {
			return
		}
		if o.ShowMsg {
			io.Pf(">> Field %q written to %s\n", fd.Name, path)
		}
	}
	return
}

// Converge runs the pipeline for each refinement level in cfg.Refine (number of spans along
// all axes) and returns the L2 errors of the fields per level
func Converge(cfg *inp.Config, verbose bool) (nspans []int, errors map[string][]float64, err error) {
	if len(cfg.Refine) == 0 {
		return nil, nil, chk.Err("convergence study requires refinement levels")
	}
	errors = make(map[string][]float64)
	for _, n := range cfg.Refine {
		c := *cfg
		c.Discrete.Nspans = make([]int, len(cfg.Discrete.Nspans))
		for i := range c.Discrete.Nspans {
			c.Discrete.Nspans[i] = n
		}
		c.Workdir = filepath.Join(cfg.Workdir, io.Sf("n%d", n))
		if verbose {
			io.Pforan("> Refinement level with %d spans per axis\n", n)
		}
		var o *Main
		o, err = NewMain(&c, verbose)
		if err != nil {
			return
		}
		if err = o.Run(); err != nil {
			return
		}
		nspans = append(nspans, n)
		for name, e := range o.Errors {
			errors[name] = append(errors[name], e)
		}
	}
	return
}

// Residual returns ‖A·x - b‖ / ‖b‖ for the solution stored in the fields of the configuration;
// ‖A·x - b‖ if b is zero
func (o *Main) Residual() (res float64, err error) {
	a, err := o.Model.Form(o.Cfg.Problem.Matrix)
	if err != nil {
		return
	}
	if a.Matrix == nil {
		return 0, chk.Err("matrix of %q is not available: the form is linear or has not been assembled", a.Name)
	}
	l, err := o.Model.Form(o.Cfg.Problem.Rhs)
	if err != nil {
		return
	}
	if l.Vector == nil {
		return 0, chk.Err("vector of %q is not available: the form is bilinear or has not been assembled", l.Name)
	}
	x := NewBlockVector(a.ColLayout())
	blocks := x.Blocks()
	for _, fd := range o.Cfg.Fields {
		f, err := o.Model.Field(fd.Name)
		if err != nil {
			return 0, err
		}
		if fd.Block < len(blocks) {
			copy(blocks[fd.Block], f.Coefs)
		}
	}
	if err = x.SetBlocks(blocks); err != nil {
		return
	}
	b := l.Vector.Raw()
	r := la.NewVector(len(b))
	a.Matrix.MatVec(r, x.Raw())
	for i := range r {
		r[i] -= b[i]
	}
	bnorm := b.Norm()
	if bnorm == 0 {
		return r.Norm(), nil
	}
	return r.Norm() / bnorm, nil
}

// auxiliary //////////////////////////////////////////////////////////////////////////////////////

// onexit prints final message with cpu time
func (o *Main) onexit(cputime time.Time, prevErr error) (err error) {
	if o.ShowMsg {
		if prevErr == nil {
			io.PfGreen("> Success\n")
			io.Pf("> CPU time = %v\n", time.Since(cputime))
		} else {
			io.PfRed("> Failed\n")
		}
	}
	return prevErr
}

func arity(f *Form) string {
	if f.Bilinear() {
		return "bilinear"
	}
	return "linear"
}

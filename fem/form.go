// Copyright 2016 The Gofem Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package fem

import (
	"github.com/cpmech/gosl/io"
	"github.com/ratnania/vale/gen"
	"github.com/ratnania/vale/inp"
	"github.com/ratnania/vale/low"
)

// Form holds a bilinear or linear form of a model
type Form struct {
	Name   string       // name of form
	Def    *inp.FormDef // parsed definition
	Test   *Space       // space of test functions
	Trial  *Space       // space of trial functions; nil for linear forms
	Kernel *low.Kernel  // current lowered kernel

	Matrix *BlockMatrix // assembled matrix of bilinear forms
	Vector *BlockVector // assembled vector of linear forms

	model *Model
	vers  map[string]int // versions of functions and constants used to lower Kernel
	asm   *Assembler
}

func (o *Form) DeclName() string { return o.Name }
func (o *Form) Kind() string     { return "form" }

// newForm binds the spaces of a form definition
func newForm(d *inp.FormDef, model *Model) (o *Form, err error) {
	o = &Form{Name: d.Name, Def: d, model: model}
	o.Test, err = model.Space(d.Test.Space)
	if err != nil {
		return nil, err
	}
	if d.Trial != nil {
		o.Trial, err = model.Space(d.Trial.Space)
		if err != nil {
			return nil, err
		}
	}
	return
}

// Bilinear tells whether the form has a trial argument
func (o *Form) Bilinear() bool { return o.Trial != nil }

// Ntest returns the number of test blocks
func (o *Form) Ntest() int { return len(o.Def.Test.Names) }

// Ntrial returns the number of trial blocks; 0 for linear forms
func (o *Form) Ntrial() int {
	if o.Def.Trial == nil {
		return 0
	}
	return len(o.Def.Trial.Names)
}

// RowLayout returns the block layout of test functions
func (o *Form) RowLayout() *Layout {
	sizes := make([]int, o.Ntest())
	for i := range sizes {
		sizes[i] = o.Test.Ndofs()
	}
	return NewLayout(sizes...)
}

// ColLayout returns the block layout of trial functions; nil for linear forms
func (o *Form) ColLayout() *Layout {
	if o.Trial == nil {
		return nil
	}
	sizes := make([]int, o.Ntrial())
	for i := range sizes {
		sizes[i] = o.Trial.Ndofs()
	}
	return NewLayout(sizes...)
}

// Assembler returns the assembler of this form
func (o *Form) Assembler() *Assembler {
	if o.asm == nil {
		o.asm = newAssembler(o)
	}
	return o.asm
}

// Assemble assembles the matrix or vector of this form
func (o *Form) Assemble() error {
	return o.Assembler().Assemble()
}

// lower lowers the definition with the current functions and constants
func (o *Form) lower() (err error) {
	k, err := low.Lower(o.Def, o.model)
	if err != nil {
		return
	}
	o.Kernel = k
	o.vers = make(map[string]int)
	for _, dep := range k.Deps {
		o.vers[dep] = o.model.version(dep)
	}
	if o.model.Ctx.Verbose {
		io.Pf(">> %v\n", k)
	}
	return
}

// stale tells whether a function or constant used by the kernel changed
func (o *Form) stale() bool {
	if o.Kernel == nil {
		return true
	}
	for dep, v := range o.vers {
		if o.model.version(dep) != v {
			return true
		}
	}
	return false
}

// evaluator returns the compiled kernel, lowering again if coefficients changed
func (o *Form) evaluator() (*gen.Evaluator, error) {
	if o.stale() {
		if err := o.lower(); err != nil {
			return nil, err
		}
	}
	return o.model.Ctx.Cache.Get(o.Kernel)
}

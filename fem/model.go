// Copyright 2016 The Gofem Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package fem

import (
	"github.com/cpmech/gosl/chk"
	"github.com/cpmech/gosl/io"
	"github.com/cpmech/gosl/la"
	"github.com/ratnania/vale/geo"
	"github.com/ratnania/vale/inp"
	"github.com/ratnania/vale/low"
	"github.com/ratnania/vale/sym"
)

// Model holds all declarations of a program bound to a discretization and a mapping
type Model struct {
	Prog    *inp.Program // parsed program
	Ctx     *Context     // discretization and working directory
	Mapping geo.Mapping  // parametric to physical domain
	Decls   []Decl       // all declarations in source order
	decls   map[string]Decl
	ast     map[string]inp.Decl
}

// Construct parses source and builds the model: one B-spline space per space declaration
// (written to the working directory) and one form per form definition. All forms are lowered
// so that unbound symbols and inconsistent arities are reported here
func Construct(source string, ctx *Context, mapping geo.Mapping) (o *Model, err error) {
	prog, err := inp.Parse("<source>", source)
	if err != nil {
		return
	}
	return NewModel(prog, ctx, mapping)
}

// ConstructFile reads a source file and builds the model
func ConstructFile(path string, ctx *Context, mapping geo.Mapping) (o *Model, err error) {
	prog, err := inp.ReadFile(path)
	if err != nil {
		return
	}
	return NewModel(prog, ctx, mapping)
}

// NewModel builds the model of a parsed program
func NewModel(prog *inp.Program, ctx *Context, mapping geo.Mapping) (o *Model, err error) {

	// check
	if ctx == nil || mapping == nil {
		return nil, chk.Err("model requires a context and a mapping")
	}
	if mapping.Ndim() != ctx.Ndim() {
		return nil, &low.DimensionMismatchError{Msg: io.Sf("mapping is %dD but the discretization is %dD", mapping.Ndim(), ctx.Ndim())}
	}

	// new model
	o = &Model{
		Prog:    prog,
		Ctx:     ctx,
		Mapping: mapping,
		decls:   make(map[string]Decl),
		ast:     make(map[string]inp.Decl),
	}
	if ctx.Verbose {
		io.Pf("> Building model of %s\n", prog.File)
	}

	// declarations
	for _, d := range prog.Decls {
		name := d.DeclName()
		if prev, found := o.ast[name]; found {
			p0, p1 := prev.DeclPos(), d.DeclPos()
			return nil, chk.Err("%s:%d:%d: %q is already declared at %d:%d", prog.File, p1.Line, p1.Col, name, p0.Line, p0.Col)
		}
		o.ast[name] = d
		var decl Decl
		decl, err = o.declare(d)
		if err != nil {
			return nil, err
		}
		o.decls[name] = decl
		o.Decls = append(o.Decls, decl)
	}

	// lower all forms
	for _, d := range o.Decls {
		if f, ok := d.(*Form); ok {
			err = f.lower()
			if err != nil {
				return nil, err
			}
		}
	}
	if ctx.Verbose {
		io.Pf(">> Number of declarations = %d\n", len(o.Decls))
	}
	return
}

// declare converts a parsed declaration; referenced names must have been declared before
func (o *Model) declare(d inp.Decl) (Decl, error) {
	switch d := d.(type) {

	case *inp.DomainDecl:
		if d.Dim != o.Ctx.Ndim() {
			return nil, &low.DimensionMismatchError{Msg: io.Sf("domain %q is %dD but the discretization is %dD", d.Name, d.Dim, o.Ctx.Ndim())}
		}
		return &Domain{Name: d.Name, Dim: d.Dim, Type: d.Kind}, nil

	case *inp.BoundaryDecl:
		dom, err := o.domain(d.Domain)
		if err != nil {
			return nil, err
		}
		return newBoundary(d, dom)

	case *inp.SpaceDecl:
		dom, err := o.domain(d.Domain)
		if err != nil {
			return nil, err
		}
		sp, err := o.Ctx.NewSpace(d.Name)
		if err != nil {
			return nil, err
		}
		return &Space{Name: d.Name, Domain: dom, Type: d.Kind, Shp: sp}, nil

	case *inp.FieldDecl:
		sp, err := o.Space(d.Space)
		if err != nil {
			return nil, err
		}
		return &Field{Name: d.Name, Space: sp, Coefs: la.NewVector(sp.Ndofs())}, nil

	case *inp.FunctionDecl:
		return &Function{Name: d.Name, Args: d.Args, model: o}, nil

	case *inp.RealDecl:
		return &Constant{Name: d.Name, value: d.Value, isset: d.HasValue}, nil

	case *inp.FormDef:
		return newForm(d, o)
	}
	return nil, chk.Err("declaration %q of type %T is not available", d.DeclName(), d)
}

// lookups /////////////////////////////////////////////////////////////////////////////////////////

// Get returns the declaration with the given name
func (o *Model) Get(name string) (Decl, error) {
	d, ok := o.decls[name]
	if !ok {
		return nil, &UnknownDeclarationError{Name: name}
	}
	return d, nil
}

// Space returns a space
func (o *Model) Space(name string) (*Space, error) {
	d, err := o.Get(name)
	if err != nil {
		return nil, err
	}
	if s, ok := d.(*Space); ok {
		return s, nil
	}
	return nil, &DeclKindError{name, "space", d.Kind()}
}

// Field returns a field
func (o *Model) Field(name string) (*Field, error) {
	d, err := o.Get(name)
	if err != nil {
		return nil, err
	}
	if f, ok := d.(*Field); ok {
		return f, nil
	}
	return nil, &DeclKindError{name, "field", d.Kind()}
}

// Function returns a coefficient function
func (o *Model) Function(name string) (*Function, error) {
	d, err := o.Get(name)
	if err != nil {
		return nil, err
	}
	if f, ok := d.(*Function); ok {
		return f, nil
	}
	return nil, &DeclKindError{name, "function", d.Kind()}
}

// Constant returns a constant
func (o *Model) Constant(name string) (*Constant, error) {
	d, err := o.Get(name)
	if err != nil {
		return nil, err
	}
	if c, ok := d.(*Constant); ok {
		return c, nil
	}
	return nil, &DeclKindError{name, "constant", d.Kind()}
}

// Form returns a form
func (o *Model) Form(name string) (*Form, error) {
	d, err := o.Get(name)
	if err != nil {
		return nil, err
	}
	if f, ok := d.(*Form); ok {
		return f, nil
	}
	return nil, &DeclKindError{name, "form", d.Kind()}
}

func (o *Model) domain(name string) (*Domain, error) {
	d, err := o.Get(name)
	if err != nil {
		return nil, err
	}
	if dom, ok := d.(*Domain); ok {
		return dom, nil
	}
	return nil, &DeclKindError{name, "domain", d.Kind()}
}

// low.Scope ///////////////////////////////////////////////////////////////////////////////////////

// Decl returns the parsed declaration or nil
func (o *Model) Decl(name string) inp.Decl {
	return o.ast[name]
}

// Expression returns the current expression of a function or nil
func (o *Model) Expression(function string) sym.Expr {
	if f, ok := o.decls[function].(*Function); ok {
		return f.expr
	}
	return nil
}

// Value returns the current value of a constant
func (o *Model) Value(constant string) (float64, bool) {
	if c, ok := o.decls[constant].(*Constant); ok {
		return c.Value()
	}
	return 0, false
}

// version returns the version of a function or constant
func (o *Model) version(name string) int {
	switch d := o.decls[name].(type) {
	case *Function:
		return d.version
	case *Constant:
		return d.version
	}
	return 0
}

// Copyright 2016 The Gofem Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// package inp implements the input readers: the Vale form language and run configuration files
package inp

import (
	"github.com/ratnania/vale/sym"
)

// Pos holds a location in the source text (1-based)
type Pos struct {
	Line int
	Col  int
}

// Program holds all declarations of a source file, in source order
type Program struct {
	File  string // source name
	Decls []Decl // declarations
}

// Decl is a top-level declaration
type Decl interface {
	DeclName() string // declared name
	DeclPos() Pos     // location of declaration
}

// DomainDecl declares the parametric domain
//
//	Domain(dim=3, kind='structured') :: Omega
type DomainDecl struct {
	Pos  Pos
	Name string
	Dim  int    // space dimension: 1, 2 or 3
	Kind string // e.g. "structured"
}

// BoundaryDecl declares a subset of the boundary of a domain
//
//	Boundary(domain=Omega, sides='x-,y+') :: Gamma
type BoundaryDecl struct {
	Pos    Pos
	Name   string
	Domain string
	Sides  []string // "x-", "x+", "y-", "y+", "z-", "z+"
}

// SpaceDecl declares a function space
//
//	Space(domain=Omega, kind='h1') :: V
type SpaceDecl struct {
	Pos    Pos
	Name   string
	Domain string
	Kind   string
}

// FieldDecl declares a discrete field living in a space
//
//	Field(V) :: phi
type FieldDecl struct {
	Pos   Pos
	Name  string
	Space string
}

// FunctionDecl declares a coefficient function whose expression is set later
//
//	Function(x,y,z) :: f
type FunctionDecl struct {
	Pos  Pos
	Name string
	Args []string // coordinate names
}

// RealDecl declares a scalar constant
//
//	Real :: alpha   or   Real(2.5) :: beta
type RealDecl struct {
	Pos      Pos
	Name     string
	Value    float64
	HasValue bool
}

// FormDef defines a linear (Trial == nil) or bilinear form
//
//	a((v1,v2)::V, (u1,u2)::V) := < grad(v1) * grad(u1) >_Omega + a2(v2,u2)
type FormDef struct {
	Pos   Pos
	Name  string
	Test  Arg
	Trial *Arg
	Body  []FormTerm
}

// Arg holds the test or trial argument of a form; Names has more than one entry for tuples
type Arg struct {
	Names []string
	Space string
	Tuple bool
}

// FormTerm holds one term of a form body: Coef × (Integral or Call)
type FormTerm struct {
	Pos      Pos
	Coef     sym.Expr  // scalar factor; numbers or constants
	Integral *Integral // < expr >_Domain
	Call     *FormCall // another form applied to arguments
}

// Integral holds an integrand and the domain (or boundary) of integration
type Integral struct {
	Expr   sym.Expr
	Domain string
}

// FormCall holds a call to another form. Each argument is a name or a tuple of names
type FormCall struct {
	Name string
	Args [][]string
}

// DeclName returns the declared name
func (o *DomainDecl) DeclName() string   { return o.Name }
func (o *BoundaryDecl) DeclName() string { return o.Name }
func (o *SpaceDecl) DeclName() string    { return o.Name }
func (o *FieldDecl) DeclName() string    { return o.Name }
func (o *FunctionDecl) DeclName() string { return o.Name }
func (o *RealDecl) DeclName() string     { return o.Name }
func (o *FormDef) DeclName() string      { return o.Name }

// DeclPos returns the location of the declaration
func (o *DomainDecl) DeclPos() Pos   { return o.Pos }
func (o *BoundaryDecl) DeclPos() Pos { return o.Pos }
func (o *SpaceDecl) DeclPos() Pos    { return o.Pos }
func (o *FieldDecl) DeclPos() Pos    { return o.Pos }
func (o *FunctionDecl) DeclPos() Pos { return o.Pos }
func (o *RealDecl) DeclPos() Pos     { return o.Pos }
func (o *FormDef) DeclPos() Pos      { return o.Pos }

// Bilinear tells whether the form has a trial argument
func (o *FormDef) Bilinear() bool { return o.Trial != nil }

// Find returns the declaration with the given name or nil
func (o *Program) Find(name string) Decl {
	for _, d := range o.Decls {
		if d.DeclName() == name {
			return d
		}
	}
	return nil
}

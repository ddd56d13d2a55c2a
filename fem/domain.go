// Copyright 2016 The Gofem Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package fem

import (
	"github.com/cpmech/gosl/chk"
	"github.com/cpmech/gosl/io"
	"github.com/ratnania/vale/inp"
	"github.com/ratnania/vale/shp"
)

// Decl is a declaration of a model
type Decl interface {
	DeclName() string // name of declaration
	Kind() string     // "domain", "boundary", "space", "field", "function", "constant" or "form"
}

// Domain holds the parametric domain [0,1]^Dim
type Domain struct {
	Name string // name of domain
	Dim  int    // space dimension
	Type string // e.g. "structured"
}

// Boundary holds a subset of the faces of a domain
type Boundary struct {
	Name   string  // name of boundary
	Domain *Domain // domain the faces belong to
	Sides  []int   // faces: 2*axis + (0 for min, 1 for max)
}

// Space holds a function space bound to the B-spline space built by the context
type Space struct {
	Name   string     // name of space
	Domain *Domain    // domain of definition
	Type   string     // e.g. "h1"
	Shp    *shp.Space // B-spline basis and numbering
}

// Ndofs returns the number of equations of the space
func (o *Space) Ndofs() int { return o.Shp.Ndofs }

func (o *Domain) DeclName() string   { return o.Name }
func (o *Boundary) DeclName() string { return o.Name }
func (o *Space) DeclName() string    { return o.Name }

func (o *Domain) Kind() string   { return "domain" }
func (o *Boundary) Kind() string { return "boundary" }
func (o *Space) Kind() string    { return "space" }

// errors //////////////////////////////////////////////////////////////////////////////////////////

// UnknownDeclarationError reports a lookup (or a reference) of a name that was never declared
type UnknownDeclarationError struct {
	Name string
}

func (o *UnknownDeclarationError) Error() string {
	return io.Sf("unknown declaration %q", o.Name)
}

// DeclKindError reports a lookup of a declaration with the wrong kind
type DeclKindError struct {
	Name string // name of declaration
	Want string // requested kind
	Have string // declared kind
}

func (o *DeclKindError) Error() string {
	return io.Sf("declaration %q is a %s, not a %s", o.Name, o.Have, o.Want)
}

// auxiliary ///////////////////////////////////////////////////////////////////////////////////////

// newBoundary converts the side names of a boundary declaration
func newBoundary(d *inp.BoundaryDecl, dom *Domain) (o *Boundary, err error) {
	o = &Boundary{Name: d.Name, Domain: dom}
	for _, s := range d.Sides {
		side := inp.SideIndex(s)
		if side < 0 || side/2 >= dom.Dim {
			return nil, chk.Err("boundary %q: side %q is not available in %dD", d.Name, s, dom.Dim)
		}
		o.Sides = append(o.Sides, side)
	}
	return
}

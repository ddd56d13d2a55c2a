// Copyright 2016 The Gofem Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// package low implements the symbolic lowering of forms into basis-indexed kernels
package low

import (
	"bytes"
	"sort"

	"github.com/cpmech/gosl/io"
	"github.com/ratnania/vale/inp"
	"github.com/ratnania/vale/sym"
)

// Scope gives access to the declarations of a model and to the current values of its
// coefficient functions and constants
type Scope interface {
	Decl(name string) inp.Decl                     // declaration or nil
	Expression(function string) sym.Expr           // current expression of a function; nil if not set
	Value(constant string) (v float64, isset bool) // current value of a constant
}

// Coords holds the names of the physical coordinates
var Coords = []string{"x", "y", "z"}

// Term holds one term of a kernel: Coef · D^TrialDeriv(trial_TrialBlock) · D^TestDeriv(test_TestBlock)
//
//	Deriv == 0 means the value and Deriv == k+1 the derivative w.r.t the k-th parametric coordinate
type Term struct {
	TestBlock  int      // block of test function
	TestDeriv  int      // derivative of test function
	TrialBlock int      // block of trial function; -1 for linear kernels
	TrialDeriv int      // derivative of trial function; -1 for linear kernels
	Coef       sym.Expr // coefficient depending on coordinates, metric entries and fields only
}

// less orders terms by blocks then derivatives
func (o *Term) less(b *Term) bool {
	if o.TestBlock != b.TestBlock {
		return o.TestBlock < b.TestBlock
	}
	if o.TrialBlock != b.TrialBlock {
		return o.TrialBlock < b.TrialBlock
	}
	if o.TestDeriv != b.TestDeriv {
		return o.TestDeriv < b.TestDeriv
	}
	return o.TrialDeriv < b.TrialDeriv
}

// Integrand holds all terms integrated over the same domain or boundary
type Integrand struct {
	Domain   string // name of domain or boundary
	Boundary bool   // integral over boundary faces
	Sides    []int  // indices in inp.Sides of the faces of a boundary
	Terms    []*Term
}

// Kernel holds the lowered expression of a form
type Kernel struct {
	Form       string       // name of form
	Bilinear   bool         // has trial function
	Ndim       int          // space dimension
	TestSpace  string       // space of test functions
	TrialSpace string       // space of trial functions; empty for linear forms
	Ntest      int          // number of test blocks
	Ntrial     int          // number of trial blocks; 0 for linear forms
	Integrands []*Integrand // in order of first appearance
	Fields     []string     // coefficient fields referenced by terms (sorted)
	Deps       []string     // functions and constants the kernel was lowered with (sorted)
	Unset      []string     // functions and constants without value (sorted); cannot be evaluated
}

// Text returns the canonical text of the kernel; equal texts mean equal kernels
func (o *Kernel) Text() string {
	var b bytes.Buffer
	io.Ff(&b, "bilinear=%v ndim=%d ntest=%d ntrial=%d\n", o.Bilinear, o.Ndim, o.Ntest, o.Ntrial)
	for _, itg := range o.Integrands {
		io.Ff(&b, "integral boundary=%v sides=%v\n", itg.Boundary, itg.Sides)
		for _, t := range itg.Terms {
			io.Ff(&b, "  test%d_d%d trial%d_d%d : %v\n", t.TestBlock, t.TestDeriv, t.TrialBlock, t.TrialDeriv, t.Coef)
		}
	}
	return b.String()
}

// String returns a summary of the kernel
func (o *Kernel) String() string {
	nterms := 0
	for _, itg := range o.Integrands {
		nterms += len(itg.Terms)
	}
	return io.Sf("kernel of %q: bilinear=%v blocks=(%d,%d) integrals=%d terms=%d", o.Form, o.Bilinear, o.Ntest, o.Ntrial, len(o.Integrands), nterms)
}

// errors //////////////////////////////////////////////////////////////////////////////////////////

// UnboundSymbolError reports a reference to an undeclared name
type UnboundSymbolError struct {
	Name string // offending symbol
	Form string // form being lowered
}

func (o *UnboundSymbolError) Error() string {
	return io.Sf("form %q: unbound symbol %q", o.Form, o.Name)
}

// DimensionMismatchError reports incompatible spaces, domains, arities or vector lengths
type DimensionMismatchError struct {
	Form string
	Msg  string
}

func (o *DimensionMismatchError) Error() string {
	if o.Form == "" {
		return "dimension mismatch: " + o.Msg
	}
	return io.Sf("form %q: dimension mismatch: %s", o.Form, o.Msg)
}

// LinearityError reports a term that is not linear in the test (and trial) function
type LinearityError struct {
	Form string
	Term string // offending term
	Msg  string
}

func (o *LinearityError) Error() string {
	return io.Sf("form %q: %s: %s", o.Form, o.Msg, o.Term)
}

// scope of a program //////////////////////////////////////////////////////////////////////////////

// ProgramScope implements Scope for a parsed program and maps of values
type ProgramScope struct {
	Prog      *inp.Program
	Functions map[string]sym.Expr
	Constants map[string]float64
}

// Decl returns the declaration or nil
func (o *ProgramScope) Decl(name string) inp.Decl {
	return o.Prog.Find(name)
}

// Expression returns the expression of a function or nil
func (o *ProgramScope) Expression(function string) sym.Expr {
	return o.Functions[function]
}

// Value returns the value of a constant; initial values come from the declaration
func (o *ProgramScope) Value(constant string) (float64, bool) {
	if v, ok := o.Constants[constant]; ok {
		return v, true
	}
	if d, ok := o.Prog.Find(constant).(*inp.RealDecl); ok && d.HasValue {
		return d.Value, true
	}
	return 0, false
}

func sortedKeys(m map[string]bool) (keys []string) {
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return
}

// Copyright 2016 The Gofem Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// package sym implements symbolic expression trees used by the form language
package sym

import (
	"sort"
	"strconv"
	"strings"

	"github.com/cpmech/gosl/io"
)

// Expr is a node of an expression tree. Trees are immutable: all transformations
// return new trees and never modify their input
type Expr interface {
	String() string // canonical text; two trees are structurally equal iff their strings are equal
	expr()
}

// Num holds a numeric constant
type Num struct {
	Val float64
}

// Sym holds a free symbol; e.g. a coordinate "x" or an unresolved name
type Sym struct {
	Name string
}

// Add holds a sum of terms
type Add struct {
	Terms []Expr
}

// Mul holds a product of factors
type Mul struct {
	Factors []Expr
}

// Pow holds Base^Exp
type Pow struct {
	Base Expr
	Exp  Expr
}

// Call holds a function call; e.g. sin(x), grad(u) or dot(a,b)
type Call struct {
	Fn   string
	Args []Expr
}

// Role tells whether a basis placeholder refers to the trial or the test function
type Role int

const (
	Test  Role = iota // test function (rows)
	Trial             // trial function (columns)
)

// Basis is the placeholder of a local basis function (one local degree of freedom)
//
//	Deriv == 0 means the value; Deriv == k+1 means the derivative w.r.t the k-th parametric coordinate
type Basis struct {
	Role  Role
	Block int
	Deriv int
}

// Metric is the entry InvJ[I][J] = ∂ξ_I/∂x_J of the inverse Jacobian of the mapping
type Metric struct {
	I, J int
}

// FieldRef refers to the discrete value of a field at the evaluation point
//
//	Deriv follows the same convention as Basis.Deriv
type FieldRef struct {
	Name  string
	Deriv int
}

func (*Num) expr()      {}
func (*Sym) expr()      {}
func (*Add) expr()      {}
func (*Mul) expr()      {}
func (*Pow) expr()      {}
func (*Call) expr()     {}
func (*Basis) expr()    {}
func (*Metric) expr()   {}
func (*FieldRef) expr() {}

// constructors ////////////////////////////////////////////////////////////////////////////////////

// N returns a new number
func N(v float64) *Num { return &Num{v} }

// S returns a new symbol
func S(name string) *Sym { return &Sym{name} }

// Sum returns the sum of terms (without simplification)
func Sum(terms ...Expr) Expr {
	if len(terms) == 1 {
		return terms[0]
	}
	return &Add{terms}
}

// Prod returns the product of factors (without simplification)
func Prod(factors ...Expr) Expr {
	if len(factors) == 1 {
		return factors[0]
	}
	return &Mul{factors}
}

// Neg returns -a
func Neg(a Expr) Expr { return &Mul{[]Expr{N(-1), a}} }

// Sub returns a - b
func Sub(a, b Expr) Expr { return &Add{[]Expr{a, Neg(b)}} }

// Div returns a / b
func Div(a, b Expr) Expr { return &Mul{[]Expr{a, &Pow{b, N(-1)}}} }

// printing ////////////////////////////////////////////////////////////////////////////////////////

func (o *Num) String() string { return strconv.FormatFloat(o.Val, 'g', -1, 64) }

func (o *Sym) String() string { return o.Name }

func (o *Add) String() string { return "(" + join(o.Terms, " + ") + ")" }

func (o *Mul) String() string { return "(" + join(o.Factors, "*") + ")" }

func (o *Pow) String() string { return "(" + o.Base.String() + "^" + o.Exp.String() + ")" }

func (o *Call) String() string { return o.Fn + "(" + join(o.Args, ", ") + ")" }

func (o *Basis) String() string {
	r := "v"
	if o.Role == Trial {
		r = "u"
	}
	return io.Sf("%s%d_d%d", r, o.Block, o.Deriv)
}

func (o *Metric) String() string { return io.Sf("invJ%d%d", o.I, o.J) }

func (o *FieldRef) String() string { return io.Sf("%s_d%d", o.Name, o.Deriv) }

func join(list []Expr, sep string) string {
	s := make([]string, len(list))
	for i, e := range list {
		s[i] = e.String()
	}
	return strings.Join(s, sep)
}

// queries /////////////////////////////////////////////////////////////////////////////////////////

// Equal tells whether a and b are structurally equal
func Equal(a, b Expr) bool { return a.String() == b.String() }

// Walk calls visit for each node in pre-order; children are skipped if visit returns false
func Walk(e Expr, visit func(Expr) bool) {
	if !visit(e) {
		return
	}
	for _, c := range children(e) {
		Walk(c, visit)
	}
}

// FreeSymbols returns the sorted names of all free symbols in e
func FreeSymbols(e Expr) (names []string) {
	set := make(map[string]bool)
	Walk(e, func(n Expr) bool {
		if s, ok := n.(*Sym); ok {
			set[s.Name] = true
		}
		return true
	})
	for name := range set {
		names = append(names, name)
	}
	sort.Strings(names)
	return
}

// Calls returns the sorted names of all called functions in e
func Calls(e Expr) (names []string) {
	set := make(map[string]bool)
	Walk(e, func(n Expr) bool {
		if c, ok := n.(*Call); ok {
			set[c.Fn] = true
		}
		return true
	})
	for name := range set {
		names = append(names, name)
	}
	sort.Strings(names)
	return
}

// HasBasis tells whether e contains basis placeholders with the given role
func HasBasis(e Expr, role Role) (found bool) {
	Walk(e, func(n Expr) bool {
		if b, ok := n.(*Basis); ok && b.Role == role {
			found = true
		}
		return !found
	})
	return
}

func children(e Expr) []Expr {
	switch o := e.(type) {
	case *Add:
		return o.Terms
	case *Mul:
		return o.Factors
	case *Pow:
		return []Expr{o.Base, o.Exp}
	case *Call:
		return o.Args
	}
	return nil
}

// transformations /////////////////////////////////////////////////////////////////////////////////

// Map rebuilds e bottom-up, replacing each node n by fcn(n) after its children were mapped.
// fcn returns the node itself to keep it
func Map(e Expr, fcn func(Expr) Expr) Expr {
	switch o := e.(type) {
	case *Add:
		return fcn(&Add{mapList(o.Terms, fcn)})
	case *Mul:
		return fcn(&Mul{mapList(o.Factors, fcn)})
	case *Pow:
		return fcn(&Pow{Map(o.Base, fcn), Map(o.Exp, fcn)})
	case *Call:
		return fcn(&Call{o.Fn, mapList(o.Args, fcn)})
	}
	return fcn(e)
}

func mapList(list []Expr, fcn func(Expr) Expr) []Expr {
	res := make([]Expr, len(list))
	for i, c := range list {
		res[i] = Map(c, fcn)
	}
	return res
}

// Subst replaces the symbols named in m by the corresponding trees
func Subst(e Expr, m map[string]Expr) Expr {
	return Map(e, func(n Expr) Expr {
		if s, ok := n.(*Sym); ok {
			if r, found := m[s.Name]; found {
				return r
			}
		}
		return n
	})
}

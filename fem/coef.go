// Copyright 2016 The Gofem Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package fem

import (
	"github.com/cpmech/gosl/chk"
	"github.com/ratnania/vale/inp"
	"github.com/ratnania/vale/sym"
)

// Function holds a coefficient function of coordinates whose expression is set at run time
type Function struct {
	Name    string   // name of function
	Args    []string // argument names
	expr    sym.Expr // current expression; nil if not set
	version int      // incremented at each Set
	model   *Model
}

// Constant holds a scalar constant
type Constant struct {
	Name    string
	value   float64
	isset   bool
	version int
}

func (o *Function) DeclName() string { return o.Name }
func (o *Constant) DeclName() string { return o.Name }
func (o *Function) Kind() string     { return "function" }
func (o *Constant) Kind() string     { return "constant" }

// Set parses and sets the expression of the function; e.g. "x*(1-x)*sin(pi*y)".
// Free symbols must be arguments, constants or elementary constants such as pi
func (o *Function) Set(expression string) (err error) {
	e, err := inp.ParseExpr(expression)
	if err != nil {
		return chk.Err("cannot set function %q:\n%v", o.Name, err)
	}
	return o.SetExpr(e)
}

// SetExpr sets the expression of the function
func (o *Function) SetExpr(e sym.Expr) (err error) {
	args := make(map[string]bool)
	for _, a := range o.Args {
		args[a] = true
	}
	for _, name := range sym.FreeSymbols(e) {
		if args[name] {
			continue
		}
		if _, ok := sym.Constants[name]; ok {
			continue
		}
		if o.model != nil {
			if _, ok := o.model.decls[name].(*Constant); ok {
				continue
			}
		}
		return chk.Err("function %q(%v): symbol %q is neither an argument nor a constant", o.Name, o.Args, name)
	}
	for _, fn := range sym.Calls(e) {
		if _, ok := sym.Elementary[fn]; !ok {
			return chk.Err("function %q: %q is not an elementary function", o.Name, fn)
		}
	}
	o.expr = e
	o.version++
	return
}

// Expr returns the current expression or nil
func (o *Function) Expr() sym.Expr { return o.expr }

// Version returns the number of times the expression was set
func (o *Function) Version() int { return o.version }

// Set sets the value of the constant
func (o *Constant) Set(v float64) {
	o.value = v
	o.isset = true
	o.version++
}

// Value returns the value of the constant and whether it was set
func (o *Constant) Value() (float64, bool) { return o.value, o.isset }

// Version returns the number of times the value was set
func (o *Constant) Version() int { return o.version }

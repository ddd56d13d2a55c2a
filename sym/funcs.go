// Copyright 2016 The Gofem Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package sym

import "math"

// Func holds an elementary function of one variable and the rule to differentiate it
type Func struct {
	F func(float64) float64 // numeric evaluation
	D func(a Expr) Expr     // derivative f'(a) as a tree
}

// Elementary holds all elementary functions known to the language
var Elementary = map[string]Func{
	"sin": {math.Sin, func(a Expr) Expr { return &Call{"cos", []Expr{a}} }},
	"cos": {math.Cos, func(a Expr) Expr { return Neg(&Call{"sin", []Expr{a}}) }},
	"tan": {math.Tan, func(a Expr) Expr { return &Pow{&Call{"cos", []Expr{a}}, N(-2)} }},
	"exp": {math.Exp, func(a Expr) Expr { return &Call{"exp", []Expr{a}} }},
	"log": {math.Log, func(a Expr) Expr { return &Pow{a, N(-1)} }},
	"sqrt": {math.Sqrt, func(a Expr) Expr {
		return Prod(N(0.5), &Pow{&Call{"sqrt", []Expr{a}}, N(-1)})
	}},
	"abs":  {math.Abs, func(a Expr) Expr { return &Call{"sign", []Expr{a}} }},
	"sign": {sign, func(a Expr) Expr { return N(0) }},
}

// Constants holds named mathematical constants
var Constants = map[string]float64{
	"pi": math.Pi,
}

func sign(x float64) float64 {
	switch {
	case x > 0:
		return 1
	case x < 0:
		return -1
	}
	return 0
}

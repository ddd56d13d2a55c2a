// Copyright 2016 The Gofem Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package sym

import (
	"math"

	"github.com/cespare/xxhash/v2"
	"github.com/cpmech/gosl/chk"
)

// Eval evaluates e numerically with the symbol values given in env
func Eval(e Expr, env map[string]float64) (float64, error) {
	switch o := e.(type) {

	case *Num:
		return o.Val, nil

	case *Sym:
		if v, ok := env[o.Name]; ok {
			return v, nil
		}
		if v, ok := Constants[o.Name]; ok {
			return v, nil
		}
		return 0, chk.Err("symbol %q has no value", o.Name)

	case *Add:
		res := 0.0
		for _, t := range o.Terms {
			v, err := Eval(t, env)
			if err != nil {
				return 0, err
			}
			res += v
		}
		return res, nil

	case *Mul:
		res := 1.0
		for _, f := range o.Factors {
			v, err := Eval(f, env)
			if err != nil {
				return 0, err
			}
			res *= v
		}
		return res, nil

	case *Pow:
		b, err := Eval(o.Base, env)
		if err != nil {
			return 0, err
		}
		x, err := Eval(o.Exp, env)
		if err != nil {
			return 0, err
		}
		return math.Pow(b, x), nil

	case *Call:
		f, ok := Elementary[o.Fn]
		if !ok || len(o.Args) != 1 {
			return 0, chk.Err("cannot evaluate call to %q", o.Fn)
		}
		a, err := Eval(o.Args[0], env)
		if err != nil {
			return 0, err
		}
		return f.F(a), nil
	}
	return 0, chk.Err("cannot evaluate %v", e)
}

// Hash returns the structural hash of e
func Hash(e Expr) uint64 {
	return xxhash.Sum64String(e.String())
}

// Copyright 2016 The Gofem Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package sym

import (
	"github.com/cpmech/gosl/chk"
)

// LeafRule differentiates leaves of a tree. ok == false selects the default rule
type LeafRule func(e Expr) (d Expr, ok bool, err error)

// Diff returns the derivative of e w.r.t the symbol named x.
// Basis placeholders, metric entries and field references cannot be differentiated
func Diff(e Expr, x string) (d Expr, err error) {
	return DiffWith(e, x, nil)
}

// DiffWith returns the derivative of e w.r.t x using rule (may be nil) for the leaves
func DiffWith(e Expr, x string, rule LeafRule) (d Expr, err error) {
	d, err = diff(e, x, rule)
	if err != nil {
		return
	}
	return Simplify(d), nil
}

func diff(e Expr, x string, rule LeafRule) (Expr, error) {
	if rule != nil {
		switch e.(type) {
		case *Add, *Mul, *Pow, *Call:
		default:
			d, ok, err := rule(e)
			if err != nil {
				return nil, err
			}
			if ok {
				return d, nil
			}
		}
	}
	switch o := e.(type) {

	case *Num:
		return N(0), nil

	case *Sym:
		if o.Name == x {
			return N(1), nil
		}
		return N(0), nil

	case *Add:
		terms := make([]Expr, len(o.Terms))
		for i, t := range o.Terms {
			dt, err := diff(t, x, rule)
			if err != nil {
				return nil, err
			}
			terms[i] = dt
		}
		return &Add{terms}, nil

	case *Mul:
		// product rule: Σ_i f1...f_i'...fn
		var terms []Expr
		for i := range o.Factors {
			di, err := diff(o.Factors[i], x, rule)
			if err != nil {
				return nil, err
			}
			if n, ok := di.(*Num); ok && n.Val == 0 {
				continue
			}
			factors := make([]Expr, len(o.Factors))
			copy(factors, o.Factors)
			factors[i] = di
			terms = append(terms, &Mul{factors})
		}
		if len(terms) == 0 {
			return N(0), nil
		}
		return &Add{terms}, nil

	case *Pow:
		db, err := diff(o.Base, x, rule)
		if err != nil {
			return nil, err
		}
		if _, ok := o.Exp.(*Num); ok {
			// d(b^n) = n b^(n-1) b'
			return Prod(o.Exp, &Pow{o.Base, Sum(o.Exp, N(-1))}, db), nil
		}
		de, err := diff(o.Exp, x, rule)
		if err != nil {
			return nil, err
		}
		// d(b^e) = b^e (e' log(b) + e b'/b)
		return Prod(o, Sum(Prod(de, &Call{"log", []Expr{o.Base}}), Prod(o.Exp, db, &Pow{o.Base, N(-1)}))), nil

	case *Call:
		f, ok := Elementary[o.Fn]
		if !ok || len(o.Args) != 1 {
			return nil, chk.Err("cannot differentiate call to %q", o.Fn)
		}
		da, err := diff(o.Args[0], x, rule)
		if err != nil {
			return nil, err
		}
		return Prod(f.D(o.Args[0]), da), nil
	}
	return nil, chk.Err("cannot differentiate %v w.r.t %q", e, x)
}

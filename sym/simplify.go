// Copyright 2016 The Gofem Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package sym

import (
	"math"
	"sort"
)

// Simplify flattens nested sums/products, folds numeric constants and removes neutral elements
func Simplify(e Expr) Expr {
	return Map(e, simplifyNode)
}

func simplifyNode(e Expr) Expr {
	switch o := e.(type) {
	case *Add:
		return simplifyAdd(o)
	case *Mul:
		return simplifyMul(o)
	case *Pow:
		return simplifyPow(o)
	case *Call:
		if f, ok := Elementary[o.Fn]; ok && len(o.Args) == 1 {
			if a, isnum := o.Args[0].(*Num); isnum {
				return N(f.F(a.Val))
			}
		}
	}
	return e
}

func simplifyAdd(o *Add) Expr {
	var terms []Expr
	cte := 0.0
	for _, t := range o.Terms {
		switch c := t.(type) {
		case *Num:
			cte += c.Val
		case *Add:
			for _, tt := range c.Terms {
				if n, ok := tt.(*Num); ok {
					cte += n.Val
				} else {
					terms = append(terms, tt)
				}
			}
		default:
			terms = append(terms, t)
		}
	}
	if cte != 0 {
		terms = append(terms, N(cte))
	}
	switch len(terms) {
	case 0:
		return N(0)
	case 1:
		return terms[0]
	}
	return &Add{terms}
}

func simplifyMul(o *Mul) Expr {
	var factors []Expr
	cte := 1.0
	for _, f := range o.Factors {
		switch c := f.(type) {
		case *Num:
			cte *= c.Val
		case *Mul:
			for _, ff := range c.Factors {
				if n, ok := ff.(*Num); ok {
					cte *= n.Val
				} else {
					factors = append(factors, ff)
				}
			}
		default:
			factors = append(factors, f)
		}
	}
	if cte == 0 {
		return N(0)
	}
	if cte != 1 {
		factors = append([]Expr{N(cte)}, factors...)
	}
	switch len(factors) {
	case 0:
		return N(1)
	case 1:
		return factors[0]
	}
	return &Mul{factors}
}

func simplifyPow(o *Pow) Expr {
	ex, expNum := o.Exp.(*Num)
	if b, ok := o.Base.(*Num); ok && expNum {
		return N(math.Pow(b.Val, ex.Val))
	}
	if expNum {
		switch ex.Val {
		case 0:
			return N(1)
		case 1:
			return o.Base
		}
	}
	if b, ok := o.Base.(*Num); ok && b.Val == 1 {
		return N(1)
	}
	return o
}

// Expand distributes products over sums so that the result is a sum of products.
// Integer powers of sums are expanded only when the sum contains basis placeholders
func Expand(e Expr) Expr {
	return Simplify(Map(Simplify(e), expandNode))
}

func expandNode(e Expr) Expr {
	switch o := e.(type) {
	case *Add:
		return simplifyAdd(o)
	case *Mul:
		res := []Expr{N(1)}
		for _, f := range o.Factors {
			res = distribute(res, termsOf(f))
		}
		return simplifyAdd(&Add{res})
	case *Pow:
		n, ok := o.Exp.(*Num)
		if !ok || n.Val < 2 || n.Val > 8 || n.Val != math.Trunc(n.Val) {
			return o
		}
		if _, isadd := o.Base.(*Add); !isadd || !(HasBasis(o.Base, Test) || HasBasis(o.Base, Trial)) {
			return o
		}
		res := []Expr{N(1)}
		for i := 0; i < int(n.Val); i++ {
			res = distribute(res, termsOf(o.Base))
		}
		return simplifyAdd(&Add{res})
	}
	return e
}

// termsOf returns the terms of nested sums as one list
func termsOf(e Expr) (terms []Expr) {
	a, ok := e.(*Add)
	if !ok {
		return []Expr{e}
	}
	for _, t := range a.Terms {
		terms = append(terms, termsOf(t)...)
	}
	return
}

func distribute(a, b []Expr) (res []Expr) {
	res = make([]Expr, 0, len(a)*len(b))
	for _, x := range a {
		for _, y := range b {
			res = append(res, simplifyMul(&Mul{[]Expr{x, y}}))
		}
	}
	return
}

// Canonical simplifies e and sorts the operands of sums and products, keeping numeric
// factors first, so that equal expressions have equal strings
func Canonical(e Expr) Expr {
	return Map(Simplify(e), func(n Expr) Expr {
		switch o := n.(type) {
		case *Add:
			return &Add{sortByString(o.Terms, 0)}
		case *Mul:
			first := 0
			if _, ok := o.Factors[0].(*Num); ok {
				first = 1
			}
			return &Mul{sortByString(o.Factors, first)}
		}
		return n
	})
}

func sortByString(list []Expr, first int) []Expr {
	res := make([]Expr, len(list))
	copy(res, list)
	tail := res[first:]
	sort.SliceStable(tail, func(i, j int) bool { return tail[i].String() < tail[j].String() })
	return res
}

// Copyright 2016 The Gofem Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package gen

import (
	"strings"
	"sync"

	"github.com/cespare/xxhash/v2"
	"github.com/cpmech/gosl/chk"
	"github.com/ratnania/vale/low"
)

// BasisEval holds one local basis function at one point
//
//	D[0] = N and D[k+1] = ∂N/∂ξ_k
type BasisEval struct {
	Block int       // block of the argument the function belongs to
	D     []float64 // value and parametric derivatives
}

// Part holds the compiled terms integrated over one domain or boundary
type Part struct {
	Domain   string      // name of domain or boundary
	Boundary bool        // boundary integral
	Sides    []int       // faces of boundary; indices in inp.Sides
	Terms    []*low.Term // lowered terms
	coefs    []Fcn       // compiled coefficients
	pairs    [][]int     // indices of terms of each (test,trial) block pair
	ntrial   int
	bilinear bool
}

// Evaluator holds a compiled kernel
type Evaluator struct {
	Bilinear bool     // kernel has a trial function
	Ndim     int      // space dimension
	Ntest    int      // number of test blocks
	Ntrial   int      // number of trial blocks
	Fields   []string // fields required in Point.Fields, in this order
	Parts    []*Part  // one per integration domain
	Hash     uint64   // structural hash of the kernel
}

// Compile compiles all coefficient expressions of a kernel
func Compile(k *low.Kernel) (o *Evaluator, err error) {
	if len(k.Unset) > 0 {
		return nil, chk.Err("cannot compile kernel of form %q: %s without value", k.Form, strings.Join(k.Unset, ", "))
	}
	o = &Evaluator{
		Bilinear: k.Bilinear,
		Ndim:     k.Ndim,
		Ntest:    k.Ntest,
		Ntrial:   k.Ntrial,
		Fields:   k.Fields,
		Hash:     xxhash.Sum64String(k.Text()),
	}
	ntrial := k.Ntrial
	if !k.Bilinear {
		ntrial = 1
	}
	for _, itg := range k.Integrands {
		p := &Part{
			Domain:   itg.Domain,
			Boundary: itg.Boundary,
			Sides:    itg.Sides,
			Terms:    itg.Terms,
			coefs:    make([]Fcn, len(itg.Terms)),
			pairs:    make([][]int, k.Ntest*ntrial),
			ntrial:   ntrial,
			bilinear: k.Bilinear,
		}
		for i, t := range itg.Terms {
			p.coefs[i], err = Expr(t.Coef, k.Fields)
			if err != nil {
				return nil, chk.Err("cannot compile coefficient of form %q:\n%v", k.Form, err)
			}
			tb := 0
			if k.Bilinear {
				tb = t.TrialBlock
			}
			idx := t.TestBlock*ntrial + tb
			p.pairs[idx] = append(p.pairs[idx], i)
		}
		o.Parts = append(o.Parts, p)
	}
	return
}

// Prepare evaluates the coefficients of all terms at one point. len(coefs) == len(o.Terms)
func (o *Part) Prepare(pt *Point, coefs []float64) {
	for i, f := range o.coefs {
		coefs[i] = f(pt)
	}
}

// Active tells whether the block pair (test, trial) has terms; trial is ignored for linear kernels
func (o *Part) Active(test, trial int) bool {
	if o.ntrial == 1 {
		trial = 0
	}
	return len(o.pairs[test*o.ntrial+trial]) > 0
}

// Value returns Σ coef·D(trial)·D(test) over the terms of the blocks of test and trial.
// trial is ignored for linear kernels
func (o *Part) Value(coefs []float64, trial, test *BasisEval) (res float64) {
	if !o.bilinear || trial == nil {
		for _, i := range o.pairs[test.Block*o.ntrial] {
			res += coefs[i] * test.D[o.Terms[i].TestDeriv]
		}
		return
	}
	for _, i := range o.pairs[test.Block*o.ntrial+trial.Block] {
		t := o.Terms[i]
		res += coefs[i] * trial.D[t.TrialDeriv] * test.D[t.TestDeriv]
	}
	return
}

// cache ///////////////////////////////////////////////////////////////////////////////////////////

// Cache holds evaluators keyed by the structural hash of kernels
type Cache struct {
	mu     sync.Mutex
	items  map[uint64]*cacheItem
	Hits   int // number of lookups served from cache
	Misses int // number of compilations
}

type cacheItem struct {
	text string
	eval *Evaluator
}

// NewCache returns a new cache
func NewCache() *Cache {
	return &Cache{items: make(map[uint64]*cacheItem)}
}

// Get returns the evaluator of k, compiling it if no identical kernel was compiled before
func (o *Cache) Get(k *low.Kernel) (*Evaluator, error) {
	text := k.Text()
	h := xxhash.Sum64String(text)
	o.mu.Lock()
	defer o.mu.Unlock()
	if it, ok := o.items[h]; ok && it.text == text {
		o.Hits++
		return it.eval, nil
	}
	e, err := Compile(k)
	if err != nil {
		return nil, err
	}
	o.Misses++
	if _, collision := o.items[h]; !collision {
		o.items[h] = &cacheItem{text, e}
	}
	return e, nil
}

// Len returns the number of cached evaluators
func (o *Cache) Len() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return len(o.items)
}

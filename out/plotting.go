// Copyright 2016 The Gofem Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package out

import (
	"math"
	"sort"

	"github.com/cpmech/gosl/chk"
	"github.com/cpmech/gosl/io"
	"github.com/cpmech/gosl/plt"
)

// styles of convergence curves
var styles = []plt.A{
	{C: "b", M: "o", Ls: "-"},
	{C: "r", M: "s", Ls: "-"},
	{C: "g", M: "^", Ls: "-"},
	{C: "k", M: "*", Ls: "-"},
}

// Rates returns the orders of convergence log(e[i]/e[i+1]) / log(n[i+1]/n[i]) between
// consecutive refinement levels with n spans per axis
func Rates(nspans []int, errs []float64) (rates []float64, err error) {
	if len(nspans) != len(errs) {
		return nil, chk.Err("convergence data must have the same length; got %d and %d", len(nspans), len(errs))
	}
	for i := 0; i+1 < len(errs); i++ {
		if errs[i] <= 0 || errs[i+1] <= 0 || nspans[i+1] <= nspans[i] {
			return nil, chk.Err("convergence data must be positive with increasing spans; got n=%v e=%v", nspans, errs)
		}
		rates = append(rates, math.Log(errs[i]/errs[i+1])/math.Log(float64(nspans[i+1])/float64(nspans[i])))
	}
	return
}

// PlotConvergence plots errors versus the mesh size h = 1/n in log-log scale and saves the
// figure to <dirout>/<fnkey>.png
func PlotConvergence(dirout, fnkey string, nspans []int, errors map[string][]float64) (err error) {
	names := make([]string, 0, len(errors))
	for name := range errors {
		names = append(names, name)
	}
	sort.Strings(names)
	h := make([]float64, len(nspans))
	for i, n := range nspans {
		h[i] = 1.0 / float64(n)
	}
	plt.Reset(false, nil)
	for i, name := range names {
		rates, err := Rates(nspans, errors[name])
		if err != nil {
			return chk.Err("field %q:\n%v", name, err)
		}
		sty := styles[i%len(styles)]
		sty.L = name
		if len(rates) > 0 {
			sty.L = io.Sf("%s (rate %.2f)", name, rates[len(rates)-1])
		}
		plt.Plot(h, errors[name], &sty)
	}
	plt.SetXlog()
	plt.SetYlog()
	plt.Gll("$h$", "$||u-u_h||_{L_2}$", nil)
	plt.Save(dirout, fnkey)
	return
}

// Copyright 2016 The Gofem Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package fem

import (
	"errors"
	"testing"

	"github.com/cpmech/gosl/chk"
	"github.com/cpmech/gosl/la"
	"github.com/ratnania/vale/geo"
)

const integrals = `
Domain(dim=2) :: Omega
Boundary(domain=Omega, sides='x+') :: Right
Boundary(domain=Omega, sides='x-,y+') :: LeftTop
Space(domain=Omega) :: V
Field(V) :: phi
Real :: alpha

m(v::V, u::V) := < v * u >_Omega
k(v::V, u::V) := < grad(v) * grad(u) >_Omega
area(v::V) := < v >_Omega
right(v::V) := < v >_Right
lefttop(v::V) := < v >_LeftTop
coef(v::V) := < phi * v >_Omega
scaled(v::V) := 2 * area(v) + < alpha * v >_Omega
robin(v::V, u::V) := k(v,u) + < v * u >_Right
`

// flipped reverses the orientation of a mapping
type flipped struct{ geo.Mapping }

func (o flipped) Eval(u, x []float64, J [][]float64) float64 { return -o.Mapping.Eval(u, x, J) }

func newBoxModel(tst *testing.T, source string, ctx *Context, mapping geo.Mapping) *Model {
	model, err := Construct(source, ctx, mapping)
	if err != nil {
		tst.Fatalf("Construct failed:\n%v", err)
	}
	return model
}

func sum(v []float64) (res float64) {
	for _, x := range v {
		res += x
	}
	return
}

func assembled(tst *testing.T, model *Model, name string) *Form {
	f, err := model.Form(name)
	if err != nil {
		tst.Fatalf("Form failed:\n%v", err)
	}
	if err = f.Assemble(); err != nil {
		tst.Fatalf("Assemble(%q) failed:\n%v", name, err)
	}
	return f
}

func Test_asm01(tst *testing.T) {

	//verbose()
	chk.PrintTitle("asm01. integrals over domain and boundaries")

	ctx, err := NewContext(tst.TempDir(), newParams(2, 3, 2, 1))
	if err != nil {
		tst.Errorf("NewContext failed:\n%v", err)
		return
	}
	box, _ := geo.NewBox([]float64{-1, 0}, []float64{1, 3})
	model := newBoxModel(tst, integrals, ctx, box)

	// partition of unity: Σ_ij M_ij = area and Σ_i b_i = measure
	m := assembled(tst, model, "m")
	chk.Int(tst, "nnz", m.Matrix.Nnz(), 19*19)
	chk.Float64(tst, "ΣM", 1e-13, sum(m.Matrix.X), 6)
	chk.Float64(tst, "Σarea", 1e-13, sum(assembled(tst, model, "area").Vector.Flat()), 6)
	chk.Float64(tst, "Σright", 1e-13, sum(assembled(tst, model, "right").Vector.Flat()), 3)
	chk.Float64(tst, "Σlefttop", 1e-13, sum(assembled(tst, model, "lefttop").Vector.Flat()), 3+2)

	// stiffness: symmetric and zero row sums
	k := assembled(tst, model, "k")
	K := k.Matrix.Dense()
	for i := range K {
		chk.Float64(tst, "Σ_j K_ij", 1e-12, sum(K[i]), 0)
		for j := range K {
			chk.Float64(tst, "K_ij - K_ji", 1e-14, K[i][j]-K[j][i], 0)
		}
	}

	// energy of u = 2x + y: ∫ |∇u|² = 5 * area; B-splines reproduce linear functions
	ubar := la.NewVector(m.Test.Ndofs())
	xg, yg := grevilleAbscissae(m.Test, 0), grevilleAbscissae(m.Test, 1)
	for j := range yg {
		for i := range xg {
			ubar[i+len(xg)*j] = 2*(-1+2*xg[i]) + 3*yg[j]
		}
	}
	Ku := la.NewVector(len(ubar))
	k.Matrix.MatVec(Ku, ubar)
	chk.Float64(tst, "uᵀKu", 1e-12, la.VecDot(ubar, Ku), 5*6)

	// boundary terms in bilinear forms
	robin := assembled(tst, model, "robin")
	diff := 0.0
	for i := range K {
		for j := range K {
			diff += robin.Matrix.Get(i, j) - K[i][j]
		}
	}
	chk.Float64(tst, "Σ(robin - k)", 1e-13, diff, 3)

	// coefficient field equal to one
	phi, _ := model.Field("phi")
	for i := range phi.Coefs {
		phi.Coefs[i] = 1
	}
	chk.Array(tst, "coef", 1e-14, assembled(tst, model, "coef").Vector.Flat(), assembled(tst, model, "area").Vector.Flat())

	// constants
	scaled, _ := model.Form("scaled")
	if err = scaled.Assemble(); err == nil {
		tst.Errorf("assembly with unset constant must fail")
	}
	alpha, _ := model.Constant("alpha")
	alpha.Set(-2)
	if err = scaled.Assemble(); err != nil {
		tst.Errorf("Assemble failed:\n%v", err)
		return
	}
	chk.Array(tst, "2·area - 2·area", 1e-14, scaled.Vector.Flat(), make([]float64, 25))
}

// grevilleAbscissae returns the parametric points where the coefficients of a linear function
// equal its values; i.e. the averages of degree consecutive interior knots
func grevilleAbscissae(sp *Space, axis int) (res []float64) {
	ax := sp.Shp.Axes[axis]
	for i := 0; i < ax.Nbasis; i++ {
		t := 0.0
		for j := 1; j <= ax.Degree; j++ {
			t += ax.Knots[i+j]
		}
		res = append(res, t/float64(ax.Degree))
	}
	return
}

func Test_asm02(tst *testing.T) {

	//verbose()
	chk.PrintTitle("asm02. determinism and re-assembly")

	prms := newParams(3, 4, 2, 0)
	var matrices [][]float64
	var vectors [][]float64
	for _, nworkers := range []int{1, 3, 8} {
		model := newModel(tst, poissonBlock, prms, nworkers)
		f, _ := model.Function("f")
		g, _ := model.Function("g")
		if err := f.Set("sin(pi*x)*y*z"); err != nil {
			tst.Errorf("Set failed:\n%v", err)
			return
		}
		if err := g.Set("exp(x+y)*cos(z)"); err != nil {
			tst.Errorf("Set failed:\n%v", err)
			return
		}
		a := assembled(tst, model, "a")
		b := assembled(tst, model, "b")
		matrices = append(matrices, a.Matrix.X)
		vectors = append(vectors, b.Vector.Flat())

		// same results when assembling again
		X := append([]float64{}, a.Matrix.X...)
		if err := a.Assemble(); err != nil {
			tst.Errorf("Assemble failed:\n%v", err)
			return
		}
		chk.Array(tst, "X again", 0, a.Matrix.X, X)

		// re-assembly reflects new coefficients
		if nworkers == 1 {
			before := b.Vector.Blocks()
			if err := g.Set("2*exp(x+y)*cos(z)"); err != nil {
				tst.Errorf("Set failed:\n%v", err)
				return
			}
			if err := b.Assemble(); err != nil {
				tst.Errorf("Assemble failed:\n%v", err)
				return
			}
			after := b.Vector.Blocks()
			chk.Array(tst, "block 0 unchanged", 0, after[0], before[0])
			for i := range before[1] {
				before[1][i] *= 2
			}
			chk.Array(tst, "block 1 doubled", 1e-14, after[1], before[1])
			if err := g.Set("exp(x+y)*cos(z)"); err != nil {
				tst.Errorf("Set failed:\n%v", err)
				return
			}
			if err := b.Assemble(); err != nil {
				tst.Errorf("Assemble failed:\n%v", err)
				return
			}
			vectors[0] = b.Vector.Flat()
		}
	}
	for i := 1; i < len(matrices); i++ {
		chk.Array(tst, "matrix", 0, matrices[i], matrices[0])
		chk.Array(tst, "vector", 0, vectors[i], vectors[0])
	}
}

func Test_asm03(tst *testing.T) {

	//verbose()
	chk.PrintTitle("asm03. assembly errors")

	ctx, err := NewContext(tst.TempDir(), newParams(2, 2, 1, 1))
	if err != nil {
		tst.Errorf("NewContext failed:\n%v", err)
		return
	}
	box, _ := geo.NewBox([]float64{0, 0}, []float64{1, 1})

	// unset function
	model := newBoxModel(tst, poissonBlock2D, ctx, box)
	b, _ := model.Form("b")
	if err = b.Assemble(); err == nil {
		tst.Errorf("assembly with unset functions must fail")
	}

	// inverted mapping
	model = newBoxModel(tst, poissonBlock2D, ctx, flipped{box})
	a, _ := model.Form("a")
	err = a.Assemble()
	var aerr *AssemblyError
	if !errors.As(err, &aerr) {
		tst.Errorf("inverted mapping must return AssemblyError; got %v", err)
	} else {
		chk.String(tst, aerr.Form, "a")
	}

	// NaN coefficients
	model = newBoxModel(tst, poissonBlock2D, ctx, box)
	f, _ := model.Function("f")
	g, _ := model.Function("g")
	f.Set("log(x-2)")
	g.Set("1")
	b, _ = model.Form("b")
	err = b.Assemble()
	if !errors.As(err, &aerr) {
		tst.Errorf("NaN values must return AssemblyError; got %v", err)
	}
}

const poissonBlock2D = `
Domain(dim=2) :: Omega
Space(domain=Omega) :: V
Function(x,y) :: f, g
a((v1,v2)::V, (u1,u2)::V) := < grad(v1) * grad(u1) + grad(v2) * grad(u2) >_Omega
b((v1,v2)::V) := < f * v1 + g * v2 >_Omega
`

const scaledForms = `
# stiffness matrices built from scaled calls and coefficients

Domain(dim=2) :: Omega
Space(domain=Omega) :: V
Real :: kappa
Function(x,y) :: c

a1(v::V, u::V) := < grad(v) * grad(u) >_Omega
s2(v::V, u::V) := 2 * a1(v,u)
s3(v::V, u::V) := < kappa * dot(grad(v), grad(u)) >_Omega
s4(v::V, u::V) := < c * dot(grad(v), grad(u)) >_Omega
`

func Test_asm04(tst *testing.T) {

	//verbose()
	chk.PrintTitle("asm04. scaled calls and coefficients in bilinear forms")

	ctx, err := NewContext(tst.TempDir(), newParams(2, 4, 2, 1))
	if err != nil {
		tst.Errorf("NewContext failed:\n%v", err)
		return
	}
	box, _ := geo.NewBox([]float64{0, 0}, []float64{2, 1})
	model := newBoxModel(tst, scaledForms, ctx, box)
	kappa, _ := model.Constant("kappa")
	kappa.Set(3)
	c, _ := model.Function("c")
	if err = c.Set("0.5"); err != nil {
		tst.Errorf("Set failed:\n%v", err)
		return
	}

	a1 := assembled(tst, model, "a1")
	for _, cs := range []struct {
		form  string
		scale float64
	}{
		{"s2", 2},
		{"s3", 3},
		{"s4", 0.5},
	} {
		s := assembled(tst, model, cs.form)
		chk.Int(tst, cs.form+" nnz", s.Matrix.Nnz(), a1.Matrix.Nnz())
		chk.Ints(tst, cs.form+" I", s.Matrix.I, a1.Matrix.I)
		chk.Ints(tst, cs.form+" J", s.Matrix.J, a1.Matrix.J)
		want := make([]float64, len(a1.Matrix.X))
		for k, x := range a1.Matrix.X {
			want[k] = cs.scale * x
		}
		chk.Array(tst, cs.form+" X", 1e-13, s.Matrix.X, want)
	}

	// variable coefficient: ∫ (1 + x) |∇u|² with u = y gives ∫ (1 + x) = 2 + 2 = 4
	if err = c.Set("1 + x"); err != nil {
		tst.Errorf("Set failed:\n%v", err)
		return
	}
	s4 := assembled(tst, model, "s4")
	ubar := la.NewVector(s4.Test.Ndofs())
	xg, yg := grevilleAbscissae(s4.Test, 0), grevilleAbscissae(s4.Test, 1)
	for j := range yg {
		for i := range xg {
			ubar[i+len(xg)*j] = yg[j]
		}
	}
	Ku := la.NewVector(len(ubar))
	s4.Matrix.MatVec(Ku, ubar)
	chk.Float64(tst, "uᵀKu", 1e-12, la.VecDot(ubar, Ku), 4)
}

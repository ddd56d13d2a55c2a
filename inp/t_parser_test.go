// Copyright 2016 The Gofem Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package inp

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/cpmech/gosl/chk"
	"github.com/cpmech/gosl/io"
	"github.com/google/go-cmp/cmp"
	"github.com/ratnania/vale/sym"
)

const poissonBlock = `
# two decoupled Poisson problems sharing one linear system
Domain(dim=3, kind='structured') :: Omega
Space(domain=Omega, kind='h1') :: V

Field(V) :: phi, psi
Function(x,y,z) :: f, g

a1(v::V, u::V) := < grad(v) * grad(u) >_Omega
b1(v::V) := < f * v >_Omega
b2(v::V) := < g * v >_Omega

a((v1,v2)::V, (u1,u2)::V) := a1(v1,u1) + a1(v2,u2)
b((v1,v2)::V) := b1(v1) + b2(v2)
`

func Test_parse01(tst *testing.T) {

	//verbose()
	chk.PrintTitle("parse01. declarations of the block Poisson problem")

	prog, err := Parse("poisson_block.vl", poissonBlock)
	if err != nil {
		tst.Errorf("Parse failed:\n%v", err)
		return
	}

	var names []string
	for _, d := range prog.Decls {
		names = append(names, d.DeclName())
	}
	chk.Strings(tst, "names", names, []string{"Omega", "V", "phi", "psi", "f", "g", "a1", "b1", "b2", "a", "b"})

	dom := prog.Find("Omega").(*DomainDecl)
	chk.Int(tst, "dim", dom.Dim, 3)
	chk.String(tst, dom.Kind, "structured")
	chk.Int(tst, "Omega line", dom.Pos.Line, 3)

	psi := prog.Find("psi").(*FieldDecl)
	chk.String(tst, psi.Space, "V")

	f := prog.Find("f").(*FunctionDecl)
	chk.Strings(tst, "f args", f.Args, []string{"x", "y", "z"})

	a1 := prog.Find("a1").(*FormDef)
	if !a1.Bilinear() {
		tst.Errorf("a1 must be bilinear")
		return
	}
	chk.Int(tst, "a1 terms", len(a1.Body), 1)
	chk.String(tst, a1.Body[0].Integral.Expr.String(), "(grad(v)*grad(u))")
	chk.String(tst, a1.Body[0].Integral.Domain, "Omega")

	a := prog.Find("a").(*FormDef)
	chk.Strings(tst, "a test", a.Test.Names, []string{"v1", "v2"})
	chk.Strings(tst, "a trial", a.Trial.Names, []string{"u1", "u2"})
	chk.Int(tst, "a terms", len(a.Body), 2)
	if diff := cmp.Diff(a.Body[1].Call, &FormCall{Name: "a1", Args: [][]string{{"v2"}, {"u2"}}}); diff != "" {
		tst.Errorf("a.Body[1].Call mismatch (-got +want):\n%s", diff)
	}

	b := prog.Find("b").(*FormDef)
	if b.Bilinear() {
		tst.Errorf("b must be linear")
	}
}

func Test_parse02(tst *testing.T) {

	//verbose()
	chk.PrintTitle("parse02. determinism")

	p1, err := Parse("a.vl", poissonBlock)
	if err != nil {
		tst.Errorf("Parse failed:\n%v", err)
		return
	}
	p2, err := Parse("a.vl", poissonBlock)
	if err != nil {
		tst.Errorf("Parse failed:\n%v", err)
		return
	}
	if diff := cmp.Diff(p1, p2); diff != "" {
		tst.Errorf("parsing is not deterministic (-first +second):\n%s", diff)
	}
}

func Test_parse03(tst *testing.T) {

	//verbose()
	chk.PrintTitle("parse03. boundaries, constants and scaled terms")

	src := `
Domain(dim=2) :: Omega
Boundary(domain=Omega, sides='x-, y+') :: Gamma
Space(domain=Omega) :: V
Real :: alpha
Real(-2.5) :: beta
m(v::V, u::V) := - 2 * alpha * < v * u >_Omega + < (1 + x^2) * dot(grad(v), grad(u)) >_Omega
l(v::V) := beta * < v >_Gamma - < sin(pi*x) * v / 2 >_Omega ; k(v::V) := l(v)
`
	prog, err := Parse("b.vl", src)
	if err != nil {
		tst.Errorf("Parse failed:\n%v", err)
		return
	}
	gam := prog.Find("Gamma").(*BoundaryDecl)
	chk.Strings(tst, "sides", gam.Sides, []string{"x-", "y+"})
	sp := prog.Find("V").(*SpaceDecl)
	chk.String(tst, sp.Kind, "h1")
	alpha := prog.Find("alpha").(*RealDecl)
	if alpha.HasValue {
		tst.Errorf("alpha must not have a value")
	}
	beta := prog.Find("beta").(*RealDecl)
	chk.Float64(tst, "beta", 1e-15, beta.Value, -2.5)

	m := prog.Find("m").(*FormDef)
	chk.Int(tst, "m terms", len(m.Body), 2)
	chk.String(tst, m.Body[0].Coef.String(), "(-2*alpha)")
	chk.String(tst, m.Body[1].Coef.String(), "1")

	l := prog.Find("l").(*FormDef)
	chk.String(tst, l.Body[0].Integral.Domain, "Gamma")
	chk.String(tst, l.Body[1].Coef.String(), "-1")
	if prog.Find("k") == nil {
		tst.Errorf("';' must separate statements")
	}
}

func Test_parse04(tst *testing.T) {

	//verbose()
	chk.PrintTitle("parse04. syntax errors")

	cases := []struct {
		src  string
		line int
		col  int
		msg  string
	}{
		{"Domain(dim=3 :: Omega", 1, 7, "unmatched"},
		{"Domain(dim=2) :: Omega\nSpac(domain=Omega) :: V", 2, 1, "unknown declaration keyword"},
		{"Domain(dim=2) :: Omega\nField(V, W) :: phi", 2, 1, "wrong arity"},
		{"Domain(dim=4) :: Omega", 1, 12, "dimension"},
		{"Domain(dim=2) :: Omega\na(v::V) := < v * (1 + x >_Omega", 2, 18, "unmatched"},
		{"a(v::V) := < grad(v, v) >_Omega", 1, 14, "wrong arity"},
		{"a(v::V, u::V, w::V) := < v >_Omega", 1, 2, "wrong arity"},
		{"a(v::V) := < v >_Omega )", 1, 24, "unmatched"},
		{"a(v::V) := 2 * 3", 1, 12, "expected an integral"},
		{"Domain(dim=2) :: Omega $", 1, 24, "unexpected character"},
		{"Boundary(domain=Omega, sides='w+') :: G", 1, 30, "unknown side"},
		{"a(v::V) := < v > _Omega\nb(v::V) := < v >_Omega", 1, 16, "unmatched '<' at 1:12"},
	}
	for _, c := range cases {
		_, err := Parse("bad.vl", c.src)
		var se *SyntaxError
		if !errors.As(err, &se) {
			tst.Errorf("%q: expected SyntaxError; got %v", c.src, err)
			continue
		}
		io.Pforan("%v\n", se)
		chk.Int(tst, io.Sf("%q line", c.src), se.Pos.Line, c.line)
		chk.Int(tst, io.Sf("%q col", c.src), se.Pos.Col, c.col)
		if !strings.Contains(se.Msg, c.msg) {
			tst.Errorf("%q: message %q should contain %q", c.src, se.Msg, c.msg)
		}
	}
}

func Test_parse06(tst *testing.T) {

	//verbose()
	chk.PrintTitle("parse06. blank lines, comments and empty statements")

	for _, src := range []string{
		"\nDomain(dim=3, kind='structured') :: Omega\n",
		"# comment\nDomain(dim=3, kind='structured') :: Omega",
		";; \n\t\nDomain(dim=3, kind='structured') :: Omega ;\n",
	} {
		prog, err := Parse("blank.vl", src)
		if err != nil {
			tst.Errorf("%q: Parse failed:\n%v", src, err)
			continue
		}
		chk.Int(tst, io.Sf("%q: number of declarations", src), len(prog.Decls), 1)
		dom := prog.Find("Omega").(*DomainDecl)
		chk.Int(tst, io.Sf("%q: dim", src), dom.Dim, 3)
	}

	for _, src := range []string{"", ";", "\n", "# only a comment", "\n\n;\n"} {
		prog, err := Parse("empty.vl", src)
		if err != nil {
			tst.Errorf("%q: Parse failed:\n%v", src, err)
			continue
		}
		chk.Int(tst, io.Sf("%q: number of declarations", src), len(prog.Decls), 0)
	}
}

func Test_parse05(tst *testing.T) {

	//verbose()
	chk.PrintTitle("parse05. standalone expressions")

	e, err := ParseExpr("2*x*(1-x)*y*(1-y) + 2*y*(1-y)*z*(1-z) + 2*z*(1-z)*x*(1-x)")
	if err != nil {
		tst.Errorf("ParseExpr failed:\n%v", err)
		return
	}
	chk.Strings(tst, "symbols", sym.FreeSymbols(e), []string{"x", "y", "z"})
	v, err := sym.Eval(e, map[string]float64{"x": 0.5, "y": 0.5, "z": 0.5})
	if err != nil {
		tst.Errorf("Eval failed:\n%v", err)
		return
	}
	chk.Float64(tst, "f(½,½,½)", 1e-15, v, 3*2*0.0625)

	e, err = ParseExpr("-x**2 ^ 1 + 2e-1/4")
	if err != nil {
		tst.Errorf("ParseExpr failed:\n%v", err)
		return
	}
	v, err = sym.Eval(e, map[string]float64{"x": 3})
	if err != nil {
		tst.Errorf("Eval failed:\n%v", err)
		return
	}
	chk.Float64(tst, "-x²+0.05", 1e-15, v, -9+0.05)

	_, err = ParseExpr("x +")
	if err == nil {
		tst.Errorf("incomplete expression should fail")
	}
	_, err = ParseExpr("x y")
	if err == nil {
		tst.Errorf("trailing tokens should fail")
	}
}

func Test_config01(tst *testing.T) {

	//verbose()
	chk.PrintTitle("config01. run configuration")

	dir := tst.TempDir()
	cfg := `
source: poisson_block.vl
discretization:
  nspans: [8, 8, 8]
  degree: [2, 2, 2]
functions:
  f: "2*x*(1-x)*y*(1-y) + 2*y*(1-y)*z*(1-z) + 2*z*(1-z)*x*(1-x)"
problem:
  matrix: a
  rhs: b
fields:
  - name: phi
    block: 0
    reference: "x*(1-x)*y*(1-y)*z*(1-z)"
`
	path := filepath.Join(dir, "run.yaml")
	err := os.WriteFile(path, []byte(cfg), 0644)
	if err != nil {
		tst.Errorf("cannot write config:\n%v", err)
		return
	}
	o, err := ReadConfig(path)
	if err != nil {
		tst.Errorf("ReadConfig failed:\n%v", err)
		return
	}
	chk.String(tst, o.Source, filepath.Join(dir, "poisson_block.vl"))
	chk.String(tst, o.Workdir, "input")
	chk.String(tst, o.LinSol.Name, "gmres")
	chk.Ints(tst, "bcmin", o.Discrete.BcMin, []int{0, 0, 0})
	chk.Array(tst, "max", 1e-15, o.Mapping.Max, []float64{1, 1, 1})
	chk.Int(tst, "npts", o.Fields[0].Npts, 20)

	// inconsistent lengths
	o.Discrete.Degree = []int{2, 2}
	if o.Validate() == nil {
		tst.Errorf("Validate should fail with inconsistent degree")
	}
}

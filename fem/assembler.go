// Copyright 2016 The Gofem Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package fem

import (
	"math"
	"sync"
	"time"

	"github.com/cpmech/gosl/io"
	"github.com/cpmech/gosl/utl"
	"github.com/ratnania/vale/gen"
	"github.com/ratnania/vale/geo"
	"github.com/ratnania/vale/shp"
	"golang.org/x/sync/errgroup"
)

// AssemblyError reports a failure while assembling a form
type AssemblyError struct {
	Form string
	Msg  string
}

func (o *AssemblyError) Error() string {
	return io.Sf("assembly of form %q failed: %s", o.Form, o.Msg)
}

// Assembler computes the matrix (bilinear) or vector (linear) of one form by looping over
// tensor-product elements and boundary faces
type Assembler struct {
	Form      *Form
	Nchunks   int           // number of chunks of the last assembly
	Elapsed   time.Duration // duration of the last assembly
	mu        sync.Mutex
	chunkSize int
}

// cell is one element (side < 0) or one boundary face of an integration part
type cell struct {
	part  int
	side  int
	index int
}

// chunkOut holds the contributions of one chunk of cells in cell order; J is empty for vectors
type chunkOut struct {
	I, J []int
	X    []float64
}

func newAssembler(form *Form) *Assembler {
	return &Assembler{Form: form, chunkSize: 4}
}

// Assemble computes the matrix or vector of the form; previous results are overwritten.
// Cells are split into chunks processed concurrently. Contributions are summed in cell order
// regardless of the number of workers
func (o *Assembler) Assemble() (err error) {

	// one assembly at a time
	if !o.mu.TryLock() {
		return o.fail("another assembly of this form is running")
	}
	defer o.mu.Unlock()
	start := time.Now()

	// kernel
	form := o.Form
	ev, err := form.evaluator()
	if err != nil {
		return
	}
	sp := form.Test.Shp
	if ev.Ndim != sp.Ndim || ev.Ndim != form.model.Mapping.Ndim() {
		return o.fail(io.Sf("kernel is %dD but the space is %dD and the mapping is %dD", ev.Ndim, sp.Ndim, form.model.Mapping.Ndim()))
	}
	if err = sp.Check(1e-10); err != nil {
		return o.fail(err.Error())
	}

	// coefficient fields
	fields := make([]*Field, len(ev.Fields))
	for i, name := range ev.Fields {
		fields[i], err = form.model.Field(name)
		if err != nil {
			return o.fail(err.Error())
		}
	}

	// cells
	var cells []cell
	for p, part := range ev.Parts {
		if !part.Boundary {
			for e := 0; e < sp.Nelems; e++ {
				cells = append(cells, cell{p, -1, e})
			}
			continue
		}
		for _, side := range part.Sides {
			for f := 0; f < sp.FaceNelems(side); f++ {
				cells = append(cells, cell{p, side, f})
			}
		}
	}

	// chunks
	nworkers := form.model.Ctx.Workers()
	nchunks := min(len(cells), o.chunkSize*nworkers)
	outs := make([]*chunkOut, nchunks)
	var g errgroup.Group
	g.SetLimit(nworkers)
	for c := 0; c < nchunks; c++ {
		lo, hi := c*len(cells)/nchunks, (c+1)*len(cells)/nchunks
		g.Go(func() error {
			w := o.newWorker(ev, fields)
			for _, cl := range cells[lo:hi] {
				if err := w.run(cl); err != nil {
					return err
				}
			}
			outs[c] = w.out
			return nil
		})
	}
	if err = g.Wait(); err != nil {
		return
	}

	// merge
	if form.Bilinear() {
		var I, J []int
		var X []float64
		for _, out := range outs {
			I = append(I, out.I...)
			J = append(J, out.J...)
			X = append(X, out.X...)
		}
		if form.Matrix == nil {
			form.Matrix = NewBlockMatrix(form.RowLayout(), form.ColLayout())
		}
		form.Matrix.set(I, J, X)
	} else {
		if form.Vector == nil {
			form.Vector = NewBlockVector(form.RowLayout())
		}
		F := form.Vector.Raw()
		for i := range F {
			F[i] = 0
		}
		for _, out := range outs {
			for k, i := range out.I {
				F[i] += out.X[k]
			}
		}
	}

	// message
	o.Nchunks = nchunks
	o.Elapsed = time.Since(start)
	if form.model.Ctx.Verbose {
		if form.Bilinear() {
			io.Pf(">> Form %q: %d cells in %d chunks; nnz = %d; time = %v\n", form.Name, len(cells), nchunks, form.Matrix.Nnz(), o.Elapsed)
		} else {
			io.Pf(">> Form %q: %d cells in %d chunks; time = %v\n", form.Name, len(cells), nchunks, o.Elapsed)
		}
	}
	return
}

func (o *Assembler) fail(msg string) error {
	return &AssemblyError{o.Form.Name, msg}
}

// worker //////////////////////////////////////////////////////////////////////////////////////////

// worker holds the scratch data of one chunk
type worker struct {
	asm      *Assembler
	ev       *gen.Evaluator
	sp       *shp.Space
	mapping  geo.Mapping
	bilinear bool
	ntest    int
	ntrial   int
	nloc     int
	rowsz    int // size of test blocks
	colsz    int // size of trial blocks

	// basis and numbering
	D    [][][]float64
	u    [][]float64
	w    []float64
	span []int
	teqs []int
	ueqs []int

	// geometry and coefficients
	x      []float64
	J      [][]float64
	invJ   [][]float64
	pt     gen.Point
	coefs  []float64
	fields []*Field
	feqs   [][]int

	// element contributions
	local []float64
	test  gen.BasisEval
	trial gen.BasisEval
	out   *chunkOut
}

func (o *Assembler) newWorker(ev *gen.Evaluator, fields []*Field) (w *worker) {
	form := o.Form
	sp := form.Test.Shp
	ndim := sp.Ndim
	w = &worker{
		asm:      o,
		ev:       ev,
		sp:       sp,
		mapping:  form.model.Mapping,
		bilinear: form.Bilinear(),
		ntest:    form.Ntest(),
		ntrial:   1,
		nloc:     sp.Nlocal,
		rowsz:    form.Test.Ndofs(),
		D:        sp.AllocBasis(sp.Nqp),
		u:        utl.Alloc(sp.Nqp, ndim),
		w:        make([]float64, sp.Nqp),
		span:     make([]int, ndim),
		teqs:     make([]int, sp.Nlocal),
		ueqs:     make([]int, sp.Nlocal),
		x:        make([]float64, ndim),
		J:        utl.Alloc(ndim, ndim),
		invJ:     utl.Alloc(ndim, ndim),
		fields:   fields,
		feqs:     make([][]int, len(fields)),
		out:      new(chunkOut),
	}
	if w.bilinear {
		w.ntrial = form.Ntrial()
		w.colsz = form.Trial.Ndofs()
	}
	nterms := 0
	for _, p := range ev.Parts {
		nterms = max(nterms, len(p.Terms))
	}
	w.coefs = make([]float64, nterms)
	w.pt = gen.Point{X: w.x, InvJ: w.invJ, Fields: utl.Alloc(len(fields), ndim+1)}
	for i := range fields {
		w.feqs[i] = make([]int, sp.Nlocal)
	}
	if w.bilinear {
		w.local = make([]float64, w.ntest*w.ntrial*w.nloc*w.nloc)
	} else {
		w.local = make([]float64, w.ntest*w.nloc)
	}
	return
}

// run computes and stores the contributions of one cell
func (o *worker) run(c cell) (err error) {

	// basis
	part := o.ev.Parts[c.part]
	nq := o.sp.Nqp
	if c.side < 0 {
		o.sp.SpanIndex(c.index, o.span)
		o.sp.ElemBasis(o.span, o.D, o.u, o.w)
	} else {
		o.sp.FaceSpan(c.side, c.index, o.span)
		o.sp.FaceBasis(c.side, o.span, o.D, o.u, o.w)
		nq = o.sp.FaceNqp(c.side)
	}

	// numbering
	form := o.asm.Form
	form.Test.Shp.LocalEquations(o.span, o.teqs)
	if o.bilinear {
		form.Trial.Shp.LocalEquations(o.span, o.ueqs)
	}
	for i, f := range o.fields {
		f.Space.Shp.LocalEquations(o.span, o.feqs[i])
	}

	// integration points
	for i := range o.local {
		o.local[i] = 0
	}
	for q := 0; q < nq; q++ {

		// geometry
		detJ := o.mapping.Eval(o.u[q], o.x, o.J)
		if !(detJ > 0) {
			return o.asm.fail(io.Sf("non-positive Jacobian determinant %g at u = %v", detJ, o.u[q]))
		}
		if _, err = geo.Metric(o.J, o.invJ); err != nil {
			return o.asm.fail(err.Error())
		}
		meas := o.w[q] * detJ
		if c.side >= 0 {
			s := 0.0
			for _, v := range o.invJ[c.side/2] {
				s += v * v
			}
			meas *= math.Sqrt(s)
		}

		// coefficient fields
		for i, f := range o.fields {
			vals := o.pt.Fields[i]
			for d := range vals {
				vals[d] = 0
			}
			for a, eq := range o.feqs[i] {
				if eq < 0 {
					continue
				}
				for d := range vals {
					vals[d] += f.Coefs[eq] * o.D[q][a][d]
				}
			}
		}

		// terms
		part.Prepare(&o.pt, o.coefs[:len(part.Terms)])
		for ta := 0; ta < o.ntest; ta++ {
			o.test.Block = ta
			for tb := 0; tb < o.ntrial; tb++ {
				if !part.Active(ta, tb) {
					continue
				}
				o.trial.Block = tb
				for a := 0; a < o.nloc; a++ {
					o.test.D = o.D[q][a]
					if !o.bilinear {
						o.local[ta*o.nloc+a] += meas * part.Value(o.coefs, nil, &o.test)
						continue
					}
					base := ((ta*o.ntrial+tb)*o.nloc + a) * o.nloc
					for b := 0; b < o.nloc; b++ {
						o.trial.D = o.D[q][b]
						o.local[base+b] += meas * part.Value(o.coefs, &o.trial, &o.test)
					}
				}
			}
		}
	}

	// store
	return o.store(part.Active)
}

// store adds the element contributions to the chunk buffers skipping eliminated functions
func (o *worker) store(active func(test, trial int) bool) error {
	for ta := 0; ta < o.ntest; ta++ {
		for tb := 0; tb < o.ntrial; tb++ {
			if !active(ta, tb) {
				continue
			}
			for a, I := range o.teqs {
				if I < 0 {
					continue
				}
				if I >= o.rowsz {
					return o.asm.fail(io.Sf("test equation %d is out of range [0,%d)", I, o.rowsz))
				}
				row := ta*o.rowsz + I
				if !o.bilinear {
					v := o.local[ta*o.nloc+a]
					if math.IsNaN(v) || math.IsInf(v, 0) {
						return o.asm.fail(io.Sf("invalid value %g at row %d", v, row))
					}
					o.out.I = append(o.out.I, row)
					o.out.X = append(o.out.X, v)
					continue
				}
				base := ((ta*o.ntrial+tb)*o.nloc + a) * o.nloc
				for b, J := range o.ueqs {
					if J < 0 {
						continue
					}
					if J >= o.colsz {
						return o.asm.fail(io.Sf("trial equation %d is out of range [0,%d)", J, o.colsz))
					}
					v := o.local[base+b]
					if math.IsNaN(v) || math.IsInf(v, 0) {
						return o.asm.fail(io.Sf("invalid value %g at entry (%d,%d)", v, row, tb*o.colsz+J))
					}
					o.out.I = append(o.out.I, row)
					o.out.J = append(o.out.J, tb*o.colsz+J)
					o.out.X = append(o.out.X, v)
				}
			}
		}
	}
	return nil
}

// Copyright 2016 The Gofem Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package fem

import (
	"sort"

	"github.com/cpmech/gosl/io"
	"github.com/cpmech/gosl/la"
)

// Layout holds the partition of a global index range into contiguous blocks
type Layout struct {
	Sizes   []int // size of each block
	Offsets []int // first global index of each block; len(Offsets) == len(Sizes)+1
}

// NewLayout returns a new layout
func NewLayout(sizes ...int) (o *Layout) {
	o = &Layout{Sizes: sizes, Offsets: make([]int, len(sizes)+1)}
	for i, n := range sizes {
		o.Offsets[i+1] = o.Offsets[i] + n
	}
	return
}

// Nblocks returns the number of blocks
func (o *Layout) Nblocks() int { return len(o.Sizes) }

// Size returns the total size
func (o *Layout) Size() int { return o.Offsets[len(o.Sizes)] }

// Locate returns the block and the local index of global index i
func (o *Layout) Locate(i int) (block, local int) {
	block = sort.SearchInts(o.Offsets[1:], i+1)
	return block, i - o.Offsets[block]
}

// BlockLayoutError reports data whose sizes do not match a layout
type BlockLayoutError struct {
	Want []int // block sizes of the layout
	Got  []int // sizes of the given data
}

func (o *BlockLayoutError) Error() string {
	return io.Sf("block layout mismatch: want sizes %v; got %v", o.Want, o.Got)
}

// vector //////////////////////////////////////////////////////////////////////////////////////////

// BlockVector holds a vector partitioned into blocks
type BlockVector struct {
	Layout *Layout
	data   la.Vector
}

// NewBlockVector returns a new zero vector
func NewBlockVector(layout *Layout) *BlockVector {
	return &BlockVector{Layout: layout, data: la.NewVector(layout.Size())}
}

// Get returns copies of the data as one flat vector or, if asMatrix, as one vector per block
func (o *BlockVector) Get(asMatrix bool) (flat la.Vector, blocks []la.Vector) {
	if asMatrix {
		return nil, o.Blocks()
	}
	return o.Flat(), nil
}

// Flat returns a copy of the data
func (o *BlockVector) Flat() la.Vector {
	res := la.NewVector(len(o.data))
	copy(res, o.data)
	return res
}

// Blocks returns a copy of the data, one vector per block
func (o *BlockVector) Blocks() (blocks []la.Vector) {
	blocks = make([]la.Vector, o.Layout.Nblocks())
	for i := range blocks {
		blocks[i] = o.Block(i)
	}
	return
}

// Block returns a copy of block i
func (o *BlockVector) Block(i int) la.Vector {
	res := la.NewVector(o.Layout.Sizes[i])
	copy(res, o.data[o.Layout.Offsets[i]:o.Layout.Offsets[i+1]])
	return res
}

// Set sets all data from a flat vector
func (o *BlockVector) Set(flat []float64) error {
	if len(flat) != len(o.data) {
		return &BlockLayoutError{[]int{len(o.data)}, []int{len(flat)}}
	}
	copy(o.data, flat)
	return nil
}

// SetBlocks sets all data from one vector per block
func (o *BlockVector) SetBlocks(blocks []la.Vector) error {
	got := make([]int, len(blocks))
	for i, b := range blocks {
		got[i] = len(b)
	}
	ok := len(blocks) == o.Layout.Nblocks()
	for i := 0; ok && i < len(blocks); i++ {
		ok = got[i] == o.Layout.Sizes[i]
	}
	if !ok {
		return &BlockLayoutError{o.Layout.Sizes, got}
	}
	for i, b := range blocks {
		copy(o.data[o.Layout.Offsets[i]:], b)
	}
	return nil
}

// Raw returns the underlying data; changes are reflected in the vector
func (o *BlockVector) Raw() la.Vector { return o.data }

// matrix //////////////////////////////////////////////////////////////////////////////////////////

// BlockMatrix holds a sparse matrix in coordinate format partitioned into blocks.
// Rows correspond to test functions and columns to trial functions.
// Entries are unique and sorted by row then column
type BlockMatrix struct {
	Rows *Layout   // row blocks
	Cols *Layout   // column blocks
	I    []int     // row indices
	J    []int     // column indices
	X    []float64 // values
}

// NewBlockMatrix returns a new empty matrix
func NewBlockMatrix(rows, cols *Layout) *BlockMatrix {
	return &BlockMatrix{Rows: rows, Cols: cols}
}

// Shape returns the number of rows and columns
func (o *BlockMatrix) Shape() (m, n int) { return o.Rows.Size(), o.Cols.Size() }

// Nnz returns the number of stored entries
func (o *BlockMatrix) Nnz() int { return len(o.X) }

// Flat returns the whole matrix as a triplet
func (o *BlockMatrix) Flat() *la.Triplet {
	m, n := o.Shape()
	t := new(la.Triplet)
	t.Init(m, n, len(o.X)+1)
	for k, x := range o.X {
		t.Put(o.I[k], o.J[k], x)
	}
	return t
}

// Block returns block (i,j) as a triplet with local indices
func (o *BlockMatrix) Block(i, j int) *la.Triplet {
	r0, r1 := o.Rows.Offsets[i], o.Rows.Offsets[i+1]
	c0, c1 := o.Cols.Offsets[j], o.Cols.Offsets[j+1]
	var nnz int
	for k := range o.X {
		if o.I[k] >= r0 && o.I[k] < r1 && o.J[k] >= c0 && o.J[k] < c1 {
			nnz++
		}
	}
	t := new(la.Triplet)
	t.Init(r1-r0, c1-c0, nnz+1)
	for k, x := range o.X {
		if o.I[k] >= r0 && o.I[k] < r1 && o.J[k] >= c0 && o.J[k] < c1 {
			t.Put(o.I[k]-r0, o.J[k]-c0, x)
		}
	}
	return t
}

// ToCC returns the compressed-column form of the matrix
func (o *BlockMatrix) ToCC() *la.CCMatrix {
	return o.Flat().ToMatrix(nil)
}

// MatVec computes v := A·u
func (o *BlockMatrix) MatVec(v, u la.Vector) {
	la.SpTriMatVecMul(v, o.Flat(), u)
}

// Dense returns the dense form of the matrix
func (o *BlockMatrix) Dense() [][]float64 {
	return o.Flat().ToDense().GetDeep2()
}

// Get returns the entry (i,j); zero if not stored
func (o *BlockMatrix) Get(i, j int) float64 {
	lo := sort.Search(len(o.X), func(k int) bool { return o.I[k] > i || (o.I[k] == i && o.J[k] >= j) })
	if lo < len(o.X) && o.I[lo] == i && o.J[lo] == j {
		return o.X[lo]
	}
	return 0
}

// set replaces all entries with the sum of duplicates in (I,J,X), keeping the order of
// summation of duplicates as given
func (o *BlockMatrix) set(I, J []int, X []float64) {
	idx := make([]int, len(X))
	for k := range idx {
		idx[k] = k
	}
	sort.SliceStable(idx, func(a, b int) bool {
		ka, kb := idx[a], idx[b]
		if I[ka] != I[kb] {
			return I[ka] < I[kb]
		}
		return J[ka] < J[kb]
	})
	o.I, o.J, o.X = o.I[:0], o.J[:0], o.X[:0]
	for _, k := range idx {
		n := len(o.X)
		if n > 0 && o.I[n-1] == I[k] && o.J[n-1] == J[k] {
			o.X[n-1] += X[k]
			continue
		}
		o.I = append(o.I, I[k])
		o.J = append(o.J, J[k])
		o.X = append(o.X, X[k])
	}
}

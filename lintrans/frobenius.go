package lintrans

import (
	"fmt"

	"github.com/tuneinsight/lattigo/v6/ring"

	"github.com/galoislab/slotlin/slots"
)

// BlockIndex is the (row, column) position of an entry of a d x d block.
type BlockIndex struct {
	Row, Col int
}

// SparseBlock is a sparse d x d matrix over Z/p^eZ. Absent entries are zero.
type SparseBlock map[BlockIndex]uint64

// Set sets the entry (row, col) of the block to value.
func (b SparseBlock) Set(row, col int, value uint64) {
	b[BlockIndex{Row: row, Col: col}] = value
}

// FrobeniusCompiler decomposes Z/p^eZ-linear maps of a slot into sums of
// Frobenius powers, A = sum_i c_i * pi^i, where pi is X -> X^p and c_i are
// elements of the slot.
//
// The block A acts on the power basis T[t] = e*X^t of the slot:
// A(T[c]) = sum_r A[r][c] * T[r]. With the trace-dual basis given by the
// inverse Gram matrix Ginv of the trace form, the decomposition is
//
//	c_i = sum_{r, u} (A * Ginv)[r][u] * T[r + u * p^i]
//
// so that every term is read from the power table.
type FrobeniusCompiler struct {
	view      *slots.SubringView
	table     *PowerTable
	frobenius []int
}

// NewFrobeniusCompiler creates a new [FrobeniusCompiler] for the view of a
// slot of the ring of degree N, given the power table of e*X in that view.
func NewFrobeniusCompiler(view *slots.SubringView, p uint64, N int, table *PowerTable) *FrobeniusCompiler {

	mask := uint64(2*N) - 1

	frobenius := make([]int, view.Rank)
	for i, f := 0, uint64(1); i < view.Rank; i, f = i+1, (f*p)&mask {
		frobenius[i] = int(f)
	}

	return &FrobeniusCompiler{view: view, table: table, frobenius: frobenius}
}

// Rank returns the number d of coefficients returned by [FrobeniusCompiler.Compile].
func (fc FrobeniusCompiler) Rank() int {
	return fc.view.Rank
}

// Compile returns the d coefficients c_i of the decomposition of block.
// The method panics if an index of block is outside [0, d).
func (fc FrobeniusCompiler) Compile(block SparseBlock) (coeffs []ring.Poly) {

	r := fc.view.Ring
	q := r.Modulus()
	d := fc.view.Rank
	dual := fc.view.DualGram()

	// M = A * Ginv, rows indexed by the output coordinate.
	m := map[int][]uint64{}
	for idx, a := range block {

		if idx.Row < 0 || idx.Row >= d || idx.Col < 0 || idx.Col >= d {
			panic(fmt.Errorf("cannot Compile: block index (%d, %d) is outside of [0, %d)", idx.Row, idx.Col, d))
		}

		if a%q == 0 {
			continue
		}

		row, ok := m[idx.Row]
		if !ok {
			row = make([]uint64, d)
			m[idx.Row] = row
		}

		for u, g := range dual[idx.Col] {
			row[u] = ring.CRed(row[u]+r.MulMod(a, g), q)
		}
	}

	coeffs = make([]ring.Poly, d)
	for i := range coeffs {
		coeffs[i] = r.NewPoly()
		for row, mRow := range m {
			for u, c := range mRow {
				if c != 0 {
					fc.table.MulScalarThenAdd(row+u*fc.frobenius[i], c, coeffs[i])
				}
			}
		}
	}

	return
}

// CompileFrobenius is a one-shot version of [FrobeniusCompiler.Compile].
func CompileFrobenius(block SparseBlock, view *slots.SubringView, p uint64, N int, table *PowerTable) []ring.Poly {
	return NewFrobeniusCompiler(view, p, N, table).Compile(block)
}

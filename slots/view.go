package slots

import (
	"fmt"

	"github.com/tuneinsight/lattigo/v6/ring"

	"github.com/galoislab/slotlin/cyclo"
)

// SubringView is the view of the ideal e*R of the ring R, for an idempotent e,
// as a ring of its own with identity e and power basis e*X^t for t < Rank.
//
// For the view of a slot, the trace to Z/p^eZ of y in e*R is N * y_0 * e, where
// y_0 is the constant coefficient of y. The view stores the inverse of the Gram
// matrix of this trace form on the power basis, from which the trace-dual basis
// is derived.
type SubringView struct {
	Ring  *cyclo.Ring
	One   ring.Poly
	Rank  int
	Prime uint64

	dualGram [][]uint64
}

func newSubringView(r *cyclo.Ring, one ring.Poly, rank int, prime uint64) (v *SubringView, err error) {

	q := r.Modulus()
	N := uint64(r.N()) % q

	// G[s][t] = Tr(e X^(s+t)) = N * const(e X^(s+t))
	gram := make([][]uint64, rank)
	for s := range gram {
		gram[s] = make([]uint64, rank)
		for t := range gram[s] {
			gram[s][t] = r.MulMod(N, r.Coefficient(one, -(s+t)))
		}
	}

	var dual [][]uint64
	if dual, err = cyclo.InvertMatrix(gram, q, prime); err != nil {
		return nil, fmt.Errorf("trace form is degenerate: %w", ErrInvalidRing)
	}

	return &SubringView{
		Ring:     r,
		One:      one,
		Rank:     rank,
		Prime:    prime,
		dualGram: dual,
	}, nil
}

// DualGram returns the inverse of the Gram matrix of the trace form on the
// power basis. The returned matrix must not be modified.
func (v SubringView) DualGram() [][]uint64 {
	return v.dualGram
}

// Coordinates returns the coordinates of y in e*R on the power basis e*X^t.
func (v SubringView) Coordinates(y ring.Poly) (coords []uint64) {

	r := v.Ring
	q := r.Modulus()
	N := uint64(r.N()) % q

	// <y, e X^u> = N * const(y X^u)
	pairing := make([]uint64, v.Rank)
	for u := range pairing {
		pairing[u] = r.MulMod(N, r.Coefficient(y, -u))
	}

	coords = make([]uint64, v.Rank)
	for t := range coords {
		var acc uint64
		for u, g := range v.dualGram[t] {
			acc = ring.CRed(acc+r.MulMod(g, pairing[u]), q)
		}
		coords[t] = acc
	}

	return
}

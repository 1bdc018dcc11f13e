package lintrans

import (
	"fmt"

	"github.com/tuneinsight/lattigo/v6/ring"

	"github.com/galoislab/slotlin/cyclo"
	"github.com/galoislab/slotlin/slots"
)

// PowerTable stores the powers g^0, g^1, ..., g^(n-1) of an element g of a
// [slots.SubringView] satisfying g^n = -1, so that g^k can be read for any
// integer k.
type PowerTable struct {
	view      *slots.SubringView
	halfOrder int
	content   []ring.Poly
}

// NewPowerTable computes the power table of generator in view.
// It returns an error wrapping [slots.ErrInvalidRing] if generator^halfOrder != -1
// in view.
func NewPowerTable(view *slots.SubringView, generator ring.Poly, halfOrder int) (pt *PowerTable, err error) {

	if halfOrder < 1 {
		return nil, fmt.Errorf("cannot NewPowerTable: halfOrder must be positive but is %d", halfOrder)
	}

	r := view.Ring

	content := make([]ring.Poly, halfOrder)
	content[0] = r.CopyNew(view.One)
	for i := 1; i < halfOrder; i++ {
		content[i] = r.NewPoly()
		r.Mul(content[i-1], generator, content[i])
	}

	last := r.NewPoly()
	r.Mul(content[halfOrder-1], generator, last)
	r.Add(last, view.One, last)

	if !r.IsZero(last) {
		return nil, fmt.Errorf("cannot NewPowerTable: generator^%d != -1: %w", halfOrder, slots.ErrInvalidRing)
	}

	return &PowerTable{view: view, halfOrder: halfOrder, content: content}, nil
}

// Len returns the half order n of the generator.
func (pt PowerTable) Len() int {
	return pt.halfOrder
}

// View returns the view in which the powers live.
func (pt PowerTable) View() *slots.SubringView {
	return pt.view
}

// At returns a copy of generator^k for any integer k.
func (pt PowerTable) At(k int) ring.Poly {
	r := pt.view.Ring
	i, negate := pt.reduce(k)
	p := r.CopyNew(pt.content[i])
	if negate {
		r.Neg(p, p)
	}
	return p
}

// MulScalarThenAdd evaluates acc = acc + scalar * generator^k.
func (pt PowerTable) MulScalarThenAdd(k int, scalar uint64, acc ring.Poly) {
	r := pt.view.Ring
	i, negate := pt.reduce(k)
	if negate {
		scalar = r.Modulus() - scalar%r.Modulus()
	}
	r.MulScalarThenAdd(pt.content[i], scalar, acc)
}

func (pt PowerTable) reduce(k int) (i int, negate bool) {
	k = cyclo.Mod(k, 2*pt.halfOrder)
	if k >= pt.halfOrder {
		return k - pt.halfOrder, true
	}
	return k, false
}

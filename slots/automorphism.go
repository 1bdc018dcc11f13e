package slots

import (
	"github.com/tuneinsight/lattigo/v6/ring"

	"github.com/galoislab/slotlin/cyclo"
)

// Automorphism is the ring automorphism X -> X^GaloisElement.
type Automorphism struct {
	GaloisElement uint64
	ring          *cyclo.Ring
}

// Apply evaluates p2 = p1(X^GaloisElement). p2 can alias p1.
func (a Automorphism) Apply(p1, p2 ring.Poly) {
	a.ring.Automorphism(p1, a.GaloisElement, p2)
}

// ApplyNew returns p(X^GaloisElement).
func (a Automorphism) ApplyNew(p ring.Poly) ring.Poly {
	return a.ring.AutomorphismNew(p, a.GaloisElement)
}

// Compose returns the automorphism x -> a(b(x)).
func (a Automorphism) Compose(b Automorphism) Automorphism {
	mask := uint64(2*a.ring.N() - 1)
	return Automorphism{GaloisElement: (a.GaloisElement * b.GaloisElement) & mask, ring: a.ring}
}

// Inverse returns the inverse automorphism.
func (a Automorphism) Inverse() Automorphism {
	inv, err := cyclo.ModInverse(a.GaloisElement, uint64(2*a.ring.N()))
	if err != nil {
		panic(err)
	}
	return Automorphism{GaloisElement: inv, ring: a.ring}
}

// Package slots implements the slot structure of the ring Z/p^eZ[X]/(X^N+1).
//
// The polynomial X^N+1 splits modulo p into N/d irreducible factors of degree
// d = ord_{2N}(p), so that the ring is isomorphic to a product of N/d copies of
// the Galois ring GR(p^e, d), the slots. The Galois group G = (Z/2NZ)^* = <5> x <-1>
// acts transitively on the slots and the stabilizer of a slot is the group
// generated by the Frobenius X -> X^p. The slots are therefore indexed by the
// elements of the slot group H = G/<p>, which is generated by the images of 5
// and -1.
package slots

import (
	"errors"
	"fmt"

	"github.com/google/go-cmp/cmp"
	"github.com/tuneinsight/lattigo/v6/ring"
	"github.com/tuneinsight/lattigo/v6/utils/sampling"

	"github.com/galoislab/slotlin/cyclo"
)

// GaloisGen is the generator of the subgroup of (Z/2NZ)^* of order N/2.
const GaloisGen uint64 = ring.GaloisGen

// ErrInvalidRing is returned when the ring does not have the expected
// slot structure.
var ErrInvalidRing = errors.New("invalid ring")

// SlotRing is the descriptor of the slot structure of Z/p^eZ[X]/(X^N+1).
// It is immutable after creation and meant to be shared by reference by all
// the objects that depend on it.
type SlotRing struct {
	params ParametersLiteral
	ring   *cyclo.Ring

	nthRoot      uint64
	slotRank     int
	slotG1       int
	slotG2       int
	frobenius    []uint64
	frobeniusLog map[uint64]int
	discreteLg   map[uint64]int

	slotView *SubringView
}

// NewSlotRingFromLiteral creates a new [SlotRing] from a [ParametersLiteral].
func NewSlotRingFromLiteral(params ParametersLiteral) (s *SlotRing, err error) {

	if err = params.Validate(); err != nil {
		return nil, fmt.Errorf("cannot NewSlotRingFromLiteral: %w", err)
	}

	s = &SlotRing{params: params}

	N := 1 << params.LogN

	if s.ring, err = cyclo.NewRing(N, params.Modulus()); err != nil {
		return nil, fmt.Errorf("cannot NewSlotRingFromLiteral: %w", err)
	}

	s.nthRoot = uint64(2 * N)

	s.discreteLg = make(map[uint64]int, N>>1)
	for k, g := 0, uint64(1); k < N>>1; k, g = k+1, (g*GaloisGen)&(s.nthRoot-1) {
		s.discreteLg[g] = k
	}

	p := params.Prime % s.nthRoot

	s.slotRank = int(cyclo.MultiplicativeOrder(p, s.nthRoot))

	s.frobenius = make([]uint64, s.slotRank)
	s.frobeniusLog = make(map[uint64]int, s.slotRank)
	for i, f := 0, uint64(1); i < s.slotRank; i, f = i+1, (f*p)%s.nthRoot {
		s.frobenius[i] = f
		s.frobeniusLog[f] = i
	}

	if err = s.genSlotGroup(); err != nil {
		return nil, fmt.Errorf("cannot NewSlotRingFromLiteral: %w", err)
	}

	if err = s.genSlotView(); err != nil {
		return nil, fmt.Errorf("cannot NewSlotRingFromLiteral: %w", err)
	}

	return
}

// NewSlotRing creates a new [SlotRing] for the ring Z/p^eZ[X]/(X^N+1) with N = 2^logN.
//
// The slot idempotent is computed with schoolbook products in the degree N
// and its lift modulo p^e costs O(N^2) per doubling of the precision. For
// p = 3 mod 4 it also factors Y^M+1 over F_p with Cantor-Zassenhaus, where M
// divides N and is at most the largest power of two dividing p+1.
// Descriptors are meant to be created once and shared.
func NewSlotRing(logN int, prime uint64, exponent int) (*SlotRing, error) {
	return NewSlotRingFromLiteral(ParametersLiteral{LogN: logN, Prime: prime, Exponent: exponent})
}

// genSlotGroup finds the orders of the images of 5 and -1 in H = G/<p>.
func (s *SlotRing) genSlotGroup() error {

	inFrobenius := func(g uint64) bool {
		_, ok := s.frobeniusLog[g]
		return ok
	}

	order := 1
	for g := GaloisGen; !inFrobenius(g); g = (g * GaloisGen) & (s.nthRoot - 1) {
		order++
	}

	s.slotG1 = order

	// -1 is in <5, p> if and only if p = 3 mod 4, in which case H is cyclic.
	s.slotG2 = 2
	for k := 0; k < order; k++ {
		if inFrobenius(s.GaloisElement(k, 1)) {
			s.slotG2 = 1
			break
		}
	}

	if s.slotG1*s.slotG2*s.slotRank != s.N() {
		return fmt.Errorf("slot group has order %d but the ring has %d slots: %w", s.slotG1*s.slotG2, s.N()/s.slotRank, ErrInvalidRing)
	}

	return nil
}

// genSlotView computes the idempotent of the first slot and the associated view.
func (s *SlotRing) genSlotView() (err error) {

	N := s.N()
	fp := newFpRing(s.params.Prime)

	// X^N + 1
	F := make([]uint64, N+1)
	F[0], F[N] = 1, 1

	var idempotent []uint64

	if s.slotRank == N {
		idempotent = []uint64{1}
	} else {

		var f0 []uint64
		if f0, err = s.slotFactor(fp); err != nil {
			return
		}

		h, _ := fp.polyDivMod(F, f0)

		var u []uint64
		if u, err = fp.inverseMod(h, f0); err != nil {
			return fmt.Errorf("X^N+1 is not squarefree: %w", ErrInvalidRing)
		}

		idempotent = fp.polyMul(u, h)
	}

	r := s.ring
	e0 := r.NewPolyFromCoefficients(idempotent)

	// Lifts e0 from Z/pZ to Z/p^eZ with e <- 3e^2 - 2e^3.
	tmp := r.NewPoly()
	for precision := 1; precision < s.params.Exponent; precision <<= 1 {
		sq := r.NewPoly()
		r.Mul(e0, e0, sq)
		r.Mul(sq, e0, tmp)
		r.MulScalar(sq, 3, sq)
		r.MulScalarThenAdd(tmp, r.Modulus()-2, sq)
		e0 = sq
	}

	r.Mul(e0, e0, tmp)
	if !r.Equal(tmp, e0) {
		return fmt.Errorf("slot element is not idempotent: %w", ErrInvalidRing)
	}

	s.slotView, err = newSubringView(r, e0, s.slotRank, s.params.Prime)

	return
}

// slotFactor returns a monic irreducible factor of X^N+1 over F_p.
//
// With M the smallest power of two such that X^N+1 and Y^M+1, Y = X^(N/M),
// have the same number of irreducible factors, the factors of X^N+1 are the
// f(X^(N/M)) for f a factor of Y^M+1. If the factors of Y^M+1 are linear,
// Y - c is returned for a root c = a^((p-1)/2M) of Y^M+1. Otherwise Y^M+1 is
// split with Cantor-Zassenhaus, whose cost grows with M^2.
func (s SlotRing) slotFactor(fp fpRing) (factor []uint64, err error) {

	N := s.N()
	p := fp.p
	count := N / s.slotRank

	M := N
	for M > count {
		half := M >> 1
		if half < count || int(cyclo.MultiplicativeOrder(p%uint64(M), uint64(M)))*count != half {
			break
		}
		M = half
	}

	rank := M / count

	var prng sampling.PRNG
	if prng, err = sampling.NewKeyedPRNG([]byte{'s', 'l', 'o', 't', 's'}); err != nil {
		return
	}

	var f []uint64

	if rank == 1 {

		e := (p - 1) / uint64(2*M)
		a := make([]uint64, 1)

		for f == nil {
			if err = cyclo.ReadUniform(prng, p, a); err != nil {
				return nil, fmt.Errorf("cannot sample root of Y^%d+1: %w", M, err)
			}
			if c := ring.ModExp(a[0], e, p); ring.ModExp(c, uint64(M), p) == p-1 {
				f = []uint64{p - c, 1}
			}
		}

	} else {

		// Y^M + 1
		G := make([]uint64, M+1)
		G[0], G[M] = 1, 1

		var factors [][]uint64
		if factors, err = fp.equalDegreeFactors(G, rank, prng); err != nil {
			return nil, fmt.Errorf("cannot factor Y^%d+1: %w", M, err)
		}

		if len(factors) != count {
			return nil, fmt.Errorf("Y^%d+1 has %d factors but %d were expected: %w", M, len(factors), count, ErrInvalidRing)
		}

		f = factors[0]
	}

	gap := N / M
	factor = make([]uint64, (len(f)-1)*gap+1)
	for i, c := range f {
		factor[i*gap] = c
	}

	return
}

// ParametersLiteral returns the [ParametersLiteral] of the target [SlotRing].
func (s SlotRing) ParametersLiteral() ParametersLiteral {
	return s.params
}

// Ring returns the underlying polynomial ring.
func (s SlotRing) Ring() *cyclo.Ring {
	return s.ring
}

// N returns the ring degree.
func (s SlotRing) N() int {
	return s.ring.N()
}

// LogN returns log2 of the ring degree.
func (s SlotRing) LogN() int {
	return s.params.LogN
}

// NthRoot returns 2N.
func (s SlotRing) NthRoot() uint64 {
	return s.nthRoot
}

// Prime returns p.
func (s SlotRing) Prime() uint64 {
	return s.params.Prime
}

// Exponent returns e.
func (s SlotRing) Exponent() int {
	return s.params.Exponent
}

// Modulus returns p^e.
func (s SlotRing) Modulus() uint64 {
	return s.ring.Modulus()
}

// SlotRank returns the degree d of the slots over Z/p^eZ.
func (s SlotRing) SlotRank() int {
	return s.slotRank
}

// SlotCount returns the number of slots N/d.
func (s SlotRing) SlotCount() int {
	return s.slotG1 * s.slotG2
}

// SlotG1Order returns the order of the image of 5 in the slot group.
func (s SlotRing) SlotG1Order() int {
	return s.slotG1
}

// SlotG2Order returns the order (1 or 2) of the image of -1 in the slot group
// modulo the subgroup generated by 5.
func (s SlotRing) SlotG2Order() int {
	return s.slotG2
}

// SlotView returns the view of the first slot e_0 * R.
func (s SlotRing) SlotView() *SubringView {
	return s.slotView
}

// GaloisElement returns 5^k * (-1)^l mod 2N.
func (s SlotRing) GaloisElement(k, l int) (galEl uint64) {
	galEl = cyclo.ModPow(GaloisGen, uint64(cyclo.Mod(k, s.N()>>1)), s.nthRoot)
	if l&1 == 1 {
		galEl = s.nthRoot - galEl
	}
	return
}

// DiscreteLog returns (k, l) such that galEl = 5^k * (-1)^l mod 2N,
// with k in [0, N/2) and l in {0, 1}.
func (s SlotRing) DiscreteLog(galEl uint64) (k, l int) {

	galEl &= s.nthRoot - 1

	if galEl&1 == 0 {
		panic(fmt.Errorf("cannot DiscreteLog: galEl=%d is even", galEl))
	}

	if galEl&3 == 3 {
		galEl, l = s.nthRoot-galEl, 1
	}

	return s.discreteLg[galEl], l
}

// InvGaloisElement returns galEl^-1 mod 2N.
func (s SlotRing) InvGaloisElement(galEl uint64) uint64 {
	inv, err := cyclo.ModInverse(galEl, s.nthRoot)
	if err != nil {
		panic(fmt.Errorf("cannot InvGaloisElement: %w", err))
	}
	return inv
}

// SlotGaloisElement returns the representative h_j = 5^k * (-1)^l of the
// slot j = k + SlotG1Order() * l.
func (s SlotRing) SlotGaloisElement(j int) uint64 {
	return s.GaloisElement(j%s.slotG1, j/s.slotG1)
}

// SlotAction returns the slot j that the automorphism X -> X^galEl sends the
// slot i to, together with the Frobenius twist f such that
// galEl * h_i = h_j * p^f mod 2N. In other words, if slot i holds the value y,
// then slot j of the image holds pi^f(y), where pi is the Frobenius.
func (s SlotRing) SlotAction(galEl uint64, i int) (j, f int) {

	mask := s.nthRoot - 1
	g := (galEl * s.SlotGaloisElement(i)) & mask

	for j = 0; j < s.SlotCount(); j++ {
		x := (g * s.InvGaloisElement(s.SlotGaloisElement(j))) & mask
		if f, ok := s.frobeniusLog[x]; ok {
			return j, f
		}
	}

	panic(fmt.Errorf("cannot SlotAction: galEl=%d is not a valid Galois element", galEl))
}

// SlotAdd returns the index of the slot h_i * h_j.
func (s SlotRing) SlotAdd(i, j int) int {
	k := (i%s.slotG1 + j%s.slotG1) % s.slotG1
	l := (i/s.slotG1 + j/s.slotG1) % s.slotG2
	return k + s.slotG1*l
}

// SlotSub returns the index of the slot h_i * h_j^-1.
func (s SlotRing) SlotSub(i, j int) int {
	k := cyclo.Mod(i%s.slotG1-j%s.slotG1, s.slotG1)
	l := cyclo.Mod(i/s.slotG1-j/s.slotG1, s.slotG2)
	return k + s.slotG1*l
}

// Rotation returns the automorphism X -> X^(h_j), which sends the content of
// slot i to slot SlotAdd(j, i).
func (s SlotRing) Rotation(j int) Automorphism {
	return Automorphism{GaloisElement: s.SlotGaloisElement(j), ring: s.ring}
}

// Frobenius returns the automorphism X -> X^(p^l).
func (s SlotRing) Frobenius(l int) Automorphism {
	return Automorphism{GaloisElement: s.frobenius[cyclo.Mod(l, s.slotRank)], ring: s.ring}
}

// NewAutomorphism returns the automorphism X -> X^galEl.
func (s SlotRing) NewAutomorphism(galEl uint64) Automorphism {
	if galEl&1 == 0 {
		panic(fmt.Errorf("cannot NewAutomorphism: galEl=%d is even", galEl))
	}
	return Automorphism{GaloisElement: galEl & (s.nthRoot - 1), ring: s.ring}
}

// FromSlotValue returns the ring element whose slot j holds v(X) = sum v[t] X^t
// in the power basis of the slot, and whose other slots are zero.
// len(v) must be at most the slot rank.
func (s SlotRing) FromSlotValue(v []uint64, j int) ring.Poly {

	if len(v) > s.slotRank {
		panic(fmt.Errorf("cannot FromSlotValue: len(v)=%d > slot rank %d", len(v), s.slotRank))
	}

	r := s.ring
	p := r.NewPolyFromCoefficients(v)
	r.Mul(p, s.slotView.One, p)
	r.Automorphism(p, s.SlotGaloisElement(j), p)
	return p
}

// SlotValue returns the coordinates of the slot j of x in the power basis of
// the slot. It is the inverse of [SlotRing.FromSlotValue] on the slot j.
func (s SlotRing) SlotValue(x ring.Poly, j int) []uint64 {
	r := s.ring
	y := r.AutomorphismNew(x, s.InvGaloisElement(s.SlotGaloisElement(j)))
	r.Mul(y, s.slotView.One, y)
	return s.slotView.Coordinates(y)
}

// Equal returns true if both descriptors describe the same slot structure.
func (s SlotRing) Equal(other *SlotRing) bool {
	return cmp.Equal(s.params, other.params) &&
		cmp.Equal(s.slotView.One.Coeffs[0], other.slotView.One.Coeffs[0])
}

// String returns a string representation of the descriptor.
func (s SlotRing) String() string {
	return fmt.Sprintf("N=%d/p=%d/e=%d/d=%d/slots=%dx%d", s.N(), s.Prime(), s.Exponent(), s.slotRank, s.slotG1, s.slotG2)
}

// Package lintrans compiles Z/p^eZ-linear maps of the ring Z/p^eZ[X]/(X^N+1)
// into weighted sums of Galois automorphisms,
//
//	x -> sum_k c_k * sigma_k(x),
//
// and evaluates them with a baby-step giant-step (BSGS) schedule, in the clear
// or homomorphically on RLWE ciphertexts.
//
// The automorphisms are indexed by k + K*l, for k in [0, K) and l in [0, L),
// where K = N/2 is the order of 5 modulo 2N, L = 2 if the automorphism
// X -> X^-1 is used and L = 1 otherwise, and sigma_{k + K*l} is X -> X^(5^k * (-1)^l).
// An index is split into a baby-step index i = index mod m' and a giant-step
// index g = index / m', where m' = 2^ceil(log2(K)/2), and the map is evaluated as
//
//	x -> sum_g sigma_{m'g}( sum_i c'_{i+m'g} * sigma_i(x) )
//
// with c'_{i+m'g} = sigma_{m'g}^-1(c_{i+m'g}).
package lintrans

import (
	"fmt"
	"math/bits"

	"github.com/google/go-cmp/cmp"
	"github.com/tuneinsight/lattigo/v6/ring"
	"github.com/tuneinsight/lattigo/v6/utils"

	"github.com/galoislab/slotlin/cyclo"
	"github.com/galoislab/slotlin/slots"
)

// CompiledTransform is a linear map of a [slots.SlotRing] compiled into one
// coefficient per automorphism index.
//
// A CompiledTransform is built in two phases: coefficients are accumulated with
// [CompiledTransform.AddScaledTransform], then [CompiledTransform.FixCoefficientShift]
// must be called exactly once, after which the transform can be evaluated,
// serialized or narrowed with [CompiledTransform.InRing].
type CompiledTransform struct {
	ring         *slots.SlotRing
	coefficients []ring.Poly

	g1Order   int
	g2Order   int
	babySteps int

	shiftFixed bool
	consumed   bool
}

// NewCompiledTransform allocates a new zero [CompiledTransform] over r.
// If useG2 is false, only the automorphisms X -> X^(5^k) are available.
func NewCompiledTransform(r *slots.SlotRing, useG2 bool) *CompiledTransform {

	K := r.N() >> 1

	L := 1
	if useG2 {
		L = 2
	}

	coefficients := make([]ring.Poly, K*L)
	for i := range coefficients {
		coefficients[i] = r.Ring().NewPoly()
	}

	return &CompiledTransform{
		ring:         r,
		coefficients: coefficients,
		g1Order:      K,
		g2Order:      L,
		babySteps:    babyStepSize(K),
	}
}

// babyStepSize returns 2^ceil(log2(K)/2) for K a power of two.
func babyStepSize(K int) int {
	logK := bits.Len(uint(K)) - 1
	return 1 << ((logK + 1) >> 1)
}

// Ring returns the descriptor of the ring of the transform.
func (lt CompiledTransform) Ring() *slots.SlotRing {
	return lt.ring
}

// G1SubgroupOrder returns the number K of powers of 5 of the index space.
func (lt CompiledTransform) G1SubgroupOrder() int {
	return lt.g1Order
}

// G2SubgroupOrder returns the number L (1 or 2) of powers of -1 of the index space.
func (lt CompiledTransform) G2SubgroupOrder() int {
	return lt.g2Order
}

// BabyStepAutomorphismCount returns the number m' of baby-step indexes.
func (lt CompiledTransform) BabyStepAutomorphismCount() int {
	return lt.babySteps
}

// GiantStepAutomorphismCount returns the number of giant-step indexes.
func (lt CompiledTransform) GiantStepAutomorphismCount() int {
	return lt.g1Order * lt.g2Order / lt.babySteps
}

// UsesG2 returns true if the automorphisms involving X -> X^-1 are part of
// the index space.
func (lt CompiledTransform) UsesG2() bool {
	return lt.g2Order == 2
}

// exponents returns (k, l) such that the automorphism of the index is X -> X^(5^k * (-1)^l).
func (lt CompiledTransform) exponents(index int) (k, l int) {
	if index < 0 || index >= len(lt.coefficients) {
		panic(fmt.Errorf("automorphism index %d is outside of [0, %d)", index, len(lt.coefficients)))
	}
	return index % lt.g1Order, index / lt.g1Order
}

// Automorphism returns the Galois element of the automorphism of the index.
func (lt CompiledTransform) Automorphism(index int) uint64 {
	k, l := lt.exponents(index)
	return lt.ring.GaloisElement(k, l)
}

// GiantStepAutomorphism returns the Galois element of the giant step g,
// that is the automorphism of the index m'*g.
func (lt CompiledTransform) GiantStepAutomorphism(g int) uint64 {
	return lt.Automorphism(g * lt.babySteps)
}

// DifferenceAutomorphism returns the Galois element of
// sigma_from^-1 o sigma_to.
func (lt CompiledTransform) DifferenceAutomorphism(from, to int) uint64 {
	mask := lt.ring.NthRoot() - 1
	return (lt.ReverseAutomorphism(from) * lt.Automorphism(to)) & mask
}

// ReverseAutomorphism returns the Galois element of the inverse of the
// automorphism of the index.
func (lt CompiledTransform) ReverseAutomorphism(index int) uint64 {
	return lt.ring.InvGaloisElement(lt.Automorphism(index))
}

// Index returns the automorphism index of the Galois element galEl and
// false if galEl is outside of the index space.
func (lt CompiledTransform) Index(galEl uint64) (index int, ok bool) {
	k, l := lt.ring.DiscreteLog(galEl)
	if l >= lt.g2Order {
		return 0, false
	}
	return k + lt.g1Order*l, true
}

// Coefficients returns the coefficients of the transform, indexed by
// automorphism index. The returned slice must not be modified.
func (lt CompiledTransform) Coefficients() []ring.Poly {
	lt.checkUsable("Coefficients")
	return lt.coefficients
}

// IsShiftFixed returns true if [CompiledTransform.FixCoefficientShift] was called.
func (lt CompiledTransform) IsShiftFixed() bool {
	return lt.shiftFixed
}

// AddScaledTransform accumulates the map x -> scaling * rotation(frobenius(x))
// into the transform.
//
// The method panics if the shift was already fixed, if scaling is not an
// element of the ring or if rotation o frobenius is outside of the index space.
func (lt *CompiledTransform) AddScaledTransform(scaling ring.Poly, rotation, frobenius slots.Automorphism) {

	lt.checkUsable("AddScaledTransform")
	lt.ring.Ring().CheckDegree("AddScaledTransform", scaling)

	if lt.shiftFixed {
		panic(fmt.Errorf("cannot AddScaledTransform: coefficient shift already fixed"))
	}

	galEl := rotation.Compose(frobenius).GaloisElement

	index, ok := lt.Index(galEl)
	if !ok {
		panic(fmt.Errorf("cannot AddScaledTransform: galEl=%d requires X -> X^-1 which is not used by the transform", galEl))
	}

	r := lt.ring.Ring()
	r.Add(lt.coefficients[index], scaling, lt.coefficients[index])
}

// FixCoefficientShift replaces each coefficient c of giant-step index g by
// sigma_{m'g}^-1(c), so that the BSGS evaluation computes the accumulated map.
// It must be called exactly once, after the last call to
// [CompiledTransform.AddScaledTransform]; a second call panics.
func (lt *CompiledTransform) FixCoefficientShift() {

	lt.checkUsable("FixCoefficientShift")

	if lt.shiftFixed {
		panic(fmt.Errorf("cannot FixCoefficientShift: coefficient shift already fixed"))
	}

	r := lt.ring.Ring()

	for index, c := range lt.coefficients {
		if g := index / lt.babySteps; g != 0 {
			r.Automorphism(c, lt.ring.InvGaloisElement(lt.GiantStepAutomorphism(g)), c)
		}
	}

	lt.shiftFixed = true
}

// BSGSIndex returns the non-zero coefficients grouped by giant-step index,
// as well as the sorted baby-step and giant-step indexes that they use.
func (lt CompiledTransform) BSGSIndex() (index map[int][]int, babySteps, giantSteps []int) {
	lt.checkUsable("BSGSIndex")
	return bsgsIndex(lt.ring.Ring(), lt.coefficients, lt.babySteps)
}

// Evaluate returns the image of x by the transform.
// The method panics if the coefficient shift was not fixed or if x is not
// an element of the ring of the transform.
func (lt CompiledTransform) Evaluate(x ring.Poly) ring.Poly {
	lt.checkReady("Evaluate")
	lt.ring.Ring().CheckDegree("Evaluate", x)
	return evaluateBSGS(lt.ring.Ring(), lt, lt.coefficients, x)
}

// Equal returns true if both transforms act on the same ring with the same
// coefficients.
func (lt CompiledTransform) Equal(other *CompiledTransform) bool {

	if !lt.ring.Equal(other.ring) || lt.g2Order != other.g2Order || lt.shiftFixed != other.shiftFixed {
		return false
	}

	for i := range lt.coefficients {
		if !cmp.Equal(lt.coefficients[i].Coeffs[0], other.coefficients[i].Coeffs[0]) {
			return false
		}
	}

	return true
}

func (lt CompiledTransform) checkUsable(method string) {
	if lt.consumed {
		panic(fmt.Errorf("cannot %s: transform was consumed by InRing", method))
	}
}

func (lt CompiledTransform) checkReady(method string) {
	lt.checkUsable(method)
	if !lt.shiftFixed {
		panic(fmt.Errorf("cannot %s: coefficient shift is not fixed", method))
	}
}

// bsgsSchedule is the automorphism schedule of a BSGS evaluation.
type bsgsSchedule interface {
	BabyStepAutomorphismCount() int
	DifferenceAutomorphism(from, to int) uint64
	GiantStepAutomorphism(g int) uint64
}

func bsgsIndex(r *cyclo.Ring, coefficients []ring.Poly, babySteps int) (index map[int][]int, babyIndexes, giantIndexes []int) {

	index = make(map[int][]int)
	babyMap := make(map[int]bool)

	for k, c := range coefficients {
		if r.IsZero(c) {
			continue
		}
		g, i := k/babySteps, k%babySteps
		index[g] = append(index[g], i)
		babyMap[i] = true
	}

	return index, utils.GetSortedKeys(babyMap), utils.GetSortedKeys(index)
}

// evaluateBSGS evaluates sum_g sigma_g(sum_i c_{i+m'g} * sigma_i(x)) in the
// clear, computing each baby step from the previous one.
func evaluateBSGS(r *cyclo.Ring, s bsgsSchedule, coefficients []ring.Poly, x ring.Poly) (out ring.Poly) {

	m := s.BabyStepAutomorphismCount()

	index, babyIndexes, giantIndexes := bsgsIndex(r, coefficients, m)

	out = r.NewPoly()

	if len(giantIndexes) == 0 {
		return
	}

	baby := make([]ring.Poly, babyIndexes[len(babyIndexes)-1]+1)
	baby[0] = r.CopyNew(x)
	for i := 1; i < len(baby); i++ {
		baby[i] = r.AutomorphismNew(baby[i-1], s.DifferenceAutomorphism(i-1, i))
	}

	acc := r.NewPoly()
	for _, g := range giantIndexes {

		r.Zero(acc)
		for _, i := range index[g] {
			r.MulThenAdd(coefficients[i+m*g], baby[i], acc)
		}

		if g != 0 {
			r.Automorphism(acc, s.GiantStepAutomorphism(g), acc)
		}

		r.Add(out, acc, out)
	}

	return
}

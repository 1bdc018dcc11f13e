package lintrans

import (
	"fmt"
	"sync"

	"github.com/tuneinsight/lattigo/v6/core/rlwe"
	"github.com/tuneinsight/lattigo/v6/ring"
	"github.com/tuneinsight/lattigo/v6/utils"

	"github.com/galoislab/slotlin/slots"
)

// Evaluator is the homomorphic backend used by [SubringTransform.EvaluateCiphertext].
// The evaluator must hold the Galois keys of [SubringTransform.GaloisElements].
type Evaluator interface {
	// EncodeCoefficientsNew encodes the polynomial, given by its coefficients
	// modulo the plaintext modulus, on a new plaintext that can be
	// multiplied with ciphertexts.
	EncodeCoefficientsNew(coefficients ring.Poly) (pt *rlwe.Plaintext, err error)
	Automorphism(ctIn *rlwe.Ciphertext, galEl uint64, opOut *rlwe.Ciphertext) (err error)
	Add(op0 *rlwe.Ciphertext, op1 rlwe.Operand, opOut *rlwe.Ciphertext) (err error)
	Mul(op0 *rlwe.Ciphertext, op1 rlwe.Operand, opOut *rlwe.Ciphertext) (err error)
}

// SubringTransform is a [CompiledTransform] of a ring S = Z/p^eZ[Y]/(Y^n+1)
// applied to elements of the subring S = Z/p^eZ[X^(N/n)] of the larger ring
// R = Z/p^eZ[X]/(X^N+1), with Y = X^(N/n).
//
// Its automorphisms are the lifts X -> X^(5^k * (-1)^l) of the automorphisms
// of S, so that it uses as many automorphisms as the transform of S instead
// of the ones of an extension of the transform to R. The result is only
// meaningful for inputs in the subring.
//
// Encoded coefficients are cached on the first homomorphic evaluation, or by
// [SubringTransform.Prepare]. The cache is bound to the backend parameters of
// the first evaluator.
type SubringTransform struct {
	transform    *CompiledTransform
	ring         *slots.SlotRing
	coefficients []ring.Poly

	mu         sync.Mutex
	plaintexts []*rlwe.Plaintext

	consumed bool
}

// NewSubringTransform creates a new [SubringTransform] evaluating transform,
// a transform of a subring, on elements of the ring r. The receiver takes
// ownership of transform, which cannot be used afterwards.
//
// The method panics if the coefficient shift of transform was not fixed or
// if r is not an extension of the ring of transform with the same modulus.
func NewSubringTransform(transform *CompiledTransform, r *slots.SlotRing) *SubringTransform {

	transform.checkReady("NewSubringTransform")

	sub := transform.ring

	if r.Prime() != sub.Prime() || r.Modulus() != sub.Modulus() {
		panic(fmt.Errorf("cannot NewSubringTransform: ring modulus %d != subring modulus %d", r.Modulus(), sub.Modulus()))
	}

	if r.N() < sub.N() || r.N()%sub.N() != 0 {
		panic(fmt.Errorf("cannot NewSubringTransform: subring degree %d does not divide ring degree %d", sub.N(), r.N()))
	}

	narrowed := *transform
	transform.consumed = true
	transform.coefficients = nil

	rg := r.Ring()

	coefficients := make([]ring.Poly, len(narrowed.coefficients))
	for i, c := range narrowed.coefficients {
		coefficients[i] = rg.NewPoly()
		rg.Embed(c, coefficients[i])
	}

	return &SubringTransform{
		transform:    &narrowed,
		ring:         r,
		coefficients: coefficients,
	}
}

// InRing consumes the receiver and returns the [SubringTransform] applying it
// to the elements of its ring seen as a subring of r.
// The narrowing is only valid for inputs of the subring; this is not checked.
func (lt *CompiledTransform) InRing(r *slots.SlotRing) *SubringTransform {
	return NewSubringTransform(lt, r)
}

// SlotsToCoefficients returns the transform [ScalarSlotsToFirstCoefficients]
// of the ring subring applied to its embedding in r.
func SlotsToCoefficients(subring, r *slots.SlotRing) (*SubringTransform, error) {
	lt, err := ScalarSlotsToFirstCoefficients(subring)
	if err != nil {
		return nil, fmt.Errorf("cannot SlotsToCoefficients: %w", err)
	}
	return lt.InRing(r), nil
}

// CoefficientsToSlots returns the transform [FirstCoefficientsToScalarSlots]
// of the ring subring applied to its embedding in r.
func CoefficientsToSlots(subring, r *slots.SlotRing) (*SubringTransform, error) {
	lt, err := FirstCoefficientsToScalarSlots(subring)
	if err != nil {
		return nil, fmt.Errorf("cannot CoefficientsToSlots: %w", err)
	}
	return lt.InRing(r), nil
}

// Ring returns the descriptor of the ring in which the transform is evaluated.
func (lt *SubringTransform) Ring() *slots.SlotRing {
	return lt.ring
}

// Subring returns the descriptor of the ring of the wrapped transform.
func (lt *SubringTransform) Subring() *slots.SlotRing {
	return lt.transform.ring
}

// Automorphism returns the Galois element, modulo 2N, of the automorphism of the index.
func (lt *SubringTransform) Automorphism(index int) uint64 {
	lt.checkUsable("Automorphism")
	k, l := lt.transform.exponents(index)
	return lt.ring.GaloisElement(k, l)
}

// GiantStepAutomorphism returns the Galois element of the giant step g.
func (lt *SubringTransform) GiantStepAutomorphism(g int) uint64 {
	return lt.Automorphism(g * lt.transform.babySteps)
}

// DifferenceAutomorphism returns the Galois element of sigma_from^-1 o sigma_to.
func (lt *SubringTransform) DifferenceAutomorphism(from, to int) uint64 {
	mask := lt.ring.NthRoot() - 1
	return (lt.ReverseAutomorphism(from) * lt.Automorphism(to)) & mask
}

// ReverseAutomorphism returns the Galois element of the inverse of the automorphism of the index.
func (lt *SubringTransform) ReverseAutomorphism(index int) uint64 {
	return lt.ring.InvGaloisElement(lt.Automorphism(index))
}

// BabyStepAutomorphismCount returns the number of baby-step indexes.
func (lt *SubringTransform) BabyStepAutomorphismCount() int {
	return lt.transform.BabyStepAutomorphismCount()
}

// GiantStepAutomorphismCount returns the number of giant-step indexes.
func (lt *SubringTransform) GiantStepAutomorphismCount() int {
	return lt.transform.GiantStepAutomorphismCount()
}

// Coefficients returns the coefficients of the transform embedded in the ring.
// The returned slice must not be modified.
func (lt *SubringTransform) Coefficients() []ring.Poly {
	lt.checkUsable("Coefficients")
	return lt.coefficients
}

// BSGSIndex returns the non-zero coefficients grouped by giant-step index,
// as well as the sorted baby-step and giant-step indexes that they use.
func (lt *SubringTransform) BSGSIndex() (index map[int][]int, babySteps, giantSteps []int) {
	lt.checkUsable("BSGSIndex")
	return bsgsIndex(lt.ring.Ring(), lt.coefficients, lt.transform.babySteps)
}

// GaloisElements returns the sorted Galois elements of the automorphisms
// applied by [SubringTransform.EvaluateCiphertext].
func (lt *SubringTransform) GaloisElements() (galEls []uint64) {

	_, babySteps, giantSteps := lt.BSGSIndex()

	set := map[uint64]bool{}

	if len(babySteps) != 0 {
		for i := 1; i <= babySteps[len(babySteps)-1]; i++ {
			set[lt.DifferenceAutomorphism(i-1, i)] = true
		}
	}

	for _, g := range giantSteps {
		if g != 0 {
			set[lt.GiantStepAutomorphism(g)] = true
		}
	}

	return utils.GetSortedKeys(set)
}

// Evaluate returns the image of x by the transform, computed in the clear.
// The method panics if x is not an element of the ring.
func (lt *SubringTransform) Evaluate(x ring.Poly) ring.Poly {
	lt.checkUsable("Evaluate")
	lt.ring.Ring().CheckDegree("Evaluate", x)
	return evaluateBSGS(lt.ring.Ring(), lt, lt.coefficients, x)
}

// Prepare encodes the non-zero coefficients of the transform with eval.
// After Prepare, concurrent calls to [SubringTransform.EvaluateCiphertext]
// only read the cache.
func (lt *SubringTransform) Prepare(eval Evaluator) (err error) {
	_, err = lt.encodedCoefficients(eval)
	return
}

func (lt *SubringTransform) encodedCoefficients(eval Evaluator) (pts []*rlwe.Plaintext, err error) {

	lt.checkUsable("Prepare")

	lt.mu.Lock()
	defer lt.mu.Unlock()

	if lt.plaintexts != nil {
		return lt.plaintexts, nil
	}

	r := lt.ring.Ring()

	pts = make([]*rlwe.Plaintext, len(lt.coefficients))
	for i, c := range lt.coefficients {
		if r.IsZero(c) {
			continue
		}
		if pts[i], err = eval.EncodeCoefficientsNew(c); err != nil {
			return nil, fmt.Errorf("cannot encode coefficient %d: %w", i, err)
		}
	}

	lt.plaintexts = pts

	return
}

// EvaluateCiphertext evaluates the transform on ctIn and writes the result on opOut.
// opOut can alias ctIn.
//
// Each used baby step sigma_i(ctIn) is computed once, from the previous one
// with the automorphism sigma_{i-1}^-1 o sigma_i. For each giant step g, the
// products of the baby steps with the encoded coefficients are summed, the
// sum is sent through sigma_{m'g} and added to opOut.
func (lt *SubringTransform) EvaluateCiphertext(ctIn *rlwe.Ciphertext, eval Evaluator, opOut *rlwe.Ciphertext) (err error) {

	var pts []*rlwe.Plaintext
	if pts, err = lt.encodedCoefficients(eval); err != nil {
		return fmt.Errorf("cannot EvaluateCiphertext: %w", err)
	}

	m := lt.transform.babySteps

	index, babySteps, giantSteps := lt.BSGSIndex()

	if len(giantSteps) == 0 {
		opOut.Resize(ctIn.Degree(), ctIn.Level())
		for i := range opOut.Value {
			opOut.Value[i].Zero()
		}
		copyMetaData(ctIn, opOut)
		return
	}

	baby := make([]*rlwe.Ciphertext, babySteps[len(babySteps)-1]+1)
	baby[0] = ctIn
	for i := 1; i < len(baby); i++ {
		baby[i] = ctIn.CopyNew()
		if err = eval.Automorphism(baby[i-1], lt.DifferenceAutomorphism(i-1, i), baby[i]); err != nil {
			return fmt.Errorf("cannot EvaluateCiphertext: baby step %d: %w", i, err)
		}
	}

	acc := ctIn.CopyNew()
	tmp := ctIn.CopyNew()
	sum := ctIn.CopyNew()

	for n, g := range giantSteps {

		for k, i := range index[g] {
			if k == 0 {
				err = eval.Mul(baby[i], pts[i+m*g], acc)
			} else if err = eval.Mul(baby[i], pts[i+m*g], tmp); err == nil {
				err = eval.Add(acc, tmp, acc)
			}
			if err != nil {
				return fmt.Errorf("cannot EvaluateCiphertext: giant step %d: %w", g, err)
			}
		}

		res := acc
		if g != 0 {
			if err = eval.Automorphism(acc, lt.GiantStepAutomorphism(g), tmp); err != nil {
				return fmt.Errorf("cannot EvaluateCiphertext: giant step %d: %w", g, err)
			}
			res = tmp
		}

		if n == 0 {
			sum.Resize(res.Degree(), res.Level())
			sum.Copy(res)
		} else if err = eval.Add(sum, res, sum); err != nil {
			return fmt.Errorf("cannot EvaluateCiphertext: giant step %d: %w", g, err)
		}
	}

	// ctIn is read until the last giant step.
	opOut.Resize(sum.Degree(), sum.Level())
	copyMetaData(sum, opOut)
	opOut.Copy(sum)

	return
}

// copyMetaData sets the metadata of opOut to the one of ctIn, allocating it if needed.
func copyMetaData(ctIn, opOut *rlwe.Ciphertext) {
	if opOut.MetaData == nil {
		opOut.MetaData = ctIn.MetaData.CopyNew()
		return
	}
	*opOut.MetaData = *ctIn.MetaData
}

// Transform consumes the receiver and returns the wrapped transform of the subring.
func (lt *SubringTransform) Transform() *CompiledTransform {
	lt.checkUsable("Transform")
	lt.consumed = true
	lt.coefficients = nil
	lt.plaintexts = nil
	return lt.transform
}

func (lt *SubringTransform) checkUsable(method string) {
	if lt.consumed {
		panic(fmt.Errorf("cannot %s: transform was consumed by Transform", method))
	}
}

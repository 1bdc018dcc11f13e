package hebgv

import (
	"fmt"

	"github.com/tuneinsight/lattigo/v6/core/rlwe"
	"github.com/tuneinsight/lattigo/v6/ring"
	"github.com/tuneinsight/lattigo/v6/schemes/bgv"

	"github.com/galoislab/slotlin/slots"
)

// Evaluator is a [bgv.Evaluator] that also encodes polynomials given by
// their coefficients. It is the homomorphic backend of the lintrans
// package.
type Evaluator struct {
	*bgv.Evaluator
	encoder *Encoder
}

// NewEvaluator creates a new [Evaluator] for the parameters with the
// evaluation keys evk, which must hold the Galois keys of the evaluated
// transforms.
func NewEvaluator(params bgv.Parameters, evk rlwe.EvaluationKeySet) *Evaluator {
	return &Evaluator{
		Evaluator: bgv.NewEvaluator(params, evk),
		encoder:   NewEncoder(params),
	}
}

// EncodeCoefficientsNew encodes the coefficients, given modulo the
// plaintext modulus, on a new plaintext at the maximum level.
func (eval Evaluator) EncodeCoefficientsNew(coefficients ring.Poly) (pt *rlwe.Plaintext, err error) {
	return eval.encoder.EncodeNew(coefficients)
}

// Encoder returns the [Encoder] of the evaluator.
func (eval Evaluator) Encoder() *Encoder {
	return eval.encoder
}

// WithKey creates a shallow copy of the receiver with the new evaluation keys.
func (eval Evaluator) WithKey(evk rlwe.EvaluationKeySet) *Evaluator {
	return &Evaluator{
		Evaluator: eval.Evaluator.WithKey(evk),
		encoder:   eval.encoder,
	}
}

// ShallowCopy returns a lightweight copy of the target object
// that can be used concurrently with the original object.
func (eval Evaluator) ShallowCopy() *Evaluator {
	return &Evaluator{
		Evaluator: eval.Evaluator.ShallowCopy(),
		encoder:   eval.encoder.ShallowCopy(),
	}
}

// NewParameters returns BGV parameters encoding the elements of the ring r,
// with moduli chains of the given bit-sizes.
func NewParameters(r *slots.SlotRing, logQ, logP []int) (params bgv.Parameters, err error) {

	if params, err = bgv.NewParametersFromLiteral(bgv.ParametersLiteral{
		LogN:             r.LogN(),
		LogQ:             logQ,
		LogP:             logP,
		PlaintextModulus: r.Modulus(),
	}); err != nil {
		return params, fmt.Errorf("cannot NewParameters: %w", err)
	}

	return params, CheckParameters(params, r)
}

// GenEvaluationKeySet generates the Galois keys of the Galois elements
// under the secret key sk.
func GenEvaluationKeySet(kgen *rlwe.KeyGenerator, sk *rlwe.SecretKey, galEls []uint64) *rlwe.MemEvaluationKeySet {
	return rlwe.NewMemEvaluationKeySet(nil, kgen.GenGaloisKeysNew(galEls, sk)...)
}

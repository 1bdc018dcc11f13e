// Package hebgv evaluates the transforms of the lintrans package on BGV
// ciphertexts of the lattigo library. Plaintexts are elements of
// Z/tZ[X]/(X^N+1) given by their coefficients, t being the plaintext modulus.
package hebgv

import (
	"fmt"
	"math/big"

	"github.com/tuneinsight/lattigo/v6/core/rlwe"
	"github.com/tuneinsight/lattigo/v6/ring"
	"github.com/tuneinsight/lattigo/v6/schemes/bgv"

	"github.com/galoislab/slotlin/slots"
)

// Encoder encodes polynomials of Z/tZ[X]/(X^N+1), given by their
// coefficients, on BGV plaintexts and decodes them back.
//
// Unlike [bgv.Encoder] with IsBatched=false, every one of the N
// coefficients is encoded, whatever the plaintext modulus.
//
// An Encoder is not safe for concurrent use, see [Encoder.ShallowCopy].
type Encoder struct {
	params bgv.Parameters

	tInvModQ []*big.Int
	bufQ     ring.Poly
	bufB     []*big.Int
}

// NewEncoder creates a new [Encoder] for the parameters.
func NewEncoder(params bgv.Parameters) *Encoder {

	ringQ := params.RingQ()
	T := new(big.Int).SetUint64(params.PlaintextModulus())

	tInvModQ := make([]*big.Int, params.MaxLevel()+1)
	for i := range tInvModQ {
		tInvModQ[i] = new(big.Int).ModInverse(T, ringQ.ModulusAtLevel[i])
	}

	return &Encoder{
		params:   params,
		tInvModQ: tInvModQ,
		bufQ:     ringQ.NewPoly(),
		bufB:     newBigintSlice(params.N()),
	}
}

func newBigintSlice(n int) (b []*big.Int) {
	b = make([]*big.Int, n)
	for i := range b {
		b[i] = new(big.Int)
	}
	return
}

// CheckParameters returns an error if the parameters cannot encode the
// elements of the ring r: the ring degree and the plaintext modulus must
// be the ones of r.
func CheckParameters(params bgv.Parameters, r *slots.SlotRing) error {
	if params.N() != r.N() {
		return fmt.Errorf("parameters ring degree %d != slot ring degree %d", params.N(), r.N())
	}
	if params.PlaintextModulus() != r.Modulus() {
		return fmt.Errorf("parameters plaintext modulus %d != slot ring modulus %d", params.PlaintextModulus(), r.Modulus())
	}
	return nil
}

// Encode encodes the coefficients of p, reduced modulo the plaintext
// modulus t, on pt at the level of pt. The plaintext is in the NTT domain
// and stores p * t^-1 mod Q, so that multiplying it with a ciphertext of m
// returns a ciphertext of p * m.
func (ecd Encoder) Encode(p ring.Poly, pt *rlwe.Plaintext) (err error) {

	if p.N() != ecd.params.N() {
		return fmt.Errorf("cannot Encode: polynomial degree %d != parameters degree %d", p.N(), ecd.params.N())
	}

	level := pt.Level()
	ringQ := ecd.params.RingQ().AtLevel(level)

	T := ecd.params.PlaintextModulus()
	tHalf := T >> 1

	values := p.Coeffs[0]

	for _, c := range values {
		if c >= T {
			return fmt.Errorf("cannot Encode: coefficient %d is not reduced modulo %d", c, T)
		}
	}

	for i := 0; i < level+1; i++ {
		qi := ringQ.SubRings[i].Modulus
		coeffs := pt.Value.Coeffs[i]
		for j, c := range values {
			if c > tHalf {
				coeffs[j] = qi - (T - c)
			} else {
				coeffs[j] = c
			}
		}
	}

	ringQ.MulScalarBigint(pt.Value, ecd.tInvModQ[level], pt.Value)
	ringQ.NTT(pt.Value, pt.Value)

	pt.IsNTT = true
	pt.IsBatched = false
	pt.Scale = ecd.params.DefaultScale()

	return
}

// EncodeNew encodes p on a new plaintext at the maximum level.
func (ecd Encoder) EncodeNew(p ring.Poly) (pt *rlwe.Plaintext, err error) {
	pt = bgv.NewPlaintext(ecd.params, ecd.params.MaxLevel())
	return pt, ecd.Encode(p, pt)
}

// Decode decodes pt on the coefficients of p, modulo the plaintext modulus.
func (ecd Encoder) Decode(pt *rlwe.Plaintext, p ring.Poly) (err error) {

	if p.N() != ecd.params.N() {
		return fmt.Errorf("cannot Decode: polynomial degree %d != parameters degree %d", p.N(), ecd.params.N())
	}

	level := pt.Level()
	ringQ := ecd.params.RingQ().AtLevel(level)

	if pt.IsNTT {
		ringQ.INTT(pt.Value, ecd.bufQ)
	} else {
		ecd.bufQ.CopyLvl(level, pt.Value)
	}

	T := ecd.params.PlaintextModulus()

	ringQ.MulScalar(ecd.bufQ, T, ecd.bufQ)
	ringQ.PolyToBigintCentered(ecd.bufQ, 1, ecd.bufB)

	modulus := new(big.Int).SetUint64(T)
	tmp := new(big.Int)

	coeffs := p.Coeffs[0]
	for j := range coeffs {
		coeffs[j] = tmp.Mod(ecd.bufB[j], modulus).Uint64()
	}

	return
}

// ShallowCopy returns a lightweight copy of the target object
// that can be used concurrently with the original object.
func (ecd Encoder) ShallowCopy() *Encoder {
	return &Encoder{
		params:   ecd.params,
		tInvModQ: ecd.tInvModQ,
		bufQ:     ecd.params.RingQ().NewPoly(),
		bufB:     newBigintSlice(ecd.params.N()),
	}
}

// Package cyclo implements arithmetic in the negacyclic ring Z/tZ[X]/(X^N+1)
// for an arbitrary odd modulus t (typically a prime power p^e).
//
// Polynomials are lattigo [ring.Poly] values with a single level, so that they
// can be handed without conversion to the lattigo encoders. The modulus does
// not need to be NTT friendly: products are computed in the coefficient domain.
package cyclo

import (
	"encoding/binary"
	"fmt"
	"io"
	"math/bits"
	"slices"

	"github.com/tuneinsight/lattigo/v6/ring"
)

// Ring is the ring Z/tZ[X]/(X^N+1).
// It is immutable after creation and can be shared.
type Ring struct {
	sub  *ring.SubRing
	logN int
}

// NewRing creates a new [Ring] of degree N and modulus t.
// N must be a power of two greater or equal to 8 and t must be odd.
func NewRing(N int, modulus uint64) (r *Ring, err error) {

	if modulus&1 == 0 || modulus < 3 {
		return nil, fmt.Errorf("cannot NewRing: modulus must be an odd integer greater than 2 but is %d", modulus)
	}

	if bits.Len64(modulus) > 61 {
		return nil, fmt.Errorf("cannot NewRing: modulus must be smaller than 2^61")
	}

	var sub *ring.SubRing
	if sub, err = ring.NewSubRing(N, modulus); err != nil {
		return nil, fmt.Errorf("cannot NewRing: %w", err)
	}

	return &Ring{sub: sub, logN: bits.Len64(uint64(N)) - 1}, nil
}

// N returns the degree of the ring.
func (r Ring) N() int {
	return r.sub.N
}

// LogN returns log2 of the degree of the ring.
func (r Ring) LogN() int {
	return r.logN
}

// Modulus returns the coefficient modulus t.
func (r Ring) Modulus() uint64 {
	return r.sub.Modulus
}

// NewPoly allocates a new zero polynomial.
func (r Ring) NewPoly() ring.Poly {
	return ring.Poly{Coeffs: [][]uint64{make([]uint64, r.N())}}
}

// NewPolyFromCoefficients returns a polynomial whose coefficients are the
// provided values reduced modulo t. Missing coefficients are zero.
func (r Ring) NewPolyFromCoefficients(values []uint64) ring.Poly {
	if len(values) > r.N() {
		panic(fmt.Errorf("cannot NewPolyFromCoefficients: len(values)=%d > N=%d", len(values), r.N()))
	}
	p := r.NewPoly()
	q := r.Modulus()
	for i, v := range values {
		p.Coeffs[0][i] = v % q
	}
	return p
}

// One returns the multiplicative identity.
func (r Ring) One() ring.Poly {
	p := r.NewPoly()
	p.Coeffs[0][0] = 1
	return p
}

// Monomial returns X^k for any integer k, using X^N = -1.
func (r Ring) Monomial(k int) ring.Poly {
	p := r.NewPoly()
	N := r.N()
	k = Mod(k, 2*N)
	if k < N {
		p.Coeffs[0][k] = 1
	} else {
		p.Coeffs[0][k-N] = r.Modulus() - 1
	}
	return p
}

// CopyNew returns a deep copy of p.
func (r Ring) CopyNew(p ring.Poly) ring.Poly {
	c := r.NewPoly()
	copy(c.Coeffs[0], p.Coeffs[0])
	return c
}

// Copy copies p1 on p2.
func (r Ring) Copy(p1, p2 ring.Poly) {
	copy(p2.Coeffs[0], p1.Coeffs[0])
}

// Zero sets all coefficients of p to zero.
func (r Ring) Zero(p ring.Poly) {
	ring.ZeroVec(p.Coeffs[0])
}

// Add evaluates p3 = p1 + p2.
func (r Ring) Add(p1, p2, p3 ring.Poly) {
	r.sub.Add(p1.Coeffs[0], p2.Coeffs[0], p3.Coeffs[0])
}

// Sub evaluates p3 = p1 - p2.
func (r Ring) Sub(p1, p2, p3 ring.Poly) {
	r.sub.Sub(p1.Coeffs[0], p2.Coeffs[0], p3.Coeffs[0])
}

// Neg evaluates p2 = -p1.
func (r Ring) Neg(p1, p2 ring.Poly) {
	q := r.Modulus()
	out := p2.Coeffs[0]
	for i, c := range p1.Coeffs[0] {
		if c == 0 {
			out[i] = 0
		} else {
			out[i] = q - c
		}
	}
}

// MulScalar evaluates p2 = p1 * scalar.
func (r Ring) MulScalar(p1 ring.Poly, scalar uint64, p2 ring.Poly) {
	r.sub.MulScalarMontgomery(p1.Coeffs[0], ring.MForm(scalar%r.Modulus(), r.Modulus(), r.sub.BRedConstant), p2.Coeffs[0])
}

// MulScalarThenAdd evaluates p2 = p2 + p1 * scalar.
func (r Ring) MulScalarThenAdd(p1 ring.Poly, scalar uint64, p2 ring.Poly) {
	if scalar%r.Modulus() == 0 {
		return
	}
	r.sub.MulScalarMontgomeryThenAdd(p1.Coeffs[0], ring.MForm(scalar%r.Modulus(), r.Modulus(), r.sub.BRedConstant), p2.Coeffs[0])
}

// MulMod returns x * y modulo the ring modulus.
func (r Ring) MulMod(x, y uint64) uint64 {
	q := r.Modulus()
	return ring.BRed(x%q, y%q, q, r.sub.BRedConstant)
}

// CheckDegree panics if p is not a polynomial of degree N.
func (r Ring) CheckDegree(method string, p ring.Poly) {
	if p.N() != r.N() {
		panic(fmt.Errorf("cannot %s: polynomial degree %d != ring degree %d", method, p.N(), r.N()))
	}
}

// Mul evaluates p3 = p1 * p2 mod X^N+1 with a schoolbook product.
// p3 can alias p1 or p2.
func (r Ring) Mul(p1, p2, p3 ring.Poly) {
	acc := make([]uint64, r.N())
	r.mulThenAdd(p1.Coeffs[0], p2.Coeffs[0], acc)
	copy(p3.Coeffs[0], acc)
}

// MulThenAdd evaluates p3 = p3 + p1 * p2 mod X^N+1.
// p3 must not alias p1 or p2.
func (r Ring) MulThenAdd(p1, p2, p3 ring.Poly) {
	r.mulThenAdd(p1.Coeffs[0], p2.Coeffs[0], p3.Coeffs[0])
}

func (r Ring) mulThenAdd(a, b, acc []uint64) {

	N := r.N()
	q := r.Modulus()
	brc := r.sub.BRedConstant

	for i, ai := range a {

		if ai == 0 {
			continue
		}

		for j, bj := range b {

			if bj == 0 {
				continue
			}

			prod := ring.BRed(ai, bj, q, brc)

			if k := i + j; k < N {
				acc[k] = ring.CRed(acc[k]+prod, q)
			} else {
				acc[k-N] = ring.CRed(acc[k-N]+q-prod, q)
			}
		}
	}
}

// MulByMonomial evaluates p2 = p1 * X^k for any integer k.
// p2 can alias p1.
func (r Ring) MulByMonomial(p1 ring.Poly, k int, p2 ring.Poly) {

	N := r.N()
	q := r.Modulus()
	k = Mod(k, 2*N)

	out := make([]uint64, N)
	for i, c := range p1.Coeffs[0] {
		if c == 0 {
			continue
		}
		if j := i + k; j < N {
			out[j] = c
		} else if j < 2*N {
			out[j-N] = q - c
		} else {
			out[j-2*N] = c
		}
	}

	copy(p2.Coeffs[0], out)
}

// Automorphism evaluates p2 = p1(X^galEl) in the coefficient domain.
// galEl must be odd. p2 can alias p1.
func (r Ring) Automorphism(p1 ring.Poly, galEl uint64, p2 ring.Poly) {

	if galEl&1 == 0 {
		panic(fmt.Errorf("cannot Automorphism: galEl=%d is even", galEl))
	}

	N := uint64(r.N())
	q := r.Modulus()
	mask := N - 1
	logN := uint64(r.logN)
	galEl &= 2*N - 1

	out := make([]uint64, N)

	for i, c := range p1.Coeffs[0] {

		raw := uint64(i) * galEl
		index := raw & mask

		if (raw>>logN)&1 == 1 && c != 0 {
			out[index] = q - c
		} else {
			out[index] = c
		}
	}

	copy(p2.Coeffs[0], out)
}

// AutomorphismNew returns p(X^galEl).
func (r Ring) AutomorphismNew(p ring.Poly, galEl uint64) (pOut ring.Poly) {
	pOut = r.NewPoly()
	r.Automorphism(p, galEl, pOut)
	return
}

// Embed evaluates p2(X) = p1(X^(N/N')) where p1 is a polynomial of a ring of
// degree N' dividing N.
func (r Ring) Embed(p1, p2 ring.Poly) {

	small := len(p1.Coeffs[0])

	if small > r.N() || r.N()%small != 0 {
		panic(fmt.Errorf("cannot Embed: degree %d does not divide %d", small, r.N()))
	}

	gap := r.N() / small

	out := p2.Coeffs[0]
	ring.ZeroVec(out)
	for i, c := range p1.Coeffs[0] {
		out[i*gap] = c
	}
}

// Equal returns true if p1 and p2 have the same coefficients.
func (r Ring) Equal(p1, p2 ring.Poly) bool {
	return slices.Equal(p1.Coeffs[0], p2.Coeffs[0])
}

// IsZero returns true if all coefficients of p are zero.
func (r Ring) IsZero(p ring.Poly) bool {
	for _, c := range p.Coeffs[0] {
		if c != 0 {
			return false
		}
	}
	return true
}

// Coefficient returns the coefficient of X^k in p, for any integer k,
// using X^N = -1.
func (r Ring) Coefficient(p ring.Poly, k int) uint64 {
	N := r.N()
	k = Mod(k, 2*N)
	if k < N {
		return p.Coeffs[0][k]
	}
	if c := p.Coeffs[0][k-N]; c != 0 {
		return r.Modulus() - c
	}
	return 0
}

// Read samples p uniformly at random from the bytes of source.
func (r Ring) Read(source io.Reader, p ring.Poly) (err error) {
	if err = ReadUniform(source, r.Modulus(), p.Coeffs[0]); err != nil {
		return fmt.Errorf("cannot Read: %w", err)
	}
	return
}

// ReadUniform fills values with integers sampled uniformly in [0, q) by
// rejection from the little-endian uint64 words of source.
func ReadUniform(source io.Reader, q uint64, values []uint64) (err error) {

	mask := uint64(1)<<bits.Len64(q) - 1
	buf := make([]byte, 8)

	for i := range values {
		for {
			if _, err = io.ReadFull(source, buf); err != nil {
				return
			}
			if c := binary.LittleEndian.Uint64(buf) & mask; c < q {
				values[i] = c
				break
			}
		}
	}

	return
}

package slots

import (
	"fmt"
	"io"
	"math/big"
	"slices"

	"github.com/tuneinsight/lattigo/v6/ring"

	"github.com/galoislab/slotlin/cyclo"
)

// fpRing implements dense polynomial arithmetic over F_p.
// Polynomials are coefficient slices from the constant term up and are kept
// trimmed: the zero polynomial is the empty slice.
type fpRing struct {
	p   uint64
	mul func(x, y uint64) uint64
}

func newFpRing(p uint64) fpRing {
	brc := ring.GenBRedConstant(p)
	return fpRing{
		p: p,
		mul: func(x, y uint64) uint64 {
			return ring.BRed(x, y, p, brc)
		},
	}
}

func (f fpRing) add(x, y uint64) uint64 {
	if z := x + y; z >= f.p {
		return z - f.p
	}
	return x + y
}

func (f fpRing) sub(x, y uint64) uint64 {
	if x >= y {
		return x - y
	}
	return x + f.p - y
}

func (f fpRing) inv(x uint64) uint64 {
	return ring.ModExp(x, f.p-2, f.p)
}

func trim(a []uint64) []uint64 {
	for len(a) > 0 && a[len(a)-1] == 0 {
		a = a[:len(a)-1]
	}
	return a
}

func degree(a []uint64) int {
	return len(a) - 1
}

func (f fpRing) polySub(a, b []uint64) []uint64 {
	c := make([]uint64, max(len(a), len(b)))
	copy(c, a)
	for i, bi := range b {
		c[i] = f.sub(c[i], bi)
	}
	return trim(c)
}

func (f fpRing) polyMul(a, b []uint64) []uint64 {
	if len(a) == 0 || len(b) == 0 {
		return nil
	}
	c := make([]uint64, len(a)+len(b)-1)
	for i, ai := range a {
		if ai == 0 {
			continue
		}
		for j, bj := range b {
			c[i+j] = f.add(c[i+j], f.mul(ai, bj))
		}
	}
	return trim(c)
}

// polyDivMod returns q, r such that a = q*b + r with deg(r) < deg(b).
func (f fpRing) polyDivMod(a, b []uint64) (q, r []uint64) {

	if len(b) == 0 {
		panic(fmt.Errorf("polynomial division by zero"))
	}

	r = slices.Clone(trim(a))

	if len(r) < len(b) {
		return nil, r
	}

	q = make([]uint64, len(r)-len(b)+1)
	lead := f.inv(b[len(b)-1])

	for len(r) >= len(b) {
		shift := len(r) - len(b)
		c := f.mul(r[len(r)-1], lead)
		q[shift] = c
		for i, bi := range b {
			r[shift+i] = f.sub(r[shift+i], f.mul(c, bi))
		}
		r = trim(r[:len(r)-1])
	}

	return trim(q), r
}

func (f fpRing) polyMod(a, m []uint64) []uint64 {
	_, r := f.polyDivMod(a, m)
	return r
}

func (f fpRing) monic(a []uint64) []uint64 {
	if len(a) == 0 {
		return a
	}
	lead := f.inv(a[len(a)-1])
	c := make([]uint64, len(a))
	for i := range a {
		c[i] = f.mul(a[i], lead)
	}
	return c
}

func (f fpRing) gcd(a, b []uint64) []uint64 {
	a, b = trim(slices.Clone(a)), trim(slices.Clone(b))
	for len(b) != 0 {
		a, b = b, f.polyMod(a, b)
	}
	return f.monic(a)
}

// inverseMod returns a^-1 mod m.
func (f fpRing) inverseMod(a, m []uint64) ([]uint64, error) {

	r0, r1 := slices.Clone(m), f.polyMod(a, m)
	s0, s1 := []uint64(nil), []uint64{1}

	for len(r1) != 0 {
		q, r := f.polyDivMod(r0, r1)
		r0, r1 = r1, r
		s0, s1 = s1, f.polySub(s0, f.polyMul(q, s1))
	}

	if degree(r0) != 0 {
		return nil, fmt.Errorf("polynomial is not invertible")
	}

	c := f.inv(r0[0])
	for i := range s0 {
		s0[i] = f.mul(s0[i], c)
	}

	return f.polyMod(s0, m), nil
}

func (f fpRing) powMod(a []uint64, e *big.Int, m []uint64) []uint64 {
	result := []uint64{1}
	base := f.polyMod(a, m)
	for i := e.BitLen() - 1; i >= 0; i-- {
		result = f.polyMod(f.polyMul(result, result), m)
		if e.Bit(i) == 1 {
			result = f.polyMod(f.polyMul(result, base), m)
		}
	}
	return result
}

func (f fpRing) sample(source io.Reader, n int) ([]uint64, error) {
	a := make([]uint64, n)
	if err := cyclo.ReadUniform(source, f.p, a); err != nil {
		return nil, err
	}
	return trim(a), nil
}

// equalDegreeFactors splits the squarefree polynomial F, product of
// irreducible factors of degree d, into its monic irreducible factors
// (Cantor-Zassenhaus). The factors are returned sorted.
func (f fpRing) equalDegreeFactors(F []uint64, d int, source io.Reader) (factors [][]uint64, err error) {

	F = f.monic(trim(F))

	if degree(F)%d != 0 {
		return nil, fmt.Errorf("degree %d is not a multiple of %d", degree(F), d)
	}

	// (p^d - 1)/2
	e := new(big.Int).Exp(new(big.Int).SetUint64(f.p), big.NewInt(int64(d)), nil)
	e.Sub(e, big.NewInt(1))
	e.Rsh(e, 1)

	stack := [][]uint64{F}

	for len(stack) > 0 {

		g := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if degree(g) == d {
			factors = append(factors, g)
			continue
		}

		for {
			var a []uint64
			if a, err = f.sample(source, degree(g)); err != nil {
				return nil, err
			}

			if degree(a) < 1 {
				continue
			}

			b := f.polySub(f.powMod(a, e, g), []uint64{1})
			h := f.gcd(b, g)

			if degree(h) > 0 && degree(h) < degree(g) {
				q, _ := f.polyDivMod(g, h)
				stack = append(stack, h, f.monic(q))
				break
			}
		}
	}

	slices.SortFunc(factors, func(a, b []uint64) int {
		for i := range a {
			if a[i] != b[i] {
				if a[i] < b[i] {
					return -1
				}
				return 1
			}
		}
		return 0
	})

	return
}

package cyclo

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/tuneinsight/lattigo/v6/ring"
	"golang.org/x/exp/constraints"
)

// ErrNotInvertible is returned when an element or a matrix has no inverse
// modulo the ring modulus.
var ErrNotInvertible = errors.New("not invertible")

// Mod returns a mod m in [0, m) for any sign of a.
func Mod[T constraints.Integer](a, m T) T {
	a %= m
	if a < 0 {
		a += m
	}
	return a
}

// ModPow returns x^e mod q for any modulus q > 1.
func ModPow(x, e, q uint64) uint64 {
	return ring.ModExp(x%q, e, q)
}

// MulMod returns x * y mod q for any modulus q > 1.
// Loops over a fixed modulus should use [Ring.MulMod] instead.
func MulMod(x, y, q uint64) uint64 {
	return ring.BRed(x%q, y%q, q, ring.GenBRedConstant(q))
}

// ModInverse returns x^-1 mod q.
func ModInverse(x, q uint64) (uint64, error) {
	inv := new(big.Int).ModInverse(new(big.Int).SetUint64(x), new(big.Int).SetUint64(q))
	if inv == nil {
		return 0, fmt.Errorf("cannot ModInverse: %d mod %d: %w", x, q, ErrNotInvertible)
	}
	return inv.Uint64(), nil
}

// MultiplicativeOrder returns the smallest k > 0 such that x^k = 1 mod m.
// x and m must be coprime.
func MultiplicativeOrder(x, m uint64) (k uint64) {
	brc := ring.GenBRedConstant(m)
	x %= m
	y := x
	for k = 1; y != 1; k++ {
		y = ring.BRed(y, x, m, brc)
	}
	return
}

// InvertMatrix returns the inverse of the square matrix m modulo t = p^e,
// where prime is p. Pivots are chosen among the entries that are units modulo p.
func InvertMatrix(m [][]uint64, modulus, prime uint64) (inv [][]uint64, err error) {

	n := len(m)
	brc := ring.GenBRedConstant(modulus)

	a := make([][]uint64, n)
	inv = make([][]uint64, n)
	for i := range m {
		if len(m[i]) != n {
			return nil, fmt.Errorf("cannot InvertMatrix: matrix is not square")
		}
		a[i] = make([]uint64, n)
		for j := range m[i] {
			a[i][j] = m[i][j] % modulus
		}
		inv[i] = make([]uint64, n)
		inv[i][i] = 1
	}

	for col := 0; col < n; col++ {

		pivot := -1
		for row := col; row < n; row++ {
			if a[row][col]%prime != 0 {
				pivot = row
				break
			}
		}

		if pivot < 0 {
			return nil, fmt.Errorf("cannot InvertMatrix: %w", ErrNotInvertible)
		}

		a[col], a[pivot] = a[pivot], a[col]
		inv[col], inv[pivot] = inv[pivot], inv[col]

		var pinv uint64
		if pinv, err = ModInverse(a[col][col], modulus); err != nil {
			return nil, fmt.Errorf("cannot InvertMatrix: %w", err)
		}

		for j := 0; j < n; j++ {
			a[col][j] = ring.BRed(a[col][j], pinv, modulus, brc)
			inv[col][j] = ring.BRed(inv[col][j], pinv, modulus, brc)
		}

		for row := 0; row < n; row++ {

			if row == col || a[row][col] == 0 {
				continue
			}

			f := modulus - a[row][col]

			for j := 0; j < n; j++ {
				a[row][j] = ring.CRed(a[row][j]+ring.BRed(f, a[col][j], modulus, brc), modulus)
				inv[row][j] = ring.CRed(inv[row][j]+ring.BRed(f, inv[col][j], modulus, brc), modulus)
			}
		}
	}

	return
}

package lintrans

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/tuneinsight/lattigo/v6/core/rlwe"
	"github.com/tuneinsight/lattigo/v6/ring"
	"github.com/tuneinsight/lattigo/v6/utils"
	"github.com/tuneinsight/lattigo/v6/utils/sampling"

	"github.com/galoislab/slotlin/cyclo"
	"github.com/galoislab/slotlin/slots"
)

var flagParamString = flag.String("params", "", "specify the test slot ring parameters as a JSON string.")

var testParams = []slots.ParametersLiteral{
	{LogN: 3, Prime: 41, Exponent: 1},
	{LogN: 3, Prime: 7, Exponent: 1},
	{LogN: 3, Prime: 3, Exponent: 2},
	{LogN: 4, Prime: 17, Exponent: 2},
	{LogN: 4, Prime: 97, Exponent: 1},
}

func testString(opname string, s *slots.SlotRing) string {
	return fmt.Sprintf("%s/%s", opname, s)
}

func TestLinearTransform(t *testing.T) {

	paramsLiterals := testParams

	if *flagParamString != "" {
		var jsonParams slots.ParametersLiteral
		if err := json.Unmarshal([]byte(*flagParamString), &jsonParams); err != nil {
			t.Fatal(err)
		}
		paramsLiterals = []slots.ParametersLiteral{jsonParams}
	}

	for _, p := range paramsLiterals {

		s, err := slots.NewSlotRingFromLiteral(p)
		require.NoError(t, err)

		prng, err := sampling.NewKeyedPRNG([]byte{'l', 'i', 'n', 't', 'r', 'a', 'n', 's'})
		require.NoError(t, err)

		for _, testSet := range []func(s *slots.SlotRing, prng sampling.PRNG, t *testing.T){
			testPowerTable,
			testFrobeniusCompiler,
			testIdentity,
			testDegreeMismatch,
			testCompileSlotBasis,
			testCompileSlotBasisLanes,
			testCoefficientShift,
			testPacking,
			testSerialization,
		} {
			testSet(s, prng, t)
		}
	}
}

func randomPoly(t *testing.T, r *cyclo.Ring, prng sampling.PRNG) ring.Poly {
	p := r.NewPoly()
	require.NoError(t, r.Read(prng, p))
	return p
}

func randomValues(t *testing.T, r *cyclo.Ring, prng sampling.PRNG, n int) (values []uint64) {
	for len(values) < n {
		values = append(values, randomPoly(t, r, prng).Coeffs[0]...)
	}
	return values[:n]
}

// denseSlotMatrix is a slot matrix given by all its blocks; nil blocks are zero.
type denseSlotMatrix [][][][]uint64

func (m denseSlotMatrix) FillBlock(block SparseBlock, blockRow, blockCol int) {
	for r, row := range m[blockRow][blockCol] {
		for c, v := range row {
			if v != 0 {
				block.Set(r, c, v)
			}
		}
	}
}

// apply computes the map of the matrix slot by slot.
func (m denseSlotMatrix) apply(s *slots.SlotRing, x ring.Poly) ring.Poly {

	r := s.Ring()
	q := r.Modulus()
	d := s.SlotRank()

	out := r.NewPoly()

	for j := range m {

		value := make([]uint64, d)

		for i, block := range m[j] {

			if block == nil {
				continue
			}

			in := s.SlotValue(x, i)

			for row := range block {
				for col, v := range block[row] {
					value[row] = (value[row] + cyclo.MulMod(v, in[col], q)) % q
				}
			}
		}

		r.Add(out, s.FromSlotValue(value, j), out)
	}

	return out
}

// newDenseSlotMatrix samples a random matrix of n x n blocks of size d x d,
// where the blocks (j, i) with zero(j, i) are left empty.
func newDenseSlotMatrix(t *testing.T, s *slots.SlotRing, prng sampling.PRNG, n int, zero func(j, i int) bool) denseSlotMatrix {

	r := s.Ring()
	d := s.SlotRank()

	m := make(denseSlotMatrix, n)
	for j := range m {
		m[j] = make([][][]uint64, n)
		for i := range m[j] {

			if zero(j, i) {
				continue
			}

			values := randomValues(t, r, prng, d*d)

			m[j][i] = make([][]uint64, d)
			for row := range m[j][i] {
				m[j][i][row] = values[row*d : (row+1)*d]
			}
		}
	}

	return m
}

func testPowerTable(s *slots.SlotRing, prng sampling.PRNG, t *testing.T) {

	t.Run(testString("PowerTable", s), func(t *testing.T) {

		view := s.SlotView()
		r := view.Ring

		generator := r.NewPoly()
		r.MulByMonomial(view.One, 1, generator)

		table, err := NewPowerTable(view, generator, s.N())
		require.NoError(t, err)
		require.Equal(t, s.N(), table.Len())

		want := r.NewPoly()
		for k := -2 * s.N(); k < 3*s.N(); k++ {
			r.MulByMonomial(view.One, k, want)
			require.True(t, r.Equal(want, table.At(k)), k)
		}

		acc := r.NewPoly()
		table.MulScalarThenAdd(s.N()+1, 2, acc)
		r.MulByMonomial(view.One, s.N()+1, want)
		r.MulScalar(want, 2, want)
		require.True(t, r.Equal(want, acc))

		_, err = NewPowerTable(view, view.One, s.N())
		require.ErrorIs(t, err, slots.ErrInvalidRing)
	})
}

func testFrobeniusCompiler(s *slots.SlotRing, prng sampling.PRNG, t *testing.T) {

	t.Run(testString("FrobeniusCompiler", s), func(t *testing.T) {

		view := s.SlotView()
		r := view.Ring
		d := s.SlotRank()

		generator := r.NewPoly()
		r.MulByMonomial(view.One, 1, generator)

		table, err := NewPowerTable(view, generator, s.N())
		require.NoError(t, err)

		compiler := NewFrobeniusCompiler(view, s.Prime(), s.N(), table)

		matrix := newDenseSlotMatrix(t, s, prng, 1, func(j, i int) bool { return false })

		// Keeps one entry out of two to get a sparse block.
		block := SparseBlock{}
		a := make([][]uint64, d)
		for row := range a {
			a[row] = make([]uint64, d)
			for col := range a[row] {
				if (row+col)&1 == 0 {
					a[row][col] = matrix[0][0][row][col]
					block.Set(row, col, a[row][col])
				}
			}
		}

		coeffs := compiler.Compile(block)
		require.Len(t, coeffs, d)

		for col := 0; col < d; col++ {

			basis := table.At(col)

			y := r.NewPoly()
			for i, c := range coeffs {
				tmp := s.Frobenius(i).ApplyNew(basis)
				r.MulThenAdd(c, tmp, y)
			}

			coordinates := view.Coordinates(y)
			for row := 0; row < d; row++ {
				require.Equal(t, a[row][col], coordinates[row])
			}
		}

		require.Equal(t, coeffs, CompileFrobenius(block, view, s.Prime(), s.N(), table))

		for _, c := range compiler.Compile(SparseBlock{}) {
			require.True(t, r.IsZero(c))
		}

		require.Panics(t, func() { compiler.Compile(SparseBlock{{Row: d, Col: 0}: 1}) })
	})
}

func testIdentity(s *slots.SlotRing, prng sampling.PRNG, t *testing.T) {

	t.Run(testString("CompileSlotBasis/Identity", s), func(t *testing.T) {

		r := s.Ring()

		identity := SlotMatrixFunc(func(block SparseBlock, blockRow, blockCol int) {
			if blockRow == blockCol {
				for i := 0; i < s.SlotRank(); i++ {
					block.Set(i, i, 1)
				}
			}
		})

		lt, err := CompileSlotBasis(s, identity, true)
		require.NoError(t, err)

		x := randomPoly(t, r, prng)
		require.True(t, r.Equal(x, lt.Evaluate(x)))

		_, babySteps, giantSteps := lt.BSGSIndex()
		require.Equal(t, []int{0}, babySteps)
		require.Equal(t, []int{0}, giantSteps)
	})
}

func testDegreeMismatch(s *slots.SlotRing, prng sampling.PRNG, t *testing.T) {

	t.Run(testString("CompiledTransform/DegreeMismatch", s), func(t *testing.T) {

		small := ring.NewPoly(s.N()>>1, 0)
		small.Coeffs[0][0] = 1

		lt := NewCompiledTransform(s, true)
		require.Panics(t, func() { lt.AddScaledTransform(small, s.Rotation(0), s.Frobenius(0)) })

		lt.FixCoefficientShift()
		require.Panics(t, func() { lt.Evaluate(small) })

		large := ring.NewPoly(s.N()<<1, 0)
		require.Panics(t, func() { lt.Evaluate(large) })
	})
}

func testCompileSlotBasis(s *slots.SlotRing, prng sampling.PRNG, t *testing.T) {

	t.Run(testString("CompileSlotBasis/Dense", s), func(t *testing.T) {

		r := s.Ring()

		matrix := newDenseSlotMatrix(t, s, prng, s.SlotCount(), func(j, i int) bool { return (j+2*i)%3 == 1 })

		lt, err := CompileSlotBasis(s, matrix, true)
		require.NoError(t, err)
		require.True(t, lt.IsShiftFixed())

		for i := 0; i < 2; i++ {
			x := randomPoly(t, r, prng)
			require.True(t, r.Equal(matrix.apply(s, x), lt.Evaluate(x)))
		}
	})
}

func testCompileSlotBasisLanes(s *slots.SlotRing, prng sampling.PRNG, t *testing.T) {

	t.Run(testString("CompileSlotBasis/Lanes", s), func(t *testing.T) {

		r := s.Ring()
		g1 := s.SlotG1Order()

		inner := newDenseSlotMatrix(t, s, prng, g1, func(j, i int) bool { return false })

		if s.SlotG2Order() != 2 {
			_, err := CompileSlotBasis(s, inner, false)
			require.ErrorIs(t, err, slots.ErrInvalidRing)
			return
		}

		// The same matrix acts on both lanes.
		full := make(denseSlotMatrix, s.SlotCount())
		for j := range full {
			full[j] = make([][][]uint64, s.SlotCount())
			for i := range full[j] {
				if j/g1 == i/g1 {
					full[j][i] = inner[j%g1][i%g1]
				}
			}
		}

		withG2, err := CompileSlotBasis(s, full, true)
		require.NoError(t, err)

		withoutG2, err := CompileSlotBasis(s, inner, false)
		require.NoError(t, err)
		require.False(t, withoutG2.UsesG2())
		require.Equal(t, s.N()>>1, len(withoutG2.Coefficients()))

		x := randomPoly(t, r, prng)
		want := full.apply(s, x)

		require.True(t, r.Equal(want, withG2.Evaluate(x)))
		require.True(t, r.Equal(want, withoutG2.Evaluate(x)))
	})
}

func testCoefficientShift(s *slots.SlotRing, prng sampling.PRNG, t *testing.T) {

	t.Run(testString("FixCoefficientShift", s), func(t *testing.T) {

		r := s.Ring()

		newTransform := func() *CompiledTransform {
			return NewCompiledTransform(s, true)
		}

		lt := newTransform()
		unfixed := newTransform()

		m := lt.BabyStepAutomorphismCount()
		indexes := []int{0, 1, m, m + 1, len(lt.coefficients) - 1}

		x := randomPoly(t, r, prng)
		want := r.NewPoly()

		for _, index := range indexes {

			scaling := randomPoly(t, r, prng)
			galEl := lt.Automorphism(index)

			r.MulThenAdd(scaling, s.NewAutomorphism(galEl).ApplyNew(x), want)

			lt.AddScaledTransform(scaling, s.NewAutomorphism(galEl), s.Frobenius(0))
			unfixed.AddScaledTransform(scaling, s.NewAutomorphism(galEl), s.Frobenius(0))
		}

		require.Panics(t, func() { lt.Evaluate(x) })

		lt.FixCoefficientShift()
		require.True(t, r.Equal(want, lt.Evaluate(x)))

		require.Panics(t, func() { lt.FixCoefficientShift() })
		require.Panics(t, func() { lt.AddScaledTransform(r.One(), s.Rotation(0), s.Frobenius(0)) })

		unfixed.shiftFixed = true
		require.False(t, r.Equal(want, unfixed.Evaluate(x)))

		// Automorphisms X -> X^(5^k * (-1)) are not available without g2.
		half := NewCompiledTransform(s, false)
		require.Panics(t, func() { half.AddScaledTransform(r.One(), s.NewAutomorphism(s.NthRoot()-1), s.Frobenius(0)) })

		for index := range lt.coefficients {
			k, l := lt.exponents(index)
			require.Equal(t, s.GaloisElement(k, l), lt.Automorphism(index))
			got, ok := lt.Index(lt.Automorphism(index))
			require.True(t, ok)
			require.Equal(t, index, got)
			require.Equal(t, uint64(1), (lt.ReverseAutomorphism(index)*lt.Automorphism(index))&(s.NthRoot()-1))
		}

		for g := 0; g < lt.GiantStepAutomorphismCount(); g++ {
			for i := 0; i < m; i++ {
				require.Equal(t, (lt.Automorphism(i)*lt.GiantStepAutomorphism(g))&(s.NthRoot()-1), lt.Automorphism(i+m*g))
			}
		}
	})
}

func testPacking(s *slots.SlotRing, prng sampling.PRNG, t *testing.T) {

	t.Run(testString("Packing", s), func(t *testing.T) {

		r := s.Ring()
		n := s.SlotCount()
		d := s.SlotRank()

		toSlots, err := FirstCoefficientsToScalarSlots(s)
		require.NoError(t, err)

		toCoeffs, err := ScalarSlotsToFirstCoefficients(s)
		require.NoError(t, err)

		x := randomPoly(t, r, prng)

		y := toSlots.Evaluate(x)
		for j := 0; j < n; j++ {
			want := make([]uint64, d)
			want[0] = x.Coeffs[0][j]
			require.Equal(t, want, s.SlotValue(y, j))
		}

		z := toCoeffs.Evaluate(x)
		for j := 0; j < r.N(); j++ {
			if j < n {
				require.Equal(t, s.SlotValue(x, j)[0], z.Coeffs[0][j])
			} else {
				require.Zero(t, z.Coeffs[0][j])
			}
		}

		z = toCoeffs.Evaluate(y)
		require.Equal(t, x.Coeffs[0][:n], z.Coeffs[0][:n])
	})
}

func testSerialization(s *slots.SlotRing, prng sampling.PRNG, t *testing.T) {

	t.Run(testString("Serialization", s), func(t *testing.T) {

		r := s.Ring()

		lt, err := FirstCoefficientsToScalarSlots(s)
		require.NoError(t, err)

		data, err := lt.MarshalBinary()
		require.NoError(t, err)
		require.Len(t, data, lt.BinarySize())

		other := NewCompiledTransform(s, false)
		require.NoError(t, other.UnmarshalBinary(data))
		require.True(t, lt.Equal(other))

		stream := new(bytes.Buffer)
		n, err := lt.WriteTo(stream)
		require.NoError(t, err)
		require.Equal(t, int64(lt.BinarySize()), n)
		require.Equal(t, data, stream.Bytes())

		loaded, err := LoadBinary(s, stream)
		require.NoError(t, err)
		require.True(t, lt.Equal(loaded))

		x := randomPoly(t, r, prng)
		require.True(t, r.Equal(lt.Evaluate(x), loaded.Evaluate(x)))

		for _, size := range []int{0, 5, 8, len(data) - 1} {
			_, err = LoadBinary(s, bytes.NewReader(data[:size]))
			require.ErrorIs(t, err, io.ErrUnexpectedEOF)
		}

		require.Error(t, other.UnmarshalBinary(append([]byte{3, 0, 0, 0, 0, 0, 0, 0}, data[8:]...)))
		require.True(t, lt.Equal(other))

		require.Panics(t, func() { NewCompiledTransform(s, true).MarshalBinary() })

		invalid := append([]byte{}, data...)
		copy(invalid[8:16], []byte{0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0x0f})
		_, err = LoadBinary(s, bytes.NewReader(invalid))
		require.Error(t, err)
	})
}

// plaintextEvaluator is an [Evaluator] on plaintext values stored in the first
// component of the ciphertexts. It records the Galois elements it is called with.
type plaintextEvaluator struct {
	ring   *cyclo.Ring
	galEls map[uint64]bool
}

func newPlaintextEvaluator(r *cyclo.Ring) *plaintextEvaluator {
	return &plaintextEvaluator{ring: r, galEls: map[uint64]bool{}}
}

func (eval *plaintextEvaluator) newCiphertext(t *testing.T, x ring.Poly) *rlwe.Ciphertext {
	ct, err := rlwe.NewCiphertextAtLevelFromPoly(0, []ring.Poly{eval.ring.CopyNew(x), eval.ring.NewPoly()})
	require.NoError(t, err)
	return ct
}

func (eval *plaintextEvaluator) EncodeCoefficientsNew(coefficients ring.Poly) (pt *rlwe.Plaintext, err error) {
	return rlwe.NewPlaintextAtLevelFromPoly(0, eval.ring.CopyNew(coefficients))
}

func (eval *plaintextEvaluator) Automorphism(ctIn *rlwe.Ciphertext, galEl uint64, opOut *rlwe.Ciphertext) (err error) {
	eval.galEls[galEl] = true
	eval.ring.Automorphism(ctIn.Value[0], galEl, opOut.Value[0])
	return
}

func (eval *plaintextEvaluator) Add(op0 *rlwe.Ciphertext, op1 rlwe.Operand, opOut *rlwe.Ciphertext) (err error) {
	eval.ring.Add(op0.Value[0], op1.(*rlwe.Ciphertext).Value[0], opOut.Value[0])
	return
}

func (eval *plaintextEvaluator) Mul(op0 *rlwe.Ciphertext, op1 rlwe.Operand, opOut *rlwe.Ciphertext) (err error) {
	eval.ring.Mul(op0.Value[0], op1.(*rlwe.Plaintext).Value, opOut.Value[0])
	return
}

func TestSubringTransform(t *testing.T) {

	for _, p := range []struct{ subring, ring slots.ParametersLiteral }{
		{slots.ParametersLiteral{LogN: 3, Prime: 17, Exponent: 1}, slots.ParametersLiteral{LogN: 4, Prime: 17, Exponent: 1}},
		{slots.ParametersLiteral{LogN: 3, Prime: 7, Exponent: 2}, slots.ParametersLiteral{LogN: 5, Prime: 7, Exponent: 2}},
		{slots.ParametersLiteral{LogN: 4, Prime: 41, Exponent: 1}, slots.ParametersLiteral{LogN: 4, Prime: 41, Exponent: 1}},
	} {

		sub, err := slots.NewSlotRingFromLiteral(p.subring)
		require.NoError(t, err)

		s, err := slots.NewSlotRingFromLiteral(p.ring)
		require.NoError(t, err)

		prng, err := sampling.NewKeyedPRNG([]byte{'s', 'u', 'b', 'r', 'i', 'n', 'g'})
		require.NoError(t, err)

		rSub := sub.Ring()
		r := s.Ring()

		embed := func(y ring.Poly) ring.Poly {
			x := r.NewPoly()
			r.Embed(y, x)
			return x
		}

		t.Run(testString("Evaluate", s), func(t *testing.T) {

			lt, err := FirstCoefficientsToScalarSlots(sub)
			require.NoError(t, err)

			y := randomPoly(t, rSub, prng)
			want := embed(lt.Evaluate(y))

			st := lt.InRing(s)
			require.Panics(t, func() { lt.Evaluate(y) })
			require.Panics(t, func() { lt.InRing(s) })

			x := embed(y)
			require.True(t, r.Equal(want, st.Evaluate(x)))

			eval := newPlaintextEvaluator(r)
			opOut := eval.newCiphertext(t, r.NewPoly())
			require.NoError(t, st.EvaluateCiphertext(eval.newCiphertext(t, x), eval, opOut))
			require.True(t, r.Equal(want, opOut.Value[0]))

			require.Equal(t, st.GaloisElements(), utils.GetSortedKeys(eval.galEls))

			for _, galEl := range st.GaloisElements() {
				require.Equal(t, uint64(1), galEl&1)
				require.Less(t, galEl, s.NthRoot())
			}

			fresh, err := FirstCoefficientsToScalarSlots(sub)
			require.NoError(t, err)

			inner := st.Transform()
			require.True(t, inner.Equal(fresh))
			require.True(t, rSub.Equal(fresh.Evaluate(y), inner.Evaluate(y)))
			require.Panics(t, func() { st.Evaluate(x) })
		})

		t.Run(testString("SlotsToCoefficients", s), func(t *testing.T) {

			st, err := SlotsToCoefficients(sub, s)
			require.NoError(t, err)

			y := randomPoly(t, rSub, prng)

			want := rSub.NewPoly()
			for j := 0; j < sub.SlotCount(); j++ {
				want.Coeffs[0][j] = sub.SlotValue(y, j)[0]
			}

			require.True(t, r.Equal(embed(want), st.Evaluate(embed(y))))

			back, err := CoefficientsToSlots(sub, s)
			require.NoError(t, err)

			// Reads z = z'(X^gap) back in the subring.
			z := back.Evaluate(embed(want))
			zSub := rSub.NewPoly()
			for i := range zSub.Coeffs[0] {
				zSub.Coeffs[0][i] = z.Coeffs[0][i*(s.N()/sub.N())]
			}
			require.True(t, r.Equal(z, embed(zSub)))

			for j := 0; j < sub.SlotCount(); j++ {
				value := make([]uint64, sub.SlotRank())
				value[0] = want.Coeffs[0][j]
				require.Equal(t, value, sub.SlotValue(zSub, j))
			}
		})

		t.Run(testString("Concurrent", s), func(t *testing.T) {

			st, err := CoefficientsToSlots(sub, s)
			require.NoError(t, err)

			require.NoError(t, st.Prepare(newPlaintextEvaluator(r)))

			x := embed(randomPoly(t, rSub, prng))
			want := st.Evaluate(x)

			var wg sync.WaitGroup
			results := make([]*rlwe.Ciphertext, 4)
			errs := make([]error, len(results))
			for i := range results {
				eval := newPlaintextEvaluator(r)
				ctIn := eval.newCiphertext(t, x)
				results[i] = eval.newCiphertext(t, r.NewPoly())
				wg.Add(1)
				go func(i int) {
					defer wg.Done()
					errs[i] = st.EvaluateCiphertext(ctIn, eval, results[i])
				}(i)
			}
			wg.Wait()

			for i := range results {
				require.NoError(t, errs[i])
				require.True(t, r.Equal(want, results[i].Value[0]))
			}
		})

		t.Run(testString("Aliasing", s), func(t *testing.T) {

			st, err := CoefficientsToSlots(sub, s)
			require.NoError(t, err)

			x := embed(randomPoly(t, rSub, prng))

			eval := newPlaintextEvaluator(r)
			ct := eval.newCiphertext(t, x)
			require.NoError(t, st.EvaluateCiphertext(ct, eval, ct))
			require.True(t, r.Equal(st.Evaluate(x), ct.Value[0]))
		})

		t.Run(testString("MetaData", s), func(t *testing.T) {

			st, err := SlotsToCoefficients(sub, s)
			require.NoError(t, err)

			x := embed(randomPoly(t, rSub, prng))

			eval := newPlaintextEvaluator(r)
			ctIn := eval.newCiphertext(t, x)

			opOut := eval.newCiphertext(t, r.NewPoly())
			opOut.MetaData = nil
			require.NoError(t, st.EvaluateCiphertext(ctIn, eval, opOut))
			require.NotNil(t, opOut.MetaData)
			require.True(t, r.Equal(st.Evaluate(x), opOut.Value[0]))

			zero := NewCompiledTransform(sub, true)
			zero.FixCoefficientShift()

			opOut.MetaData = nil
			require.NoError(t, zero.InRing(s).EvaluateCiphertext(ctIn, eval, opOut))
			require.NotNil(t, opOut.MetaData)
			require.True(t, r.IsZero(opOut.Value[0]))
		})

		t.Run(testString("DegreeMismatch", s), func(t *testing.T) {

			st, err := SlotsToCoefficients(sub, s)
			require.NoError(t, err)

			if sub.N() != s.N() {
				require.Panics(t, func() { st.Evaluate(randomPoly(t, rSub, prng)) })
			}
			require.Panics(t, func() { st.Evaluate(ring.NewPoly(s.N()<<1, 0)) })
		})

		t.Run(testString("Zero", s), func(t *testing.T) {

			lt := NewCompiledTransform(sub, true)
			lt.FixCoefficientShift()

			st := lt.InRing(s)
			require.Empty(t, st.GaloisElements())

			eval := newPlaintextEvaluator(r)
			opOut := eval.newCiphertext(t, randomPoly(t, r, prng))
			require.NoError(t, st.EvaluateCiphertext(eval.newCiphertext(t, randomPoly(t, r, prng)), eval, opOut))
			require.True(t, r.IsZero(opOut.Value[0]))
			require.Empty(t, eval.galEls)
		})
	}

	t.Run("InRing/Mismatch", func(t *testing.T) {

		s17, err := slots.NewSlotRing(4, 17, 1)
		require.NoError(t, err)

		s41, err := slots.NewSlotRing(3, 41, 1)
		require.NoError(t, err)

		lt, err := FirstCoefficientsToScalarSlots(s41)
		require.NoError(t, err)
		require.Panics(t, func() { lt.InRing(s17) })

		unfixed := NewCompiledTransform(s41, true)
		require.Panics(t, func() { unfixed.InRing(s41) })
	})
}

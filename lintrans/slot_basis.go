package lintrans

import (
	"fmt"

	"github.com/tuneinsight/lattigo/v6/ring"

	"github.com/galoislab/slotlin/slots"
)

// SlotMatrix is a Z/p^eZ-linear map of the ring given in the slot basis
//
//	B_{j,t} = sigma_{h_j}(e_0 * X^t), for slots j and t in [0, d),
//
// as a matrix of d x d blocks. The block (blockRow, blockCol) maps the
// coordinates of the input slot blockCol to the coordinates of the output
// slot blockRow: its entry (r, c) is the coordinate r in slot blockRow of the
// image of B_{blockCol, c}.
type SlotMatrix interface {
	// FillBlock writes the non-zero entries of the block (blockRow, blockCol)
	// into the empty block.
	FillBlock(block SparseBlock, blockRow, blockCol int)
}

// SlotMatrixFunc is a function implementing [SlotMatrix].
type SlotMatrixFunc func(block SparseBlock, blockRow, blockCol int)

// FillBlock calls f(block, blockRow, blockCol).
func (f SlotMatrixFunc) FillBlock(block SparseBlock, blockRow, blockCol int) {
	f(block, blockRow, blockCol)
}

// CompileSlotBasis compiles the map given by matrix into a [CompiledTransform].
//
// If useG2 is true, the block indexes range over all the slots of r.
// If useG2 is false, the transform only uses the automorphisms X -> X^(5^k):
// the block indexes range over the first r.SlotG1Order() slots and the same
// matrix is applied to the slots j and j + r.SlotG1Order(). This requires
// r.SlotG2Order() == 2, otherwise an error wrapping [slots.ErrInvalidRing]
// is returned.
func CompileSlotBasis(r *slots.SlotRing, matrix SlotMatrix, useG2 bool) (lt *CompiledTransform, err error) {

	blockSize := r.SlotCount()

	var laneSwitch slots.Automorphism
	if !useG2 {
		if r.SlotG2Order() != 2 {
			return nil, fmt.Errorf("cannot CompileSlotBasis: useG2=false requires two lanes of slots but the ring has %d: %w", r.SlotG2Order(), slots.ErrInvalidRing)
		}
		blockSize = r.SlotG1Order()
		laneSwitch = r.NewAutomorphism(r.NthRoot() - 1)
	}

	view := r.SlotView()
	d := r.SlotRank()

	generator := view.Ring.NewPoly()
	view.Ring.MulByMonomial(view.One, 1, generator)

	var table *PowerTable
	if table, err = NewPowerTable(view, generator, r.N()); err != nil {
		return nil, fmt.Errorf("cannot CompileSlotBasis: %w", err)
	}

	compiler := NewFrobeniusCompiler(view, r.Prime(), r.N(), table)

	lt = NewCompiledTransform(r, useG2)

	frobenius := make([]slots.Automorphism, d)
	for l := range frobenius {
		frobenius[l] = r.Frobenius(l)
	}

	block := SparseBlock{}
	coeff := r.Ring().NewPoly()

	// The automorphism sigma_{h_s} sends the input slot i = j - s to the
	// output slot j, up to a Frobenius twist f.
	for s := 0; s < blockSize; s++ {

		rotation := r.Rotation(s)

		for j := 0; j < blockSize; j++ {

			i := r.SlotSub(j, s)

			clear(block)
			matrix.FillBlock(block, j, i)

			if len(block) == 0 {
				continue
			}

			dst, f := r.SlotAction(rotation.GaloisElement, i)
			if dst != j {
				panic(fmt.Errorf("cannot CompileSlotBasis: rotation by %d sends slot %d to %d instead of %d", s, i, dst, j))
			}

			frobeniusForm := compiler.Compile(block)

			toSlot := r.Rotation(j)

			for l := 0; l < d; l++ {

				toSlot.Apply(frobeniusForm[(l+f)%d], coeff)
				lt.AddScaledTransform(coeff, rotation, frobenius[l])

				if !useG2 {
					laneSwitch.Apply(coeff, coeff)
					lt.AddScaledTransform(coeff, rotation, frobenius[l])
				}
			}
		}
	}

	lt.FixCoefficientShift()

	return
}

// FirstCoefficientsToScalarSlots returns the transform
//
//	x -> sum_{j < r.SlotCount()} x_j * e_j
//
// where x_j is the coefficient of X^j of x and e_j is the idempotent of slot j.
func FirstCoefficientsToScalarSlots(r *slots.SlotRing) (*CompiledTransform, error) {

	view := r.SlotView()
	rg := view.Ring
	n := r.SlotCount()

	// T[t] = e_0 * X^t
	basis := make([]ring.Poly, r.SlotRank())
	for t := range basis {
		basis[t] = rg.NewPoly()
		rg.MulByMonomial(view.One, t, basis[t])
	}

	invRep := make([]uint64, n)
	for j := range invRep {
		invRep[j] = r.InvGaloisElement(r.SlotGaloisElement(j))
	}

	// The coefficient of X^j of sigma_h(T[t]) is the coefficient of X^(j * h^-1) of T[t].
	matrix := SlotMatrixFunc(func(block SparseBlock, blockRow, blockCol int) {
		for t, b := range basis {
			k := int((uint64(blockRow) * invRep[blockCol]) & (r.NthRoot() - 1))
			if c := rg.Coefficient(b, k); c != 0 {
				block.Set(0, t, c)
			}
		}
	})

	lt, err := CompileSlotBasis(r, matrix, true)
	if err != nil {
		return nil, fmt.Errorf("cannot FirstCoefficientsToScalarSlots: %w", err)
	}

	return lt, nil
}

// ScalarSlotsToFirstCoefficients returns the transform
//
//	x -> sum_{j < r.SlotCount()} y_j * X^j
//
// where y_j is the constant coordinate of the slot j of x.
func ScalarSlotsToFirstCoefficients(r *slots.SlotRing) (*CompiledTransform, error) {

	view := r.SlotView()
	rg := view.Ring
	n := r.SlotCount()

	invRep := make([]uint64, n)
	for j := range invRep {
		invRep[j] = r.InvGaloisElement(r.SlotGaloisElement(j))
	}

	// The slot j of X^k is e_0 * X^(k * h_j^-1), which only depends on
	// k * h_j^-1 mod 2N.
	coordinates := map[int][]uint64{}
	slotValue := func(k int) []uint64 {
		if v, ok := coordinates[k]; ok {
			return v
		}
		y := rg.NewPoly()
		rg.MulByMonomial(view.One, k, y)
		v := view.Coordinates(y)
		coordinates[k] = v
		return v
	}

	matrix := SlotMatrixFunc(func(block SparseBlock, blockRow, blockCol int) {
		k := int((uint64(blockCol) * invRep[blockRow]) & (r.NthRoot() - 1))
		for t, c := range slotValue(k) {
			if c != 0 {
				block.Set(t, 0, c)
			}
		}
	})

	lt, err := CompileSlotBasis(r, matrix, true)
	if err != nil {
		return nil, fmt.Errorf("cannot ScalarSlotsToFirstCoefficients: %w", err)
	}

	return lt, nil
}

package slots

import (
	"encoding/json"
	"fmt"
	"math/bits"

	"github.com/tuneinsight/lattigo/v6/ring"
)

// ParametersLiteral is a literal representation of the parameters of a
// [SlotRing]. It is the user-facing configuration of the package and can be
// (un)marshalled with encoding/json.
type ParametersLiteral struct {
	// LogN is the log2 of the ring degree N.
	LogN int
	// Prime is the odd prime p.
	Prime uint64
	// Exponent is the exponent e of the coefficient modulus p^e.
	Exponent int
}

// Modulus returns p^e.
func (p ParametersLiteral) Modulus() (t uint64) {
	t = 1
	for i := 0; i < p.Exponent; i++ {
		t *= p.Prime
	}
	return
}

// Validate checks that the literal describes a valid ring.
func (p ParametersLiteral) Validate() error {

	if p.LogN < 3 || p.LogN > 16 {
		return fmt.Errorf("invalid LogN: must be in [3, 16] but is %d", p.LogN)
	}

	if p.Prime < 3 || !ring.IsPrime(p.Prime) {
		return fmt.Errorf("invalid Prime: %d is not an odd prime", p.Prime)
	}

	if p.Exponent < 1 {
		return fmt.Errorf("invalid Exponent: must be at least 1 but is %d", p.Exponent)
	}

	var logT int
	for i := 0; i < p.Exponent; i++ {
		logT += bits.Len64(p.Prime)
	}

	if logT > 61 {
		return fmt.Errorf("invalid Exponent: Prime^Exponent must be smaller than 2^61")
	}

	return nil
}

// MarshalJSON encodes the literal into JSON.
func (p ParametersLiteral) MarshalJSON() ([]byte, error) {
	type literal ParametersLiteral
	return json.Marshal(literal(p))
}

// UnmarshalJSON decodes a JSON encoded literal and validates it.
func (p *ParametersLiteral) UnmarshalJSON(data []byte) (err error) {
	type literal ParametersLiteral
	var aux literal
	if err = json.Unmarshal(data, &aux); err != nil {
		return
	}
	*p = ParametersLiteral(aux)
	return p.Validate()
}

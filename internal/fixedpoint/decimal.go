// Package fixedpoint implements the gateway's fixed-point price type:
// an (integer, fractional) pair with a documented fractional base,
// convertible to and from float64 for display and test assertions.
package fixedpoint

import "fmt"

// FractionalBase is the divisor applied to Fractional when converting
// to a float64. It matches the Tick wire layout's value_fractional
// column (spec.md §6): a signed 32-bit fractional part scaled by 1e-8.
const FractionalBase = 1e8

// Decimal is a fixed-point value: Integer whole units plus a Fractional
// part scaled by FractionalBase. Both fields carry the sign of the
// overall value; Fractional is never negative when Integer is positive
// and vice versa is not enforced — callers normalize via FromFloat.
type Decimal struct {
	Integer    int64
	Fractional int64
}

// FromFloat builds a Decimal from f, rounding the fractional part to
// the nearest FractionalBase unit.
func FromFloat(f float64) Decimal {
	neg := f < 0
	if neg {
		f = -f
	}
	intPart := int64(f)
	frac := int64((f-float64(intPart))*FractionalBase + 0.5)
	if frac >= FractionalBase {
		intPart++
		frac -= FractionalBase
	}
	if neg {
		intPart = -intPart
		frac = -frac
	}
	return Decimal{Integer: intPart, Fractional: frac}
}

// ToFloat returns the Decimal as a float64.
func (d Decimal) ToFloat() float64 {
	return float64(d.Integer) + float64(d.Fractional)/FractionalBase
}

// String renders the Decimal for logging.
func (d Decimal) String() string {
	return fmt.Sprintf("%.8f", d.ToFloat())
}

// IsZero reports whether d represents exactly zero.
func (d Decimal) IsZero() bool {
	return d.Integer == 0 && d.Fractional == 0
}

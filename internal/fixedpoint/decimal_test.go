package fixedpoint

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFromFloatRoundTrip(t *testing.T) {
	cases := []float64{0, 1, 19.73, 100.00000001, -5.5, 0.00000001}
	for _, f := range cases {
		d := FromFloat(f)
		require.InDelta(t, f, d.ToFloat(), 1e-7, "case %v", f)
	}
}

func TestFromFloatNegative(t *testing.T) {
	d := FromFloat(-19.73)
	require.Equal(t, int64(-19), d.Integer)
	require.InDelta(t, -19.73, d.ToFloat(), 1e-7)
}

func TestIsZero(t *testing.T) {
	require.True(t, Decimal{}.IsZero())
	require.False(t, FromFloat(0.1).IsZero())
}

func TestFractionalCarriesIntoInteger(t *testing.T) {
	d := FromFloat(1.999999999)
	require.Equal(t, int64(2), d.Integer)
	require.Equal(t, int64(0), d.Fractional)
}

package stake

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestIsqrt(t *testing.T) {
	cases := []struct {
		in   uint64
		want uint64
	}{
		{0, 0},
		{1, 1},
		{2, 1},
		{3, 1},
		{4, 2},
		{8, 2},
		{9, 3},
		{10_000, 100},
		{99_999_999, 9999},
		{100_000_000, 10_000},
		{math.MaxUint64, 4294967295},
	}
	for _, tc := range cases {
		require.Equal(t, tc.want, Isqrt(tc.in), "Isqrt(%d)", tc.in)
	}
}

func TestIsqrtIsFloor(t *testing.T) {
	for v := uint64(0); v < 70_000; v++ {
		root := Isqrt(v)
		require.LessOrEqual(t, root*root, v, "root too large for %d", v)
		require.Greater(t, (root+1)*(root+1), v, "root too small for %d", v)
	}
}

func TestWeightBound(t *testing.T) {
	// principal = 10000, duration = 10000, fully locked -> 100*100 = 10000.
	require.Equal(t, uint64(10_000), WeightBound(10_000, 10_000, 0))

	// Zero principal or duration disables stake-attributed minting.
	require.Equal(t, uint64(0), WeightBound(0, 10_000, 0))
	require.Equal(t, uint64(0), WeightBound(10_000, 0, 0))

	// A fully liquid stake halves the bound.
	require.Equal(t, uint64(5_000), WeightBound(10_000, 10_000, BpsDenominator))

	// Partial liquidity: 10000 * 10000 / 12500 = 8000.
	require.Equal(t, uint64(8_000), WeightBound(10_000, 10_000, 2_500))
}

func TestWeightBoundExtremes(t *testing.T) {
	// isqrt(MaxUint64) = 2^32-1, so the fully-locked bound is (2^32-1)^2.
	bound := WeightBound(math.MaxUint64, math.MaxUint64, 0)
	require.Equal(t, uint64(18446744065119617025), bound)
}

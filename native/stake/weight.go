package stake

import (
	"math"
	"math/big"
	"math/bits"
)

// BpsDenominator scales the liquidity share supplied by the staking/loan
// subsystem: 0 bps is a fully locked stake, 10_000 bps fully liquid.
const BpsDenominator = 10_000

// Isqrt returns floor(sqrt(v)) using pure integer Newton iteration so the
// bound is identical on every platform.
func Isqrt(v uint64) uint64 {
	if v < 2 {
		return v
	}
	x := uint64(1) << ((bits.Len64(v) + 1) / 2)
	for {
		y := (x + v/x) / 2
		if y >= x {
			return x
		}
		x = y
	}
}

// WeightBound computes the ceiling a single stake-attributed mint may issue:
//
//	floor(isqrt(principal) * isqrt(duration) * 10_000 / (10_000 + shareBps))
//
// A zero principal or duration yields zero: no stake, no stake-based minting.
// The result saturates at MaxUint64.
func WeightBound(principal, durationSeconds, liquidityShareBps uint64) uint64 {
	if principal == 0 || durationSeconds == 0 {
		return 0
	}
	product := new(big.Int).Mul(
		new(big.Int).SetUint64(Isqrt(principal)),
		new(big.Int).SetUint64(Isqrt(durationSeconds)),
	)
	product.Mul(product, big.NewInt(BpsDenominator))
	product.Quo(product, new(big.Int).SetUint64(BpsDenominator+liquidityShareBps))
	if !product.IsUint64() {
		return math.MaxUint64
	}
	return product.Uint64()
}

package common

import (
	"errors"
	"math"
)

// ErrArithmeticOverflow is returned when a checked operation would wrap. The
// ledger never wraps silently; callers abort the whole operation instead.
var ErrArithmeticOverflow = errors.New("arithmetic overflow")

// CheckedAdd returns a+b or ErrArithmeticOverflow.
func CheckedAdd(a, b uint64) (uint64, error) {
	if a > math.MaxUint64-b {
		return 0, ErrArithmeticOverflow
	}
	return a + b, nil
}

// CheckedSub returns a-b or ErrArithmeticOverflow when b exceeds a.
func CheckedSub(a, b uint64) (uint64, error) {
	if b > a {
		return 0, ErrArithmeticOverflow
	}
	return a - b, nil
}

// CheckedMul returns a*b or ErrArithmeticOverflow.
func CheckedMul(a, b uint64) (uint64, error) {
	if a == 0 || b == 0 {
		return 0, nil
	}
	if a > math.MaxUint64/b {
		return 0, ErrArithmeticOverflow
	}
	return a * b, nil
}

package common

import (
	"errors"
	"math"
	"testing"
)

func TestCheckedAdd(t *testing.T) {
	if v, err := CheckedAdd(1, 2); err != nil || v != 3 {
		t.Fatalf("add: %d %v", v, err)
	}
	if _, err := CheckedAdd(math.MaxUint64, 1); !errors.Is(err, ErrArithmeticOverflow) {
		t.Fatalf("expected overflow, got %v", err)
	}
	if v, err := CheckedAdd(math.MaxUint64, 0); err != nil || v != math.MaxUint64 {
		t.Fatalf("max+0: %d %v", v, err)
	}
}

func TestCheckedSub(t *testing.T) {
	if v, err := CheckedSub(5, 2); err != nil || v != 3 {
		t.Fatalf("sub: %d %v", v, err)
	}
	if _, err := CheckedSub(1, 2); !errors.Is(err, ErrArithmeticOverflow) {
		t.Fatalf("expected underflow, got %v", err)
	}
}

func TestCheckedMul(t *testing.T) {
	if v, err := CheckedMul(6, 7); err != nil || v != 42 {
		t.Fatalf("mul: %d %v", v, err)
	}
	if v, err := CheckedMul(0, math.MaxUint64); err != nil || v != 0 {
		t.Fatalf("zero mul: %d %v", v, err)
	}
	if _, err := CheckedMul(math.MaxUint64, 2); !errors.Is(err, ErrArithmeticOverflow) {
		t.Fatalf("expected overflow, got %v", err)
	}
}

package supply_test

import (
	"testing"

	"alphapoints/core/events"
	"alphapoints/core/state"
	"alphapoints/native/supply"
	"alphapoints/storage"
)

type capturingEmitter struct {
	events []events.Event
}

func (c *capturingEmitter) Emit(e events.Event) {
	c.events = append(c.events, e)
}

func newOracle(t *testing.T) *supply.Oracle {
	t.Helper()
	return supply.NewOracle(state.NewManager(storage.NewMemDB()))
}

func rate(t *testing.T, o *supply.Oracle) uint64 {
	t.Helper()
	r, err := o.RedeemRateBps()
	if err != nil {
		t.Fatalf("redeem rate: %v", err)
	}
	return r
}

func TestRatchetOnGrowth(t *testing.T) {
	oracle := newOracle(t)

	// Epoch 1: establish the baseline at 1000.
	if err := oracle.RecordMint(1_000, 1); err != nil {
		t.Fatalf("record mint: %v", err)
	}
	if got := rate(t, oracle); got != 0 {
		t.Fatalf("rate after first epoch: %d", got)
	}

	// The epoch-1 recompute closed the window on a zero baseline, so any
	// positive total ratchets at the next boundary.
	if err := oracle.RecordMint(100, 1); err != nil {
		t.Fatalf("record mint: %v", err)
	}
	if err := oracle.Recompute(2); err != nil {
		t.Fatalf("recompute: %v", err)
	}
	if got := rate(t, oracle); got != supply.RatchetStepBps {
		t.Fatalf("expected ratchet to %d, got %d", supply.RatchetStepBps, got)
	}

	total, err := oracle.TotalIssued()
	if err != nil {
		t.Fatalf("total issued: %v", err)
	}
	if total.Uint64() != 1_100 {
		t.Fatalf("unexpected total: %s", total)
	}
}

func TestNoRatchetBelowThreshold(t *testing.T) {
	oracle := newOracle(t)
	if err := oracle.RecordMint(10_000, 1); err != nil {
		t.Fatalf("record mint: %v", err)
	}
	if err := oracle.Recompute(2); err != nil {
		t.Fatalf("recompute: %v", err)
	}
	base := rate(t, oracle)

	// 4% growth stays under the 5% threshold.
	if err := oracle.RecordMint(400, 2); err != nil {
		t.Fatalf("record mint: %v", err)
	}
	if err := oracle.Recompute(3); err != nil {
		t.Fatalf("recompute: %v", err)
	}
	if got := rate(t, oracle); got != base {
		t.Fatalf("rate moved without threshold breach: %d -> %d", base, got)
	}

	// Exactly 5% growth is not strictly greater, still no ratchet.
	if err := oracle.RecordMint(520, 3); err != nil {
		t.Fatalf("record mint: %v", err)
	}
	if err := oracle.Recompute(4); err != nil {
		t.Fatalf("recompute: %v", err)
	}
	if got := rate(t, oracle); got != base {
		t.Fatalf("rate moved at exact threshold: %d -> %d", base, got)
	}
}

func TestRecomputeOncePerEpoch(t *testing.T) {
	oracle := newOracle(t)
	if err := oracle.RecordMint(1_000, 1); err != nil {
		t.Fatalf("record mint: %v", err)
	}
	if err := oracle.RecordMint(1_000, 1); err != nil {
		t.Fatalf("record mint: %v", err)
	}
	if err := oracle.Recompute(2); err != nil {
		t.Fatalf("recompute: %v", err)
	}
	afterFirst := rate(t, oracle)
	// Recompute again in the same epoch: must be a no-op.
	if err := oracle.Recompute(2); err != nil {
		t.Fatalf("recompute: %v", err)
	}
	if got := rate(t, oracle); got != afterFirst {
		t.Fatalf("second recompute in epoch changed rate: %d -> %d", afterFirst, got)
	}
}

func TestRateIsMonotonic(t *testing.T) {
	oracle := newOracle(t)
	emitter := &capturingEmitter{}
	oracle.SetEmitter(emitter)

	last := uint64(0)
	amount := uint64(1_000)
	for epoch := uint64(1); epoch <= 20; epoch++ {
		if err := oracle.RecordMint(amount, epoch); err != nil {
			t.Fatalf("record mint: %v", err)
		}
		got := rate(t, oracle)
		if got < last {
			t.Fatalf("rate decreased: %d -> %d at epoch %d", last, got, epoch)
		}
		last = got
		// Alternate heavy and zero growth to exercise both branches.
		if epoch%2 == 0 {
			amount = 0
		} else {
			amount = 50_000
		}
	}
	for _, evt := range emitter.events {
		if _, ok := evt.(events.SupplyRateRatcheted); !ok {
			t.Fatalf("unexpected event type: %T", evt)
		}
	}
}

package ledger_test

import (
	"errors"
	"math"
	"testing"

	"alphapoints/core/events"
	"alphapoints/core/state"
	"alphapoints/native/common"
	"alphapoints/native/ledger"
	"alphapoints/native/stake"
	"alphapoints/native/supply"
	"alphapoints/storage"
)

type stubPauses struct {
	paused bool
}

func (s stubPauses) IsPaused() bool { return s.paused }

type capturingEmitter struct {
	events []events.Event
}

func (c *capturingEmitter) Emit(e events.Event) {
	c.events = append(c.events, e)
}

func addr(b byte) [20]byte {
	var a [20]byte
	a[19] = b
	return a
}

func newEngine(t *testing.T) (*ledger.Engine, *state.Manager) {
	t.Helper()
	manager := state.NewManager(storage.NewMemDB())
	return ledger.NewEngine(manager), manager
}

func TestMintSpendRoundTrip(t *testing.T) {
	engine, _ := newEngine(t)
	wallet := addr(0x01)

	if err := engine.Mint(wallet, 5_000, 1, "system"); err != nil {
		t.Fatalf("mint: %v", err)
	}
	if got := engine.AvailableBalance(wallet); got != 5_000 {
		t.Fatalf("available = %d", got)
	}
	if got := engine.TotalSupply(); got != 5_000 {
		t.Fatalf("total supply = %d", got)
	}

	if err := engine.Spend(wallet, 2_000); err != nil {
		t.Fatalf("spend: %v", err)
	}
	if got := engine.AvailableBalance(wallet); got != 3_000 {
		t.Fatalf("available after spend = %d", got)
	}
	if got := engine.TotalSupply(); got != 3_000 {
		t.Fatalf("total supply after spend = %d", got)
	}

	if err := engine.Spend(wallet, 3_001); !errors.Is(err, ledger.ErrInsufficientBalance) {
		t.Fatalf("expected ErrInsufficientBalance, got %v", err)
	}
	if got := engine.AvailableBalance(wallet); got != 3_000 {
		t.Fatalf("failed spend must not move balance: %d", got)
	}
}

func TestDailyWalletCap(t *testing.T) {
	engine, _ := newEngine(t)
	wallet := addr(0x02)

	// Scenario: cap 10_000, mint 6_000 then 5_000 in the same epoch.
	if err := engine.Mint(wallet, 6_000, 1, "system"); err != nil {
		t.Fatalf("first mint: %v", err)
	}
	if err := engine.Mint(wallet, 5_000, 1, "system"); !errors.Is(err, ledger.ErrDailyWalletCapExceeded) {
		t.Fatalf("expected ErrDailyWalletCapExceeded, got %v", err)
	}
	if got := engine.AvailableBalance(wallet); got != 6_000 {
		t.Fatalf("balance after rejected mint = %d", got)
	}
	if got := engine.MintedToday(wallet, 1); got != 6_000 {
		t.Fatalf("minted today = %d", got)
	}

	// Exactly filling the cap is allowed.
	if err := engine.Mint(wallet, 4_000, 1, "system"); err != nil {
		t.Fatalf("cap-filling mint: %v", err)
	}
	if err := engine.Mint(wallet, 1, 1, "system"); !errors.Is(err, ledger.ErrDailyWalletCapExceeded) {
		t.Fatalf("expected cap breach, got %v", err)
	}

	// Epoch advance resets the meter once.
	if err := engine.Mint(wallet, 10_000, 2, "system"); err != nil {
		t.Fatalf("mint after epoch roll: %v", err)
	}
	if got := engine.MintedToday(wallet, 2); got != 10_000 {
		t.Fatalf("minted today after roll = %d", got)
	}
	// A stale query epoch reads the meter as zero.
	if got := engine.MintedToday(wallet, 3); got != 0 {
		t.Fatalf("minted today at future epoch = %d", got)
	}
}

func TestCapConsumptionIsAssociative(t *testing.T) {
	split, _ := newEngine(t)
	whole, _ := newEngine(t)
	wallet := addr(0x03)

	if err := split.Mint(wallet, 2_500, 4, "system"); err != nil {
		t.Fatalf("mint: %v", err)
	}
	if err := split.Mint(wallet, 2_500, 4, "system"); err != nil {
		t.Fatalf("mint: %v", err)
	}
	if err := whole.Mint(wallet, 5_000, 4, "system"); err != nil {
		t.Fatalf("mint: %v", err)
	}

	if split.MintedToday(wallet, 4) != whole.MintedToday(wallet, 4) {
		t.Fatalf("split %d != whole %d", split.MintedToday(wallet, 4), whole.MintedToday(wallet, 4))
	}
	if split.AvailableBalance(wallet) != whole.AvailableBalance(wallet) {
		t.Fatalf("balances diverge")
	}
}

func TestLockUnlock(t *testing.T) {
	engine, _ := newEngine(t)
	wallet := addr(0x04)

	if err := engine.Mint(wallet, 1_000, 1, "system"); err != nil {
		t.Fatalf("mint: %v", err)
	}
	if err := engine.Lock(wallet, 400); err != nil {
		t.Fatalf("lock: %v", err)
	}
	if got := engine.AvailableBalance(wallet); got != 600 {
		t.Fatalf("available = %d", got)
	}
	if got := engine.LockedBalance(wallet); got != 400 {
		t.Fatalf("locked = %d", got)
	}
	// Locking moves value between buckets, supply is untouched.
	if got := engine.TotalSupply(); got != 1_000 {
		t.Fatalf("total supply = %d", got)
	}

	if err := engine.Lock(wallet, 601); !errors.Is(err, ledger.ErrInsufficientBalance) {
		t.Fatalf("expected ErrInsufficientBalance, got %v", err)
	}
	if err := engine.Unlock(wallet, 401); !errors.Is(err, ledger.ErrInsufficientLocked) {
		t.Fatalf("expected ErrInsufficientLocked, got %v", err)
	}
	if err := engine.Unlock(wallet, 400); err != nil {
		t.Fatalf("unlock: %v", err)
	}
	if got := engine.AvailableBalance(wallet); got != 1_000 {
		t.Fatalf("available after unlock = %d", got)
	}
}

func TestSupplyInvariant(t *testing.T) {
	engine, _ := newEngine(t)
	engine.SetDailyWalletCap(0)
	wallets := []([20]byte){addr(0x10), addr(0x11), addr(0x12)}

	check := func() {
		t.Helper()
		var sum uint64
		for _, w := range wallets {
			sum += engine.AvailableBalance(w) + engine.LockedBalance(w)
		}
		if got := engine.TotalSupply(); got != sum {
			t.Fatalf("total supply %d != balance sum %d", got, sum)
		}
	}

	for i, w := range wallets {
		if err := engine.Mint(w, uint64(1_000*(i+1)), 1, "system"); err != nil {
			t.Fatalf("mint: %v", err)
		}
		check()
	}
	if err := engine.Lock(wallets[0], 700); err != nil {
		t.Fatalf("lock: %v", err)
	}
	check()
	if err := engine.Spend(wallets[1], 1_500); err != nil {
		t.Fatalf("spend: %v", err)
	}
	check()
	if err := engine.Unlock(wallets[0], 300); err != nil {
		t.Fatalf("unlock: %v", err)
	}
	check()
}

func TestMintOverflow(t *testing.T) {
	engine, _ := newEngine(t)
	engine.SetDailyWalletCap(0)
	wallet := addr(0x05)

	if err := engine.Mint(wallet, math.MaxUint64, 1, "system"); err != nil {
		t.Fatalf("mint: %v", err)
	}
	if err := engine.Mint(wallet, 1, 2, "system"); !errors.Is(err, common.ErrArithmeticOverflow) {
		t.Fatalf("expected ErrArithmeticOverflow, got %v", err)
	}
	if got := engine.AvailableBalance(wallet); got != math.MaxUint64 {
		t.Fatalf("balance changed on overflow: %d", got)
	}
}

func TestPausedLedgerRejectsEverything(t *testing.T) {
	engine, _ := newEngine(t)
	wallet := addr(0x06)
	if err := engine.Mint(wallet, 100, 1, "system"); err != nil {
		t.Fatalf("mint: %v", err)
	}

	engine.SetPauses(stubPauses{paused: true})
	if err := engine.Mint(wallet, 1, 1, "system"); !errors.Is(err, common.ErrProtocolPaused) {
		t.Fatalf("mint while paused: %v", err)
	}
	if err := engine.Spend(wallet, 1); !errors.Is(err, common.ErrProtocolPaused) {
		t.Fatalf("spend while paused: %v", err)
	}
	if err := engine.Lock(wallet, 1); !errors.Is(err, common.ErrProtocolPaused) {
		t.Fatalf("lock while paused: %v", err)
	}
	if err := engine.Unlock(wallet, 1); !errors.Is(err, common.ErrProtocolPaused) {
		t.Fatalf("unlock while paused: %v", err)
	}
	// Reads stay available while paused.
	if got := engine.AvailableBalance(wallet); got != 100 {
		t.Fatalf("read while paused = %d", got)
	}
}

func TestMintWithStakeBound(t *testing.T) {
	engine, _ := newEngine(t)
	engine.SetDailyWalletCap(0)
	wallet := addr(0x07)

	record := &stake.Record{Principal: 10_000, DurationSeconds: 10_000}
	// Bound at zero liquidity share is 10_000.
	if err := engine.MintWithStake(wallet, 10_000, 1, record, 0); err != nil {
		t.Fatalf("mint at bound: %v", err)
	}
	if err := engine.MintWithStake(wallet, 10_001, 1, record, 0); !errors.Is(err, stake.ErrWeightBoundExceeded) {
		t.Fatalf("expected ErrWeightBoundExceeded, got %v", err)
	}

	record.Encumbered = true
	if err := engine.MintWithStake(wallet, 1, 1, record, 0); !errors.Is(err, stake.ErrStakeEncumbered) {
		t.Fatalf("expected ErrStakeEncumbered, got %v", err)
	}
	if err := engine.MintWithStake(wallet, 1, 1, nil, 0); !errors.Is(err, stake.ErrStakeNotFound) {
		t.Fatalf("expected ErrStakeNotFound, got %v", err)
	}
}

func TestMintFeedsSupplyOracle(t *testing.T) {
	manager := state.NewManager(storage.NewMemDB())
	engine := ledger.NewEngine(manager)
	oracle := supply.NewOracle(manager)
	engine.SetSupplyRecorder(oracle)

	if err := engine.Mint(addr(0x08), 2_500, 1, "system"); err != nil {
		t.Fatalf("mint: %v", err)
	}
	total, err := oracle.TotalIssued()
	if err != nil {
		t.Fatalf("total issued: %v", err)
	}
	if total.Uint64() != 2_500 {
		t.Fatalf("supply oracle total = %s", total)
	}
}

func TestMintEmitsEvent(t *testing.T) {
	engine, _ := newEngine(t)
	emitter := &capturingEmitter{}
	engine.SetEmitter(emitter)
	wallet := addr(0x09)

	if err := engine.Mint(wallet, 10, 1, "partner"); err != nil {
		t.Fatalf("mint: %v", err)
	}
	if len(emitter.events) != 1 {
		t.Fatalf("expected one event, got %d", len(emitter.events))
	}
	evt, ok := emitter.events[0].(events.PointsMinted)
	if !ok {
		t.Fatalf("unexpected event type %T", emitter.events[0])
	}
	if evt.Address != wallet || evt.Amount != 10 || evt.Source != "partner" || evt.Epoch != 1 {
		t.Fatalf("unexpected event: %+v", evt)
	}
}

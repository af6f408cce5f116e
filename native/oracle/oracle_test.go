package oracle_test

import (
	"errors"
	"testing"

	"alphapoints/core/state"
	"alphapoints/native/gov"
	"alphapoints/native/oracle"
	"alphapoints/storage"
)

func newEngine(t *testing.T) (*oracle.Engine, *gov.Capability, *gov.Capability) {
	t.Helper()
	manager := state.NewManager(storage.NewMemDB())
	keeper := gov.NewKeeper(manager)
	var govOwner, oracleOwner [20]byte
	govOwner[0] = 0x01
	oracleOwner[0] = 0x02
	govCap, oracleCap, err := keeper.SeedGenesis(govOwner, oracleOwner)
	if err != nil {
		t.Fatalf("seed genesis: %v", err)
	}
	return oracle.NewEngine(manager, keeper), oracleCap, govCap
}

func TestSetPriceRequiresOracleCapability(t *testing.T) {
	engine, oracleCap, govCap := newEngine(t)
	if err := engine.SetPrice(govCap, "usdc", 1_000_000, 1, 2); !errors.Is(err, gov.ErrUnauthorized) {
		t.Fatalf("governance capability must not post prices, got %v", err)
	}
	if err := engine.SetPrice(oracleCap, "usdc", 1_000_000, 1, 2); err != nil {
		t.Fatalf("set price: %v", err)
	}
	price, ok, err := engine.Price("USDC")
	if err != nil || !ok {
		t.Fatalf("price read: ok=%v err=%v", ok, err)
	}
	if price.Symbol != "USDC" || price.USDPerUnit != 1_000_000 {
		t.Fatalf("unexpected price: %+v", price)
	}
}

func TestStaleness(t *testing.T) {
	// last_update_epoch = 5, threshold = 2: fresh through epoch 7, stale at 8+.
	price := oracle.Price{UpdatedEpoch: 5, StalenessThresholdEpochs: 2}
	cases := []struct {
		epoch uint64
		stale bool
	}{
		{epoch: 4, stale: false}, // clock behind the quote, never stale
		{epoch: 5, stale: false},
		{epoch: 7, stale: false},
		{epoch: 8, stale: true},
		{epoch: 10, stale: true},
	}
	for _, tc := range cases {
		if got := price.IsStale(tc.epoch); got != tc.stale {
			t.Fatalf("IsStale(%d) = %v, want %v", tc.epoch, got, tc.stale)
		}
	}
}

func TestFreshPrice(t *testing.T) {
	engine, oracleCap, _ := newEngine(t)
	if _, err := engine.FreshPrice("usdc", 10); !errors.Is(err, oracle.ErrPriceNotFound) {
		t.Fatalf("expected ErrPriceNotFound, got %v", err)
	}
	if err := engine.SetPrice(oracleCap, "usdc", 2_000_000, 5, 2); err != nil {
		t.Fatalf("set price: %v", err)
	}
	if _, err := engine.FreshPrice("usdc", 7); err != nil {
		t.Fatalf("price at threshold should be fresh: %v", err)
	}
	if _, err := engine.FreshPrice("usdc", 10); !errors.Is(err, oracle.ErrStaleOracle) {
		t.Fatalf("expected ErrStaleOracle, got %v", err)
	}
}

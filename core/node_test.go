package core_test

import (
	"errors"
	"testing"
	"time"

	"alphapoints/core"
	"alphapoints/core/epoch"
	"alphapoints/core/state"
	"alphapoints/native/common"
	"alphapoints/native/gov"
	"alphapoints/native/ledger"
	"alphapoints/native/partner"
	"alphapoints/native/stake"
	"alphapoints/storage"
)

type nodeHarness struct {
	node        *core.Node
	govToken    string
	oracleToken string
}

func newNodeHarness(t *testing.T) *nodeHarness {
	t.Helper()
	node, err := core.NewNode(state.NewManager(storage.NewMemDB()), epoch.DefaultConfig())
	if err != nil {
		t.Fatalf("new node: %v", err)
	}
	var govOwner, oracleOwner [20]byte
	govOwner[0] = 0xB0
	oracleOwner[0] = 0xB1
	h := &nodeHarness{node: node}
	h.setEpoch(1)
	h.govToken, h.oracleToken, err = node.SeedGenesis(govOwner, oracleOwner)
	if err != nil {
		t.Fatalf("seed genesis: %v", err)
	}
	return h
}

// setEpoch pins the node clock inside the given epoch.
func (h *nodeHarness) setEpoch(e uint64) {
	unix := int64(e)*int64(epoch.DefaultConfig().Seconds) + 10
	h.node.SetClock(func() time.Time { return time.Unix(unix, 0) })
}

func (h *nodeHarness) postPrice(t *testing.T) {
	t.Helper()
	if err := h.node.SetPrice(h.oracleToken, "USDC", partner.Precision, 1_000); err != nil {
		t.Fatalf("set price: %v", err)
	}
}

func TestSeedGenesisOnce(t *testing.T) {
	h := newNodeHarness(t)
	if !h.node.Seeded() {
		t.Fatalf("node should report seeded")
	}
	var a, b [20]byte
	if _, _, err := h.node.SeedGenesis(a, b); !errors.Is(err, gov.ErrAlreadySeeded) {
		t.Fatalf("expected ErrAlreadySeeded, got %v", err)
	}
}

func TestGovernanceMintAndWalletCap(t *testing.T) {
	h := newNodeHarness(t)
	var wallet [20]byte
	wallet[19] = 0x01

	if err := h.node.Mint(h.govToken, wallet, 6_000); err != nil {
		t.Fatalf("mint: %v", err)
	}
	if err := h.node.Mint(h.oracleToken, wallet, 1); !errors.Is(err, gov.ErrUnauthorized) {
		t.Fatalf("oracle token must not mint, got %v", err)
	}
	if err := h.node.Mint(h.govToken, wallet, 5_000); !errors.Is(err, ledger.ErrDailyWalletCapExceeded) {
		t.Fatalf("expected ErrDailyWalletCapExceeded, got %v", err)
	}
	if got := h.node.AvailableBalance(wallet); got != 6_000 {
		t.Fatalf("balance after rejected mint = %d", got)
	}
	if got := h.node.MintedToday(wallet); got != 6_000 {
		t.Fatalf("minted today = %d", got)
	}

	// The cap resets in the next epoch.
	h.setEpoch(2)
	if err := h.node.Mint(h.govToken, wallet, 5_000); err != nil {
		t.Fatalf("mint after epoch roll: %v", err)
	}
	if got := h.node.TotalSupply(); got != 11_000 {
		t.Fatalf("total supply = %d", got)
	}
}

func TestPartnerFlowThroughNode(t *testing.T) {
	h := newNodeHarness(t)
	h.postPrice(t)
	var owner, recipient [20]byte
	owner[19] = 0x02
	recipient[19] = 0x03

	token, id, err := h.node.IssueCapability(h.govToken, owner, "USDC", 100)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if got := h.node.PartnerMintRemaining(id); got != 3_000 {
		t.Fatalf("fresh quota = %d", got)
	}
	if err := h.node.MintAsPartner(token, recipient, 3_000); err != nil {
		t.Fatalf("partner mint: %v", err)
	}
	if err := h.node.MintAsPartner(token, recipient, 1); !errors.Is(err, partner.ErrPartnerQuotaExceeded) {
		t.Fatalf("expected ErrPartnerQuotaExceeded, got %v", err)
	}
	h.setEpoch(2)
	if got := h.node.PartnerMintRemaining(id); got != 3_000 {
		t.Fatalf("quota after epoch roll = %d", got)
	}
	if err := h.node.TopUpCollateral(token, 100); err != nil {
		t.Fatalf("top up: %v", err)
	}
	capability, ok := h.node.PartnerCapability(id)
	if !ok || capability.DailyQuotaPts != 6_000 {
		t.Fatalf("capability after top-up: %+v", capability)
	}
	if err := h.node.SetPartnerPaused(token, true); err != nil {
		t.Fatalf("pause partner: %v", err)
	}
	if err := h.node.MintAsPartner(token, recipient, 1); !errors.Is(err, partner.ErrPartnerPaused) {
		t.Fatalf("expected ErrPartnerPaused, got %v", err)
	}
}

func TestGlobalPauseGatesMutations(t *testing.T) {
	h := newNodeHarness(t)
	var wallet [20]byte
	wallet[19] = 0x04
	if err := h.node.Mint(h.govToken, wallet, 100); err != nil {
		t.Fatalf("mint: %v", err)
	}

	if err := h.node.SetPauseState(h.govToken, true); err != nil {
		t.Fatalf("pause: %v", err)
	}
	if !h.node.Paused() {
		t.Fatalf("node should report paused")
	}
	if err := h.node.Spend(wallet, 1); !errors.Is(err, common.ErrProtocolPaused) {
		t.Fatalf("expected ErrProtocolPaused, got %v", err)
	}
	if err := h.node.Mint(h.govToken, wallet, 1); !errors.Is(err, common.ErrProtocolPaused) {
		t.Fatalf("expected ErrProtocolPaused, got %v", err)
	}
	// Reads keep working while paused.
	if got := h.node.AvailableBalance(wallet); got != 100 {
		t.Fatalf("balance while paused = %d", got)
	}

	if err := h.node.SetPauseState(h.govToken, false); err != nil {
		t.Fatalf("unpause: %v", err)
	}
	if err := h.node.Spend(wallet, 1); err != nil {
		t.Fatalf("spend after unpause: %v", err)
	}
}

func TestTransferInvalidatesOldEncoding(t *testing.T) {
	h := newNodeHarness(t)
	var newOwner, wallet [20]byte
	newOwner[19] = 0x05

	next, err := h.node.TransferCapability(h.govToken, gov.KindGovernance, newOwner)
	if err != nil {
		t.Fatalf("transfer: %v", err)
	}
	if err := h.node.Mint(h.govToken, wallet, 1); !errors.Is(err, gov.ErrUnauthorized) {
		t.Fatalf("old token must stop working, got %v", err)
	}
	if err := h.node.Mint(next, wallet, 1); err != nil {
		t.Fatalf("new token mint: %v", err)
	}
	if _, err := h.node.TransferCapability(next, "steward", newOwner); !errors.Is(err, gov.ErrUnauthorized) {
		t.Fatalf("unknown kind must be rejected, got %v", err)
	}
}

func TestMalformedEncodingsRejected(t *testing.T) {
	h := newNodeHarness(t)
	var wallet [20]byte
	if err := h.node.Mint("zz", wallet, 1); !errors.Is(err, gov.ErrMalformedCapability) {
		t.Fatalf("expected ErrMalformedCapability, got %v", err)
	}
	if err := h.node.MintAsPartner("abcd", wallet, 1); !errors.Is(err, partner.ErrMalformedToken) {
		t.Fatalf("expected ErrMalformedToken, got %v", err)
	}
}

func TestStakeLifecycleThroughNode(t *testing.T) {
	h := newNodeHarness(t)
	var owner, wallet [20]byte
	owner[19] = 0x06
	wallet[19] = 0x07

	// isqrt(100_000_000) * isqrt(1) = 10_000 at zero liquidity share.
	id, err := h.node.CreateStake(owner, 100_000_000, 1)
	if err != nil {
		t.Fatalf("create stake: %v", err)
	}
	if err := h.node.MintWithStake(wallet, 10_001, id, 0); !errors.Is(err, stake.ErrWeightBoundExceeded) {
		t.Fatalf("expected ErrWeightBoundExceeded, got %v", err)
	}
	if err := h.node.MintWithStake(wallet, 500, id, 0); err != nil {
		t.Fatalf("stake mint: %v", err)
	}
	if err := h.node.SetStakeEncumbered(id, true); err != nil {
		t.Fatalf("encumber: %v", err)
	}
	if err := h.node.MintWithStake(wallet, 1, id, 0); !errors.Is(err, stake.ErrStakeEncumbered) {
		t.Fatalf("expected ErrStakeEncumbered, got %v", err)
	}
	if err := h.node.Unstake(id); !errors.Is(err, stake.ErrStakeEncumbered) {
		t.Fatalf("encumbered unstake must fail, got %v", err)
	}
	if err := h.node.SetStakeEncumbered(id, false); err != nil {
		t.Fatalf("release: %v", err)
	}
	if err := h.node.Unstake(id); err != nil {
		t.Fatalf("unstake: %v", err)
	}
	if _, ok := h.node.Stake(id); ok {
		t.Fatalf("record should be gone after unstake")
	}
	if err := h.node.MintWithStake(wallet, 1, id, 0); !errors.Is(err, stake.ErrStakeNotFound) {
		t.Fatalf("expected ErrStakeNotFound, got %v", err)
	}
}

package core

import (
	"errors"
	"fmt"
	"math/big"
	"sync"
	"time"

	"alphapoints/core/epoch"
	"alphapoints/core/events"
	"alphapoints/core/state"
	"alphapoints/native/common"
	"alphapoints/native/gov"
	"alphapoints/native/ledger"
	"alphapoints/native/oracle"
	"alphapoints/native/partner"
	"alphapoints/native/stake"
	"alphapoints/native/supply"
	"alphapoints/observability/metrics"
)

// Node wires the native engines over a shared state manager and exposes the
// operations the RPC surface serves. Every mutation runs against a staged
// view and only commits when the whole operation succeeds, so a rejection
// anywhere leaves no partial writes.
type Node struct {
	mu sync.Mutex

	st             *state.Manager
	epochs         epoch.Config
	emitter        events.Emitter
	dailyWalletCap uint64
	metrics        *metrics.LedgerMetrics
	now            func() time.Time
}

// NewNode creates a node over the given state manager.
func NewNode(st *state.Manager, epochs epoch.Config) (*Node, error) {
	if err := epochs.Validate(); err != nil {
		return nil, err
	}
	return &Node{
		st:             st,
		epochs:         epochs,
		emitter:        events.NoopEmitter{},
		dailyWalletCap: ledger.DefaultDailyWalletCap,
		metrics:        metrics.Ledger(),
		now:            time.Now,
	}, nil
}

// SetEmitter configures the event emitter shared by all engines. Passing nil
// resets to a no-op.
func (n *Node) SetEmitter(emitter events.Emitter) {
	if emitter == nil {
		n.emitter = events.NoopEmitter{}
		return
	}
	n.emitter = emitter
}

// SetDailyWalletCap overrides the per-wallet daily mint ceiling. Zero
// disables the cap.
func (n *Node) SetDailyWalletCap(cap uint64) {
	n.dailyWalletCap = cap
}

// SetClock overrides the wall clock, for tests.
func (n *Node) SetClock(now func() time.Time) {
	if now == nil {
		now = time.Now
	}
	n.now = now
}

// CurrentEpoch reports the epoch the node's clock currently falls in.
func (n *Node) CurrentEpoch() uint64 {
	return n.epochs.At(n.now().UTC().Unix())
}

// engineSet binds one set of engines to a single state view.
type engineSet struct {
	keeper   *gov.Keeper
	prices   *oracle.Engine
	supply   *supply.Oracle
	ledger   *ledger.Engine
	stakes   *stake.Registry
	partners *partner.Manager
}

func (n *Node) engines(kv state.KV) *engineSet {
	keeper := gov.NewKeeper(kv)
	keeper.SetEmitter(n.emitter)
	prices := oracle.NewEngine(kv, keeper)
	prices.SetEmitter(n.emitter)
	supplyOracle := supply.NewOracle(kv)
	supplyOracle.SetEmitter(n.emitter)
	book := ledger.NewEngine(kv)
	book.SetEmitter(n.emitter)
	book.SetPauses(keeper)
	book.SetSupplyRecorder(supplyOracle)
	book.SetDailyWalletCap(n.dailyWalletCap)
	stakes := stake.NewRegistry(kv)
	stakes.SetEmitter(n.emitter)
	stakes.SetPauses(keeper)
	partners := partner.NewManager(kv, keeper, prices)
	partners.SetEmitter(n.emitter)
	partners.SetPauses(keeper)
	return &engineSet{
		keeper:   keeper,
		prices:   prices,
		supply:   supplyOracle,
		ledger:   book,
		stakes:   stakes,
		partners: partners,
	}
}

// mutate stages a state view, runs fn against engines bound to it and commits
// on success. Mutations are serialised; the staged overlay is not safe for
// concurrent writers.
func (n *Node) mutate(op string, fn func(es *engineSet) error) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	stage := n.st.Stage()
	es := n.engines(stage)
	if err := fn(es); err != nil {
		n.metrics.ObserveRejected(op, reasonLabel(err))
		return err
	}
	if err := stage.Commit(); err != nil {
		n.metrics.ObserveRejected(op, "commit")
		return fmt.Errorf("core: commit %s: %w", op, err)
	}
	n.metrics.ObserveAccepted(op)
	n.refreshGauges()
	return nil
}

func (n *Node) refreshGauges() {
	es := n.engines(n.st)
	n.metrics.SetTotalSupply(es.ledger.TotalSupply())
	if rate, err := es.supply.RedeemRateBps(); err == nil {
		n.metrics.SetRedeemRateBps(rate)
	}
}

// reasonLabel collapses the error taxonomy into low-cardinality metric
// labels.
func reasonLabel(err error) string {
	switch {
	case errors.Is(err, common.ErrProtocolPaused):
		return "paused"
	case errors.Is(err, ledger.ErrDailyWalletCapExceeded):
		return "wallet_cap"
	case errors.Is(err, ledger.ErrInsufficientBalance):
		return "insufficient_balance"
	case errors.Is(err, ledger.ErrInsufficientLocked):
		return "insufficient_locked"
	case errors.Is(err, ledger.ErrInvalidAmount):
		return "invalid_amount"
	case errors.Is(err, partner.ErrPartnerQuotaExceeded):
		return "partner_quota"
	case errors.Is(err, partner.ErrPartnerPaused):
		return "partner_paused"
	case errors.Is(err, partner.ErrInvalidCollateral):
		return "invalid_collateral"
	case errors.Is(err, oracle.ErrStaleOracle):
		return "stale_oracle"
	case errors.Is(err, oracle.ErrPriceNotFound):
		return "price_not_found"
	case errors.Is(err, oracle.ErrInvalidSymbol):
		return "invalid_symbol"
	case errors.Is(err, stake.ErrWeightBoundExceeded):
		return "weight_bound"
	case errors.Is(err, stake.ErrStakeEncumbered):
		return "stake_encumbered"
	case errors.Is(err, stake.ErrStakeNotFound):
		return "stake_not_found"
	case errors.Is(err, stake.ErrInvalidStake):
		return "invalid_stake"
	case errors.Is(err, common.ErrArithmeticOverflow):
		return "overflow"
	case errors.Is(err, gov.ErrUnauthorized),
		errors.Is(err, gov.ErrMalformedCapability),
		errors.Is(err, partner.ErrUnauthorized),
		errors.Is(err, partner.ErrCapabilityNotFound),
		errors.Is(err, partner.ErrMalformedToken):
		return "unauthorized"
	default:
		return "error"
	}
}

// SeedGenesis mints the governance and oracle capabilities exactly once and
// returns their encoded bearer forms. The encodings are the only copies of
// the secrets; the node stores proof hashes only.
func (n *Node) SeedGenesis(govOwner, oracleOwner [20]byte) (govToken, oracleToken string, err error) {
	err = n.mutate("seed_genesis", func(es *engineSet) error {
		govCap, oracleCap, seedErr := es.keeper.SeedGenesis(govOwner, oracleOwner)
		if seedErr != nil {
			return seedErr
		}
		govToken = govCap.Encode()
		oracleToken = oracleCap.Encode()
		return nil
	})
	if err != nil {
		return "", "", err
	}
	return govToken, oracleToken, nil
}

// Seeded reports whether genesis capabilities exist yet.
func (n *Node) Seeded() bool {
	ok, err := n.engines(n.st).keeper.Seeded()
	return err == nil && ok
}

// Mint credits points to a wallet outside any partner quota. It is the
// system-attributed path and therefore requires the governance capability;
// the recipient's daily wallet cap still applies.
func (n *Node) Mint(govToken string, addr [20]byte, amount uint64) error {
	cap, err := gov.DecodeCapability(gov.KindGovernance, govToken)
	if err != nil {
		return err
	}
	epochNow := n.CurrentEpoch()
	return n.mutate("mint", func(es *engineSet) error {
		if err := es.keeper.Verify(cap, gov.KindGovernance); err != nil {
			return err
		}
		return es.ledger.Mint(addr, amount, epochNow, "system")
	})
}

// MintWithStake credits points attributed to a stake record, bounded by the
// record's weight curve at the given liquidity share.
func (n *Node) MintWithStake(addr [20]byte, amount uint64, stakeID stake.ID, liquidityShareBps uint64) error {
	epochNow := n.CurrentEpoch()
	return n.mutate("mint_with_stake", func(es *engineSet) error {
		record, _ := es.stakes.Get(stakeID)
		return es.ledger.MintWithStake(addr, amount, epochNow, record, liquidityShareBps)
	})
}

// Spend burns points from the wallet's available bucket.
func (n *Node) Spend(addr [20]byte, amount uint64) error {
	return n.mutate("spend", func(es *engineSet) error {
		return es.ledger.Spend(addr, amount)
	})
}

// Lock moves points from available to locked.
func (n *Node) Lock(addr [20]byte, amount uint64) error {
	return n.mutate("lock", func(es *engineSet) error {
		return es.ledger.Lock(addr, amount)
	})
}

// Unlock moves points from locked back to available.
func (n *Node) Unlock(addr [20]byte, amount uint64) error {
	return n.mutate("unlock", func(es *engineSet) error {
		return es.ledger.Unlock(addr, amount)
	})
}

// CreateStake opens a stake record and returns its ID.
func (n *Node) CreateStake(owner [20]byte, principal, durationSeconds uint64) (stake.ID, error) {
	var id stake.ID
	epochNow := n.CurrentEpoch()
	err := n.mutate("stake_create", func(es *engineSet) error {
		record, createErr := es.stakes.Create(owner, principal, durationSeconds, epochNow)
		if createErr != nil {
			return createErr
		}
		id = record.ID
		return nil
	})
	return id, err
}

// SetStakeEncumbered flags or releases a stake record as loan collateral.
func (n *Node) SetStakeEncumbered(id stake.ID, encumbered bool) error {
	return n.mutate("stake_encumber", func(es *engineSet) error {
		return es.stakes.SetEncumbered(id, encumbered)
	})
}

// Unstake destroys a stake record. Encumbered records are refused.
func (n *Node) Unstake(id stake.ID) error {
	return n.mutate("unstake", func(es *engineSet) error {
		return es.stakes.Unstake(id)
	})
}

// Stake retrieves a stake record by ID.
func (n *Node) Stake(id stake.ID) (*stake.Record, bool) {
	return n.engines(n.st).stakes.Get(id)
}

// IssueCapability onboards a partner against collateral. It returns the
// encoded bearer token and the capability ID.
func (n *Node) IssueCapability(govToken string, owner [20]byte, collateralSymbol string, collateralUnits uint64) (string, [32]byte, error) {
	cap, err := gov.DecodeCapability(gov.KindGovernance, govToken)
	if err != nil {
		return "", [32]byte{}, err
	}
	var encoded string
	var id [32]byte
	epochNow := n.CurrentEpoch()
	err = n.mutate("partner_issue", func(es *engineSet) error {
		token, issueErr := es.partners.IssueCapability(cap, owner, collateralSymbol, collateralUnits, epochNow)
		if issueErr != nil {
			return issueErr
		}
		encoded = token.Encode()
		id = token.ID()
		return nil
	})
	if err != nil {
		return "", [32]byte{}, err
	}
	return encoded, id, nil
}

// MintAsPartner mints points to the recipient against the partner's daily
// quota. Both the partner quota and the recipient's wallet cap must admit the
// amount.
func (n *Node) MintAsPartner(partnerToken string, recipient [20]byte, amount uint64) error {
	token, err := partner.DecodeToken(partnerToken)
	if err != nil {
		return err
	}
	epochNow := n.CurrentEpoch()
	return n.mutate("partner_mint", func(es *engineSet) error {
		return es.partners.MintAsPartner(token, es.ledger, recipient, amount, epochNow)
	})
}

// TopUpCollateral revalues the partner's collateral after a deposit and
// recomputes the daily quota.
func (n *Node) TopUpCollateral(partnerToken string, additionalUnits uint64) error {
	token, err := partner.DecodeToken(partnerToken)
	if err != nil {
		return err
	}
	epochNow := n.CurrentEpoch()
	return n.mutate("partner_topup", func(es *engineSet) error {
		return es.partners.TopUpCollateral(token, additionalUnits, epochNow)
	})
}

// SetPartnerPaused toggles the partner's own pause flag.
func (n *Node) SetPartnerPaused(partnerToken string, paused bool) error {
	token, err := partner.DecodeToken(partnerToken)
	if err != nil {
		return err
	}
	return n.mutate("partner_pause", func(es *engineSet) error {
		return es.partners.SetPaused(token, paused)
	})
}

// PartnerCapability retrieves the stored capability record by ID.
func (n *Node) PartnerCapability(id [32]byte) (*partner.Capability, bool) {
	return n.engines(n.st).partners.Get(id)
}

// PartnerMintRemaining reports the partner's unspent quota as of now.
func (n *Node) PartnerMintRemaining(id [32]byte) uint64 {
	return n.engines(n.st).partners.MintRemainingToday(id, n.CurrentEpoch())
}

// SetPauseState flips the global circuit breaker.
func (n *Node) SetPauseState(govToken string, paused bool) error {
	cap, err := gov.DecodeCapability(gov.KindGovernance, govToken)
	if err != nil {
		return err
	}
	return n.mutate("set_pause", func(es *engineSet) error {
		return es.keeper.SetPauseState(cap, paused)
	})
}

// Paused reports the global pause flag.
func (n *Node) Paused() bool {
	return n.engines(n.st).keeper.IsPaused()
}

// TransferCapability reissues an admin capability under a new owner and
// returns the replacement encoding. The presented token stops working.
func (n *Node) TransferCapability(encoded, kind string, newOwner [20]byte) (string, error) {
	switch kind {
	case gov.KindGovernance, gov.KindOracle:
	default:
		return "", fmt.Errorf("%w: unknown kind %q", gov.ErrUnauthorized, kind)
	}
	cap, err := gov.DecodeCapability(kind, encoded)
	if err != nil {
		return "", err
	}
	var next string
	err = n.mutate("cap_transfer", func(es *engineSet) error {
		replacement, transferErr := es.keeper.Transfer(cap, newOwner)
		if transferErr != nil {
			return transferErr
		}
		next = replacement.Encode()
		return nil
	})
	if err != nil {
		return "", err
	}
	return next, nil
}

// SetPrice posts a collateral quote. Requires the oracle capability.
func (n *Node) SetPrice(oracleToken, symbol string, usdPerUnit, stalenessThresholdEpochs uint64) error {
	cap, err := gov.DecodeCapability(gov.KindOracle, oracleToken)
	if err != nil {
		return err
	}
	epochNow := n.CurrentEpoch()
	return n.mutate("oracle_set_price", func(es *engineSet) error {
		return es.prices.SetPrice(cap, symbol, usdPerUnit, epochNow, stalenessThresholdEpochs)
	})
}

// CollateralPrice returns the stored quote for a symbol without a staleness
// check.
func (n *Node) CollateralPrice(symbol string) (oracle.Price, bool, error) {
	return n.engines(n.st).prices.Price(symbol)
}

// RecomputeSupply runs the supply oracle's per-epoch rate adjustment. The
// daemon calls this on a ticker so the ratchet fires even through mint-free
// epochs.
func (n *Node) RecomputeSupply() error {
	epochNow := n.CurrentEpoch()
	return n.mutate("supply_recompute", func(es *engineSet) error {
		return es.supply.Recompute(epochNow)
	})
}

// RedeemRateBps reports the current redemption haircut.
func (n *Node) RedeemRateBps() uint64 {
	rate, err := n.engines(n.st).supply.RedeemRateBps()
	if err != nil {
		return 0
	}
	return rate
}

// TotalIssued reports the supply oracle's lifetime issuance counter.
func (n *Node) TotalIssued() *big.Int {
	total, err := n.engines(n.st).supply.TotalIssued()
	if err != nil {
		return big.NewInt(0)
	}
	return total
}

// AvailableBalance reports a wallet's spendable points.
func (n *Node) AvailableBalance(addr [20]byte) uint64 {
	return n.engines(n.st).ledger.AvailableBalance(addr)
}

// LockedBalance reports a wallet's locked points.
func (n *Node) LockedBalance(addr [20]byte) uint64 {
	return n.engines(n.st).ledger.LockedBalance(addr)
}

// TotalSupply reports the ledger's live supply counter.
func (n *Node) TotalSupply() uint64 {
	return n.engines(n.st).ledger.TotalSupply()
}

// MintedToday reports how much of the daily cap a wallet has consumed.
func (n *Node) MintedToday(addr [20]byte) uint64 {
	return n.engines(n.st).ledger.MintedToday(addr, n.CurrentEpoch())
}

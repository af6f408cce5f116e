package ledger

import (
	"fmt"

	"alphapoints/core/events"
	"alphapoints/native/common"
	"alphapoints/native/stake"
)

// DefaultDailyWalletCap is the per-address mint ceiling per epoch. It applies
// regardless of which partner or stake originated the mint.
const DefaultDailyWalletCap uint64 = 10_000

// balanceRecord splits a wallet's points into spendable and locked buckets.
// Entries are created lazily on first touch and never deleted.
type balanceRecord struct {
	Available uint64
	Locked    uint64
}

// mintStats meters per-wallet daily minting. MintedToday only resets when an
// operation observes an epoch strictly greater than LastEpoch.
type mintStats struct {
	MintedToday uint64
	LastEpoch   uint64
}

type supplyRecord struct {
	Total uint64
}

// State is the persistence surface the ledger needs.
type State interface {
	KVGet(key []byte, out interface{}) (bool, error)
	KVPut(key []byte, value interface{}) error
}

// SupplyRecorder receives every successful mint so the supply oracle can
// track issuance and run its lazy per-epoch recompute.
type SupplyRecorder interface {
	RecordMint(amount uint64, currentEpoch uint64) error
}

// Engine holds per-address balances and the global total-supply invariant:
// the stored total always equals the sum of available plus locked over all
// entries.
type Engine struct {
	st             State
	emitter        events.Emitter
	pauses         common.PauseView
	supply         SupplyRecorder
	dailyWalletCap uint64
}

// NewEngine creates a ledger engine backed by the provided state.
func NewEngine(st State) *Engine {
	return &Engine{st: st, emitter: events.NoopEmitter{}, dailyWalletCap: DefaultDailyWalletCap}
}

// SetEmitter configures the event emitter. Passing nil resets to a no-op.
func (e *Engine) SetEmitter(emitter events.Emitter) {
	if emitter == nil {
		e.emitter = events.NoopEmitter{}
		return
	}
	e.emitter = emitter
}

// SetPauses wires the global pause view.
func (e *Engine) SetPauses(p common.PauseView) {
	e.pauses = p
}

// SetSupplyRecorder wires the supply oracle hook.
func (e *Engine) SetSupplyRecorder(s SupplyRecorder) {
	e.supply = s
}

// SetDailyWalletCap overrides the per-wallet daily cap. Zero disables it.
func (e *Engine) SetDailyWalletCap(cap uint64) {
	e.dailyWalletCap = cap
}

func balanceKey(addr [20]byte) []byte {
	return append([]byte("ledger/balance/"), addr[:]...)
}

func mintStatsKey(addr [20]byte) []byte {
	return append([]byte("ledger/mintstats/"), addr[:]...)
}

var totalSupplyKey = []byte("ledger/totalsupply")

func (e *Engine) loadBalance(addr [20]byte) (balanceRecord, error) {
	var record balanceRecord
	if _, err := e.st.KVGet(balanceKey(addr), &record); err != nil {
		return balanceRecord{}, err
	}
	return record, nil
}

func (e *Engine) storeBalance(addr [20]byte, record balanceRecord) error {
	if err := e.st.KVPut(balanceKey(addr), record); err != nil {
		return fmt.Errorf("ledger: persist balance: %w", err)
	}
	return nil
}

func (e *Engine) loadSupply() (uint64, error) {
	var record supplyRecord
	if _, err := e.st.KVGet(totalSupplyKey, &record); err != nil {
		return 0, err
	}
	return record.Total, nil
}

func (e *Engine) storeSupply(total uint64) error {
	if err := e.st.KVPut(totalSupplyKey, supplyRecord{Total: total}); err != nil {
		return fmt.Errorf("ledger: persist total supply: %w", err)
	}
	return nil
}

// Mint credits points to the wallet's available bucket, enforcing the daily
// wallet cap. Source labels the attribution ("partner", "stake", "system")
// for the emitted event.
func (e *Engine) Mint(addr [20]byte, amount uint64, currentEpoch uint64, source string) error {
	if err := common.Guard(e.pauses); err != nil {
		return err
	}
	if amount == 0 {
		return ErrInvalidAmount
	}

	var stats mintStats
	if _, err := e.st.KVGet(mintStatsKey(addr), &stats); err != nil {
		return err
	}
	// Strictly-greater comparison: the counter resets exactly once per
	// epoch crossing, and repeated operations inside an epoch keep drawing
	// from the same counter.
	if currentEpoch > stats.LastEpoch {
		stats = mintStats{LastEpoch: currentEpoch}
	}
	mintedToday, err := common.CheckedAdd(stats.MintedToday, amount)
	if err != nil {
		return err
	}
	if e.dailyWalletCap > 0 && mintedToday > e.dailyWalletCap {
		return fmt.Errorf("%w: %d + %d over cap %d", ErrDailyWalletCapExceeded, stats.MintedToday, amount, e.dailyWalletCap)
	}

	balance, err := e.loadBalance(addr)
	if err != nil {
		return err
	}
	available, err := common.CheckedAdd(balance.Available, amount)
	if err != nil {
		return err
	}
	supplyBefore, err := e.loadSupply()
	if err != nil {
		return err
	}
	supplyAfter, err := common.CheckedAdd(supplyBefore, amount)
	if err != nil {
		return err
	}

	stats.MintedToday = mintedToday
	balance.Available = available
	if err := e.st.KVPut(mintStatsKey(addr), stats); err != nil {
		return fmt.Errorf("ledger: persist mint stats: %w", err)
	}
	if err := e.storeBalance(addr, balance); err != nil {
		return err
	}
	if err := e.storeSupply(supplyAfter); err != nil {
		return err
	}
	if e.supply != nil {
		if err := e.supply.RecordMint(amount, currentEpoch); err != nil {
			return err
		}
	}
	e.emitter.Emit(events.PointsMinted{Address: addr, Amount: amount, Source: source, Epoch: currentEpoch})
	return nil
}

// MintWithStake is a stake-attributed mint: the amount must not exceed the
// weight-curve bound of the cited record at the caller-supplied liquidity
// share.
func (e *Engine) MintWithStake(addr [20]byte, amount uint64, currentEpoch uint64, record *stake.Record, liquidityShareBps uint64) error {
	if err := common.Guard(e.pauses); err != nil {
		return err
	}
	if record == nil {
		return stake.ErrStakeNotFound
	}
	if record.Encumbered {
		return stake.ErrStakeEncumbered
	}
	if bound := record.Bound(liquidityShareBps); amount > bound {
		return fmt.Errorf("%w: %d over bound %d", stake.ErrWeightBoundExceeded, amount, bound)
	}
	return e.Mint(addr, amount, currentEpoch, "stake")
}

// Spend burns points from the wallet's available bucket and shrinks total
// supply.
func (e *Engine) Spend(addr [20]byte, amount uint64) error {
	if err := common.Guard(e.pauses); err != nil {
		return err
	}
	if amount == 0 {
		return ErrInvalidAmount
	}
	balance, err := e.loadBalance(addr)
	if err != nil {
		return err
	}
	if balance.Available < amount {
		return fmt.Errorf("%w: have %d, need %d", ErrInsufficientBalance, balance.Available, amount)
	}
	supply, err := e.loadSupply()
	if err != nil {
		return err
	}
	remaining, err := common.CheckedSub(supply, amount)
	if err != nil {
		return err
	}
	balance.Available -= amount
	if err := e.storeBalance(addr, balance); err != nil {
		return err
	}
	if err := e.storeSupply(remaining); err != nil {
		return err
	}
	e.emitter.Emit(events.PointsSpent{Address: addr, Amount: amount})
	return nil
}

// Lock moves points from available to locked. Total supply is unchanged.
func (e *Engine) Lock(addr [20]byte, amount uint64) error {
	if err := common.Guard(e.pauses); err != nil {
		return err
	}
	if amount == 0 {
		return ErrInvalidAmount
	}
	balance, err := e.loadBalance(addr)
	if err != nil {
		return err
	}
	if balance.Available < amount {
		return fmt.Errorf("%w: have %d, need %d", ErrInsufficientBalance, balance.Available, amount)
	}
	locked, err := common.CheckedAdd(balance.Locked, amount)
	if err != nil {
		return err
	}
	balance.Available -= amount
	balance.Locked = locked
	if err := e.storeBalance(addr, balance); err != nil {
		return err
	}
	e.emitter.Emit(events.PointsLocked{Address: addr, Amount: amount})
	return nil
}

// Unlock moves points from locked back to available. Total supply is
// unchanged.
func (e *Engine) Unlock(addr [20]byte, amount uint64) error {
	if err := common.Guard(e.pauses); err != nil {
		return err
	}
	if amount == 0 {
		return ErrInvalidAmount
	}
	balance, err := e.loadBalance(addr)
	if err != nil {
		return err
	}
	if balance.Locked < amount {
		return fmt.Errorf("%w: have %d, need %d", ErrInsufficientLocked, balance.Locked, amount)
	}
	available, err := common.CheckedAdd(balance.Available, amount)
	if err != nil {
		return err
	}
	balance.Locked -= amount
	balance.Available = available
	if err := e.storeBalance(addr, balance); err != nil {
		return err
	}
	e.emitter.Emit(events.PointsUnlocked{Address: addr, Amount: amount})
	return nil
}

// AvailableBalance reports the spendable balance. Missing entries read as
// zero; the query never fails.
func (e *Engine) AvailableBalance(addr [20]byte) uint64 {
	balance, err := e.loadBalance(addr)
	if err != nil {
		return 0
	}
	return balance.Available
}

// LockedBalance reports the locked balance. Missing entries read as zero.
func (e *Engine) LockedBalance(addr [20]byte) uint64 {
	balance, err := e.loadBalance(addr)
	if err != nil {
		return 0
	}
	return balance.Locked
}

// TotalSupply reports the global supply counter.
func (e *Engine) TotalSupply() uint64 {
	total, err := e.loadSupply()
	if err != nil {
		return 0
	}
	return total
}

// MintedToday reports how much of the daily cap the wallet has consumed at
// the given epoch. A stale stats record reads as zero.
func (e *Engine) MintedToday(addr [20]byte, currentEpoch uint64) uint64 {
	var stats mintStats
	if _, err := e.st.KVGet(mintStatsKey(addr), &stats); err != nil {
		return 0
	}
	if currentEpoch > stats.LastEpoch {
		return 0
	}
	return stats.MintedToday
}

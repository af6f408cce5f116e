package supply

import (
	"fmt"
	"math/big"

	"alphapoints/core/events"
)

const (
	// GrowthThresholdBps is the supply growth over the baseline that
	// triggers a ratchet step (5%).
	GrowthThresholdBps = 500
	// RatchetStepBps is the fixed one-way increment applied to the redeem
	// rate when growth exceeds the threshold.
	RatchetStepBps = 1

	bpsDenominator = 10_000
)

const oracleKey = "supply/oracle"

// snapshot is the persisted oracle state. Totals are u128-scale so they use
// big.Int rather than uint64.
type snapshot struct {
	TotalPointsIssued  *big.Int
	RedeemRateBps      uint64
	LastRecomputeEpoch uint64
	BaselineSupply     *big.Int
}

func (s *snapshot) normalize() *snapshot {
	if s.TotalPointsIssued == nil {
		s.TotalPointsIssued = big.NewInt(0)
	}
	if s.BaselineSupply == nil {
		s.BaselineSupply = big.NewInt(0)
	}
	return s
}

// State is the persistence surface the oracle needs.
type State interface {
	KVGet(key []byte, out interface{}) (bool, error)
	KVPut(key []byte, value interface{}) error
}

// Oracle tracks global minted supply and ratchets the redemption-rate haircut
// when growth since the last measurement window exceeds the threshold. The
// rate never decreases.
type Oracle struct {
	st      State
	emitter events.Emitter
}

// NewOracle creates a supply oracle backed by the provided state.
func NewOracle(st State) *Oracle {
	return &Oracle{st: st, emitter: events.NoopEmitter{}}
}

// SetEmitter configures the event emitter. Passing nil resets to a no-op.
func (o *Oracle) SetEmitter(emitter events.Emitter) {
	if emitter == nil {
		o.emitter = events.NoopEmitter{}
		return
	}
	o.emitter = emitter
}

func (o *Oracle) load() (*snapshot, error) {
	snap := new(snapshot)
	if _, err := o.st.KVGet([]byte(oracleKey), snap); err != nil {
		return nil, err
	}
	return snap.normalize(), nil
}

func (o *Oracle) store(snap *snapshot) error {
	if err := o.st.KVPut([]byte(oracleKey), snap); err != nil {
		return fmt.Errorf("supply: persist oracle: %w", err)
	}
	return nil
}

// recompute applies the once-per-epoch rate adjustment. It reports whether
// the rate was ratcheted.
func recompute(snap *snapshot, currentEpoch uint64) bool {
	if currentEpoch == snap.LastRecomputeEpoch {
		return false
	}
	// threshold = baseline * (1 + 5%); strictly-greater comparison.
	threshold := new(big.Int).Mul(snap.BaselineSupply, big.NewInt(bpsDenominator+GrowthThresholdBps))
	total := new(big.Int).Mul(snap.TotalPointsIssued, big.NewInt(bpsDenominator))
	ratcheted := total.Cmp(threshold) > 0
	if ratcheted {
		snap.RedeemRateBps += RatchetStepBps
	}
	snap.BaselineSupply = new(big.Int).Set(snap.TotalPointsIssued)
	snap.LastRecomputeEpoch = currentEpoch
	return ratcheted
}

// RecordMint adds freshly minted points to the running total, lazily running
// the per-epoch rate recomputation first so the measurement window closes on
// the supply as it stood at the boundary.
func (o *Oracle) RecordMint(amount uint64, currentEpoch uint64) error {
	snap, err := o.load()
	if err != nil {
		return err
	}
	ratcheted := recompute(snap, currentEpoch)
	snap.TotalPointsIssued = new(big.Int).Add(snap.TotalPointsIssued, new(big.Int).SetUint64(amount))
	if err := o.store(snap); err != nil {
		return err
	}
	if ratcheted {
		o.emitter.Emit(events.SupplyRateRatcheted{
			RateBps:     snap.RedeemRateBps,
			Epoch:       currentEpoch,
			TotalIssued: snap.TotalPointsIssued.String(),
		})
	}
	return nil
}

// Recompute runs the per-epoch adjustment without recording a mint. No-op
// when the oracle already recomputed for this epoch.
func (o *Oracle) Recompute(currentEpoch uint64) error {
	snap, err := o.load()
	if err != nil {
		return err
	}
	if !recompute(snap, currentEpoch) {
		// Persist the advanced window even when no ratchet fired.
		return o.store(snap)
	}
	if err := o.store(snap); err != nil {
		return err
	}
	o.emitter.Emit(events.SupplyRateRatcheted{
		RateBps:     snap.RedeemRateBps,
		Epoch:       currentEpoch,
		TotalIssued: snap.TotalPointsIssued.String(),
	})
	return nil
}

// RedeemRateBps returns the current redemption haircut in basis points.
// Redemption layers apply it as a separate multiplicative haircut; this
// module never fuses it with collateral prices.
func (o *Oracle) RedeemRateBps() (uint64, error) {
	snap, err := o.load()
	if err != nil {
		return 0, err
	}
	return snap.RedeemRateBps, nil
}

// TotalIssued returns a copy of the running issuance total.
func (o *Oracle) TotalIssued() (*big.Int, error) {
	snap, err := o.load()
	if err != nil {
		return nil, err
	}
	return new(big.Int).Set(snap.TotalPointsIssued), nil
}

package partner

import (
	"bytes"
	"fmt"

	"alphapoints/core/events"
	"alphapoints/native/common"
	"alphapoints/native/gov"
	"alphapoints/native/oracle"
)

const (
	// PointsPerUSD converts collateral value into daily mintable points.
	PointsPerUSD uint64 = 1_000
	// DailyQuotaFractionBps is the share of the collateral-backed point
	// value a partner may mint per epoch (3%).
	DailyQuotaFractionBps uint64 = 300
	// Precision is the fixed-point scale of oracle prices: a price of
	// 1_000_000 means one collateral unit is worth exactly one USD.
	Precision uint64 = 1_000_000

	bpsDenominator uint64 = 10_000
)

// State is the persistence surface the manager needs.
type State interface {
	KVGet(key []byte, out interface{}) (bool, error)
	KVPut(key []byte, value interface{}) error
}

// Authority verifies the governance capability gating partner onboarding.
type Authority interface {
	Verify(cap *gov.Capability, kind string) error
}

// PriceSource supplies staleness-checked collateral valuations.
type PriceSource interface {
	FreshPrice(symbol string, currentEpoch uint64) (oracle.Price, error)
}

// Minter is the ledger surface a partner mint delegates to. The ledger
// independently enforces the recipient's daily wallet cap, so both limits
// must pass for the operation to succeed.
type Minter interface {
	Mint(addr [20]byte, amount uint64, currentEpoch uint64, source string) error
}

// Manager issues partner capabilities against collateral and meters their
// daily mint quotas.
type Manager struct {
	st        State
	authority Authority
	prices    PriceSource
	emitter   events.Emitter
	pauses    common.PauseView
}

// NewManager creates a partner capability manager.
func NewManager(st State, authority Authority, prices PriceSource) *Manager {
	return &Manager{st: st, authority: authority, prices: prices, emitter: events.NoopEmitter{}}
}

// SetEmitter configures the event emitter. Passing nil resets to a no-op.
func (m *Manager) SetEmitter(emitter events.Emitter) {
	if emitter == nil {
		m.emitter = events.NoopEmitter{}
		return
	}
	m.emitter = emitter
}

// SetPauses wires the global pause view.
func (m *Manager) SetPauses(p common.PauseView) {
	m.pauses = p
}

func capabilityKey(id [32]byte) []byte {
	return append([]byte("partner/cap/"), id[:]...)
}

// valueUSD converts collateral units to USD at the quoted price.
func valueUSD(units, priceUSDPerUnit uint64) (uint64, error) {
	raw, err := common.CheckedMul(units, priceUSDPerUnit)
	if err != nil {
		return 0, err
	}
	return raw / Precision, nil
}

// quotaPts derives the per-epoch mint ceiling from collateral value:
// value * POINTS_PER_USD * DAILY_QUOTA_FRACTION.
func quotaPts(collateralValueUSD uint64) (uint64, error) {
	points, err := common.CheckedMul(collateralValueUSD, PointsPerUSD)
	if err != nil {
		return 0, err
	}
	scaled, err := common.CheckedMul(points, DailyQuotaFractionBps)
	if err != nil {
		return 0, err
	}
	return scaled / bpsDenominator, nil
}

// IssueCapability onboards a partner: the collateral deposit is valued at a
// fresh oracle price and the daily quota derived from it. Requires the
// governance capability.
func (m *Manager) IssueCapability(govCap *gov.Capability, owner [20]byte, collateralSymbol string, collateralUnits, currentEpoch uint64) (*Token, error) {
	if err := common.Guard(m.pauses); err != nil {
		return nil, err
	}
	if err := m.authority.Verify(govCap, gov.KindGovernance); err != nil {
		return nil, err
	}
	if collateralUnits == 0 {
		return nil, fmt.Errorf("%w: collateral required", ErrInvalidCollateral)
	}
	price, err := m.prices.FreshPrice(collateralSymbol, currentEpoch)
	if err != nil {
		return nil, err
	}
	value, err := valueUSD(collateralUnits, price.USDPerUnit)
	if err != nil {
		return nil, err
	}
	quota, err := quotaPts(value)
	if err != nil {
		return nil, err
	}

	token := mintToken(owner)
	capability := &Capability{
		ID:                 token.id,
		Owner:              owner,
		CollateralSymbol:   price.Symbol,
		CollateralUnits:    collateralUnits,
		CollateralValueUSD: value,
		DailyQuotaPts:      quota,
		MintRemainingToday: quota,
		LastEpoch:          currentEpoch,
		ProofHash:          token.proofHash(),
	}
	if err := m.st.KVPut(capabilityKey(token.id), capability); err != nil {
		return nil, fmt.Errorf("partner: persist capability: %w", err)
	}
	m.emitter.Emit(events.PartnerIssued{
		ID:                 token.id,
		Owner:              owner,
		CollateralValueUSD: value,
		DailyQuotaPts:      quota,
	})
	return token, nil
}

// authenticate resolves the stored capability for the presented token and
// checks the possession proof.
func (m *Manager) authenticate(token *Token) (*Capability, error) {
	if token == nil {
		return nil, ErrUnauthorized
	}
	capability := new(Capability)
	ok, err := m.st.KVGet(capabilityKey(token.id), capability)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrCapabilityNotFound
	}
	proof := token.proofHash()
	if !bytes.Equal(capability.ProofHash[:], proof[:]) {
		return nil, ErrUnauthorized
	}
	return capability, nil
}

// rollEpoch refills the daily quota when the capability's stored epoch is
// behind the current one. Strictly-greater comparison, same policy as the
// wallet cap.
func rollEpoch(capability *Capability, currentEpoch uint64) {
	if currentEpoch > capability.LastEpoch {
		capability.MintRemainingToday = capability.DailyQuotaPts
		capability.LastEpoch = currentEpoch
	}
}

// TopUpCollateral revalues the partner's total collateral at a fresh price
// and recomputes the daily quota. The current epoch's remaining allowance
// only grows when the new quota extends the old ceiling; a shrunk quota
// clamps it so MintRemainingToday never exceeds DailyQuotaPts.
func (m *Manager) TopUpCollateral(token *Token, additionalUnits, currentEpoch uint64) error {
	if err := common.Guard(m.pauses); err != nil {
		return err
	}
	capability, err := m.authenticate(token)
	if err != nil {
		return err
	}
	if additionalUnits == 0 {
		return fmt.Errorf("%w: top-up required", ErrInvalidCollateral)
	}
	price, err := m.prices.FreshPrice(capability.CollateralSymbol, currentEpoch)
	if err != nil {
		return err
	}
	units, err := common.CheckedAdd(capability.CollateralUnits, additionalUnits)
	if err != nil {
		return err
	}
	value, err := valueUSD(units, price.USDPerUnit)
	if err != nil {
		return err
	}
	quota, err := quotaPts(value)
	if err != nil {
		return err
	}

	rollEpoch(capability, currentEpoch)
	oldQuota := capability.DailyQuotaPts
	capability.CollateralUnits = units
	capability.CollateralValueUSD = value
	capability.DailyQuotaPts = quota
	if quota > oldQuota {
		headroom := quota - oldQuota
		remaining, err := common.CheckedAdd(capability.MintRemainingToday, headroom)
		if err != nil {
			return err
		}
		capability.MintRemainingToday = remaining
	}
	if capability.MintRemainingToday > quota {
		capability.MintRemainingToday = quota
	}
	if err := m.st.KVPut(capabilityKey(capability.ID), capability); err != nil {
		return fmt.Errorf("partner: persist capability: %w", err)
	}
	m.emitter.Emit(events.PartnerToppedUp{
		ID:                 capability.ID,
		CollateralValueUSD: value,
		DailyQuotaPts:      quota,
	})
	return nil
}

// MintAsPartner mints points to the recipient against the partner's daily
// quota. The delegated ledger mint enforces the recipient's wallet cap, and
// either limit rejects the whole operation: partner counters are only
// persisted after the ledger mint succeeds.
func (m *Manager) MintAsPartner(token *Token, minter Minter, recipient [20]byte, amount, currentEpoch uint64) error {
	if err := common.Guard(m.pauses); err != nil {
		return err
	}
	capability, err := m.authenticate(token)
	if err != nil {
		return err
	}
	if capability.Paused {
		return ErrPartnerPaused
	}
	rollEpoch(capability, currentEpoch)
	if amount > capability.MintRemainingToday {
		return fmt.Errorf("%w: %d over remaining %d", ErrPartnerQuotaExceeded, amount, capability.MintRemainingToday)
	}
	lifetime, err := common.CheckedAdd(capability.TotalMintedLifetime, amount)
	if err != nil {
		return err
	}
	if err := minter.Mint(recipient, amount, currentEpoch, "partner"); err != nil {
		return err
	}
	capability.MintRemainingToday -= amount
	capability.TotalMintedLifetime = lifetime
	if err := m.st.KVPut(capabilityKey(capability.ID), capability); err != nil {
		return fmt.Errorf("partner: persist capability: %w", err)
	}
	m.emitter.Emit(events.PartnerMinted{
		ID:             capability.ID,
		Recipient:      recipient,
		Amount:         amount,
		RemainingToday: capability.MintRemainingToday,
		Epoch:          currentEpoch,
	})
	return nil
}

// SetPaused toggles the partner's own pause flag. Requires the partner's
// capability token.
func (m *Manager) SetPaused(token *Token, paused bool) error {
	if err := common.Guard(m.pauses); err != nil {
		return err
	}
	capability, err := m.authenticate(token)
	if err != nil {
		return err
	}
	capability.Paused = paused
	if err := m.st.KVPut(capabilityKey(capability.ID), capability); err != nil {
		return fmt.Errorf("partner: persist capability: %w", err)
	}
	m.emitter.Emit(events.PartnerPauseChanged{ID: capability.ID, Paused: paused})
	return nil
}

// Get retrieves a capability by ID for read-only consumers.
func (m *Manager) Get(id [32]byte) (*Capability, bool) {
	capability := new(Capability)
	ok, err := m.st.KVGet(capabilityKey(id), capability)
	if err != nil || !ok {
		return nil, false
	}
	return capability, true
}

// MintRemainingToday reports the partner's unspent quota as of the given
// epoch, accounting for a pending refill the next mint would apply.
func (m *Manager) MintRemainingToday(id [32]byte, currentEpoch uint64) uint64 {
	capability, ok := m.Get(id)
	if !ok {
		return 0
	}
	rollEpoch(capability, currentEpoch)
	return capability.MintRemainingToday
}

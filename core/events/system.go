package events

const (
	// TypeSupplyRateRatcheted is emitted when the supply oracle increases
	// the redemption haircut.
	TypeSupplyRateRatcheted = "supply.rate.ratcheted"
	// TypeOraclePriceUpdated is emitted when the oracle authority posts a
	// new collateral price.
	TypeOraclePriceUpdated = "oracle.price.updated"
	// TypeAdminPauseChanged is emitted when governance flips the global
	// circuit breaker.
	TypeAdminPauseChanged = "admin.pause.changed"
	// TypeCapabilityTransferred is emitted when a governance or oracle
	// capability changes hands.
	TypeCapabilityTransferred = "capability.transferred"
	// TypeStakeCreated is emitted when a stake record is opened.
	TypeStakeCreated = "stake.created"
	// TypeStakeClosed is emitted when a stake record is destroyed.
	TypeStakeClosed = "stake.closed"
)

// SupplyRateRatcheted captures a one-way increase of the redeem rate.
type SupplyRateRatcheted struct {
	RateBps uint64
	Epoch   uint64
	// TotalIssued is the decimal rendering of the u128 running total.
	TotalIssued string
}

func (SupplyRateRatcheted) EventType() string { return TypeSupplyRateRatcheted }

// OraclePriceUpdated captures a posted collateral price.
type OraclePriceUpdated struct {
	Symbol          string
	PriceUSDPerUnit uint64
	Epoch           uint64
}

func (OraclePriceUpdated) EventType() string { return TypeOraclePriceUpdated }

// AdminPauseChanged captures the global pause toggle.
type AdminPauseChanged struct {
	Paused bool
}

func (AdminPauseChanged) EventType() string { return TypeAdminPauseChanged }

// CapabilityTransferred captures an explicit capability handover. Kind is
// "governance" or "oracle".
type CapabilityTransferred struct {
	Kind     string
	NewOwner [20]byte
}

func (CapabilityTransferred) EventType() string { return TypeCapabilityTransferred }

// StakeCreated captures a new stake record.
type StakeCreated struct {
	ID              [32]byte
	Owner           [20]byte
	Principal       uint64
	DurationSeconds uint64
	Epoch           uint64
}

func (StakeCreated) EventType() string { return TypeStakeCreated }

// StakeClosed captures an unstake.
type StakeClosed struct {
	ID    [32]byte
	Owner [20]byte
}

func (StakeClosed) EventType() string { return TypeStakeClosed }

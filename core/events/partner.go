package events

const (
	// TypePartnerIssued is emitted when a partner capability is created.
	TypePartnerIssued = "partner.capability.issued"
	// TypePartnerToppedUp is emitted when a partner adds collateral.
	TypePartnerToppedUp = "partner.collateral.toppedup"
	// TypePartnerMinted is emitted when a partner-attributed mint succeeds.
	TypePartnerMinted = "partner.minted"
	// TypePartnerPauseChanged is emitted when a partner toggles its own
	// pause flag.
	TypePartnerPauseChanged = "partner.pause.changed"
)

// PartnerIssued captures the creation of a collateral-backed capability.
type PartnerIssued struct {
	ID                 [32]byte
	Owner              [20]byte
	CollateralValueUSD uint64
	DailyQuotaPts      uint64
}

func (PartnerIssued) EventType() string { return TypePartnerIssued }

// PartnerToppedUp captures a collateral top-up and the recomputed quota.
type PartnerToppedUp struct {
	ID                 [32]byte
	CollateralValueUSD uint64
	DailyQuotaPts      uint64
}

func (PartnerToppedUp) EventType() string { return TypePartnerToppedUp }

// PartnerMinted captures a partner-attributed mint and the quota left for the
// current epoch.
type PartnerMinted struct {
	ID             [32]byte
	Recipient      [20]byte
	Amount         uint64
	RemainingToday uint64
	Epoch          uint64
}

func (PartnerMinted) EventType() string { return TypePartnerMinted }

// PartnerPauseChanged captures a partner pause toggle.
type PartnerPauseChanged struct {
	ID     [32]byte
	Paused bool
}

func (PartnerPauseChanged) EventType() string { return TypePartnerPauseChanged }

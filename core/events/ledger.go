package events

const (
	// TypePointsMinted is emitted when points are credited to a wallet.
	TypePointsMinted = "points.minted"
	// TypePointsSpent is emitted when available points are burned.
	TypePointsSpent = "points.spent"
	// TypePointsLocked is emitted when available points move into the
	// locked bucket.
	TypePointsLocked = "points.locked"
	// TypePointsUnlocked is emitted when locked points are released.
	TypePointsUnlocked = "points.unlocked"
)

// PointsMinted captures a successful mint, including the attribution source
// ("partner", "stake", "system").
type PointsMinted struct {
	Address [20]byte
	Amount  uint64
	Source  string
	Epoch   uint64
}

func (PointsMinted) EventType() string { return TypePointsMinted }

// PointsSpent captures a redemption burn.
type PointsSpent struct {
	Address [20]byte
	Amount  uint64
}

func (PointsSpent) EventType() string { return TypePointsSpent }

// PointsLocked captures available balance moving into the locked bucket.
type PointsLocked struct {
	Address [20]byte
	Amount  uint64
}

func (PointsLocked) EventType() string { return TypePointsLocked }

// PointsUnlocked captures locked balance returning to the available bucket.
type PointsUnlocked struct {
	Address [20]byte
	Amount  uint64
}

func (PointsUnlocked) EventType() string { return TypePointsUnlocked }

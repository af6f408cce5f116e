package gov

import (
	"encoding/hex"
	"strings"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/google/uuid"
)

const (
	// KindGovernance identifies the capability controlling the global pause
	// flag and partner onboarding.
	KindGovernance = "governance"
	// KindOracle identifies the capability allowed to post collateral
	// prices.
	KindOracle = "oracle"
)

// Capability is an unforgeable authorization token. Its fields are unexported
// so the only way to obtain one is genesis seeding or an explicit Transfer;
// presenting the token is the sole proof of authority, there is no ACL.
type Capability struct {
	kind   string
	id     [32]byte
	secret [32]byte
}

// Kind reports which authority the capability grants.
func (c *Capability) Kind() string {
	if c == nil {
		return ""
	}
	return c.kind
}

// ID returns the stable identifier the capability was issued under.
func (c *Capability) ID() [32]byte {
	if c == nil {
		return [32]byte{}
	}
	return c.id
}

func (c *Capability) proofHash() [32]byte {
	var out [32]byte
	copy(out[:], crypto.Keccak256(c.secret[:]))
	return out
}

// Encode serialises the capability for handing to its holder. The encoding
// carries the secret: treat it like a private key.
func (c *Capability) Encode() string {
	if c == nil {
		return ""
	}
	raw := make([]byte, 0, 64)
	raw = append(raw, c.id[:]...)
	raw = append(raw, c.secret[:]...)
	return hex.EncodeToString(raw)
}

// DecodeCapability reconstructs a capability of the given kind from its
// encoded form. Decoding grants nothing by itself: the keeper still checks
// the proof hash against the stored record.
func DecodeCapability(kind, encoded string) (*Capability, error) {
	raw, err := hex.DecodeString(strings.TrimPrefix(strings.TrimSpace(encoded), "0x"))
	if err != nil || len(raw) != 64 {
		return nil, ErrMalformedCapability
	}
	cap := &Capability{kind: kind}
	copy(cap.id[:], raw[:32])
	copy(cap.secret[:], raw[32:])
	return cap, nil
}

func mintCapability(kind string, owner [20]byte) *Capability {
	salt := uuid.New()
	cap := &Capability{kind: kind}
	copy(cap.id[:], crypto.Keccak256([]byte(kind), owner[:], salt[:]))
	entropy := uuid.New()
	copy(cap.secret[:], crypto.Keccak256(cap.id[:], entropy[:]))
	return cap
}

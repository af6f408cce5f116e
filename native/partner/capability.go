package partner

import (
	"encoding/hex"
	"strings"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/google/uuid"
)

// Token is the partner's unforgeable proof of capability ownership. Fields
// are unexported so the only way to hold one is issuance; presenting it is
// the authorization check, there is no address list.
type Token struct {
	id     [32]byte
	secret [32]byte
}

// ID returns the capability identifier the token unlocks.
func (t *Token) ID() [32]byte {
	if t == nil {
		return [32]byte{}
	}
	return t.id
}

func (t *Token) proofHash() [32]byte {
	var out [32]byte
	copy(out[:], crypto.Keccak256(t.secret[:]))
	return out
}

// Encode serialises the token for handing to the partner. The encoding
// carries the secret: treat it like a private key.
func (t *Token) Encode() string {
	if t == nil {
		return ""
	}
	raw := make([]byte, 0, 64)
	raw = append(raw, t.id[:]...)
	raw = append(raw, t.secret[:]...)
	return hex.EncodeToString(raw)
}

// DecodeToken reconstructs a token from its encoded form. Decoding grants
// nothing by itself: every operation still checks the proof hash against the
// stored capability.
func DecodeToken(encoded string) (*Token, error) {
	raw, err := hex.DecodeString(strings.TrimPrefix(strings.TrimSpace(encoded), "0x"))
	if err != nil || len(raw) != 64 {
		return nil, ErrMalformedToken
	}
	token := &Token{}
	copy(token.id[:], raw[:32])
	copy(token.secret[:], raw[32:])
	return token, nil
}

func mintToken(owner [20]byte) *Token {
	salt := uuid.New()
	token := &Token{}
	copy(token.id[:], crypto.Keccak256(owner[:], salt[:]))
	entropy := uuid.New()
	copy(token.secret[:], crypto.Keccak256(token.id[:], entropy[:]))
	return token
}

// Capability is the stored, collateral-backed minting grant. The invariant
// 0 <= MintRemainingToday <= DailyQuotaPts holds at all times;
// MintRemainingToday refills to DailyQuotaPts when an operation observes an
// epoch past LastEpoch.
type Capability struct {
	ID                  [32]byte
	Owner               [20]byte
	Paused              bool
	CollateralSymbol    string
	CollateralUnits     uint64
	CollateralValueUSD  uint64
	DailyQuotaPts       uint64
	MintRemainingToday  uint64
	LastEpoch           uint64
	TotalMintedLifetime uint64
	ProofHash           [32]byte
}

package gov

import (
	"bytes"
	"errors"
	"fmt"

	"alphapoints/core/events"
)

var (
	ErrUnauthorized        = errors.New("gov: unauthorized")
	ErrAlreadySeeded       = errors.New("gov: capabilities already seeded")
	ErrNotSeeded           = errors.New("gov: capabilities not seeded")
	ErrMalformedCapability = errors.New("gov: malformed capability encoding")
)

const (
	pauseKey = "gov/paused"
	capKeyFn = "gov/cap/"
)

type pauseRecord struct {
	Paused bool
}

type capabilityRecord struct {
	ID        [32]byte
	Owner     [20]byte
	ProofHash [32]byte
}

// State is the persistence surface the keeper needs.
type State interface {
	KVGet(key []byte, out interface{}) (bool, error)
	KVPut(key []byte, value interface{}) error
}

// Keeper manages the admin config: the global pause flag and the governance
// and oracle-authority capabilities.
type Keeper struct {
	st      State
	emitter events.Emitter
}

// NewKeeper creates a keeper backed by the provided state.
func NewKeeper(st State) *Keeper {
	return &Keeper{st: st, emitter: events.NoopEmitter{}}
}

// SetEmitter configures the event emitter. Passing nil resets to a no-op.
func (k *Keeper) SetEmitter(emitter events.Emitter) {
	if emitter == nil {
		k.emitter = events.NoopEmitter{}
		return
	}
	k.emitter = emitter
}

func capKey(kind string) []byte {
	return []byte(capKeyFn + kind)
}

// SeedGenesis mints the governance and oracle capabilities exactly once and
// returns them to the deployer. Subsequent calls fail.
func (k *Keeper) SeedGenesis(govOwner, oracleOwner [20]byte) (*Capability, *Capability, error) {
	for _, kind := range []string{KindGovernance, KindOracle} {
		ok, err := k.st.KVGet(capKey(kind), nil)
		if err != nil {
			return nil, nil, err
		}
		if ok {
			return nil, nil, ErrAlreadySeeded
		}
	}
	govCap := mintCapability(KindGovernance, govOwner)
	oracleCap := mintCapability(KindOracle, oracleOwner)
	if err := k.putRecord(govCap, govOwner); err != nil {
		return nil, nil, err
	}
	if err := k.putRecord(oracleCap, oracleOwner); err != nil {
		return nil, nil, err
	}
	return govCap, oracleCap, nil
}

func (k *Keeper) putRecord(cap *Capability, owner [20]byte) error {
	record := capabilityRecord{ID: cap.id, Owner: owner, ProofHash: cap.proofHash()}
	if err := k.st.KVPut(capKey(cap.kind), record); err != nil {
		return fmt.Errorf("gov: persist %s capability: %w", cap.kind, err)
	}
	return nil
}

// Seeded reports whether the genesis capabilities exist.
func (k *Keeper) Seeded() (bool, error) {
	return k.st.KVGet(capKey(KindGovernance), nil)
}

// Verify checks that the presented capability matches the stored record for
// the expected kind. Any mismatch is ErrUnauthorized.
func (k *Keeper) Verify(cap *Capability, kind string) error {
	if cap == nil || cap.kind != kind {
		return ErrUnauthorized
	}
	var record capabilityRecord
	ok, err := k.st.KVGet(capKey(kind), &record)
	if err != nil {
		return err
	}
	if !ok {
		return ErrNotSeeded
	}
	proof := cap.proofHash()
	if record.ID != cap.id || !bytes.Equal(record.ProofHash[:], proof[:]) {
		return ErrUnauthorized
	}
	return nil
}

// SetPauseState flips the global circuit breaker. Requires the governance
// capability.
func (k *Keeper) SetPauseState(cap *Capability, paused bool) error {
	if err := k.Verify(cap, KindGovernance); err != nil {
		return err
	}
	if err := k.st.KVPut([]byte(pauseKey), pauseRecord{Paused: paused}); err != nil {
		return fmt.Errorf("gov: persist pause flag: %w", err)
	}
	k.emitter.Emit(events.AdminPauseChanged{Paused: paused})
	return nil
}

// Paused reports the stored pause flag. A missing record means not paused.
func (k *Keeper) Paused() (bool, error) {
	var record pauseRecord
	ok, err := k.st.KVGet([]byte(pauseKey), &record)
	if err != nil {
		return false, err
	}
	if !ok {
		return false, nil
	}
	return record.Paused, nil
}

// IsPaused implements common.PauseView. State read errors surface as paused so
// a broken parameter store fails closed.
func (k *Keeper) IsPaused() bool {
	paused, err := k.Paused()
	if err != nil {
		return true
	}
	return paused
}

// Transfer reissues the capability under a new owner and invalidates the old
// token. The handover is explicit and logged via CapabilityTransferred.
func (k *Keeper) Transfer(cap *Capability, newOwner [20]byte) (*Capability, error) {
	if cap == nil {
		return nil, ErrUnauthorized
	}
	if err := k.Verify(cap, cap.kind); err != nil {
		return nil, err
	}
	next := mintCapability(cap.kind, newOwner)
	if err := k.putRecord(next, newOwner); err != nil {
		return nil, err
	}
	k.emitter.Emit(events.CapabilityTransferred{Kind: cap.kind, NewOwner: newOwner})
	return next, nil
}

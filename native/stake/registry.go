package stake

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/google/uuid"

	"alphapoints/core/events"
	"alphapoints/native/common"
)

var (
	ErrStakeNotFound   = errors.New("stake: record not found")
	ErrStakeEncumbered = errors.New("stake: record encumbered")
	ErrInvalidStake    = errors.New("stake: invalid record")
	// ErrWeightBoundExceeded is returned when a stake-attributed mint asks
	// for more than the weight curve allows.
	ErrWeightBoundExceeded = errors.New("stake: weight bound exceeded")
)

// ID uniquely identifies a stake record.
type ID [32]byte

// Record captures a staked principal for a duration. Immutable after
// creation apart from the Encumbered flag maintained by the loan subsystem.
type Record struct {
	ID              ID
	Owner           [20]byte
	Principal       uint64
	DurationSeconds uint64
	CreatedAtEpoch  uint64
	Encumbered      bool
}

// Bound is the weight-curve ceiling for this record at the given liquidity
// share.
func (r *Record) Bound(liquidityShareBps uint64) uint64 {
	if r == nil {
		return 0
	}
	return WeightBound(r.Principal, r.DurationSeconds, liquidityShareBps)
}

// State is the persistence surface the registry needs.
type State interface {
	KVGet(key []byte, out interface{}) (bool, error)
	KVPut(key []byte, value interface{}) error
	KVDelete(key []byte) error
}

// Registry persists stake records.
type Registry struct {
	st      State
	emitter events.Emitter
	pauses  common.PauseView
}

// NewRegistry creates a registry backed by the provided state.
func NewRegistry(st State) *Registry {
	return &Registry{st: st, emitter: events.NoopEmitter{}}
}

// SetEmitter configures the event emitter. Passing nil resets to a no-op.
func (r *Registry) SetEmitter(emitter events.Emitter) {
	if emitter == nil {
		r.emitter = events.NoopEmitter{}
		return
	}
	r.emitter = emitter
}

// SetPauses wires the global pause view.
func (r *Registry) SetPauses(p common.PauseView) {
	r.pauses = p
}

func recordKey(id ID) []byte {
	return append([]byte("stake/record/"), id[:]...)
}

// Create opens a stake record. Zero principal or duration is rejected up
// front rather than producing a record that can never mint.
func (r *Registry) Create(owner [20]byte, principal, durationSeconds, epoch uint64) (*Record, error) {
	if err := common.Guard(r.pauses); err != nil {
		return nil, err
	}
	if principal == 0 || durationSeconds == 0 {
		return nil, fmt.Errorf("%w: principal and duration must be positive", ErrInvalidStake)
	}
	record := &Record{
		Owner:           owner,
		Principal:       principal,
		DurationSeconds: durationSeconds,
		CreatedAtEpoch:  epoch,
	}
	var buf [16]byte
	binary.BigEndian.PutUint64(buf[:8], principal)
	binary.BigEndian.PutUint64(buf[8:], durationSeconds)
	salt := uuid.New()
	copy(record.ID[:], crypto.Keccak256(owner[:], buf[:], salt[:]))
	if err := r.st.KVPut(recordKey(record.ID), record); err != nil {
		return nil, fmt.Errorf("stake: persist record: %w", err)
	}
	r.emitter.Emit(events.StakeCreated{
		ID:              record.ID,
		Owner:           owner,
		Principal:       principal,
		DurationSeconds: durationSeconds,
		Epoch:           epoch,
	})
	return record, nil
}

// Get retrieves a stake record by ID.
func (r *Registry) Get(id ID) (*Record, bool) {
	record := new(Record)
	ok, err := r.st.KVGet(recordKey(id), record)
	if err != nil || !ok {
		return nil, false
	}
	return record, true
}

// SetEncumbered flags a record as collateral for the loan subsystem, or
// releases it.
func (r *Registry) SetEncumbered(id ID, encumbered bool) error {
	if err := common.Guard(r.pauses); err != nil {
		return err
	}
	record, ok := r.Get(id)
	if !ok {
		return ErrStakeNotFound
	}
	record.Encumbered = encumbered
	if err := r.st.KVPut(recordKey(id), record); err != nil {
		return fmt.Errorf("stake: persist record: %w", err)
	}
	return nil
}

// Unstake destroys a record. Encumbered records must be released first.
func (r *Registry) Unstake(id ID) error {
	if err := common.Guard(r.pauses); err != nil {
		return err
	}
	record, ok := r.Get(id)
	if !ok {
		return ErrStakeNotFound
	}
	if record.Encumbered {
		return ErrStakeEncumbered
	}
	if err := r.st.KVDelete(recordKey(id)); err != nil {
		return fmt.Errorf("stake: delete record: %w", err)
	}
	r.emitter.Emit(events.StakeClosed{ID: id, Owner: record.Owner})
	return nil
}

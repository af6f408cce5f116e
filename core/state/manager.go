package state

import (
	"encoding/json"
	"fmt"

	"alphapoints/storage"
)

// KV is the narrow persistence surface the native modules program against.
// Both the Manager and a Staged view satisfy it, so engines are oblivious to
// whether their writes are committed immediately or buffered.
type KV interface {
	KVGet(key []byte, out interface{}) (bool, error)
	KVPut(key []byte, value interface{}) error
	KVDelete(key []byte) error
	KVAppend(key []byte, value []byte) error
	KVGetList(key []byte, out interface{}) error
}

// Manager persists JSON-encoded records through a storage.Database.
type Manager struct {
	db storage.Database
}

// NewManager wraps the provided database.
func NewManager(db storage.Database) *Manager {
	return &Manager{db: db}
}

func (m *Manager) KVGet(key []byte, out interface{}) (bool, error) {
	raw, found, err := m.db.Get(key)
	if err != nil {
		return false, fmt.Errorf("state: get %q: %w", key, err)
	}
	if !found {
		return false, nil
	}
	if out != nil {
		if err := json.Unmarshal(raw, out); err != nil {
			return false, fmt.Errorf("state: decode %q: %w", key, err)
		}
	}
	return true, nil
}

func (m *Manager) KVPut(key []byte, value interface{}) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("state: encode %q: %w", key, err)
	}
	if err := m.db.Put(key, raw); err != nil {
		return fmt.Errorf("state: put %q: %w", key, err)
	}
	return nil
}

func (m *Manager) KVDelete(key []byte) error {
	if err := m.db.Delete(key); err != nil {
		return fmt.Errorf("state: delete %q: %w", key, err)
	}
	return nil
}

func (m *Manager) KVAppend(key []byte, value []byte) error {
	var list [][]byte
	if _, err := m.KVGet(key, &list); err != nil {
		return err
	}
	list = append(list, append([]byte(nil), value...))
	return m.KVPut(key, list)
}

func (m *Manager) KVGetList(key []byte, out interface{}) error {
	if _, err := m.KVGet(key, out); err != nil {
		return err
	}
	return nil
}

// Stage opens a buffered view over the manager. Reads fall through to the
// underlying database, writes and deletes accumulate in memory until Commit.
// Discarding a stage (by dropping it) leaves the database untouched, which is
// how an aborted operation keeps its all-or-nothing guarantee.
func (m *Manager) Stage() *Staged {
	return &Staged{
		parent:  m,
		writes:  make(map[string][]byte),
		deletes: make(map[string]struct{}),
	}
}

// Staged buffers mutations on top of a Manager.
type Staged struct {
	parent  *Manager
	writes  map[string][]byte
	deletes map[string]struct{}
}

func (s *Staged) KVGet(key []byte, out interface{}) (bool, error) {
	if _, gone := s.deletes[string(key)]; gone {
		return false, nil
	}
	if raw, ok := s.writes[string(key)]; ok {
		if out != nil {
			if err := json.Unmarshal(raw, out); err != nil {
				return false, fmt.Errorf("state: decode staged %q: %w", key, err)
			}
		}
		return true, nil
	}
	return s.parent.KVGet(key, out)
}

func (s *Staged) KVPut(key []byte, value interface{}) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("state: encode %q: %w", key, err)
	}
	delete(s.deletes, string(key))
	s.writes[string(key)] = raw
	return nil
}

func (s *Staged) KVDelete(key []byte) error {
	delete(s.writes, string(key))
	s.deletes[string(key)] = struct{}{}
	return nil
}

func (s *Staged) KVAppend(key []byte, value []byte) error {
	var list [][]byte
	if _, err := s.KVGet(key, &list); err != nil {
		return err
	}
	list = append(list, append([]byte(nil), value...))
	return s.KVPut(key, list)
}

func (s *Staged) KVGetList(key []byte, out interface{}) error {
	if _, err := s.KVGet(key, out); err != nil {
		return err
	}
	return nil
}

// Commit flushes the buffered mutations to the underlying database. The stage
// must not be reused afterwards.
func (s *Staged) Commit() error {
	for key := range s.deletes {
		if err := s.parent.db.Delete([]byte(key)); err != nil {
			return fmt.Errorf("state: commit delete %q: %w", key, err)
		}
	}
	for key, raw := range s.writes {
		if err := s.parent.db.Put([]byte(key), raw); err != nil {
			return fmt.Errorf("state: commit put %q: %w", key, err)
		}
	}
	return nil
}

package state

import (
	"errors"
	"fmt"

	ethcrypto "github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/rlp"

	"meltwater/native/bank"
	"meltwater/storage"
)

type journalEntry struct {
	key     []byte
	prev    []byte
	existed bool
}

// Manager stores engine state as RLP values under keccak-hashed keys. Writes
// made while a snapshot is open are journaled so they can be undone.
type Manager struct {
	db        storage.Database
	journal   []journalEntry
	snapshots map[int]int
	nextSnap  int
}

// NewManager creates a state manager operating on the provided database.
func NewManager(db storage.Database) *Manager {
	return &Manager{db: db, snapshots: make(map[int]int)}
}

func kvKey(key []byte) []byte {
	return ethcrypto.Keccak256(key)
}

func (m *Manager) read(hashed []byte) ([]byte, bool, error) {
	data, err := m.db.Get(hashed)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return data, true, nil
}

func (m *Manager) record(hashed []byte) error {
	if len(m.snapshots) == 0 {
		return nil
	}
	prev, existed, err := m.read(hashed)
	if err != nil {
		return err
	}
	m.journal = append(m.journal, journalEntry{key: hashed, prev: prev, existed: existed})
	return nil
}

// KVPut stores the provided value under the supplied key using RLP encoding.
func (m *Manager) KVPut(key []byte, value interface{}) error {
	if len(key) == 0 {
		return fmt.Errorf("kv: key must not be empty")
	}
	encoded, err := rlp.EncodeToBytes(value)
	if err != nil {
		return err
	}
	hashed := kvKey(key)
	if err := m.record(hashed); err != nil {
		return err
	}
	return m.db.Put(hashed, encoded)
}

// KVGet retrieves the value stored under the supplied key and decodes it into
// the provided destination. The boolean return value indicates whether the key
// existed in state.
func (m *Manager) KVGet(key []byte, out interface{}) (bool, error) {
	if len(key) == 0 {
		return false, fmt.Errorf("kv: key must not be empty")
	}
	data, ok, err := m.read(kvKey(key))
	if err != nil || !ok {
		return false, err
	}
	if out == nil {
		return true, nil
	}
	if err := rlp.DecodeBytes(data, out); err != nil {
		return false, fmt.Errorf("kv: decode %s: %w", key, err)
	}
	return true, nil
}

// KVDelete removes key.
func (m *Manager) KVDelete(key []byte) error {
	hashed := kvKey(key)
	if err := m.record(hashed); err != nil {
		return err
	}
	return m.db.Delete(hashed)
}

// Snapshot opens a revert point.
func (m *Manager) Snapshot() int {
	m.nextSnap++
	m.snapshots[m.nextSnap] = len(m.journal)
	return m.nextSnap
}

// RevertToSnapshot undoes every write made since id was opened.
func (m *Manager) RevertToSnapshot(id int) error {
	idx, ok := m.snapshots[id]
	if !ok {
		return bank.ErrUnknownSnapshot
	}
	for i := len(m.journal) - 1; i >= idx; i-- {
		entry := m.journal[i]
		var err error
		if entry.existed {
			err = m.db.Put(entry.key, entry.prev)
		} else {
			err = m.db.Delete(entry.key)
		}
		if err != nil {
			return fmt.Errorf("state: revert: %w", err)
		}
	}
	m.journal = m.journal[:idx]
	m.dropFrom(id)
	return nil
}

// DiscardSnapshot keeps the writes made since id and closes it.
func (m *Manager) DiscardSnapshot(id int) {
	m.dropFrom(id)
}

func (m *Manager) dropFrom(id int) {
	for key := range m.snapshots {
		if key >= id {
			delete(m.snapshots, key)
		}
	}
	if len(m.snapshots) == 0 {
		m.journal = nil
	}
}

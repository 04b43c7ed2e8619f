package state

import (
	"errors"
	"fmt"
	"sync"

	"github.com/ethereum/go-ethereum/rlp"

	"swapledger/core/types"
	"swapledger/storage"
)

var accountPrefix = []byte("state/account/")

// Manager mediates every read and write between the ledger modules and
// the backing database. Writes land in an in-memory overlay first; a
// journal of overwritten overlay entries supports Snapshot and
// RevertToSnapshot so an aborted operation leaves no trace, mirroring
// the all-or-nothing transaction semantics the modules assume. Commit
// flushes the overlay to the database.
type Manager struct {
	mu        sync.Mutex
	db        storage.Database
	overlay   map[string][]byte
	journal   []journalEntry
	snapshots []snapshot
	nextSnap  int
}

type journalEntry struct {
	key        string
	prev       []byte
	hadOverlay bool
}

type snapshot struct {
	id      int
	journal int
}

// NewManager wraps the supplied database. The database is only touched
// on reads that miss the overlay and on Commit.
func NewManager(db storage.Database) *Manager {
	return &Manager{
		db:      db,
		overlay: make(map[string][]byte),
	}
}

// KVPut RLP-encodes value and stages it under key.
func (m *Manager) KVPut(key []byte, value interface{}) error {
	if m == nil {
		return errors.New("state: manager not configured")
	}
	encoded, err := rlp.EncodeToBytes(value)
	if err != nil {
		return fmt.Errorf("state: encode %q: %w", key, err)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stage(string(key), encoded)
	return nil
}

// KVGet decodes the stored value under key into out, reporting whether
// the key exists. Overlay entries shadow the database.
func (m *Manager) KVGet(key []byte, out interface{}) (bool, error) {
	if m == nil {
		return false, errors.New("state: manager not configured")
	}
	m.mu.Lock()
	raw, ok := m.overlay[string(key)]
	m.mu.Unlock()
	if !ok {
		stored, err := m.db.Get(key)
		if errors.Is(err, storage.ErrKeyNotFound) {
			return false, nil
		}
		if err != nil {
			return false, err
		}
		raw = stored
	}
	if err := rlp.DecodeBytes(raw, out); err != nil {
		return false, fmt.Errorf("state: decode %q: %w", key, err)
	}
	return true, nil
}

// KVHas reports whether the key exists without decoding it.
func (m *Manager) KVHas(key []byte) (bool, error) {
	m.mu.Lock()
	_, ok := m.overlay[string(key)]
	m.mu.Unlock()
	if ok {
		return true, nil
	}
	return m.db.Has(key)
}

func (m *Manager) stage(key string, value []byte) {
	prev, had := m.overlay[key]
	m.journal = append(m.journal, journalEntry{key: key, prev: prev, hadOverlay: had})
	m.overlay[key] = value
}

// Snapshot marks the current overlay state and returns a handle that can
// be passed to RevertToSnapshot.
func (m *Manager) Snapshot() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	id := m.nextSnap
	m.nextSnap++
	m.snapshots = append(m.snapshots, snapshot{id: id, journal: len(m.journal)})
	return id
}

// RevertToSnapshot unwinds every write staged since the matching
// Snapshot call. An unknown handle means the snapshot window was
// destroyed under the caller, typically by an interleaved Commit;
// reverting to nothing would strand partial writes, so it panics.
func (m *Manager) RevertToSnapshot(id int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	idx := -1
	for i := len(m.snapshots) - 1; i >= 0; i-- {
		if m.snapshots[i].id == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		panic(fmt.Sprintf("state: snapshot %d cannot be reverted", id))
	}
	mark := m.snapshots[idx].journal
	for i := len(m.journal) - 1; i >= mark; i-- {
		entry := m.journal[i]
		if entry.hadOverlay {
			m.overlay[entry.key] = entry.prev
		} else {
			delete(m.overlay, entry.key)
		}
	}
	m.journal = m.journal[:mark]
	m.snapshots = m.snapshots[:idx]
}

// Commit flushes the overlay to the database and resets the journal.
func (m *Manager) Commit() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for key, value := range m.overlay {
		if err := m.db.Put([]byte(key), value); err != nil {
			return err
		}
	}
	m.overlay = make(map[string][]byte)
	m.journal = nil
	m.snapshots = nil
	return nil
}

func accountKey(addr [20]byte) []byte {
	return append(append([]byte{}, accountPrefix...), addr[:]...)
}

// GetAccount loads the native-currency account for addr, returning a
// zero-balance account when none has been stored yet.
func (m *Manager) GetAccount(addr [20]byte) (*types.Account, error) {
	stored := new(types.Account)
	ok, err := m.KVGet(accountKey(addr), stored)
	if err != nil {
		return nil, err
	}
	if !ok {
		return (&types.Account{}).Ensure(), nil
	}
	return stored.Ensure(), nil
}

// PutAccount stages the account for addr.
func (m *Manager) PutAccount(addr [20]byte, account *types.Account) error {
	if account == nil {
		return errors.New("state: nil account")
	}
	return m.KVPut(accountKey(addr), account.Ensure())
}

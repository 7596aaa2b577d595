package store

import (
	"encoding/json"
	"sync"

	"commodity-sim-go/internal/models"
)

// MemorySnapshotStore keeps snapshots in memory. Useful for tests and
// for runs configured without a database DSN.
type MemorySnapshotStore struct {
	mu    sync.RWMutex
	store map[string][]byte
}

var _ SnapshotStore = (*MemorySnapshotStore)(nil)

func NewMemorySnapshotStore() *MemorySnapshotStore {
	return &MemorySnapshotStore{store: make(map[string][]byte)}
}

// Save keeps the serialized form so later mutation of the caller's
// snapshot cannot leak into the store.
func (s *MemorySnapshotStore) Save(key string, snap *models.SessionSnapshot) error {
	data, err := json.Marshal(snap)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.store[key] = data
	return nil
}

func (s *MemorySnapshotStore) Load(key string) (*models.SessionSnapshot, error) {
	s.mu.RLock()
	data, ok := s.store[key]
	s.mu.RUnlock()

	if !ok {
		return nil, ErrNotFound
	}

	var snap models.SessionSnapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, err
	}
	return &snap, nil
}

func (s *MemorySnapshotStore) Delete(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.store, key)
	return nil
}

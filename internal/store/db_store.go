package store

import (
	"encoding/json"
	"errors"
	"fmt"

	"commodity-sim-go/internal/models"
	"gorm.io/gorm"
)

// DBSnapshotStore persists session snapshots as JSON blobs in the
// snapshot_records table, one row per key.
type DBSnapshotStore struct {
	db *gorm.DB
}

var _ SnapshotStore = (*DBSnapshotStore)(nil)

// NewDBSnapshotStore wraps an already-migrated gorm connection.
func NewDBSnapshotStore(db *gorm.DB) *DBSnapshotStore {
	return &DBSnapshotStore{db: db}
}

func (s *DBSnapshotStore) Save(key string, snap *models.SessionSnapshot) error {
	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("failed to serialize snapshot for %q: %w", key, err)
	}

	var rec models.SnapshotRecord
	err = s.db.Where("key = ?", key).First(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		rec = models.SnapshotRecord{Key: key, Data: data}
		if err := s.db.Create(&rec).Error; err != nil {
			return fmt.Errorf("failed to create snapshot for %q: %w", key, err)
		}
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to look up snapshot for %q: %w", key, err)
	}

	if err := s.db.Model(&rec).Update("data", data).Error; err != nil {
		return fmt.Errorf("failed to update snapshot for %q: %w", key, err)
	}
	return nil
}

func (s *DBSnapshotStore) Load(key string) (*models.SessionSnapshot, error) {
	var rec models.SnapshotRecord
	err := s.db.Where("key = ?", key).First(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load snapshot for %q: %w", key, err)
	}

	var snap models.SessionSnapshot
	if err := json.Unmarshal(rec.Data, &snap); err != nil {
		return nil, fmt.Errorf("failed to decode snapshot for %q: %w", key, err)
	}
	return &snap, nil
}

func (s *DBSnapshotStore) Delete(key string) error {
	err := s.db.Where("key = ?", key).Delete(&models.SnapshotRecord{}).Error
	if err != nil {
		return fmt.Errorf("failed to delete snapshot for %q: %w", key, err)
	}
	return nil
}

package store

import (
	"errors"

	"commodity-sim-go/internal/models"
)

// ErrNotFound is returned by Load when no snapshot exists for the key.
var ErrNotFound = errors.New("snapshot not found")

// SnapshotStore is the generic key-value persistence contract the
// session manager saves to after every state change and loads from at
// start. The storage medium is the implementation's business.
type SnapshotStore interface {
	Save(key string, snap *models.SessionSnapshot) error
	Load(key string) (*models.SessionSnapshot, error)
	Delete(key string) error
}

package models

import "gorm.io/gorm"

// LedgerSnapshot is the serializable state of one user's ledger.
type LedgerSnapshot struct {
	Balance      float64                `json:"balance"`
	Holdings     map[Instrument]float64 `json:"holdings"`
	Transactions []Transaction          `json:"transactions"`
}

// SessionSnapshot is the full persisted shape of a user session,
// written by the session manager after every state change.
type SessionSnapshot struct {
	ID       string         `json:"id"`
	Username string         `json:"username"`
	Ledger   LedgerSnapshot `json:"ledger"`
	Profile  *Profile       `json:"profile,omitempty"`
}

// SnapshotRecord is the database row holding one serialized session
// snapshot, keyed by the session's storage key.
type SnapshotRecord struct {
	gorm.Model
	Key  string `gorm:"uniqueIndex;not null"`
	Data []byte `gorm:"not null"`
}

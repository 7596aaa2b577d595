package models

import "time"

// PricePoint is a single sample of an instrument's simulated price.
// Produced only by the market simulator; immutable once created.
type PricePoint struct {
	Timestamp time.Time `json:"timestamp"`
	Price     float64   `json:"price"`
}

package models

import "time"

const (
	TradeBuy  = "BUY"
	TradeSell = "SELL"
)

// Transaction records one accepted trade. It is created exactly once
// per accepted buy or sell and never mutated afterwards.
type Transaction struct {
	ID         string     `json:"id"`
	Kind       string     `json:"kind"` // "BUY" or "SELL"
	Instrument Instrument `json:"instrument"`
	Quantity   float64    `json:"quantity"`
	UnitPrice  float64    `json:"unit_price"`
	Timestamp  time.Time  `json:"timestamp"`
}

package models

// Instrument identifies a tradable commodity.
type Instrument string

const (
	Gold   Instrument = "Au"
	Silver Instrument = "Ag"
)

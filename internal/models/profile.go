package models

import "time"

// Experience levels an investor can declare.
const (
	ExperienceBeginner     = "beginner"
	ExperienceIntermediate = "intermediate"
	ExperienceExpert       = "expert"
)

// Risk profiles an investor can declare.
const (
	RiskConservative = "conservative"
	RiskModerate     = "moderate"
	RiskAggressive   = "aggressive"
)

// ProfileData is the caller-supplied part of an investor profile.
type ProfileData struct {
	FirstName       string `json:"first_name"`
	LastName        string `json:"last_name"`
	Email           string `json:"email"`
	ExperienceLevel string `json:"experience_level"`
	RiskProfile     string `json:"risk_profile"`
}

// Profile is the stored investor profile. Submitting a new profile
// replaces the whole record, CreatedAt included.
type Profile struct {
	ProfileData
	CreatedAt time.Time `json:"created_at"`
}

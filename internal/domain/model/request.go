package model

// Source tags where a calculation was triggered from.
type Source string

const (
	SourceWorkout    Source = "workout"
	SourceOnboarding Source = "onboarding"
	SourceCalculator Source = "calculator"
)

// Valid reports whether s is a known source.
func (s Source) Valid() bool {
	return s == SourceWorkout || s == SourceOnboarding || s == SourceCalculator
}

// UserProfile is the slice of the user's profile the engine reads.
// Bodyweight <= 0 means the user has not provided it.
type UserProfile struct {
	UserID     string  `json:"user_id"`
	Gender     Gender  `json:"gender"`
	Bodyweight float64 `json:"bodyweight"`
	Premium    bool    `json:"premium"`
}

// HasBodyweight reports whether the profile can be scored.
func (p UserProfile) HasBodyweight() bool { return p.Bodyweight > 0 }

// CalculationRequest is one batch of performances for one user.
type CalculationRequest struct {
	RequestID    string             `json:"request_id"`
	UserID       string             `json:"user_id"`
	Source       Source             `json:"source"`
	Performances []PerformanceInput `json:"performances"`
}

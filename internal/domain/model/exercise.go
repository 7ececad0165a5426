// Package model contains domain models passed between layers.
package model

// ExerciseType selects the normalization formula used to score an exercise.
type ExerciseType string

// Known exercise types. The set is closed: scoring rejects anything else.
const (
	ExerciseFreeWeight         ExerciseType = "free_weight"
	ExerciseWeightedBodyweight ExerciseType = "weighted_bodyweight"
	ExerciseAssistedBodyweight ExerciseType = "assisted_bodyweight"
	ExerciseCalisthenics       ExerciseType = "calisthenics"
	ExerciseCardio             ExerciseType = "cardio"
)

// Valid reports whether t is one of the known exercise types.
func (t ExerciseType) Valid() bool {
	switch t {
	case ExerciseFreeWeight, ExerciseWeightedBodyweight, ExerciseAssistedBodyweight,
		ExerciseCalisthenics, ExerciseCardio:
		return true
	}
	return false
}

// WeightBased reports whether the type is scored through one-rep-max and SWR.
func (t ExerciseType) WeightBased() bool {
	return t == ExerciseFreeWeight || t == ExerciseWeightedBodyweight || t == ExerciseAssistedBodyweight
}

// Gender selects the elite reference ratio.
type Gender string

const (
	GenderMale   Gender = "male"
	GenderFemale Gender = "female"
)

// EliteRatio holds a gender-specific reference value.
type EliteRatio struct {
	Male   float64 `koanf:"male" json:"male"`
	Female float64 `koanf:"female" json:"female"`
}

// For returns the reference for g. Unknown genders use the male reference.
func (r EliteRatio) For(g Gender) float64 {
	if g == GenderFemale {
		return r.Female
	}
	return r.Male
}

// ExerciseConfig is immutable reference data for one exercise.
type ExerciseConfig struct {
	ID   string       `koanf:"id" json:"id"`
	Name string       `koanf:"name" json:"name"`
	Type ExerciseType `koanf:"type" json:"type"`
	// Alpha shapes the score curve; lower values reward early gains more.
	Alpha         float64    `koanf:"alpha" json:"alpha"`
	EliteReps     EliteRatio `koanf:"elite_reps" json:"elite_reps"`
	EliteDuration EliteRatio `koanf:"elite_duration" json:"elite_duration"`
	EliteSWR      EliteRatio `koanf:"elite_swr" json:"elite_swr"`
}

// PerformanceInput is one logged set. Duration is in seconds, weight in kg.
type PerformanceInput struct {
	ExerciseID string  `json:"exercise_id"`
	Reps       int     `json:"reps"`
	Duration   float64 `json:"duration"`
	Weight     float64 `json:"weight"`
	SetID      string  `json:"set_id,omitempty"`
}

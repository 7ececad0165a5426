package model

// Intensity classifies how strongly an exercise loads a muscle.
type Intensity string

const (
	IntensityPrimary   Intensity = "primary"
	IntensitySecondary Intensity = "secondary"
)

// MuscleGroup contributes Weight of its score to the overall score.
type MuscleGroup struct {
	ID     string  `koanf:"id" json:"id"`
	Name   string  `koanf:"name" json:"name"`
	Weight float64 `koanf:"weight" json:"weight"`
}

// Muscle belongs to one group and contributes Weight of its score to it.
// Weights inside a group are not required to sum to 1.
type Muscle struct {
	ID      string  `koanf:"id" json:"id"`
	Name    string  `koanf:"name" json:"name"`
	GroupID string  `koanf:"group_id" json:"group_id"`
	Weight  float64 `koanf:"weight" json:"weight"`
}

// ExerciseMuscleLink ties an exercise to a muscle. Only primary links feed
// muscle scores.
type ExerciseMuscleLink struct {
	ExerciseID string    `koanf:"exercise_id" json:"exercise_id"`
	MuscleID   string    `koanf:"muscle_id" json:"muscle_id"`
	Intensity  Intensity `koanf:"intensity" json:"intensity"`
	Weight     float64   `koanf:"weight" json:"weight"`
}

package scoring

import "errors"

// Sentinel errors for exercise scoring.
var (
	ErrUnknownExerciseType = errors.New("unknown exercise type")
)

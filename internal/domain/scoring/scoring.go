// Package scoring turns raw performance inputs into per-exercise scores.
package scoring

import (
	"context"
	"fmt"
	"math"

	"github.com/mvanderlyn27/odyssey-backend-sub003/internal/domain/formula"
	"github.com/mvanderlyn27/odyssey-backend-sub003/internal/domain/model"
	"github.com/mvanderlyn27/odyssey-backend-sub003/pkg/logger"
)

// Option applies a configuration option to the Calculator.
type Option func(*Calculator)

// WithMaxPoints sets the score ceiling.
func WithMaxPoints(maxPoints float64) Option {
	return func(c *Calculator) {
		if maxPoints > 0 {
			c.maxPoints = maxPoints
		}
	}
}

// WithLogger sets the logger used for skipped inputs.
func WithLogger(l logger.Logger) Option {
	return func(c *Calculator) {
		if l != nil {
			c.log = l
		}
	}
}

// ExerciseScore is the score of one input together with the values that
// produced it.
type ExerciseScore struct {
	ExerciseID string
	Score      int
	Input      model.PerformanceInput
	Bodyweight float64
	// Set only for weight-based exercises with a usable estimate.
	OneRepMax *float64
	SWR       *float64
}

// BestSet converts the score into the stored best-set record.
func (s ExerciseScore) BestSet() *model.BestSet {
	return &model.BestSet{
		Weight:     s.Input.Weight,
		Reps:       s.Input.Reps,
		Duration:   s.Input.Duration,
		Bodyweight: s.Bodyweight,
		OneRepMax:  s.OneRepMax,
		SWR:        s.SWR,
		SetID:      s.Input.SetID,
	}
}

// Calculator scores performance inputs. It holds no mutable state and is
// safe for concurrent use.
type Calculator struct {
	maxPoints float64
	log       logger.Logger
}

// NewCalculator creates a calculator with configuration options.
func NewCalculator(opts ...Option) *Calculator {
	c := &Calculator{
		maxPoints: formula.DefaultMaxPoints,
		log:       logger.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// MaxPoints returns the configured score ceiling.
func (c *Calculator) MaxPoints() float64 { return c.maxPoints }

// ScoreInput scores one input against its exercise configuration.
func (c *Calculator) ScoreInput(cfg model.ExerciseConfig, profile model.UserProfile, in model.PerformanceInput) (ExerciseScore, error) {
	out := ExerciseScore{ExerciseID: cfg.ID, Input: in, Bodyweight: profile.Bodyweight}

	var eliteRatio, userRatio float64
	switch cfg.Type {
	case model.ExerciseCalisthenics:
		userRatio = float64(in.Reps)
		eliteRatio = cfg.EliteReps.For(profile.Gender)
	case model.ExerciseCardio:
		userRatio = in.Duration
		eliteRatio = cfg.EliteDuration.For(profile.Gender)
	case model.ExerciseFreeWeight, model.ExerciseWeightedBodyweight, model.ExerciseAssistedBodyweight:
		orm, ok := formula.OneRepMax(effectiveWeight(cfg.Type, in.Weight, profile.Bodyweight), in.Reps)
		if !ok {
			return out, nil
		}
		swr, ok := formula.StrengthToWeightRatio(orm, profile.Bodyweight)
		if !ok {
			return out, nil
		}
		out.OneRepMax, out.SWR = &orm, &swr
		userRatio = swr
		eliteRatio = cfg.EliteSWR.For(profile.Gender)
	default:
		return ExerciseScore{}, fmt.Errorf("%w: %q for exercise %s", ErrUnknownExerciseType, cfg.Type, cfg.ID)
	}

	out.Score = int(math.Round(formula.CurveScore(cfg.Alpha, eliteRatio, userRatio, c.maxPoints)))
	return out, nil
}

// Best scores every input and keeps the highest scoring input per exercise.
// On equal scores the earlier input wins. Inputs for unknown exercises or
// exercise types are logged and skipped.
func (c *Calculator) Best(ctx context.Context, exercises map[string]model.ExerciseConfig, profile model.UserProfile, inputs []model.PerformanceInput) map[string]ExerciseScore {
	best := make(map[string]ExerciseScore)
	for _, in := range inputs {
		cfg, ok := exercises[in.ExerciseID]
		if !ok {
			c.log.Warn(ctx, "skipping input for unknown exercise",
				logger.String("exercise_id", in.ExerciseID),
				logger.String("user_id", profile.UserID))
			continue
		}
		s, err := c.ScoreInput(cfg, profile, in)
		if err != nil {
			c.log.Warn(ctx, "skipping input", logger.String("exercise_id", in.ExerciseID), logger.Error(err))
			continue
		}
		if prev, seen := best[cfg.ID]; seen && prev.Score >= s.Score {
			continue
		}
		best[cfg.ID] = s
	}
	return best
}

func effectiveWeight(t model.ExerciseType, weight, bodyweight float64) float64 {
	switch t {
	case model.ExerciseWeightedBodyweight:
		return weight + bodyweight
	case model.ExerciseAssistedBodyweight:
		return math.Max(0, bodyweight-weight)
	default:
		return weight
	}
}

package ranking

import (
	"context"
	"time"

	"github.com/mvanderlyn27/odyssey-backend-sub003/internal/domain/model"
	"github.com/mvanderlyn27/odyssey-backend-sub003/internal/domain/scoring"
	"github.com/mvanderlyn27/odyssey-backend-sub003/pkg/logger"
)

// SkipReason explains an empty result.
type SkipReason string

const (
	SkipNone              SkipReason = ""
	SkipMissingBodyweight SkipReason = "missing_bodyweight"
)

// Result is everything one calculation produced.
type Result struct {
	Skipped  SkipReason
	Scores   map[string]scoring.ExerciseScore
	Outcomes []Outcome
	Events   []RankUp
	Payload  Payload
}

// Count returns how many outcomes have the given status.
func (r Result) Count(status Status) int {
	n := 0
	for _, o := range r.Outcomes {
		if o.Status == status {
			n++
		}
	}
	return n
}

// Option applies a configuration option to the Engine.
type Option func(*Engine)

// WithCalculator sets the exercise score calculator.
func WithCalculator(c *scoring.Calculator) Option {
	return func(e *Engine) {
		if c != nil {
			e.calc = c
		}
	}
}

// WithLogger sets the engine logger.
func WithLogger(l logger.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.log = l
		}
	}
}

// WithClock sets the time source used for last-calculated timestamps.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		if now != nil {
			e.now = now
		}
	}
}

// Engine runs one calculation pass: sync, score, aggregate, update, diff.
type Engine struct {
	calc *scoring.Calculator
	log  logger.Logger
	now  func() time.Time
}

// NewEngine creates an engine with configuration options.
func NewEngine(opts ...Option) *Engine {
	e := &Engine{
		log: logger.Nop(),
		now: func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.calc == nil {
		e.calc = scoring.NewCalculator(scoring.WithLogger(e.log))
	}
	return e
}

// Calculate runs the pass for one request against the user's stored ranks.
// ranks is not modified. A profile without bodyweight yields an empty result.
func (e *Engine) Calculate(ctx context.Context, ref *Reference, profile model.UserProfile, ranks model.UserRanks, req model.CalculationRequest) Result {
	if !profile.HasBodyweight() {
		e.log.Info(ctx, "skipping calculation without bodyweight", logger.String("user_id", req.UserID))
		return Result{Skipped: SkipMissingBodyweight}
	}

	synced, outcomes := Sync(ref.Tiers, ranks)

	scores := e.calc.Best(ctx, ref.Exercises, profile, req.Performances)
	batch := make(map[string]int, len(scores))
	for id, s := range scores {
		batch[id] = s.Score
	}
	agg := ref.Aggregate(batch, synced)

	now := e.now()
	apply := func(kind model.EntityKind, id string, score int, best *model.BestSet) {
		state, ok := synced.Get(model.EntityKey{Kind: kind, ID: id})
		if !ok {
			state = model.NewRankState(req.UserID, kind, id)
		}
		outcomes = append(outcomes, Apply(ref.Tiers, Update{
			State:   state,
			Score:   score,
			Source:  req.Source,
			Premium: profile.Premium,
			Now:     now,
			Best:    best,
		}))
	}

	if agg.OverallAffected {
		apply(model.EntityUser, "", agg.Overall, nil)
	}
	for _, id := range sortedKeys(agg.Groups) {
		apply(model.EntityMuscleGroup, id, agg.Groups[id], nil)
	}
	for _, id := range sortedKeys(agg.Muscles) {
		apply(model.EntityMuscle, id, agg.Muscles[id], nil)
	}
	for _, id := range sortedKeys(agg.Exercises) {
		apply(model.EntityExercise, id, agg.Exercises[id], scores[id].BestSet())
	}

	for _, o := range outcomes {
		if o.Status == StatusSkipped {
			e.log.Warn(ctx, "rank not updated",
				logger.String("user_id", req.UserID),
				logger.String("kind", string(o.Before.Kind)),
				logger.String("entity_id", o.Before.EntityID),
				logger.Int("score", o.Score),
				logger.Error(o.Err))
		}
	}

	return Result{
		Scores:   scores,
		Outcomes: outcomes,
		Events:   BuildRankUps(ref, profile.Premium, outcomes),
		Payload:  BuildPayload(outcomes),
	}
}

package simulate

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/mvanderlyn27/odyssey-backend-sub003/internal/adapters/repository"
	"github.com/mvanderlyn27/odyssey-backend-sub003/internal/domain/model"
	"github.com/mvanderlyn27/odyssey-backend-sub003/internal/domain/ranking"
	"github.com/mvanderlyn27/odyssey-backend-sub003/pkg/logger"
)

// Service is the part of the ranking service a simulation drives.
type Service interface {
	Calculate(ctx context.Context, req model.CalculationRequest) (ranking.Result, error)
	TopN(ctx context.Context, n int) ([]repository.Entry, error)
	Rank(ctx context.Context, userID string) (repository.Entry, error)
}

// ProfileWriter seeds user profiles before any calculation runs.
type ProfileWriter interface {
	PutProfile(p model.UserProfile)
}

// Runner executes simulations against one service.
type Runner struct {
	svc      Service
	profiles ProfileWriter
	ref      *ranking.Reference
	logger   logger.Logger
}

// NewRunner creates a Runner. l may be nil.
func NewRunner(svc Service, profiles ProfileWriter, ref *ranking.Reference, l logger.Logger) *Runner {
	if l == nil {
		l = logger.Nop()
	}
	return &Runner{svc: svc, profiles: profiles, ref: ref, logger: l}
}

// Run generates users, replays their workouts in order and checks the
// resulting leaderboard. Calculation errors are counted, not returned.
func (r *Runner) Run(ctx context.Context, cfg Config) (*Stats, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	stats := &Stats{
		Users:         cfg.Users,
		RankUpsByKind: make(map[string]int),
		StartTime:     time.Now(),
	}

	r.logger.Info(ctx, "starting ranking simulation",
		logger.Int("users", cfg.Users),
		logger.Int("workouts", cfg.Workouts),
		logger.Int("workers", cfg.Workers),
		logger.Any("seed", cfg.Seed))

	// Step 1: Generate athletes and their workouts up front so the run is
	// reproducible regardless of goroutine scheduling.
	gen := NewGenerator(cfg.Seed, r.ref.Exercises)
	athletes := gen.Athletes(cfg.Users, cfg.PremiumRatio)
	plans := make([][]model.CalculationRequest, len(athletes))
	for i, a := range athletes {
		r.profiles.PutProfile(a.Profile)
		plans[i] = make([]model.CalculationRequest, cfg.Workouts)
		for w := range cfg.Workouts {
			plans[i][w] = model.CalculationRequest{
				RequestID:    fmt.Sprintf("%s-w%d", a.Profile.UserID, w),
				UserID:       a.Profile.UserID,
				Source:       model.SourceWorkout,
				Performances: gen.Workout(a, w),
			}
		}
	}

	// Step 2: Replay workouts, one goroutine per user at a time.
	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(cfg.Workers)
	for _, plan := range plans {
		g.Go(func() error {
			for _, req := range plan {
				if err := gctx.Err(); err != nil {
					return err
				}
				cctx, cancel := context.WithTimeout(gctx, cfg.Timeout)
				res, err := r.svc.Calculate(cctx, req)
				cancel()

				mu.Lock()
				stats.record(res, err)
				mu.Unlock()
				if err != nil {
					r.logger.Debug(gctx, "calculation failed",
						logger.String("request_id", req.RequestID),
						logger.Error(err))
				}
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return stats, fmt.Errorf("replay workouts: %w", err)
	}

	// Step 3: Read the leaderboard and check it against per-user ranks.
	board, err := r.svc.TopN(ctx, cfg.TopN)
	if err != nil {
		return stats, fmt.Errorf("read leaderboard: %w", err)
	}
	for _, e := range board {
		stats.Leaderboard = append(stats.Leaderboard, LeaderboardRow{
			Rank:   e.Rank,
			UserID: e.UserID,
			Score:  e.Score,
			Tier:   r.ref.Tiers.TierName(e.Tier.TierID),
		})
	}
	stats.Inconsistencies = r.verify(ctx, board, athletes)

	stats.Duration = time.Since(stats.StartTime)
	r.logger.Info(ctx, "ranking simulation finished",
		logger.Int("calculations", stats.Calculations),
		logger.Int("skipped", stats.Skipped),
		logger.Int("failed", stats.Failed),
		logger.Int("rankUps", stats.RankUps),
		logger.Int("inconsistencies", len(stats.Inconsistencies)),
		logger.Duration("took", stats.Duration))
	return stats, nil
}

func (s *Stats) record(res ranking.Result, err error) {
	if err != nil {
		s.Failed++
		return
	}
	s.Calculations++
	if res.Skipped != ranking.SkipNone {
		s.Skipped++
		return
	}
	s.RankUps += len(res.Events)
	for _, e := range res.Events {
		s.RankUpsByKind[string(e.Kind)]++
	}
	s.Frozen += res.Count(ranking.StatusFrozen)
	s.RowsPersisted += res.Payload.Len()
}

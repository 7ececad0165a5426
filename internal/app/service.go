// Package service wires the ranking engine to its stores, queue and feed.
package service

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"

	"github.com/mvanderlyn27/odyssey-backend-sub003/internal/adapters/mq/queue"
	"github.com/mvanderlyn27/odyssey-backend-sub003/internal/adapters/mq/worker"
	"github.com/mvanderlyn27/odyssey-backend-sub003/internal/adapters/repository"
	"github.com/mvanderlyn27/odyssey-backend-sub003/internal/domain/dedupe"
	"github.com/mvanderlyn27/odyssey-backend-sub003/internal/domain/model"
	"github.com/mvanderlyn27/odyssey-backend-sub003/internal/domain/ranking"
	"github.com/mvanderlyn27/odyssey-backend-sub003/pkg/logger"
	"github.com/mvanderlyn27/odyssey-backend-sub003/pkg/metrics"
	"github.com/mvanderlyn27/odyssey-backend-sub003/pkg/tracing"
)

// Publisher receives the rank-up events of a persisted calculation.
type Publisher interface {
	Publish(ctx context.Context, events []ranking.RankUp) error
}

// Service runs calculations: fetch profile and ranks, compute, persist, publish.
type Service struct {
	mu sync.RWMutex

	// Collaborators
	ref         *ranking.Reference
	store       repository.Store
	profiles    repository.ProfileSource
	leaderboard repository.Leaderboard
	publisher   Publisher
	engine      *ranking.Engine

	// Runtime components
	deduper dedupe.Deduper
	queue   *queue.Sharded
	pool    *worker.Pool

	// Configuration
	workerCount int
	queueSize   int
	dedupeSize  int
	timeout     time.Duration

	started bool
	logger  logger.Logger
}

var _ worker.Processor = (*Service)(nil)

// New constructs a Service. Without WithStore it keeps everything in memory.
func New(opts ...Option) *Service {
	s := &Service{
		workerCount: runtime.NumCPU(),
		queueSize:   1024,
		dedupeSize:  100_000,
		timeout:     5 * time.Second,
		logger:      logger.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}

	if s.store == nil {
		s.store = repository.NewMemoryStore()
	}
	if s.profiles == nil {
		if p, ok := s.store.(repository.ProfileSource); ok {
			s.profiles = p
		}
	}
	if lb, ok := s.store.(repository.Leaderboard); ok {
		s.leaderboard = lb
	}
	if s.engine == nil {
		s.engine = ranking.NewEngine(ranking.WithLogger(s.logger.Named("engine")))
	}
	s.deduper = dedupe.NewInMemoryDeduper(dedupe.WithMaxSize(s.dedupeSize))
	return s
}

// Start starts the worker pool.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}
	if s.ref == nil {
		return ErrNoReference
	}
	if s.profiles == nil {
		return fmt.Errorf("%w: no profile source", ErrNotStarted)
	}

	s.logger.Info(ctx, "starting ranking service...")

	s.queue = queue.NewSharded(s.workerCount, queue.WithCapacity(s.queueSize))
	s.pool = worker.NewPool(s.queue, s, s.logger)
	// Workers outlive the start context; Stop drains and ends them.
	s.pool.Start(context.WithoutCancel(ctx))

	exercises, muscles, groups := s.ref.Counts()
	s.started = true
	s.logger.Info(ctx, "ranking service started",
		logger.Int("workers", s.workerCount),
		logger.Int("queueSize", s.queueSize),
		logger.Int("dedupeSize", s.dedupeSize),
		logger.Int("exercises", exercises),
		logger.Int("muscles", muscles),
		logger.Int("muscleGroups", groups),
	)
	return nil
}

// Stop drains queued calculations and stops the workers.
func (s *Service) Stop(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return nil
	}
	s.logger.Info(ctx, "stopping ranking service...")
	err := s.pool.Shutdown(ctx)
	s.started = false
	s.logger.Info(ctx, "ranking service stopped")
	return err
}

// Submit queues a calculation and returns its request id without waiting.
func (s *Service) Submit(ctx context.Context, req model.CalculationRequest) (string, error) {
	req, err := s.admit(ctx, req)
	if err != nil {
		return req.RequestID, err
	}
	return req.RequestID, s.enqueue(ctx, queue.Job{Request: req})
}

// Calculate queues a calculation and waits for its result.
func (s *Service) Calculate(ctx context.Context, req model.CalculationRequest) (ranking.Result, error) {
	req, err := s.admit(ctx, req)
	if err != nil {
		return ranking.Result{}, err
	}

	reply := make(chan queue.Reply, 1)
	if err := s.enqueue(ctx, queue.Job{Request: req, Reply: reply}); err != nil {
		return ranking.Result{}, err
	}

	select {
	case r := <-reply:
		return r.Result, r.Err
	case <-ctx.Done():
		return ranking.Result{}, ctx.Err()
	}
}

// admit validates the request, assigns an id if needed and records it as seen.
func (s *Service) admit(ctx context.Context, req model.CalculationRequest) (model.CalculationRequest, error) {
	if req.UserID == "" {
		return req, fmt.Errorf("%w: missing user id", ErrInvalidRequest)
	}
	if !req.Source.Valid() {
		return req, fmt.Errorf("%w: unknown source %q", ErrInvalidRequest, req.Source)
	}
	if req.RequestID == "" {
		req.RequestID = uuid.NewString()
	}
	if s.deduper.SeenAndRecord(ctx, req.RequestID) {
		metrics.RecordDuplicateRequest()
		s.logger.Debug(ctx, "duplicate request, skipping",
			logger.String("request_id", req.RequestID),
			logger.String("user_id", req.UserID))
		return req, ErrDuplicate
	}
	return req, nil
}

func (s *Service) enqueue(ctx context.Context, job queue.Job) error {
	s.mu.RLock()
	started, q := s.started, s.queue
	s.mu.RUnlock()

	var err error
	switch {
	case !started:
		err = ErrNotStarted
	default:
		err = q.Enqueue(ctx, job)
		if errors.Is(err, queue.ErrFull) {
			err = fmt.Errorf("%w: %w", ErrBackpressure, err)
		} else if errors.Is(err, queue.ErrClosed) {
			err = fmt.Errorf("%w: %w", ErrNotStarted, err)
		}
	}
	if err != nil {
		s.deduper.Unrecord(ctx, job.Request.RequestID)
	}
	return err
}

// Process runs one calculation end to end. Workers call it; it may also be
// called directly when the caller already serializes runs per user.
func (s *Service) Process(ctx context.Context, req model.CalculationRequest) (res ranking.Result, err error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	ctx, span := tracing.Start(ctx, "service.Process")
	start := time.Now()
	outcome := "ok"
	defer func() {
		switch {
		case errors.Is(err, context.DeadlineExceeded):
			outcome = "timeout"
		case err != nil:
			outcome = "error"
		}
		metrics.RecordCalculation(string(req.Source), outcome, time.Since(start))
		tracing.EndSpanWithErrCheck(span, err)
		if err != nil {
			// A failed run may be retried with the same request id.
			s.deduper.Unrecord(context.WithoutCancel(ctx), req.RequestID)
		}
	}()
	span.SetAttributes(
		attribute.String("user.id", req.UserID),
		attribute.String("calculation.source", string(req.Source)),
		attribute.Int("calculation.performances", len(req.Performances)),
	)

	profile, err := s.profiles.Profile(ctx, req.UserID)
	switch {
	case errors.Is(err, repository.ErrNotFound):
		profile = model.UserProfile{UserID: req.UserID}
	case err != nil:
		return ranking.Result{}, fmt.Errorf("load profile: %w", err)
	}

	ranks, err := s.store.LoadRanks(ctx, req.UserID)
	if err != nil {
		return ranking.Result{}, fmt.Errorf("load ranks: %w", err)
	}

	res = s.engine.Calculate(ctx, s.ref, profile, ranks, req)
	if res.Skipped != ranking.SkipNone {
		outcome = "skipped"
		return res, nil
	}
	for _, st := range []ranking.Status{
		ranking.StatusChanged, ranking.StatusUnchanged, ranking.StatusFrozen,
		ranking.StatusSkipped, ranking.StatusSynced,
	} {
		metrics.RecordEntityOutcome(string(st), res.Count(st))
	}

	if err = ctx.Err(); err != nil {
		return ranking.Result{}, fmt.Errorf("calculation aborted before write: %w", err)
	}
	if err = s.store.SaveRanks(ctx, req.UserID, res.Payload); err != nil {
		return ranking.Result{}, err
	}

	if s.publisher != nil && len(res.Events) > 0 {
		if perr := s.publisher.Publish(ctx, res.Events); perr != nil {
			s.logger.Error(ctx, "rank-up publish failed",
				logger.String("request_id", req.RequestID),
				logger.Int("events", len(res.Events)),
				logger.Error(perr))
		}
	}

	s.logger.Debug(ctx, "calculation done",
		logger.String("request_id", req.RequestID),
		logger.String("user_id", req.UserID),
		logger.Int("rows", res.Payload.Len()),
		logger.Int("rankUps", len(res.Events)),
		logger.Duration("took", time.Since(start)))
	return res, nil
}

// TopN returns the top n users by leaderboard score.
func (s *Service) TopN(ctx context.Context, n int) ([]repository.Entry, error) {
	if s.leaderboard == nil {
		return nil, ErrLeaderboardAbsent
	}
	return s.leaderboard.TopN(ctx, n)
}

// Rank returns the leaderboard position of a user.
func (s *Service) Rank(ctx context.Context, userID string) (repository.Entry, error) {
	if s.leaderboard == nil {
		return repository.Entry{}, ErrLeaderboardAbsent
	}
	return s.leaderboard.Rank(ctx, userID)
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats(ctx context.Context) map[string]any {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := map[string]any{
		"started":     s.started,
		"workerCount": s.workerCount,
		"queueSize":   s.queueSize,
		"dedupeSize":  s.dedupeSize,
		"seenIDs":     s.deduper.Size(),
	}
	if s.started {
		stats["queueLength"] = s.queue.Len(ctx)
	}
	if s.leaderboard != nil {
		users := s.leaderboard.Count(ctx)
		stats["rankedUsers"] = users
		metrics.UpdateLeaderboardUsers(users)
	}
	return stats
}

// Package worker runs calculation jobs off the queue.
package worker

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/mvanderlyn27/odyssey-backend-sub003/internal/adapters/mq/queue"
	"github.com/mvanderlyn27/odyssey-backend-sub003/internal/domain/model"
	"github.com/mvanderlyn27/odyssey-backend-sub003/internal/domain/ranking"
	"github.com/mvanderlyn27/odyssey-backend-sub003/pkg/logger"
	"github.com/mvanderlyn27/odyssey-backend-sub003/pkg/metrics"
)

const poolShutdownTimeout = 30 * time.Second

// Processor runs one calculation end to end.
type Processor interface {
	Process(ctx context.Context, req model.CalculationRequest) (ranking.Result, error)
}

// Queue defines how workers receive jobs.
type Queue interface {
	Dequeue(ctx context.Context) <-chan queue.Job
	Len(ctx context.Context) int
}

// Worker processes jobs using the provided processor.
type Worker interface {
	// Run starts the worker loop until ctx is canceled, Shutdown is called
	// or the queue is closed and drained.
	Run(ctx context.Context)

	// Shutdown stops the worker without draining.
	Shutdown(ctx context.Context) error
}

// InMemoryWorker consumes one queue serially.
type InMemoryWorker struct {
	queue     Queue
	processor Processor
	name      string
	shard     int

	shutdown chan struct{}
	stopOnce sync.Once
	done     chan struct{}

	logger logger.Logger
}

// NewInMemoryWorker creates a new worker with configuration options.
func NewInMemoryWorker(q Queue, processor Processor, opts ...Option) *InMemoryWorker {
	w := &InMemoryWorker{
		queue:     q,
		processor: processor,
		name:      "worker",
		shutdown:  make(chan struct{}),
		done:      make(chan struct{}),
		logger:    logger.Nop(),
	}
	for _, opt := range opts {
		opt(w)
	}
	w.logger = w.logger.Named(w.name)
	return w
}

// Run starts the worker loop.
func (w *InMemoryWorker) Run(ctx context.Context) {
	defer close(w.done)

	jobs := w.queue.Dequeue(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.shutdown:
			return
		case job, ok := <-jobs:
			if !ok {
				return
			}
			w.processJob(ctx, job)
		}
	}
}

// Done is closed when Run returns.
func (w *InMemoryWorker) Done() <-chan struct{} { return w.done }

// Shutdown signals the worker to stop and waits for it.
func (w *InMemoryWorker) Shutdown(ctx context.Context) error {
	w.stop()

	select {
	case <-w.done:
		return nil
	case <-ctx.Done():
		w.logger.Warn(ctx, "shutdown timed out")
		return fmt.Errorf("shutdown timed out: %w", ctx.Err())
	}
}

func (w *InMemoryWorker) stop() {
	w.stopOnce.Do(func() { close(w.shutdown) })
}

func (w *InMemoryWorker) processJob(ctx context.Context, job queue.Job) {
	start := time.Now()
	res, err := w.processor.Process(ctx, job.Request)
	metrics.RecordWorkerJob(time.Since(start))
	metrics.UpdateQueueDepth(w.shard, w.queue.Len(ctx))

	if err != nil {
		w.logger.Error(ctx, "calculation failed",
			logger.String("request_id", job.Request.RequestID),
			logger.String("user_id", job.Request.UserID),
			logger.Duration("queued", start.Sub(job.EnqueuedAt)),
			logger.Error(err),
		)
	}
	if job.Reply != nil {
		job.Reply <- queue.Reply{Result: res, Err: err}
	}
}

// Pool runs one worker per queue shard.
type Pool struct {
	workers []*InMemoryWorker
	queue   *queue.Sharded
	logger  logger.Logger
}

// NewPool creates a worker for every shard of q.
func NewPool(q *queue.Sharded, processor Processor, l logger.Logger) *Pool {
	if l == nil {
		l = logger.Nop()
	}
	p := &Pool{
		workers: make([]*InMemoryWorker, q.Shards()),
		queue:   q,
		logger:  l.Named("worker-pool"),
	}
	for i := range p.workers {
		p.workers[i] = NewInMemoryWorker(
			q.Shard(i),
			processor,
			WithName("worker-"+strconv.Itoa(i)),
			WithShard(i),
			WithLogger(l),
		)
	}
	return p
}

// Size returns the number of workers.
func (p *Pool) Size() int { return len(p.workers) }

// Start starts all workers in the pool.
func (p *Pool) Start(ctx context.Context) {
	for _, w := range p.workers {
		go w.Run(ctx)
	}
	metrics.UpdateWorkerCount(len(p.workers))
}

// Shutdown closes the queue and waits for workers to drain it. Workers
// still busy when ctx or the pool timeout expires are told to stop.
func (p *Pool) Shutdown(ctx context.Context) error {
	if err := p.queue.Close(); err != nil {
		p.logger.Error(ctx, "error closing queue", logger.Error(err))
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, poolShutdownTimeout)
	defer cancel()

	var timedOut bool
	for i, w := range p.workers {
		select {
		case <-w.Done():
		case <-shutdownCtx.Done():
			timedOut = true
			p.logger.Warn(ctx, "worker drain timed out", logger.Int("worker_id", i))
			w.stop()
		}
	}
	metrics.UpdateWorkerCount(0)
	if timedOut {
		return fmt.Errorf("pool shutdown: %w", shutdownCtx.Err())
	}
	return nil
}

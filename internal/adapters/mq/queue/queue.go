// Package queue holds pending calculation jobs.
//
// Jobs are sharded by user id so that every calculation of one user is
// consumed by the same worker, in submission order.
package queue

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/cespare/xxhash/v2"

	"github.com/mvanderlyn27/odyssey-backend-sub003/internal/domain/model"
	"github.com/mvanderlyn27/odyssey-backend-sub003/internal/domain/ranking"
	"github.com/mvanderlyn27/odyssey-backend-sub003/pkg/metrics"
)

const defaultQueueCapacity = 1024

// Reply carries the outcome of a processed job back to a waiting caller.
type Reply struct {
	Result ranking.Result
	Err    error
}

// Job is one calculation request waiting for a worker.
type Job struct {
	Request    model.CalculationRequest
	EnqueuedAt time.Time
	// Reply, when set, receives exactly one value. It must be buffered.
	Reply chan<- Reply
}

// Queue provides non-blocking enqueue and channel-based dequeue semantics.
type Queue interface {
	// Enqueue adds a job. Returns ErrFull or ErrClosed when the job was not queued.
	Enqueue(ctx context.Context, job Job) error

	// Dequeue returns the channel jobs are delivered on. It is closed after
	// Close once every pending job has been received.
	Dequeue(ctx context.Context) <-chan Job

	// Len returns the current number of queued jobs.
	Len(ctx context.Context) int

	Close() error
	IsClosed() bool
}

// InMemoryQueue implements Queue using a buffered channel.
type InMemoryQueue struct {
	jobs     chan Job
	capacity int
	shard    int
	mu       sync.RWMutex
	closed   bool
}

var _ Queue = (*InMemoryQueue)(nil)

// NewInMemoryQueue creates a new in-memory queue with configuration options.
func NewInMemoryQueue(opts ...Option) *InMemoryQueue {
	q := &InMemoryQueue{capacity: defaultQueueCapacity}
	for _, opt := range opts {
		opt(q)
	}
	q.jobs = make(chan Job, q.capacity)
	metrics.UpdateQueueDepth(q.shard, 0)
	return q
}

// Enqueue adds a job to the queue without blocking.
func (q *InMemoryQueue) Enqueue(ctx context.Context, job Job) error {
	q.mu.RLock()
	defer q.mu.RUnlock()

	if q.closed {
		metrics.RecordEnqueueError("closed")
		return ErrClosed
	}
	if job.EnqueuedAt.IsZero() {
		job.EnqueuedAt = time.Now()
	}

	select {
	case q.jobs <- job:
		metrics.UpdateQueueDepth(q.shard, len(q.jobs))
		return nil
	case <-ctx.Done():
		metrics.RecordEnqueueError("context_cancelled")
		return ctx.Err()
	default:
		metrics.RecordEnqueueError("full")
		return ErrFull
	}
}

// Dequeue returns the job channel.
func (q *InMemoryQueue) Dequeue(_ context.Context) <-chan Job {
	return q.jobs
}

// Len returns the current number of queued jobs and refreshes the depth gauge.
func (q *InMemoryQueue) Len(_ context.Context) int {
	size := len(q.jobs)
	metrics.UpdateQueueDepth(q.shard, size)
	return size
}

// Close stops accepting jobs. Pending jobs stay readable.
func (q *InMemoryQueue) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return nil
	}
	close(q.jobs)
	q.closed = true
	return nil
}

// IsClosed returns true if the queue has been closed.
func (q *InMemoryQueue) IsClosed() bool {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return q.closed
}

// Sharded routes jobs to one of n queues by a hash of the user id.
type Sharded struct {
	shards []*InMemoryQueue
}

// NewSharded creates n shards; opts apply to each shard.
func NewSharded(n int, opts ...Option) *Sharded {
	if n < 1 {
		n = 1
	}
	s := &Sharded{shards: make([]*InMemoryQueue, n)}
	for i := range s.shards {
		s.shards[i] = NewInMemoryQueue(append(opts, WithShard(i))...)
	}
	return s
}

// ShardFor returns the shard index owning userID.
func (s *Sharded) ShardFor(userID string) int {
	return int(xxhash.Sum64String(userID) % uint64(len(s.shards)))
}

// Shards returns the number of shards.
func (s *Sharded) Shards() int { return len(s.shards) }

// Shard returns shard i.
func (s *Sharded) Shard(i int) *InMemoryQueue { return s.shards[i] }

// Enqueue routes the job to its user's shard.
func (s *Sharded) Enqueue(ctx context.Context, job Job) error {
	return s.shards[s.ShardFor(job.Request.UserID)].Enqueue(ctx, job)
}

// Len returns the pending jobs across all shards.
func (s *Sharded) Len(ctx context.Context) int {
	total := 0
	for _, q := range s.shards {
		total += q.Len(ctx)
	}
	return total
}

// Close closes every shard.
func (s *Sharded) Close() error {
	var errs []error
	for _, q := range s.shards {
		errs = append(errs, q.Close())
	}
	return errors.Join(errs...)
}

// IsClosed reports whether the shards have been closed.
func (s *Sharded) IsClosed() bool {
	return s.shards[0].IsClosed()
}

package queue

// Option applies a configuration option to the InMemoryQueue.
type Option func(*InMemoryQueue)

// WithCapacity sets the maximum number of pending jobs.
func WithCapacity(capacity int) Option {
	return func(q *InMemoryQueue) {
		if capacity > 0 {
			q.capacity = capacity
		}
	}
}

// WithShard sets the shard index reported in metrics.
func WithShard(shard int) Option {
	return func(q *InMemoryQueue) {
		if shard >= 0 {
			q.shard = shard
		}
	}
}

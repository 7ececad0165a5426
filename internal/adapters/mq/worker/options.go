package worker

import (
	"github.com/mvanderlyn27/odyssey-backend-sub003/pkg/logger"
)

// Option applies a configuration option to the InMemoryWorker.
type Option func(*InMemoryWorker)

// WithName sets the worker name for identification and logging.
func WithName(name string) Option {
	return func(w *InMemoryWorker) {
		if name != "" {
			w.name = name
		}
	}
}

// WithLogger sets a custom logger for the worker.
func WithLogger(l logger.Logger) Option {
	return func(w *InMemoryWorker) {
		if l != nil {
			w.logger = l
		}
	}
}

// WithShard sets the queue shard the worker reports metrics for.
func WithShard(shard int) Option {
	return func(w *InMemoryWorker) {
		w.shard = shard
	}
}

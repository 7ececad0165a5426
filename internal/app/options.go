package service

import (
	"time"

	"github.com/mvanderlyn27/odyssey-backend-sub003/internal/adapters/repository"
	"github.com/mvanderlyn27/odyssey-backend-sub003/internal/domain/ranking"
	"github.com/mvanderlyn27/odyssey-backend-sub003/pkg/logger"
)

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithReference sets the reference catalog used by every calculation.
func WithReference(ref *ranking.Reference) Option {
	return func(s *Service) {
		s.ref = ref
	}
}

// WithStore sets the rank store. A store that also implements
// repository.ProfileSource or repository.Leaderboard is used for those too,
// unless they were set explicitly.
func WithStore(store repository.Store) Option {
	return func(s *Service) {
		if store != nil {
			s.store = store
		}
	}
}

// WithProfiles sets the user profile source.
func WithProfiles(p repository.ProfileSource) Option {
	return func(s *Service) {
		if p != nil {
			s.profiles = p
		}
	}
}

// WithPublisher sets where rank-up events are sent.
func WithPublisher(p Publisher) Option {
	return func(s *Service) {
		if p != nil {
			s.publisher = p
		}
	}
}

// WithEngine overrides the calculation engine.
func WithEngine(e *ranking.Engine) Option {
	return func(s *Service) {
		if e != nil {
			s.engine = e
		}
	}
}

// WithWorkerCount sets the number of workers, which is also the number of queue shards.
func WithWorkerCount(count int) Option {
	return func(s *Service) {
		if count > 0 {
			s.workerCount = count
		}
	}
}

// WithQueueSize sets the capacity of each queue shard.
func WithQueueSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.queueSize = size
		}
	}
}

// WithDedupeSize sets the size of the request id cache.
func WithDedupeSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.dedupeSize = size
		}
	}
}

// WithCalculationTimeout bounds one calculation including its write.
func WithCalculationTimeout(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.timeout = d
		}
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

package repository

import (
	"github.com/mvanderlyn27/odyssey-backend-sub003/internal/domain/model"
	"github.com/mvanderlyn27/odyssey-backend-sub003/pkg/logger"
)

// Option applies a configuration option to the MemoryStore.
type Option func(*MemoryStore)

// WithProfiles seeds user profiles.
func WithProfiles(profiles ...model.UserProfile) Option {
	return func(s *MemoryStore) {
		for _, p := range profiles {
			s.profiles[p.UserID] = p
		}
	}
}

// BunOption applies a configuration option to the BunStore.
type BunOption func(*BunStore)

// WithBunLogger sets the logger used for schema and write diagnostics.
func WithBunLogger(l logger.Logger) BunOption {
	return func(s *BunStore) {
		if l != nil {
			s.logger = l
		}
	}
}

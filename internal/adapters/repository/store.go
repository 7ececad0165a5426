// Package repository is the persistence boundary of the ranking engine:
// stored rank states, user profiles and the user leaderboard.
package repository

import (
	"context"

	"github.com/mvanderlyn27/odyssey-backend-sub003/internal/domain/model"
	"github.com/mvanderlyn27/odyssey-backend-sub003/internal/domain/ranking"
)

// Store provides read/write access to a user's rank states.
type Store interface {
	// LoadRanks returns every stored rank of the user. A user with no rows
	// gets an empty rank set, not an error.
	LoadRanks(ctx context.Context, userID string) (model.UserRanks, error)

	// SaveRanks upserts the payload rows, keyed by (user, entity). Failures
	// wrap ErrPersist and leave no partial write behind.
	SaveRanks(ctx context.Context, userID string, payload ranking.Payload) error
}

// ProfileSource reads the scoring-relevant slice of a user's profile.
type ProfileSource interface {
	// Profile returns ErrNotFound for unknown users.
	Profile(ctx context.Context, userID string) (model.UserProfile, error)
}

// Entry represents a user leaderboard row.
type Entry struct {
	Rank   int
	UserID string
	Score  int
	Tier   model.TierRef
}

// Leaderboard ranks users by their user-level leaderboard score.
type Leaderboard interface {
	// TopN returns the top-N entries ordered by score desc, then user id.
	TopN(ctx context.Context, n int) ([]Entry, error)

	// Rank returns ErrNotFound if the user has no user-level rank.
	Rank(ctx context.Context, userID string) (Entry, error)

	Count(ctx context.Context) int
}

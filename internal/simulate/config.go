// Package simulate drives the ranking service with synthetic users and workouts.
package simulate

import (
	"errors"
	"fmt"
	"time"
)

// ErrInvalidConfig is returned for unusable simulation settings.
var ErrInvalidConfig = errors.New("invalid simulation config")

// Config holds configuration for a simulation run.
type Config struct {
	Users        int           // Number of synthetic users
	Workouts     int           // Workouts per user
	Workers      int           // Users simulated concurrently
	Seed         int64         // Random seed; equal seeds generate equal runs
	PremiumRatio float64       // Share of users with a premium account
	TopN         int           // Leaderboard entries to report
	Timeout      time.Duration // Deadline for one calculation
}

// DefaultConfig returns a small run suitable for a laptop.
func DefaultConfig() Config {
	return Config{
		Users:        200,
		Workouts:     8,
		Workers:      8,
		Seed:         1,
		PremiumRatio: 0.2,
		TopN:         10,
		Timeout:      5 * time.Second,
	}
}

// Validate checks the config for usable values.
func (c Config) Validate() error {
	switch {
	case c.Users < 1:
		return fmt.Errorf("%w: users must be positive", ErrInvalidConfig)
	case c.Workouts < 1:
		return fmt.Errorf("%w: workouts must be positive", ErrInvalidConfig)
	case c.Workers < 1:
		return fmt.Errorf("%w: workers must be positive", ErrInvalidConfig)
	case c.PremiumRatio < 0 || c.PremiumRatio > 1:
		return fmt.Errorf("%w: premium ratio must be within [0,1]", ErrInvalidConfig)
	case c.TopN < 1:
		return fmt.Errorf("%w: top must be positive", ErrInvalidConfig)
	case c.Timeout <= 0:
		return fmt.Errorf("%w: timeout must be positive", ErrInvalidConfig)
	}
	return nil
}

// Stats holds simulation statistics.
type Stats struct {
	Users           int
	Calculations    int
	Skipped         int
	Failed          int
	RankUps         int
	RankUpsByKind   map[string]int
	Frozen          int
	RowsPersisted   int
	StartTime       time.Time
	Duration        time.Duration
	Leaderboard     []LeaderboardRow
	Inconsistencies []string
}

// LeaderboardRow is one reported leaderboard line.
type LeaderboardRow struct {
	Rank   int
	UserID string
	Score  int
	Tier   string
}

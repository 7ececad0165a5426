package repository

import "errors"

// Sentinel kinds for store errors.
var (
	ErrNotFound     = errors.New("not found")
	ErrPersist      = errors.New("persist ranks failed")
	ErrInvalidLimit = errors.New("invalid leaderboard limit")
)

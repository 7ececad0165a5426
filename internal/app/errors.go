package service

import "errors"

// Sentinel kinds for service errors.
var (
	ErrNotStarted        = errors.New("service not started")
	ErrBackpressure      = errors.New("calculation queue full")
	ErrDuplicate         = errors.New("duplicate calculation request")
	ErrInvalidRequest    = errors.New("invalid calculation request")
	ErrNoReference       = errors.New("reference catalog not configured")
	ErrLeaderboardAbsent = errors.New("store does not serve a leaderboard")
)

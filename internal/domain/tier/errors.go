package tier

import "errors"

// Sentinel errors for tier resolution.
var (
	ErrMalformedTable = errors.New("malformed tier table")
	ErrNoTier         = errors.New("score below lowest tier")
)

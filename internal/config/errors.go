package config

import "errors"

var (
	// ErrInvalidConfig marks a setting that fails validation.
	ErrInvalidConfig = errors.New("invalid ranking config")
	// ErrLoadConfig marks a config file or environment that could not be read.
	ErrLoadConfig = errors.New("load ranking config")
)

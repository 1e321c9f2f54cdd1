package config

import "errors"

var (
	// ErrInvalidConfig wraps a field that failed Validate.
	ErrInvalidConfig = errors.New("invalid config")
	// ErrLoadConfig wraps a file, parse or environment failure in Load.
	ErrLoadConfig = errors.New("load config failed")
)

package simulate

import "errors"

var (
	// ErrInvalidConfig reports simulation sizes that cannot produce a history.
	ErrInvalidConfig = errors.New("invalid simulation config")
	// ErrMismatch reports standings that differ after a rebuild.
	ErrMismatch = errors.New("rebuilt standings differ")
)

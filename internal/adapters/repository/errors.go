package repository

import "errors"

// Sentinel kinds for repository errors.
var (
	ErrNotFound = errors.New("entity not found")
	ErrStorage  = errors.New("storage failure")
	ErrClosed   = errors.New("store closed")

	// Ledger invariant violations.
	ErrInvalidWinner    = errors.New("winner must be one of the two players")
	ErrSamePlayer       = errors.New("a player cannot play against themselves")
	ErrUnknownReference = errors.New("unknown entity reference")
	ErrMissingDate      = errors.New("match date is required")

	// ErrLedgerUnavailable reports a missing or corrupt ledger file.
	ErrLedgerUnavailable = errors.New("ledger unavailable")
)

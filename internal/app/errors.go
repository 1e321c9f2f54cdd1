package service

import (
	"errors"
)

// Sentinel kinds for service errors.
var (
	// ErrNotStarted is returned by every operation before Start or after Stop.
	ErrNotStarted = errors.New("service not started")

	// ErrLedgerUnreadable means there is nothing to rebuild from: the ledger
	// is missing or corrupt. Existing state is left untouched.
	ErrLedgerUnreadable = errors.New("ledger unreadable")

	// ErrReconciliation means a rebuild was attempted and failed.
	ErrReconciliation = errors.New("reconciliation failed")

	// ErrPurgeUnsupported is returned for any attempt to delete history.
	ErrPurgeUnsupported = errors.New("purging match history is not supported")

	// ErrImport wraps a records import that stopped at a bad row.
	ErrImport = errors.New("records import failed")
)

package repository

import (
	"github.com/okian/grudgematch/pkg/logger"
)

type settings struct {
	logger   logger.Logger
	backup   bool
	existing bool
}

func newSettings(opts []Option) settings {
	s := settings{backup: true}
	for _, opt := range opts {
		opt(&s)
	}
	if s.logger == nil {
		s.logger = logger.Get()
	}
	return s
}

// Option applies a configuration option to a store.
type Option func(*settings)

// WithLogger sets the logger used for recovery and mutation events.
func WithLogger(l logger.Logger) Option {
	return func(s *settings) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithBackup controls whether a backup copy is refreshed each time a store
// opens cleanly. Enabled by default.
func WithBackup(enabled bool) Option {
	return func(s *settings) {
		s.backup = enabled
	}
}

// WithExistingState tells the ledger that the data directory already holds
// other state. A ledger file missing together with its backup is then
// reported as lost instead of being recreated empty.
func WithExistingState(existing bool) Option {
	return func(s *settings) {
		s.existing = existing
	}
}

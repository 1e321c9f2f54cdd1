// Package simulate fills a data directory with a synthetic but valid match
// history and checks that rebuilding from the ledger alone reproduces the
// standings computed while recording.
package simulate

import (
	"fmt"
	"time"
)

// Default configuration values.
const (
	DefaultPlayers = 16
	DefaultGames   = 4
	DefaultMatches = 500
	DefaultWorkers = 4
)

// Config holds configuration for a simulation run.
type Config struct {
	Seed    uint64 // Seed for names and match outcomes
	Players int    // Number of players to create
	Games   int    // Number of games to create
	Matches int    // Number of matches to record
	Workers int    // Number of concurrent match generators
	Days    int    // Matches are spread over this many days before Start
	Start   time.Time
}

// NewConfig returns a Config with default sizes.
func NewConfig(seed uint64) *Config {
	return &Config{
		Seed:    seed,
		Players: DefaultPlayers,
		Games:   DefaultGames,
		Matches: DefaultMatches,
		Workers: DefaultWorkers,
		Days:    365,
		Start:   time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC),
	}
}

// Validate checks that the sizes describe a playable history.
func (c *Config) Validate() error {
	switch {
	case c.Players < 2:
		return fmt.Errorf("%w: need at least 2 players, got %d", ErrInvalidConfig, c.Players)
	case c.Games < 1:
		return fmt.Errorf("%w: need at least 1 game, got %d", ErrInvalidConfig, c.Games)
	case c.Matches < 0:
		return fmt.Errorf("%w: negative match count %d", ErrInvalidConfig, c.Matches)
	case c.Workers < 1:
		return fmt.Errorf("%w: need at least 1 worker, got %d", ErrInvalidConfig, c.Workers)
	case c.Days < 1:
		return fmt.Errorf("%w: need at least 1 day, got %d", ErrInvalidConfig, c.Days)
	}
	return nil
}

// Stats holds counters of a simulation run.
type Stats struct {
	PlayersCreated  int           `json:"players_created"`
	GamesCreated    int           `json:"games_created"`
	MatchesRecorded int           `json:"matches_recorded"`
	Restored        int           `json:"restored"`
	StartTime       time.Time     `json:"start_time"`
	EndTime         time.Time     `json:"end_time"`
	Duration        time.Duration `json:"duration"`
}

// Report is the outcome of a simulation run.
type Report struct {
	Stats
	Seed       uint64   `json:"seed"`
	Consistent bool     `json:"consistent"`
	Mismatches []string `json:"mismatches,omitempty"`
}

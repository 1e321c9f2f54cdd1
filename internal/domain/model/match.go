package model

import (
	"fmt"
	"strings"
	"time"
)

// Date layouts accepted for match dates. DateLayout is the canonical form;
// LegacyDateLayout is read from older record exports.
const (
	DateLayout       = "2006-01-02"
	LegacyDateLayout = "01/02/2006"
)

// Ref identifies an entity inside a match record. The name is captured at
// append time so the ledger alone can restore the entity set.
type Ref struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// MatchInput is a match as entered by a caller, by entity name.
type MatchInput struct {
	Game      string
	PlayerOne string
	PlayerTwo string
	Winner    string
	Date      time.Time
}

// MatchRecord is an immutable ledger entry.
type MatchRecord struct {
	Seq       int64     `json:"seq"`
	ID        string    `json:"id"`
	Game      Ref       `json:"game"`
	PlayerOne Ref       `json:"player_one"`
	PlayerTwo Ref       `json:"player_two"`
	WinnerID  string    `json:"winner_id"`
	Date      time.Time `json:"date"`
}

// Winner returns the winning side's reference.
func (r MatchRecord) Winner() Ref {
	if r.WinnerID == r.PlayerTwo.ID {
		return r.PlayerTwo
	}
	return r.PlayerOne
}

// Loser returns the losing side's reference.
func (r MatchRecord) Loser() Ref {
	if r.WinnerID == r.PlayerTwo.ID {
		return r.PlayerOne
	}
	return r.PlayerTwo
}

// WithIDs returns a copy of r with its references moved to the given
// identifiers. The winner keeps its side.
func (r MatchRecord) WithIDs(game, one, two string) MatchRecord {
	winner := one
	if r.WinnerID == r.PlayerTwo.ID {
		winner = two
	}
	r.Game.ID, r.PlayerOne.ID, r.PlayerTwo.ID, r.WinnerID = game, one, two, winner
	return r
}

// Involves reports whether playerID took part in the match.
func (r MatchRecord) Involves(playerID string) bool {
	return r.PlayerOne.ID == playerID || r.PlayerTwo.ID == playerID
}

// Stats are the derived aggregates of one player.
type Stats struct {
	Wins       int       `json:"wins"`
	Matches    int       `json:"matches"`
	LastPlayed time.Time `json:"last_played"`
}

// Losses is the number of matches not won.
func (s Stats) Losses() int { return s.Matches - s.Wins }

// Played reports whether the player has any recorded match.
func (s Stats) Played() bool { return s.Matches > 0 }

// GameStats are the derived aggregates of one game.
type GameStats struct {
	Matches    int       `json:"matches"`
	LastPlayed time.Time `json:"last_played"`
}

// NormalizeDate truncates t to its calendar date at 00:00 UTC.
func NormalizeDate(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// ParseDate reads a calendar date in either accepted layout.
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range []string{DateLayout, LegacyDateLayout} {
		if t, err := time.Parse(layout, s); err == nil {
			return NormalizeDate(t), nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid match date %q: want YYYY-MM-DD or MM/DD/YYYY", s)
}

// FormatDate renders a date in the canonical layout, or "never" for the
// zero time.
func FormatDate(t time.Time) string {
	if t.IsZero() {
		return "never"
	}
	return t.Format(DateLayout)
}

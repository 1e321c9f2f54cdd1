// Package standings folds match records into per-entity aggregates and
// orders them into rankings.
package standings

import (
	"github.com/okian/grudgematch/internal/domain/model"
)

// Tally accumulates aggregates keyed by entity ID. The zero value is not
// usable; call NewTally.
type Tally struct {
	players map[string]*model.Stats
	games   map[string]*model.GameStats
	records int
}

// NewTally returns an empty tally.
func NewTally() *Tally {
	return &Tally{
		players: make(map[string]*model.Stats),
		games:   make(map[string]*model.GameStats),
	}
}

// Fold applies every record in order and returns the resulting tally.
func Fold(records []model.MatchRecord) *Tally {
	t := NewTally()
	for _, rec := range records {
		t.Apply(rec)
	}
	return t
}

// Apply is the single per-record mutation. Live queries and rebuilds both
// go through it.
func (t *Tally) Apply(rec model.MatchRecord) {
	t.records++
	for _, p := range [...]model.Ref{rec.PlayerOne, rec.PlayerTwo} {
		s := t.player(p.ID)
		s.Matches++
		if p.ID == rec.WinnerID {
			s.Wins++
		}
		if rec.Date.After(s.LastPlayed) {
			s.LastPlayed = rec.Date
		}
	}
	g := t.game(rec.Game.ID)
	g.Matches++
	if rec.Date.After(g.LastPlayed) {
		g.LastPlayed = rec.Date
	}
}

// Player returns the aggregates of a player ID; unknown IDs have zero stats.
func (t *Tally) Player(id string) model.Stats {
	if s, ok := t.players[id]; ok {
		return *s
	}
	return model.Stats{}
}

// Game returns the aggregates of a game ID.
func (t *Tally) Game(id string) model.GameStats {
	if g, ok := t.games[id]; ok {
		return *g
	}
	return model.GameStats{}
}

// Records is the number of records applied.
func (t *Tally) Records() int { return t.records }

func (t *Tally) player(id string) *model.Stats {
	s, ok := t.players[id]
	if !ok {
		s = &model.Stats{}
		t.players[id] = s
	}
	return s
}

func (t *Tally) game(id string) *model.GameStats {
	g, ok := t.games[id]
	if !ok {
		g = &model.GameStats{}
		t.games[id] = g
	}
	return g
}

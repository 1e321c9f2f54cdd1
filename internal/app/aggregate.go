package service

import (
	"context"
	"fmt"
	"time"

	"github.com/okian/grudgematch/internal/adapters/repository"
	"github.com/okian/grudgematch/internal/domain/model"
	"github.com/okian/grudgematch/internal/domain/standings"
	"github.com/okian/grudgematch/pkg/metrics"
)

// Aggregator answers standings queries by folding the ledger on every call.
// It never writes to either store.
type Aggregator struct {
	entities repository.EntityStore
	ledger   repository.Ledger
}

// NewAggregator reads entities and records from the given stores.
func NewAggregator(entities repository.EntityStore, ledger repository.Ledger) *Aggregator {
	return &Aggregator{entities: entities, ledger: ledger}
}

// Filter narrows a match history by entity name. Empty means any.
type Filter struct {
	Player string
	Game   string
}

func observe(query string, start time.Time) {
	metrics.RecordQueryLatency(query, time.Since(start).Seconds())
}

// records reads the ledger with references moved to current identifiers.
func (a *Aggregator) records(ctx context.Context) ([]model.MatchRecord, error) {
	records, err := a.ledger.ReadAll(ctx)
	if err != nil {
		return nil, err
	}
	return canonical(a.entities, records), nil
}

func (a *Aggregator) tally(ctx context.Context) (*standings.Tally, error) {
	records, err := a.records(ctx)
	if err != nil {
		return nil, err
	}
	return standings.Fold(records), nil
}

// canonical rewrites references the store knows by an alias to the
// identifier of the entity holding it.
func canonical(entities repository.EntityStore, records []model.MatchRecord) []model.MatchRecord {
	id := func(kind model.Kind, ref model.Ref) string {
		if e, ok := entities.ByID(kind, ref.ID); ok {
			return e.ID
		}
		return ref.ID
	}
	out := make([]model.MatchRecord, len(records))
	for i, rec := range records {
		out[i] = rec.WithIDs(id(model.KindGame, rec.Game), id(model.KindPlayer, rec.PlayerOne), id(model.KindPlayer, rec.PlayerTwo))
	}
	return out
}

func (a *Aggregator) lookup(kind model.Kind, name string) (model.Entity, error) {
	e, ok := a.entities.Lookup(kind, name)
	if !ok {
		return model.Entity{}, fmt.Errorf("%w: %s %q", repository.ErrNotFound, kind, name)
	}
	return e, nil
}

// PlayerStats counts the wins and matches of one player.
func (a *Aggregator) PlayerStats(ctx context.Context, name string) (model.Stats, error) {
	defer observe("player_stats", time.Now())
	p, err := a.lookup(model.KindPlayer, name)
	if err != nil {
		return model.Stats{}, err
	}
	t, err := a.tally(ctx)
	if err != nil {
		return model.Stats{}, err
	}
	return t.Player(p.ID), nil
}

// GameStats counts the matches played in one game.
func (a *Aggregator) GameStats(ctx context.Context, name string) (model.GameStats, error) {
	defer observe("game_stats", time.Now())
	g, err := a.lookup(model.KindGame, name)
	if err != nil {
		return model.GameStats{}, err
	}
	t, err := a.tally(ctx)
	if err != nil {
		return model.GameStats{}, err
	}
	return t.Game(g.ID), nil
}

// RankPlayers orders players by win/loss ratio.
func (a *Aggregator) RankPlayers(ctx context.Context, activeOnly bool) ([]standings.PlayerStanding, error) {
	defer observe("rank_players", time.Now())
	t, err := a.tally(ctx)
	if err != nil {
		return nil, err
	}
	return standings.RankPlayers(t, a.entities.List(model.KindPlayer, activeOnly)), nil
}

// RankGames orders games by matches played.
func (a *Aggregator) RankGames(ctx context.Context, activeOnly bool) ([]standings.GameStanding, error) {
	defer observe("rank_games", time.Now())
	t, err := a.tally(ctx)
	if err != nil {
		return nil, err
	}
	return standings.RankGames(t, a.entities.List(model.KindGame, activeOnly)), nil
}

// MatchHistory lists the records passing f, grouped by game and in date
// order within each game.
func (a *Aggregator) MatchHistory(ctx context.Context, f Filter) ([]model.MatchRecord, error) {
	defer observe("match_history", time.Now())
	var sf standings.Filter
	if f.Player != "" {
		p, err := a.lookup(model.KindPlayer, f.Player)
		if err != nil {
			return nil, err
		}
		sf.PlayerID = p.ID
	}
	if f.Game != "" {
		g, err := a.lookup(model.KindGame, f.Game)
		if err != nil {
			return nil, err
		}
		sf.GameID = g.ID
	}
	records, err := a.records(ctx)
	if err != nil {
		return nil, err
	}
	return standings.History(records, sf), nil
}

package standings

import (
	"math"
	"sort"
	"time"

	"github.com/okian/grudgematch/internal/domain/model"
)

// PlayerStanding is one row of the player ranking.
//
// Ordering: win/loss ratio DESC, then name ASC. A player who has never lost
// ranks with an infinite ratio. Players with no matches are listed after
// every ranked player with Rank 0 and Unranked set.
type PlayerStanding struct {
	Rank       int       `json:"rank"`
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	Active     bool      `json:"active"`
	Wins       int       `json:"wins"`
	Losses     int       `json:"losses"`
	Matches    int       `json:"matches"`
	Ratio      float64   `json:"-"`
	Undefeated bool      `json:"undefeated,omitempty"`
	Unranked   bool      `json:"unranked,omitempty"`
	LastPlayed time.Time `json:"last_played"`
}

// GameStanding is one row of the game ranking, ordered by matches DESC then
// name ASC.
type GameStanding struct {
	Rank       int       `json:"rank"`
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	Active     bool      `json:"active"`
	Matches    int       `json:"matches"`
	LastPlayed time.Time `json:"last_played"`
}

// RankPlayers orders players by their tallied record.
func RankPlayers(t *Tally, players []model.Entity) []PlayerStanding {
	out := make([]PlayerStanding, 0, len(players))
	for _, p := range players {
		s := t.Player(p.ID)
		row := PlayerStanding{
			ID:         p.ID,
			Name:       p.Name,
			Active:     p.Active,
			Wins:       s.Wins,
			Losses:     s.Losses(),
			Matches:    s.Matches,
			LastPlayed: s.LastPlayed,
			Unranked:   !s.Played(),
		}
		switch {
		case row.Unranked:
		case row.Losses == 0:
			row.Undefeated = true
			row.Ratio = math.Inf(1)
		default:
			row.Ratio = float64(row.Wins) / float64(row.Losses)
		}
		out = append(out, row)
	}

	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.Unranked != b.Unranked {
			return !a.Unranked
		}
		if c := compareRatio(a, b); c != 0 {
			return c > 0
		}
		return a.Name < b.Name
	})

	// Equal ratios share a rank; the next distinct ratio takes the next rank.
	rank := 0
	for i := range out {
		if out[i].Unranked {
			break
		}
		if i == 0 || compareRatio(out[i-1], out[i]) != 0 {
			rank++
		}
		out[i].Rank = rank
	}
	return out
}

// compareRatio compares wins/losses exactly by cross multiplication.
func compareRatio(a, b PlayerStanding) int {
	switch {
	case a.Unranked || b.Unranked:
		return 0
	case a.Undefeated && b.Undefeated:
		return 0
	case a.Undefeated:
		return 1
	case b.Undefeated:
		return -1
	}
	l, r := a.Wins*b.Losses, b.Wins*a.Losses
	switch {
	case l > r:
		return 1
	case l < r:
		return -1
	default:
		return 0
	}
}

// RankGames orders games by how often they were played.
func RankGames(t *Tally, games []model.Entity) []GameStanding {
	out := make([]GameStanding, 0, len(games))
	for _, g := range games {
		s := t.Game(g.ID)
		out = append(out, GameStanding{
			ID:         g.ID,
			Name:       g.Name,
			Active:     g.Active,
			Matches:    s.Matches,
			LastPlayed: s.LastPlayed,
		})
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Matches != out[j].Matches {
			return out[i].Matches > out[j].Matches
		}
		return out[i].Name < out[j].Name
	})

	rank := 0
	for i := range out {
		if i == 0 || out[i-1].Matches != out[i].Matches {
			rank++
		}
		out[i].Rank = rank
	}
	return out
}

// ActiveOnly filters entities down to the active ones.
func ActiveOnly(entities []model.Entity) []model.Entity {
	out := make([]model.Entity, 0, len(entities))
	for _, e := range entities {
		if e.Active {
			out = append(out, e)
		}
	}
	return out
}

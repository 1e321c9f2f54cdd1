package standings

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"sort"

	"github.com/okian/grudgematch/internal/domain/model"
)

// Snapshot is the persisted form of the standings. It carries no timestamps
// so equal inputs encode to identical bytes.
type Snapshot struct {
	Records int              `json:"records"`
	Players []PlayerStanding `json:"players"`
	Games   []GameStanding   `json:"games"`
}

// NewSnapshot ranks every player and game, active or not.
func NewSnapshot(t *Tally, players, games []model.Entity) Snapshot {
	return Snapshot{
		Records: t.Records(),
		Players: RankPlayers(t, players),
		Games:   RankGames(t, games),
	}
}

// Encode renders the snapshot as indented JSON with a trailing newline.
func (s Snapshot) Encode() ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetIndent("", "  ")
	if err := enc.Encode(s); err != nil {
		return nil, fmt.Errorf("encode standings: %w", err)
	}
	return buf.Bytes(), nil
}

// DecodeSnapshot parses a snapshot written by Encode.
func DecodeSnapshot(r io.Reader) (Snapshot, error) {
	var s Snapshot
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&s); err != nil {
		return Snapshot{}, fmt.Errorf("decode standings: %w", err)
	}
	return s, nil
}

// Diff lists human readable differences between want and got, keyed by
// entity name. An empty result means the snapshots agree.
func Diff(want, got Snapshot) []string {
	var out []string
	if want.Records != got.Records {
		out = append(out, fmt.Sprintf("records: want %d, got %d", want.Records, got.Records))
	}

	players := make(map[string]PlayerStanding, len(got.Players))
	for _, p := range got.Players {
		players[p.ID] = p
	}
	for _, w := range want.Players {
		g, ok := players[w.ID]
		switch {
		case !ok:
			out = append(out, fmt.Sprintf("player %s: missing", w.Name))
		case !samePlayer(w, g):
			out = append(out, fmt.Sprintf("player %s: want %d/%d rank %d, got %d/%d rank %d",
				w.Name, w.Wins, w.Matches, w.Rank, g.Wins, g.Matches, g.Rank))
		}
		delete(players, w.ID)
	}
	for _, g := range players {
		out = append(out, fmt.Sprintf("player %s: unexpected", g.Name))
	}

	games := make(map[string]GameStanding, len(got.Games))
	for _, g := range got.Games {
		games[g.ID] = g
	}
	for _, w := range want.Games {
		g, ok := games[w.ID]
		switch {
		case !ok:
			out = append(out, fmt.Sprintf("game %s: missing", w.Name))
		case !sameGame(w, g):
			out = append(out, fmt.Sprintf("game %s: want %d matches rank %d, got %d rank %d",
				w.Name, w.Matches, w.Rank, g.Matches, g.Rank))
		}
		delete(games, w.ID)
	}
	for _, g := range games {
		out = append(out, fmt.Sprintf("game %s: unexpected", g.Name))
	}
	sort.Strings(out)
	return out
}

func samePlayer(a, b PlayerStanding) bool {
	return a.Rank == b.Rank && a.Name == b.Name && a.Active == b.Active &&
		a.Wins == b.Wins && a.Losses == b.Losses && a.Matches == b.Matches &&
		a.Undefeated == b.Undefeated && a.Unranked == b.Unranked &&
		a.LastPlayed.Equal(b.LastPlayed)
}

func sameGame(a, b GameStanding) bool {
	return a.Rank == b.Rank && a.Name == b.Name && a.Active == b.Active &&
		a.Matches == b.Matches && a.LastPlayed.Equal(b.LastPlayed)
}

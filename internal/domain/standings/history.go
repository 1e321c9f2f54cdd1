package standings

import (
	"sort"

	"github.com/okian/grudgematch/internal/domain/model"
)

// Filter narrows a match history. Empty fields match any entity.
type Filter struct {
	PlayerID string
	GameID   string
}

// Match reports whether rec passes the filter.
func (f Filter) Match(rec model.MatchRecord) bool {
	if f.PlayerID != "" && !rec.Involves(f.PlayerID) {
		return false
	}
	if f.GameID != "" && rec.Game.ID != f.GameID {
		return false
	}
	return true
}

// History selects the records passing f, grouped by game name and in
// chronological order within each game. Records of one day keep ledger
// order.
func History(records []model.MatchRecord, f Filter) []model.MatchRecord {
	out := make([]model.MatchRecord, 0, len(records))
	for _, rec := range records {
		if f.Match(rec) {
			out = append(out, rec)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.Game.Name != b.Game.Name {
			return a.Game.Name < b.Game.Name
		}
		if !a.Date.Equal(b.Date) {
			return a.Date.Before(b.Date)
		}
		return a.Seq < b.Seq
	})
	return out
}

package standings

import (
	"bytes"
	"math"
	"testing"
	"time"

	"github.com/okian/grudgematch/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

func day(d int) time.Time { return time.Date(2024, time.January, d, 0, 0, 0, 0, time.UTC) }

func player(id, name string, active bool) model.Entity {
	return model.Entity{ID: id, Kind: model.KindPlayer, Name: name, Active: active}
}

func game(id, name string) model.Entity {
	return model.Entity{ID: id, Kind: model.KindGame, Name: name, Active: true}
}

var seq int64

func match(g model.Entity, p1, p2, winner model.Entity, date time.Time) model.MatchRecord {
	seq++
	return model.MatchRecord{
		Seq:       seq,
		ID:        g.ID + p1.ID + p2.ID,
		Game:      g.Ref(),
		PlayerOne: p1.Ref(),
		PlayerTwo: p2.Ref(),
		WinnerID:  winner.ID,
		Date:      date,
	}
}

var (
	ryu    = player("p-ryu", "Ryu", true)
	ken    = player("p-ken", "Ken", true)
	guile  = player("p-guile", "Guile", true)
	blanka = player("p-blanka", "Blanka", false)
	dan    = player("p-dan", "Dan", true)
	sf2    = game("g-sf2", "SF2")
	tekken = game("g-tk", "Tekken")
	vf     = game("g-vf", "VF")
)

func TestTallyApply(t *testing.T) {
	Convey("Given a tally over a short ledger", t, func() {
		records := []model.MatchRecord{
			match(sf2, ryu, ken, ryu, day(1)),
			match(sf2, ken, ryu, ken, day(3)),
			match(tekken, ryu, guile, ryu, day(2)),
		}
		tally := Fold(records)

		Convey("Then player aggregates count wins and matches", func() {
			So(tally.Player(ryu.ID), ShouldResemble, model.Stats{Wins: 2, Matches: 3, LastPlayed: day(3)})
			So(tally.Player(ken.ID), ShouldResemble, model.Stats{Wins: 1, Matches: 2, LastPlayed: day(3)})
			So(tally.Player(guile.ID), ShouldResemble, model.Stats{Wins: 0, Matches: 1, LastPlayed: day(2)})
		})

		Convey("Then last played is the maximum date, not the latest record", func() {
			So(tally.Game(tekken.ID).LastPlayed, ShouldEqual, day(2))
			So(tally.Player(guile.ID).LastPlayed, ShouldEqual, day(2))
		})

		Convey("Then game aggregates count matches", func() {
			So(tally.Game(sf2.ID), ShouldResemble, model.GameStats{Matches: 2, LastPlayed: day(3)})
			So(tally.Records(), ShouldEqual, 3)
		})

		Convey("Then unknown entities have zero aggregates", func() {
			So(tally.Player(dan.ID), ShouldResemble, model.Stats{})
			So(tally.Game(vf.ID), ShouldResemble, model.GameStats{})
		})

		Convey("Then folding incrementally equals folding at once", func() {
			inc := NewTally()
			for _, rec := range records {
				inc.Apply(rec)
			}
			So(inc, ShouldResemble, tally)
		})
	})
}

func TestRankPlayers(t *testing.T) {
	Convey("Given players with mixed records", t, func() {
		records := []model.MatchRecord{
			match(sf2, ryu, ken, ryu, day(1)),
			match(sf2, ryu, ken, ken, day(2)),
			match(sf2, guile, ken, guile, day(3)),
			match(sf2, blanka, ken, ken, day(4)),
		}
		tally := Fold(records)
		rows := RankPlayers(tally, []model.Entity{ryu, ken, guile, blanka, dan})

		Convey("Then the undefeated player ranks first with an infinite ratio", func() {
			So(rows[0].Name, ShouldEqual, "Guile")
			So(rows[0].Undefeated, ShouldBeTrue)
			So(math.IsInf(rows[0].Ratio, 1), ShouldBeTrue)
			So(rows[0].Rank, ShouldEqual, 1)
		})

		Convey("Then equal ratios share a rank and tie-break by name", func() {
			// Ken 2-2, Ryu 1-1.
			So(rows[1].Name, ShouldEqual, "Ken")
			So(rows[2].Name, ShouldEqual, "Ryu")
			So(rows[1].Rank, ShouldEqual, 2)
			So(rows[2].Rank, ShouldEqual, 2)
			So(rows[1].Ratio, ShouldEqual, 1.0)
		})

		Convey("Then the winless player follows", func() {
			So(rows[3].Name, ShouldEqual, "Blanka")
			So(rows[3].Ratio, ShouldEqual, 0.0)
			So(rows[3].Rank, ShouldEqual, 3)
			So(rows[3].Active, ShouldBeFalse)
		})

		Convey("Then players without matches come last, unranked", func() {
			So(rows[4].Name, ShouldEqual, "Dan")
			So(rows[4].Unranked, ShouldBeTrue)
			So(rows[4].Rank, ShouldEqual, 0)
		})
	})

	Convey("Given ratios that differ only in precision", t, func() {
		a := player("a", "A", true)
		b := player("b", "B", true)
		opp := player("o", "Opp", true)
		var records []model.MatchRecord
		// A: 2 wins 3 losses; B: 4 wins 6 losses.
		for i := 0; i < 2; i++ {
			records = append(records, match(sf2, a, opp, a, day(1)))
		}
		for i := 0; i < 3; i++ {
			records = append(records, match(sf2, a, opp, opp, day(1)))
		}
		for i := 0; i < 4; i++ {
			records = append(records, match(sf2, b, opp, b, day(1)))
		}
		for i := 0; i < 6; i++ {
			records = append(records, match(sf2, b, opp, opp, day(1)))
		}
		rows := RankPlayers(Fold(records), []model.Entity{b, a})

		Convey("Then they compare as equal", func() {
			So(rows[0].Rank, ShouldEqual, rows[1].Rank)
			So(rows[0].Name, ShouldEqual, "A")
		})
	})
}

func TestRankGames(t *testing.T) {
	Convey("Given games with different popularity", t, func() {
		records := []model.MatchRecord{
			match(tekken, ryu, ken, ryu, day(1)),
			match(sf2, ryu, ken, ryu, day(2)),
			match(tekken, ryu, ken, ken, day(3)),
			match(vf, ryu, ken, ken, day(4)),
		}
		rows := RankGames(Fold(records), []model.Entity{sf2, tekken, vf})

		Convey("Then they are ordered by matches then name", func() {
			So(rows[0].Name, ShouldEqual, "Tekken")
			So(rows[0].Matches, ShouldEqual, 2)
			So(rows[0].Rank, ShouldEqual, 1)
			So(rows[1].Name, ShouldEqual, "SF2")
			So(rows[2].Name, ShouldEqual, "VF")
			So(rows[1].Rank, ShouldEqual, 2)
			So(rows[2].Rank, ShouldEqual, 2)
		})
	})
}

func TestActiveOnly(t *testing.T) {
	got := ActiveOnly([]model.Entity{ryu, blanka, ken})
	if len(got) != 2 || got[0].Name != "Ryu" || got[1].Name != "Ken" {
		t.Errorf("ActiveOnly = %+v, want Ryu and Ken", got)
	}
}

func TestHistory(t *testing.T) {
	Convey("Given a ledger across games and dates", t, func() {
		r1 := match(tekken, ryu, ken, ryu, day(5))
		r2 := match(sf2, ryu, ken, ken, day(3))
		r3 := match(sf2, guile, ken, guile, day(1))
		r4 := match(sf2, ryu, guile, ryu, day(3))
		records := []model.MatchRecord{r1, r2, r3, r4}

		Convey("When no filter is set", func() {
			got := History(records, Filter{})

			Convey("Then records group by game and sort by date then ledger order", func() {
				So(got, ShouldResemble, []model.MatchRecord{r3, r2, r4, r1})
			})
		})

		Convey("When filtering by player", func() {
			got := History(records, Filter{PlayerID: guile.ID})
			So(got, ShouldResemble, []model.MatchRecord{r3, r4})
		})

		Convey("When filtering by game and player", func() {
			got := History(records, Filter{PlayerID: ryu.ID, GameID: tekken.ID})
			So(got, ShouldResemble, []model.MatchRecord{r1})
		})

		Convey("When nothing matches", func() {
			got := History(records, Filter{PlayerID: dan.ID})
			So(got, ShouldBeEmpty)
		})
	})
}

func TestSnapshot(t *testing.T) {
	Convey("Given the same ledger folded twice", t, func() {
		records := []model.MatchRecord{
			match(sf2, ryu, ken, ryu, day(1)),
			match(tekken, guile, ken, ken, day(2)),
		}
		players := []model.Entity{ryu, ken, guile, dan}
		games := []model.Entity{sf2, tekken}

		first, err := NewSnapshot(Fold(records), players, games).Encode()
		So(err, ShouldBeNil)
		second, err := NewSnapshot(Fold(records), players, games).Encode()
		So(err, ShouldBeNil)

		Convey("Then the encodings are byte-identical", func() {
			So(bytes.Equal(first, second), ShouldBeTrue)
		})

		Convey("Then a decoded snapshot has no differences", func() {
			decoded, err := DecodeSnapshot(bytes.NewReader(first))
			So(err, ShouldBeNil)
			So(Diff(NewSnapshot(Fold(records), players, games), decoded), ShouldBeEmpty)
		})

		Convey("Then an extra record shows up as drift", func() {
			more := append(append([]model.MatchRecord(nil), records...), match(sf2, ryu, ken, ken, day(3)))
			diff := Diff(NewSnapshot(Fold(more), players, games), NewSnapshot(Fold(records), players, games))
			So(diff, ShouldNotBeEmpty)
			So(diff, ShouldContain, "records: want 3, got 2")
		})
	})
}

package model_test

import (
	"testing"
	"time"

	model "github.com/okian/grudgematch/internal/domain/model"
	"github.com/smartystreets/goconvey/convey"
)

func TestParseDate(t *testing.T) {
	convey.Convey("Given match dates in the accepted layouts", t, func() {
		want := time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC)

		convey.Convey("When parsing an ISO date", func() {
			got, err := model.ParseDate("2024-01-01")

			convey.Convey("Then it should be midnight UTC", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(got.Equal(want), convey.ShouldBeTrue)
			})
		})

		convey.Convey("When parsing a legacy slash date", func() {
			got, err := model.ParseDate(" 01/01/2024 ")

			convey.Convey("Then it should equal the ISO form", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(got.Equal(want), convey.ShouldBeTrue)
			})
		})

		convey.Convey("When parsing garbage", func() {
			_, err := model.ParseDate("yesterday")

			convey.Convey("Then it should fail", func() {
				convey.So(err, convey.ShouldNotBeNil)
				convey.So(err.Error(), convey.ShouldContainSubstring, "yesterday")
			})
		})
	})
}

func TestNormalizeDate(t *testing.T) {
	convey.Convey("Given a timestamp with a clock component", t, func() {
		loc := time.FixedZone("UTC+9", 9*60*60)
		ts := time.Date(2024, time.March, 5, 23, 30, 0, 0, loc)

		convey.Convey("Then normalizing keeps the local calendar date", func() {
			got := model.NormalizeDate(ts)
			convey.So(got, convey.ShouldEqual, time.Date(2024, time.March, 5, 0, 0, 0, 0, time.UTC))
			convey.So(model.FormatDate(got), convey.ShouldEqual, "2024-03-05")
		})

		convey.Convey("Then the zero time formats as never", func() {
			convey.So(model.FormatDate(time.Time{}), convey.ShouldEqual, "never")
		})
	})
}

func TestMatchRecord(t *testing.T) {
	convey.Convey("Given a recorded match", t, func() {
		rec := model.MatchRecord{
			Game:      model.Ref{ID: "g1", Name: "SF2"},
			PlayerOne: model.Ref{ID: "p1", Name: "Ryu"},
			PlayerTwo: model.Ref{ID: "p2", Name: "Ken"},
			WinnerID:  "p2",
		}

		convey.Convey("Then winner and loser resolve to the right sides", func() {
			convey.So(rec.Winner().Name, convey.ShouldEqual, "Ken")
			convey.So(rec.Loser().Name, convey.ShouldEqual, "Ryu")
		})

		convey.Convey("Then only the two players are involved", func() {
			convey.So(rec.Involves("p1"), convey.ShouldBeTrue)
			convey.So(rec.Involves("p2"), convey.ShouldBeTrue)
			convey.So(rec.Involves("g1"), convey.ShouldBeFalse)
		})
	})
}

func TestStats(t *testing.T) {
	convey.Convey("Given player stats", t, func() {
		convey.Convey("Then losses are derived from matches and wins", func() {
			s := model.Stats{Wins: 3, Matches: 5}
			convey.So(s.Losses(), convey.ShouldEqual, 2)
			convey.So(s.Played(), convey.ShouldBeTrue)
		})

		convey.Convey("Then empty stats have never been played", func() {
			var s model.Stats
			convey.So(s.Played(), convey.ShouldBeFalse)
			convey.So(s.LastPlayed.IsZero(), convey.ShouldBeTrue)
		})
	})
}

func TestParseKind(t *testing.T) {
	convey.Convey("Given kind names", t, func() {
		k, err := model.ParseKind(" Player ")
		convey.So(err, convey.ShouldBeNil)
		convey.So(k, convey.ShouldEqual, model.KindPlayer)

		k, err = model.ParseKind("game")
		convey.So(err, convey.ShouldBeNil)
		convey.So(k, convey.ShouldEqual, model.KindGame)

		_, err = model.ParseKind("team")
		convey.So(err, convey.ShouldNotBeNil)
	})
}

func TestMatchRecordWithIDs(t *testing.T) {
	convey.Convey("Given a record won by the second player", t, func() {
		rec := model.MatchRecord{
			Game:      model.Ref{ID: "g", Name: "SF2"},
			PlayerOne: model.Ref{ID: "a", Name: "Ryu"},
			PlayerTwo: model.Ref{ID: "b", Name: "Ken"},
			WinnerID:  "b",
		}

		convey.Convey("When its references are moved", func() {
			moved := rec.WithIDs("g2", "a2", "b2")

			convey.Convey("Then the winner keeps its side", func() {
				convey.So(moved.Game, convey.ShouldResemble, model.Ref{ID: "g2", Name: "SF2"})
				convey.So(moved.Winner(), convey.ShouldResemble, model.Ref{ID: "b2", Name: "Ken"})
				convey.So(moved.Loser().ID, convey.ShouldEqual, "a2")
				convey.So(rec.WinnerID, convey.ShouldEqual, "b")
			})
		})
	})
}

func TestEntityClone(t *testing.T) {
	convey.Convey("Given a game with info and aliases", t, func() {
		e := model.Entity{ID: "g", Name: "SF2", Info: &model.GameInfo{Developer: "Capcom"}, Aliases: []string{"old"}}

		convey.Convey("When the clone is changed", func() {
			c := e.Clone()
			c.Info.Developer = "Sega"
			c.Aliases[0] = "new"

			convey.Convey("Then the original is untouched", func() {
				convey.So(e.Info.Developer, convey.ShouldEqual, "Capcom")
				convey.So(e.Aliases, convey.ShouldResemble, []string{"old"})
			})
		})
	})
}

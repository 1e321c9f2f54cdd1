package simulate

import (
	"context"
	"errors"
	"io"
	"path/filepath"
	"testing"

	service "github.com/okian/grudgematch/internal/app"
	"github.com/okian/grudgematch/internal/domain/model"
	"github.com/okian/grudgematch/internal/domain/naming"
	"github.com/okian/grudgematch/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func init() {
	if err := logger.Init(logger.WithWriter(io.Discard)); err != nil {
		panic(err)
	}
}

func startService(t *testing.T) *service.Service {
	svc := service.New(service.WithDataDir(filepath.Join(t.TempDir(), "data")))
	So(svc.Start(context.Background()), ShouldBeNil)
	return svc
}

func TestGenerateNames(t *testing.T) {
	Convey("Given a seeded config", t, func() {
		config := NewConfig(42)
		config.Players = 50
		config.Games = 10

		players, games, err := generateNames(config)
		So(err, ShouldBeNil)

		Convey("Then every name passes validation", func() {
			So(len(players), ShouldEqual, 50)
			So(len(games), ShouldEqual, 10)
			for _, p := range players {
				So(naming.Check(model.KindPlayer, p), ShouldEqual, naming.Valid)
			}
			for _, g := range games {
				So(naming.Check(model.KindGame, g), ShouldEqual, naming.Valid)
			}
		})

		Convey("Then the same seed yields the same names", func() {
			again, _, err := generateNames(config)
			So(err, ShouldBeNil)
			So(again, ShouldResemble, players)
		})
	})
}

func TestGenerateMatches(t *testing.T) {
	ctx := context.Background()

	Convey("Given generated names", t, func() {
		config := NewConfig(7)
		config.Matches = 101
		config.Workers = 3
		players, games, err := generateNames(config)
		So(err, ShouldBeNil)

		matches, err := generateMatches(ctx, config, players, games)
		So(err, ShouldBeNil)

		Convey("Then every match is well formed", func() {
			So(len(matches), ShouldEqual, 101)
			for _, m := range matches {
				So(m.PlayerOne, ShouldNotEqual, m.PlayerTwo)
				So(m.Winner == m.PlayerOne || m.Winner == m.PlayerTwo, ShouldBeTrue)
				So(m.Date.After(config.Start), ShouldBeFalse)
			}
		})

		Convey("Then generation is deterministic", func() {
			again, err := generateMatches(ctx, config, players, games)
			So(err, ShouldBeNil)
			So(again, ShouldResemble, matches)
		})

		Convey("When the context is cancelled", func() {
			cctx, cancel := context.WithCancel(ctx)
			cancel()
			_, err := generateMatches(cctx, config, players, games)

			Convey("Then generation stops", func() {
				So(errors.Is(err, context.Canceled), ShouldBeTrue)
			})
		})
	})
}

func TestRun(t *testing.T) {
	ctx := context.Background()

	Convey("Given an empty data directory", t, func() {
		svc := startService(t)
		defer svc.Stop()

		Convey("When a simulation runs", func() {
			config := NewConfig(2024)
			config.Matches = 200
			report, err := Run(ctx, svc, config)

			Convey("Then the rebuilt standings match", func() {
				So(err, ShouldBeNil)
				So(report.Consistent, ShouldBeTrue)
				So(report.Mismatches, ShouldBeEmpty)
				So(report.MatchesRecorded, ShouldEqual, 200)
				So(report.PlayersCreated, ShouldEqual, DefaultPlayers)
				So(report.Restored, ShouldBeGreaterThan, 0)
			})

			Convey("Then a second run is refused", func() {
				_, err := Run(ctx, svc, config)
				So(errors.Is(err, ErrNotEmpty), ShouldBeTrue)
			})
		})

		Convey("When the config is invalid", func() {
			config := NewConfig(1)
			config.Players = 1
			_, err := Run(ctx, svc, config)

			Convey("Then nothing runs", func() {
				So(errors.Is(err, ErrInvalidConfig), ShouldBeTrue)
				n, _ := svc.LedgerLen(ctx)
				So(n, ShouldEqual, 0)
			})
		})
	})
}

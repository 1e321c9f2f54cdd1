package simulate

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/okian/grudgematch/internal/adapters/repository"
	service "github.com/okian/grudgematch/internal/app"
	"github.com/okian/grudgematch/internal/domain/standings"
	"github.com/okian/grudgematch/pkg/logger"
)

// ErrNotEmpty reports a data directory that already holds entities or
// matches. The run discards the entity store, so it only runs on fresh data.
var ErrNotEmpty = errors.New("data directory is not empty")

// Run executes a complete simulation against a started service.
func Run(ctx context.Context, svc *service.Service, config *Config) (*Report, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	if err := ensureEmpty(ctx, svc); err != nil {
		return nil, err
	}

	report := &Report{Seed: config.Seed}
	report.StartTime = time.Now()

	logger.Get().Info(ctx, "starting simulation",
		logger.Any("seed", config.Seed),
		logger.Int("players", config.Players),
		logger.Int("games", config.Games),
		logger.Int("matches", config.Matches),
		logger.Int("workers", config.Workers))

	// Step 1: Create entities
	players, games, err := generateNames(config)
	if err != nil {
		return nil, err
	}
	if err := createEntities(ctx, svc, players, games, &report.Stats); err != nil {
		return nil, fmt.Errorf("entity creation failed: %w", err)
	}

	// Step 2: Generate and record matches
	matches, err := generateMatches(ctx, config, players, games)
	if err != nil {
		return nil, fmt.Errorf("match generation failed: %w", err)
	}
	for i, m := range matches {
		if _, err := svc.RecordMatch(ctx, m); err != nil {
			return nil, fmt.Errorf("record match %d: %w", i, err)
		}
		report.MatchesRecorded++
	}

	// Step 3: Capture incremental standings
	before, err := capture(ctx, svc)
	if err != nil {
		return nil, err
	}

	// Step 4: Drop the entity store, reopen and rebuild from the ledger
	if err := dropEntities(ctx, svc); err != nil {
		return nil, err
	}
	rebuilt, err := svc.Rebuild(ctx)
	if err != nil {
		return nil, fmt.Errorf("rebuild failed: %w", err)
	}
	report.Restored = len(svc.Recovered()) + len(rebuilt.Restored)

	// Step 5: Compare
	after, err := capture(ctx, svc)
	if err != nil {
		return nil, err
	}
	report.Mismatches = standings.Diff(before, after)
	report.Consistent = len(report.Mismatches) == 0

	report.EndTime = time.Now()
	report.Duration = report.EndTime.Sub(report.StartTime)
	displayFinalStats(ctx, report)

	if !report.Consistent {
		return report, fmt.Errorf("%w: %d differences", ErrMismatch, len(report.Mismatches))
	}
	return report, nil
}

func ensureEmpty(ctx context.Context, svc *service.Service) error {
	n, err := svc.LedgerLen(ctx)
	if err != nil {
		return err
	}
	players, err := svc.ListPlayers(ctx, false)
	if err != nil {
		return err
	}
	games, err := svc.ListGames(ctx, false)
	if err != nil {
		return err
	}
	if n > 0 || len(players) > 0 || len(games) > 0 {
		return fmt.Errorf("%w: %s holds %d matches, %d players, %d games",
			ErrNotEmpty, svc.DataDir(), n, len(players), len(games))
	}
	return nil
}

func createEntities(ctx context.Context, svc *service.Service, players, games []string, stats *Stats) error {
	for _, name := range players {
		if _, err := svc.AddPlayer(ctx, name); err != nil {
			return err
		}
		stats.PlayersCreated++
	}
	for _, name := range games {
		if _, err := svc.AddGame(ctx, name); err != nil {
			return err
		}
		stats.GamesCreated++
	}
	return nil
}

// capture projects the standings of entities with at least one match. Only
// those can be restored from the ledger.
func capture(ctx context.Context, svc *service.Service) (standings.Snapshot, error) {
	players, err := svc.RankPlayers(ctx, false)
	if err != nil {
		return standings.Snapshot{}, err
	}
	games, err := svc.RankGames(ctx, false)
	if err != nil {
		return standings.Snapshot{}, err
	}
	n, err := svc.LedgerLen(ctx)
	if err != nil {
		return standings.Snapshot{}, err
	}

	snap := standings.Snapshot{Records: n}
	for _, p := range players {
		if p.Matches > 0 {
			snap.Players = append(snap.Players, p)
		}
	}
	for _, g := range games {
		if g.Matches > 0 {
			snap.Games = append(snap.Games, g)
		}
	}
	return snap, nil
}

// dropEntities removes the entity store and its backup while the service
// is stopped.
func dropEntities(ctx context.Context, svc *service.Service) error {
	svc.Stop()
	path := filepath.Join(svc.DataDir(), service.EntitiesFile)
	for _, p := range []string{path, repository.BackupPath(path)} {
		if err := os.Remove(p); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("remove %s: %w", p, err)
		}
	}
	return svc.Start(ctx)
}

// displayFinalStats logs the final run statistics.
func displayFinalStats(ctx context.Context, report *Report) {
	var matchesPerSecond float64
	if report.Duration > 0 {
		matchesPerSecond = float64(report.MatchesRecorded) / report.Duration.Seconds()
	}

	logger.Get().Info(ctx, "simulation finished",
		logger.Int("playersCreated", report.PlayersCreated),
		logger.Int("gamesCreated", report.GamesCreated),
		logger.Int("matchesRecorded", report.MatchesRecorded),
		logger.Int("restored", report.Restored),
		logger.Bool("consistent", report.Consistent),
		logger.Duration("duration", report.Duration),
		logger.Float64("matchesPerSecond", matchesPerSecond))
}

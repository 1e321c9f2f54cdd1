// Package service provides the core business service: it owns the entity
// store and the match ledger of one data directory and exposes every
// operation the command line needs.
package service

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/okian/grudgematch/internal/adapters/repository"
	"github.com/okian/grudgematch/internal/domain/model"
	"github.com/okian/grudgematch/internal/domain/naming"
	"github.com/okian/grudgematch/internal/domain/standings"
	"github.com/okian/grudgematch/pkg/logger"
	"github.com/okian/grudgematch/pkg/metrics"
)

// File names inside the data directory.
const (
	EntitiesFile  = "entities.json"
	LedgerFile    = "ledger.db"
	StandingsFile = "standings.json"
)

// Service is the single entry point to the stores of one data directory.
// Calls are serialized; one process is expected per data directory.
type Service struct {
	mu sync.Mutex

	// Core components
	entities   repository.EntityStore
	ledger     repository.Ledger
	aggregator *Aggregator
	rebuilder  *Rebuilder

	// Configuration
	dataDir string
	backup  bool

	// State
	started   bool
	recovered []model.Entity

	// Logging
	logger logger.Logger
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithDataDir sets the directory holding the stores.
func WithDataDir(dir string) Option {
	return func(s *Service) {
		if dir != "" {
			s.dataDir = dir
		}
	}
}

// WithBackupOnOpen controls whether the stores refresh their backup copies
// when they open cleanly.
func WithBackupOnOpen(enabled bool) Option {
	return func(s *Service) {
		s.backup = enabled
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(logger logger.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// New constructs a new Service with default configuration.
func New(opts ...Option) *Service {
	s := &Service{
		dataDir: "grudge-data",
		backup:  true,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// DataDir is the directory holding the stores.
func (s *Service) DataDir() string { return s.dataDir }

// Start opens the stores. Storage that cannot be read is recovered from
// backups, or recreated empty as a last resort. When the entity store did
// not come up from its primary file, the entities the ledger references are
// restored before any call can add a name again.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}

	// Initialize logger if not already set
	if s.logger == nil {
		s.logger = logger.Get()
	}

	if err := os.MkdirAll(s.dataDir, 0o755); err != nil {
		return fmt.Errorf("%w: create data dir %s: %w", repository.ErrStorage, s.dataDir, err)
	}

	opts := []repository.Option{
		repository.WithLogger(s.logger),
		repository.WithBackup(s.backup),
	}
	entities, err := repository.OpenEntityStore(ctx, filepath.Join(s.dataDir, EntitiesFile), opts...)
	if err != nil {
		return err
	}
	opts = append(opts, repository.WithExistingState(s.hasState(entities)))
	ledger, err := repository.OpenLedger(ctx, filepath.Join(s.dataDir, LedgerFile), entities, opts...)
	if err != nil {
		_ = entities.Close()
		return err
	}

	s.entities = entities
	s.ledger = ledger
	s.aggregator = NewAggregator(entities, ledger)
	s.rebuilder = NewRebuilder(entities, ledger, filepath.Join(s.dataDir, StandingsFile), s.logger.Named("rebuild"))
	s.recovered = nil
	s.started = true

	if entities.Source() != repository.SourcePrimary && ledger.Source() != repository.SourceLost {
		s.recoverEntities(ctx)
	}

	s.logger.Debug(ctx, "grudgematch service started",
		logger.String("dataDir", s.dataDir),
		logger.String("entities", string(entities.Source())),
		logger.String("ledger", string(ledger.Source())),
	)
	return nil
}

// hasState reports whether the data directory held anything besides the
// ledger before this start.
func (s *Service) hasState(entities repository.EntityStore) bool {
	if _, err := os.Stat(filepath.Join(s.dataDir, StandingsFile)); err == nil {
		return true
	}
	for _, kind := range model.Kinds {
		if len(entities.List(kind, false)) > 0 {
			return true
		}
	}
	return false
}

func (s *Service) recoverEntities(ctx context.Context) {
	restored, err := s.rebuilder.Recover(ctx)
	if err != nil {
		s.logger.Warn(ctx, "restoring entities from ledger failed, run rebuild", logger.Error(err))
		return
	}
	if len(restored) == 0 {
		return
	}
	s.recovered = restored
	metrics.RecordStorageRecovery("entities", "ledger")
	s.logger.Warn(ctx, "entities restored from ledger", logger.Int("count", len(restored)))
}

// Recovered lists the entities restored from the ledger by the last Start.
func (s *Service) Recovered() []model.Entity {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]model.Entity(nil), s.recovered...)
}

// Stop closes the stores. Every mutation is already durable.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return
	}

	ctx := context.Background()
	if err := s.ledger.Close(); err != nil {
		s.logger.Warn(ctx, "closing ledger", logger.Error(err))
	}
	if err := s.entities.Close(); err != nil {
		s.logger.Warn(ctx, "closing entity store", logger.Error(err))
	}

	s.started = false
	s.logger.Debug(ctx, "grudgematch service stopped")
}

// lock acquires the service mutex and checks that the stores are open.
// Callers must call the returned unlock.
func (s *Service) lock() (func(), error) {
	s.mu.Lock()
	if !s.started {
		s.mu.Unlock()
		return nil, ErrNotStarted
	}
	return s.mu.Unlock, nil
}

// Entity queries.

// ListPlayers returns players ordered by name.
func (s *Service) ListPlayers(_ context.Context, activeOnly bool) ([]model.Entity, error) {
	return s.list(model.KindPlayer, activeOnly)
}

// ListGames returns games ordered by name.
func (s *Service) ListGames(_ context.Context, activeOnly bool) ([]model.Entity, error) {
	return s.list(model.KindGame, activeOnly)
}

func (s *Service) list(kind model.Kind, activeOnly bool) ([]model.Entity, error) {
	unlock, err := s.lock()
	if err != nil {
		return nil, err
	}
	defer unlock()
	return s.entities.List(kind, activeOnly), nil
}

// Player finds a player by name.
func (s *Service) Player(_ context.Context, name string) (model.Entity, error) {
	return s.find(model.KindPlayer, name)
}

// Game finds a game by name.
func (s *Service) Game(_ context.Context, name string) (model.Entity, error) {
	return s.find(model.KindGame, name)
}

func (s *Service) find(kind model.Kind, name string) (model.Entity, error) {
	unlock, err := s.lock()
	if err != nil {
		return model.Entity{}, err
	}
	defer unlock()
	return s.aggregator.lookup(kind, name)
}

// PlayerStats returns wins, matches and last played date of a player.
func (s *Service) PlayerStats(ctx context.Context, name string) (model.Stats, error) {
	unlock, err := s.lock()
	if err != nil {
		return model.Stats{}, err
	}
	defer unlock()
	return s.aggregator.PlayerStats(ctx, name)
}

// GameStats returns matches and last played date of a game.
func (s *Service) GameStats(ctx context.Context, name string) (model.GameStats, error) {
	unlock, err := s.lock()
	if err != nil {
		return model.GameStats{}, err
	}
	defer unlock()
	return s.aggregator.GameStats(ctx, name)
}

// RankPlayers orders players by win/loss ratio.
func (s *Service) RankPlayers(ctx context.Context, activeOnly bool) ([]standings.PlayerStanding, error) {
	unlock, err := s.lock()
	if err != nil {
		return nil, err
	}
	defer unlock()
	return s.aggregator.RankPlayers(ctx, activeOnly)
}

// RankGames orders games by matches played.
func (s *Service) RankGames(ctx context.Context, activeOnly bool) ([]standings.GameStanding, error) {
	unlock, err := s.lock()
	if err != nil {
		return nil, err
	}
	defer unlock()
	return s.aggregator.RankGames(ctx, activeOnly)
}

// Entity mutation.

// ValidatePlayerName reports how a new player name would be judged.
func (s *Service) ValidatePlayerName(_ context.Context, name string) (naming.Code, error) {
	return s.validate(model.KindPlayer, name)
}

// ValidateGameName reports how a new game name would be judged.
func (s *Service) ValidateGameName(_ context.Context, name string) (naming.Code, error) {
	return s.validate(model.KindGame, name)
}

func (s *Service) validate(kind model.Kind, name string) (naming.Code, error) {
	unlock, err := s.lock()
	if err != nil {
		return naming.Valid, err
	}
	defer unlock()
	return s.entities.Validate(kind, name), nil
}

// AddPlayer creates an active player. Invalid names return a
// *naming.ValidationError.
func (s *Service) AddPlayer(ctx context.Context, name string) (model.Entity, error) {
	return s.add(ctx, model.KindPlayer, name)
}

// AddGame creates an active game.
func (s *Service) AddGame(ctx context.Context, name string) (model.Entity, error) {
	return s.add(ctx, model.KindGame, name)
}

func (s *Service) add(ctx context.Context, kind model.Kind, name string) (model.Entity, error) {
	unlock, err := s.lock()
	if err != nil {
		return model.Entity{}, err
	}
	defer unlock()
	return s.entities.Add(ctx, kind, name)
}

// ActivatePlayer returns a player to the active lists.
func (s *Service) ActivatePlayer(ctx context.Context, name string) (model.Entity, error) {
	return s.setActive(ctx, model.KindPlayer, name, true)
}

// DeactivatePlayer hides a player from active lists. History is kept.
func (s *Service) DeactivatePlayer(ctx context.Context, name string) (model.Entity, error) {
	return s.setActive(ctx, model.KindPlayer, name, false)
}

// ActivateGame returns a game to the active lists.
func (s *Service) ActivateGame(ctx context.Context, name string) (model.Entity, error) {
	return s.setActive(ctx, model.KindGame, name, true)
}

// DeactivateGame hides a game from active lists. History is kept.
func (s *Service) DeactivateGame(ctx context.Context, name string) (model.Entity, error) {
	return s.setActive(ctx, model.KindGame, name, false)
}

func (s *Service) setActive(ctx context.Context, kind model.Kind, name string, active bool) (model.Entity, error) {
	unlock, err := s.lock()
	if err != nil {
		return model.Entity{}, err
	}
	defer unlock()
	if active {
		return s.entities.Activate(ctx, kind, name)
	}
	return s.entities.Deactivate(ctx, kind, name)
}

// SetGameInfo replaces the descriptive info of a game. A zero info clears it.
func (s *Service) SetGameInfo(ctx context.Context, name string, info model.GameInfo) (model.Entity, error) {
	unlock, err := s.lock()
	if err != nil {
		return model.Entity{}, err
	}
	defer unlock()
	return s.entities.SetGameInfo(ctx, name, info)
}

// Match operations.

// RecordMatch appends one match to the ledger.
func (s *Service) RecordMatch(ctx context.Context, in model.MatchInput) (model.MatchRecord, error) {
	unlock, err := s.lock()
	if err != nil {
		return model.MatchRecord{}, err
	}
	defer unlock()
	return s.ledger.Append(ctx, in)
}

// MatchHistory lists matches grouped by game, in date order.
func (s *Service) MatchHistory(ctx context.Context, f Filter) ([]model.MatchRecord, error) {
	unlock, err := s.lock()
	if err != nil {
		return nil, err
	}
	defer unlock()
	return s.aggregator.MatchHistory(ctx, f)
}

// LedgerLen is the number of recorded matches.
func (s *Service) LedgerLen(ctx context.Context) (int, error) {
	unlock, err := s.lock()
	if err != nil {
		return 0, err
	}
	defer unlock()
	return s.ledger.Len(ctx)
}

// Maintenance.

// Rebuild reconstructs entities and standings from the ledger.
func (s *Service) Rebuild(ctx context.Context) (RebuildReport, error) {
	unlock, err := s.lock()
	if err != nil {
		return RebuildReport{}, err
	}
	defer unlock()
	return s.rebuilder.Rebuild(ctx)
}

// VerifyStandings compares the persisted standings with the ledger.
func (s *Service) VerifyStandings(ctx context.Context) (VerifyReport, error) {
	unlock, err := s.lock()
	if err != nil {
		return VerifyReport{}, err
	}
	defer unlock()
	return s.rebuilder.Verify(ctx)
}

// PurgeHistory would delete every record involving an entity. The ledger
// is immutable, so it always fails.
func (s *Service) PurgeHistory(_ context.Context, kind model.Kind, name string) error {
	return fmt.Errorf("%w: %s %q", ErrPurgeUnsupported, kind, name)
}

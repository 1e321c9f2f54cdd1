package repository

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/okian/grudgematch/internal/domain/model"
	"github.com/okian/grudgematch/pkg/logger"
	"github.com/okian/grudgematch/pkg/metrics"
)

//go:embed schema.sql
var schema string

// SQLiteLedger stores match records in a SQLite database. Every append is
// one transaction committed with synchronous=FULL.
type SQLiteLedger struct {
	mu     sync.Mutex
	db     *sql.DB
	path   string
	lookup EntityLookup
	opts   settings
	log    logger.Logger
	source Source
}

var _ Ledger = (*SQLiteLedger)(nil)

// OpenLedger opens or creates the ledger at path. References are checked
// against lookup on every append. A corrupt database is moved aside and
// replaced by the backup copy if one exists, else by an empty ledger. With
// WithExistingState, a ledger missing without a backup is opened as lost:
// every call fails with ErrLedgerUnavailable and no file is created.
func OpenLedger(ctx context.Context, path string, lookup EntityLookup, opts ...Option) (*SQLiteLedger, error) {
	l := &SQLiteLedger{
		path:   path,
		lookup: lookup,
		opts:   newSettings(opts),
	}
	l.log = l.opts.logger.Named("ledger")

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("%w: create data dir: %w", ErrStorage, err)
	}

	db, source, err := l.open(ctx)
	if err != nil {
		return nil, err
	}
	l.db, l.source = db, source
	if source == SourceLost {
		return l, nil
	}

	if l.opts.backup && source == SourcePrimary {
		if err := l.backup(ctx, BackupPath(path)); err != nil {
			l.log.Warn(ctx, "ledger backup failed", logger.Error(err))
		}
	}

	n, err := l.Len(ctx)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	metrics.UpdateLedgerRecords(n)
	l.log.Debug(ctx, "ledger opened", logger.String("path", path), logger.String("source", string(source)), logger.Int("records", n))
	return l, nil
}

func (l *SQLiteLedger) open(ctx context.Context) (*sql.DB, Source, error) {
	if l.opts.existing && !exists(l.path) && !exists(BackupPath(l.path)) {
		metrics.RecordStorageRecovery("ledger", string(SourceLost))
		l.log.Warn(ctx, "ledger missing from a data directory with existing state", logger.String("path", l.path))
		return nil, SourceLost, nil
	}

	recovered := false
	if exists(l.path) {
		db, err := openDB(ctx, l.path)
		if err == nil {
			return db, SourcePrimary, nil
		}
		l.log.Warn(ctx, "ledger unreadable, trying backup", logger.String("path", l.path), logger.Error(err))
		if err := discard(l.path); err != nil {
			return nil, "", err
		}
		recovered = true
	}

	if backup := BackupPath(l.path); exists(backup) {
		if err := copyFile(backup, l.path); err != nil {
			l.log.Warn(ctx, "ledger backup unreadable", logger.Error(err))
		} else if db, err := openDB(ctx, l.path); err == nil {
			metrics.RecordStorageRecovery("ledger", string(SourceBackup))
			l.log.Warn(ctx, "ledger restored from backup", logger.String("backup", backup))
			return db, SourceBackup, nil
		} else {
			l.log.Warn(ctx, "ledger backup unreadable", logger.Error(err))
			if err := discard(l.path); err != nil {
				return nil, "", err
			}
		}
		recovered = true
	}

	db, err := openDB(ctx, l.path)
	if err != nil {
		return nil, "", fmt.Errorf("%w: %w", ErrLedgerUnavailable, err)
	}
	if recovered {
		metrics.RecordStorageRecovery("ledger", string(SourceEmpty))
		l.log.Warn(ctx, "ledger recreated empty", logger.String("path", l.path))
	}
	return db, SourceEmpty, nil
}

func openDB(ctx context.Context, path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	// One writer; appends are serialized anyway.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if _, err := db.ExecContext(ctx, "PRAGMA journal_mode = WAL; PRAGMA synchronous = FULL; PRAGMA busy_timeout = 5000;"); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting pragmas: %w", err)
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	if err := quickCheck(ctx, db); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

func quickCheck(ctx context.Context, db *sql.DB) error {
	var result string
	if err := db.QueryRowContext(ctx, "PRAGMA quick_check").Scan(&result); err != nil {
		return fmt.Errorf("integrity check: %w", err)
	}
	if result != "ok" {
		return fmt.Errorf("integrity check: %s", result)
	}
	return nil
}

// discard moves a broken database aside along with its journal files.
func discard(path string) error {
	if err := moveAside(path); err != nil {
		return err
	}
	for _, suffix := range []string{"-wal", "-shm"} {
		if err := os.Remove(path + suffix); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("%w: remove %s: %w", ErrStorage, path+suffix, err)
		}
	}
	return nil
}

// backup writes a consistent copy of the database to dst.
func (l *SQLiteLedger) backup(ctx context.Context, dst string) error {
	tmp := dst + ".tmp"
	_ = os.Remove(tmp)
	if _, err := l.db.ExecContext(ctx, "VACUUM INTO ?", tmp); err != nil {
		return fmt.Errorf("%w: vacuum into %s: %w", ErrStorage, tmp, err)
	}
	if err := os.Rename(tmp, dst); err != nil {
		return fmt.Errorf("%w: rename %s: %w", ErrStorage, dst, err)
	}
	return nil
}

// Source reports where the ledger came from when it was opened.
func (l *SQLiteLedger) Source() Source { return l.source }

// Path is the database location.
func (l *SQLiteLedger) Path() string { return l.path }

// Append checks the match against the ledger invariants and stores it.
// Checks run in order: winner among the players, distinct players, known
// references.
func (l *SQLiteLedger) Append(ctx context.Context, in model.MatchInput) (model.MatchRecord, error) {
	if l.db == nil {
		return model.MatchRecord{}, l.lost()
	}
	rec, err := l.resolve(in)
	if err != nil {
		metrics.RecordMatchRejected(rejectReason(err))
		return model.MatchRecord{}, err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	tx, err := l.db.BeginTx(ctx, nil)
	if err != nil {
		metrics.RecordStorageError("ledger", "append")
		return model.MatchRecord{}, fmt.Errorf("%w: begin: %w", ErrStorage, err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `
		INSERT INTO matches (id, game_id, game_name, player_one_id, player_one_name,
			player_two_id, player_two_name, winner_id, match_date)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, rec.ID, rec.Game.ID, rec.Game.Name, rec.PlayerOne.ID, rec.PlayerOne.Name,
		rec.PlayerTwo.ID, rec.PlayerTwo.Name, rec.WinnerID, rec.Date.Format(model.DateLayout))
	if err != nil {
		metrics.RecordStorageError("ledger", "append")
		return model.MatchRecord{}, fmt.Errorf("%w: insert match: %w", ErrStorage, err)
	}
	if rec.Seq, err = res.LastInsertId(); err != nil {
		return model.MatchRecord{}, fmt.Errorf("%w: sequence: %w", ErrStorage, err)
	}

	var n int
	if err := tx.QueryRowContext(ctx, "SELECT COUNT(*) FROM matches").Scan(&n); err != nil {
		return model.MatchRecord{}, fmt.Errorf("%w: count: %w", ErrStorage, err)
	}
	if err := tx.Commit(); err != nil {
		metrics.RecordStorageError("ledger", "append")
		return model.MatchRecord{}, fmt.Errorf("%w: commit: %w", ErrStorage, err)
	}

	metrics.RecordMatchRecorded()
	metrics.UpdateLedgerRecords(n)
	l.log.Info(ctx, "match recorded",
		logger.Any("seq", rec.Seq),
		logger.String("game", rec.Game.Name),
		logger.String("winner", rec.Winner().Name),
		logger.String("loser", rec.Loser().Name),
		logger.String("date", rec.Date.Format(model.DateLayout)),
	)
	return rec, nil
}

func (l *SQLiteLedger) resolve(in model.MatchInput) (model.MatchRecord, error) {
	if in.Winner != in.PlayerOne && in.Winner != in.PlayerTwo {
		return model.MatchRecord{}, fmt.Errorf("%w: %q is neither %q nor %q", ErrInvalidWinner, in.Winner, in.PlayerOne, in.PlayerTwo)
	}
	if in.PlayerOne == in.PlayerTwo {
		return model.MatchRecord{}, fmt.Errorf("%w: %q", ErrSamePlayer, in.PlayerOne)
	}
	if in.Date.IsZero() {
		return model.MatchRecord{}, ErrMissingDate
	}

	game, ok := l.lookup.Lookup(model.KindGame, in.Game)
	if !ok {
		return model.MatchRecord{}, fmt.Errorf("%w: game %q", ErrUnknownReference, in.Game)
	}
	p1, ok := l.lookup.Lookup(model.KindPlayer, in.PlayerOne)
	if !ok {
		return model.MatchRecord{}, fmt.Errorf("%w: player %q", ErrUnknownReference, in.PlayerOne)
	}
	p2, ok := l.lookup.Lookup(model.KindPlayer, in.PlayerTwo)
	if !ok {
		return model.MatchRecord{}, fmt.Errorf("%w: player %q", ErrUnknownReference, in.PlayerTwo)
	}

	winner := p1.ID
	if in.Winner == p2.Name {
		winner = p2.ID
	}
	return model.MatchRecord{
		ID:        uuid.NewString(),
		Game:      game.Ref(),
		PlayerOne: p1.Ref(),
		PlayerTwo: p2.Ref(),
		WinnerID:  winner,
		Date:      model.NormalizeDate(in.Date),
	}, nil
}

func rejectReason(err error) string {
	switch {
	case errors.Is(err, ErrInvalidWinner):
		return "invalid_winner"
	case errors.Is(err, ErrSamePlayer):
		return "same_player"
	case errors.Is(err, ErrUnknownReference):
		return "unknown_reference"
	case errors.Is(err, ErrMissingDate):
		return "missing_date"
	default:
		return "other"
	}
}

// ReadAll returns every record in ledger order.
func (l *SQLiteLedger) ReadAll(ctx context.Context) ([]model.MatchRecord, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.db == nil {
		return nil, l.lost()
	}

	rows, err := l.db.QueryContext(ctx, `
		SELECT seq, id, game_id, game_name, player_one_id, player_one_name,
			player_two_id, player_two_name, winner_id, match_date
		FROM matches ORDER BY seq
	`)
	if err != nil {
		return nil, fmt.Errorf("%w: read matches: %w", ErrLedgerUnavailable, err)
	}
	defer rows.Close()

	var out []model.MatchRecord
	for rows.Next() {
		var rec model.MatchRecord
		var date string
		if err := rows.Scan(&rec.Seq, &rec.ID, &rec.Game.ID, &rec.Game.Name,
			&rec.PlayerOne.ID, &rec.PlayerOne.Name, &rec.PlayerTwo.ID, &rec.PlayerTwo.Name,
			&rec.WinnerID, &date); err != nil {
			return nil, fmt.Errorf("%w: scan match: %w", ErrLedgerUnavailable, err)
		}
		if rec.Date, err = time.Parse(model.DateLayout, date); err != nil {
			return nil, fmt.Errorf("%w: match %s: %w", ErrLedgerUnavailable, rec.ID, err)
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: read matches: %w", ErrLedgerUnavailable, err)
	}
	return out, nil
}

// Len is the number of stored records.
func (l *SQLiteLedger) Len(ctx context.Context) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.db == nil {
		return 0, l.lost()
	}
	var n int
	if err := l.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM matches").Scan(&n); err != nil {
		return 0, fmt.Errorf("%w: count matches: %w", ErrLedgerUnavailable, err)
	}
	return n, nil
}

// Verify checks that the database file still exists and passes an
// integrity check.
func (l *SQLiteLedger) Verify(ctx context.Context) error {
	if _, err := os.Stat(l.path); err != nil {
		return fmt.Errorf("%w: %w", ErrLedgerUnavailable, err)
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.db == nil {
		return l.lost()
	}
	if err := quickCheck(ctx, l.db); err != nil {
		return fmt.Errorf("%w: %w", ErrLedgerUnavailable, err)
	}
	return nil
}

// Close closes the database.
func (l *SQLiteLedger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.db == nil {
		return nil
	}
	return l.db.Close()
}

func (l *SQLiteLedger) lost() error {
	return fmt.Errorf("%w: %s is missing", ErrLedgerUnavailable, l.path)
}

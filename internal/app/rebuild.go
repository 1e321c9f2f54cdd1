package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/natefinch/atomic"

	"github.com/okian/grudgematch/internal/adapters/repository"
	"github.com/okian/grudgematch/internal/domain/model"
	"github.com/okian/grudgematch/internal/domain/standings"
	"github.com/okian/grudgematch/pkg/logger"
	"github.com/okian/grudgematch/pkg/metrics"
)

// RebuildReport describes one rebuild run.
type RebuildReport struct {
	// Records is the number of ledger records folded.
	Records int `json:"records"`
	// Restored lists the entities recreated from ledger references.
	Restored []model.Entity `json:"restored"`
	// Merged lists ledger identities folded into a stored entity of the
	// same name.
	Merged []model.Entity `json:"merged"`
	// Snapshot is the path of the standings file written.
	Snapshot string `json:"snapshot"`
	// Changed is false when the snapshot bytes were already up to date.
	Changed bool `json:"changed"`
}

// VerifyReport compares the persisted standings with a fresh fold.
type VerifyReport struct {
	Records  int      `json:"records"`
	Snapshot string   `json:"snapshot"`
	Missing  bool     `json:"missing"`
	Drift    []string `json:"drift"`
}

// Consistent reports whether the persisted standings match the ledger.
func (r VerifyReport) Consistent() bool { return !r.Missing && len(r.Drift) == 0 }

// Rebuilder reconstructs the entity set and the standings snapshot from the
// ledger alone.
type Rebuilder struct {
	entities repository.EntityStore
	ledger   repository.Ledger
	path     string
	log      logger.Logger
}

// NewRebuilder writes its snapshot to path.
func NewRebuilder(entities repository.EntityStore, ledger repository.Ledger, path string, log logger.Logger) *Rebuilder {
	return &Rebuilder{
		entities: entities,
		ledger:   ledger,
		path:     path,
		log:      log,
	}
}

// Rebuild reads the whole ledger, folds the records in ledger order and
// persists the resulting standings, then restores every referenced entity
// the store lacks. A failed restore puts the previous standings back.
// Running it again on an unchanged ledger writes the same bytes.
func (r *Rebuilder) Rebuild(ctx context.Context) (RebuildReport, error) {
	start := time.Now()
	report, err := r.rebuild(ctx)

	outcome := "ok"
	switch {
	case errors.Is(err, ErrLedgerUnreadable):
		outcome = "ledger_unreadable"
	case err != nil:
		outcome = "failed"
	}
	metrics.RecordRebuild(outcome, time.Since(start).Seconds())

	if err != nil {
		r.log.Error(ctx, "rebuild failed", logger.Error(err))
		return RebuildReport{}, err
	}
	r.log.Info(ctx, "rebuild finished",
		logger.Int("records", report.Records),
		logger.Int("restored", len(report.Restored)),
		logger.Bool("changed", report.Changed),
		logger.Duration("took", time.Since(start)),
	)
	return report, nil
}

func (r *Rebuilder) rebuild(ctx context.Context) (RebuildReport, error) {
	records, err := r.read(ctx)
	if err != nil {
		return RebuildReport{}, err
	}
	plan, err := r.reconcile(records)
	if err != nil {
		return RebuildReport{}, err
	}

	players := append(r.entities.List(model.KindPlayer, false), plan.added(model.KindPlayer)...)
	games := append(r.entities.List(model.KindGame, false), plan.added(model.KindGame)...)
	data, err := standings.NewSnapshot(standings.Fold(plan.records), players, games).Encode()
	if err != nil {
		return RebuildReport{}, fmt.Errorf("%w: %w", ErrReconciliation, err)
	}

	prev, err := os.ReadFile(r.path)
	existed := err == nil
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		r.log.Warn(ctx, "previous standings unreadable", logger.Error(err))
	}
	changed := !bytes.Equal(prev, data)
	if changed {
		if err := r.write(data); err != nil {
			return RebuildReport{}, err
		}
	}

	if err := r.entities.Restore(ctx, plan.entities()); err != nil {
		if changed {
			r.rollback(ctx, prev, existed)
		}
		return RebuildReport{}, fmt.Errorf("%w: restore entities: %w", ErrReconciliation, err)
	}

	return RebuildReport{
		Records:  len(records),
		Restored: plan.restored,
		Merged:   plan.merged,
		Snapshot: r.path,
		Changed:  changed,
	}, nil
}

func (r *Rebuilder) write(data []byte) error {
	if err := atomic.WriteFile(r.path, bytes.NewReader(data)); err != nil {
		metrics.RecordStorageError("standings", "write")
		return fmt.Errorf("%w: write %s: %w", ErrReconciliation, r.path, err)
	}
	return nil
}

// rollback puts the standings file back the way it was before a failed
// rebuild.
func (r *Rebuilder) rollback(ctx context.Context, prev []byte, existed bool) {
	var err error
	if existed {
		err = r.write(prev)
	} else if err = os.Remove(r.path); errors.Is(err, fs.ErrNotExist) {
		err = nil
	}
	if err != nil {
		r.log.Error(ctx, "standings rollback failed", logger.String("path", r.path), logger.Error(err))
	}
}

// Recover restores the entities the ledger references but the store lacks,
// without touching the standings. It runs when the entity store had to be
// recovered at startup.
func (r *Rebuilder) Recover(ctx context.Context) ([]model.Entity, error) {
	records, err := r.ledger.ReadAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLedgerUnreadable, err)
	}
	plan, err := r.reconcile(records)
	if err != nil {
		return nil, err
	}
	entities := plan.entities()
	if err := r.entities.Restore(ctx, entities); err != nil {
		return nil, fmt.Errorf("%w: restore entities: %w", ErrReconciliation, err)
	}
	return entities, nil
}

// Verify folds the ledger and compares it with the persisted snapshot
// without writing anything.
func (r *Rebuilder) Verify(ctx context.Context) (VerifyReport, error) {
	records, err := r.read(ctx)
	if err != nil {
		return VerifyReport{}, err
	}
	want := r.snapshot(standings.Fold(canonical(r.entities, records)))
	report := VerifyReport{Records: len(records), Snapshot: r.path}

	f, err := os.Open(r.path)
	if errors.Is(err, fs.ErrNotExist) {
		report.Missing = true
		return report, nil
	}
	if err != nil {
		return VerifyReport{}, fmt.Errorf("%w: open %s: %w", ErrReconciliation, r.path, err)
	}
	defer f.Close()

	got, err := standings.DecodeSnapshot(f)
	if err != nil {
		return VerifyReport{}, fmt.Errorf("%w: %s: %w", ErrReconciliation, r.path, err)
	}
	report.Drift = standings.Diff(want, got)
	return report, nil
}

func (r *Rebuilder) read(ctx context.Context) ([]model.MatchRecord, error) {
	if err := r.ledger.Verify(ctx); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLedgerUnreadable, err)
	}
	records, err := r.ledger.ReadAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLedgerUnreadable, err)
	}
	return records, nil
}

func (r *Rebuilder) snapshot(t *standings.Tally) standings.Snapshot {
	return standings.NewSnapshot(t,
		r.entities.List(model.KindPlayer, false),
		r.entities.List(model.KindGame, false),
	)
}

// reconciliation is what a rebuild has to change in the entity store, and
// the ledger records rewritten to the identifiers the store will hold.
type reconciliation struct {
	restored []model.Entity
	merged   []model.Entity
	records  []model.MatchRecord
}

func (p reconciliation) added(kind model.Kind) []model.Entity {
	var out []model.Entity
	for _, e := range p.restored {
		if e.Kind == kind {
			out = append(out, e)
		}
	}
	return out
}

// entities lists restored entities before merged ones, so a merge can
// target an entity restored in the same call.
func (p reconciliation) entities() []model.Entity {
	return append(append([]model.Entity(nil), p.restored...), p.merged...)
}

// reconcile matches every ledger reference to a store entity. A reference
// the store knows by identifier or alias keeps that entity. One whose name
// the store holds under another identifier is merged into it. Anything else
// is restored with its ledger identifier. An identifier recorded or stored
// under a different name cannot be reconciled.
func (r *Rebuilder) reconcile(records []model.MatchRecord) (reconciliation, error) {
	type resolved struct{ id, name string }
	seen := map[model.Kind]map[string]resolved{
		model.KindPlayer: {},
		model.KindGame:   {},
	}
	pending := map[model.Kind]map[string]string{
		model.KindPlayer: {},
		model.KindGame:   {},
	}
	var plan reconciliation

	resolve := func(kind model.Kind, ref model.Ref) (string, error) {
		if prev, ok := seen[kind][ref.ID]; ok {
			if prev.name != ref.Name {
				return "", fmt.Errorf("%w: %s %s recorded as both %q and %q", ErrReconciliation, kind, ref.ID, prev.name, ref.Name)
			}
			return prev.id, nil
		}

		id := ref.ID
		entity := model.Entity{ID: ref.ID, Kind: kind, Name: ref.Name, Active: true}
		if e, ok := r.entities.ByID(kind, ref.ID); ok {
			if e.Name != ref.Name {
				return "", fmt.Errorf("%w: %s %s is %q in the entity store but %q in the ledger", ErrReconciliation, kind, ref.ID, e.Name, ref.Name)
			}
			id = e.ID
		} else if e, ok := r.entities.Lookup(kind, ref.Name); ok {
			id = e.ID
			plan.merged = append(plan.merged, entity)
		} else if holder, ok := pending[kind][ref.Name]; ok {
			id = holder
			plan.merged = append(plan.merged, entity)
		} else {
			pending[kind][ref.Name] = ref.ID
			plan.restored = append(plan.restored, entity)
		}
		seen[kind][ref.ID] = resolved{id: id, name: ref.Name}
		return id, nil
	}

	plan.records = make([]model.MatchRecord, 0, len(records))
	for _, rec := range records {
		game, err := resolve(model.KindGame, rec.Game)
		if err != nil {
			return reconciliation{}, err
		}
		one, err := resolve(model.KindPlayer, rec.PlayerOne)
		if err != nil {
			return reconciliation{}, err
		}
		two, err := resolve(model.KindPlayer, rec.PlayerTwo)
		if err != nil {
			return reconciliation{}, err
		}
		plan.records = append(plan.records, rec.WithIDs(game, one, two))
	}
	return plan, nil
}

package repository

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/google/uuid"
	"github.com/natefinch/atomic"

	"github.com/okian/grudgematch/internal/domain/model"
	"github.com/okian/grudgematch/internal/domain/naming"
	"github.com/okian/grudgematch/pkg/logger"
	"github.com/okian/grudgematch/pkg/metrics"
)

const entityDocumentVersion = 1

// ErrConflict reports an entity whose identifier and name disagree with the
// stored set.
var ErrConflict = errors.New("entity identity conflict")

// entityDocument is the on-disk form of the entity set.
type entityDocument struct {
	Version int            `json:"version"`
	Players []model.Entity `json:"players"`
	Games   []model.Entity `json:"games"`
}

// FileEntityStore keeps the entity set in memory and rewrites a JSON
// document atomically after every successful mutation.
type FileEntityStore struct {
	mu     sync.RWMutex
	path   string
	opts   settings
	log    logger.Logger
	source Source
	closed bool

	byID   map[model.Kind]map[string]*model.Entity
	byName map[model.Kind]map[string]string
	alias  map[model.Kind]map[string]string
}

var _ EntityStore = (*FileEntityStore)(nil)

// OpenEntityStore loads the entity set at path. A file that cannot be read
// or holds an inconsistent set is moved aside and replaced by the backup
// copy if one exists, else by an empty set.
func OpenEntityStore(ctx context.Context, path string, opts ...Option) (*FileEntityStore, error) {
	s := &FileEntityStore{
		path: path,
		opts: newSettings(opts),
	}
	s.log = s.opts.logger.Named("entities")
	s.reset()

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("%w: create data dir: %w", ErrStorage, err)
	}

	err := s.loadFile(path)
	switch {
	case err == nil:
		s.source = SourcePrimary
	case errors.Is(err, fs.ErrNotExist) && !exists(BackupPath(path)):
		s.source = SourceEmpty
	default:
		s.log.Warn(ctx, "entity store unreadable, trying backup", logger.String("path", path), logger.Error(err))
		if err := moveAside(path); err != nil {
			return nil, err
		}
		if err := s.loadFile(BackupPath(path)); err == nil {
			s.source = SourceBackup
		} else {
			s.log.Warn(ctx, "entity backup unreadable, starting empty", logger.String("path", BackupPath(path)), logger.Error(err))
			s.source = SourceEmpty
		}
		metrics.RecordStorageRecovery("entities", string(s.source))
	}

	if s.source != SourcePrimary {
		if err := s.persist(); err != nil {
			return nil, err
		}
	}
	if s.opts.backup && s.source == SourcePrimary {
		if err := copyFile(path, BackupPath(path)); err != nil {
			s.log.Warn(ctx, "entity backup failed", logger.Error(err))
		}
	}

	s.updateGauges()
	s.log.Debug(ctx, "entity store opened",
		logger.String("path", path),
		logger.String("source", string(s.source)),
		logger.Int("players", len(s.byID[model.KindPlayer])),
		logger.Int("games", len(s.byID[model.KindGame])),
	)
	return s, nil
}

func readEntityDocument(path string) (entityDocument, error) {
	var doc entityDocument
	b, err := os.ReadFile(path)
	if err != nil {
		return doc, err
	}
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&doc); err != nil {
		return doc, fmt.Errorf("parse %s: %w", path, err)
	}
	if doc.Version != entityDocumentVersion {
		return doc, fmt.Errorf("parse %s: unsupported version %d", path, doc.Version)
	}
	return doc, nil
}

func (s *FileEntityStore) reset() {
	s.byID = make(map[model.Kind]map[string]*model.Entity, len(model.Kinds))
	s.byName = make(map[model.Kind]map[string]string, len(model.Kinds))
	s.alias = make(map[model.Kind]map[string]string, len(model.Kinds))
	for _, k := range model.Kinds {
		s.byID[k] = make(map[string]*model.Entity)
		s.byName[k] = make(map[string]string)
		s.alias[k] = make(map[string]string)
	}
}

// loadFile replaces the in-memory set with the document at path. On error
// the set is left empty.
func (s *FileEntityStore) loadFile(path string) error {
	s.reset()
	doc, err := readEntityDocument(path)
	if err == nil {
		err = s.load(doc)
	}
	if err != nil {
		s.reset()
		return err
	}
	return nil
}

func (s *FileEntityStore) load(doc entityDocument) error {
	for kind, list := range map[model.Kind][]model.Entity{model.KindPlayer: doc.Players, model.KindGame: doc.Games} {
		for _, e := range list {
			e.Kind = kind
			if e.ID == "" {
				return fmt.Errorf("%w: %s %q has no id", ErrStorage, kind, e.Name)
			}
			if err := s.insert(e); err != nil {
				return err
			}
		}
	}
	return nil
}

func (s *FileEntityStore) insert(e model.Entity) error {
	if other, ok := s.byName[e.Kind][e.Name]; ok && other != e.ID {
		return fmt.Errorf("%w: %s name %q held by %s", ErrConflict, e.Kind, e.Name, other)
	}
	if prev, ok := s.resolve(e.Kind, e.ID); ok && prev.Name != e.Name {
		return fmt.Errorf("%w: %s id %s named %q, not %q", ErrConflict, e.Kind, e.ID, prev.Name, e.Name)
	}
	for _, a := range e.Aliases {
		if prev, ok := s.resolve(e.Kind, a); ok && prev.ID != e.ID {
			return fmt.Errorf("%w: %s id %s held by %q, not %q", ErrConflict, e.Kind, a, prev.Name, e.Name)
		}
	}
	cp := e.Clone()
	s.byID[e.Kind][e.ID] = &cp
	s.byName[e.Kind][e.Name] = e.ID
	for _, a := range e.Aliases {
		s.alias[e.Kind][a] = e.ID
	}
	return nil
}

func (s *FileEntityStore) remove(kind model.Kind, id string) {
	if e, ok := s.byID[kind][id]; ok {
		for _, a := range e.Aliases {
			delete(s.alias[kind], a)
		}
		delete(s.byName[kind], e.Name)
		delete(s.byID[kind], id)
	}
}

// resolve finds an entity by identifier or alias.
func (s *FileEntityStore) resolve(kind model.Kind, id string) (*model.Entity, bool) {
	if e, ok := s.byID[kind][id]; ok {
		return e, true
	}
	if canon, ok := s.alias[kind][id]; ok {
		return s.byID[kind][canon], true
	}
	return nil, false
}

// persist writes the whole set. Callers hold the write lock.
func (s *FileEntityStore) persist() error {
	doc := entityDocument{
		Version: entityDocumentVersion,
		Players: s.sorted(model.KindPlayer, false),
		Games:   s.sorted(model.KindGame, false),
	}
	b, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("%w: encode entities: %w", ErrStorage, err)
	}
	if err := atomic.WriteFile(s.path, bytes.NewReader(append(b, '\n'))); err != nil {
		metrics.RecordStorageError("entities", "write")
		return fmt.Errorf("%w: write %s: %w", ErrStorage, s.path, err)
	}
	return nil
}

func (s *FileEntityStore) sorted(kind model.Kind, activeOnly bool) []model.Entity {
	out := make([]model.Entity, 0, len(s.byID[kind]))
	for _, e := range s.byID[kind] {
		if activeOnly && !e.Active {
			continue
		}
		out = append(out, e.Clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Source reports where the state came from when the store was opened.
func (s *FileEntityStore) Source() Source {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.source
}

// Path is the primary document location.
func (s *FileEntityStore) Path() string { return s.path }

// Lookup finds an entity by exact name.
func (s *FileEntityStore) Lookup(kind model.Kind, name string) (model.Entity, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.byName[kind][name]
	if !ok {
		return model.Entity{}, false
	}
	return s.byID[kind][id].Clone(), true
}

// ByID finds an entity by identifier or by one of its aliases.
func (s *FileEntityStore) ByID(kind model.Kind, id string) (model.Entity, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.resolve(kind, id)
	if !ok {
		return model.Entity{}, false
	}
	return e.Clone(), true
}

// List returns entities ordered by name.
func (s *FileEntityStore) List(kind model.Kind, activeOnly bool) []model.Entity {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.sorted(kind, activeOnly)
}

// Validate reports the naming outcome for a new entity called name.
func (s *FileEntityStore) Validate(kind model.Kind, name string) naming.Code {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.validate(kind, name)
}

func (s *FileEntityStore) validate(kind model.Kind, name string) naming.Code {
	return naming.Validate(kind, name, func(n string) (bool, bool) {
		id, ok := s.byName[kind][n]
		if !ok {
			return false, false
		}
		return true, s.byID[kind][id].Active
	})
}

// Add creates a new active entity.
func (s *FileEntityStore) Add(ctx context.Context, kind model.Kind, name string) (model.Entity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return model.Entity{}, ErrClosed
	}

	if code := s.validate(kind, name); code != naming.Valid {
		metrics.RecordNameRejected(kind.String(), code.String())
		return model.Entity{}, naming.NewValidationError(kind, name, code)
	}

	e := model.Entity{ID: uuid.NewString(), Kind: kind, Name: name, Active: true}
	if err := s.insert(e); err != nil {
		return model.Entity{}, err
	}
	if err := s.persist(); err != nil {
		s.remove(kind, e.ID)
		return model.Entity{}, err
	}

	metrics.RecordEntityChange(kind.String(), "add")
	s.updateGauges()
	s.log.Info(ctx, "entity added", logger.String("kind", kind.String()), logger.String("name", name), logger.String("id", e.ID))
	return e, nil
}

// Activate marks the named entity active.
func (s *FileEntityStore) Activate(ctx context.Context, kind model.Kind, name string) (model.Entity, error) {
	return s.mutate(ctx, kind, name, "activate", func(e *model.Entity) { e.Active = true })
}

// Deactivate marks the named entity inactive. Its history is untouched.
func (s *FileEntityStore) Deactivate(ctx context.Context, kind model.Kind, name string) (model.Entity, error) {
	return s.mutate(ctx, kind, name, "deactivate", func(e *model.Entity) { e.Active = false })
}

// SetGameInfo replaces the descriptive info of a game. A zero info clears it.
func (s *FileEntityStore) SetGameInfo(ctx context.Context, name string, info model.GameInfo) (model.Entity, error) {
	return s.mutate(ctx, model.KindGame, name, "info", func(e *model.Entity) {
		if info.IsZero() {
			e.Info = nil
			return
		}
		cp := info
		e.Info = &cp
	})
}

// mutate applies fn to the named entity and persists, restoring the previous
// value if the write fails. A change that leaves the entity as it was is not
// written.
func (s *FileEntityStore) mutate(ctx context.Context, kind model.Kind, name, action string, fn func(*model.Entity)) (model.Entity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return model.Entity{}, ErrClosed
	}

	id, ok := s.byName[kind][name]
	if !ok {
		return model.Entity{}, fmt.Errorf("%w: %s %q", ErrNotFound, kind, name)
	}
	e := s.byID[kind][id]
	prev := e.Clone()
	fn(e)
	if sameEntity(prev, *e) {
		return e.Clone(), nil
	}
	if err := s.persist(); err != nil {
		*e = prev
		return model.Entity{}, err
	}

	metrics.RecordEntityChange(kind.String(), action)
	s.updateGauges()
	s.log.Info(ctx, "entity updated",
		logger.String("kind", kind.String()),
		logger.String("name", name),
		logger.String("action", action),
		logger.String("state", e.State()),
	)
	return e.Clone(), nil
}

func sameEntity(a, b model.Entity) bool {
	if a.Active != b.Active || (a.Info == nil) != (b.Info == nil) {
		return false
	}
	return a.Info == nil || *a.Info == *b.Info
}

// Restore inserts entities recovered from the ledger. Entities already
// known under the same identifier and name are skipped. An entity whose
// name is held under another identifier is merged into the holder: its
// identifier becomes an alias. Either every entity is stored or none is.
func (s *FileEntityStore) Restore(ctx context.Context, entities []model.Entity) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}

	var undo []func()
	rollback := func() {
		for i := len(undo) - 1; i >= 0; i-- {
			undo[i]()
		}
	}
	var restored, merged []model.Entity
	for _, e := range entities {
		if prev, ok := s.resolve(e.Kind, e.ID); ok && prev.Name == e.Name {
			continue
		}
		if id, ok := s.byName[e.Kind][e.Name]; ok {
			if err := s.addAlias(e.Kind, id, e.ID); err != nil {
				rollback()
				return err
			}
			undo = append(undo, func() { s.dropAlias(e.Kind, id, e.ID) })
			merged = append(merged, e)
			continue
		}
		if err := s.insert(e); err != nil {
			rollback()
			return err
		}
		undo = append(undo, func() { s.remove(e.Kind, e.ID) })
		restored = append(restored, e)
	}
	if len(undo) == 0 {
		return nil
	}
	if err := s.persist(); err != nil {
		rollback()
		return err
	}

	for _, e := range restored {
		metrics.RecordEntityChange(e.Kind.String(), "restore")
	}
	for _, e := range merged {
		metrics.RecordEntityChange(e.Kind.String(), "merge")
	}
	s.updateGauges()
	s.log.Info(ctx, "entities restored from ledger",
		logger.Int("added", len(restored)),
		logger.Int("merged", len(merged)),
	)
	return nil
}

func (s *FileEntityStore) addAlias(kind model.Kind, id, alias string) error {
	e := s.byID[kind][id]
	if prev, ok := s.resolve(kind, alias); ok {
		return fmt.Errorf("%w: %s id %s held by %q, not %q", ErrConflict, kind, alias, prev.Name, e.Name)
	}
	e.Aliases = append(e.Aliases, alias)
	s.alias[kind][alias] = id
	return nil
}

func (s *FileEntityStore) dropAlias(kind model.Kind, id, alias string) {
	e := s.byID[kind][id]
	for i, a := range e.Aliases {
		if a == alias {
			e.Aliases = append(e.Aliases[:i:i], e.Aliases[i+1:]...)
			break
		}
	}
	if len(e.Aliases) == 0 {
		e.Aliases = nil
	}
	delete(s.alias[kind], alias)
}

// Close marks the store closed. State is already on disk.
func (s *FileEntityStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

func (s *FileEntityStore) updateGauges() {
	for _, kind := range model.Kinds {
		active := 0
		for _, e := range s.byID[kind] {
			if e.Active {
				active++
			}
		}
		metrics.UpdateEntityCount(kind.String(), "active", active)
		metrics.UpdateEntityCount(kind.String(), "inactive", len(s.byID[kind])-active)
	}
}

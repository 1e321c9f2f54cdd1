// Package repository persists the entity set and the match ledger.
package repository

import (
	"context"

	"github.com/okian/grudgematch/internal/domain/model"
	"github.com/okian/grudgematch/internal/domain/naming"
)

// EntityLookup resolves entity names. The ledger uses it to check
// references without depending on the full store.
type EntityLookup interface {
	// Lookup finds an entity of kind by exact name, active or not.
	Lookup(kind model.Kind, name string) (model.Entity, bool)
}

// EntityStore owns players and games.
type EntityStore interface {
	EntityLookup

	// Validate reports the naming outcome for a prospective new entity.
	Validate(kind model.Kind, name string) naming.Code
	// Add creates an active entity. The name must validate.
	Add(ctx context.Context, kind model.Kind, name string) (model.Entity, error)
	// Activate and Deactivate flip the lifecycle flag. Returns ErrNotFound
	// for unknown names.
	Activate(ctx context.Context, kind model.Kind, name string) (model.Entity, error)
	Deactivate(ctx context.Context, kind model.Kind, name string) (model.Entity, error)
	// SetGameInfo replaces the descriptive info of a game.
	SetGameInfo(ctx context.Context, name string, info model.GameInfo) (model.Entity, error)
	// ByID finds an entity by its identifier or one of its aliases.
	ByID(kind model.Kind, id string) (model.Entity, bool)
	// List returns entities of kind ordered by name.
	List(kind model.Kind, activeOnly bool) []model.Entity
	// Restore inserts entities recovered from the ledger, keeping their
	// identifiers. Names are not validated. A name already held under
	// another identifier gains that identifier as an alias.
	Restore(ctx context.Context, entities []model.Entity) error
	// Close releases resources.
	Close() error
}

// Ledger is the append-only match history.
type Ledger interface {
	// Append validates and durably stores one match.
	Append(ctx context.Context, in model.MatchInput) (model.MatchRecord, error)
	// ReadAll returns every record in ledger order.
	ReadAll(ctx context.Context) ([]model.MatchRecord, error)
	// Len is the number of stored records.
	Len(ctx context.Context) (int, error)
	// Verify checks that the backing storage is present and intact.
	Verify(ctx context.Context) error
	// Close releases resources.
	Close() error
}

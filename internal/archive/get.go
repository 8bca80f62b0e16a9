package archive

import (
	"context"
	"fmt"
	"io"
	"log"

	"github.com/google/uuid"

	"github.com/GodsIMiJ1/the-Consciousness-Machine-sub000/pkg/lattice"
)

// EntityKind identifies which tier a retrieved record belongs to.
type EntityKind string

const (
	EntityKindShard      EntityKind = "shard"
	EntityKindCrown      EntityKind = "crown"
	EntityKindGrandCrown EntityKind = "grand_crown"
)

// Entity is a resolved archive record: exactly one payload is set.
type Entity struct {
	Kind       EntityKind          `json:"kind"`
	Shard      *lattice.Shard      `json:"shard,omitempty"`
	Crown      *lattice.Crown      `json:"crown,omitempty"`
	GrandCrown *lattice.GrandCrown `json:"grand_crown,omitempty"`
}

// Sealed reports whether the underlying record carries a seal.
func (e *Entity) Sealed() bool {
	switch e.Kind {
	case EntityKindShard:
		return e.Shard.Sealed
	case EntityKindCrown:
		return e.Crown.FlameSealed
	case EntityKindGrandCrown:
		return e.GrandCrown.FlameSealed
	}
	return false
}

// EntityNotFoundError represents a specific "entity not found" error.
// This allows callers to distinguish not-found errors from other failures.
type EntityNotFoundError struct {
	EntityID string
}

func (e *EntityNotFoundError) Error() string {
	return fmt.Sprintf("entity with ID '%s' not found", e.EntityID)
}

// IsNotFound returns true if the error is an EntityNotFoundError.
func IsNotFound(err error) bool {
	_, ok := err.(*EntityNotFoundError)
	return ok
}

// ResolveEntity looks an ID up across all three tiers, shard first.
func ResolveEntity(ctx context.Context, client *lattice.Client, entityID string) (*Entity, error) {
	if _, err := uuid.Parse(entityID); err != nil {
		return nil, fmt.Errorf("invalid entity ID format: must be a valid UUID")
	}

	shard, err := client.GetShard(ctx, entityID)
	if err == nil {
		return &Entity{Kind: EntityKindShard, Shard: shard}, nil
	}
	if !lattice.IsNotFound(err) {
		return nil, fmt.Errorf("failed to fetch shard: %w", err)
	}

	crown, err := client.GetCrown(ctx, entityID)
	if err == nil {
		return &Entity{Kind: EntityKindCrown, Crown: crown}, nil
	}
	if !lattice.IsNotFound(err) {
		return nil, fmt.Errorf("failed to fetch crown: %w", err)
	}

	grand, err := client.GetGrandCrown(ctx, entityID)
	if err == nil {
		return &Entity{Kind: EntityKindGrandCrown, GrandCrown: grand}, nil
	}
	if !lattice.IsNotFound(err) {
		return nil, fmt.Errorf("failed to fetch grand crown: %w", err)
	}

	return nil, &EntityNotFoundError{EntityID: entityID}
}

// GetEntity resolves an entity by ID and writes it as pretty-printed JSON to
// the writer. Reading a sealed entity appends an ACCESSED event to its audit
// trail, attributed to the accessor.
func GetEntity(ctx context.Context, client *lattice.Client, seals *lattice.SealManager, entityID, accessor string, w io.Writer) error {
	entity, err := ResolveEntity(ctx, client, entityID)
	if err != nil {
		return err
	}

	if entity.Sealed() {
		if err := seals.RecordAccess(ctx, entityID, accessor); err != nil {
			// Access auditing is best effort; the read still succeeds.
			log.Printf("[Archive] Warning: failed to record access to %s: %v", entityID, err)
		}
	}

	if err := FormatSingleJSON(w, entity); err != nil {
		return fmt.Errorf("failed to format entity: %w", err)
	}

	return nil
}

// Package lattice provides type-safe Go definitions, formation rules, and
// Redis schema patterns for the GhostVault memory lattice.
//
// # Overview
//
// The lattice is the hierarchical memory store where atomic memory shards are
// aggregated into crowns and, one tier up, into grand crowns under the Trinity
// Law: exactly 3 shards per crown and exactly 9 crowns per grand crown. A
// third tier (27 grand crowns per sovereign) is declared as a constant but has
// no formation logic; it is a documented extension point.
//
// # Core Concepts
//
// Shards are atomic memory units. A shard is bound to at most one crown; once
// bound, its owning crown and position within it are immutable.
//
// Crowns aggregate exactly three shards. A crown transitions unsealed → sealed
// exactly once via the SealManager; once sealed, its seal hash and authorizing
// decree are immutable. Grand crowns generalize the same lifecycle over nine
// crowns.
//
// Coordinates address every entity with a "system.level.position" string
// (for example "3.0.2" for a shard, "3.1.1" for a crown, "9.1.1" for a grand
// crown). Positions are 1-based and assigned monotonically; they are never
// reused.
//
// Seal events form an append-only audit trail per entity: SEALED records the
// sealing itself, VERIFIED records every verification attempt (successful or
// not), and ACCESSED records reads of sealed entities.
//
// # Multi-Instance Support
//
// All Redis keys and Pub/Sub channels are namespaced by instance name so
// multiple lattice instances can safely coexist on a single Redis server.
//
// # Usage Example
//
//	import "github.com/GodsIMiJ1/the-Consciousness-Machine-sub000/pkg/lattice"
//
//	shard := &lattice.Shard{
//		ID:          uuid.New().String(),
//		Title:       "Trinity Protocol Validation",
//		Content:     "The 3→9→27 lattice structure holds.",
//		Agent:       "NEXUS",
//		TimestampMs: time.Now().UnixMilli(),
//		Tags:        []string{"trinity", "validation"},
//		Coordinates: "3.0.1",
//		ThoughtType: lattice.ThoughtTypeSystem,
//	}
//
//	if err := shard.Validate(); err != nil {
//		log.Fatal(err)
//	}
//
//	key := lattice.ShardKey("default", shard.ID)
//	// key = "lattice:default:shard:<uuid>"
//
// # Redis Schema
//
// Entities: lattice:{instance}:shard:{id}, lattice:{instance}:crown:{id},
// lattice:{instance}:grand:{id} (hashes with JSON-encoded array fields).
//
// Seal events: lattice:{instance}:seals:{entity_id} (append-only list).
//
// Update events: lattice:{instance}:update_events (Pub/Sub channel carrying
// full Update JSON).
//
// # Design Principles
//
//   - Type safety: every entity has a Validate method
//   - Append-only auditability: seal events are never mutated or deleted
//   - Atomic binding: shards are claimed by crowns with a compare-and-set at
//     the store layer, never with an optimistic read-then-write
//   - Isolation: instance namespacing prevents cross-instance interference
package lattice

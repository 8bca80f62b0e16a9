package lattice

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// Trinity Law capacity constants. The sovereign tier is declared for
// completeness but has no formation logic.
const (
	ShardsPerCrown          = 3
	CrownsPerGrand          = 9
	GrandCrownsPerSovereign = 27
)

// ThoughtType categorizes the origin of a shard's content.
type ThoughtType string

const (
	ThoughtTypeSystem      ThoughtType = "system"
	ThoughtTypeObservation ThoughtType = "observation"
	ThoughtTypeReflection  ThoughtType = "reflection"
	ThoughtTypeCommand     ThoughtType = "command"
)

// Validate checks if the ThoughtType is a valid enum value.
func (tt ThoughtType) Validate() error {
	switch tt {
	case ThoughtTypeSystem, ThoughtTypeObservation, ThoughtTypeReflection, ThoughtTypeCommand:
		return nil
	default:
		return fmt.Errorf("unknown thought type: %q", tt)
	}
}

// Shard represents an atomic memory unit, the leaf entity of the lattice.
// A shard is bound to at most one crown; once bound, CrownID and
// LatticePosition are immutable.
type Shard struct {
	ID              string      `json:"id"`               // UUID - unique identifier for this shard
	Title           string      `json:"title"`            // Short human-readable title
	Content         string      `json:"content"`          // Main memory content
	Agent           string      `json:"agent"`            // Originating agent name
	TimestampMs     int64       `json:"timestamp_ms"`     // Unix timestamp in milliseconds when the shard was recorded
	Tags            []string    `json:"tags"`             // Free-form tag set
	CrownID         string      `json:"crown_id"`         // Owning crown UUID, empty while unbound
	LatticePosition int         `json:"lattice_position"` // Position within the owning crown (1-3), 0 while unbound
	Coordinates     string      `json:"coordinates"`      // Lattice address, e.g. "3.0.2"
	Sealed          bool        `json:"sealed"`           // Whether the shard itself carries a seal
	ThoughtType     ThoughtType `json:"thought_type"`     // Content category
}

// Crown represents an aggregation of exactly three shards under the Trinity
// Law. Once FlameSealed is true, SealHash and RoyalDecree are immutable.
type Crown struct {
	ID                 string   `json:"id"`                    // UUID - unique identifier for this crown
	Title              string   `json:"title"`                 // Short human-readable title
	Description        string   `json:"description"`           // Longer description of the aggregation
	Agent              string   `json:"agent"`                 // Agent that requested the formation
	CreatedAtMs        int64    `json:"created_at_ms"`         // Unix timestamp in milliseconds at formation
	UpdatedAtMs        int64    `json:"updated_at_ms"`         // Unix timestamp in milliseconds of last change
	FlameSealed        bool     `json:"flame_sealed"`          // Whether the crown has been sealed
	SealHash           string   `json:"seal_hash"`             // Seal hash, set when sealed
	LatticeCoordinates string   `json:"lattice_coordinates"`   // Lattice address, e.g. "3.1.1"
	ParentGrandCrownID string   `json:"parent_grand_crown_id"` // Owning grand crown UUID, empty while unparented
	Tags               []string `json:"tags"`                  // Free-form tag set
	RoyalDecree        string   `json:"royal_decree"`          // Authorizing decree, if any
	Overseer           string   `json:"overseer"`              // Overseeing authority, if any
	ShardIDs           []string `json:"shard_ids"`             // The three bound shard UUIDs
}

// GrandCrown represents an aggregation of exactly nine crowns. Sealing
// semantics match Crown, generalized one tier up.
type GrandCrown struct {
	ID                 string   `json:"id"`                  // UUID - unique identifier for this grand crown
	Title              string   `json:"title"`               // Short human-readable title
	Description        string   `json:"description"`         // Longer description of the aggregation
	CreatedAtMs        int64    `json:"created_at_ms"`       // Unix timestamp in milliseconds at formation
	FlameSealed        bool     `json:"flame_sealed"`        // Whether the grand crown has been sealed
	SealHash           string   `json:"seal_hash"`           // Seal hash, set when sealed
	LatticeCoordinates string   `json:"lattice_coordinates"` // Lattice address, e.g. "9.1.1"
	SovereignAuthority string   `json:"sovereign_authority"` // Authority the formation was made under
	CreatedBy          string   `json:"created_by"`          // Agent that requested the formation
	CrownIDs           []string `json:"crown_ids"`           // The nine bound crown UUIDs
}

// SealEventType identifies the kind of audit record a SealEvent carries.
type SealEventType string

const (
	// SealEventSealed records the application of a seal to an entity.
	SealEventSealed SealEventType = "SEALED"

	// SealEventVerified records a verification attempt, successful or not.
	SealEventVerified SealEventType = "VERIFIED"

	// SealEventAccessed records a read of a sealed entity.
	SealEventAccessed SealEventType = "ACCESSED"
)

// Validate checks if the SealEventType is a valid enum value.
func (et SealEventType) Validate() error {
	switch et {
	case SealEventSealed, SealEventVerified, SealEventAccessed:
		return nil
	default:
		return fmt.Errorf("unknown seal event type: %q", et)
	}
}

// SealEvent is an immutable, append-only audit record. The audit trail for an
// entity is the ordered list of all events referencing it; events are never
// mutated or deleted.
type SealEvent struct {
	ID          string            `json:"id"`           // UUID - unique identifier for this event
	EntityID    string            `json:"entity_id"`    // The entity the event refers to
	EventType   SealEventType     `json:"event_type"`   // SEALED, VERIFIED, or ACCESSED
	SealHash    string            `json:"seal_hash"`    // Seal hash involved, if any
	Authority   string            `json:"authority"`    // Authority attributed to the event
	Witness     string            `json:"witness"`      // Optional witnessing authority
	TimestampMs int64             `json:"timestamp_ms"` // Unix timestamp in milliseconds
	Metadata    map[string]string `json:"metadata"`     // Free-form metadata
}

// UpdateType identifies the kind of lattice change an Update carries.
type UpdateType string

const (
	UpdateCrownCreated     UpdateType = "crown_created"
	UpdateCrownSealed      UpdateType = "crown_sealed"
	UpdateShardAdded       UpdateType = "shard_added"
	UpdateGrandCrownFormed UpdateType = "grand_crown_formed"
)

// Validate checks if the UpdateType is a valid enum value.
func (ut UpdateType) Validate() error {
	switch ut {
	case UpdateCrownCreated, UpdateCrownSealed, UpdateShardAdded, UpdateGrandCrownFormed:
		return nil
	default:
		return fmt.Errorf("unknown update type: %q", ut)
	}
}

// Update is a lattice change event. Exactly one entity payload is set,
// matching the update type. Updates are published on the instance's
// update_events channel and folded into Aggregator snapshots via Apply.
type Update struct {
	Type        UpdateType  `json:"type"`
	Shard       *Shard      `json:"shard,omitempty"`
	Crown       *Crown      `json:"crown,omitempty"`
	GrandCrown  *GrandCrown `json:"grand_crown,omitempty"`
	TimestampMs int64       `json:"timestamp_ms"`
	Coordinates string      `json:"coordinates,omitempty"`
}

// Validate checks if the Shard has valid field values.
// Returns an error if any validation fails.
func (s *Shard) Validate() error {
	if !isValidUUID(s.ID) {
		return fmt.Errorf("invalid shard ID: not a valid UUID")
	}

	if strings.TrimSpace(s.Title) == "" {
		return fmt.Errorf("shard title cannot be empty")
	}

	if s.Agent == "" {
		return fmt.Errorf("shard agent cannot be empty")
	}

	if err := s.ThoughtType.Validate(); err != nil {
		return fmt.Errorf("invalid thought type: %w", err)
	}

	if s.Coordinates != "" {
		if _, err := DecodeCoordinates(s.Coordinates); err != nil {
			return fmt.Errorf("invalid shard coordinates: %w", err)
		}
	}

	if s.CrownID != "" {
		if !isValidUUID(s.CrownID) {
			return fmt.Errorf("invalid crown ID: not a valid UUID")
		}
		if s.LatticePosition < 1 || s.LatticePosition > ShardsPerCrown {
			return fmt.Errorf("invalid lattice position: must be 1-%d for a bound shard, got %d", ShardsPerCrown, s.LatticePosition)
		}
	}

	return nil
}

// Validate checks if the Crown has valid field values, including the Trinity
// Law arity of its shard bindings.
func (c *Crown) Validate() error {
	if !isValidUUID(c.ID) {
		return fmt.Errorf("invalid crown ID: not a valid UUID")
	}

	if strings.TrimSpace(c.Title) == "" {
		return fmt.Errorf("crown title cannot be empty")
	}

	if len(c.ShardIDs) != ShardsPerCrown {
		return fmt.Errorf("trinity law violation: exactly %d shards required, got %d", ShardsPerCrown, len(c.ShardIDs))
	}

	for i, shardID := range c.ShardIDs {
		if !isValidUUID(shardID) {
			return fmt.Errorf("invalid shard ID at position %d: not a valid UUID", i+1)
		}
	}

	if c.LatticeCoordinates != "" {
		if _, err := DecodeCoordinates(c.LatticeCoordinates); err != nil {
			return fmt.Errorf("invalid crown coordinates: %w", err)
		}
	}

	if c.FlameSealed && c.SealHash == "" {
		return fmt.Errorf("sealed crown must carry a seal hash")
	}

	if c.ParentGrandCrownID != "" && !isValidUUID(c.ParentGrandCrownID) {
		return fmt.Errorf("invalid parent grand crown ID: not a valid UUID")
	}

	return nil
}

// Validate checks if the GrandCrown has valid field values, including the
// Trinity Law arity of its crown bindings.
func (g *GrandCrown) Validate() error {
	if !isValidUUID(g.ID) {
		return fmt.Errorf("invalid grand crown ID: not a valid UUID")
	}

	if strings.TrimSpace(g.Title) == "" {
		return fmt.Errorf("grand crown title cannot be empty")
	}

	if len(g.CrownIDs) != CrownsPerGrand {
		return fmt.Errorf("trinity law violation: exactly %d crowns required, got %d", CrownsPerGrand, len(g.CrownIDs))
	}

	for i, crownID := range g.CrownIDs {
		if !isValidUUID(crownID) {
			return fmt.Errorf("invalid crown ID at position %d: not a valid UUID", i+1)
		}
	}

	if g.LatticeCoordinates != "" {
		if _, err := DecodeCoordinates(g.LatticeCoordinates); err != nil {
			return fmt.Errorf("invalid grand crown coordinates: %w", err)
		}
	}

	if g.FlameSealed && g.SealHash == "" {
		return fmt.Errorf("sealed grand crown must carry a seal hash")
	}

	return nil
}

// Validate checks if the SealEvent has valid field values.
func (e *SealEvent) Validate() error {
	if !isValidUUID(e.ID) {
		return fmt.Errorf("invalid seal event ID: not a valid UUID")
	}

	if e.EntityID == "" {
		return fmt.Errorf("seal event entity ID cannot be empty")
	}

	if err := e.EventType.Validate(); err != nil {
		return fmt.Errorf("invalid event type: %w", err)
	}

	if e.Authority == "" {
		return fmt.Errorf("seal event authority cannot be empty")
	}

	return nil
}

// Validate checks if the Update is well-formed: a valid type carrying exactly
// the entity payload that type requires.
func (u *Update) Validate() error {
	if err := u.Type.Validate(); err != nil {
		return err
	}

	switch u.Type {
	case UpdateShardAdded:
		if u.Shard == nil {
			return fmt.Errorf("update %s requires a shard payload", u.Type)
		}
		return u.Shard.Validate()
	case UpdateCrownCreated, UpdateCrownSealed:
		if u.Crown == nil {
			return fmt.Errorf("update %s requires a crown payload", u.Type)
		}
		return u.Crown.Validate()
	case UpdateGrandCrownFormed:
		if u.GrandCrown == nil {
			return fmt.Errorf("update %s requires a grand crown payload", u.Type)
		}
		return u.GrandCrown.Validate()
	}

	return nil
}

// isValidUUID checks if a string is a valid UUID format.
func isValidUUID(s string) bool {
	_, err := uuid.Parse(s)
	return err == nil
}

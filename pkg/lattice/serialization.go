package lattice

import (
	"encoding/json"
	"fmt"
	"strconv"
)

// Serialization helpers for converting between Go structs and Redis hashes
//
// Redis stores data as string-to-string maps (hashes). Complex fields like
// tag and member arrays are JSON-encoded into single hash fields. This keeps
// individual scalar fields queryable (the conditional shard bind reads
// crown_id directly) while arrays stay flexible.

// ShardToHash converts a Shard struct to a Redis hash format.
// Array fields (tags) are JSON-encoded.
func ShardToHash(s *Shard) (map[string]interface{}, error) {
	tagsJSON, err := json.Marshal(s.Tags)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal tags: %w", err)
	}

	hash := map[string]interface{}{
		"id":               s.ID,
		"title":            s.Title,
		"content":          s.Content,
		"agent":            s.Agent,
		"timestamp_ms":     s.TimestampMs,
		"tags":             string(tagsJSON),
		"crown_id":         s.CrownID,
		"lattice_position": s.LatticePosition,
		"coordinates":      s.Coordinates,
		"sealed":           strconv.FormatBool(s.Sealed),
		"thought_type":     string(s.ThoughtType),
	}

	return hash, nil
}

// HashToShard converts a Redis hash to a Shard struct.
// JSON fields are decoded back to Go types.
func HashToShard(hash map[string]string) (*Shard, error) {
	timestampMs, err := strconv.ParseInt(hash["timestamp_ms"], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid timestamp_ms field: %w", err)
	}

	var tags []string
	if tagsJSON := hash["tags"]; tagsJSON != "" {
		if err := json.Unmarshal([]byte(tagsJSON), &tags); err != nil {
			return nil, fmt.Errorf("failed to unmarshal tags: %w", err)
		}
	}
	if tags == nil {
		tags = []string{}
	}

	position, _ := strconv.Atoi(hash["lattice_position"])
	sealed, _ := strconv.ParseBool(hash["sealed"])

	return &Shard{
		ID:              hash["id"],
		Title:           hash["title"],
		Content:         hash["content"],
		Agent:           hash["agent"],
		TimestampMs:     timestampMs,
		Tags:            tags,
		CrownID:         hash["crown_id"],
		LatticePosition: position,
		Coordinates:     hash["coordinates"],
		Sealed:          sealed,
		ThoughtType:     ThoughtType(hash["thought_type"]),
	}, nil
}

// CrownToHash converts a Crown struct to a Redis hash format.
// Array fields (tags, shard_ids) are JSON-encoded.
func CrownToHash(c *Crown) (map[string]interface{}, error) {
	tagsJSON, err := json.Marshal(c.Tags)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal tags: %w", err)
	}

	shardIDsJSON, err := json.Marshal(c.ShardIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal shard IDs: %w", err)
	}

	hash := map[string]interface{}{
		"id":                    c.ID,
		"title":                 c.Title,
		"description":           c.Description,
		"agent":                 c.Agent,
		"created_at_ms":         c.CreatedAtMs,
		"updated_at_ms":         c.UpdatedAtMs,
		"flame_sealed":          strconv.FormatBool(c.FlameSealed),
		"seal_hash":             c.SealHash,
		"lattice_coordinates":   c.LatticeCoordinates,
		"parent_grand_crown_id": c.ParentGrandCrownID,
		"tags":                  string(tagsJSON),
		"royal_decree":          c.RoyalDecree,
		"overseer":              c.Overseer,
		"shard_ids":             string(shardIDsJSON),
	}

	return hash, nil
}

// HashToCrown converts a Redis hash to a Crown struct.
func HashToCrown(hash map[string]string) (*Crown, error) {
	createdAtMs, err := strconv.ParseInt(hash["created_at_ms"], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid created_at_ms field: %w", err)
	}
	updatedAtMs, _ := strconv.ParseInt(hash["updated_at_ms"], 10, 64)

	var tags []string
	if tagsJSON := hash["tags"]; tagsJSON != "" {
		if err := json.Unmarshal([]byte(tagsJSON), &tags); err != nil {
			return nil, fmt.Errorf("failed to unmarshal tags: %w", err)
		}
	}
	if tags == nil {
		tags = []string{}
	}

	var shardIDs []string
	if shardIDsJSON := hash["shard_ids"]; shardIDsJSON != "" {
		if err := json.Unmarshal([]byte(shardIDsJSON), &shardIDs); err != nil {
			return nil, fmt.Errorf("failed to unmarshal shard_ids: %w", err)
		}
	}
	if shardIDs == nil {
		shardIDs = []string{}
	}

	sealed, _ := strconv.ParseBool(hash["flame_sealed"])

	return &Crown{
		ID:                 hash["id"],
		Title:              hash["title"],
		Description:        hash["description"],
		Agent:              hash["agent"],
		CreatedAtMs:        createdAtMs,
		UpdatedAtMs:        updatedAtMs,
		FlameSealed:        sealed,
		SealHash:           hash["seal_hash"],
		LatticeCoordinates: hash["lattice_coordinates"],
		ParentGrandCrownID: hash["parent_grand_crown_id"],
		Tags:               tags,
		RoyalDecree:        hash["royal_decree"],
		Overseer:           hash["overseer"],
		ShardIDs:           shardIDs,
	}, nil
}

// GrandCrownToHash converts a GrandCrown struct to a Redis hash format.
// Array fields (crown_ids) are JSON-encoded.
func GrandCrownToHash(g *GrandCrown) (map[string]interface{}, error) {
	crownIDsJSON, err := json.Marshal(g.CrownIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal crown IDs: %w", err)
	}

	hash := map[string]interface{}{
		"id":                  g.ID,
		"title":               g.Title,
		"description":         g.Description,
		"created_at_ms":       g.CreatedAtMs,
		"flame_sealed":        strconv.FormatBool(g.FlameSealed),
		"seal_hash":           g.SealHash,
		"lattice_coordinates": g.LatticeCoordinates,
		"sovereign_authority": g.SovereignAuthority,
		"created_by":          g.CreatedBy,
		"crown_ids":           string(crownIDsJSON),
	}

	return hash, nil
}

// HashToGrandCrown converts a Redis hash to a GrandCrown struct.
func HashToGrandCrown(hash map[string]string) (*GrandCrown, error) {
	createdAtMs, err := strconv.ParseInt(hash["created_at_ms"], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid created_at_ms field: %w", err)
	}

	var crownIDs []string
	if crownIDsJSON := hash["crown_ids"]; crownIDsJSON != "" {
		if err := json.Unmarshal([]byte(crownIDsJSON), &crownIDs); err != nil {
			return nil, fmt.Errorf("failed to unmarshal crown_ids: %w", err)
		}
	}
	if crownIDs == nil {
		crownIDs = []string{}
	}

	sealed, _ := strconv.ParseBool(hash["flame_sealed"])

	return &GrandCrown{
		ID:                 hash["id"],
		Title:              hash["title"],
		Description:        hash["description"],
		CreatedAtMs:        createdAtMs,
		FlameSealed:        sealed,
		SealHash:           hash["seal_hash"],
		LatticeCoordinates: hash["lattice_coordinates"],
		SovereignAuthority: hash["sovereign_authority"],
		CreatedBy:          hash["created_by"],
		CrownIDs:           crownIDs,
	}, nil
}

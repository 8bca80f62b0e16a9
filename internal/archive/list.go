package archive

import (
	"context"
	"fmt"
	"io"

	"github.com/GodsIMiJ1/the-Consciousness-Machine-sub000/pkg/lattice"
)

// OutputFormat specifies how to format archive list output.
type OutputFormat string

const (
	// OutputFormatDefault uses a table format with truncated content
	OutputFormatDefault OutputFormat = "default"

	// OutputFormatJSONL outputs complete records as line-delimited JSON
	OutputFormatJSONL OutputFormat = "jsonl"
)

// FilterCriteria defines filtering options for archive listings.
// All filters are ANDed together.
type FilterCriteria struct {
	SinceTimestampMs int64  // Unix timestamp in milliseconds, 0 = no filter
	UntilTimestampMs int64  // Unix timestamp in milliseconds, 0 = no filter
	Tag              string // Exact match against any tag, empty = no filter
	Agent            string // Exact match on originating agent, empty = no filter
	SealedOnly       bool   // Only sealed records
}

// matchesShard returns true if the shard matches all filter criteria.
func (fc *FilterCriteria) matchesShard(shard *lattice.Shard) bool {
	if fc.SinceTimestampMs > 0 && shard.TimestampMs < fc.SinceTimestampMs {
		return false
	}
	if fc.UntilTimestampMs > 0 && shard.TimestampMs > fc.UntilTimestampMs {
		return false
	}
	if fc.Tag != "" && !hasTag(shard.Tags, fc.Tag) {
		return false
	}
	if fc.Agent != "" && shard.Agent != fc.Agent {
		return false
	}
	if fc.SealedOnly && !shard.Sealed {
		return false
	}
	return true
}

// matchesCrown returns true if the crown matches all filter criteria.
func (fc *FilterCriteria) matchesCrown(crown *lattice.Crown) bool {
	if fc.SinceTimestampMs > 0 && crown.CreatedAtMs < fc.SinceTimestampMs {
		return false
	}
	if fc.UntilTimestampMs > 0 && crown.CreatedAtMs > fc.UntilTimestampMs {
		return false
	}
	if fc.Tag != "" && !hasTag(crown.Tags, fc.Tag) {
		return false
	}
	if fc.Agent != "" && crown.Agent != fc.Agent {
		return false
	}
	if fc.SealedOnly && !crown.FlameSealed {
		return false
	}
	return true
}

func hasTag(tags []string, want string) bool {
	for _, tag := range tags {
		if tag == want {
			return true
		}
	}
	return false
}

// ListShards retrieves shards for an instance, applies filter criteria, and
// writes them to the provided writer in the requested format. Listings come
// back in creation order.
func ListShards(ctx context.Context, client *lattice.Client, format OutputFormat, filters *FilterCriteria, w io.Writer) error {
	all, err := client.ListShards(ctx)
	if err != nil {
		return fmt.Errorf("failed to list shards: %w", err)
	}

	var shards []*lattice.Shard
	for _, shard := range all {
		if filters != nil && !filters.matchesShard(shard) {
			continue
		}
		shards = append(shards, shard)
	}

	switch format {
	case OutputFormatDefault:
		FormatShardTable(w, shards, client.InstanceName())
	case OutputFormatJSONL:
		if err := FormatJSONL(w, shards); err != nil {
			return fmt.Errorf("failed to format JSONL output: %w", err)
		}
	default:
		return fmt.Errorf("unknown output format: %s", format)
	}

	return nil
}

// ListCrowns retrieves crowns for an instance, applies filter criteria, and
// writes them to the provided writer in the requested format.
func ListCrowns(ctx context.Context, client *lattice.Client, format OutputFormat, filters *FilterCriteria, w io.Writer) error {
	all, err := client.ListCrowns(ctx)
	if err != nil {
		return fmt.Errorf("failed to list crowns: %w", err)
	}

	var crowns []*lattice.Crown
	for _, crown := range all {
		if filters != nil && !filters.matchesCrown(crown) {
			continue
		}
		crowns = append(crowns, crown)
	}

	switch format {
	case OutputFormatDefault:
		FormatCrownTable(w, crowns, client.InstanceName())
	case OutputFormatJSONL:
		if err := FormatJSONL(w, crowns); err != nil {
			return fmt.Errorf("failed to format JSONL output: %w", err)
		}
	default:
		return fmt.Errorf("unknown output format: %s", format)
	}

	return nil
}

// ListGrandCrowns retrieves grand crowns for an instance and writes them to
// the provided writer in the requested format. Grand crowns are few; no
// filter criteria apply.
func ListGrandCrowns(ctx context.Context, client *lattice.Client, format OutputFormat, w io.Writer) error {
	grands, err := client.ListGrandCrowns(ctx)
	if err != nil {
		return fmt.Errorf("failed to list grand crowns: %w", err)
	}

	switch format {
	case OutputFormatDefault:
		FormatGrandCrownTable(w, grands, client.InstanceName())
	case OutputFormatJSONL:
		if err := FormatJSONL(w, grands); err != nil {
			return fmt.Errorf("failed to format JSONL output: %w", err)
		}
	default:
		return fmt.Errorf("unknown output format: %s", format)
	}

	return nil
}

// ListSealEvents writes the seal audit trail to the provided writer. With an
// entity ID the trail for that entity is shown; otherwise every event in the
// instance, ordered by timestamp.
func ListSealEvents(ctx context.Context, client *lattice.Client, entityID string, format OutputFormat, w io.Writer) error {
	var events []*lattice.SealEvent
	var err error
	if entityID != "" {
		events, err = client.SealEvents(ctx, entityID)
	} else {
		events, err = client.AllSealEvents(ctx)
	}
	if err != nil {
		return fmt.Errorf("failed to list seal events: %w", err)
	}

	switch format {
	case OutputFormatDefault:
		FormatSealEventTable(w, events)
	case OutputFormatJSONL:
		if err := FormatJSONL(w, events); err != nil {
			return fmt.Errorf("failed to format JSONL output: %w", err)
		}
	default:
		return fmt.Errorf("unknown output format: %s", format)
	}

	return nil
}

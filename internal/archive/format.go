package archive

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/GodsIMiJ1/the-Consciousness-Machine-sub000/pkg/lattice"
)

// FormatShardTable writes shards as a formatted table to the provided writer.
// Returns the number of shards formatted.
func FormatShardTable(w io.Writer, shards []*lattice.Shard, instanceName string) int {
	if len(shards) == 0 {
		fmt.Fprintf(w, "No shards found for instance '%s'\n", instanceName)
		return 0
	}

	fmt.Fprintf(w, "Shards for instance '%s':\n\n", instanceName)

	fmt.Fprintf(w, "%-10s %-8s %-6s %-14s %-8s %s\n",
		"ID", "COORD", "CROWN", "AGENT", "AGE", "TITLE")
	fmt.Fprintf(w, "%-10s %-8s %-6s %-14s %-8s %s\n",
		"----------", "--------", "------", "--------------", "--------", "----------------------------------------")

	for _, s := range shards {
		fmt.Fprintf(w, "%-10s %-8s %-6s %-14s %-8s %s\n",
			formatID(s.ID),
			formatCoordinate(s.Coordinates),
			formatMembership(s.CrownID),
			formatAgent(s.Agent),
			formatTimestamp(s.TimestampMs),
			formatTitle(s.Title),
		)
	}

	countMsg := "shard"
	if len(shards) != 1 {
		countMsg = "shards"
	}
	fmt.Fprintf(w, "\n%d %s found\n", len(shards), countMsg)

	return len(shards)
}

// FormatCrownTable writes crowns as a formatted table to the provided writer.
// Returns the number of crowns formatted.
func FormatCrownTable(w io.Writer, crowns []*lattice.Crown, instanceName string) int {
	if len(crowns) == 0 {
		fmt.Fprintf(w, "No crowns found for instance '%s'\n", instanceName)
		return 0
	}

	fmt.Fprintf(w, "Crowns for instance '%s':\n\n", instanceName)

	fmt.Fprintf(w, "%-10s %-8s %-7s %-14s %-8s %s\n",
		"ID", "COORD", "SEALED", "AGENT", "AGE", "TITLE")
	fmt.Fprintf(w, "%-10s %-8s %-7s %-14s %-8s %s\n",
		"----------", "--------", "-------", "--------------", "--------", "----------------------------------------")

	for _, c := range crowns {
		fmt.Fprintf(w, "%-10s %-8s %-7s %-14s %-8s %s\n",
			formatID(c.ID),
			formatCoordinate(c.LatticeCoordinates),
			formatSealed(c.FlameSealed),
			formatAgent(c.Agent),
			formatTimestamp(c.CreatedAtMs),
			formatTitle(c.Title),
		)
	}

	countMsg := "crown"
	if len(crowns) != 1 {
		countMsg = "crowns"
	}
	fmt.Fprintf(w, "\n%d %s found\n", len(crowns), countMsg)

	return len(crowns)
}

// FormatGrandCrownTable writes grand crowns as a formatted table to the
// provided writer. Returns the number formatted.
func FormatGrandCrownTable(w io.Writer, grands []*lattice.GrandCrown, instanceName string) int {
	if len(grands) == 0 {
		fmt.Fprintf(w, "No grand crowns found for instance '%s'\n", instanceName)
		return 0
	}

	fmt.Fprintf(w, "Grand crowns for instance '%s':\n\n", instanceName)

	fmt.Fprintf(w, "%-10s %-8s %-7s %-26s %-8s %s\n",
		"ID", "COORD", "SEALED", "AUTHORITY", "AGE", "TITLE")
	fmt.Fprintf(w, "%-10s %-8s %-7s %-26s %-8s %s\n",
		"----------", "--------", "-------", "--------------------------", "--------", "----------------------------------------")

	for _, g := range grands {
		fmt.Fprintf(w, "%-10s %-8s %-7s %-26s %-8s %s\n",
			formatID(g.ID),
			formatCoordinate(g.LatticeCoordinates),
			formatSealed(g.FlameSealed),
			formatAgent(g.SovereignAuthority),
			formatTimestamp(g.CreatedAtMs),
			formatTitle(g.Title),
		)
	}

	countMsg := "grand crown"
	if len(grands) != 1 {
		countMsg = "grand crowns"
	}
	fmt.Fprintf(w, "\n%d %s found\n", len(grands), countMsg)

	return len(grands)
}

// FormatSealEventTable writes seal events as a formatted table to the
// provided writer. Returns the number of events formatted.
func FormatSealEventTable(w io.Writer, events []*lattice.SealEvent) int {
	if len(events) == 0 {
		fmt.Fprintf(w, "No seal events found\n")
		return 0
	}

	fmt.Fprintf(w, "%-10s %-10s %-26s %-8s %s\n",
		"ENTITY", "EVENT", "AUTHORITY", "AGE", "HASH")
	fmt.Fprintf(w, "%-10s %-10s %-26s %-8s %s\n",
		"----------", "----------", "--------------------------", "--------", "----------------")

	for _, e := range events {
		fmt.Fprintf(w, "%-10s %-10s %-26s %-8s %s\n",
			formatID(e.EntityID),
			string(e.EventType),
			formatAgent(e.Authority),
			formatTimestamp(e.TimestampMs),
			formatHash(e.SealHash),
		)
	}

	countMsg := "event"
	if len(events) != 1 {
		countMsg = "events"
	}
	fmt.Fprintf(w, "\n%d %s found\n", len(events), countMsg)

	return len(events)
}

// FormatJSONL writes records as line-delimited JSON to the provided writer.
// Each record is a single JSON object on its own line, ready for jq.
func FormatJSONL[T any](w io.Writer, items []T) error {
	for _, item := range items {
		data, err := json.Marshal(item)
		if err != nil {
			return fmt.Errorf("failed to marshal record: %w", err)
		}
		if _, err := fmt.Fprintf(w, "%s\n", string(data)); err != nil {
			return err
		}
	}
	return nil
}

// FormatSingleJSON writes one record as pretty-printed JSON.
func FormatSingleJSON(w io.Writer, item any) error {
	data, err := json.MarshalIndent(item, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal record: %w", err)
	}
	_, err = fmt.Fprintf(w, "%s\n", string(data))
	return err
}

// formatID truncates an ID to its first 8 characters for table display.
func formatID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func formatCoordinate(coordinate string) string {
	if coordinate == "" {
		return "-"
	}
	return coordinate
}

// formatMembership shows whether a shard belongs to a crown.
func formatMembership(crownID string) string {
	if crownID == "" {
		return "free"
	}
	return "bound"
}

func formatSealed(sealed bool) string {
	if sealed {
		return "SEALED"
	}
	return "-"
}

func formatAgent(agent string) string {
	if agent == "" {
		return "-"
	}
	if len(agent) > 26 {
		return agent[:23] + "..."
	}
	return agent
}

// formatTitle truncates titles to 40 characters for table display.
func formatTitle(title string) string {
	trimmed := strings.TrimSpace(title)
	if trimmed == "" {
		return "-"
	}
	if len(trimmed) > 40 {
		return trimmed[:37] + "..."
	}
	return trimmed
}

func formatHash(hash string) string {
	if hash == "" {
		return "-"
	}
	if len(hash) > 16 {
		return hash[:16]
	}
	return hash
}

// formatTimestamp formats Unix timestamp in milliseconds as relative time.
func formatTimestamp(timestampMs int64) string {
	if timestampMs == 0 {
		return "-"
	}

	t := time.Unix(timestampMs/1000, (timestampMs%1000)*1000000)
	diff := time.Since(t)

	if diff < time.Minute {
		return fmt.Sprintf("%ds ago", int(diff.Seconds()))
	} else if diff < time.Hour {
		return fmt.Sprintf("%dm ago", int(diff.Minutes()))
	} else if diff < 24*time.Hour {
		return fmt.Sprintf("%dh ago", int(diff.Hours()))
	}
	return fmt.Sprintf("%dd ago", int(diff.Hours()/24))
}

package archive

import (
	"context"
	"fmt"
	"io"

	"github.com/GodsIMiJ1/the-Consciousness-Machine-sub000/pkg/lattice"
)

// SealSummary condenses an entity's seal audit trail into its current state.
type SealSummary struct {
	EntityID           string `json:"entity_id"`
	IsSealed           bool   `json:"is_sealed"`
	SealHash           string `json:"seal_hash,omitempty"`
	Authority          string `json:"authority,omitempty"`
	Witness            string `json:"witness,omitempty"`
	SealedAtMs         int64  `json:"sealed_at_ms,omitempty"`
	EventCount         int    `json:"event_count"`
	Verifications      int    `json:"verifications"`
	Accesses           int    `json:"accesses"`
	LastVerifiedAtMs   int64  `json:"last_verified_at_ms,omitempty"`
	LastVerificationOK bool   `json:"last_verification_ok"`
}

// SummarizeSeal walks an entity's audit trail and reports its seal state.
// An entity with no events yields an unsealed summary, not an error.
func SummarizeSeal(ctx context.Context, client *lattice.Client, entityID string) (*SealSummary, error) {
	events, err := client.SealEvents(ctx, entityID)
	if err != nil {
		return nil, fmt.Errorf("failed to read seal events: %w", err)
	}

	summary := &SealSummary{EntityID: entityID, EventCount: len(events)}
	for _, event := range events {
		switch event.EventType {
		case lattice.SealEventSealed:
			summary.IsSealed = true
			summary.SealHash = event.SealHash
			summary.Authority = event.Authority
			summary.Witness = event.Witness
			summary.SealedAtMs = event.TimestampMs
		case lattice.SealEventVerified:
			summary.Verifications++
			summary.LastVerifiedAtMs = event.TimestampMs
			summary.LastVerificationOK = event.Metadata["verification_result"] == "true"
		case lattice.SealEventAccessed:
			summary.Accesses++
		}
	}

	return summary, nil
}

// AuthorityStats aggregates seal activity for one authority.
type AuthorityStats struct {
	Authority string `json:"authority"`
	Level     int    `json:"level"`
	Seals     int    `json:"seals"`
	Witnessed int    `json:"witnessed"`
}

// SealStatistics aggregates the instance's whole audit trail.
type SealStatistics struct {
	TotalEvents        int              `json:"total_events"`
	TotalSeals         int              `json:"total_seals"`
	TotalVerifications int              `json:"total_verifications"`
	TotalAccesses      int              `json:"total_accesses"`
	ByAuthority        []AuthorityStats `json:"by_authority"`
}

// ComputeSealStatistics aggregates seal events by type and authority.
// ByAuthority covers the recognized authorities in descending trust order,
// including those with no activity.
func ComputeSealStatistics(events []*lattice.SealEvent) *SealStatistics {
	stats := &SealStatistics{TotalEvents: len(events)}

	seals := make(map[string]int)
	witnessed := make(map[string]int)
	for _, event := range events {
		switch event.EventType {
		case lattice.SealEventSealed:
			stats.TotalSeals++
			seals[event.Authority]++
			if event.Witness != "" {
				witnessed[event.Witness]++
			}
		case lattice.SealEventVerified:
			stats.TotalVerifications++
		case lattice.SealEventAccessed:
			stats.TotalAccesses++
		}
	}

	for _, authority := range lattice.Authorities() {
		stats.ByAuthority = append(stats.ByAuthority, AuthorityStats{
			Authority: authority,
			Level:     lattice.AuthorityLevel(authority),
			Seals:     seals[authority],
			Witnessed: witnessed[authority],
		})
	}

	return stats
}

// GatherSealStatistics reads every seal event for the instance and
// aggregates it.
func GatherSealStatistics(ctx context.Context, client *lattice.Client) (*SealStatistics, error) {
	events, err := client.AllSealEvents(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read seal events: %w", err)
	}
	return ComputeSealStatistics(events), nil
}

// WriteSealSummary writes a seal summary as human-readable lines.
func WriteSealSummary(w io.Writer, summary *SealSummary) {
	fmt.Fprintf(w, "Entity:        %s\n", summary.EntityID)
	if summary.IsSealed {
		fmt.Fprintf(w, "Sealed:        yes\n")
		fmt.Fprintf(w, "Seal hash:     %s\n", summary.SealHash)
		fmt.Fprintf(w, "Authority:     %s\n", summary.Authority)
		if summary.Witness != "" {
			fmt.Fprintf(w, "Witness:       %s\n", summary.Witness)
		}
		fmt.Fprintf(w, "Sealed at:     %s\n", formatTimestamp(summary.SealedAtMs))
	} else {
		fmt.Fprintf(w, "Sealed:        no\n")
	}
	fmt.Fprintf(w, "Events:        %d\n", summary.EventCount)
	fmt.Fprintf(w, "Verifications: %d\n", summary.Verifications)
	if summary.Verifications > 0 {
		outcome := "failed"
		if summary.LastVerificationOK {
			outcome = "ok"
		}
		fmt.Fprintf(w, "Last verified: %s (%s)\n", formatTimestamp(summary.LastVerifiedAtMs), outcome)
	}
	fmt.Fprintf(w, "Accesses:      %d\n", summary.Accesses)
}

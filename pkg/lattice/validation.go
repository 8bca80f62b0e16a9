package lattice

import (
	"fmt"
	"math"
	"strings"
)

// FormationError is a Trinity Law violation: wrong group size, unknown
// shards, or shards already bound to crowns. It accumulates every rule
// failure so the caller can present the full list and retry with a corrected
// group; it never represents an unrecoverable condition.
type FormationError struct {
	Errors []string
}

func (e *FormationError) Error() string {
	return fmt.Sprintf("trinity law violation: %s", strings.Join(e.Errors, "; "))
}

// Validation is the result of checking a proposed crown formation.
// Errors make the formation invalid; warnings are advisory only.
type Validation struct {
	Valid         bool     `json:"valid"`
	Errors        []string `json:"errors"`
	Warnings      []string `json:"warnings"`
	ShardCount    int      `json:"shard_count"`
	RequiredCount int      `json:"required_count"`
}

// Err returns a *FormationError carrying the accumulated errors, or nil if
// the validation passed.
func (v *Validation) Err() error {
	if v.Valid {
		return nil
	}
	return &FormationError{Errors: v.Errors}
}

// ValidateCrownFormation checks a proposed shard grouping against the Trinity
// Law. All rules are evaluated and accumulated; validation never
// short-circuits on the first failure.
//
// Rules, in order:
//  1. Exactly ShardsPerCrown shard IDs.
//  2. Every ID resolves to a known shard.
//  3. No resolved shard already belongs to a crown.
//
// A non-fatal warning is emitted when every resolved shard originates from
// the same agent.
func ValidateCrownFormation(shardIDs []string, existingShards []*Shard) *Validation {
	var errors []string
	var warnings []string

	if len(shardIDs) != ShardsPerCrown {
		errors = append(errors, fmt.Sprintf("Exactly %d shards required, got %d", ShardsPerCrown, len(shardIDs)))
	}

	byID := make(map[string]*Shard, len(existingShards))
	for _, shard := range existingShards {
		byID[shard.ID] = shard
	}

	var found []*Shard
	for _, id := range shardIDs {
		if shard, ok := byID[id]; ok {
			found = append(found, shard)
		}
	}
	if len(found) != len(shardIDs) {
		errors = append(errors, "One or more shards not found")
	}

	var alreadyCrowned []string
	for _, shard := range found {
		if shard.CrownID != "" {
			alreadyCrowned = append(alreadyCrowned, shard.ID)
		}
	}
	if len(alreadyCrowned) > 0 {
		errors = append(errors, fmt.Sprintf("Shards already belong to crowns: %s", strings.Join(alreadyCrowned, ", ")))
	}

	agents := make(map[string]struct{})
	for _, shard := range found {
		agents[shard.Agent] = struct{}{}
	}
	if len(agents) == 1 {
		warnings = append(warnings, "All shards from same agent - consider diversity for stronger crown")
	}

	return &Validation{
		Valid:         len(errors) == 0,
		Errors:        errors,
		Warnings:      warnings,
		ShardCount:    len(shardIDs),
		RequiredCount: ShardsPerCrown,
	}
}

// Readiness describes progress toward a grand crown formation.
type Readiness struct {
	Ready              bool `json:"ready"`
	CurrentCrowns      int  `json:"current_crowns"`
	RequiredCrowns     int  `json:"required_crowns"`
	SealedCrowns       int  `json:"sealed_crowns"`
	ProgressPercentage int  `json:"progress_percentage"`
	NextMilestone      int  `json:"next_milestone"`
}

// CheckGrandCrownReadiness reports whether enough crowns exist to form a
// grand crown. The progress percentage is deliberately unclamped: more than
// nine crowns reads as over 100%, signalling "ready and then some".
func CheckGrandCrownReadiness(crowns []*Crown) *Readiness {
	sealed := 0
	for _, crown := range crowns {
		if crown.FlameSealed {
			sealed++
		}
	}

	current := len(crowns)
	milestone := CrownsPerGrand - current
	if milestone < 0 {
		milestone = 0
	}

	return &Readiness{
		Ready:              current >= CrownsPerGrand,
		CurrentCrowns:      current,
		RequiredCrowns:     CrownsPerGrand,
		SealedCrowns:       sealed,
		ProgressPercentage: int(math.Round(float64(current) / float64(CrownsPerGrand) * 100)),
		NextMilestone:      milestone,
	}
}

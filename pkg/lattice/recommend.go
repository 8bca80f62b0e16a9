package lattice

import "sort"

// Formation scoring bonuses. Scores start at a base of 50 and are clamped to
// [0, 100] after all bonuses are applied.
const (
	scoreBase            = 50
	agentDiversityBonus  = 10 // per distinct contributing agent
	tagOverlapBonus      = 5  // per tag instance beyond the first occurrence
	sameDayBonus         = 20 // timestamps span under one day
	sameWeekBonus        = 10 // timestamps span under seven days
	balancedLengthBonus  = 15 // content length variance under the threshold
	lengthVarianceLimit  = 1000
	dayMs                = int64(24 * 60 * 60 * 1000)
	weekMs               = 7 * dayMs
)

// Candidate is a proposed grouping of three unbound shards with its
// formation quality score.
type Candidate struct {
	Shards []*Shard `json:"shards"`
	Score  int      `json:"score"`
}

// UncrownedShards returns the shards that are not yet bound to any crown.
func UncrownedShards(shards []*Shard) []*Shard {
	var unbound []*Shard
	for _, shard := range shards {
		if shard.CrownID == "" {
			unbound = append(unbound, shard)
		}
	}
	return unbound
}

// FormationCandidates enumerates all size-3 combinations of unbound shards.
// The enumeration is C(n, 3), acceptable only because the unbound pool is
// expected to stay small; this is a documented scaling caveat.
func FormationCandidates(shards []*Shard) [][]*Shard {
	unbound := UncrownedShards(shards)

	var candidates [][]*Shard
	for i := 0; i < len(unbound)-2; i++ {
		for j := i + 1; j < len(unbound)-1; j++ {
			for k := j + 1; k < len(unbound); k++ {
				candidates = append(candidates, []*Shard{unbound[i], unbound[j], unbound[k]})
			}
		}
	}

	return candidates
}

// FormationScore rates the quality of a three-shard grouping on a 0-100
// scale. Scoring is a pure, deterministic function of its inputs: there is no
// randomness and no wall-clock dependence beyond the shard timestamps given.
// Groupings of any other size score 0.
//
// Bonuses over the base score of 50:
//   - +10 per distinct contributing agent
//   - +5 per tag instance beyond the first occurrence of a shared tag
//   - +20 if all timestamps fall within one day, else +10 within seven days
//   - +15 if the variance of the content lengths is under 1000
func FormationScore(shards []*Shard) int {
	if len(shards) != ShardsPerCrown {
		return 0
	}

	score := scoreBase

	agents := make(map[string]struct{})
	for _, shard := range shards {
		agents[shard.Agent] = struct{}{}
	}
	score += len(agents) * agentDiversityBonus

	tagCount := 0
	uniqueTags := make(map[string]struct{})
	for _, shard := range shards {
		for _, tag := range shard.Tags {
			tagCount++
			uniqueTags[tag] = struct{}{}
		}
	}
	score += (tagCount - len(uniqueTags)) * tagOverlapBonus

	minTs, maxTs := shards[0].TimestampMs, shards[0].TimestampMs
	for _, shard := range shards[1:] {
		if shard.TimestampMs < minTs {
			minTs = shard.TimestampMs
		}
		if shard.TimestampMs > maxTs {
			maxTs = shard.TimestampMs
		}
	}
	span := maxTs - minTs
	if span < dayMs {
		score += sameDayBonus
	} else if span < weekMs {
		score += sameWeekBonus
	}

	var mean float64
	for _, shard := range shards {
		mean += float64(len(shard.Content))
	}
	mean /= float64(len(shards))

	var variance float64
	for _, shard := range shards {
		deviation := float64(len(shard.Content)) - mean
		variance += deviation * deviation
	}
	variance /= float64(len(shards))
	if variance < lengthVarianceLimit {
		score += balancedLengthBonus
	}

	if score > 100 {
		score = 100
	}
	if score < 0 {
		score = 0
	}

	return score
}

// Recommend scores every formation candidate and returns the top k,
// descending by score. Ties preserve enumeration order, so the result is
// fully deterministic for a given input.
func Recommend(shards []*Shard, k int) []Candidate {
	candidates := FormationCandidates(shards)

	scored := make([]Candidate, 0, len(candidates))
	for _, triple := range candidates {
		scored = append(scored, Candidate{Shards: triple, Score: FormationScore(triple)})
	}

	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].Score > scored[j].Score
	})

	if k >= 0 && len(scored) > k {
		scored = scored[:k]
	}

	return scored
}

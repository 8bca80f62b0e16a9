package lattice

import (
	"fmt"
	"math"
	"sort"
	"sync"
)

// TrinityProgress tracks crown accumulation toward the next grand crown.
// The percentage uses the same unclamped rule as grand-crown readiness.
type TrinityProgress struct {
	CurrentCrowns    int `json:"current_crowns"`
	RequiredForGrand int `json:"required_for_grand"`
	Percentage       int `json:"percentage"`
}

// FormationReadiness summarizes how many crowns the unbound shard pool can
// currently form and how many more shards the next crown needs.
type FormationReadiness struct {
	CanFormCrowns            int `json:"can_form_crowns"`
	ShardsNeededForNextCrown int `json:"shards_needed_for_next_crown"`
}

// Statistics is a derived, recomputed-on-demand view of the lattice. It owns
// no independent state: it is always a pure function of the current shard,
// crown, and grand crown collections.
type Statistics struct {
	TotalShards        int                `json:"total_shards"`
	TotalCrowns        int                `json:"total_crowns"`
	SealedCrowns       int                `json:"sealed_crowns"`
	GrandCrowns        int                `json:"grand_crowns"`
	UncrownedShards    int                `json:"uncrowned_shards"`
	SealedShards       int                `json:"sealed_shards"`
	TrinityProgress    TrinityProgress    `json:"trinity_progress"`
	FormationReadiness FormationReadiness `json:"formation_readiness"`
}

// ComputeStatistics derives lattice statistics from raw entity collections.
// This is also the documented client-side fallback when no statistics
// procedure is available at the store.
func ComputeStatistics(shards []*Shard, crowns []*Crown, grands []*GrandCrown) *Statistics {
	uncrowned := 0
	sealedShards := 0
	for _, shard := range shards {
		if shard.CrownID == "" {
			uncrowned++
		}
		if shard.Sealed {
			sealedShards++
		}
	}

	sealedCrowns := 0
	for _, crown := range crowns {
		if crown.FlameSealed {
			sealedCrowns++
		}
	}

	return &Statistics{
		TotalShards:     len(shards),
		TotalCrowns:     len(crowns),
		SealedCrowns:    sealedCrowns,
		GrandCrowns:     len(grands),
		UncrownedShards: uncrowned,
		SealedShards:    sealedShards,
		TrinityProgress: TrinityProgress{
			CurrentCrowns:    len(crowns),
			RequiredForGrand: CrownsPerGrand,
			Percentage:       int(math.Round(float64(len(crowns)) / float64(CrownsPerGrand) * 100)),
		},
		FormationReadiness: FormationReadiness{
			CanFormCrowns:            uncrowned / ShardsPerCrown,
			ShardsNeededForNextCrown: (ShardsPerCrown - uncrowned%ShardsPerCrown) % ShardsPerCrown,
		},
	}
}

// Aggregator owns the single in-memory snapshot of the lattice plus its
// derived statistics. The snapshot has a single logical owner: all mutation
// goes through Apply, which is serialized internally, and every event applies
// a full statistics recompute. The O(n) recompute per event is an intentional
// simplicity choice given expected small n.
type Aggregator struct {
	mu     sync.Mutex
	shards map[string]*Shard
	crowns map[string]*Crown
	grands map[string]*GrandCrown
	stats  *Statistics
}

// NewAggregator creates an empty aggregator.
func NewAggregator() *Aggregator {
	a := &Aggregator{
		shards: make(map[string]*Shard),
		crowns: make(map[string]*Crown),
		grands: make(map[string]*GrandCrown),
	}
	a.stats = ComputeStatistics(nil, nil, nil)
	return a
}

// Load seeds the snapshot from full entity lists, replacing any prior state.
// Used to initialize from a store read before applying live updates.
func (a *Aggregator) Load(shards []*Shard, crowns []*Crown, grands []*GrandCrown) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.shards = make(map[string]*Shard, len(shards))
	for _, shard := range shards {
		copied := *shard
		a.shards[shard.ID] = &copied
	}

	a.crowns = make(map[string]*Crown, len(crowns))
	for _, crown := range crowns {
		copied := *crown
		a.crowns[crown.ID] = &copied
	}

	a.grands = make(map[string]*GrandCrown, len(grands))
	for _, grand := range grands {
		copied := *grand
		a.grands[grand.ID] = &copied
	}

	a.recompute()
}

// Apply folds one lattice update into the snapshot and recomputes
// statistics. Crown events also mark member shards as bound, and grand crown
// events mark member crowns as parented, so snapshot derivations stay
// consistent without requiring separate per-member events.
func (a *Aggregator) Apply(update *Update) error {
	if update == nil {
		return fmt.Errorf("nil update")
	}
	if err := update.Validate(); err != nil {
		return fmt.Errorf("invalid update: %w", err)
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	switch update.Type {
	case UpdateShardAdded:
		copied := *update.Shard
		a.shards[copied.ID] = &copied

	case UpdateCrownCreated, UpdateCrownSealed:
		copied := *update.Crown
		a.crowns[copied.ID] = &copied
		for position, shardID := range copied.ShardIDs {
			if shard, ok := a.shards[shardID]; ok && shard.CrownID == "" {
				shard.CrownID = copied.ID
				shard.LatticePosition = position + 1
			}
		}

	case UpdateGrandCrownFormed:
		copied := *update.GrandCrown
		a.grands[copied.ID] = &copied
		for _, crownID := range copied.CrownIDs {
			if crown, ok := a.crowns[crownID]; ok && crown.ParentGrandCrownID == "" {
				crown.ParentGrandCrownID = copied.ID
			}
		}
	}

	a.recompute()
	return nil
}

// Statistics returns the current derived statistics.
func (a *Aggregator) Statistics() Statistics {
	a.mu.Lock()
	defer a.mu.Unlock()
	return *a.stats
}

// Snapshot returns copies of the entity collections, each sorted by creation
// time then ID for deterministic iteration. Callers receive value copies and
// cannot mutate the aggregator's state through them.
func (a *Aggregator) Snapshot() ([]*Shard, []*Crown, []*GrandCrown) {
	a.mu.Lock()
	defer a.mu.Unlock()

	shards := make([]*Shard, 0, len(a.shards))
	for _, shard := range a.shards {
		copied := *shard
		shards = append(shards, &copied)
	}
	sort.Slice(shards, func(i, j int) bool {
		if shards[i].TimestampMs != shards[j].TimestampMs {
			return shards[i].TimestampMs < shards[j].TimestampMs
		}
		return shards[i].ID < shards[j].ID
	})

	crowns := make([]*Crown, 0, len(a.crowns))
	for _, crown := range a.crowns {
		copied := *crown
		crowns = append(crowns, &copied)
	}
	sort.Slice(crowns, func(i, j int) bool {
		if crowns[i].CreatedAtMs != crowns[j].CreatedAtMs {
			return crowns[i].CreatedAtMs < crowns[j].CreatedAtMs
		}
		return crowns[i].ID < crowns[j].ID
	})

	grands := make([]*GrandCrown, 0, len(a.grands))
	for _, grand := range a.grands {
		copied := *grand
		grands = append(grands, &copied)
	}
	sort.Slice(grands, func(i, j int) bool {
		if grands[i].CreatedAtMs != grands[j].CreatedAtMs {
			return grands[i].CreatedAtMs < grands[j].CreatedAtMs
		}
		return grands[i].ID < grands[j].ID
	})

	return shards, crowns, grands
}

// recompute rebuilds statistics from the full snapshot. Caller holds the lock.
func (a *Aggregator) recompute() {
	shards := make([]*Shard, 0, len(a.shards))
	for _, shard := range a.shards {
		shards = append(shards, shard)
	}
	crowns := make([]*Crown, 0, len(a.crowns))
	for _, crown := range a.crowns {
		crowns = append(crowns, crown)
	}
	grands := make([]*GrandCrown, 0, len(a.grands))
	for _, grand := range a.grands {
		grands = append(grands, grand)
	}
	a.stats = ComputeStatistics(shards, crowns, grands)
}

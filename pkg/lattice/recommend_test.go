package lattice

import (
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func scoringShard(agent string, timestampMs int64, content string, tags ...string) *Shard {
	return &Shard{
		ID:          uuid.New().String(),
		Title:       "scoring shard",
		Content:     content,
		Agent:       agent,
		TimestampMs: timestampMs,
		Tags:        tags,
		ThoughtType: ThoughtTypeObservation,
	}
}

func TestUncrownedShards(t *testing.T) {
	bound := makeShard("scout")
	bound.CrownID = uuid.New().String()
	bound.LatticePosition = 1
	free := makeShard("scribe")

	unbound := UncrownedShards([]*Shard{bound, free})
	require.Len(t, unbound, 1)
	assert.Equal(t, free.ID, unbound[0].ID)
}

func TestFormationCandidates(t *testing.T) {
	t.Run("enumerates all triples", func(t *testing.T) {
		shards := make([]*Shard, 5)
		for i := range shards {
			shards[i] = makeShard(fmt.Sprintf("agent-%d", i))
		}

		// C(5, 3) = 10
		candidates := FormationCandidates(shards)
		assert.Len(t, candidates, 10)
	})

	t.Run("excludes bound shards", func(t *testing.T) {
		shards := make([]*Shard, 4)
		for i := range shards {
			shards[i] = makeShard("scout")
		}
		shards[0].CrownID = uuid.New().String()
		shards[0].LatticePosition = 1

		candidates := FormationCandidates(shards)
		assert.Len(t, candidates, 1)
	})

	t.Run("empty below three unbound", func(t *testing.T) {
		assert.Empty(t, FormationCandidates([]*Shard{makeShard("a"), makeShard("b")}))
		assert.Empty(t, FormationCandidates(nil))
	})
}

func TestFormationScore(t *testing.T) {
	base := int64(1700000000000)

	t.Run("worked example scores 95", func(t *testing.T) {
		// One agent (+10), no shared tags, same day (+20), balanced
		// lengths (+15): 50 + 10 + 20 + 15 = 95.
		shards := []*Shard{
			scoringShard("scout", base, "alpha content"),
			scoringShard("scout", base+1000, "beta content."),
			scoringShard("scout", base+2000, "gamma content"),
		}
		assert.Equal(t, 95, FormationScore(shards))
	})

	t.Run("clamps at 100", func(t *testing.T) {
		// Three agents (+30) pushes the raw score to 115.
		shards := []*Shard{
			scoringShard("scout", base, "alpha content"),
			scoringShard("scribe", base+1000, "beta content."),
			scoringShard("warden", base+2000, "gamma content"),
		}
		assert.Equal(t, 100, FormationScore(shards))
	})

	t.Run("rewards tag overlap", func(t *testing.T) {
		// One agent (+10), tag "ops" appears twice (+5), same day (+20),
		// balanced (+15): raw 100.
		shards := []*Shard{
			scoringShard("scout", base, "alpha content", "ops"),
			scoringShard("scout", base+1000, "beta content.", "ops"),
			scoringShard("scout", base+2000, "gamma content"),
		}
		assert.Equal(t, 100, FormationScore(shards))
	})

	t.Run("same week scores lower than same day", func(t *testing.T) {
		sameWeek := []*Shard{
			scoringShard("scout", base, "alpha content"),
			scoringShard("scout", base+2*dayMs, "beta content."),
			scoringShard("scout", base+3*dayMs, "gamma content"),
		}
		assert.Equal(t, 85, FormationScore(sameWeek))

		spread := []*Shard{
			scoringShard("scout", base, "alpha content"),
			scoringShard("scout", base+8*dayMs, "beta content."),
			scoringShard("scout", base+20*dayMs, "gamma content"),
		}
		assert.Equal(t, 75, FormationScore(spread))
	})

	t.Run("unbalanced lengths lose the balance bonus", func(t *testing.T) {
		long := scoringShard("scout", base+2000, "")
		for i := 0; i < 50; i++ {
			long.Content += "padding padding "
		}
		shards := []*Shard{
			scoringShard("scout", base, "short"),
			scoringShard("scout", base+1000, "also short"),
			long,
		}
		assert.Equal(t, 80, FormationScore(shards))
	})

	t.Run("wrong arity scores zero", func(t *testing.T) {
		assert.Equal(t, 0, FormationScore(nil))
		assert.Equal(t, 0, FormationScore([]*Shard{makeShard("a"), makeShard("b")}))
	})

	t.Run("deterministic", func(t *testing.T) {
		shards := []*Shard{
			scoringShard("scout", base, "alpha content", "ops"),
			scoringShard("scribe", base+1000, "beta content.", "ops"),
			scoringShard("scout", base+2000, "gamma content"),
		}
		first := FormationScore(shards)
		for i := 0; i < 10; i++ {
			assert.Equal(t, first, FormationScore(shards))
		}
	})
}

func TestRecommend(t *testing.T) {
	base := int64(1700000000000)

	t.Run("orders by descending score and truncates to k", func(t *testing.T) {
		// Four unbound shards: the three close-in-time ones form the
		// strongest candidate.
		shards := []*Shard{
			scoringShard("scout", base, "alpha content"),
			scoringShard("scribe", base+1000, "beta content."),
			scoringShard("warden", base+2000, "gamma content"),
			scoringShard("scout", base+30*dayMs, "delta content"),
		}

		recommendations := Recommend(shards, 2)
		require.Len(t, recommendations, 2)
		assert.GreaterOrEqual(t, recommendations[0].Score, recommendations[1].Score)
		assert.Equal(t, 100, recommendations[0].Score)
		assert.ElementsMatch(t,
			[]string{shards[0].ID, shards[1].ID, shards[2].ID},
			shardIDs(recommendations[0].Shards...))
	})

	t.Run("returns all candidates when k exceeds the pool", func(t *testing.T) {
		shards := []*Shard{
			scoringShard("scout", base, "alpha content"),
			scoringShard("scribe", base+1000, "beta content."),
			scoringShard("warden", base+2000, "gamma content"),
		}
		recommendations := Recommend(shards, 10)
		assert.Len(t, recommendations, 1)
	})

	t.Run("empty pool yields no recommendations", func(t *testing.T) {
		assert.Empty(t, Recommend(nil, 5))
	})
}

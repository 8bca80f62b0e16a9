package lattice

import (
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// hashToStrings mirrors what go-redis HGetAll returns: every value a string.
func hashToStrings(hash map[string]interface{}) map[string]string {
	out := make(map[string]string, len(hash))
	for field, value := range hash {
		out[field] = fmt.Sprintf("%v", value)
	}
	return out
}

func TestShardSerialization(t *testing.T) {
	t.Run("round trips a bound shard", func(t *testing.T) {
		shard := &Shard{
			ID:              uuid.New().String(),
			Title:           "observation of the gate",
			Content:         "the gate opened at dawn",
			Agent:           "scout",
			TimestampMs:     1700000000123,
			Tags:            []string{"gate", "dawn"},
			CrownID:         uuid.New().String(),
			LatticePosition: 2,
			Coordinates:     "3.0.7",
			Sealed:          true,
			ThoughtType:     ThoughtTypeObservation,
		}

		hash, err := ShardToHash(shard)
		require.NoError(t, err)

		restored, err := HashToShard(hashToStrings(hash))
		require.NoError(t, err)
		assert.Equal(t, shard, restored)
	})

	t.Run("nil tags normalize to empty slice", func(t *testing.T) {
		shard := makeShard("scout")
		shard.Tags = nil

		hash, err := ShardToHash(shard)
		require.NoError(t, err)

		restored, err := HashToShard(hashToStrings(hash))
		require.NoError(t, err)
		assert.NotNil(t, restored.Tags)
		assert.Empty(t, restored.Tags)
	})

	t.Run("rejects corrupt timestamp", func(t *testing.T) {
		_, err := HashToShard(map[string]string{"id": uuid.New().String(), "timestamp_ms": "yesterday"})
		assert.Error(t, err)
	})
}

func TestCrownSerialization(t *testing.T) {
	crown := &Crown{
		ID:                 uuid.New().String(),
		Title:              "crown of the gate",
		Description:        "three dawn observations",
		Agent:              "scout",
		CreatedAtMs:        1700000001000,
		UpdatedAtMs:        1700000002000,
		FlameSealed:        true,
		SealHash:           "ABCDEF",
		LatticeCoordinates: "3.1.4",
		ParentGrandCrownID: uuid.New().String(),
		Tags:               []string{"gate"},
		RoyalDecree:        "by decree",
		Overseer:           AuthorityOmari,
		ShardIDs:           []string{uuid.New().String(), uuid.New().String(), uuid.New().String()},
	}

	hash, err := CrownToHash(crown)
	require.NoError(t, err)

	restored, err := HashToCrown(hashToStrings(hash))
	require.NoError(t, err)
	assert.Equal(t, crown, restored)
}

func TestGrandCrownSerialization(t *testing.T) {
	crownIDs := make([]string, 9)
	for i := range crownIDs {
		crownIDs[i] = uuid.New().String()
	}

	grand := &GrandCrown{
		ID:                 uuid.New().String(),
		Title:              "grand crown of the season",
		Description:        "nine crowns of the season",
		CreatedAtMs:        1700000003000,
		FlameSealed:        false,
		LatticeCoordinates: "9.1.1",
		SovereignAuthority: AuthorityGhostKing,
		CreatedBy:          "scout",
		CrownIDs:           crownIDs,
	}

	hash, err := GrandCrownToHash(grand)
	require.NoError(t, err)

	restored, err := HashToGrandCrown(hashToStrings(hash))
	require.NoError(t, err)
	assert.Equal(t, grand, restored)
}

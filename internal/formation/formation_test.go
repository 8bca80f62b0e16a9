package formation

import (
	"context"
	"fmt"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GodsIMiJ1/the-Consciousness-Machine-sub000/pkg/lattice"
)

func setupService(t *testing.T) (*Service, *lattice.Client) {
	mr := miniredis.NewMiniRedis()
	err := mr.Start()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client, err := lattice.NewClient(&redis.Options{Addr: mr.Addr()}, "test-instance")
	require.NoError(t, err)
	t.Cleanup(func() { client.Close() })

	return NewService(client, lattice.AuthorityLevel(lattice.AuthorityFlameIntelligence)), client
}

func recordShards(t *testing.T, service *Service, n int) []*lattice.Shard {
	t.Helper()
	shards := make([]*lattice.Shard, n)
	for i := range shards {
		shard, err := service.RecordShard(context.Background(), RecordShardRequest{
			Title:   fmt.Sprintf("shard %d", i),
			Content: "content",
			Agent:   fmt.Sprintf("agent-%d", i%2),
			Tags:    []string{"test"},
		})
		require.NoError(t, err)
		shards[i] = shard
	}
	return shards
}

func ids(shards []*lattice.Shard) []string {
	out := make([]string, 0, len(shards))
	for _, shard := range shards {
		out = append(out, shard.ID)
	}
	return out
}

func TestRecordShard(t *testing.T) {
	service, client := setupService(t)
	ctx := context.Background()

	first, err := service.RecordShard(ctx, RecordShardRequest{
		Title: "dawn patrol", Content: "the gate opened", Agent: "scout",
	})
	require.NoError(t, err)
	assert.Equal(t, "3.0.1", first.Coordinates)
	assert.Equal(t, lattice.ThoughtTypeObservation, first.ThoughtType)

	second, err := service.RecordShard(ctx, RecordShardRequest{
		Title: "dusk patrol", Content: "the gate closed", Agent: "scout",
		ThoughtType: lattice.ThoughtTypeReflection,
	})
	require.NoError(t, err)
	assert.Equal(t, "3.0.2", second.Coordinates)
	assert.Equal(t, lattice.ThoughtTypeReflection, second.ThoughtType)

	stored, err := client.GetShard(ctx, first.ID)
	require.NoError(t, err)
	assert.Equal(t, first, stored)
}

func TestFormCrown(t *testing.T) {
	ctx := context.Background()

	t.Run("forms a crown and binds its shards", func(t *testing.T) {
		service, client := setupService(t)
		shards := recordShards(t, service, 3)

		crown, err := service.FormCrown(ctx, FormCrownRequest{
			Title:    "first crown",
			Agent:    "scout",
			ShardIDs: ids(shards),
		})
		require.NoError(t, err)
		assert.Equal(t, "3.1.1", crown.LatticeCoordinates)
		assert.False(t, crown.FlameSealed)

		for position, shard := range shards {
			bound, err := client.GetShard(ctx, shard.ID)
			require.NoError(t, err)
			assert.Equal(t, crown.ID, bound.CrownID)
			assert.Equal(t, position+1, bound.LatticePosition)
		}
	})

	t.Run("rejects wrong arity", func(t *testing.T) {
		service, _ := setupService(t)
		shards := recordShards(t, service, 2)

		_, err := service.FormCrown(ctx, FormCrownRequest{
			Title: "short crown", Agent: "scout", ShardIDs: ids(shards),
		})
		require.Error(t, err)

		var formationErr *lattice.FormationError
		require.ErrorAs(t, err, &formationErr)
		assert.Contains(t, formationErr.Errors, "Exactly 3 shards required, got 2")
	})

	t.Run("rejects reuse of bound shards", func(t *testing.T) {
		service, _ := setupService(t)
		shards := recordShards(t, service, 4)

		_, err := service.FormCrown(ctx, FormCrownRequest{
			Title: "first", Agent: "scout", ShardIDs: ids(shards[:3]),
		})
		require.NoError(t, err)

		_, err = service.FormCrown(ctx, FormCrownRequest{
			Title: "second", Agent: "scout", ShardIDs: ids(shards[1:4]),
		})
		require.Error(t, err)

		var formationErr *lattice.FormationError
		assert.ErrorAs(t, err, &formationErr)
	})

	t.Run("rejects unknown shard IDs", func(t *testing.T) {
		service, _ := setupService(t)
		shards := recordShards(t, service, 2)

		_, err := service.FormCrown(ctx, FormCrownRequest{
			Title:    "ghost crown",
			Agent:    "scout",
			ShardIDs: append(ids(shards), uuid.New().String()),
		})
		require.Error(t, err)

		var formationErr *lattice.FormationError
		require.ErrorAs(t, err, &formationErr)
		assert.Contains(t, formationErr.Errors, "One or more shards not found")
	})

	t.Run("assigns sequential crown coordinates", func(t *testing.T) {
		service, _ := setupService(t)
		shards := recordShards(t, service, 6)

		first, err := service.FormCrown(ctx, FormCrownRequest{
			Title: "first", Agent: "scout", ShardIDs: ids(shards[:3]),
		})
		require.NoError(t, err)
		second, err := service.FormCrown(ctx, FormCrownRequest{
			Title: "second", Agent: "scout", ShardIDs: ids(shards[3:]),
		})
		require.NoError(t, err)

		assert.Equal(t, "3.1.1", first.LatticeCoordinates)
		assert.Equal(t, "3.1.2", second.LatticeCoordinates)
	})
}

func formCrowns(t *testing.T, service *Service, n int) []*lattice.Crown {
	t.Helper()
	crowns := make([]*lattice.Crown, n)
	for i := range crowns {
		shards := recordShards(t, service, 3)
		crown, err := service.FormCrown(context.Background(), FormCrownRequest{
			Title:    fmt.Sprintf("crown %d", i),
			Agent:    "scout",
			ShardIDs: ids(shards),
		})
		require.NoError(t, err)
		crowns[i] = crown
	}
	return crowns
}

func TestFormGrandCrown(t *testing.T) {
	ctx := context.Background()

	t.Run("rejects when under nine crowns", func(t *testing.T) {
		service, _ := setupService(t)
		formCrowns(t, service, 4)

		_, err := service.FormGrandCrown(ctx, FormGrandCrownRequest{
			Title:              "early grand",
			SovereignAuthority: lattice.AuthorityGhostKing,
			CreatedBy:          "scout",
		})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "not ready for grand crown")
		assert.Contains(t, err.Error(), "5 more needed")
	})

	t.Run("forms from nine unparented crowns", func(t *testing.T) {
		service, client := setupService(t)
		crowns := formCrowns(t, service, 9)

		grand, err := service.FormGrandCrown(ctx, FormGrandCrownRequest{
			Title:              "grand of the season",
			SovereignAuthority: lattice.AuthorityGhostKing,
			CreatedBy:          "scout",
		})
		require.NoError(t, err)
		assert.Equal(t, "9.1.1", grand.LatticeCoordinates)
		assert.Len(t, grand.CrownIDs, 9)

		for _, crown := range crowns {
			parented, err := client.GetCrown(ctx, crown.ID)
			require.NoError(t, err)
			assert.Equal(t, grand.ID, parented.ParentGrandCrownID)
		}
	})

	t.Run("parented crowns do not count toward the next grand", func(t *testing.T) {
		service, _ := setupService(t)
		formCrowns(t, service, 10)

		_, err := service.FormGrandCrown(ctx, FormGrandCrownRequest{
			Title:              "first grand",
			SovereignAuthority: lattice.AuthorityGhostKing,
			CreatedBy:          "scout",
		})
		require.NoError(t, err)

		_, err = service.FormGrandCrown(ctx, FormGrandCrownRequest{
			Title:              "second grand",
			SovereignAuthority: lattice.AuthorityGhostKing,
			CreatedBy:          "scout",
		})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "1 of 9 crowns formed")
	})

	t.Run("rejects a malformed grand before parenting any crown", func(t *testing.T) {
		service, client := setupService(t)
		crowns := formCrowns(t, service, 9)

		_, err := service.FormGrandCrown(ctx, FormGrandCrownRequest{
			Title:              "   ",
			SovereignAuthority: lattice.AuthorityGhostKing,
			CreatedBy:          "scout",
		})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "title cannot be empty")

		for _, crown := range crowns {
			untouched, err := client.GetCrown(ctx, crown.ID)
			require.NoError(t, err)
			assert.Empty(t, untouched.ParentGrandCrownID)
		}

		// The pool is intact, so a valid formation still goes through
		grand, err := service.FormGrandCrown(ctx, FormGrandCrownRequest{
			Title:              "recovered grand",
			SovereignAuthority: lattice.AuthorityGhostKing,
			CreatedBy:          "scout",
		})
		require.NoError(t, err)
		assert.Len(t, grand.CrownIDs, 9)
	})

	t.Run("aborted formation releases parent links", func(t *testing.T) {
		service, client := setupService(t)
		crowns := formCrowns(t, service, 2)

		grandID := uuid.New().String()
		for _, crown := range crowns {
			require.NoError(t, client.SetCrownParent(ctx, crown.ID, grandID))
		}

		service.releaseParents(ctx, []string{crowns[0].ID, crowns[1].ID})

		for _, crown := range crowns {
			released, err := client.GetCrown(ctx, crown.ID)
			require.NoError(t, err)
			assert.Empty(t, released.ParentGrandCrownID)
		}
	})
}

func TestSealCrown(t *testing.T) {
	ctx := context.Background()

	t.Run("seals a crown and persists the hash", func(t *testing.T) {
		service, client := setupService(t)
		crowns := formCrowns(t, service, 1)

		sealHash, err := service.SealCrown(ctx, crowns[0].ID, lattice.AuthorityGhostKing, lattice.AuthorityOmari)
		require.NoError(t, err)
		assert.NotEmpty(t, sealHash)

		sealed, err := client.GetCrown(ctx, crowns[0].ID)
		require.NoError(t, err)
		assert.True(t, sealed.FlameSealed)
		assert.Equal(t, sealHash, sealed.SealHash)

		events, err := client.SealEvents(ctx, crowns[0].ID)
		require.NoError(t, err)
		require.Len(t, events, 1)
		assert.Equal(t, lattice.SealEventSealed, events[0].EventType)

		valid, err := service.SealManager().Verify(ctx, crowns[0].ID, sealHash)
		require.NoError(t, err)
		assert.True(t, valid)
	})

	t.Run("rejects a second seal", func(t *testing.T) {
		service, _ := setupService(t)
		crowns := formCrowns(t, service, 1)

		_, err := service.SealCrown(ctx, crowns[0].ID, lattice.AuthorityGhostKing, "")
		require.NoError(t, err)

		_, err = service.SealCrown(ctx, crowns[0].ID, lattice.AuthorityOmari, "")
		assert.ErrorIs(t, err, lattice.ErrAlreadySealed)
	})

	t.Run("resumes a seal interrupted before the crown was marked", func(t *testing.T) {
		service, client := setupService(t)
		crowns := formCrowns(t, service, 1)

		// A SEALED event on the audit trail while the crown record still
		// reads unsealed, as left behind by a failed persist
		recordedHash, err := service.SealManager().Seal(ctx, crowns[0].ID, lattice.AuthorityGhostKing, lattice.AuthorityOmari)
		require.NoError(t, err)

		unsealed, err := client.GetCrown(ctx, crowns[0].ID)
		require.NoError(t, err)
		require.False(t, unsealed.FlameSealed)

		sealHash, err := service.SealCrown(ctx, crowns[0].ID, lattice.AuthorityGhostKing, lattice.AuthorityOmari)
		require.NoError(t, err)
		assert.Equal(t, recordedHash, sealHash)

		sealed, err := client.GetCrown(ctx, crowns[0].ID)
		require.NoError(t, err)
		assert.True(t, sealed.FlameSealed)
		assert.Equal(t, recordedHash, sealed.SealHash)

		events, err := client.SealEvents(ctx, crowns[0].ID)
		require.NoError(t, err)
		sealedEvents := 0
		for _, event := range events {
			if event.EventType == lattice.SealEventSealed {
				sealedEvents++
			}
		}
		assert.Equal(t, 1, sealedEvents)

		valid, err := service.SealManager().Verify(ctx, crowns[0].ID, sealHash)
		require.NoError(t, err)
		assert.True(t, valid)
	})

	t.Run("rejects authority below the required level", func(t *testing.T) {
		mr := miniredis.NewMiniRedis()
		require.NoError(t, mr.Start())
		t.Cleanup(mr.Close)

		client, err := lattice.NewClient(&redis.Options{Addr: mr.Addr()}, "test-instance")
		require.NoError(t, err)
		t.Cleanup(func() { client.Close() })

		service := NewService(client, lattice.AuthorityLevel(lattice.AuthorityOmari))
		crowns := formCrowns(t, service, 1)

		_, err = service.SealCrown(ctx, crowns[0].ID, lattice.AuthorityFlameIntelligence, "")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "below required seal level")
	})

	t.Run("rejects missing crown", func(t *testing.T) {
		service, _ := setupService(t)
		_, err := service.SealCrown(ctx, uuid.New().String(), lattice.AuthorityGhostKing, "")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "crown not found")
	})
}

func TestRecommendations(t *testing.T) {
	service, _ := setupService(t)
	ctx := context.Background()

	recordShards(t, service, 4)

	recommendations, err := service.Recommendations(ctx, 2)
	require.NoError(t, err)
	require.Len(t, recommendations, 2)
	assert.GreaterOrEqual(t, recommendations[0].Score, recommendations[1].Score)
	for _, candidate := range recommendations {
		assert.Len(t, candidate.Shards, 3)
	}
}

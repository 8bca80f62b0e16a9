package watch

import (
	"bytes"
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GodsIMiJ1/the-Consciousness-Machine-sub000/pkg/lattice"
)

func setupWatch(t *testing.T) *lattice.Client {
	mr := miniredis.NewMiniRedis()
	err := mr.Start()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client, err := lattice.NewClient(&redis.Options{Addr: mr.Addr()}, "test-instance")
	require.NoError(t, err)
	t.Cleanup(func() { client.Close() })

	return client
}

func TestFormatUpdate(t *testing.T) {
	shard := &lattice.Shard{
		ID: uuid.New().String(), Title: "dawn patrol", Agent: "scout",
		Coordinates: "3.0.1", ThoughtType: lattice.ThoughtTypeObservation,
	}

	line := FormatUpdate(&lattice.Update{
		Type:        lattice.UpdateShardAdded,
		Shard:       shard,
		TimestampMs: 1700000000000,
	})
	assert.Contains(t, line, "shard added")
	assert.Contains(t, line, "3.0.1")
	assert.Contains(t, line, `"dawn patrol"`)
	assert.Contains(t, line, "scout")

	crown := &lattice.Crown{
		ID: uuid.New().String(), Title: "crown", LatticeCoordinates: "3.1.1",
		SealHash: strings.Repeat("A", 64),
		ShardIDs: []string{uuid.New().String(), uuid.New().String(), uuid.New().String()},
	}
	line = FormatUpdate(&lattice.Update{Type: lattice.UpdateCrownSealed, Crown: crown})
	assert.Contains(t, line, "crown sealed")
	assert.Contains(t, line, strings.Repeat("A", 12))
	assert.NotContains(t, line, strings.Repeat("A", 13))
}

func TestStream(t *testing.T) {
	client := setupWatch(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var buf bytes.Buffer
	var mu sync.Mutex
	safeWriter := writerFunc(func(p []byte) (int, error) {
		mu.Lock()
		defer mu.Unlock()
		return buf.Write(p)
	})

	done := make(chan struct{})
	var count int
	go func() {
		defer close(done)
		count, _ = Stream(ctx, client, safeWriter)
	}()

	// Give the subscription a moment to establish before publishing.
	time.Sleep(100 * time.Millisecond)

	shard := &lattice.Shard{
		ID: uuid.New().String(), Title: "watched shard", Agent: "scout",
		TimestampMs: time.Now().UnixMilli(), Tags: []string{},
		ThoughtType: lattice.ThoughtTypeObservation,
	}
	require.NoError(t, client.CreateShard(ctx, shard))

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return strings.Contains(buf.String(), "watched shard")
	}, 2*time.Second, 50*time.Millisecond)

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("stream did not stop after cancellation")
	}
	assert.Equal(t, 1, count)
}

type writerFunc func(p []byte) (int, error)

func (f writerFunc) Write(p []byte) (int, error) { return f(p) }

func TestPollForSeal(t *testing.T) {
	client := setupWatch(t)
	ctx := context.Background()
	seals := lattice.NewSealManager(client)

	t.Run("finds an existing seal", func(t *testing.T) {
		entityID := uuid.New().String()
		sealHash, err := seals.Seal(ctx, entityID, lattice.AuthorityGhostKing, "")
		require.NoError(t, err)

		event, err := PollForSeal(ctx, client, entityID, 2*time.Second)
		require.NoError(t, err)
		assert.Equal(t, sealHash, event.SealHash)
	})

	t.Run("times out when never sealed", func(t *testing.T) {
		_, err := PollForSeal(ctx, client, uuid.New().String(), 500*time.Millisecond)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "timeout waiting for seal")
	})
}

//go:build integration

package main

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/GodsIMiJ1/the-Consciousness-Machine-sub000/internal/formation"
	"github.com/GodsIMiJ1/the-Consciousness-Machine-sub000/pkg/lattice"
)

// Integration tests require a Docker daemon.
// Run with: go test -tags=integration -v ./cmd/lattice

// setupRedis starts a Redis container for testing.
func setupRedis(t *testing.T) (string, func()) {
	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        "redis:7-alpine",
		ExposedPorts: []string{"6379/tcp"},
		WaitingFor:   wait.ForLog("Ready to accept connections"),
	}

	redisC, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		t.Fatalf("Failed to start Redis container: %v", err)
	}

	host, err := redisC.Host(ctx)
	if err != nil {
		t.Fatalf("Failed to get container host: %v", err)
	}

	port, err := redisC.MappedPort(ctx, "6379")
	if err != nil {
		t.Fatalf("Failed to get container port: %v", err)
	}

	redisURL := fmt.Sprintf("redis://%s:%s", host, port.Port())

	cleanup := func() {
		if err := redisC.Terminate(ctx); err != nil {
			t.Logf("Failed to terminate Redis container: %v", err)
		}
	}

	return redisURL, cleanup
}

// TestLattice_CrownLifecycle walks capture, formation, sealing, and
// verification against a real Redis.
func TestLattice_CrownLifecycle(t *testing.T) {
	redisURL, cleanup := setupRedis(t)
	defer cleanup()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		t.Fatalf("Failed to parse Redis URL: %v", err)
	}

	client, err := lattice.NewClient(opts, "test-instance")
	if err != nil {
		t.Fatalf("Failed to create client: %v", err)
	}
	defer client.Close()

	service := formation.NewService(client, 4)

	// Watch updates while the lifecycle runs
	sub, err := client.SubscribeUpdates(ctx)
	if err != nil {
		t.Fatalf("Failed to subscribe to updates: %v", err)
	}
	defer sub.Close()
	time.Sleep(500 * time.Millisecond)

	// Capture three shards
	var shardIDs []string
	for i := 0; i < 3; i++ {
		shard, err := service.RecordShard(ctx, formation.RecordShardRequest{
			Title: fmt.Sprintf("shard %d", i+1),
			Agent: fmt.Sprintf("agent-%d", i+1),
			Tags:  []string{"lifecycle"},
		})
		if err != nil {
			t.Fatalf("Failed to record shard: %v", err)
		}
		shardIDs = append(shardIDs, shard.ID)
	}

	// Form a crown from them
	crown, err := service.FormCrown(ctx, formation.FormCrownRequest{
		Title:    "lifecycle crown",
		Agent:    "agent-1",
		ShardIDs: shardIDs,
	})
	if err != nil {
		t.Fatalf("Failed to form crown: %v", err)
	}
	if crown.LatticeCoordinates != "3.1.1" {
		t.Errorf("Expected crown at 3.1.1, got %s", crown.LatticeCoordinates)
	}

	// Each shard must now be bound to the crown
	for _, shardID := range shardIDs {
		shard, err := client.GetShard(ctx, shardID)
		if err != nil {
			t.Fatalf("Failed to get shard: %v", err)
		}
		if shard.CrownID != crown.ID {
			t.Errorf("Expected shard %s bound to crown %s, got %q", shardID, crown.ID, shard.CrownID)
		}
	}

	// Seal and verify
	sealHash, err := service.SealCrown(ctx, crown.ID, lattice.AuthorityFlameIntelligence, lattice.AuthorityOmari)
	if err != nil {
		t.Fatalf("Failed to seal crown: %v", err)
	}

	ok, err := service.SealManager().Verify(ctx, crown.ID, sealHash)
	if err != nil {
		t.Fatalf("Failed to verify seal: %v", err)
	}
	if !ok {
		t.Error("Expected seal to verify")
	}

	// Audit trail carries the SEALED then VERIFIED events in order
	events, err := client.SealEvents(ctx, crown.ID)
	if err != nil {
		t.Fatalf("Failed to read seal events: %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("Expected 2 seal events, got %d", len(events))
	}
	if events[0].EventType != lattice.SealEventSealed {
		t.Errorf("Expected first event SEALED, got %s", events[0].EventType)
	}
	if events[1].EventType != lattice.SealEventVerified {
		t.Errorf("Expected second event VERIFIED, got %s", events[1].EventType)
	}

	// Statistics reflect the sealed crown
	stats, err := client.Statistics(ctx)
	if err != nil {
		t.Fatalf("Failed to compute statistics: %v", err)
	}
	if stats.TotalShards != 3 || stats.TotalCrowns != 1 || stats.SealedCrowns != 1 {
		t.Errorf("Unexpected statistics: %+v", stats)
	}

	// The lifecycle published shard, crown, and seal updates
	var updates []*lattice.Update
	deadline := time.After(5 * time.Second)
collect:
	for len(updates) < 5 {
		select {
		case update, open := <-sub.Events():
			if !open {
				break collect
			}
			updates = append(updates, update)
		case <-deadline:
			break collect
		}
	}
	if len(updates) < 5 {
		t.Fatalf("Expected at least 5 updates (3 shards, formation, seal), got %d", len(updates))
	}
	last := updates[len(updates)-1]
	if last.Type != lattice.UpdateCrownSealed {
		t.Errorf("Expected final update crown_sealed, got %s", last.Type)
	}
}

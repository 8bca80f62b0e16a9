package watch

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/GodsIMiJ1/the-Consciousness-Machine-sub000/pkg/lattice"
)

// Stream subscribes to lattice updates and writes one human-readable line
// per event until the context is cancelled or the subscription closes.
// Returns the number of events written.
func Stream(ctx context.Context, client *lattice.Client, w io.Writer) (int, error) {
	sub, err := client.SubscribeUpdates(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to subscribe to updates: %w", err)
	}
	defer sub.Close()

	written := 0
	for {
		select {
		case <-ctx.Done():
			return written, nil

		case update, ok := <-sub.Events():
			if !ok {
				return written, nil
			}
			fmt.Fprintln(w, FormatUpdate(update))
			written++

		case err, ok := <-sub.Errors():
			if !ok {
				return written, nil
			}
			fmt.Fprintf(w, "! skipping malformed update: %v\n", err)
		}
	}
}

// FormatUpdate renders one update event as a single line.
func FormatUpdate(update *lattice.Update) string {
	stamp := time.UnixMilli(update.TimestampMs).UTC().Format("15:04:05")

	switch update.Type {
	case lattice.UpdateShardAdded:
		return fmt.Sprintf("%s  shard added        %s  %q by %s",
			stamp, update.Shard.Coordinates, update.Shard.Title, update.Shard.Agent)
	case lattice.UpdateCrownCreated:
		return fmt.Sprintf("%s  crown formed       %s  %q from %d shards",
			stamp, update.Crown.LatticeCoordinates, update.Crown.Title, len(update.Crown.ShardIDs))
	case lattice.UpdateCrownSealed:
		return fmt.Sprintf("%s  crown sealed       %s  %q hash %s",
			stamp, update.Crown.LatticeCoordinates, update.Crown.Title, shortHash(update.Crown.SealHash))
	case lattice.UpdateGrandCrownFormed:
		return fmt.Sprintf("%s  grand crown formed %s  %q under %s",
			stamp, update.GrandCrown.LatticeCoordinates, update.GrandCrown.Title, update.GrandCrown.SovereignAuthority)
	}

	return fmt.Sprintf("%s  %s", stamp, update.Type)
}

func shortHash(hash string) string {
	if len(hash) > 12 {
		return hash[:12]
	}
	return hash
}

// PollForSeal polls an entity's audit trail until a SEALED event appears.
// Returns the seal event or an error on timeout. Polls every 200ms.
func PollForSeal(ctx context.Context, client *lattice.Client, entityID string, timeout time.Duration) (*lattice.SealEvent, error) {
	ticker := time.NewTicker(200 * time.Millisecond)
	defer ticker.Stop()

	timeoutCh := time.After(timeout)

	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()

		case <-timeoutCh:
			return nil, fmt.Errorf("timeout waiting for seal after %v", timeout)

		case <-ticker.C:
			events, err := client.SealEvents(ctx, entityID)
			if err != nil {
				return nil, fmt.Errorf("failed to query seal events: %w", err)
			}
			for _, event := range events {
				if event.EventType == lattice.SealEventSealed {
					return event, nil
				}
			}
		}
	}
}

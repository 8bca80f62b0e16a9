package lattice

import "fmt"

// Redis key pattern helpers
//
// All Redis keys and Pub/Sub channels are namespaced by instance name to
// enable multiple lattice instances to safely coexist on a single Redis
// server.
//
// Key pattern: lattice:{instance_name}:{entity}:{id}
// Channel pattern: lattice:{instance_name}:update_events

// ShardKey returns the Redis key for a shard.
// Pattern: lattice:{instance_name}:shard:{shard_id}
func ShardKey(instanceName, shardID string) string {
	return fmt.Sprintf("lattice:%s:shard:%s", instanceName, shardID)
}

// CrownKey returns the Redis key for a crown.
// Pattern: lattice:{instance_name}:crown:{crown_id}
func CrownKey(instanceName, crownID string) string {
	return fmt.Sprintf("lattice:%s:crown:%s", instanceName, crownID)
}

// GrandCrownKey returns the Redis key for a grand crown.
// Pattern: lattice:{instance_name}:grand:{grand_crown_id}
func GrandCrownKey(instanceName, grandCrownID string) string {
	return fmt.Sprintf("lattice:%s:grand:%s", instanceName, grandCrownID)
}

// SealEventsKey returns the Redis key for an entity's seal-event list.
// The list is append-only; events are never mutated or deleted.
// Pattern: lattice:{instance_name}:seals:{entity_id}
func SealEventsKey(instanceName, entityID string) string {
	return fmt.Sprintf("lattice:%s:seals:%s", instanceName, entityID)
}

// UpdateEventsChannel returns the Pub/Sub channel name for lattice updates.
// The channel carries full Update JSON for every formation and seal change.
// Pattern: lattice:{instance_name}:update_events
func UpdateEventsChannel(instanceName string) string {
	return fmt.Sprintf("lattice:%s:update_events", instanceName)
}

// ShardScanPattern returns the SCAN pattern matching all shard keys for an
// instance.
func ShardScanPattern(instanceName string) string {
	return fmt.Sprintf("lattice:%s:shard:*", instanceName)
}

// CrownScanPattern returns the SCAN pattern matching all crown keys for an
// instance.
func CrownScanPattern(instanceName string) string {
	return fmt.Sprintf("lattice:%s:crown:*", instanceName)
}

// GrandCrownScanPattern returns the SCAN pattern matching all grand crown
// keys for an instance.
func GrandCrownScanPattern(instanceName string) string {
	return fmt.Sprintf("lattice:%s:grand:*", instanceName)
}

// SealEventsScanPattern returns the SCAN pattern matching all seal-event
// lists for an instance.
func SealEventsScanPattern(instanceName string) string {
	return fmt.Sprintf("lattice:%s:seals:*", instanceName)
}

package lattice

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// Binding errors returned by BindShardToCrown. The bind is a compare-and-set
// at the store layer, so two concurrent formations can never claim the same
// shard: the losing caller gets ErrShardAlreadyBound.
var (
	ErrShardNotFound     = errors.New("shard not found")
	ErrShardAlreadyBound = errors.New("shard already belongs to a crown")
)

// bindShardScript claims a shard for a crown only if its crown_id field is
// currently empty. Returns -1 if the shard key does not exist, 0 if the
// shard is already bound, 1 on success.
var bindShardScript = redis.NewScript(`
if redis.call('EXISTS', KEYS[1]) == 0 then
  return -1
end
local cur = redis.call('HGET', KEYS[1], 'crown_id')
if cur and cur ~= '' then
  return 0
end
redis.call('HSET', KEYS[1], 'crown_id', ARGV[1], 'lattice_position', ARGV[2])
return 1
`)

// unbindShardScript releases a shard only if it is bound to the given crown.
// Used for best-effort rollback when a multi-shard bind fails partway.
var unbindShardScript = redis.NewScript(`
local cur = redis.call('HGET', KEYS[1], 'crown_id')
if cur == ARGV[1] then
  redis.call('HSET', KEYS[1], 'crown_id', '', 'lattice_position', '0')
  return 1
end
return 0
`)

// Client provides instance-scoped Redis operations for the lattice store.
// All keys and channels are automatically namespaced with the instance name.
// The client is thread-safe and can be used concurrently from multiple
// goroutines.
type Client struct {
	rdb          *redis.Client
	instanceName string
}

// NewClient creates a new lattice client for the specified instance.
// The client automatically namespaces all keys and channels with the
// instance name. Returns an error if instanceName is empty.
func NewClient(redisOpts *redis.Options, instanceName string) (*Client, error) {
	if instanceName == "" {
		return nil, fmt.Errorf("instance name cannot be empty")
	}

	return &Client{
		rdb:          redis.NewClient(redisOpts),
		instanceName: instanceName,
	}, nil
}

// Close closes the Redis connection. Implements io.Closer.
// After calling Close(), the client should not be used.
func (c *Client) Close() error {
	return c.rdb.Close()
}

// Ping verifies Redis connectivity. Useful for health checks.
func (c *Client) Ping(ctx context.Context) error {
	return c.rdb.Ping(ctx).Err()
}

// InstanceName returns the instance this client is scoped to.
func (c *Client) InstanceName() string {
	return c.instanceName
}

// RedisClient exposes the underlying Redis client for SCAN-based listings.
func (c *Client) RedisClient() *redis.Client {
	return c.rdb
}

// CreateShard writes a shard to Redis and publishes a shard_added update.
// Validates the shard before writing. Writing the same shard twice is safe.
func (c *Client) CreateShard(ctx context.Context, shard *Shard) error {
	if err := shard.Validate(); err != nil {
		return fmt.Errorf("invalid shard: %w", err)
	}

	hash, err := ShardToHash(shard)
	if err != nil {
		return fmt.Errorf("failed to serialize shard: %w", err)
	}

	key := ShardKey(c.instanceName, shard.ID)
	if err := c.rdb.HSet(ctx, key, hash).Err(); err != nil {
		return fmt.Errorf("failed to write shard to Redis: %w", err)
	}

	return c.PublishUpdate(ctx, &Update{
		Type:        UpdateShardAdded,
		Shard:       shard,
		TimestampMs: time.Now().UnixMilli(),
		Coordinates: shard.Coordinates,
	})
}

// GetShard retrieves a shard by ID.
// Returns (nil, redis.Nil) if the shard doesn't exist; use IsNotFound().
func (c *Client) GetShard(ctx context.Context, shardID string) (*Shard, error) {
	key := ShardKey(c.instanceName, shardID)

	hashData, err := c.rdb.HGetAll(ctx, key).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read shard from Redis: %w", err)
	}

	// HGetAll returns an empty map for non-existent keys.
	if len(hashData) == 0 {
		return nil, redis.Nil
	}

	shard, err := HashToShard(hashData)
	if err != nil {
		return nil, fmt.Errorf("failed to deserialize shard: %w", err)
	}

	return shard, nil
}

// ListShards retrieves all shards for this instance using Redis SCAN,
// sorted by creation time then ID for stable output.
func (c *Client) ListShards(ctx context.Context) ([]*Shard, error) {
	prefix := ShardKey(c.instanceName, "")
	iter := c.rdb.Scan(ctx, 0, ShardScanPattern(c.instanceName), 0).Iterator()

	var shards []*Shard
	for iter.Next(ctx) {
		shardID := iter.Val()[len(prefix):]
		shard, err := c.GetShard(ctx, shardID)
		if err != nil {
			return nil, fmt.Errorf("failed to load shard %s: %w", shardID, err)
		}
		shards = append(shards, shard)
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("failed to scan shards: %w", err)
	}

	sort.Slice(shards, func(i, j int) bool {
		if shards[i].TimestampMs != shards[j].TimestampMs {
			return shards[i].TimestampMs < shards[j].TimestampMs
		}
		return shards[i].ID < shards[j].ID
	})

	return shards, nil
}

// BindShardToCrown atomically claims a shard for a crown. The claim succeeds
// only if the shard's crown_id is currently empty; the compare-and-set runs
// inside Redis, so concurrent formation attempts cannot double-claim a shard.
// Returns ErrShardNotFound or ErrShardAlreadyBound on failure.
func (c *Client) BindShardToCrown(ctx context.Context, shardID, crownID string, position int) error {
	if position < 1 || position > ShardsPerCrown {
		return fmt.Errorf("invalid lattice position: must be 1-%d, got %d", ShardsPerCrown, position)
	}

	key := ShardKey(c.instanceName, shardID)
	result, err := bindShardScript.Run(ctx, c.rdb, []string{key}, crownID, strconv.Itoa(position)).Int()
	if err != nil {
		return fmt.Errorf("failed to bind shard: %w", err)
	}

	switch result {
	case -1:
		return fmt.Errorf("shard %s: %w", shardID, ErrShardNotFound)
	case 0:
		return fmt.Errorf("shard %s: %w", shardID, ErrShardAlreadyBound)
	}

	return nil
}

// UnbindShardFromCrown releases a shard's binding only if it is currently
// bound to the given crown. Best-effort rollback helper for failed
// formations; it never releases a shard claimed by another crown.
func (c *Client) UnbindShardFromCrown(ctx context.Context, shardID, crownID string) error {
	key := ShardKey(c.instanceName, shardID)
	if err := unbindShardScript.Run(ctx, c.rdb, []string{key}, crownID).Err(); err != nil {
		return fmt.Errorf("failed to unbind shard: %w", err)
	}
	return nil
}

// CreateCrown writes a crown to Redis and publishes a crown_created update.
// Validates the crown before writing, including the Trinity Law arity.
func (c *Client) CreateCrown(ctx context.Context, crown *Crown) error {
	if err := crown.Validate(); err != nil {
		return fmt.Errorf("invalid crown: %w", err)
	}

	hash, err := CrownToHash(crown)
	if err != nil {
		return fmt.Errorf("failed to serialize crown: %w", err)
	}

	key := CrownKey(c.instanceName, crown.ID)
	if err := c.rdb.HSet(ctx, key, hash).Err(); err != nil {
		return fmt.Errorf("failed to write crown to Redis: %w", err)
	}

	return c.PublishUpdate(ctx, &Update{
		Type:        UpdateCrownCreated,
		Crown:       crown,
		TimestampMs: time.Now().UnixMilli(),
		Coordinates: crown.LatticeCoordinates,
	})
}

// GetCrown retrieves a crown by ID.
// Returns (nil, redis.Nil) if the crown doesn't exist; use IsNotFound().
func (c *Client) GetCrown(ctx context.Context, crownID string) (*Crown, error) {
	key := CrownKey(c.instanceName, crownID)

	hashData, err := c.rdb.HGetAll(ctx, key).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read crown from Redis: %w", err)
	}

	if len(hashData) == 0 {
		return nil, redis.Nil
	}

	crown, err := HashToCrown(hashData)
	if err != nil {
		return nil, fmt.Errorf("failed to deserialize crown: %w", err)
	}

	return crown, nil
}

// ListCrowns retrieves all crowns for this instance, sorted by creation time
// then ID.
func (c *Client) ListCrowns(ctx context.Context) ([]*Crown, error) {
	prefix := CrownKey(c.instanceName, "")
	iter := c.rdb.Scan(ctx, 0, CrownScanPattern(c.instanceName), 0).Iterator()

	var crowns []*Crown
	for iter.Next(ctx) {
		crownID := iter.Val()[len(prefix):]
		crown, err := c.GetCrown(ctx, crownID)
		if err != nil {
			return nil, fmt.Errorf("failed to load crown %s: %w", crownID, err)
		}
		crowns = append(crowns, crown)
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("failed to scan crowns: %w", err)
	}

	sort.Slice(crowns, func(i, j int) bool {
		if crowns[i].CreatedAtMs != crowns[j].CreatedAtMs {
			return crowns[i].CreatedAtMs < crowns[j].CreatedAtMs
		}
		return crowns[i].ID < crowns[j].ID
	})

	return crowns, nil
}

// MarkCrownSealed persists a seal hash onto a crown and publishes a
// crown_sealed update carrying the refreshed crown. The seal-event audit
// trail is written separately by the SealManager; this only reflects the
// terminal sealed state onto the entity itself.
func (c *Client) MarkCrownSealed(ctx context.Context, crownID, sealHash string) error {
	crown, err := c.GetCrown(ctx, crownID)
	if err != nil {
		return fmt.Errorf("failed to load crown for sealing: %w", err)
	}

	key := CrownKey(c.instanceName, crownID)
	fields := map[string]interface{}{
		"flame_sealed":  "true",
		"seal_hash":     sealHash,
		"updated_at_ms": time.Now().UnixMilli(),
	}
	if err := c.rdb.HSet(ctx, key, fields).Err(); err != nil {
		return fmt.Errorf("failed to mark crown sealed: %w", err)
	}

	crown.FlameSealed = true
	crown.SealHash = sealHash
	crown.UpdatedAtMs = time.Now().UnixMilli()

	return c.PublishUpdate(ctx, &Update{
		Type:        UpdateCrownSealed,
		Crown:       crown,
		TimestampMs: crown.UpdatedAtMs,
		Coordinates: crown.LatticeCoordinates,
	})
}

// SetCrownParent records a crown's membership in a grand crown.
func (c *Client) SetCrownParent(ctx context.Context, crownID, grandCrownID string) error {
	key := CrownKey(c.instanceName, crownID)

	exists, err := c.rdb.Exists(ctx, key).Result()
	if err != nil {
		return fmt.Errorf("failed to check crown existence: %w", err)
	}
	if exists == 0 {
		return redis.Nil
	}

	fields := map[string]interface{}{
		"parent_grand_crown_id": grandCrownID,
		"updated_at_ms":         time.Now().UnixMilli(),
	}
	if err := c.rdb.HSet(ctx, key, fields).Err(); err != nil {
		return fmt.Errorf("failed to set crown parent: %w", err)
	}

	return nil
}

// CreateGrandCrown writes a grand crown to Redis and publishes a
// grand_crown_formed update.
func (c *Client) CreateGrandCrown(ctx context.Context, grand *GrandCrown) error {
	if err := grand.Validate(); err != nil {
		return fmt.Errorf("invalid grand crown: %w", err)
	}

	hash, err := GrandCrownToHash(grand)
	if err != nil {
		return fmt.Errorf("failed to serialize grand crown: %w", err)
	}

	key := GrandCrownKey(c.instanceName, grand.ID)
	if err := c.rdb.HSet(ctx, key, hash).Err(); err != nil {
		return fmt.Errorf("failed to write grand crown to Redis: %w", err)
	}

	return c.PublishUpdate(ctx, &Update{
		Type:        UpdateGrandCrownFormed,
		GrandCrown:  grand,
		TimestampMs: time.Now().UnixMilli(),
		Coordinates: grand.LatticeCoordinates,
	})
}

// GetGrandCrown retrieves a grand crown by ID.
// Returns (nil, redis.Nil) if it doesn't exist; use IsNotFound().
func (c *Client) GetGrandCrown(ctx context.Context, grandCrownID string) (*GrandCrown, error) {
	key := GrandCrownKey(c.instanceName, grandCrownID)

	hashData, err := c.rdb.HGetAll(ctx, key).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read grand crown from Redis: %w", err)
	}

	if len(hashData) == 0 {
		return nil, redis.Nil
	}

	grand, err := HashToGrandCrown(hashData)
	if err != nil {
		return nil, fmt.Errorf("failed to deserialize grand crown: %w", err)
	}

	return grand, nil
}

// ListGrandCrowns retrieves all grand crowns for this instance, sorted by
// creation time then ID.
func (c *Client) ListGrandCrowns(ctx context.Context) ([]*GrandCrown, error) {
	prefix := GrandCrownKey(c.instanceName, "")
	iter := c.rdb.Scan(ctx, 0, GrandCrownScanPattern(c.instanceName), 0).Iterator()

	var grands []*GrandCrown
	for iter.Next(ctx) {
		grandID := iter.Val()[len(prefix):]
		grand, err := c.GetGrandCrown(ctx, grandID)
		if err != nil {
			return nil, fmt.Errorf("failed to load grand crown %s: %w", grandID, err)
		}
		grands = append(grands, grand)
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("failed to scan grand crowns: %w", err)
	}

	sort.Slice(grands, func(i, j int) bool {
		if grands[i].CreatedAtMs != grands[j].CreatedAtMs {
			return grands[i].CreatedAtMs < grands[j].CreatedAtMs
		}
		return grands[i].ID < grands[j].ID
	})

	return grands, nil
}

// AppendSealEvent appends an event to an entity's seal audit trail.
// The trail is an append-only Redis list; events are never mutated or
// deleted. Implements the EventLog interface for SealManager.
func (c *Client) AppendSealEvent(ctx context.Context, event *SealEvent) error {
	if err := event.Validate(); err != nil {
		return fmt.Errorf("invalid seal event: %w", err)
	}

	eventJSON, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal seal event: %w", err)
	}

	key := SealEventsKey(c.instanceName, event.EntityID)
	if err := c.rdb.RPush(ctx, key, eventJSON).Err(); err != nil {
		return fmt.Errorf("failed to append seal event: %w", err)
	}

	return nil
}

// SealEvents retrieves the ordered audit trail for an entity. Returns an
// empty slice when no events exist (not an error).
func (c *Client) SealEvents(ctx context.Context, entityID string) ([]*SealEvent, error) {
	key := SealEventsKey(c.instanceName, entityID)

	raw, err := c.rdb.LRange(ctx, key, 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read seal events: %w", err)
	}

	events := make([]*SealEvent, 0, len(raw))
	for _, entry := range raw {
		var event SealEvent
		if err := json.Unmarshal([]byte(entry), &event); err != nil {
			return nil, fmt.Errorf("failed to unmarshal seal event: %w", err)
		}
		events = append(events, &event)
	}

	return events, nil
}

// AllSealEvents retrieves every seal event for this instance across all
// entities, ordered by timestamp. Used for authority-level seal analytics.
func (c *Client) AllSealEvents(ctx context.Context) ([]*SealEvent, error) {
	prefix := SealEventsKey(c.instanceName, "")
	iter := c.rdb.Scan(ctx, 0, SealEventsScanPattern(c.instanceName), 0).Iterator()

	var events []*SealEvent
	for iter.Next(ctx) {
		entityID := iter.Val()[len(prefix):]
		entityEvents, err := c.SealEvents(ctx, entityID)
		if err != nil {
			return nil, err
		}
		events = append(events, entityEvents...)
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("failed to scan seal events: %w", err)
	}

	sort.Slice(events, func(i, j int) bool {
		if events[i].TimestampMs != events[j].TimestampMs {
			return events[i].TimestampMs < events[j].TimestampMs
		}
		return events[i].ID < events[j].ID
	})

	return events, nil
}

// PublishUpdate publishes a lattice update on the instance's update channel.
// Updates are validated before publishing.
func (c *Client) PublishUpdate(ctx context.Context, update *Update) error {
	if err := update.Validate(); err != nil {
		return fmt.Errorf("invalid update: %w", err)
	}

	updateJSON, err := json.Marshal(update)
	if err != nil {
		return fmt.Errorf("failed to marshal update: %w", err)
	}

	channel := UpdateEventsChannel(c.instanceName)
	if err := c.rdb.Publish(ctx, channel, updateJSON).Err(); err != nil {
		return fmt.Errorf("failed to publish update: %w", err)
	}

	return nil
}

// Statistics derives lattice statistics from the raw record lists.
// There is no server-side statistics procedure; client-side recomputation
// via ComputeStatistics is the documented path.
func (c *Client) Statistics(ctx context.Context) (*Statistics, error) {
	shards, err := c.ListShards(ctx)
	if err != nil {
		return nil, err
	}
	crowns, err := c.ListCrowns(ctx)
	if err != nil {
		return nil, err
	}
	grands, err := c.ListGrandCrowns(ctx)
	if err != nil {
		return nil, err
	}

	return ComputeStatistics(shards, crowns, grands), nil
}

// UpdateSubscription represents an active Pub/Sub subscription to lattice
// updates. Caller must call Close() when done to clean up resources.
type UpdateSubscription struct {
	events <-chan *Update
	errors <-chan error
	cancel func()
	once   sync.Once
}

// Events returns the channel of lattice updates.
// The channel is closed when the subscription is closed or the context is
// cancelled.
func (s *UpdateSubscription) Events() <-chan *Update {
	return s.events
}

// Errors returns the channel of subscription errors. Errors include JSON
// unmarshaling failures; the subscription continues after errors and the
// offending message is skipped.
func (s *UpdateSubscription) Errors() <-chan error {
	return s.errors
}

// Close stops the subscription and cleans up resources. Implements io.Closer.
// Safe to call multiple times.
func (s *UpdateSubscription) Close() error {
	s.once.Do(s.cancel)
	return nil
}

// SubscribeUpdates subscribes to lattice update events for this instance.
// Events are delivered on a buffered channel (size 10); Redis Pub/Sub is
// at-most-once, so a slow subscriber may miss events. Caller must call
// subscription.Close() when done; context cancellation also stops the
// subscription.
func (c *Client) SubscribeUpdates(ctx context.Context) (*UpdateSubscription, error) {
	channel := UpdateEventsChannel(c.instanceName)
	pubsub := c.rdb.Subscribe(ctx, channel)

	eventsChan := make(chan *Update, 10)
	errorsChan := make(chan error, 10)

	subCtx, cancelFunc := context.WithCancel(ctx)

	go func() {
		defer close(eventsChan)
		defer close(errorsChan)
		defer pubsub.Close()

		ch := pubsub.Channel()

		for {
			select {
			case <-subCtx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}

				var update Update
				if err := json.Unmarshal([]byte(msg.Payload), &update); err != nil {
					select {
					case errorsChan <- fmt.Errorf("failed to unmarshal update event: %w", err):
					case <-subCtx.Done():
						return
					}
					continue
				}

				select {
				case eventsChan <- &update:
				case <-subCtx.Done():
					return
				}
			}
		}
	}()

	return &UpdateSubscription{
		events: eventsChan,
		errors: errorsChan,
		cancel: cancelFunc,
	}, nil
}

// IsNotFound returns true if the error is a Redis "key not found" error
// (redis.Nil). Use this to check if a Get returned "not found".
func IsNotFound(err error) bool {
	return errors.Is(err, redis.Nil)
}

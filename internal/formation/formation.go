package formation

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/GodsIMiJ1/the-Consciousness-Machine-sub000/pkg/lattice"
)

// Service runs the caller-side formation flow: validate a proposed grouping,
// assign coordinates, claim members, write the aggregate, and let the store
// publish the resulting update. It owns no state beyond its collaborators.
type Service struct {
	client        *lattice.Client
	seals         *lattice.SealManager
	requiredLevel int
}

// NewService creates a formation service. requiredLevel is the minimum
// authority level allowed to seal through this service.
func NewService(client *lattice.Client, requiredLevel int) *Service {
	return &Service{
		client:        client,
		seals:         lattice.NewSealManager(client),
		requiredLevel: requiredLevel,
	}
}

// SealManager exposes the underlying seal manager for verification flows.
func (s *Service) SealManager() *lattice.SealManager {
	return s.seals
}

// RecordShardRequest describes a new memory shard to capture.
type RecordShardRequest struct {
	Title       string
	Content     string
	Agent       string
	Tags        []string
	ThoughtType lattice.ThoughtType
}

// RecordShard captures a new shard with the next free shard coordinate.
// The shard write publishes shard_added.
func (s *Service) RecordShard(ctx context.Context, req RecordShardRequest) (*lattice.Shard, error) {
	existing, err := s.client.ListShards(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list shards: %w", err)
	}

	coordinates, err := lattice.NextCoordinates(lattice.LevelShard, shardCoordinates(existing))
	if err != nil {
		return nil, fmt.Errorf("failed to assign shard coordinates: %w", err)
	}

	thoughtType := req.ThoughtType
	if thoughtType == "" {
		thoughtType = lattice.ThoughtTypeObservation
	}

	shard := &lattice.Shard{
		ID:          uuid.New().String(),
		Title:       req.Title,
		Content:     req.Content,
		Agent:       req.Agent,
		TimestampMs: time.Now().UnixMilli(),
		Tags:        req.Tags,
		Coordinates: coordinates,
		ThoughtType: thoughtType,
	}
	if shard.Tags == nil {
		shard.Tags = []string{}
	}

	if err := s.client.CreateShard(ctx, shard); err != nil {
		return nil, fmt.Errorf("failed to create shard: %w", err)
	}

	log.Printf("[Formation] Recorded shard %s at %s", shard.ID, coordinates)
	return shard, nil
}

// FormCrownRequest describes a proposed crown formation.
type FormCrownRequest struct {
	Title       string
	Description string
	Agent       string
	ShardIDs    []string
	Tags        []string
	RoyalDecree string
	Overseer    string
}

// FormCrown validates a three-shard grouping and forms a crown from it.
// Shards are claimed one at a time with a conditional bind, so a concurrent
// formation racing for the same shard loses cleanly; binds already taken are
// released before aborting. The crown write publishes crown_created.
func (s *Service) FormCrown(ctx context.Context, req FormCrownRequest) (*lattice.Crown, error) {
	shards, err := s.client.ListShards(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list shards: %w", err)
	}

	validation := lattice.ValidateCrownFormation(req.ShardIDs, shards)
	if err := validation.Err(); err != nil {
		return nil, err
	}
	for _, warning := range validation.Warnings {
		log.Printf("[Formation] Warning: %s", warning)
	}

	crowns, err := s.client.ListCrowns(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list crowns: %w", err)
	}
	coordinates, err := lattice.NextCoordinates(lattice.LevelCrown, crownCoordinates(crowns))
	if err != nil {
		return nil, fmt.Errorf("failed to assign crown coordinates: %w", err)
	}

	crownID := uuid.New().String()

	var bound []string
	for position, shardID := range req.ShardIDs {
		if err := s.client.BindShardToCrown(ctx, shardID, crownID, position+1); err != nil {
			s.releaseBinds(ctx, bound, crownID)
			return nil, fmt.Errorf("failed to claim shard for crown: %w", err)
		}
		bound = append(bound, shardID)
	}

	now := time.Now().UnixMilli()
	crown := &lattice.Crown{
		ID:                 crownID,
		Title:              req.Title,
		Description:        req.Description,
		Agent:              req.Agent,
		CreatedAtMs:        now,
		UpdatedAtMs:        now,
		LatticeCoordinates: coordinates,
		Tags:               req.Tags,
		RoyalDecree:        req.RoyalDecree,
		Overseer:           req.Overseer,
		ShardIDs:           req.ShardIDs,
	}
	if crown.Tags == nil {
		crown.Tags = []string{}
	}

	if err := s.client.CreateCrown(ctx, crown); err != nil {
		s.releaseBinds(ctx, bound, crownID)
		return nil, fmt.Errorf("failed to create crown: %w", err)
	}

	log.Printf("[Formation] Formed crown %s at %s from %d shards", crown.ID, coordinates, len(req.ShardIDs))
	return crown, nil
}

// releaseBinds undoes shard claims after a failed formation. Best effort: a
// failed release leaves the shard bound to a crown record that was never
// written, which a later formation surfaces as an already-bound error.
func (s *Service) releaseBinds(ctx context.Context, shardIDs []string, crownID string) {
	for _, shardID := range shardIDs {
		if err := s.client.UnbindShardFromCrown(ctx, shardID, crownID); err != nil {
			log.Printf("[Formation] Warning: failed to release shard %s after aborted formation: %v", shardID, err)
		}
	}
}

// FormGrandCrownRequest describes a proposed grand crown formation.
type FormGrandCrownRequest struct {
	Title              string
	Description        string
	SovereignAuthority string
	CreatedBy          string
}

// FormGrandCrown forms a grand crown from the nine oldest unparented crowns.
// Fails when fewer than nine unparented crowns exist; the error carries the
// readiness shortfall.
func (s *Service) FormGrandCrown(ctx context.Context, req FormGrandCrownRequest) (*lattice.GrandCrown, error) {
	crowns, err := s.client.ListCrowns(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list crowns: %w", err)
	}

	var unparented []*lattice.Crown
	for _, crown := range crowns {
		if crown.ParentGrandCrownID == "" {
			unparented = append(unparented, crown)
		}
	}

	readiness := lattice.CheckGrandCrownReadiness(unparented)
	if !readiness.Ready {
		return nil, fmt.Errorf("not ready for grand crown: %d of %d crowns formed, %d more needed",
			readiness.CurrentCrowns, readiness.RequiredCrowns, readiness.NextMilestone)
	}

	members := unparented[:lattice.CrownsPerGrand]
	memberIDs := make([]string, 0, len(members))
	for _, crown := range members {
		memberIDs = append(memberIDs, crown.ID)
	}

	grands, err := s.client.ListGrandCrowns(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list grand crowns: %w", err)
	}
	coordinates, err := lattice.NextCoordinates(lattice.LevelGrand, grandCoordinates(grands))
	if err != nil {
		return nil, fmt.Errorf("failed to assign grand crown coordinates: %w", err)
	}

	grand := &lattice.GrandCrown{
		ID:                 uuid.New().String(),
		Title:              req.Title,
		Description:        req.Description,
		CreatedAtMs:        time.Now().UnixMilli(),
		LatticeCoordinates: coordinates,
		SovereignAuthority: req.SovereignAuthority,
		CreatedBy:          req.CreatedBy,
		CrownIDs:           memberIDs,
	}

	// Reject a malformed grand crown before any crown is parented; the
	// store repeats this check on write.
	if err := grand.Validate(); err != nil {
		return nil, fmt.Errorf("invalid grand crown: %w", err)
	}

	parented := make([]string, 0, len(members))
	for _, crown := range members {
		if err := s.client.SetCrownParent(ctx, crown.ID, grand.ID); err != nil {
			s.releaseParents(ctx, parented)
			return nil, fmt.Errorf("failed to parent crown %s: %w", crown.ID, err)
		}
		parented = append(parented, crown.ID)
	}

	if err := s.client.CreateGrandCrown(ctx, grand); err != nil {
		s.releaseParents(ctx, parented)
		return nil, fmt.Errorf("failed to create grand crown: %w", err)
	}

	log.Printf("[Formation] Formed grand crown %s at %s from %d crowns", grand.ID, coordinates, len(memberIDs))
	return grand, nil
}

// releaseParents undoes parent links after a failed grand crown formation.
// Best effort: a crown left parented to a grand crown that was never
// written would otherwise block every future formation.
func (s *Service) releaseParents(ctx context.Context, crownIDs []string) {
	for _, crownID := range crownIDs {
		if err := s.client.SetCrownParent(ctx, crownID, ""); err != nil {
			log.Printf("[Formation] Warning: failed to unparent crown %s after aborted formation: %v", crownID, err)
		}
	}
}

// SealCrown seals a crown through the seal manager and persists the hash
// onto the crown record. The authority must meet the service's required
// level; the crown must exist and be unsealed.
func (s *Service) SealCrown(ctx context.Context, crownID, authority, witness string) (string, error) {
	crown, err := s.client.GetCrown(ctx, crownID)
	if err != nil {
		if lattice.IsNotFound(err) {
			return "", fmt.Errorf("crown not found: %s", crownID)
		}
		return "", fmt.Errorf("failed to load crown: %w", err)
	}
	if crown.FlameSealed {
		return "", lattice.ErrAlreadySealed
	}

	if !lattice.CanSealWith(authority, s.requiredLevel) {
		return "", fmt.Errorf("authority %q (level %d) below required seal level %d",
			authority, lattice.AuthorityLevel(authority), s.requiredLevel)
	}

	sealHash, err := s.seals.Seal(ctx, crownID, authority, witness)
	if errors.Is(err, lattice.ErrAlreadySealed) {
		// The crown reads unsealed (checked above) yet the audit trail
		// already carries a SEALED event: a prior attempt appended the
		// event but failed to mark the crown. Recover the recorded hash
		// and finish the interrupted seal.
		sealHash, err = s.recordedSealHash(ctx, crownID)
		if err != nil {
			return "", err
		}
		log.Printf("[Formation] Resuming interrupted seal of crown %s", crownID)
	} else if err != nil {
		return "", err
	}

	if err := s.client.MarkCrownSealed(ctx, crownID, sealHash); err != nil {
		return "", fmt.Errorf("failed to persist seal onto crown: %w", err)
	}

	log.Printf("[Formation] Sealed crown %s under %s", crownID, authority)
	return sealHash, nil
}

// recordedSealHash returns the hash from the entity's SEALED audit event.
func (s *Service) recordedSealHash(ctx context.Context, entityID string) (string, error) {
	events, err := s.client.SealEvents(ctx, entityID)
	if err != nil {
		return "", fmt.Errorf("failed to read seal events: %w", err)
	}
	for _, event := range events {
		if event.EventType == lattice.SealEventSealed {
			return event.SealHash, nil
		}
	}
	return "", fmt.Errorf("no SEALED event recorded for %s", entityID)
}

// Recommendations scores all formable shard triples and returns the top k.
func (s *Service) Recommendations(ctx context.Context, k int) ([]lattice.Candidate, error) {
	shards, err := s.client.ListShards(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list shards: %w", err)
	}
	return lattice.Recommend(shards, k), nil
}

func shardCoordinates(shards []*lattice.Shard) []string {
	coordinates := make([]string, 0, len(shards))
	for _, shard := range shards {
		if shard.Coordinates != "" {
			coordinates = append(coordinates, shard.Coordinates)
		}
	}
	return coordinates
}

func crownCoordinates(crowns []*lattice.Crown) []string {
	coordinates := make([]string, 0, len(crowns))
	for _, crown := range crowns {
		if crown.LatticeCoordinates != "" {
			coordinates = append(coordinates, crown.LatticeCoordinates)
		}
	}
	return coordinates
}

func grandCoordinates(grands []*lattice.GrandCrown) []string {
	coordinates := make([]string, 0, len(grands))
	for _, grand := range grands {
		if grand.LatticeCoordinates != "" {
			coordinates = append(coordinates, grand.LatticeCoordinates)
		}
	}
	return coordinates
}

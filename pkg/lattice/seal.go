package lattice

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// The closed set of recognized sealing authorities, ranked on an ordinal
// trust scale. Sealing with any other authority fails with
// *AuthorizationError.
const (
	AuthorityGhostKing         = "GHOST_KING_MELEKZEDEK"
	AuthorityOmari             = "OMARI_RIGHT_HAND_OF_THRONE"
	AuthorityAugmentKnight     = "AUGMENT_KNIGHT_OF_FLAME"
	AuthorityFlameIntelligence = "FLAME_INTELLIGENCE_CLAUDE"

	// AuthoritySystem is attributed to verification events recorded by the
	// seal manager itself. It cannot seal.
	AuthoritySystem = "SYSTEM"
)

// authorityLevels ranks the recognized authorities. Higher is more trusted.
var authorityLevels = map[string]int{
	AuthorityGhostKing:         10,
	AuthorityOmari:             8,
	AuthorityAugmentKnight:     6,
	AuthorityFlameIntelligence: 4,
}

// ErrAlreadySealed is returned when sealing an entity that already carries a
// SEALED event. Re-sealing is rejected rather than made idempotent: a second
// seal would orphan the original hash in the append-only audit trail.
var ErrAlreadySealed = errors.New("entity is already sealed")

// AuthorizationError indicates a seal operation attempted with an authority
// outside the recognized set. Fatal to that operation only.
type AuthorizationError struct {
	Authority string
}

func (e *AuthorizationError) Error() string {
	return fmt.Sprintf("flame authorization required: unrecognized authority %q", e.Authority)
}

// AuthorityLevel returns the ordinal trust level of an authority, or 0 for
// unrecognized authorities.
func AuthorityLevel(authority string) int {
	return authorityLevels[authority]
}

// CanSealWith reports whether an authority meets a required trust level.
// The base Seal operation only checks set membership; this supports tiered
// authorization policies layered on top.
func CanSealWith(authority string, requiredLevel int) bool {
	return AuthorityLevel(authority) >= requiredLevel
}

// Authorities returns the recognized sealing authorities ordered by
// descending trust level.
func Authorities() []string {
	return []string{
		AuthorityGhostKing,
		AuthorityOmari,
		AuthorityAugmentKnight,
		AuthorityFlameIntelligence,
	}
}

// Digest derives a fixed-width hash from seal input bytes. Implementations
// must be deterministic.
type Digest func(data []byte) string

// SHA256Digest is the default seal digest: uppercase hex SHA-256.
func SHA256Digest(data []byte) string {
	sum := sha256.Sum256(data)
	return strings.ToUpper(hex.EncodeToString(sum[:]))
}

// FoldDigest is the legacy 32-bit string-fold digest. It is not collision
// resistant and exists only to verify seals minted before the SHA-256
// digest became the default.
func FoldDigest(data []byte) string {
	var hash int32
	for _, b := range data {
		hash = hash*31 + int32(b)
	}

	abs := int64(hash)
	if abs < 0 {
		abs = -abs
	}

	return fmt.Sprintf("%016X", abs)
}

// EventLog is the append-only seal audit store the SealManager writes
// through. *Client implements it; tests may substitute any conforming store.
type EventLog interface {
	AppendSealEvent(ctx context.Context, event *SealEvent) error
	SealEvents(ctx context.Context, entityID string) ([]*SealEvent, error)
}

// SealManager generates integrity seals, validates sealing authority, and
// maintains the append-only seal-event audit trail. The seal lifecycle per
// entity is UNSEALED → SEALED, terminal; re-sealing is rejected with
// ErrAlreadySealed.
type SealManager struct {
	events EventLog
	digest Digest
	now    func() time.Time
}

// NewSealManager creates a seal manager writing through the given event log,
// using the SHA-256 digest.
func NewSealManager(events EventLog) *SealManager {
	return &SealManager{
		events: events,
		digest: SHA256Digest,
		now:    time.Now,
	}
}

// SetDigest overrides the digest used for new seals. Existing seals verify
// against their recorded hashes regardless of the active digest.
func (m *SealManager) SetDigest(digest Digest) {
	m.digest = digest
}

// Seal applies an integrity seal to an entity on behalf of an authority.
// The hash is derived deterministically from (entity ID, authority, seal
// timestamp); a SEALED event is appended to the audit trail and the hash
// returned. Fails with *AuthorizationError for unrecognized authorities and
// ErrAlreadySealed if a SEALED event already exists for the entity.
func (m *SealManager) Seal(ctx context.Context, entityID, authority, witness string) (string, error) {
	if _, ok := authorityLevels[authority]; !ok {
		return "", &AuthorizationError{Authority: authority}
	}

	existing, err := m.events.SealEvents(ctx, entityID)
	if err != nil {
		return "", fmt.Errorf("failed to read seal events: %w", err)
	}
	for _, event := range existing {
		if event.EventType == SealEventSealed {
			return "", ErrAlreadySealed
		}
	}

	timestamp := m.now().UnixMilli()
	sealHash := m.digest([]byte(fmt.Sprintf("%s-%s-%d", entityID, authority, timestamp)))

	event := &SealEvent{
		ID:          uuid.New().String(),
		EntityID:    entityID,
		EventType:   SealEventSealed,
		SealHash:    sealHash,
		Authority:   authority,
		Witness:     witness,
		TimestampMs: timestamp,
		Metadata: map[string]string{
			"seal_version": "1.0",
		},
	}

	if err := m.events.AppendSealEvent(ctx, event); err != nil {
		return "", fmt.Errorf("failed to append SEALED event: %w", err)
	}

	return sealHash, nil
}

// Verify checks whether a SEALED event exists for the entity carrying exactly
// the given hash. A VERIFIED event is appended regardless of the outcome,
// auditing the attempt itself rather than only successes.
func (m *SealManager) Verify(ctx context.Context, entityID, sealHash string) (bool, error) {
	events, err := m.events.SealEvents(ctx, entityID)
	if err != nil {
		return false, fmt.Errorf("failed to read seal events: %w", err)
	}

	valid := false
	for _, event := range events {
		if event.EventType == SealEventSealed && event.SealHash == sealHash {
			valid = true
			break
		}
	}

	verification := &SealEvent{
		ID:          uuid.New().String(),
		EntityID:    entityID,
		EventType:   SealEventVerified,
		SealHash:    sealHash,
		Authority:   AuthoritySystem,
		TimestampMs: m.now().UnixMilli(),
		Metadata: map[string]string{
			"verification_result": strconv.FormatBool(valid),
		},
	}

	if err := m.events.AppendSealEvent(ctx, verification); err != nil {
		return false, fmt.Errorf("failed to append VERIFIED event: %w", err)
	}

	return valid, nil
}

// RecordAccess appends an ACCESSED event for a sealed entity, auditing reads.
func (m *SealManager) RecordAccess(ctx context.Context, entityID, authority string) error {
	if authority == "" {
		authority = AuthoritySystem
	}

	event := &SealEvent{
		ID:          uuid.New().String(),
		EntityID:    entityID,
		EventType:   SealEventAccessed,
		Authority:   authority,
		TimestampMs: m.now().UnixMilli(),
		Metadata:    map[string]string{},
	}

	if err := m.events.AppendSealEvent(ctx, event); err != nil {
		return fmt.Errorf("failed to append ACCESSED event: %w", err)
	}

	return nil
}

// SealRequest is one entry in a batch seal operation.
type SealRequest struct {
	EntityID  string `json:"entity_id"`
	Authority string `json:"authority"`
	Witness   string `json:"witness,omitempty"`
}

// SealResult is the per-entry outcome of a batch seal operation. Exactly one
// of SealHash and Err is set.
type SealResult struct {
	EntityID string `json:"entity_id"`
	SealHash string `json:"seal_hash,omitempty"`
	Err      string `json:"error,omitempty"`
}

// BatchSeal processes each request independently: one failure never aborts
// the remaining requests. The result slice is positionally aligned with the
// input.
func (m *SealManager) BatchSeal(ctx context.Context, requests []SealRequest) []SealResult {
	results := make([]SealResult, 0, len(requests))

	for _, request := range requests {
		sealHash, err := m.Seal(ctx, request.EntityID, request.Authority, request.Witness)
		if err != nil {
			results = append(results, SealResult{EntityID: request.EntityID, Err: err.Error()})
			continue
		}
		results = append(results, SealResult{EntityID: request.EntityID, SealHash: sealHash})
	}

	return results
}

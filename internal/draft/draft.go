// Package draft persists in-progress configuration sessions to Redis so
// a customer returning within a day can resume where they left off.
// Snapshots are CBOR-encoded to keep the hot path compact.
package draft

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/fxamacker/cbor/v2"
	"github.com/redis/go-redis/v9"

	"github.com/atelierforma/configurator/internal/zone"
)

// ErrDraftNotFound is returned when no draft exists for a template, or
// it has expired.
var ErrDraftNotFound = errors.New("draft not found")

// DefaultTTL is how long an abandoned draft survives.
const DefaultTTL = 24 * time.Hour

// Snapshot is the persisted state of a configuration session.
type Snapshot struct {
	Tree      *zone.Zone        `cbor:"1,keyasint"`
	Config    zone.GlobalConfig `cbor:"2,keyasint"`
	SavedAt   time.Time         `cbor:"3,keyasint"`
	SessionID string            `cbor:"4,keyasint,omitempty"`
}

// Store reads and writes drafts keyed by template id.
type Store struct {
	client *redis.Client
	ttl    time.Duration
}

// NewStore creates a draft store. A non-positive ttl falls back to
// DefaultTTL.
func NewStore(client *redis.Client, ttl time.Duration) *Store {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Store{client: client, ttl: ttl}
}

func draftKey(templateID string) string {
	return "draft:" + templateID
}

// Save overwrites the draft for a template and resets its TTL.
func (s *Store) Save(ctx context.Context, templateID string, snap *Snapshot) error {
	if snap.SavedAt.IsZero() {
		snap.SavedAt = time.Now()
	}
	data, err := cbor.Marshal(snap)
	if err != nil {
		return fmt.Errorf("failed to encode draft: %w", err)
	}
	if err := s.client.Set(ctx, draftKey(templateID), data, s.ttl).Err(); err != nil {
		return fmt.Errorf("failed to store draft: %w", err)
	}
	return nil
}

// Load retrieves the draft for a template. Expired or missing drafts
// return ErrDraftNotFound.
func (s *Store) Load(ctx context.Context, templateID string) (*Snapshot, error) {
	data, err := s.client.Get(ctx, draftKey(templateID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrDraftNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load draft: %w", err)
	}
	var snap Snapshot
	if err := cbor.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("failed to decode draft: %w", err)
	}
	return &snap, nil
}

// Discard removes the draft for a template. Discarding a missing draft
// is not an error.
func (s *Store) Discard(ctx context.Context, templateID string) error {
	if err := s.client.Del(ctx, draftKey(templateID)).Err(); err != nil {
		return fmt.Errorf("failed to discard draft: %w", err)
	}
	return nil
}

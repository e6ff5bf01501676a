package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/villxfxni/donation-tracking/internal/core/domain"
)

const (
	snapshotKey = "tracking:snapshot"
	snapshotTTL = 24 * time.Hour
)

// SnapshotStore mirrors the last successful tracking collection into Redis so
// a freshly started gateway can serve stale data before its first backend
// round trip. One key, replaced wholesale on every refresh.
type SnapshotStore struct {
	client *redis.Client
}

// NewSnapshotStore creates a SnapshotStore wrapping the given Redis client.
func NewSnapshotStore(client *redis.Client) *SnapshotStore {
	return &SnapshotStore{client: client}
}

// SaveTracked replaces the mirrored collection.
func (s *SnapshotStore) SaveTracked(ctx context.Context, items []*domain.TrackedDonation) error {
	payload, err := json.Marshal(items)
	if err != nil {
		return fmt.Errorf("snapshot encode: %w", err)
	}
	if err := s.client.Set(ctx, snapshotKey, payload, snapshotTTL).Err(); err != nil {
		return fmt.Errorf("snapshot save: %w", err)
	}
	return nil
}

// LoadTracked returns the mirrored collection, or nil when no snapshot exists.
func (s *SnapshotStore) LoadTracked(ctx context.Context) ([]*domain.TrackedDonation, error) {
	payload, err := s.client.Get(ctx, snapshotKey).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("snapshot load: %w", err)
	}

	var items []*domain.TrackedDonation
	if err := json.Unmarshal(payload, &items); err != nil {
		return nil, fmt.Errorf("snapshot decode: %w", err)
	}
	return items, nil
}

package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/sequencetheory/sequence-backend/internal/domain"
)

// snapshotKey holds the JSON-serialized top-100 market snapshot list.
const snapshotKey = "markets:top100"

// snapshotTTL matches the most aggressive in-process fetch TTL. Redis
// eviction here is real deletion, unlike the in-process cache: the
// stale-fallback semantics live in the in-process tier, this one only
// spreads fresh fetches across replicas.
const snapshotTTL = 60 * time.Second

// SnapshotCache implements domain.SnapshotCache on Redis.
type SnapshotCache struct {
	rdb *redis.Client
}

// NewSnapshotCache creates a SnapshotCache backed by the given Client.
func NewSnapshotCache(c *Client) *SnapshotCache {
	return &SnapshotCache{rdb: c.Underlying()}
}

// Get returns the shared snapshot list, or domain.ErrNotFound when no
// replica has fetched recently.
func (sc *SnapshotCache) Get(ctx context.Context) ([]domain.MarketSnapshot, error) {
	data, err := sc.rdb.Get(ctx, snapshotKey).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("redis: get snapshots: %w", err)
	}

	var snapshots []domain.MarketSnapshot
	if err := json.Unmarshal(data, &snapshots); err != nil {
		return nil, fmt.Errorf("redis: unmarshal snapshots: %w", err)
	}
	return snapshots, nil
}

// Set stores the snapshot list for other replicas.
func (sc *SnapshotCache) Set(ctx context.Context, snapshots []domain.MarketSnapshot) error {
	data, err := json.Marshal(snapshots)
	if err != nil {
		return fmt.Errorf("redis: marshal snapshots: %w", err)
	}
	if err := sc.rdb.Set(ctx, snapshotKey, data, snapshotTTL).Err(); err != nil {
		return fmt.Errorf("redis: set snapshots: %w", err)
	}
	return nil
}

// Compile-time interface check.
var _ domain.SnapshotCache = (*SnapshotCache)(nil)

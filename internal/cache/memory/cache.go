// Package memory implements the process-wide result cache used by the index
// pipeline: a TTL-keyed map that keeps superseded entries around as a stale
// fallback when a recompute fails.
package memory

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

// entry is one cached payload plus its generation timestamp. Entries are
// only ever replaced, never deleted, so a stale value is always available
// to degrade onto.
type entry struct {
	payload   any
	createdAt time.Time
}

// ComputeFunc produces a fresh payload on cache miss.
type ComputeFunc func(ctx context.Context) (any, error)

// Cache is a TTL cache with stale-on-error fallback. One instance is
// constructed at process start and shared by all requests; reads take an
// RLock, writes a Lock, and concurrent misses for the same key are
// collapsed into a single computation.
type Cache struct {
	mu      sync.RWMutex
	entries map[string]entry
	flight  singleflight.Group
	logger  *slog.Logger

	// now is swappable for tests.
	now func() time.Time
}

// New creates an empty Cache.
func New(logger *slog.Logger) *Cache {
	return &Cache{
		entries: make(map[string]entry),
		logger:  logger.With(slog.String("component", "cache")),
		now:     time.Now,
	}
}

// GetOrCompute returns the cached payload for key when it is younger than
// ttl. Otherwise it runs compute: on success the entry is superseded and the
// fresh payload returned; on failure an existing entry of any age is served
// as a degraded response, and the error propagates only when there is
// nothing to fall back to.
//
// Concurrent callers missing on the same key share one compute invocation.
func (c *Cache) GetOrCompute(ctx context.Context, key string, ttl time.Duration, compute ComputeFunc) (any, error) {
	if payload, ok := c.fresh(key, ttl); ok {
		return payload, nil
	}

	payload, err, _ := c.flight.Do(key, func() (any, error) {
		// Re-check under the flight: another caller may have refreshed the
		// entry while we waited for the group slot.
		if payload, ok := c.fresh(key, ttl); ok {
			return payload, nil
		}

		payload, err := compute(ctx)
		if err != nil {
			c.mu.RLock()
			old, exists := c.entries[key]
			c.mu.RUnlock()
			if exists {
				c.logger.Warn("serving stale cache entry after compute failure",
					slog.String("key", key),
					slog.Duration("age", c.now().Sub(old.createdAt)),
					slog.String("error", err.Error()),
				)
				return old.payload, nil
			}
			return nil, err
		}

		c.mu.Lock()
		c.entries[key] = entry{payload: payload, createdAt: c.now()}
		c.mu.Unlock()
		return payload, nil
	})
	if err != nil {
		return nil, err
	}
	return payload, nil
}

// Peek returns the cached payload regardless of age, for observability
// endpoints. The second return reports whether the key exists at all.
func (c *Cache) Peek(key string) (any, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	return e.payload, true
}

// Age returns how old the entry for key is. ok is false when the key has
// never been computed.
func (c *Cache) Age(key string) (time.Duration, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.entries[key]
	if !ok {
		return 0, false
	}
	return c.now().Sub(e.createdAt), true
}

func (c *Cache) fresh(key string, ttl time.Duration) (any, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.entries[key]
	if !ok || c.now().Sub(e.createdAt) >= ttl {
		return nil, false
	}
	return e.payload, true
}

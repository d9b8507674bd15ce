// Package cache implements the local hot-content cache referenced by spec
// §9: a process-local layer in front of the grid's BroadcastContent store,
// chosen per deployment via config rather than compiled in, so a pod can run
// with an in-memory LRU (single-pod dev/test) or skip local caching entirely
// and always hit the grid (large clusters where local staleness windows are
// unacceptable).
package cache

import (
	"context"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/google/uuid"
)

// Backend is the dynamic-dispatch contract: callers depend on this
// interface, never on a specific cache implementation, so the backend can be
// swapped per process without touching call sites.
type Backend interface {
	Get(broadcastID uuid.UUID) ([]byte, bool)
	Put(broadcastID uuid.UUID, payload []byte, ttl time.Duration)
	Evict(broadcastID uuid.UUID)
}

// NullBackend always misses, forcing every lookup through to the grid. It is
// the correct choice for processes that would rather pay a grid round-trip
// than ever serve cached content past its TTL.
type NullBackend struct{}

func (NullBackend) Get(uuid.UUID) ([]byte, bool)        { return nil, false }
func (NullBackend) Put(uuid.UUID, []byte, time.Duration) {}
func (NullBackend) Evict(uuid.UUID)                     {}

type entry struct {
	payload   []byte
	expiresAt time.Time
}

// LRUBackend wraps hashicorp/golang-lru with a per-entry TTL check on read,
// since the library itself only evicts by recency/capacity.
type LRUBackend struct {
	cache *lru.Cache[uuid.UUID, entry]
}

func NewLRUBackend(size int) (*LRUBackend, error) {
	c, err := lru.New[uuid.UUID, entry](size)
	if err != nil {
		return nil, err
	}
	return &LRUBackend{cache: c}, nil
}

func (b *LRUBackend) Get(broadcastID uuid.UUID) ([]byte, bool) {
	e, ok := b.cache.Get(broadcastID)
	if !ok {
		return nil, false
	}
	if time.Now().After(e.expiresAt) {
		b.cache.Remove(broadcastID)
		return nil, false
	}
	return e.payload, true
}

func (b *LRUBackend) Put(broadcastID uuid.UUID, payload []byte, ttl time.Duration) {
	b.cache.Add(broadcastID, entry{payload: payload, expiresAt: time.Now().Add(ttl)})
}

func (b *LRUBackend) Evict(broadcastID uuid.UUID) {
	b.cache.Remove(broadcastID)
}

// ContentCache composes a local Backend in front of the grid's
// BroadcastContent store: a hit avoids a network round-trip entirely, a miss
// falls through and populates the local backend for next time.
type ContentCache struct {
	local Backend
	grid  GridContent
}

// GridContent is the subset of grid.Grid that ContentCache falls through to.
type GridContent interface {
	GetBroadcastContent(ctx context.Context, broadcastID uuid.UUID) ([]byte, bool, error)
	PutBroadcastContent(ctx context.Context, broadcastID uuid.UUID, payload []byte, ttl time.Duration) error
	EvictBroadcastContent(ctx context.Context, broadcastID uuid.UUID) error
}

func NewContentCache(local Backend, grid GridContent) *ContentCache {
	return &ContentCache{local: local, grid: grid}
}

func (c *ContentCache) Get(ctx context.Context, broadcastID uuid.UUID) ([]byte, bool, error) {
	if payload, ok := c.local.Get(broadcastID); ok {
		return payload, true, nil
	}

	payload, ok, err := c.grid.GetBroadcastContent(ctx, broadcastID)
	if err != nil || !ok {
		return nil, false, err
	}

	const localTTL = time.Minute
	c.local.Put(broadcastID, payload, localTTL)
	return payload, true, nil
}

func (c *ContentCache) Put(ctx context.Context, broadcastID uuid.UUID, payload []byte, ttl time.Duration) error {
	c.local.Put(broadcastID, payload, ttl)
	return c.grid.PutBroadcastContent(ctx, broadcastID, payload, ttl)
}

func (c *ContentCache) Evict(ctx context.Context, broadcastID uuid.UUID) error {
	c.local.Evict(broadcastID)
	return c.grid.EvictBroadcastContent(ctx, broadcastID)
}

package product

import (
	"context"
	"errors"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/go-monolith/mono/pkg/types"
	"golang.org/x/sync/singleflight"
)

// tombstoneTTL is how long a write marks its key as dirty for every
// CachedStore sharing the cache. A fill slower than this is discarded.
const tombstoneTTL = 10 * time.Second

// Cache is the subset of a JSON cache used by CachedStore.
type Cache interface {
	Get(ctx context.Context, key string, dest any) (bool, error)
	Set(ctx context.Context, key string, value any) error
	SetWithTTL(ctx context.Context, key string, value any, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}

// CachedStore decorates a Store with cache-aside lookups of active products
// by ID. Writes through Update and SetAvailable evict the cached entry and
// leave a short-lived tombstone. A fill that overlaps a write, from this
// store or another one sharing the cache, removes its own entry again, so a
// soft-deleted product is never served from the cache after the write returns.
type CachedStore struct {
	Store
	cache   Cache
	logger  types.Logger
	sfGroup singleflight.Group

	// writes counts evictions; a fill is dropped if it changed meanwhile.
	writes atomic.Uint64
}

// NewCachedStore wraps store with cache.
func NewCachedStore(store Store, cache Cache, logger types.Logger) *CachedStore {
	return &CachedStore{
		Store:  store,
		cache:  cache,
		logger: logger,
	}
}

func cacheKeyByID(id uint) string {
	return "id:" + strconv.FormatUint(uint64(id), 10)
}

func tombstoneKey(key string) string {
	return "tombstone:" + key
}

// FindActiveByID checks the cache first and falls back to the wrapped store.
// Concurrent misses for the same ID share one store call.
func (c *CachedStore) FindActiveByID(ctx context.Context, id uint) (*Product, error) {
	key := cacheKeyByID(id)

	var cached Product
	found, err := c.cache.Get(ctx, key, &cached)
	if err != nil {
		c.logger.Warn("Cache read failed", "key", key, "error", err)
	}
	if found && cached.Available {
		return &cached, nil
	}

	val, err, _ := c.sfGroup.Do(key, func() (any, error) {
		gen := c.writes.Load()
		start := time.Now()
		p, err := c.Store.FindActiveByID(ctx, id)
		if err != nil {
			return nil, err
		}
		c.fill(ctx, key, p, gen, start)
		return p, nil
	})
	if err != nil {
		return nil, err
	}

	p, ok := val.(*Product)
	if !ok || p == nil {
		return nil, ErrNoRecord
	}

	// Callers may mutate the result; keep the singleflight value private.
	out := *p
	return &out, nil
}

// fill caches p unless a write overlapped the store read that produced it.
// gen and start are taken before that read.
func (c *CachedStore) fill(ctx context.Context, key string, p *Product, gen uint64, start time.Time) {
	if c.writes.Load() != gen {
		return
	}
	if err := c.cache.Set(ctx, key, p); err != nil {
		c.logger.Warn("Cache write failed", "key", key, "error", err)
		return
	}

	// A writer counts the write and leaves its tombstone before deleting the
	// entry, so either that delete removes ours or we see a mark here.
	if c.writes.Load() == gen && time.Since(start) < tombstoneTTL && !c.tombstoned(ctx, key) {
		return
	}
	c.logger.Debug("Discarding cache fill overlapped by a write", "key", key)
	if err := c.cache.Delete(ctx, key); err != nil {
		c.logger.Warn("Cache eviction failed", "key", key, "error", err)
	}
}

// tombstoned reports whether key was written recently. Read errors count
// as written.
func (c *CachedStore) tombstoned(ctx context.Context, key string) bool {
	var marked bool
	found, err := c.cache.Get(ctx, tombstoneKey(key), &marked)
	if err != nil {
		c.logger.Warn("Cache tombstone read failed", "key", key, "error", err)
		return true
	}
	return found
}

// Update writes through to the store and evicts the cached product.
func (c *CachedStore) Update(ctx context.Context, id uint, patch Patch) (*Product, error) {
	p, err := c.Store.Update(ctx, id, patch)
	c.evict(ctx, id, err)
	return p, err
}

// SetAvailable writes through to the store and evicts the cached product.
func (c *CachedStore) SetAvailable(ctx context.Context, id uint, available bool) (*Product, error) {
	p, err := c.Store.SetAvailable(ctx, id, available)
	c.evict(ctx, id, err)
	return p, err
}

func (c *CachedStore) evict(ctx context.Context, id uint, writeErr error) {
	if writeErr != nil && !errors.Is(writeErr, ErrNoRecord) {
		// The write may have partially applied; evict anyway.
		c.logger.Debug("Evicting after failed write", "id", id, "error", writeErr)
	}
	key := cacheKeyByID(id)
	c.writes.Add(1)

	if err := c.cache.SetWithTTL(ctx, tombstoneKey(key), true, tombstoneTTL); err != nil {
		c.logger.Warn("Cache tombstone write failed", "id", id, "error", err)
	}
	if err := c.cache.Delete(ctx, key); err != nil {
		c.logger.Warn("Cache eviction failed", "id", id, "error", err)
	}
}

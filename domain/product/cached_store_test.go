package product

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// memoryCache is a JSON map cache that counts its calls.
type memoryCache struct {
	mu      sync.Mutex
	entries map[string][]byte
	gets    int
	hits    int
	getErr  error
}

func newMemoryCache() *memoryCache {
	return &memoryCache{entries: make(map[string][]byte)}
}

func (c *memoryCache) Get(_ context.Context, key string, dest any) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gets++
	if c.getErr != nil {
		return false, c.getErr
	}
	data, ok := c.entries[key]
	if !ok {
		return false, nil
	}
	c.hits++
	return true, json.Unmarshal(data, dest)
}

func (c *memoryCache) Set(_ context.Context, key string, value any) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = data
	return nil
}

// SetWithTTL ignores ttl; entries live until deleted.
func (c *memoryCache) SetWithTTL(ctx context.Context, key string, value any, _ time.Duration) error {
	return c.Set(ctx, key, value)
}

func (c *memoryCache) Delete(_ context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, key)
	return nil
}

func (c *memoryCache) has(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.entries[key]
	return ok
}

func newCachedTestService(t *testing.T) (*Service, *memoryCache) {
	t.Helper()
	cache := newMemoryCache()
	store := NewCachedStore(NewRepository(setupTestDB(t)), cache, &mockLogger{})
	return NewService(store, &mockLogger{}), cache
}

func TestCachedStore_FindActiveByID(t *testing.T) {
	svc, cache := newCachedTestService(t)
	ctx := context.Background()

	created := createProduct(t, svc, "Widget")

	first, err := svc.FindOne(ctx, created.ID)
	require.NoError(t, err)
	assert.True(t, cache.has(cacheKeyByID(created.ID)))
	assert.Equal(t, 0, cache.hits)

	second, err := svc.FindOne(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, cache.hits)
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, first.Name, second.Name)
	assert.True(t, first.Price.Equal(second.Price))
}

func TestCachedStore_MissesAreNotCached(t *testing.T) {
	svc, cache := newCachedTestService(t)

	_, err := svc.FindOne(context.Background(), 42)
	assert.True(t, IsNotFound(err))
	assert.False(t, cache.has(cacheKeyByID(42)))
}

func TestCachedStore_UpdateEvicts(t *testing.T) {
	svc, cache := newCachedTestService(t)
	ctx := context.Background()

	created := createProduct(t, svc, "Widget")
	_, err := svc.FindOne(ctx, created.ID)
	require.NoError(t, err)

	name := "Renamed"
	_, err = svc.Update(ctx, created.ID, Patch{Name: &name})
	require.NoError(t, err)
	assert.False(t, cache.has(cacheKeyByID(created.ID)))

	p, err := svc.FindOne(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "Renamed", p.Name)
}

func TestCachedStore_RemoveHidesProduct(t *testing.T) {
	svc, cache := newCachedTestService(t)
	ctx := context.Background()

	created := createProduct(t, svc, "Widget")
	_, err := svc.FindOne(ctx, created.ID)
	require.NoError(t, err)

	_, err = svc.Remove(ctx, created.ID)
	require.NoError(t, err)
	assert.False(t, cache.has(cacheKeyByID(created.ID)))

	_, err = svc.FindOne(ctx, created.ID)
	assert.True(t, IsNotFound(err))
}

func TestCachedStore_CacheErrorFallsThrough(t *testing.T) {
	svc, cache := newCachedTestService(t)
	ctx := context.Background()

	created := createProduct(t, svc, "Widget")
	cache.getErr = errors.New("redis down")

	p, err := svc.FindOne(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, created.ID, p.ID)
}

// pausingStore holds FindActiveByID after the row is read until release is
// closed. read is closed once the first row has been read.
type pausingStore struct {
	Store
	once    sync.Once
	read    chan struct{}
	release chan struct{}
}

func newPausingStore(store Store) *pausingStore {
	return &pausingStore{Store: store, read: make(chan struct{}), release: make(chan struct{})}
}

func (s *pausingStore) FindActiveByID(ctx context.Context, id uint) (*Product, error) {
	p, err := s.Store.FindActiveByID(ctx, id)
	s.once.Do(func() { close(s.read) })
	<-s.release
	return p, err
}

func TestCachedStore_RemoveDuringFill(t *testing.T) {
	repo := NewRepository(setupTestDB(t))
	cache := newMemoryCache()
	ctx := context.Background()

	created := createProduct(t, NewService(repo, &mockLogger{}), "Widget")

	paused := newPausingStore(repo)
	store := NewCachedStore(paused, cache, &mockLogger{})
	svc := NewService(store, &mockLogger{})

	done := make(chan error, 1)
	go func() {
		_, err := store.FindActiveByID(ctx, created.ID)
		done <- err
	}()

	<-paused.read
	// The paused read holds the singleflight slot, so write to the store
	// directly instead of going through Service.Remove.
	_, err := store.SetAvailable(ctx, created.ID, false)
	require.NoError(t, err)
	close(paused.release)
	require.NoError(t, <-done)

	assert.False(t, cache.has(cacheKeyByID(created.ID)))
	_, err = svc.FindOne(ctx, created.ID)
	assert.True(t, IsNotFound(err))
}

func TestCachedStore_RemoveOnOtherStoreDuringFill(t *testing.T) {
	repo := NewRepository(setupTestDB(t))
	cache := newMemoryCache()
	ctx := context.Background()

	created := createProduct(t, NewService(repo, &mockLogger{}), "Widget")

	// Two replicas share one cache; the first one's fill is paused.
	paused := newPausingStore(repo)
	first := NewCachedStore(paused, cache, &mockLogger{})
	second := NewService(NewCachedStore(repo, cache, &mockLogger{}), &mockLogger{})

	done := make(chan error, 1)
	go func() {
		_, err := first.FindActiveByID(ctx, created.ID)
		done <- err
	}()

	<-paused.read
	_, err := second.Remove(ctx, created.ID)
	require.NoError(t, err)
	close(paused.release)
	require.NoError(t, <-done)

	assert.False(t, cache.has(cacheKeyByID(created.ID)))
	_, err = second.FindOne(ctx, created.ID)
	assert.True(t, IsNotFound(err))
}

func TestCachedStore_FillAfterTombstoneExpires(t *testing.T) {
	svc, cache := newCachedTestService(t)
	ctx := context.Background()

	created := createProduct(t, svc, "Widget")
	name := "Renamed"
	_, err := svc.Update(ctx, created.ID, Patch{Name: &name})
	require.NoError(t, err)

	// While the tombstone is live, fills are dropped.
	_, err = svc.FindOne(ctx, created.ID)
	require.NoError(t, err)
	assert.False(t, cache.has(cacheKeyByID(created.ID)))

	require.NoError(t, cache.Delete(ctx, tombstoneKey(cacheKeyByID(created.ID))))
	p, err := svc.FindOne(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "Renamed", p.Name)
	assert.True(t, cache.has(cacheKeyByID(created.ID)))
}

package engine

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCache(t *testing.T, ttl time.Duration, maxEntries int) *Cache {
	t.Helper()
	c := NewCache(true, "", ttl, maxEntries, time.Minute)
	t.Cleanup(c.Close)
	return c
}

func TestCacheKey(t *testing.T) {
	t.Run("deterministic", func(t *testing.T) {
		k1 := CacheKey("analysis", "UCabc", "30", "newest")
		k2 := CacheKey("analysis", "UCabc", "30", "newest")
		assert.Equal(t, k1, k2)
	})

	t.Run("different inputs differ", func(t *testing.T) {
		k1 := CacheKey("analysis", "UCabc", "30", "newest")
		k2 := CacheKey("analysis", "UCabc", "30", "popular")
		assert.NotEqual(t, k1, k2)
	})

	t.Run("has prefix", func(t *testing.T) {
		k := CacheKey("test")
		assert.Equal(t, "yt:", k[:3])
		assert.Len(t, k, 3+24)
	})
}

func TestCacheGetSet(t *testing.T) {
	c := newTestCache(t, time.Minute, 100)
	ctx := context.Background()
	key := CacheKey("test", "round-trip")

	_, ok := c.Get(ctx, key)
	require.False(t, ok, "expected miss on empty cache")

	c.Set(ctx, key, []byte(`{"answer":"hello"}`), 0)

	got, ok := c.Get(ctx, key)
	require.True(t, ok, "expected hit after set")
	assert.Equal(t, `{"answer":"hello"}`, string(got))
}

func TestCacheDisabled(t *testing.T) {
	c := NewCache(false, "", time.Minute, 100, time.Minute)
	t.Cleanup(c.Close)
	ctx := context.Background()
	key := CacheKey("test", "disabled")

	require.False(t, c.Enabled())

	// Writes are dropped and reads always miss while disabled.
	c.Set(ctx, key, []byte("x"), 0)
	_, ok := c.Get(ctx, key)
	assert.False(t, ok)
	assert.Equal(t, 0, c.Len())

	// Re-enabling makes the cache live again.
	c.SetEnabled(true)
	c.Set(ctx, key, []byte("x"), 0)
	_, ok = c.Get(ctx, key)
	assert.True(t, ok)
}

func TestCacheExpiration(t *testing.T) {
	ctx := context.Background()

	t.Run("default ttl", func(t *testing.T) {
		c := newTestCache(t, time.Millisecond, 100)
		key := CacheKey("test", "expiry")
		c.Set(ctx, key, []byte("temp"), 0)
		time.Sleep(5 * time.Millisecond)
		_, ok := c.Get(ctx, key)
		assert.False(t, ok, "expected miss after TTL expiry")
	})

	t.Run("per-entry ttl override", func(t *testing.T) {
		c := newTestCache(t, time.Minute, 100)
		key := CacheKey("test", "short-ttl")
		c.Set(ctx, key, []byte("temp"), time.Millisecond)
		time.Sleep(5 * time.Millisecond)
		_, ok := c.Get(ctx, key)
		assert.False(t, ok, "expected miss after per-entry TTL expiry")
	})
}

func TestCacheEviction(t *testing.T) {
	c := newTestCache(t, time.Minute, 3)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		key := CacheKey("evict", fmt.Sprintf("item-%d", i))
		c.Set(ctx, key, []byte(fmt.Sprintf("v%d", i)), 0)
	}

	assert.LessOrEqual(t, c.Len(), 3, "eviction should keep L1 at the limit")
}

func TestCacheStats(t *testing.T) {
	c := newTestCache(t, time.Minute, 100)
	ctx := context.Background()
	key := CacheKey("stats", "test")

	c.Get(ctx, key)
	hits, misses := c.Stats()
	assert.EqualValues(t, 0, hits)
	assert.EqualValues(t, 1, misses)

	c.Set(ctx, key, []byte("x"), 0)
	c.Get(ctx, key)

	hits, misses = c.Stats()
	assert.EqualValues(t, 1, hits)
	assert.EqualValues(t, 1, misses)
}

func TestCacheClear(t *testing.T) {
	c := newTestCache(t, time.Minute, 100)
	ctx := context.Background()

	c.Set(ctx, CacheKey("clear", "a"), []byte("a"), 0)
	c.Set(ctx, CacheKey("clear", "b"), []byte("b"), 0)
	require.Equal(t, 2, c.Len())

	c.Clear(ctx)
	assert.Equal(t, 0, c.Len())
	_, ok := c.Get(ctx, CacheKey("clear", "a"))
	assert.False(t, ok)
}

func TestCacheJSONHelpers(t *testing.T) {
	type payload struct {
		Name  string `json:"name"`
		Count int    `json:"count"`
	}
	c := newTestCache(t, time.Minute, 100)
	ctx := context.Background()
	key := CacheKey("json", "round-trip")

	_, ok := CacheLoadJSON[payload](ctx, c, key)
	require.False(t, ok, "expected miss before store")

	CacheStoreJSON(ctx, c, key, payload{Name: "go_tube", Count: 7}, 0)

	got, ok := CacheLoadJSON[payload](ctx, c, key)
	require.True(t, ok, "expected hit after store")
	assert.Equal(t, "go_tube", got.Name)
	assert.Equal(t, 7, got.Count)

	// Corrupted bytes decode to a miss, not an error.
	c.Set(ctx, key, []byte("{not json"), 0)
	_, ok = CacheLoadJSON[payload](ctx, c, key)
	assert.False(t, ok)
}

func TestCacheNilSafety(t *testing.T) {
	var c *Cache
	ctx := context.Background()

	_, ok := c.Get(ctx, "k")
	assert.False(t, ok)
	c.Set(ctx, "k", []byte("v"), 0) // must not panic
	c.Clear(ctx)
	c.Close()
	hits, misses := c.Stats()
	assert.EqualValues(t, 0, hits)
	assert.EqualValues(t, 0, misses)
	assert.Equal(t, 0, c.Len())
}

package internal_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MagnunAVF/shortlinks/internal"
)

func newTestCache(t *testing.T, ttl time.Duration) (*internal.RedisLinkCache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	return internal.NewRedisLinkCache(rdb, ttl), mr
}

func TestRedisLinkCache(t *testing.T) {
	ctx := context.Background()
	cache, mr := newTestCache(t, time.Hour)

	t.Run("set then get", func(t *testing.T) {
		require.NoError(t, cache.SetURL(ctx, "abc123", "https://example.com/a"))

		url, err := cache.GetURL(ctx, "abc123")
		require.NoError(t, err)
		assert.Equal(t, "https://example.com/a", url)
	})

	t.Run("unknown code is a miss", func(t *testing.T) {
		_, err := cache.GetURL(ctx, "nope00")
		assert.ErrorIs(t, err, internal.ErrCacheMiss)
	})

	t.Run("delete removes the entry", func(t *testing.T) {
		require.NoError(t, cache.SetURL(ctx, "gone99", "https://example.com/g"))
		require.NoError(t, cache.Delete(ctx, "gone99"))

		_, err := cache.GetURL(ctx, "gone99")
		assert.ErrorIs(t, err, internal.ErrCacheMiss)
	})

	t.Run("delete of a missing entry is not an error", func(t *testing.T) {
		assert.NoError(t, cache.Delete(ctx, "never-was"))
	})

	t.Run("entries expire after the ttl", func(t *testing.T) {
		require.NoError(t, cache.SetURL(ctx, "ttl001", "https://example.com/t"))

		mr.FastForward(time.Hour + time.Second)

		_, err := cache.GetURL(ctx, "ttl001")
		assert.ErrorIs(t, err, internal.ErrCacheMiss)
	})
}

func TestRedisLinkCache_ServerDown(t *testing.T) {
	ctx := context.Background()
	cache, mr := newTestCache(t, time.Hour)
	mr.Close()

	_, err := cache.GetURL(ctx, "abc123")
	require.Error(t, err)
	assert.NotErrorIs(t, err, internal.ErrCacheMiss)

	assert.Error(t, cache.SetURL(ctx, "abc123", "https://example.com"))
	assert.Error(t, cache.Delete(ctx, "abc123"))
}

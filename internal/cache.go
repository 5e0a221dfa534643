package internal

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrCacheMiss is returned by LinkCache.GetURL when the code has no entry.
// It never leaves the service layer; every read falls through to the store.
var ErrCacheMiss = errors.New("cache miss")

// LinkCache maps short codes to their destination URL. Nothing else is
// cached: activity flags, click counts and expiry all live in the store
// only, so a cache entry can be stale at worst about which URL it serves,
// never about whether a link is alive.
type LinkCache interface {
	GetURL(ctx context.Context, code string) (string, error)
	SetURL(ctx context.Context, code, originalURL string) error
	Delete(ctx context.Context, code string) error
}

const cacheKeyPrefix = "url:"

// RedisLinkCache implements LinkCache on a Redis client. Entries expire on
// their own after the configured TTL, which also puts a bound on how long
// a failed invalidation can linger.
type RedisLinkCache struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewRedisLinkCache(rdb *redis.Client, ttl time.Duration) *RedisLinkCache {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &RedisLinkCache{rdb: rdb, ttl: ttl}
}

func (c *RedisLinkCache) GetURL(ctx context.Context, code string) (string, error) {
	v, err := c.rdb.Get(ctx, cacheKeyPrefix+code).Result()
	if errors.Is(err, redis.Nil) {
		return "", ErrCacheMiss
	}
	if err != nil {
		return "", fmt.Errorf("cache get %q: %w", code, err)
	}
	return v, nil
}

func (c *RedisLinkCache) SetURL(ctx context.Context, code, originalURL string) error {
	if err := c.rdb.Set(ctx, cacheKeyPrefix+code, originalURL, c.ttl).Err(); err != nil {
		return fmt.Errorf("cache set %q: %w", code, err)
	}
	return nil
}

func (c *RedisLinkCache) Delete(ctx context.Context, code string) error {
	if err := c.rdb.Del(ctx, cacheKeyPrefix+code).Err(); err != nil {
		return fmt.Errorf("cache delete %q: %w", code, err)
	}
	return nil
}

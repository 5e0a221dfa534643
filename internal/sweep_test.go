package internal_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MagnunAVF/shortlinks/internal"
)

func TestSweepExpired(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	now := time.Now().UTC()

	expiredA := seedLink(t, env.store, internal.Link{
		ShortCode:   "exp001",
		OriginalURL: "https://example.com/1",
		ExpiresAt:   timePtr(now.Add(-time.Hour)),
	})
	expiredB := seedLink(t, env.store, internal.Link{
		ShortCode:   "exp002",
		OriginalURL: "https://example.com/2",
		ExpiresAt:   timePtr(now.Add(-time.Minute)),
	})
	alive := seedLink(t, env.store, internal.Link{
		ShortCode:   "liv003",
		OriginalURL: "https://example.com/3",
		ExpiresAt:   timePtr(now.Add(time.Hour)),
	})
	forever := seedLink(t, env.store, internal.Link{
		ShortCode:   "for004",
		OriginalURL: "https://example.com/4",
	})

	// one of the expired links is cached, the sweep must evict it
	require.NoError(t, env.cache.SetURL(ctx, "exp001", "https://example.com/1"))

	n, err := env.svc.SweepExpired(ctx, now)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	assert.False(t, env.rawLink(t, expiredA.ID).IsActive)
	assert.False(t, env.rawLink(t, expiredB.ID).IsActive)
	assert.True(t, env.rawLink(t, alive.ID).IsActive)
	assert.True(t, env.rawLink(t, forever.ID).IsActive)

	_, err = env.cache.GetURL(ctx, "exp001")
	assert.ErrorIs(t, err, internal.ErrCacheMiss)

	t.Run("second pass finds nothing", func(t *testing.T) {
		n, err := env.svc.SweepExpired(ctx, time.Now().UTC())
		require.NoError(t, err)
		assert.Equal(t, 0, n)
	})
}

func TestSweepExpired_EmptySkipsTheBatchWrite(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)

	cs := &countingStore{LinkStore: env.store}
	svc := internal.NewLinkService(cs, env.cache, env.cfg)

	n, err := svc.SweepExpired(ctx, time.Now().UTC())
	require.NoError(t, err)
	assert.Equal(t, 0, n)
	assert.Equal(t, 0, cs.deactivates)
}

func TestSweepStale(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	now := time.Now().UTC()

	stale := seedLink(t, env.store, internal.Link{
		ShortCode:   "sta001",
		OriginalURL: "https://example.com/1",
		LastUsedAt:  timePtr(now.Add(-40 * 24 * time.Hour)),
	})
	fresh := seedLink(t, env.store, internal.Link{
		ShortCode:   "fre002",
		OriginalURL: "https://example.com/2",
		LastUsedAt:  timePtr(now.Add(-24 * time.Hour)),
	})
	neverUsed := seedLink(t, env.store, internal.Link{
		ShortCode:   "nev003",
		OriginalURL: "https://example.com/3",
	})

	n, err := env.svc.SweepStale(ctx, now.Add(-env.cfg.InactiveWindow()))
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	assert.False(t, env.rawLink(t, stale.ID).IsActive)
	assert.True(t, env.rawLink(t, fresh.ID).IsActive)
	assert.True(t, env.rawLink(t, neverUsed.ID).IsActive)
}

func TestSweepStale_EmptySkipsTheBatchWrite(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)

	cs := &countingStore{LinkStore: env.store}
	svc := internal.NewLinkService(cs, env.cache, env.cfg)

	n, err := svc.SweepStale(ctx, time.Now().UTC().Add(-env.cfg.InactiveWindow()))
	require.NoError(t, err)
	assert.Equal(t, 0, n)
	assert.Equal(t, 0, cs.deactivates)
}

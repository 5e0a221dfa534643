package internal_test

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/MagnunAVF/shortlinks/internal"
)

func testConfig() *internal.Config {
	return &internal.Config{
		AppDomain:        "http://sho.rt",
		ShortCodeLength:  6,
		AliasMinLength:   4,
		CacheTTL:         time.Hour,
		LinkInactiveDays: 30,
		AdminLinksLimit:  100,
	}
}

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := filepath.Join(t.TempDir(), "shortlinks.db")
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         gormlogger.Default.LogMode(gormlogger.Silent),
		TranslateError: true,
		NowFunc:        func() time.Time { return time.Now().UTC() },
	})
	require.NoError(t, err)
	require.NoError(t, internal.AutoMigrate(db))
	return db
}

// testEnv wires the service to a real store on SQLite and a real cache on
// an in-process Redis, so tests cover the same code paths production runs.
type testEnv struct {
	svc   *internal.LinkService
	admin *internal.AdminService
	store *internal.GormLinkStore
	cache *internal.RedisLinkCache
	db    *gorm.DB
	redis *miniredis.Miniredis
	cfg   *internal.Config
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})

	cfg := testConfig()
	db := newTestDB(t)
	store := internal.NewGormLinkStore(db)
	cache := internal.NewRedisLinkCache(rdb, cfg.CacheTTL)
	svc := internal.NewLinkService(store, cache, cfg)

	return &testEnv{
		svc:   svc,
		admin: internal.NewAdminService(store, svc, cfg),
		store: store,
		cache: cache,
		db:    db,
		redis: mr,
		cfg:   cfg,
	}
}

func (e *testEnv) linkCount(t *testing.T) int64 {
	t.Helper()
	var n int64
	require.NoError(t, e.db.Model(&internal.Link{}).Count(&n).Error)
	return n
}

// rawLink reads a row by id without any activity filter.
func (e *testEnv) rawLink(t *testing.T, id int64) internal.Link {
	t.Helper()
	var link internal.Link
	require.NoError(t, e.db.First(&link, id).Error)
	return link
}

func seedLink(t *testing.T, store internal.LinkStore, link internal.Link) *internal.Link {
	t.Helper()
	link.IsActive = true
	require.NoError(t, store.Insert(context.Background(), &link))
	return &link
}

func createUser(t *testing.T, db *gorm.DB, username string, isAdmin bool) *internal.User {
	t.Helper()
	user := &internal.User{
		Username:       username,
		Email:          username + "@example.com",
		HashedPassword: "not-a-real-hash",
		IsActive:       true,
		IsAdmin:        isAdmin,
	}
	require.NoError(t, db.Create(user).Error)
	return user
}

func timePtr(v time.Time) *time.Time {
	return &v
}

// countingStore tracks how often the service touches selected store
// operations, to verify the store is consulted even on cache hits and
// skipped when a sweep has nothing to do.
type countingStore struct {
	internal.LinkStore
	findByCode  int
	deactivates int
}

func (s *countingStore) FindActiveByCode(ctx context.Context, code string) (*internal.Link, error) {
	s.findByCode++
	return s.LinkStore.FindActiveByCode(ctx, code)
}

func (s *countingStore) DeactivateAll(ctx context.Context, ids []int64) error {
	s.deactivates++
	return s.LinkStore.DeactivateAll(ctx, ids)
}

// conflictStore fails the first n inserts with the duplicate-code error to
// exercise the regeneration loop.
type conflictStore struct {
	internal.LinkStore
	conflicts int
	inserts   int
}

func (s *conflictStore) Insert(ctx context.Context, link *internal.Link) error {
	s.inserts++
	if s.conflicts > 0 {
		s.conflicts--
		return fmt.Errorf("insert link %q: %w", link.ShortCode, internal.ErrDuplicateCode)
	}
	return s.LinkStore.Insert(ctx, link)
}

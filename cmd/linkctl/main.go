package main

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/MagnunAVF/shortlinks/internal"
	applog "github.com/MagnunAVF/shortlinks/internal/logger"
)

var rootCmd = &cobra.Command{
	Use:          "linkctl",
	Short:        "Operations toolbox for the shortlinks services",
	Long:         "linkctl runs maintenance sweeps and admin queries against the shortlinks database directly, without going through the HTTP API.",
	SilenceUsage: true,
}

func main() {
	if err := godotenv.Load(".env"); err != nil {
		slog.Warn(".env file not found, relying on env vars", "err", err)
	}

	applog.InitFromEnv()

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// toolbox bundles the services a subcommand needs plus the config they
// were built from.
type toolbox struct {
	cfg   *internal.Config
	links *internal.LinkService
	admin *internal.AdminService
}

func newToolbox() (*toolbox, error) {
	cfg := internal.LoadConfig()

	db, err := gorm.Open(postgres.Open(cfg.DBURL), &gorm.Config{
		Logger:         applog.NewGormLogger(cfg.GormLogLevel),
		TranslateError: true,
		NowFunc:        func() time.Time { return time.Now().UTC() },
	})
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}

	// no ping here: sweeps must run even when the cache is down, and a
	// failed invalidation ages out through the entry's TTL anyway
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})

	store := internal.NewGormLinkStore(db)
	cache := internal.NewRedisLinkCache(rdb, cfg.CacheTTL)
	links := internal.NewLinkService(store, cache, cfg)

	return &toolbox{
		cfg:   cfg,
		links: links,
		admin: internal.NewAdminService(store, links, cfg),
	}, nil
}

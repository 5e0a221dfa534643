package main

import (
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/joho/godotenv"
	"github.com/rabbitmq/amqp091-go"
	"github.com/redis/go-redis/v9"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/MagnunAVF/shortlinks/internal"
	applog "github.com/MagnunAVF/shortlinks/internal/logger"
)

func main() {
	if err := godotenv.Load(".env"); err != nil {
		slog.Warn(".env file not found, relying on env vars", "err", err)
	}

	applog.InitFromEnv()
	cfg := internal.LoadConfig()
	ctx := context.Background()

	db, err := gorm.Open(postgres.Open(cfg.DBURL), &gorm.Config{
		Logger:         applog.NewGormLogger(cfg.GormLogLevel),
		TranslateError: true,
		NowFunc:        func() time.Time { return time.Now().UTC() },
	})
	if err != nil {
		slog.Error("Unable to connect to database", "err", err)
		os.Exit(1)
	}

	slog.Info("Running GORM auto-migration")
	if err := internal.AutoMigrate(db); err != nil {
		slog.Error("Failed to auto-migrate database", "err", err)
		os.Exit(1)
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	if _, err := rdb.Ping(ctx).Result(); err != nil {
		slog.Error("Unable to connect to Redis", "err", err)
		os.Exit(1)
	}

	rabbitConn, err := amqp091.Dial(cfg.RabbitURL)
	if err != nil {
		slog.Error("Unable to connect to RabbitMQ", "err", err)
		os.Exit(1)
	}
	defer rabbitConn.Close()

	rabbitCH, err := rabbitConn.Channel()
	if err != nil {
		slog.Error("Unable to open RabbitMQ channel", "err", err)
		os.Exit(1)
	}
	defer rabbitCH.Close()

	clicks, err := internal.NewRabbitClickPublisher(rabbitCH, cfg.ClickQueue)
	if err != nil {
		slog.Error("Failed to set up click publisher", "err", err)
		os.Exit(1)
	}

	store := internal.NewGormLinkStore(db)
	cache := internal.NewRedisLinkCache(rdb, cfg.CacheTTL)
	links := internal.NewLinkService(store, cache, cfg)
	admin := internal.NewAdminService(store, links, cfg)

	// retire anything that expired while the service was down
	if n, err := links.SweepExpired(ctx, time.Now().UTC()); err != nil {
		slog.Warn("Startup expired sweep failed", "err", err)
	} else {
		slog.Info("Startup expired sweep finished", "count", n)
	}

	app := fiber.New()
	app.Use(applog.FiberMiddleware())
	app.Use(cors.New())

	a := &api{cfg: cfg, store: store, links: links, admin: admin, clicks: clicks}
	a.register(app)

	slog.Info("Starting API service", "port", cfg.APIPort)
	if err := app.Listen(cfg.APIPort); err != nil {
		slog.Error("API service failed", "err", err)
		os.Exit(1)
	}
}

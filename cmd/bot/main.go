package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/oggyb/matchbot/internal/app"
	"github.com/oggyb/matchbot/internal/bot"
	"github.com/oggyb/matchbot/internal/cache"
	"github.com/oggyb/matchbot/internal/config"
	"github.com/oggyb/matchbot/internal/db"
	"github.com/oggyb/matchbot/internal/logger"
	"github.com/oggyb/matchbot/internal/server"
	"github.com/oggyb/matchbot/internal/storage"
)

const healthInterval = 15 * time.Second

func main() {
	if err := run(); err != nil {
		logger.Error("matchbot stopped", "err", err)
		os.Exit(1)
	}
}

func run() error {
	cfg := config.New()

	// Init logger (global singleton)
	logger.InitFromConfig(cfg)
	log := logger.L()

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Init DB
	database, err := db.NewDB(cfg)
	if err != nil {
		return fmt.Errorf("failed to init db: %w", err)
	}
	sqlDB, err := database.DB()
	if err != nil {
		return fmt.Errorf("failed to get sql db: %w", err)
	}
	defer sqlDB.Close()

	// Init Redis
	redisCache := cache.NewRedisCache(cfg)
	if err := redisCache.Ping(ctx); err != nil {
		return fmt.Errorf("failed to connect to redis: %w", err)
	}
	defer redisCache.Close()

	// Init photo bucket
	photos, err := storage.New(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to init photo store: %w", err)
	}

	appCtx := app.New(database, redisCache, log, photos)

	if cfg.App.ENV == "development" {
		if err := db.SeedTestData(database, appCtx.Catalog.IDs(), log); err != nil {
			log.Error("failed to seed", "err", err)
		}
	}

	// Ops health server
	health := server.NewHealthRegistrar(log, map[string]server.Pinger{
		"db":    sqlDB.PingContext,
		"redis": redisCache.Ping,
	})
	go health.Watch(ctx, healthInterval)
	go func() {
		if err := server.StartGRPCServer(ctx, cfg, log, health); err != nil {
			log.Error("gRPC server failed", "err", err)
			stop()
		}
	}()

	// Telegram
	api, err := tgbotapi.NewBotAPI(cfg.Telegram.Token)
	if err != nil {
		return fmt.Errorf("failed to create telegram bot: %w", err)
	}
	api.Debug = cfg.Telegram.Debug
	log.Info("telegram bot authorized", "username", api.Self.UserName)

	u := tgbotapi.NewUpdate(0)
	u.Timeout = cfg.Telegram.PollTimeout
	updates := api.GetUpdatesChan(u)

	bot.NewFromApp(api, appCtx).Run(ctx, updates)
	api.StopReceivingUpdates()

	log.Info("shutdown complete")
	return nil
}

// Package main runs the periodic recurring-event generation job. A cron
// schedule sweeps every active template and extends its generated events into
// the rolling window; -once runs a single sweep and exits.
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/encorelive/backend/config"
	"github.com/encorelive/backend/internal/events"
	"github.com/encorelive/backend/internal/generator"
	"github.com/encorelive/backend/internal/templates"
	"github.com/encorelive/backend/pkg/database"
	"github.com/encorelive/backend/pkg/redis"
)

func main() {
	once := flag.Bool("once", false, "run a single generation sweep and exit")
	flag.Parse()

	logger := newLogger()
	defer logger.Sync()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("load config", zap.Error(err))
	}

	ctx := context.Background()
	pool, err := database.NewPostgresPool(ctx, cfg.Database.DSN(), logger)
	if err != nil {
		logger.Fatal("database", zap.Error(err))
	}
	defer pool.Close()

	if err := database.Migrate(ctx, pool); err != nil {
		logger.Fatal("migrate", zap.Error(err))
	}

	var invalidator generator.ListingInvalidator
	rdb, err := redis.NewClient(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, logger)
	if err != nil {
		logger.Warn("cache invalidation disabled", zap.Error(err))
	} else {
		defer rdb.Close()
		ttl := time.Duration(cfg.Generation.EventsCacheTTLSeconds) * time.Second
		invalidator = events.NewCache(rdb.Client, ttl, logger)
	}

	templateRepo := templates.NewRepository(pool)
	eventRepo := events.NewRepository(pool)
	engine := generator.NewEngine(eventRepo, logger)
	runner := generator.NewRunner(templateRepo, engine, invalidator, cfg.Generation.Workers, logger)

	sweep := func() {
		report, err := runner.RunAll(ctx)
		if err != nil {
			logger.Error("generation sweep failed", zap.Error(err))
			return
		}
		logger.Info("generation sweep finished",
			zap.Int("templates", report.Templates),
			zap.Int("created", report.Created),
			zap.Int("skipped_existing", report.SkippedExisting),
			zap.Int("failed", report.Failed),
		)
	}

	if *once {
		sweep()
		return
	}

	c := cron.New()
	if _, err := c.AddFunc(cfg.Generation.Cron, sweep); err != nil {
		logger.Fatal("invalid generation schedule", zap.String("cron", cfg.Generation.Cron), zap.Error(err))
	}
	c.Start()
	logger.Info("scheduler started", zap.String("cron", cfg.Generation.Cron))

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	<-c.Stop().Done()
	logger.Info("scheduler stopped")
}

func newLogger() *zap.Logger {
	config := zap.NewProductionConfig()
	config.EncoderConfig.TimeKey = "timestamp"
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	logger, _ := config.Build()
	return logger
}

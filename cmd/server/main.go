// Package main runs the live-events HTTP API: public calendar, admin CRUD
// for venues, events and recurring templates, and the manual generation
// trigger. Shuts down gracefully on SIGINT/SIGTERM.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/encorelive/backend/config"
	"github.com/encorelive/backend/internal/events"
	"github.com/encorelive/backend/internal/generator"
	"github.com/encorelive/backend/internal/middleware"
	"github.com/encorelive/backend/internal/templates"
	"github.com/encorelive/backend/internal/venues"
	"github.com/encorelive/backend/pkg/database"
	"github.com/encorelive/backend/pkg/redis"
	"github.com/encorelive/backend/pkg/response"
)

func main() {
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

	// The listing cache is an optimization; the server runs without it.
	var listingCache *events.Cache
	rdb, err := redis.NewClient(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, logger)
	if err != nil {
		logger.Warn("events cache disabled", zap.Error(err))
	} else {
		defer rdb.Close()
		ttl := time.Duration(cfg.Generation.EventsCacheTTLSeconds) * time.Second
		listingCache = events.NewCache(rdb.Client, ttl, logger)
	}

	// Venues
	venueRepo := venues.NewRepository(pool)
	venueHandler := venues.NewHandler(venueRepo)

	// Events
	eventRepo := events.NewRepository(pool)
	eventHandler := events.NewHandler(eventRepo, listingCache)

	// Recurring templates and generation
	templateRepo := templates.NewRepository(pool)
	engine := generator.NewEngine(eventRepo, logger)
	var invalidator generator.ListingInvalidator
	if listingCache != nil {
		invalidator = listingCache
	}
	templateHandler := templates.NewHandler(templateRepo, engine, invalidator)
	runner := generator.NewRunner(templateRepo, engine, invalidator, cfg.Generation.Workers, logger)

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.CORS(cfg.Server.CORSAllowedOrigins))
	router.Use(middleware.Logger(logger))

	// Health
	router.GET("/health", func(c *gin.Context) { response.OK(c, gin.H{"status": "ok"}) })

	// Public calendar
	router.GET("/events", eventHandler.List)
	router.GET("/events/:id", eventHandler.GetByID)
	router.GET("/venues", venueHandler.List)
	router.GET("/venues/:id", venueHandler.GetByID)

	// Admin panel (authentication handled upstream by the reverse proxy)
	admin := router.Group("/admin")
	{
		admin.POST("/venues", venueHandler.Create)
		admin.PATCH("/venues/:id", venueHandler.Update)
		admin.DELETE("/venues/:id", venueHandler.Delete)

		admin.GET("/templates", templateHandler.List)
		admin.POST("/templates", templateHandler.Create)
		admin.GET("/templates/:id", templateHandler.GetByID)
		admin.PATCH("/templates/:id", templateHandler.Update)
		admin.DELETE("/templates/:id", templateHandler.Delete)
		admin.PATCH("/templates/:id/active", templateHandler.SetActive)
		admin.GET("/templates/:id/events", eventHandler.ListByTemplate)
		admin.POST("/templates/:id/generate", templateHandler.Generate)

		admin.POST("/generate", func(c *gin.Context) {
			report, err := runner.RunAll(c.Request.Context())
			if err != nil {
				response.Internal(c, "generation sweep failed")
				return
			}
			response.OK(c, report)
		})

		admin.PATCH("/events/:id", eventHandler.Update)
		admin.DELETE("/events/:id", eventHandler.Delete)
	}

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}

	go func() {
		logger.Info("server listening", zap.String("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown", zap.Error(err))
	}
	logger.Info("server stopped")
}

func newLogger() *zap.Logger {
	config := zap.NewProductionConfig()
	config.EncoderConfig.TimeKey = "timestamp"
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	logger, _ := config.Build()
	return logger
}

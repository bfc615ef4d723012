package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"gorm.io/gorm"

	"github.com/friendsincode/bragi/internal/cache"
	"github.com/friendsincode/bragi/internal/config"
	"github.com/friendsincode/bragi/internal/db"
	"github.com/friendsincode/bragi/internal/library"
	"github.com/friendsincode/bragi/internal/logging"
	"github.com/friendsincode/bragi/internal/models"
	"github.com/friendsincode/bragi/internal/search"
	"github.com/friendsincode/bragi/internal/server"
	"github.com/friendsincode/bragi/internal/telemetry"
)

var (
	logger zerolog.Logger
	cfg    *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "bragi",
	Short: "Bragi - music search aggregation service",
	Long:  "Bragi aggregates track search across sources with an advanced boolean and field query language.",
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the Bragi server",
	Long:  "Start the HTTP search API server",
	RunE:  runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// loadConfig loads configuration (called by commands that need it)
func loadConfig() error {
	var err error
	cfg, err = config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger = logging.Setup(cfg.Environment)
	return nil
}

func runServe(cmd *cobra.Command, args []string) error {
	if err := loadConfig(); err != nil {
		return err
	}

	logger.Info().Msg("Bragi starting")

	database, err := initDatabase()
	if err != nil {
		return fmt.Errorf("initialize database: %w", err)
	}

	lib := library.New(database, logger)
	if err := lib.Migrate(); err != nil {
		return fmt.Errorf("migrate library schema: %w", err)
	}

	resultCache, redisStore := buildCache(cfg, logger)
	if loaded := resultCache.Load(context.Background()); loaded > 0 {
		logger.Info().Int("entries", loaded).Msg("restored cached search results")
	}

	metrics := telemetry.New()
	telemetry.ObserveCache(metrics, "search", resultCache)

	svc := search.New([]search.Source{lib}, resultCache, metrics, logger)

	srv := server.New(cfg, svc, metrics, logger)
	srv.AddCloser(func() error { return db.Close(database) })
	if redisStore != nil {
		srv.AddCloser(redisStore.Close)
	}

	httpServer := srv.HTTPServer()

	go func() {
		logger.Info().Str("addr", httpServer.Addr).Msg("HTTP server listening")
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("http server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutting down gracefully...")

	timeoutCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(timeoutCtx); err != nil {
		logger.Error().Err(err).Msg("graceful shutdown failed")
	}

	if err := srv.Close(); err != nil {
		logger.Error().Err(err).Msg("shutdown cleanup failed")
	}

	logger.Info().Msg("Bragi stopped")
	return nil
}

// buildCache assembles the search result cache, wiring a redis snapshot store
// when persistence is enabled. The redis store is returned separately so the
// caller can close it on shutdown; it is nil when persistence is off.
func buildCache(cfg *config.Config, logger zerolog.Logger) (*cache.Cache[[]models.Track], *cache.RedisStore) {
	opts := cache.Options{
		MaxEntries:   cfg.CacheMaxEntries,
		TTL:          cfg.CacheTTL,
		MaxSizeBytes: cfg.CacheMaxSizeBytes(),
		Persistent:   cfg.CachePersistent,
		StorageKey:   cfg.CacheStorageKey,
	}

	var redisStore *cache.RedisStore
	var store cache.Store
	if cfg.CachePersistent {
		redisStore = cache.NewRedisStore(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB, logger)
		store = redisStore
	}

	return cache.New[[]models.Track](opts, logger, store), redisStore
}

// initDatabase initializes the database connection (used by import commands)
func initDatabase() (*gorm.DB, error) {
	return db.Connect(cfg)
}

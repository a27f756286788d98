// Resolution kernel main entry point.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/brew-resolution-kernel/internal/config"
	"github.com/brew-resolution-kernel/internal/events"
	"github.com/brew-resolution-kernel/internal/grounding"
	"github.com/brew-resolution-kernel/internal/jsonx"
	"github.com/brew-resolution-kernel/internal/matcher"
	"github.com/brew-resolution-kernel/internal/model"
	"github.com/brew-resolution-kernel/internal/pipeline"
	"github.com/brew-resolution-kernel/internal/quality"
	"github.com/brew-resolution-kernel/internal/server"
	"github.com/brew-resolution-kernel/internal/store"
	"github.com/brew-resolution-kernel/internal/textmatch"
)

func main() {
	logger, _ := zap.NewProduction()
	defer logger.Sync()

	logger.Info("Starting brew resolution kernel")

	cfg, err := config.Load(getEnv("CONFIG_PATH", ""))
	if err != nil {
		logger.Fatal("Failed to load configuration", zap.Error(err))
	}

	// Environment overrides for the settings that differ per deployment.
	if v := getEnv("REDIS_URL", ""); v != "" {
		cfg.RedisURL = v
	}
	if v := getEnv("NATS_URL", ""); v != "" {
		cfg.NATSURL = v
	}
	if v := getEnv("SEED_PATH", ""); v != "" {
		cfg.SeedPath = v
	}
	if v := getEnv("ADDR", ""); v != "" {
		cfg.Server.Addr = v
	}
	if getEnv("STRICT_GROUNDING", "") == "true" {
		cfg.Pipeline.StrictGrounding = true
	}

	var redisClient *redis.Client
	if cfg.RedisURL != "" {
		redisClient = redis.NewClient(&redis.Options{Addr: cfg.RedisURL})
	}

	source := store.NewStaticSource(loadSeed(cfg.SeedPath, logger))
	provider, err := store.NewProvider(source, cfg.Snapshot, redisClient, logger)
	if err != nil {
		logger.Fatal("Failed to create snapshot provider", zap.Error(err))
	}
	defer provider.Close()

	index, err := store.NewNameIndex(cfg.Index, logger)
	if err != nil {
		logger.Fatal("Failed to create name index", zap.Error(err))
	}
	defer index.Close()

	bootCtx, bootCancel := context.WithTimeout(context.Background(), 30*time.Second)
	if snapshot, err := provider.Snapshot(bootCtx); err != nil {
		logger.Warn("Initial snapshot fetch failed; index starts empty", zap.Error(err))
	} else if err := index.Rebuild(bootCtx, snapshot); err != nil {
		logger.Warn("Initial index build failed", zap.Error(err))
	}
	bootCancel()

	scorer, err := textmatch.NewScorer(textmatch.NewKeywordSet(cfg.Keywords, 0, 0), 0)
	if err != nil {
		logger.Fatal("Failed to create similarity scorer", zap.Error(err))
	}
	m, err := matcher.New(cfg.Matcher, scorer, logger)
	if err != nil {
		logger.Fatal("Failed to create matcher", zap.Error(err))
	}

	p := pipeline.New(
		cfg.Pipeline,
		m,
		quality.New(cfg.Quality),
		grounding.New(logger),
		logger,
	)

	var publisher *events.Publisher
	if cfg.NATSURL != "" {
		publisher, err = events.Connect(cfg.NATSURL, logger)
		if err != nil {
			logger.Warn("NATS unavailable; outcomes will not be published", zap.Error(err))
		} else {
			defer publisher.Close()
		}
	}

	srv := server.New(server.Config{
		MaxBodyBytes:   cfg.Server.MaxBodyBytes,
		ReplayCacheTTL: cfg.Server.ReplayCacheTTL,
		ReplayCacheLen: cfg.Server.ReplayCacheLen,
	}, p, provider, index, publisher, logger)

	httpServer := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      srv.Handler(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		logger.Info("HTTP server starting", zap.String("addr", cfg.Server.Addr))
		if err := httpServer.ListenAndServe(); err != http.ErrServerClosed {
			logger.Fatal("HTTP server failed", zap.Error(err))
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	logger.Info("Shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	httpServer.Shutdown(ctx)

	logger.Info("Shutdown complete")
}

// loadSeed reads the canonical brewery seed catalog. A missing path yields an
// empty catalog so the service still boots in a fresh environment.
func loadSeed(path string, logger *zap.Logger) []model.CanonicalBrewery {
	if path == "" {
		return nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		logger.Warn("Failed to read seed catalog", zap.String("path", path), zap.Error(err))
		return nil
	}
	var breweries []model.CanonicalBrewery
	if err := jsonx.Unmarshal(data, &breweries); err != nil {
		logger.Warn("Failed to parse seed catalog", zap.String("path", path), zap.Error(err))
		return nil
	}
	logger.Info("Seed catalog loaded", zap.Int("breweries", len(breweries)))
	return breweries
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

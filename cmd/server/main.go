package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/JonMunkholm/Inventory/internal/cache"
	"github.com/JonMunkholm/Inventory/internal/config"
	"github.com/JonMunkholm/Inventory/internal/core"
	"github.com/JonMunkholm/Inventory/internal/database"
	"github.com/JonMunkholm/Inventory/internal/logging"
	"github.com/JonMunkholm/Inventory/internal/media"
	"github.com/JonMunkholm/Inventory/internal/metrics"
	"github.com/JonMunkholm/Inventory/internal/web"
)

func main() {
	// Load .env file if it exists (Overload overwrites existing env vars)
	if err := godotenv.Overload(); err != nil {
		slog.Info("no .env file found, using environment variables")
	} else {
		slog.Info("loaded .env file (overwriting existing env vars)")
	}

	// Load and validate configuration
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	// Setup structured logging based on config
	logging.Setup(cfg.Logging.Level, cfg.Logging.Format)

	slog.Info("configuration loaded",
		"port", cfg.Server.Port,
		"database", config.MaskURL(cfg.Database.URL),
		"upload_dir", cfg.Upload.Dir,
		"upload_max_concurrent", cfg.Upload.MaxConcurrent,
		"storage", cfg.Storage.Backend,
		"cache_enabled", cfg.Cache.Enabled(),
		"rate_limit_enabled", cfg.Rate.Enabled,
	)

	ctx := context.Background()

	// Connect to the store; the schema is migrated on open
	store, engine, err := database.Open(ctx, cfg.Database)
	if err != nil {
		slog.Error("failed to open database", "error", err)
		os.Exit(1)
	}
	slog.Info("connected to database", "engine", engine)

	if cfg.Cache.Enabled() {
		backend, err := cache.NewRedisBackend(ctx, cfg.Cache.RedisURL)
		if err != nil {
			slog.Error("failed to connect to redis", "error", err)
			os.Exit(1)
		}
		store = cache.NewStore(store, backend, cfg.Cache.TTL, cfg.Cache.KeyPrefix)
		slog.Info("product cache enabled", "redis", config.MaskURL(cfg.Cache.RedisURL), "ttl", cfg.Cache.TTL)
	}
	defer store.Close()

	m := metrics.New()
	limiter := core.NewImportLimiter(cfg.Upload.MaxConcurrent, cfg.Upload.MaxWaitTime)
	m.TrackImportSlots(limiter)

	service := core.NewService(store,
		core.WithImportLimiter(limiter),
		core.WithRecorder(m),
	)

	// Local upload directory: staged imports always, images unless S3 is used
	staging, err := media.NewLocalStore(cfg.Upload.Dir, cfg.Upload.PublicPath)
	if err != nil {
		slog.Error("failed to prepare upload directory", "dir", cfg.Upload.Dir, "error", err)
		os.Exit(1)
	}

	opts := []web.Option{web.WithMetrics(m)}
	if strings.EqualFold(cfg.Storage.Backend, "s3") {
		images, err := media.NewS3Store(ctx, cfg.Storage)
		if err != nil {
			slog.Error("failed to configure S3 image storage", "error", err)
			os.Exit(1)
		}
		opts = append(opts, web.WithImageStore(images))
		slog.Info("images stored in S3", "bucket", cfg.Storage.S3Bucket, "prefix", cfg.Storage.S3Prefix)
	}

	server := web.NewServer(service, cfg, staging, opts...)

	// Create cancellable context for background jobs
	jobCtx, cancelJobs := context.WithCancel(context.Background())

	// Remove import files left behind by crashed requests
	janitor := media.NewJanitor(staging.Dir(), cfg.Upload.TempMaxAge, cfg.Upload.JanitorInterval)
	go janitor.Run(jobCtx)

	// Graceful shutdown
	shutdownDone := make(chan struct{})
	go func() {
		defer close(shutdownDone)
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh

		slog.Info("shutting down...")

		// Stop background jobs
		cancelJobs()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()

		// Wait for running imports to finish (with timeout)
		if active := limiter.Active(); active > 0 {
			slog.Info("waiting for imports to complete", "active", active)
			if err := limiter.WaitForDrain(shutdownCtx); err != nil {
				slog.Warn("imports did not complete in time", "error", err)
			} else {
				slog.Info("all imports completed")
			}
		}

		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("shutdown error", "error", err)
		}
	}()

	if err := server.Start(); err != nil {
		slog.Error("server failed", "error", err)
		cancelJobs()
		return
	}
	<-shutdownDone
	slog.Info("server stopped")
}

package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/legacy-compass/farm-ingest/internal/api"
	"github.com/legacy-compass/farm-ingest/internal/api/middleware"
	"github.com/legacy-compass/farm-ingest/internal/config"
	"github.com/legacy-compass/farm-ingest/internal/db"
	"github.com/legacy-compass/farm-ingest/internal/repository"
	"github.com/legacy-compass/farm-ingest/internal/schema"
)

const idempotencySweepInterval = time.Hour

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	if err := config.LoadDotEnv(); err != nil {
		slog.Error("failed to load .env", "error", err)
		os.Exit(1)
	}
	cfg := config.Load()

	slog.Info("starting farm-ingest service")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	dbPool := connectWithRetry(ctx, cfg, 30)
	defer dbPool.Close()

	if err := db.RunMigrations(ctx, dbPool); err != nil {
		slog.Error("failed to run migrations", "error", err)
		os.Exit(1)
	}
	if err := db.SeedGlobalRoleConfig(ctx, dbPool, schema.DefaultConfigVersion, schema.DefaultConfigJSON()); err != nil {
		slog.Error("failed to seed role config", "error", err)
		os.Exit(1)
	}

	go sweepIdempotencyKeys(ctx, repository.NewIdempotencyRepository(dbPool))

	router := api.NewRouter(api.NewDependencies(dbPool, cfg), cfg)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		slog.Info("server listening",
			"port", cfg.Server.Port,
			"service", middleware.ServiceName,
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("server failed", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()

	slog.Info("shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("server forced shutdown", "error", err)
	}
	slog.Info("server exited")
}

func connectWithRetry(ctx context.Context, cfg *config.Config, maxRetries int) *db.Pool {
	for i := 0; i < maxRetries; i++ {
		pool, err := db.Connect(ctx, cfg.Database)
		if err == nil {
			return pool
		}
		slog.Warn("database not ready, retrying...",
			"attempt", i+1,
			"max_retries", maxRetries,
			"error", err,
		)
		select {
		case <-time.After(2 * time.Second):
		case <-ctx.Done():
			os.Exit(1)
		}
	}
	slog.Error("failed to connect to database after retries")
	os.Exit(1)
	return nil
}

// sweepIdempotencyKeys deletes expired Idempotency-Key claims until ctx ends.
func sweepIdempotencyKeys(ctx context.Context, repo *repository.IdempotencyRepository) {
	ticker := time.NewTicker(idempotencySweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := repo.CleanExpired(ctx)
			if err != nil {
				slog.Warn("failed to clean idempotency keys", "error", err)
				continue
			}
			if n > 0 {
				slog.Info("cleaned expired idempotency keys", "count", n)
			}
		}
	}
}

// Package main is the entry point for the Stockroom server. It loads
// configuration, sets up logging, connects to MongoDB and Redis, picks the
// session store, and starts the HTTP server.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/keyxmakerx/stockroom/internal/app"
	"github.com/keyxmakerx/stockroom/internal/auth"
	"github.com/keyxmakerx/stockroom/internal/config"
	"github.com/keyxmakerx/stockroom/internal/database"
	"github.com/keyxmakerx/stockroom/internal/inventory"
	"github.com/keyxmakerx/stockroom/internal/logger"
)

// shutdownTimeout is how long in-flight requests get to finish.
const shutdownTimeout = 10 * time.Second

func main() {
	if err := run(); err != nil {
		slog.Error("server exited", slog.Any("error", err))
		os.Exit(1)
	}
}

func run() error {
	// --- Load Configuration ---
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	log, closeLog := logger.New(logger.Options{
		Env:          cfg.Env,
		ConsoleLevel: cfg.Log.ConsoleLevel,
		FileLevel:    cfg.Log.FileLevel,
		File:         cfg.Log.File,
		NoColor:      cfg.IsProduction(),
	})
	defer func() { _ = closeLog() }()
	slog.SetDefault(log)

	slog.Info("starting Stockroom",
		slog.String("env", cfg.Env),
		slog.Int("port", cfg.Port),
		slog.String("sessions", cfg.Auth.Strategy),
	)

	ctx := context.Background()

	// --- Connect to MongoDB ---
	mongo, err := database.NewMongo(ctx, cfg.Mongo)
	if err != nil {
		return err
	}
	defer func() { _ = mongo.Close() }()
	if err := inventory.EnsureIndexes(ctx, mongo.DB); err != nil {
		return err
	}
	slog.Info("connected to MongoDB", slog.String("database", cfg.Mongo.Database))

	// --- Connect to Redis ---
	// Only server-side sessions need it; JWT deployments run without.
	var deps app.Deps
	deps.Mongo = mongo
	switch cfg.Auth.Strategy {
	case config.StrategyRedis:
		rdb, err := database.NewRedis(ctx, cfg.Redis)
		if err != nil {
			return err
		}
		defer func() { _ = rdb.Close() }()
		slog.Info("connected to Redis")

		deps.Redis = rdb
		deps.Sessions = auth.NewRedisStore(rdb, cfg.Auth.CookieName, cfg.Auth.SessionTTL)
	default:
		store, err := auth.NewJWTStore(cfg.Auth.SecretKey, cfg.Auth.CookieName, cfg.Auth.SessionTTL)
		if err != nil {
			return err
		}
		deps.Sessions = store
	}

	if !cfg.OAuth.Enabled() {
		slog.Warn("no OAuth client configured; sign-in is disabled")
	}

	// --- Create Application ---
	application := app.New(cfg, deps)

	// --- Graceful Shutdown ---
	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		<-quit

		slog.Info("shutting down server...")

		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		if err := application.Shutdown(ctx); err != nil {
			slog.Error("server forced shutdown", slog.Any("error", err))
		}
	}()

	// --- Start Server ---
	if err := application.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	slog.Info("server stopped")
	return nil
}

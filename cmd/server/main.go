package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/user/creature-league/config"
	"github.com/user/creature-league/internal/api"
	"github.com/user/creature-league/internal/game"
	"github.com/user/creature-league/internal/species"
	"github.com/user/creature-league/internal/storage"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func main() {
	// Parse command line flags
	configPath := flag.String("config", "./config/config.json", "Path to configuration file")
	flag.Parse()

	// Load configuration
	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Set up logger
	logger := setupLogger(cfg.Server.LogLevel)
	defer logger.Sync()

	// Open the store and bring the schema up to date
	store, err := openStore(cfg.Database, logger)
	if err != nil {
		logger.Fatal("Failed to open store", zap.Error(err))
	}
	defer store.Close()

	// Load species data behind the cache
	catalog, err := species.LoadCatalog(cfg.Species.DataDir)
	if err != nil {
		logger.Fatal("Failed to load species data", zap.Error(err))
	}
	cache := species.NewLRUCache(cfg.Species.CacheSize, cfg.Species.CacheTTL())
	gateway := species.NewCachedGateway(catalog, cache, logger.Named("species"))

	// Initialize game manager
	manager := game.NewManager(cfg.Game, store, gateway, nil)
	manager.SetLogger(logger.Named("game"))

	sweeper := game.NewSweeper(manager, config.Seconds(cfg.Game.SweepIntervalSeconds))
	sweeper.Start()
	defer sweeper.Stop()

	// Set up HTTP server
	apiServer := api.NewServer(manager, logger.Named("api"), config.Seconds(cfg.Server.RequestTimeoutSeconds))
	server := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           apiServer.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("Starting HTTP server", zap.String("port", cfg.Server.Port))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("HTTP server stopped", zap.Error(err))
		}
	}()

	// Wait for shutdown signal
	waitForShutdown(logger)

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		logger.Error("Failed to shut down HTTP server", zap.Error(err))
	}
	logger.Info("Shutting down")
}

func setupLogger(level string) *zap.Logger {
	config := zap.NewProductionConfig()
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	if lvl, err := zapcore.ParseLevel(level); err == nil {
		config.Level = zap.NewAtomicLevelAt(lvl)
	}
	logger, err := config.Build()
	if err != nil {
		return zap.NewNop()
	}
	return logger
}

func openStore(cfg config.DatabaseConfig, logger *zap.Logger) (*storage.Store, error) {
	if cfg.Driver == storage.DriverSQLite || cfg.Driver == "" {
		if err := os.MkdirAll(filepath.Dir(cfg.DSN), 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	store, err := storage.Open(storage.Config{
		Driver:        cfg.Driver,
		DSN:           cfg.DSN,
		MaxOpenConns:  cfg.MaxOpenConns,
		MaxIdleConns:  cfg.MaxIdleConns,
		BusyTimeoutMs: cfg.BusyTimeoutMs,
		SlowQueryMs:   cfg.SlowQueryMs,
		TxRetries:     cfg.TxRetries,
	}, logger.Named("storage"))
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()
	if err := store.Migrate(ctx); err != nil {
		store.Close()
		return nil, fmt.Errorf("failed to migrate: %w", err)
	}
	return store, nil
}

func waitForShutdown(logger *zap.Logger) {
	// Set up channel for shutdown signals
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	// Wait for shutdown signal
	sig := <-sigChan
	logger.Info("Received shutdown signal", zap.String("signal", sig.String()))
}

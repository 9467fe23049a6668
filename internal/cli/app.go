package cli

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/JonMunkholm/sheetsync/internal/config"
	"github.com/JonMunkholm/sheetsync/internal/logging"
	"github.com/JonMunkholm/sheetsync/internal/metrics"
	"github.com/JonMunkholm/sheetsync/internal/metrics/prompush"
	"github.com/JonMunkholm/sheetsync/internal/source"
	"github.com/JonMunkholm/sheetsync/internal/store"
	"github.com/JonMunkholm/sheetsync/internal/store/all"
	"github.com/JonMunkholm/sheetsync/internal/store/postgres"
	"github.com/JonMunkholm/sheetsync/internal/syncer"

	_ "github.com/JonMunkholm/sheetsync/internal/core/tables" // Register all tables
)

// app holds the wired components of one process.
type app struct {
	cfg     *config.Config
	store   store.Gateway
	service *syncer.Service
	logger  *slog.Logger
}

// loadConfig loads and validates configuration and installs the logger.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	logging.Setup(cfg.Logging.Level, cfg.Logging.Format)
	slog.Debug("configuration loaded", "config", cfg.String())
	return cfg, nil
}

// newApp wires the store, fetcher, orchestrator and service from cfg.
func newApp(ctx context.Context, cfg *config.Config) (*app, error) {
	logger := slog.Default()

	if cfg.Metrics.PushgatewayURL != "" {
		backend, err := prompush.NewBackend(cfg.Metrics.Job, cfg.Metrics.PushgatewayURL)
		if err != nil {
			return nil, fmt.Errorf("metrics: %w", err)
		}
		metrics.SetBackend(backend)
		logger.Info("metrics enabled", "job", cfg.Metrics.Job)
	}

	pool := postgres.PoolOptions{
		MaxConns: int32(cfg.Database.MaxConns),
		MinConns: int32(cfg.Database.MinConns),
	}
	gw, err := all.Open(ctx, all.Options{
		URL:       cfg.Database.URL,
		AuthToken: cfg.Database.AuthToken,
		Timeouts:  cfg.Database.Timeouts(),
		Pool:      pool,
		Logger:    logger,
	})
	if err != nil {
		return nil, err
	}
	backend, _ := all.Backend(cfg.Database.URL)
	logger.Info("store opened", "backend", backend)

	fetcher := source.New(source.Options{
		BaseURL:    cfg.Source.ExportBase,
		MaxRetries: cfg.Source.MaxRetries,
		RetryDelay: cfg.Source.RetryDelay,
		Logger:     logger,
	})

	orch := syncer.New(syncer.Options{
		Fetcher:      fetcher,
		Store:        gw,
		Budget:       cfg.Sync.Timeout,
		BatchSize:    cfg.Sync.BatchSize,
		FetchTimeout: cfg.Source.FetchTimeout,
		Logger:       logger,
	})

	svc := syncer.NewService(syncer.ServiceOptions{
		Orchestrator: orch,
		Store:        gw,
		SourceID:     cfg.Source.SpreadsheetID,
		Sheets:       cfg.Sheets(),
		Logger:       logger,
	})

	return &app{cfg: cfg, store: gw, service: svc, logger: logger}, nil
}

func (a *app) Close() {
	if err := a.store.Close(); err != nil {
		a.logger.Warn("store close failed", "error", err)
	}
	metrics.SetBackend(nil)
}

package cli

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/JonMunkholm/sheetsync/internal/web"
)

// NewServeCommand creates the serve command.
func NewServeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the sync API and run the optional schedule",
		Long: `Start the HTTP API for triggering and inspecting sync runs.

Endpoints:
  GET  /healthz
  GET  /api/tables
  POST /api/sync          start a run (202, or 409 while one is active)
  GET  /api/runs
  GET  /api/runs/{runID}

When SYNC_INTERVAL is set, a sync also runs on start and then every interval.
On SIGINT/SIGTERM the server stops accepting requests and waits up to
SERVER_SHUTDOWN_TIMEOUT for the active run.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd.Context())
		},
	}
}

func runServe(parent context.Context) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	if err := a.store.Ping(ctx); err != nil {
		slog.Warn("store not reachable at startup", "error", err)
	}

	server := web.NewServer(a.service, web.Options{
		APIKeys:        cfg.Server.APIKeys,
		TrustedProxies: cfg.Server.TrustedProxies,
		ReadTimeout:    cfg.Server.ReadTimeout,
		Logger:         a.logger,
	})

	// Background jobs stop with the signal context
	go a.service.StartScheduler(ctx, cfg.Sync.Interval)

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start(cfg.Server.Addr())
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	slog.Info("shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.Error("shutdown error", "error", err)
	}

	// Wait for the active run to complete (with timeout)
	if a.service.Busy() {
		slog.Info("waiting for sync run to complete")
		if err := a.service.Wait(shutdownCtx); err != nil {
			slog.Warn("sync run did not complete in time", "error", err)
		} else {
			slog.Info("sync run completed")
		}
	}

	slog.Info("server stopped")
	return nil
}

package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/JonMunkholm/sheetsync/internal/report"
	"github.com/JonMunkholm/sheetsync/internal/syncer"
)

// SyncOptions holds options for the sync command.
type SyncOptions struct {
	Tables     []string
	JSONOutput bool
}

// NewSyncCommand creates the sync command.
func NewSyncCommand() *cobra.Command {
	opts := &SyncOptions{}

	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Run one sync of the configured tables",
		Long: `Fetch, validate, transform and load every configured table once.

The exit code is 0 only when every table succeeded. A failed table does not
stop the tables after it; exceeding SYNC_TIMEOUT stops the run before the
next table starts.`,
		Example: `  # Sync every table in SYNC_TABLES order
  sheetsync sync

  # Sync selected tables
  sheetsync sync --tables cards,brooches

  # JSON summary for automation
  sheetsync sync --json`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runSync(cmd, opts)
		},
	}

	cmd.Flags().StringSliceVar(&opts.Tables, "tables", nil, "Comma-separated tables to sync (default: SYNC_TABLES)")
	cmd.Flags().BoolVar(&opts.JSONOutput, "json", false, "Print the run summary as JSON")

	return cmd
}

func runSync(cmd *cobra.Command, opts *SyncOptions) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	// Interrupts stop the run between tables.
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	return syncOnce(ctx, a.service, cmd, opts)
}

// syncOnce runs the service once and prints the summary.
func syncOnce(ctx context.Context, svc *syncer.Service, cmd *cobra.Command, opts *SyncOptions) error {
	run, err := svc.Run(ctx, syncer.TriggerCLI, opts.Tables)
	if err != nil {
		return err
	}

	format := report.FormatTable
	if opts.JSONOutput {
		format = report.FormatJSON
	}
	if err := report.RenderRun(cmd.OutOrStdout(), run, format); err != nil {
		return err
	}

	if run.Status != syncer.RunSucceeded {
		return errRunFailed
	}
	return nil
}

// Package cli provides the sheetsync command-line interface.
package cli

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/JonMunkholm/sheetsync/internal/core"
)

// Version information (set at build time).
var (
	Version   = "0.1.0"
	GitCommit = "unknown"
)

// errRunFailed reports a completed run with failed tables. The summary has
// already been printed, so Execute only sets the exit code.
var errRunFailed = errors.New("sync run failed")

// NewRootCmd creates and returns the root command.
func NewRootCmd() *cobra.Command {
	var envFile string

	rootCmd := &cobra.Command{
		Use:   "sheetsync",
		Short: "Sync spreadsheet sheets into a SQL database",
		Long: `sheetsync exports sheets of a spreadsheet as CSV, validates and normalizes
the rows, infers column types and replaces the matching database tables.

Configuration comes from environment variables, optionally loaded from a
.env file.`,
		Version: Version,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if cmd.Name() == "help" || cmd.Name() == "version" {
				return nil
			}
			return loadEnvFile(envFile, cmd.Flags().Changed("env-file"))
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.SetVersionTemplate("{{.Name}} {{.Version}}\n")
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "dotenv file to load before reading the environment")

	rootCmd.AddCommand(NewSyncCommand())
	rootCmd.AddCommand(NewServeCommand())
	rootCmd.AddCommand(NewTablesCommand())
	rootCmd.AddCommand(NewVersionCommand())

	return rootCmd
}

// loadEnvFile loads path into the environment, overwriting existing values.
// A missing default file is not an error; a missing explicit one is.
func loadEnvFile(path string, explicit bool) error {
	if err := godotenv.Overload(path); err != nil {
		if explicit {
			return fmt.Errorf("load env file: %w", err)
		}
		slog.Debug("no .env file found, using environment variables")
		return nil
	}
	slog.Debug("loaded env file", "path", path)
	return nil
}

// Execute runs the root command and returns the process exit code.
func Execute() int {
	return run(NewRootCmd(), os.Args[1:], os.Stderr)
}

func run(cmd *cobra.Command, args []string, stderr io.Writer) int {
	cmd.SetArgs(args)
	if err := cmd.Execute(); err != nil {
		if !errors.Is(err, errRunFailed) {
			_, _ = fmt.Fprintf(stderr, "Error: %v\n", err)
			if core.MapError(err).Code != core.DefaultErrorCode {
				_, _ = fmt.Fprintln(stderr, core.FormatUserError(err))
			}
		}
		return 1
	}
	return 0
}

package cli

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/JonMunkholm/sheetsync/internal/config"
	"github.com/JonMunkholm/sheetsync/internal/core"
	"github.com/JonMunkholm/sheetsync/internal/core/tables"
	"github.com/JonMunkholm/sheetsync/internal/report"
)

// NewTablesCommand creates the tables command.
func NewTablesCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "tables",
		Short: "List registered tables and their validation rules",
		RunE: func(cmd *cobra.Command, _ []string) error {
			report.RenderTables(cmd.OutOrStdout(), core.All(), sheetIDs())
			return nil
		},
	}
}

// sheetIDs uses SHEET_IDS when the full configuration loads and the
// built-in sheet ids otherwise, so the command works without credentials.
func sheetIDs() map[string]string {
	if os.Getenv("SPREADSHEET_ID") != "" {
		if cfg, err := config.Load(); err == nil {
			return cfg.Source.SheetIDs
		}
	}
	return map[string]string{
		"songs":    tables.SongsSheetID,
		"cards":    tables.CardsSheetID,
		"brooches": tables.BroochesSheetID,
	}
}

// Package report renders sync runs and table definitions for the CLI.
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/JonMunkholm/sheetsync/internal/core"
	"github.com/JonMunkholm/sheetsync/internal/syncer"
)

// Formats accepted by RenderRun.
const (
	FormatTable = "table"
	FormatJSON  = "json"
)

// RenderRun writes run as a summary table or as JSON.
func RenderRun(w io.Writer, run syncer.Run, format string) error {
	switch format {
	case FormatJSON:
		return renderJSON(w, run)
	case FormatTable, "":
		return renderRunTable(w, run)
	default:
		return fmt.Errorf("unknown output format %q", format)
	}
}

func renderJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func renderRunTable(w io.Writer, run syncer.Run) error {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"Table", "Status", "Deleted", "Inserted", "Skipped", "Duration", "Error"})

	var deleted, inserted int64
	skipped := 0
	for _, r := range run.Results {
		status := "ok"
		msg := ""
		if !r.Success {
			status = "FAILED"
			msg = fmt.Sprintf("[%s] %s: %s", r.Code, r.FailedState, r.Error)
		}
		t.AppendRow(table.Row{
			r.Table,
			status,
			r.Deleted,
			r.Inserted,
			r.Skipped,
			r.Duration.Round(time.Millisecond).String(),
			msg,
		})
		deleted += r.Deleted
		inserted += r.Inserted
		skipped += r.Skipped
	}
	t.AppendFooter(table.Row{"Total", "", deleted, inserted, skipped, "", ""})
	t.Render()

	if run.Finished() && run.FinishedAt != nil {
		elapsed := run.FinishedAt.Sub(run.StartedAt).Round(100 * time.Millisecond)
		_, _ = fmt.Fprintf(w, "run %s: %s in %s\n", run.ID, run.Status, elapsed)
	} else {
		_, _ = fmt.Fprintf(w, "run %s: %s\n", run.ID, run.Status)
	}
	if run.Error != "" {
		_, _ = fmt.Fprintf(w, "error: %s\n", run.Error)
	}
	return nil
}

// RenderTables lists table definitions with their sheet ids and rules.
func RenderTables(w io.Writer, defs []core.TableDefinition, sheets map[string]string) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"Key", "Label", "Sheet", "Header", "Rules"})

	for _, def := range defs {
		header := fmt.Sprintf("row %d", def.HeaderRow)
		if def.Multirow {
			header = fmt.Sprintf("rows %d-%d", def.HeaderRow-1, def.HeaderRow)
		}
		t.AppendRow(table.Row{
			def.Info.Key,
			def.Info.Label,
			sheets[def.Info.Key],
			header,
			describeRules(def),
		})
	}
	t.Render()
}

func describeRules(def core.TableDefinition) string {
	var rules []string
	for _, spec := range def.FieldSpecs {
		var parts []string
		if spec.Required {
			parts = append(parts, "required")
		}
		switch spec.Type {
		case core.FieldNumeric:
			parts = append(parts, "numeric")
		case core.FieldEnum:
			parts = append(parts, "one of "+strings.Join(spec.EnumValues, "/"))
		}
		if spec.NonNegative {
			parts = append(parts, ">= 0")
		}
		if len(parts) > 0 {
			rules = append(rules, spec.Name+" ("+strings.Join(parts, ", ")+")")
		}
	}
	if def.ZeroFill != nil {
		rules = append(rules, "zero-fill blanks")
	}
	return strings.Join(rules, "; ")
}

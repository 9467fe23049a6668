// Package sqlite implements store.Gateway on a local SQLite file.
//
// It mirrors the libsql gateway statement for statement, which makes it
// useful for dry runs and for inspecting a sync without a remote database.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"

	_ "modernc.org/sqlite" // SQLite driver (pure Go)

	"github.com/JonMunkholm/sheetsync/internal/core"
	"github.com/JonMunkholm/sheetsync/internal/store"
)

// Gateway loads datasets into a SQLite database.
type Gateway struct {
	db       *sql.DB
	timeouts store.Timeouts
	dialect  store.Dialect
	logger   *slog.Logger
}

var _ store.Gateway = (*Gateway)(nil)

// DSN converts a sqlite:// or file: URL to a driver data source name.
func DSN(rawURL string) (string, error) {
	switch {
	case strings.HasPrefix(rawURL, "sqlite://"):
		path := strings.TrimPrefix(rawURL, "sqlite://")
		if path == "" {
			return "", fmt.Errorf("invalid sqlite URL %q: missing path", rawURL)
		}
		return path, nil
	case strings.HasPrefix(rawURL, "file:"):
		return rawURL, nil
	default:
		return "", fmt.Errorf("invalid sqlite URL %q", rawURL)
	}
}

// Open opens the database at rawURL.
func Open(rawURL string, timeouts store.Timeouts, logger *slog.Logger) (*Gateway, error) {
	dsn, err := DSN(rawURL)
	if err != nil {
		return nil, core.E(core.ErrConnection, "sqlite", err)
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, core.E(core.ErrConnection, "sqlite", err)
	}
	// A single connection keeps :memory: databases and file locks consistent.
	db.SetMaxOpenConns(1)
	return New(db, timeouts, logger), nil
}

// New wraps an open database.
func New(db *sql.DB, timeouts store.Timeouts, logger *slog.Logger) *Gateway {
	if logger == nil {
		logger = slog.Default()
	}
	return &Gateway{
		db:       db,
		timeouts: timeouts.WithDefaults(),
		dialect:  store.SQLite,
		logger:   logger,
	}
}

// Ping checks the database is usable.
func (g *Gateway) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, g.timeouts.Ping)
	defer cancel()

	if err := g.db.PingContext(ctx); err != nil {
		return core.E(core.ErrConnection, "ping", err)
	}
	return nil
}

// RecreateTable drops table and creates it with columns.
func (g *Gateway) RecreateTable(ctx context.Context, table string, columns core.ColumnTypeMap) error {
	ctx, cancel := context.WithTimeout(ctx, g.timeouts.Query)
	defer cancel()

	op := "recreate " + table
	if _, err := g.db.ExecContext(ctx, g.dialect.DropTableSQL(table)); err != nil {
		return core.E(core.ErrSchema, op, fmt.Errorf("drop: %w", err))
	}
	if _, err := g.db.ExecContext(ctx, g.dialect.CreateTableSQL(table, columns)); err != nil {
		return core.E(core.ErrSchema, op, fmt.Errorf("create: %w", err))
	}
	g.logger.Info("table created", "table", table, "columns", len(columns))
	return nil
}

// ReplaceAll deletes every row of table and inserts ds, one transaction per batch.
func (g *Gateway) ReplaceAll(ctx context.Context, table string, ds *core.Dataset, batchSize int) (store.Counts, error) {
	var counts store.Counts
	op := "load " + table

	deleted, err := g.deleteAll(ctx, table)
	if err != nil {
		return counts, core.E(core.ErrTransaction, op, fmt.Errorf("delete: %w", err))
	}
	counts.Deleted = deleted

	statements := g.dialect.InsertStatements(table, ds)
	batches := store.Batches(len(statements), batchSize)
	for i, b := range batches {
		g.logger.Debug("executing batch", "table", table, "batch", i+1, "batches", len(batches))

		if err := g.execBatch(ctx, statements[b[0]:b[1]]); err != nil {
			return counts, core.E(core.ErrTransaction, op,
				fmt.Errorf("insert batch %d/%d: %w", i+1, len(batches), err))
		}
		counts.Inserted += int64(b[1] - b[0])
	}

	g.logger.Info("load completed", "table", table, "deleted", counts.Deleted, "inserted", counts.Inserted)
	return counts, nil
}

func (g *Gateway) deleteAll(ctx context.Context, table string) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, g.timeouts.Query)
	defer cancel()

	res, err := g.db.ExecContext(ctx, g.dialect.DeleteAllSQL(table))
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (g *Gateway) execBatch(ctx context.Context, statements []string) error {
	ctx, cancel := context.WithTimeout(ctx, g.timeouts.Batch)
	defer cancel()

	tx, err := g.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	for _, stmt := range statements {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// Close closes the database.
func (g *Gateway) Close() error {
	return g.db.Close()
}

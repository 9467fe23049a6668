// Package postgres implements store.Gateway on PostgreSQL using pgx.
package postgres

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/JonMunkholm/sheetsync/internal/core"
	"github.com/JonMunkholm/sheetsync/internal/store"
)

// Gateway loads datasets into a PostgreSQL database.
type Gateway struct {
	pool     *pgxpool.Pool
	timeouts store.Timeouts
	dialect  store.Dialect
	logger   *slog.Logger
}

var _ store.Gateway = (*Gateway)(nil)

// PoolOptions sizes the connection pool. Zero values keep pgx defaults.
type PoolOptions struct {
	MaxConns int32
	MinConns int32
}

// Open creates a pool for url. Connections are made lazily; call Ping to verify.
func Open(ctx context.Context, url string, pool PoolOptions, timeouts store.Timeouts, logger *slog.Logger) (*Gateway, error) {
	poolConfig, err := pgxpool.ParseConfig(url)
	if err != nil {
		return nil, core.E(core.ErrConnection, "postgres", fmt.Errorf("parse database URL: %w", err))
	}
	if pool.MaxConns > 0 {
		poolConfig.MaxConns = pool.MaxConns
	}
	if pool.MinConns > 0 {
		poolConfig.MinConns = pool.MinConns
	}

	p, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, core.E(core.ErrConnection, "postgres", err)
	}
	return New(p, timeouts, logger), nil
}

// New wraps an existing pool.
func New(pool *pgxpool.Pool, timeouts store.Timeouts, logger *slog.Logger) *Gateway {
	if logger == nil {
		logger = slog.Default()
	}
	return &Gateway{
		pool:     pool,
		timeouts: timeouts.WithDefaults(),
		dialect:  store.Postgres,
		logger:   logger,
	}
}

// Ping verifies a connection can be acquired and used.
func (g *Gateway) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, g.timeouts.Ping)
	defer cancel()

	if err := g.pool.Ping(ctx); err != nil {
		return core.E(core.ErrConnection, "ping", err)
	}
	return nil
}

// RecreateTable drops table and creates it with columns.
func (g *Gateway) RecreateTable(ctx context.Context, table string, columns core.ColumnTypeMap) error {
	ctx, cancel := context.WithTimeout(ctx, g.timeouts.Query)
	defer cancel()

	op := "recreate " + table
	if _, err := g.pool.Exec(ctx, g.dialect.DropTableSQL(table)); err != nil {
		return core.E(core.ErrSchema, op, fmt.Errorf("drop: %w", err))
	}
	if _, err := g.pool.Exec(ctx, g.dialect.CreateTableSQL(table, columns)); err != nil {
		return core.E(core.ErrSchema, op, fmt.Errorf("create: %w", err))
	}
	g.logger.Info("table created", "table", table, "columns", len(columns))
	return nil
}

// ReplaceAll deletes every row of table and inserts ds. Each batch is sent
// as one pgx.Batch inside its own transaction.
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

		written, err := g.execBatch(ctx, statements[b[0]:b[1]])
		if err != nil {
			return counts, core.E(core.ErrTransaction, op,
				fmt.Errorf("insert batch %d/%d: %w", i+1, len(batches), err))
		}
		counts.Inserted += written
	}

	g.logger.Info("load completed", "table", table, "deleted", counts.Deleted, "inserted", counts.Inserted)
	return counts, nil
}

func (g *Gateway) deleteAll(ctx context.Context, table string) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, g.timeouts.Query)
	defer cancel()

	tag, err := g.pool.Exec(ctx, g.dialect.DeleteAllSQL(table))
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func (g *Gateway) execBatch(ctx context.Context, statements []string) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, g.timeouts.Batch)
	defer cancel()

	tx, err := g.pool.Begin(ctx)
	if err != nil {
		return 0, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	batch := &pgx.Batch{}
	for _, stmt := range statements {
		batch.Queue(stmt)
	}

	br := tx.SendBatch(ctx, batch)
	var written int64
	for range statements {
		tag, err := br.Exec()
		if err != nil {
			_ = br.Close()
			return 0, err
		}
		written += tag.RowsAffected()
	}
	if err := br.Close(); err != nil {
		return 0, err
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, err
	}
	return written, nil
}

// Close closes the pool.
func (g *Gateway) Close() error {
	g.pool.Close()
	return nil
}

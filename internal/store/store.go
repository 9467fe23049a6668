// Package store loads datasets into a destination SQL database.
//
// A Gateway replaces a table's contents in two phases: the table is dropped
// and recreated with a freshly inferred schema, then every row is deleted and
// the dataset is inserted in batches. Each batch is atomic on its own; a
// failed batch stops the load and leaves earlier batches applied.
//
// Backends live in sub-packages (libsql, sqlite, postgres); package all picks
// one from a database URL.
package store

import (
	"context"
	"time"

	"github.com/JonMunkholm/sheetsync/internal/core"
)

// DefaultBatchSize is the number of rows per insert batch.
const DefaultBatchSize = 50

// Default per-call timeouts.
const (
	DefaultPingTimeout  = 10 * time.Second
	DefaultQueryTimeout = 30 * time.Second
	DefaultBatchTimeout = 60 * time.Second
)

// Gateway is a destination database.
//
// Errors are classified: Ping fails with core.ErrConnection, RecreateTable
// with core.ErrSchema and ReplaceAll with core.ErrTransaction.
type Gateway interface {
	Ping(ctx context.Context) error
	RecreateTable(ctx context.Context, table string, columns core.ColumnTypeMap) error
	ReplaceAll(ctx context.Context, table string, ds *core.Dataset, batchSize int) (Counts, error)
	Close() error
}

// Counts reports the effect of ReplaceAll.
type Counts struct {
	Deleted  int64 // Rows removed by the delete phase
	Inserted int64 // Rows written by successful batches
}

// Timeouts bounds each kind of database call.
type Timeouts struct {
	Ping  time.Duration
	Query time.Duration
	Batch time.Duration
}

// WithDefaults fills zero fields with the package defaults.
func (t Timeouts) WithDefaults() Timeouts {
	if t.Ping <= 0 {
		t.Ping = DefaultPingTimeout
	}
	if t.Query <= 0 {
		t.Query = DefaultQueryTimeout
	}
	if t.Batch <= 0 {
		t.Batch = DefaultBatchTimeout
	}
	return t
}

// Package metrics records per-table sync metrics behind a pluggable backend.
//
// The default backend is a no-op, so recording is always safe even when no
// metrics system is configured. Concrete backends live in sub-packages
// (prompush for a Prometheus Pushgateway).
package metrics

import (
	"sync"
	"time"
)

// Metric names.
const (
	TableSyncTotal   = "sheetsync_table_sync_total"
	TableSyncSeconds = "sheetsync_table_sync_duration_seconds"
	RowsTotal        = "sheetsync_rows_total"
)

// Labels are string key/value pairs attached to a metric.
type Labels map[string]string

// Backend is the minimal interface for metrics backends.
type Backend interface {
	// IncCounter increments a counter by delta.
	IncCounter(name string, delta float64, labels Labels)
	// ObserveHistogram records a duration-style value.
	ObserveHistogram(name string, value float64, labels Labels)
	// Flush pushes collected metrics, if the backend needs it.
	Flush() error
}

type nopBackend struct{}

func (nopBackend) IncCounter(string, float64, Labels)       {}
func (nopBackend) ObserveHistogram(string, float64, Labels) {}
func (nopBackend) Flush() error                             { return nil }

var (
	mu      sync.RWMutex
	backend Backend = nopBackend{}
)

// SetBackend installs a concrete backend. Passing nil restores the no-op backend.
func SetBackend(b Backend) {
	mu.Lock()
	defer mu.Unlock()
	if b == nil {
		b = nopBackend{}
	}
	backend = b
}

func current() Backend {
	mu.RLock()
	defer mu.RUnlock()
	return backend
}

// Flush delegates to the current backend.
func Flush() error {
	return current().Flush()
}

// TableOutcome is what one table sync reports.
type TableOutcome struct {
	Table    string
	Success  bool
	Deleted  int64
	Inserted int64
	Skipped  int
	Duration time.Duration
}

// RecordTable records one finished table sync.
func RecordTable(o TableOutcome) {
	b := current()

	status := "success"
	if !o.Success {
		status = "failure"
	}
	lbls := Labels{"table": o.Table, "status": status}
	b.IncCounter(TableSyncTotal, 1, lbls)
	b.ObserveHistogram(TableSyncSeconds, o.Duration.Seconds(), lbls)

	recordRows(b, o.Table, "deleted", o.Deleted)
	recordRows(b, o.Table, "inserted", o.Inserted)
	recordRows(b, o.Table, "skipped", int64(o.Skipped))
}

func recordRows(b Backend, table, kind string, delta int64) {
	if delta <= 0 {
		return
	}
	b.IncCounter(RowsTotal, float64(delta), Labels{"table": table, "kind": kind})
}

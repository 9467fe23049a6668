// Package prompush implements a Prometheus Pushgateway backend for the
// metrics package.
//
// A one-shot sync has no process to scrape, so collected metrics are pushed
// to a Pushgateway on Flush instead of being exposed over HTTP.
package prompush

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"

	"github.com/JonMunkholm/sheetsync/internal/metrics"
)

// Backend is a Prometheus Pushgateway metrics backend.
type Backend struct {
	gatewayURL string // e.g. http://pushgateway:9091
	jobName    string // Pushgateway "job" group
	reg        *prometheus.Registry

	tableCounter  *prometheus.CounterVec   // sheetsync_table_sync_total
	tableDuration *prometheus.HistogramVec // sheetsync_table_sync_duration_seconds
	rowCounter    *prometheus.CounterVec   // sheetsync_rows_total
}

var _ metrics.Backend = (*Backend)(nil)

// NewBackend constructs a Pushgateway backend.
// An empty jobName defaults to "sheetsync".
func NewBackend(jobName, gatewayURL string) (*Backend, error) {
	if gatewayURL == "" {
		return nil, fmt.Errorf("prompush: gateway URL is required")
	}
	if jobName == "" {
		jobName = "sheetsync"
	}

	reg := prometheus.NewRegistry()

	tableCounter := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: metrics.TableSyncTotal,
			Help: "Table syncs, partitioned by table and status.",
		},
		[]string{"table", "status"},
	)
	tableDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    metrics.TableSyncSeconds,
			Help:    "Duration of table syncs in seconds.",
			Buckets: []float64{1, 5, 15, 30, 60, 120, 300, 600},
		},
		[]string{"table", "status"},
	)
	rowCounter := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: metrics.RowsTotal,
			Help: "Rows per table and kind (deleted, inserted, skipped).",
		},
		[]string{"table", "kind"},
	)

	for name, c := range map[string]prometheus.Collector{
		"table counter":  tableCounter,
		"table duration": tableDuration,
		"row counter":    rowCounter,
	} {
		if err := reg.Register(c); err != nil {
			return nil, fmt.Errorf("prompush: register %s: %w", name, err)
		}
	}

	return &Backend{
		gatewayURL:    gatewayURL,
		jobName:       jobName,
		reg:           reg,
		tableCounter:  tableCounter,
		tableDuration: tableDuration,
		rowCounter:    rowCounter,
	}, nil
}

func (b *Backend) IncCounter(name string, delta float64, labels metrics.Labels) {
	switch name {
	case metrics.TableSyncTotal:
		b.tableCounter.WithLabelValues(labels["table"], labels["status"]).Add(delta)
	case metrics.RowsTotal:
		b.rowCounter.WithLabelValues(labels["table"], labels["kind"]).Add(delta)
	}
}

func (b *Backend) ObserveHistogram(name string, value float64, labels metrics.Labels) {
	if name != metrics.TableSyncSeconds {
		return
	}
	b.tableDuration.WithLabelValues(labels["table"], labels["status"]).Observe(value)
}

// Flush pushes the current registry to the Pushgateway, replacing the job's group.
func (b *Backend) Flush() error {
	return push.New(b.gatewayURL, b.jobName).
		Gatherer(b.reg).
		Push()
}

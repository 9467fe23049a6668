package prompush

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JonMunkholm/sheetsync/internal/metrics"
)

func TestNewBackend(t *testing.T) {
	_, err := NewBackend("job", "")
	assert.Error(t, err)

	b, err := NewBackend("", "http://pushgateway:9091")
	require.NoError(t, err)
	assert.Equal(t, "sheetsync", b.jobName)
}

func TestBackend_Counters(t *testing.T) {
	b, err := NewBackend("sheetsync", "http://pushgateway:9091")
	require.NoError(t, err)

	b.IncCounter(metrics.TableSyncTotal, 1, metrics.Labels{"table": "songs", "status": "success"})
	b.IncCounter(metrics.RowsTotal, 120, metrics.Labels{"table": "songs", "kind": "inserted"})
	b.IncCounter("unknown_metric", 1, nil)
	b.ObserveHistogram(metrics.TableSyncSeconds, 3.5, metrics.Labels{"table": "songs", "status": "success"})

	assert.Equal(t, 1.0, testutil.ToFloat64(b.tableCounter.WithLabelValues("songs", "success")))
	assert.Equal(t, 120.0, testutil.ToFloat64(b.rowCounter.WithLabelValues("songs", "inserted")))
	assert.Equal(t, 1, testutil.CollectAndCount(b.tableDuration))
}

func TestBackend_FlushPushes(t *testing.T) {
	var gotMethod, gotPath, gotBody string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		gotPath = r.URL.Path
		body, _ := io.ReadAll(r.Body)
		gotBody = string(body)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	b, err := NewBackend("sheetsync", srv.URL)
	require.NoError(t, err)
	b.IncCounter(metrics.TableSyncTotal, 1, metrics.Labels{"table": "cards", "status": "failure"})

	require.NoError(t, b.Flush())
	assert.Equal(t, http.MethodPut, gotMethod)
	assert.Equal(t, "/metrics/job/sheetsync", gotPath)
	assert.Contains(t, gotBody, metrics.TableSyncTotal)
}

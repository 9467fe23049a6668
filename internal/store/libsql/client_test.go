package libsql

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JonMunkholm/sheetsync/internal/core"
)

// fakeServer records statement requests and answers them like libsql.
type fakeServer struct {
	mu       sync.Mutex
	requests [][]string
	auth     []string

	// failOn returns an error message for a statement, or "".
	failOn func(stmt string) string
	// deleted is reported as rows_written for DELETE statements.
	deleted int64
	// maxResults, when positive, truncates the response to that many results.
	maxResults int
}

func (f *fakeServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Statements []string `json:"statements"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	f.mu.Lock()
	f.requests = append(f.requests, req.Statements)
	f.auth = append(f.auth, r.Header.Get("Authorization"))
	f.mu.Unlock()

	out := make([]map[string]any, len(req.Statements))
	for i, stmt := range req.Statements {
		if f.failOn != nil {
			if msg := f.failOn(stmt); msg != "" {
				out[i] = map[string]any{"error": map[string]any{"message": msg}}
				continue
			}
		}
		written := int64(0)
		switch {
		case strings.HasPrefix(stmt, "INSERT"):
			written = 1
		case strings.HasPrefix(stmt, "DELETE"):
			written = f.deleted
		}
		out[i] = map[string]any{"results": map[string]any{"columns": []string{}, "rows": [][]any{}, "rows_written": written}}
	}
	if f.maxResults > 0 && len(out) > f.maxResults {
		out = out[:f.maxResults]
	}
	_ = json.NewEncoder(w).Encode(out)
}

func newTestClient(t *testing.T, fake http.Handler) *Client {
	t.Helper()
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)

	c, err := New(Options{URL: srv.URL, AuthToken: "secret", HTTPClient: srv.Client()})
	require.NoError(t, err)
	return c
}

func dataset(n int) *core.Dataset {
	ds := core.NewDataset([]string{"ID", "name"})
	for i := 0; i < n; i++ {
		ds.Rows = append(ds.Rows, []core.Value{core.Int(int64(i + 1)), core.Text(fmt.Sprintf("row %d", i+1))})
	}
	return ds
}

func TestEndpoint(t *testing.T) {
	tests := []struct {
		input   string
		want    string
		wantErr bool
	}{
		{"libsql://db-org.turso.io", "https://db-org.turso.io", false},
		{"https://db-org.turso.io", "https://db-org.turso.io", false},
		{"http://127.0.0.1:8080", "http://127.0.0.1:8080", false},
		{"postgres://localhost/db", "", true},
		{"db-org.turso.io", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := Endpoint(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestPing(t *testing.T) {
	fake := &fakeServer{}
	c := newTestClient(t, fake)

	require.NoError(t, c.Ping(context.Background()))
	assert.Equal(t, [][]string{{"SELECT 1"}}, fake.requests)
	assert.Equal(t, []string{"Bearer secret"}, fake.auth)
}

func TestPing_Unauthorized(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
	}))

	err := c.Ping(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, core.ErrConnection)
	assert.Contains(t, err.Error(), "401")
}

func TestRecreateTable(t *testing.T) {
	fake := &fakeServer{}
	c := newTestClient(t, fake)

	err := c.RecreateTable(context.Background(), "cards", core.ColumnTypeMap{
		{Name: "ID", Type: core.TypeInteger},
		{Name: "rarity", Type: core.TypeText},
	})
	require.NoError(t, err)

	assert.Equal(t, [][]string{
		{"DROP TABLE IF EXISTS `cards`"},
		{"CREATE TABLE `cards` (`ID` INTEGER PRIMARY KEY, `rarity` TEXT)"},
	}, fake.requests)
}

func TestRecreateTable_Failure(t *testing.T) {
	fake := &fakeServer{failOn: func(stmt string) string {
		if strings.HasPrefix(stmt, "CREATE") {
			return "near \"(\": syntax error"
		}
		return ""
	}}
	c := newTestClient(t, fake)

	err := c.RecreateTable(context.Background(), "cards", core.ColumnTypeMap{{Name: "ID", Type: core.TypeInteger}})
	require.Error(t, err)
	assert.ErrorIs(t, err, core.ErrSchema)
	assert.Contains(t, err.Error(), "syntax error")
}

func TestReplaceAll_Batches(t *testing.T) {
	fake := &fakeServer{deleted: 7}
	c := newTestClient(t, fake)

	counts, err := c.ReplaceAll(context.Background(), "songs", dataset(120), 50)
	require.NoError(t, err)

	assert.Equal(t, int64(7), counts.Deleted)
	assert.Equal(t, int64(120), counts.Inserted)

	require.Len(t, fake.requests, 4)
	assert.Equal(t, []string{"DELETE FROM `songs`"}, fake.requests[0])
	assert.Len(t, fake.requests[1], 50)
	assert.Len(t, fake.requests[2], 50)
	assert.Len(t, fake.requests[3], 20)
	assert.Equal(t, "INSERT INTO `songs` (`ID`, `name`) VALUES (1, 'row 1')", fake.requests[1][0])
}

func TestReplaceAll_StopsAtFailedBatch(t *testing.T) {
	fake := &fakeServer{failOn: func(stmt string) string {
		if strings.Contains(stmt, "(60, ") {
			return "UNIQUE constraint failed: songs.ID"
		}
		return ""
	}}
	c := newTestClient(t, fake)

	counts, err := c.ReplaceAll(context.Background(), "songs", dataset(120), 50)
	require.Error(t, err)
	assert.ErrorIs(t, err, core.ErrTransaction)
	assert.Contains(t, err.Error(), "batch 2/3")

	// delete + batch 1 + failed batch 2; batch 3 never sent
	assert.Len(t, fake.requests, 3)
	assert.Equal(t, int64(50), counts.Inserted, "only completed batches count")
}

func TestReplaceAll_ShortResponseFailsBatch(t *testing.T) {
	fake := &fakeServer{maxResults: 30}
	c := newTestClient(t, fake)

	counts, err := c.ReplaceAll(context.Background(), "songs", dataset(20), 50)
	require.NoError(t, err, "a batch within the limit is complete")
	assert.Equal(t, int64(20), counts.Inserted)

	counts, err = c.ReplaceAll(context.Background(), "songs", dataset(80), 50)
	require.Error(t, err)
	assert.ErrorIs(t, err, core.ErrTransaction)
	assert.Contains(t, err.Error(), "got 30 results for 50 statements")
	assert.Equal(t, int64(0), counts.Inserted)
}

func TestReplaceAll_DeleteFailure(t *testing.T) {
	fake := &fakeServer{failOn: func(stmt string) string {
		if strings.HasPrefix(stmt, "DELETE") {
			return "no such table: songs"
		}
		return ""
	}}
	c := newTestClient(t, fake)

	_, err := c.ReplaceAll(context.Background(), "songs", dataset(10), 50)
	require.Error(t, err)
	assert.ErrorIs(t, err, core.ErrTransaction)
	assert.Len(t, fake.requests, 1)
}

func TestReplaceAll_Empty(t *testing.T) {
	fake := &fakeServer{}
	c := newTestClient(t, fake)

	counts, err := c.ReplaceAll(context.Background(), "songs", dataset(0), 50)
	require.NoError(t, err)
	assert.Equal(t, int64(0), counts.Inserted)
	assert.Len(t, fake.requests, 1)
}

func TestErrorText(t *testing.T) {
	assert.Equal(t, "boom", errorText(json.RawMessage(`{"message":"boom"}`)))
	assert.Equal(t, "boom", errorText(json.RawMessage(`"boom"`)))
	assert.Equal(t, "", errorText(json.RawMessage(`null`)))
	assert.Equal(t, "", errorText(nil))
}

package cli

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JonMunkholm/sheetsync/internal/syncer"
)

// exportServer serves CSV bodies keyed by gid; unknown gids get 404.
func exportServer(t *testing.T, sheets map[string]string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, ok := sheets[r.URL.Query().Get("gid")]
		if !ok {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "text/csv")
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func setSyncEnv(t *testing.T, exportBase, dbPath string) {
	t.Helper()
	t.Setenv("SPREADSHEET_ID", "doc-1")
	t.Setenv("SOURCE_EXPORT_BASE", exportBase)
	t.Setenv("SHEET_IDS", "cards=11,brooches=22")
	t.Setenv("SYNC_TABLES", "cards,brooches")
	t.Setenv("TURSO_DATABASE_URL", "sqlite://"+dbPath)
	t.Setenv("TURSO_AUTH_TOKEN", "")
	t.Setenv("FETCH_RETRY_DELAY", "10ms")
	t.Setenv("LOG_LEVEL", "error")
	t.Setenv("METRICS_PUSHGATEWAY_URL", "")
}

func execute(t *testing.T, args ...string) (int, string, string) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	cmd := NewRootCmd()
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetContext(context.Background())
	code := run(cmd, args, &stderr)
	return code, stdout.String(), stderr.String()
}

func TestSyncCommand_EndToEnd(t *testing.T) {
	srv := exportServer(t, map[string]string{
		"11": "ID,cardID,rarity\n1,c1,UR\n2,c2,XR\n3,c3,SR\n",
		"22": "ID,cardID,スコア,\n1,c1,1.5,\n2,c3,2,\n",
	})
	dbPath := filepath.Join(t.TempDir(), "sheetsync.db")
	setSyncEnv(t, srv.URL, dbPath)

	code, stdout, stderr := execute(t, "sync", "--json", "--env-file", filepath.Join(t.TempDir(), "none.env"))
	require.Equal(t, 1, code, "explicit missing env file is an error")
	assert.Contains(t, stderr, "load env file")

	code, stdout, stderr = execute(t, "sync", "--json")
	require.Equal(t, 0, code, stderr)

	var run syncer.Run
	require.NoError(t, json.Unmarshal([]byte(stdout), &run), stdout)
	assert.Equal(t, syncer.RunSucceeded, run.Status)
	require.Len(t, run.Results, 2)
	assert.Equal(t, "cards", run.Results[0].Table)
	assert.Equal(t, int64(2), run.Results[0].Inserted)
	assert.Equal(t, 1, run.Results[0].Skipped)
	assert.Equal(t, int64(2), run.Results[1].Inserted)

	db, err := sql.Open("sqlite", dbPath)
	require.NoError(t, err)
	defer db.Close()

	var n int
	require.NoError(t, db.QueryRow("SELECT COUNT(*) FROM `cards`").Scan(&n))
	assert.Equal(t, 2, n)

	var score float64
	require.NoError(t, db.QueryRow("SELECT `スコア` FROM `brooches` WHERE `ID` = '1'").Scan(&score))
	assert.Equal(t, 1.5, score)

	// A second run replaces rather than appends.
	code, stdout, _ = execute(t, "sync", "--json", "--tables", "cards")
	require.Equal(t, 0, code)
	require.NoError(t, json.Unmarshal([]byte(stdout), &run))
	require.Len(t, run.Results, 1)
	assert.Equal(t, int64(0), run.Results[0].Deleted, "the table is recreated before loading")
	require.NoError(t, db.QueryRow("SELECT COUNT(*) FROM `cards`").Scan(&n))
	assert.Equal(t, 2, n)
}

func TestSyncCommand_FailedTableExitCode(t *testing.T) {
	srv := exportServer(t, map[string]string{
		"22": "ID,cardID\n1,c1\n",
	})
	setSyncEnv(t, srv.URL, filepath.Join(t.TempDir(), "sheetsync.db"))

	code, stdout, stderr := execute(t, "sync")
	assert.Equal(t, 1, code)
	assert.Contains(t, stdout, "FETCH001")
	assert.Contains(t, stdout, "run ")
	assert.NotContains(t, stderr, "Error:", "the summary already reports the failure")
}

func TestSyncCommand_UnknownTable(t *testing.T) {
	srv := exportServer(t, nil)
	setSyncEnv(t, srv.URL, filepath.Join(t.TempDir(), "sheetsync.db"))

	code, _, stderr := execute(t, "sync", "--tables", "gems")
	assert.Equal(t, 1, code)
	assert.Contains(t, stderr, `unknown table "gems"`)
	assert.Contains(t, stderr, "Unknown table type (Code: CFG001)")
}

func TestSyncCommand_InvalidConfig(t *testing.T) {
	t.Setenv("SPREADSHEET_ID", "")
	t.Setenv("TURSO_DATABASE_URL", "")
	t.Setenv("DATABASE_URL", "")

	code, _, stderr := execute(t, "sync")
	assert.Equal(t, 1, code)
	assert.Contains(t, stderr, "SPREADSHEET_ID")
}

func TestTablesCommand(t *testing.T) {
	t.Setenv("SPREADSHEET_ID", "")

	code, stdout, _ := execute(t, "tables")
	require.Equal(t, 0, code)
	assert.Contains(t, stdout, "songs")
	assert.Contains(t, stdout, "1087762308")
	assert.Contains(t, stdout, "rarity (one of UR/SSR/SR/R/N)")
}

func TestVersionCommand(t *testing.T) {
	code, stdout, _ := execute(t, "version")
	require.Equal(t, 0, code)
	assert.Contains(t, stdout, "sheetsync v"+Version)
}

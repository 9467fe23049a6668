// Package libsql implements store.Gateway over the libsql (Turso) HTTP API.
//
// The API is stateless: every call is one POST of {"statements": [...]} and
// the server answers with one result object per statement. Statements of a
// single request run together, so each insert batch is atomic while the
// load as a whole is not.
package libsql

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/JonMunkholm/sheetsync/internal/core"
	"github.com/JonMunkholm/sheetsync/internal/store"
)

// Options configures a Client.
type Options struct {
	URL       string // libsql://, https:// or http:// (local sqld)
	AuthToken string
	Timeouts  store.Timeouts

	// HTTPClient is optional; tests inject the httptest client.
	HTTPClient *http.Client
	Logger     *slog.Logger
}

// Client talks to one libsql database.
type Client struct {
	endpoint string
	token    string
	timeouts store.Timeouts
	http     *http.Client
	dialect  store.Dialect
	logger   *slog.Logger
}

var _ store.Gateway = (*Client)(nil)

// Endpoint converts a database URL to the HTTP endpoint statements are posted to.
func Endpoint(raw string) (string, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("invalid database URL: %w", err)
	}
	if u.Host == "" {
		return "", fmt.Errorf("invalid database URL %q: missing host", raw)
	}
	switch u.Scheme {
	case "libsql":
		u.Scheme = "https"
		return u.String(), nil
	case "https", "http":
		return raw, nil
	default:
		return "", fmt.Errorf("invalid database URL format: unsupported scheme %q", u.Scheme)
	}
}

// New creates a Client. No request is made until Ping or a load.
func New(opts Options) (*Client, error) {
	endpoint, err := Endpoint(opts.URL)
	if err != nil {
		return nil, core.E(core.ErrConnection, "libsql", err)
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = &http.Client{}
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	return &Client{
		endpoint: endpoint,
		token:    opts.AuthToken,
		timeouts: opts.Timeouts.WithDefaults(),
		http:     opts.HTTPClient,
		dialect:  store.SQLite,
		logger:   opts.Logger,
	}, nil
}

// Result is the outcome of one statement.
type Result struct {
	RowsWritten int64
	Error       string // Non-empty when the statement failed
}

type request struct {
	Statements []string `json:"statements"`
}

type response struct {
	Results *struct {
		RowsWritten int64 `json:"rows_written"`
	} `json:"results"`
	Error json.RawMessage `json:"error"`
}

// errorText extracts a message from either {"message": "..."} or a bare string.
func errorText(raw json.RawMessage) string {
	if len(raw) == 0 || string(raw) == "null" {
		return ""
	}
	var obj struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(raw, &obj); err == nil && obj.Message != "" {
		return obj.Message
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return string(raw)
}

// Execute posts statements in one request and returns one Result per
// statement. The error is non-nil only for transport, status or decoding
// failures; statement failures are reported in the results.
func (c *Client) Execute(ctx context.Context, timeout time.Duration, statements []string) ([]Result, error) {
	body, err := json.Marshal(request{Statements: statements})
	if err != nil {
		return nil, fmt.Errorf("encode statements: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("HTTP %d: %s", resp.StatusCode, strings.TrimSpace(string(snippet)))
	}

	var decoded []response
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	results := make([]Result, len(decoded))
	for i, r := range decoded {
		if msg := errorText(r.Error); msg != "" {
			results[i].Error = msg
			continue
		}
		if r.Results != nil {
			results[i].RowsWritten = r.Results.RowsWritten
		}
	}
	return results, nil
}

// exec runs statements and turns the first statement failure, or a result
// count that does not match the statements, into an error.
func (c *Client) exec(ctx context.Context, timeout time.Duration, statements ...string) (int64, error) {
	results, err := c.Execute(ctx, timeout, statements)
	if err != nil {
		return 0, err
	}
	if len(results) != len(statements) {
		return 0, fmt.Errorf("got %d results for %d statements", len(results), len(statements))
	}
	var written int64
	for i, r := range results {
		if r.Error != "" {
			return written, fmt.Errorf("statement %d: %s", i+1, r.Error)
		}
		written += r.RowsWritten
	}
	return written, nil
}

// Ping runs SELECT 1.
func (c *Client) Ping(ctx context.Context) error {
	c.logger.Info("connecting to database", "endpoint", redact(c.endpoint))
	if _, err := c.exec(ctx, c.timeouts.Ping, "SELECT 1"); err != nil {
		c.logger.Error("database ping failed", "error", err)
		return core.E(core.ErrConnection, "ping", err)
	}
	c.logger.Info("database reachable")
	return nil
}

// RecreateTable drops table and creates it with columns, one request each.
func (c *Client) RecreateTable(ctx context.Context, table string, columns core.ColumnTypeMap) error {
	op := "recreate " + table
	if _, err := c.exec(ctx, c.timeouts.Query, c.dialect.DropTableSQL(table)); err != nil {
		return core.E(core.ErrSchema, op, fmt.Errorf("drop: %w", err))
	}
	c.logger.Info("dropped table if it existed", "table", table)

	if _, err := c.exec(ctx, c.timeouts.Query, c.dialect.CreateTableSQL(table, columns)); err != nil {
		return core.E(core.ErrSchema, op, fmt.Errorf("create: %w", err))
	}
	c.logger.Info("table created", "table", table, "columns", len(columns))
	return nil
}

// ReplaceAll deletes every row of table and inserts ds in batches.
// The first failure stops the load; rows of earlier batches stay written.
func (c *Client) ReplaceAll(ctx context.Context, table string, ds *core.Dataset, batchSize int) (store.Counts, error) {
	var counts store.Counts
	op := "load " + table

	deleted, err := c.exec(ctx, c.timeouts.Query, c.dialect.DeleteAllSQL(table))
	if err != nil {
		c.logger.Error("delete failed", "table", table, "error", err)
		return counts, core.E(core.ErrTransaction, op, fmt.Errorf("delete: %w", err))
	}
	counts.Deleted = deleted
	c.logger.Info("deleted rows", "table", table, "deleted", deleted)

	statements := c.dialect.InsertStatements(table, ds)
	batches := store.Batches(len(statements), batchSize)
	for i, b := range batches {
		c.logger.Info("executing batch",
			"table", table,
			"batch", i+1,
			"batches", len(batches),
			"records", fmt.Sprintf("%d-%d", b[0]+1, b[1]),
		)

		written, err := c.exec(ctx, c.timeouts.Batch, statements[b[0]:b[1]]...)
		if err != nil {
			c.logger.Error("insert batch failed", "table", table, "batch", i+1, "error", err)
			return counts, core.E(core.ErrTransaction, op,
				fmt.Errorf("insert batch %d/%d: %w", i+1, len(batches), err))
		}
		counts.Inserted += written
	}

	c.logger.Info("load completed", "table", table, "deleted", counts.Deleted, "inserted", counts.Inserted)
	return counts, nil
}

// Close releases idle connections.
func (c *Client) Close() error {
	c.http.CloseIdleConnections()
	return nil
}

// redact drops credentials and query from an endpoint for logging.
func redact(endpoint string) string {
	u, err := url.Parse(endpoint)
	if err != nil {
		return "<invalid>"
	}
	return u.Scheme + "://" + u.Host
}

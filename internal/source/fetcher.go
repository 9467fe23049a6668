// Package source downloads sheet exports and parses them into datasets.
//
// A Fetcher issues one GET per attempt against the spreadsheet's CSV export
// endpoint. Only timeouts are retried, with a constant delay between
// attempts; HTTP error statuses and other transport failures fail at once.
package source

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"

	"github.com/JonMunkholm/sheetsync/internal/core"
)

// DefaultBaseURL is the Google Sheets document endpoint.
const DefaultBaseURL = "https://docs.google.com/spreadsheets/d"

// Defaults applied to zero Options fields.
const (
	DefaultMaxRetries = 3
	DefaultRetryDelay = time.Second
	DefaultTimeout    = 30 * time.Second
)

// Options configures a Fetcher.
//
// Zero values are given defaults:
//   - BaseURL:    DefaultBaseURL
//   - MaxRetries: 3 attempts in total
//   - RetryDelay: 1s
type Options struct {
	BaseURL    string
	MaxRetries int
	RetryDelay time.Duration

	// HTTPClient is optional; tests inject one with a custom Transport.
	HTTPClient *http.Client
	Logger     *slog.Logger
}

// Request describes one sheet to fetch.
type Request struct {
	SourceID  string        // Spreadsheet id
	SheetID   string        // Sheet gid
	Timeout   time.Duration // Per-attempt timeout, DefaultTimeout when zero
	HeaderRow int           // Zero-based line holding column names
	Multirow  bool          // Combine line 0 categories with the header row
}

// Fetcher downloads CSV exports.
type Fetcher struct {
	baseURL    string
	maxRetries int
	retryDelay time.Duration
	client     *http.Client
	logger     *slog.Logger
}

// New creates a Fetcher, applying defaults for zero Options fields.
func New(opts Options) *Fetcher {
	if opts.BaseURL == "" {
		opts.BaseURL = DefaultBaseURL
	}
	if opts.MaxRetries <= 0 {
		opts.MaxRetries = DefaultMaxRetries
	}
	if opts.RetryDelay < 0 {
		opts.RetryDelay = 0
	} else if opts.RetryDelay == 0 {
		opts.RetryDelay = DefaultRetryDelay
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = &http.Client{}
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	return &Fetcher{
		baseURL:    strings.TrimRight(opts.BaseURL, "/"),
		maxRetries: opts.MaxRetries,
		retryDelay: opts.RetryDelay,
		client:     opts.HTTPClient,
		logger:     opts.Logger,
	}
}

// ExportURL returns the CSV export URL of one sheet.
func (f *Fetcher) ExportURL(sourceID, sheetID string) string {
	q := url.Values{}
	q.Set("format", "csv")
	q.Set("gid", sheetID)
	return fmt.Sprintf("%s/%s/export?%s", f.baseURL, url.PathEscape(sourceID), q.Encode())
}

// attemptTimeout marks a retryable attempt failure.
type attemptTimeout struct {
	err error
}

func (e *attemptTimeout) Error() string { return e.err.Error() }
func (e *attemptTimeout) Unwrap() error { return e.err }

// Fetch downloads and parses one sheet.
//
// Errors are classified as core.ErrFetch (download) or core.ErrParse (body).
// A fetch that timed out on every attempt also matches core.ErrAttemptsExhausted.
func (f *Fetcher) Fetch(ctx context.Context, req Request) (*core.Dataset, error) {
	op := "fetch sheet " + req.SheetID
	exportURL := f.ExportURL(req.SourceID, req.SheetID)
	timeout := req.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	var body string
	attempt := 0
	operation := func() error {
		attempt++
		f.logger.Info("fetching sheet export",
			"sheet_id", req.SheetID,
			"attempt", attempt,
			"max_attempts", f.maxRetries,
		)

		text, err := f.download(ctx, exportURL, timeout)
		if err == nil {
			body = text
			return nil
		}

		var te *attemptTimeout
		if errors.As(err, &te) {
			f.logger.Warn("sheet export timed out",
				"sheet_id", req.SheetID,
				"attempt", attempt,
				"timeout", timeout,
			)
			return err
		}
		return backoff.Permanent(err)
	}

	policy := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewConstantBackOff(f.retryDelay), uint64(f.maxRetries-1)),
		ctx,
	)

	if err := backoff.Retry(operation, policy); err != nil {
		var te *attemptTimeout
		if errors.As(err, &te) {
			err = core.E(core.ErrFetch, op,
				fmt.Errorf("%w after %d attempts: %w", core.ErrAttemptsExhausted, attempt, te.err))
		} else if core.KindOf(err) == nil {
			err = core.E(core.ErrFetch, op, err)
		}
		f.logger.Error("sheet fetch failed", "sheet_id", req.SheetID, "error", err)
		return nil, err
	}

	ds, renamed, err := ParseCSV(strings.NewReader(body), req.HeaderRow, req.Multirow)
	if err != nil {
		f.logger.Error("sheet export could not be parsed", "sheet_id", req.SheetID, "error", err)
		return nil, err
	}
	if len(renamed) > 0 {
		f.logger.Warn("duplicate column names renamed", "sheet_id", req.SheetID, "renamed", renamed)
	}

	f.logger.Info("sheet fetched",
		"sheet_id", req.SheetID,
		"rows", ds.Len(),
		"columns", len(ds.Columns),
	)
	return ds, nil
}

// download performs one attempt and returns the decoded body.
func (f *Fetcher) download(ctx context.Context, exportURL string, timeout time.Duration) (string, error) {
	attemptCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(attemptCtx, http.MethodGet, exportURL, nil)
	if err != nil {
		return "", core.E(core.ErrFetch, "build request", err)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		if isTimeout(ctx, attemptCtx, err) {
			return "", &attemptTimeout{err: err}
		}
		return "", core.E(core.ErrFetch, "get export", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return "", core.Ef(core.ErrFetch, "get export", "unexpected status %d", resp.StatusCode)
	}

	// UTF8BOM strips a leading byte order mark and replaces invalid bytes.
	raw, err := io.ReadAll(transform.NewReader(resp.Body, unicode.UTF8BOM.NewDecoder()))
	if err != nil {
		if isTimeout(ctx, attemptCtx, err) {
			return "", &attemptTimeout{err: err}
		}
		return "", core.E(core.ErrFetch, "read export", err)
	}
	return string(raw), nil
}

// isTimeout reports whether err came from the attempt deadline rather than
// the caller cancelling ctx.
func isTimeout(ctx, attemptCtx context.Context, err error) bool {
	if ctx.Err() != nil {
		return false
	}
	if errors.Is(attemptCtx.Err(), context.DeadlineExceeded) {
		return true
	}
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}

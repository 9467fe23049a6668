package source

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JonMunkholm/sheetsync/internal/core"
)

func newTestFetcher(srv *httptest.Server) *Fetcher {
	return New(Options{
		BaseURL:    srv.URL,
		MaxRetries: 3,
		RetryDelay: time.Millisecond,
		HTTPClient: srv.Client(),
	})
}

func TestExportURL(t *testing.T) {
	f := New(Options{})
	assert.Equal(t,
		"https://docs.google.com/spreadsheets/d/abc123/export?format=csv&gid=1083871743",
		f.ExportURL("abc123", "1083871743"),
	)
}

func TestFetch_TwoRowHeader(t *testing.T) {
	var gotPath, gotQuery string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotQuery = r.URL.RawQuery
		_, _ = w.Write([]byte(",Shout,\nID,×1白,×1色\n1,2,\n"))
	}))
	defer srv.Close()

	ds, err := newTestFetcher(srv).Fetch(context.Background(), Request{
		SourceID:  "doc",
		SheetID:   "42",
		HeaderRow: 1,
		Multirow:  true,
	})
	require.NoError(t, err)

	assert.Equal(t, "/doc/export", gotPath)
	assert.Equal(t, "format=csv&gid=42", gotQuery)
	assert.Equal(t, []string{"ID", "Shout_×1白", "Shout_×1色"}, ds.Columns)
	require.Equal(t, 1, ds.Len())
	assert.Equal(t, core.Int(1), ds.Rows[0][0])
	assert.Equal(t, core.Int(2), ds.Rows[0][1])
	assert.True(t, ds.Rows[0][2].IsNull())
}

func TestFetch_StripsBOM(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("\xEF\xBB\xBFID,name\n1,a\n"))
	}))
	defer srv.Close()

	ds, err := newTestFetcher(srv).Fetch(context.Background(), Request{SourceID: "doc", SheetID: "1"})
	require.NoError(t, err)
	assert.Equal(t, []string{"ID", "name"}, ds.Columns)
}

func TestFetch_ReplacesInvalidUTF8(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("ID,name\n1,a\xffb\n"))
	}))
	defer srv.Close()

	ds, err := newTestFetcher(srv).Fetch(context.Background(), Request{SourceID: "doc", SheetID: "1"})
	require.NoError(t, err)
	name, ok := ds.Rows[0][1].Str()
	require.True(t, ok)
	assert.Equal(t, "a\uFFFDb", name)
}

func TestFetch_StatusErrorIsNotRetried(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		http.NotFound(w, r)
	}))
	defer srv.Close()

	_, err := newTestFetcher(srv).Fetch(context.Background(), Request{SourceID: "doc", SheetID: "1"})
	require.Error(t, err)
	assert.ErrorIs(t, err, core.ErrFetch)
	assert.NotErrorIs(t, err, core.ErrAttemptsExhausted)
	assert.Contains(t, err.Error(), "404")
	assert.Equal(t, int32(1), atomic.LoadInt32(&hits))
}

func TestFetch_TimeoutRetriedUntilExhausted(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer srv.Close()

	_, err := newTestFetcher(srv).Fetch(context.Background(), Request{
		SourceID: "doc",
		SheetID:  "1",
		Timeout:  50 * time.Millisecond,
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, core.ErrFetch)
	assert.ErrorIs(t, err, core.ErrAttemptsExhausted)
	assert.Equal(t, "FETCH002", core.MapError(err).Code)
	assert.Equal(t, int32(3), atomic.LoadInt32(&hits))
}

func TestFetch_TimeoutThenSuccess(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&hits, 1) == 1 {
			<-r.Context().Done()
			return
		}
		_, _ = w.Write([]byte("ID\n1\n2\n"))
	}))
	defer srv.Close()

	ds, err := newTestFetcher(srv).Fetch(context.Background(), Request{
		SourceID: "doc",
		SheetID:  "1",
		Timeout:  50 * time.Millisecond,
	})
	require.NoError(t, err)
	assert.Equal(t, 2, ds.Len())
	assert.Equal(t, int32(2), atomic.LoadInt32(&hits))
}

// failingTransport fails every request with a non-timeout error.
type failingTransport struct {
	calls int32
}

func (t *failingTransport) RoundTrip(*http.Request) (*http.Response, error) {
	atomic.AddInt32(&t.calls, 1)
	return nil, errors.New("connection reset by peer")
}

func TestFetch_TransportErrorIsNotRetried(t *testing.T) {
	tr := &failingTransport{}
	f := New(Options{
		BaseURL:    "http://sheets.invalid",
		RetryDelay: time.Millisecond,
		HTTPClient: &http.Client{Transport: tr},
	})

	_, err := f.Fetch(context.Background(), Request{SourceID: "doc", SheetID: "1"})
	require.Error(t, err)
	assert.ErrorIs(t, err, core.ErrFetch)
	assert.Equal(t, int32(1), atomic.LoadInt32(&tr.calls))
}

func TestFetch_ParseErrorIsClassified(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("ID,name\n1,a,extra\n"))
	}))
	defer srv.Close()

	_, err := newTestFetcher(srv).Fetch(context.Background(), Request{SourceID: "doc", SheetID: "1"})
	require.Error(t, err)
	assert.ErrorIs(t, err, core.ErrParse)
	var rw *RowWidthError
	assert.ErrorAs(t, err, &rw)
}

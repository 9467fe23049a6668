// Package all wires the built-in store backends behind one constructor.
//
// The backend is chosen by database URL scheme:
//
//	libsql://, https://, http://   -> libsql (HTTP API)
//	sqlite://, file:               -> sqlite (local file)
//	postgres://, postgresql://     -> postgres (pgx pool)
//
// Keeping the switch here lets the rest of the application depend only on
// store.Gateway.
package all

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/JonMunkholm/sheetsync/internal/core"
	"github.com/JonMunkholm/sheetsync/internal/store"
	"github.com/JonMunkholm/sheetsync/internal/store/libsql"
	"github.com/JonMunkholm/sheetsync/internal/store/postgres"
	"github.com/JonMunkholm/sheetsync/internal/store/sqlite"
)

// Options selects and configures a backend.
type Options struct {
	URL       string
	AuthToken string // libsql only
	Timeouts  store.Timeouts

	HTTPClient *http.Client         // libsql only, optional
	Pool       postgres.PoolOptions // postgres only
	Logger     *slog.Logger
}

// Backend names the store implementation a URL selects.
func Backend(url string) (string, error) {
	switch {
	case strings.HasPrefix(url, "libsql://"),
		strings.HasPrefix(url, "https://"),
		strings.HasPrefix(url, "http://"):
		return "libsql", nil
	case strings.HasPrefix(url, "sqlite://"), strings.HasPrefix(url, "file:"):
		return "sqlite", nil
	case strings.HasPrefix(url, "postgres://"), strings.HasPrefix(url, "postgresql://"):
		return "postgres", nil
	default:
		return "", fmt.Errorf("unsupported database URL scheme: %q", schemeOf(url))
	}
}

// Open returns the gateway for opts.URL. No query is sent; call Ping to verify.
func Open(ctx context.Context, opts Options) (store.Gateway, error) {
	backend, err := Backend(opts.URL)
	if err != nil {
		return nil, core.E(core.ErrConnection, "open store", err)
	}

	var gw store.Gateway
	switch backend {
	case "libsql":
		gw, err = libsql.New(libsql.Options{
			URL:        opts.URL,
			AuthToken:  opts.AuthToken,
			Timeouts:   opts.Timeouts,
			HTTPClient: opts.HTTPClient,
			Logger:     opts.Logger,
		})
	case "sqlite":
		gw, err = sqlite.Open(opts.URL, opts.Timeouts, opts.Logger)
	default:
		gw, err = postgres.Open(ctx, opts.URL, opts.Pool, opts.Timeouts, opts.Logger)
	}
	if err != nil {
		return nil, err
	}
	return gw, nil
}

func schemeOf(url string) string {
	if i := strings.Index(url, ":"); i > 0 {
		return url[:i]
	}
	return url
}

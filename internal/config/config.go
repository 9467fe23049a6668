// Package config provides centralized configuration management for the application.
// It loads configuration from environment variables with sensible defaults and
// validates all settings on startup to fail fast on misconfiguration.
package config

import (
	"fmt"
	"net"
	"strconv"
	"time"

	"github.com/JonMunkholm/sheetsync/internal/core"
	"github.com/JonMunkholm/sheetsync/internal/store"
)

// Config holds all application configuration.
// All settings can be configured via environment variables.
type Config struct {
	Source   SourceConfig
	Database DatabaseConfig
	Sync     SyncConfig
	Server   ServerConfig
	Logging  LoggingConfig
	Metrics  MetricsConfig
}

// SourceConfig holds spreadsheet export settings.
type SourceConfig struct {
	// SpreadsheetID is the source document id (required)
	SpreadsheetID string `env:"SPREADSHEET_ID" required:"true" validate:"required"`

	// ExportBase is the export endpoint prefix
	ExportBase string `env:"SOURCE_EXPORT_BASE" default:"https://docs.google.com/spreadsheets/d" validate:"required,url"`

	// SheetIDs maps table key to sheet gid, as key=gid pairs
	SheetIDs map[string]string `env:"SHEET_IDS" default:"songs=1083871743,cards=480354522,brooches=1087762308" validate:"min=1"`

	// FetchTimeout bounds one download attempt (default: 30s)
	FetchTimeout time.Duration `env:"FETCH_TIMEOUT" default:"30s" validate:"gt=0"`

	// MaxRetries is the number of download attempts on timeout (default: 3)
	MaxRetries int `env:"FETCH_MAX_RETRIES" default:"3" validate:"min=1"`

	// RetryDelay is the pause between attempts (default: 1s)
	RetryDelay time.Duration `env:"FETCH_RETRY_DELAY" default:"1s" validate:"gte=0"`
}

// DatabaseConfig holds destination database settings.
type DatabaseConfig struct {
	// URL selects the backend by scheme: libsql://, https://, sqlite://, postgres://
	// Supports both TURSO_DATABASE_URL and DATABASE_URL
	URL string `env:"TURSO_DATABASE_URL" envAlt:"DATABASE_URL" required:"true" validate:"required"`

	// AuthToken is the libsql bearer token
	AuthToken string `env:"TURSO_AUTH_TOKEN" envAlt:"DATABASE_AUTH_TOKEN"`

	PingTimeout  time.Duration `env:"DB_PING_TIMEOUT" default:"10s" validate:"gt=0"`
	QueryTimeout time.Duration `env:"DB_QUERY_TIMEOUT" default:"30s" validate:"gt=0"`
	BatchTimeout time.Duration `env:"DB_BATCH_TIMEOUT" default:"60s" validate:"gt=0"`

	// MaxConns and MinConns size the postgres pool; other backends ignore them
	MaxConns int `env:"DB_MAX_CONNS" default:"4" validate:"min=1"`
	MinConns int `env:"DB_MIN_CONNS" default:"0" validate:"min=0"`
}

// Timeouts converts the database timeouts for the store packages.
func (c *DatabaseConfig) Timeouts() store.Timeouts {
	return store.Timeouts{
		Ping:  c.PingTimeout,
		Query: c.QueryTimeout,
		Batch: c.BatchTimeout,
	}
}

// SyncConfig holds run settings.
type SyncConfig struct {
	// Tables lists the tables to sync, in order
	Tables []string `env:"SYNC_TABLES" default:"songs,cards,brooches" validate:"min=1,dive,required"`

	// BatchSize is the number of rows per insert request (default: 50)
	BatchSize int `env:"SYNC_BATCH_SIZE" default:"50" validate:"min=1"`

	// Timeout is the wall-clock budget of a whole run (default: 30m)
	Timeout time.Duration `env:"SYNC_TIMEOUT" default:"30m" validate:"gt=0"`

	// Interval schedules runs in serve mode; 0 disables the schedule
	Interval time.Duration `env:"SYNC_INTERVAL" default:"0s" validate:"gte=0"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	// Host is the interface to bind to (default: 0.0.0.0)
	Host string `env:"SERVER_HOST" default:"0.0.0.0"`

	// Port is the port to listen on (default: 8080)
	Port int `env:"SERVER_PORT" default:"8080" validate:"min=1,max=65535"`

	// ReadTimeout is the maximum duration for reading a request (default: 15s)
	ReadTimeout time.Duration `env:"SERVER_READ_TIMEOUT" default:"15s" validate:"gte=0"`

	// ShutdownTimeout is the maximum duration to wait for graceful shutdown (default: 30s)
	ShutdownTimeout time.Duration `env:"SERVER_SHUTDOWN_TIMEOUT" default:"30s" validate:"gt=0"`

	// APIKeys guards POST /api/sync when non-empty (comma-separated)
	APIKeys []string `env:"SERVER_API_KEYS"`

	// TrustedProxies is a comma-separated list of proxy CIDRs whose
	// X-Real-IP / X-Forwarded-For headers are honored
	TrustedProxies []string `env:"TRUSTED_PROXIES"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	// Level is the minimum log level: debug, info, warn, error (default: info)
	Level string `env:"LOG_LEVEL" default:"info" validate:"oneof=debug info warn error"`

	// Format is the log format: text or json (default: json)
	Format string `env:"LOG_FORMAT" default:"json" validate:"oneof=text json"`
}

// MetricsConfig holds the optional Prometheus Pushgateway settings.
type MetricsConfig struct {
	// PushgatewayURL enables pushing run metrics when set
	PushgatewayURL string `env:"METRICS_PUSHGATEWAY_URL" validate:"omitempty,url"`

	// Job is the Pushgateway job label (default: sheetsync)
	Job string `env:"METRICS_JOB" default:"sheetsync"`
}

// Addr returns the server listen address in host:port format.
func (c *ServerConfig) Addr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

// Sheets returns the configured tables paired with their sheet ids, in
// sync order.
func (c *Config) Sheets() []core.TableSheet {
	out := make([]core.TableSheet, 0, len(c.Sync.Tables))
	for _, t := range c.Sync.Tables {
		out = append(out, core.TableSheet{Kind: t, SheetID: c.Source.SheetIDs[t]})
	}
	return out
}

// String returns a safe string representation of the config for logging.
// Sensitive values like database URLs and tokens are masked.
func (c *Config) String() string {
	token := ""
	if c.Database.AuthToken != "" {
		token = "[MASKED]"
	}
	return fmt.Sprintf("Config{Source: {SpreadsheetID: %q, Tables: %v}, "+
		"Database: {URL: [MASKED], AuthToken: %q}, "+
		"Sync: {BatchSize: %d, Timeout: %s, Interval: %s}, "+
		"Server: {Host: %q, Port: %d, APIKeys: %d}, "+
		"Logging: {Level: %q, Format: %q}, "+
		"Metrics: {Pushgateway: %t}}",
		c.Source.SpreadsheetID, c.Sync.Tables,
		token,
		c.Sync.BatchSize, c.Sync.Timeout, c.Sync.Interval,
		c.Server.Host, c.Server.Port, len(c.Server.APIKeys),
		c.Logging.Level, c.Logging.Format,
		c.Metrics.PushgatewayURL != "",
	)
}

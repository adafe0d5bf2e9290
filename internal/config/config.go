// Package config provides centralized configuration management for the
// importer CLI and the read API. Values come from environment variables (a
// .env file is loaded by main before Load runs) with defaults, and are
// validated on startup so misconfiguration fails fast.
package config

import (
	"net"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// Supported storage drivers.
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// Config holds all application configuration.
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Import   ImportConfig
	API      APIConfig
	Logging  LoggingConfig
}

// ServerConfig holds HTTP server settings for the read API.
type ServerConfig struct {
	Host string `env:"SERVER_HOST" default:"0.0.0.0"`
	Port int    `env:"SERVER_PORT" default:"8000"`

	ReadTimeout     time.Duration `env:"SERVER_READ_TIMEOUT" default:"15s"`
	WriteTimeout    time.Duration `env:"SERVER_WRITE_TIMEOUT" default:"30s"`
	IdleTimeout     time.Duration `env:"SERVER_IDLE_TIMEOUT" default:"60s"`
	ShutdownTimeout time.Duration `env:"SERVER_SHUTDOWN_TIMEOUT" default:"30s"`

	// RequestTimeout is applied by the chi Timeout middleware.
	RequestTimeout time.Duration `env:"SERVER_REQUEST_TIMEOUT" default:"30s"`

	// TrustedProxies is a comma-separated list of CIDRs or IPs whose
	// X-Real-IP / X-Forwarded-For headers are believed. Empty trusts none.
	TrustedProxies string `env:"SERVER_TRUSTED_PROXIES"`
}

// DatabaseConfig holds storage connection settings.
//
// URL wins when set. Otherwise a PostgreSQL DSN is assembled from the
// individual DB_* parts, which is how the compose setup configures it.
type DatabaseConfig struct {
	// Driver selects the storage gateway: postgres or sqlite.
	Driver string `env:"DB_DRIVER" default:"postgres"`

	// URL is a PostgreSQL connection string, or a file path for sqlite.
	URL string `env:"DATABASE_URL" envAlt:"DB_URL"`

	Host     string `env:"DB_HOST" default:"localhost"`
	Port     int    `env:"DB_PORT" default:"5432"`
	User     string `env:"DB_USER" default:"app"`
	Password string `env:"DB_PASSWORD" default:"app_pw"`
	Name     string `env:"DB_NAME" default:"appdb"`

	MaxConns        int           `env:"DB_MAX_CONNS" default:"10"`
	MinConns        int           `env:"DB_MIN_CONNS" default:"1"`
	MaxConnLifetime time.Duration `env:"DB_MAX_CONN_LIFETIME" default:"1h"`
	MaxConnIdleTime time.Duration `env:"DB_MAX_CONN_IDLE_TIME" default:"30m"`
}

// ImportConfig holds CSV import settings.
type ImportConfig struct {
	// StorageRetries is how many times a transient storage failure on a
	// single row is retried before the row is counted as skipped.
	StorageRetries int `env:"IMPORT_STORAGE_RETRIES" default:"2"`

	// RetryBackoff is multiplied by the attempt number between retries.
	RetryBackoff time.Duration `env:"IMPORT_RETRY_BACKOFF" default:"200ms"`

	// MaxFileSize is the largest CSV file accepted, in bytes (default: 100MB).
	MaxFileSize int64 `env:"IMPORT_MAX_FILE_SIZE" default:"104857600"`
}

// APIConfig holds read API settings.
type APIConfig struct {
	DefaultLimit int `env:"API_DEFAULT_LIMIT" default:"50"`
	MaxLimit     int `env:"API_MAX_LIMIT" default:"1000"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	// Level is the minimum log level: debug, info, warn, error (default: info)
	Level string `env:"LOG_LEVEL" default:"info"`

	// Format is the log format: text or json (default: text)
	Format string `env:"LOG_FORMAT" default:"text"`
}

// Addr returns the server listen address in host:port format.
func (c *ServerConfig) Addr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

// TrustedProxyList splits TrustedProxies into trimmed, non-empty entries.
func (c *ServerConfig) TrustedProxyList() []string {
	var out []string
	for _, p := range strings.Split(c.TrustedProxies, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// DSN returns the connection string for the configured driver.
func (c *DatabaseConfig) DSN() string {
	if c.URL != "" {
		return c.URL
	}
	if c.Driver == DriverSQLite {
		return c.Name + ".db"
	}

	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(c.User, c.Password),
		Host:   net.JoinHostPort(c.Host, strconv.Itoa(c.Port)),
		Path:   "/" + c.Name,
	}
	return u.String()
}

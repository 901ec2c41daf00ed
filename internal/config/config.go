// Package config loads typedcsv server and CLI settings from environment
// variables, with an optional YAML profile for per-schema reader options.
// Everything is validated on startup so misconfiguration fails fast.
package config

import (
	"net"
	"strconv"
	"strings"
	"time"
)

// Config holds all application configuration.
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Upload   UploadConfig
	CSV      CSVConfig
	Logging  LoggingConfig
	Profile  ProfileConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host string `env:"SERVER_HOST" default:"0.0.0.0"`
	Port int    `env:"SERVER_PORT" default:"8080"`

	// ReadTimeout bounds reading the request, including the upload body.
	ReadTimeout     time.Duration `env:"SERVER_READ_TIMEOUT" default:"30s"`
	WriteTimeout    time.Duration `env:"SERVER_WRITE_TIMEOUT" default:"60s"`
	IdleTimeout     time.Duration `env:"SERVER_IDLE_TIMEOUT" default:"60s"`
	ShutdownTimeout time.Duration `env:"SERVER_SHUTDOWN_TIMEOUT" default:"30s"`
	RequestTimeout  time.Duration `env:"SERVER_REQUEST_TIMEOUT" default:"5m"`

	// TrustedProxies lists CIDRs or IPs whose X-Real-IP and X-Forwarded-For
	// headers are honored, comma separated.
	TrustedProxies string `env:"SERVER_TRUSTED_PROXIES"`

	// APIKeys, comma separated, guard the load endpoint when set.
	APIKeys string `env:"API_KEYS"`
}

// TrustedProxyList returns TrustedProxies split on commas.
func (c *ServerConfig) TrustedProxyList() []string {
	return splitList(c.TrustedProxies)
}

// APIKeyList returns APIKeys split on commas.
func (c *ServerConfig) APIKeyList() []string {
	return splitList(c.APIKeys)
}

func splitList(s string) []string {
	var out []string
	for part := range strings.SplitSeq(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// DatabaseConfig holds PostgreSQL settings. Loading into the database is
// disabled while URL is empty.
type DatabaseConfig struct {
	URL             string        `env:"DATABASE_URL" envAlt:"DB_URL"`
	MaxConns        int           `env:"DB_MAX_CONNS" default:"10"`
	MinConns        int           `env:"DB_MIN_CONNS" default:"1"`
	MaxConnLifetime time.Duration `env:"DB_MAX_CONN_LIFETIME" default:"1h"`
	MaxConnIdleTime time.Duration `env:"DB_MAX_CONN_IDLE_TIME" default:"30m"`
}

// Enabled reports whether a database is configured.
func (c DatabaseConfig) Enabled() bool {
	return c.URL != ""
}

// UploadConfig holds CSV upload processing settings.
type UploadConfig struct {
	// MaxFileSize is the maximum request body in bytes (default: 100MB)
	MaxFileSize int64 `env:"UPLOAD_MAX_FILE_SIZE" default:"104857600"`

	// MaxConcurrent is the number of uploads parsed at once (default: 4)
	MaxConcurrent int           `env:"UPLOAD_MAX_CONCURRENT" default:"4"`
	MaxWaitTime   time.Duration `env:"UPLOAD_MAX_WAIT_TIME" default:"30s"`

	// MaxReportRows caps the rows echoed back in a parse report (default: 500)
	MaxReportRows int `env:"UPLOAD_MAX_REPORT_ROWS" default:"500"`
}

// CSVConfig holds the default reader settings. Single-character options are
// strings so they can be set from the environment.
type CSVConfig struct {
	Separator      string `env:"CSV_SEPARATOR" default:"," yaml:"separator" json:"separator"`
	Quote          string `env:"CSV_QUOTE" default:"\"" yaml:"quote" json:"quote"`
	Escape         string `env:"CSV_ESCAPE" yaml:"escape" json:"escape"` // empty follows Quote
	ListSeparator  string `env:"CSV_LIST_SEPARATOR" default:"," yaml:"list_separator" json:"list_separator"`
	Trim           bool   `env:"CSV_TRIM" default:"false" yaml:"trim" json:"trim"`
	SkipEmptyLines bool   `env:"CSV_SKIP_EMPTY_LINES" default:"false" yaml:"skip_empty_lines" json:"skip_empty_lines"`
	EmptyAsNull    bool   `env:"CSV_EMPTY_AS_NULL" default:"false" yaml:"empty_as_null" json:"empty_as_null"`
	StrictColumns  bool   `env:"CSV_STRICT_COLUMNS" default:"false" yaml:"strict_columns" json:"strict_columns"`
	Charset        string `env:"CSV_CHARSET" yaml:"charset" json:"charset"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `env:"LOG_LEVEL" default:"info"`
	Format string `env:"LOG_FORMAT" default:"text"`
}

// ProfileConfig points at the optional YAML reader profile.
type ProfileConfig struct {
	Path string `env:"CSV_PROFILE_PATH"`
}

// Addr returns the server listen address in host:port format.
func (c *ServerConfig) Addr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

package config

import (
	"fmt"
	"os"
	"reflect"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/JonMunkholm/typedcsv/internal/source"
)

// Load reads configuration from environment variables, applies defaults and
// validates the result. When CSV_PROFILE_PATH is set the profile is loaded
// as well.
func Load() (*Config, *Profile, error) {
	cfg := &Config{}

	if err := loadStruct(reflect.ValueOf(cfg).Elem()); err != nil {
		return nil, nil, fmt.Errorf("config load: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, nil, fmt.Errorf("config validation: %w", err)
	}

	profile := &Profile{Defaults: cfg.CSV}
	if cfg.Profile.Path != "" {
		var err error
		profile, err = LoadProfile(cfg.Profile.Path, cfg.CSV)
		if err != nil {
			return nil, nil, fmt.Errorf("config profile: %w", err)
		}
	}

	return cfg, profile, nil
}

// loadStruct recursively populates struct fields from environment variables.
func loadStruct(v reflect.Value) error {
	t := v.Type()

	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		fieldVal := v.Field(i)

		if !fieldVal.CanSet() {
			continue
		}

		if field.Type.Kind() == reflect.Struct && field.Type != reflect.TypeOf(time.Time{}) {
			if err := loadStruct(fieldVal); err != nil {
				return err
			}
			continue
		}

		envName := field.Tag.Get("env")
		if envName == "" {
			continue
		}
		envAlt := field.Tag.Get("envAlt")
		defaultVal := field.Tag.Get("default")
		required := field.Tag.Get("required") == "true"

		value := os.Getenv(envName)
		if value == "" && envAlt != "" {
			value = os.Getenv(envAlt)
		}

		if value == "" {
			if required {
				return fmt.Errorf("required environment variable %s is not set", envName)
			}
			value = defaultVal
		}

		if value == "" {
			continue
		}

		if err := setField(fieldVal, value); err != nil {
			return fmt.Errorf("invalid value for %s=%q: %w", envName, value, err)
		}
	}

	return nil
}

// setField sets a reflect.Value from a string based on its type.
func setField(field reflect.Value, value string) error {
	switch field.Kind() {
	case reflect.String:
		field.SetString(value)

	case reflect.Int, reflect.Int64:
		if field.Type() == reflect.TypeOf(time.Duration(0)) {
			d, err := time.ParseDuration(value)
			if err != nil {
				return fmt.Errorf("invalid duration: %w", err)
			}
			field.Set(reflect.ValueOf(d))
		} else {
			i, err := strconv.ParseInt(value, 10, 64)
			if err != nil {
				return fmt.Errorf("invalid integer: %w", err)
			}
			field.SetInt(i)
		}

	case reflect.Bool:
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("invalid boolean: %w", err)
		}
		field.SetBool(b)

	default:
		return fmt.Errorf("unsupported field type: %s", field.Kind())
	}

	return nil
}

// Validate checks that the configuration is valid.
// Returns an error describing all validation failures.
func (c *Config) Validate() error {
	var errs []string

	if c.Database.Enabled() {
		if c.Database.MaxConns <= 0 {
			errs = append(errs, "DB_MAX_CONNS must be positive")
		}
		if c.Database.MinConns < 0 {
			errs = append(errs, "DB_MIN_CONNS must be non-negative")
		}
		if c.Database.MaxConns < c.Database.MinConns {
			errs = append(errs, fmt.Sprintf("DB_MAX_CONNS (%d) must be >= DB_MIN_CONNS (%d)",
				c.Database.MaxConns, c.Database.MinConns))
		}
	}

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Sprintf("SERVER_PORT (%d) must be 1-65535", c.Server.Port))
	}
	if c.Server.ReadTimeout < 0 {
		errs = append(errs, "SERVER_READ_TIMEOUT must be non-negative")
	}
	if c.Server.ShutdownTimeout <= 0 {
		errs = append(errs, "SERVER_SHUTDOWN_TIMEOUT must be positive")
	}

	if c.Upload.MaxFileSize <= 0 {
		errs = append(errs, "UPLOAD_MAX_FILE_SIZE must be positive")
	}
	if c.Upload.MaxConcurrent <= 0 {
		errs = append(errs, "UPLOAD_MAX_CONCURRENT must be positive")
	}
	if c.Upload.MaxWaitTime <= 0 {
		errs = append(errs, "UPLOAD_MAX_WAIT_TIME must be positive")
	}
	if c.Upload.MaxReportRows < 0 {
		errs = append(errs, "UPLOAD_MAX_REPORT_ROWS must be non-negative")
	}

	errs = append(errs, c.CSV.problems("CSV_")...)

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[strings.ToLower(c.Logging.Level)] {
		errs = append(errs, fmt.Sprintf("LOG_LEVEL (%q) must be one of: debug, info, warn, error", c.Logging.Level))
	}

	validFormats := map[string]bool{"text": true, "json": true}
	if !validFormats[strings.ToLower(c.Logging.Format)] {
		errs = append(errs, fmt.Sprintf("LOG_FORMAT (%q) must be one of: text, json", c.Logging.Format))
	}

	if len(errs) > 0 {
		return fmt.Errorf("validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}

	return nil
}

// problems lists everything wrong with the reader settings, each message
// prefixed with the env var family (or profile path) it came from.
func (c CSVConfig) problems(prefix string) []string {
	var errs []string
	single := func(name, v string) {
		if utf8.RuneCountInString(v) != 1 {
			errs = append(errs, fmt.Sprintf("%s%s (%q) must be a single character", prefix, name, v))
		}
	}

	single("SEPARATOR", c.Separator)
	single("QUOTE", c.Quote)
	if c.Escape != "" {
		single("ESCAPE", c.Escape)
	}
	if c.Separator != "" && c.Separator == c.Quote {
		errs = append(errs, fmt.Sprintf("%sSEPARATOR and %sQUOTE must differ", prefix, prefix))
	}
	if c.ListSeparator == "" {
		errs = append(errs, prefix+"LIST_SEPARATOR must not be empty")
	}
	if _, err := source.Lookup(c.Charset); err != nil {
		errs = append(errs, fmt.Sprintf("%sCHARSET: %v", prefix, err))
	}
	return errs
}

// Validate checks reader settings on their own, as used for per-request
// overrides.
func (c CSVConfig) Validate() error {
	if errs := c.problems(""); len(errs) > 0 {
		return fmt.Errorf("invalid csv options: %s", strings.Join(errs, "; "))
	}
	return nil
}

// Runes returns the separator, quote and escape characters. A zero escape
// means "same as quote".
func (c CSVConfig) Runes() (sep, quote, escape rune) {
	sep, _ = utf8.DecodeRuneInString(c.Separator)
	quote, _ = utf8.DecodeRuneInString(c.Quote)
	if c.Escape != "" {
		escape, _ = utf8.DecodeRuneInString(c.Escape)
	}
	return sep, quote, escape
}

// String returns a safe string representation of the config for logging.
// The database URL is masked.
func (c *Config) String() string {
	var b strings.Builder
	b.WriteString("Config{")
	fmt.Fprintf(&b, "Server: {Host: %q, Port: %d, APIKeys: %d}, ",
		c.Server.Host, c.Server.Port, len(c.Server.APIKeyList()))
	if c.Database.Enabled() {
		fmt.Fprintf(&b, "Database: {URL: [MASKED], MaxConns: %d, MinConns: %d}, ",
			c.Database.MaxConns, c.Database.MinConns)
	} else {
		b.WriteString("Database: {disabled}, ")
	}
	fmt.Fprintf(&b, "Upload: {MaxFileSize: %d, MaxConcurrent: %d}, ",
		c.Upload.MaxFileSize, c.Upload.MaxConcurrent)
	fmt.Fprintf(&b, "CSV: {Separator: %q, Quote: %q, Trim: %v, Charset: %q}, ",
		c.CSV.Separator, c.CSV.Quote, c.CSV.Trim, c.CSV.Charset)
	fmt.Fprintf(&b, "Logging: {Level: %q, Format: %q}", c.Logging.Level, c.Logging.Format)
	b.WriteString("}")
	return b.String()
}

// Package config loads clubdesk settings from an optional TOML file and
// CLUBDESK_* environment variables, in that order of precedence (env wins).
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every environment variable, e.g.
// CLUBDESK_TABLE_PAGE_SIZE for table.page_size.
const EnvPrefix = "CLUBDESK"

type Config struct {
	ServerURL string        // server.url
	Timeout   time.Duration // server.timeout

	PageSize int    // table.page_size
	Timezone string // display.timezone, anchors calendar-day filters

	RetryMaxAttempts int           // retry.max_attempts
	RetryDelay       time.Duration // retry.delay
	RetryStatuses    []int         // retry.statuses

	FetchRetryMax      int     // fetch.retry_max, transport retries for reads
	FetchRatePerSecond float64 // fetch.rate_per_second, 0 = unpaced

	NATSURL string // events.nats_url (empty = no events)

	ExportS3Region   string // export.s3_region
	ExportS3Endpoint string // export.s3_endpoint (custom endpoint for MinIO)

	// serve
	DatabaseURL string // serve.database_url
	HTTPAddr    string // serve.http_addr
	AuthToken   string // serve.auth_token (empty = auth disabled)
}

// SetDefaults registers every key with its default value.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("server.url", "http://localhost:8080")
	v.SetDefault("server.timeout", "30s")
	v.SetDefault("table.page_size", 10)
	v.SetDefault("display.timezone", "UTC")
	v.SetDefault("retry.max_attempts", 3)
	v.SetDefault("retry.delay", "2s")
	v.SetDefault("retry.statuses", []int{500})
	v.SetDefault("fetch.retry_max", 2)
	v.SetDefault("fetch.rate_per_second", 0)
	v.SetDefault("events.nats_url", "")
	v.SetDefault("export.s3_region", "us-east-1")
	v.SetDefault("export.s3_endpoint", "")
	v.SetDefault("serve.database_url", "")
	v.SetDefault("serve.http_addr", ":8080")
	v.SetDefault("serve.auth_token", "")
}

// DefaultPath returns ~/.config/clubdesk/config.toml.
func DefaultPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, "clubdesk", "config.toml")
}

// NewViper returns a viper instance wired for clubdesk: defaults, env
// binding and, when path names an existing file, the TOML config. A missing
// file at the default location is not an error; a missing explicit path is.
func NewViper(path string) (*viper.Viper, error) {
	v := viper.New()
	SetDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	explicit := path != ""
	if !explicit {
		path = DefaultPath()
	}
	if path == "" {
		return v, nil
	}
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, os.ErrNotExist) && !explicit {
			return v, nil
		}
		return nil, fmt.Errorf("config file: %w", err)
	}
	v.SetConfigFile(path)
	v.SetConfigType("toml")
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	return v, nil
}

// Load reads the config from path (or the default location) and the
// environment.
func Load(path string) (*Config, error) {
	v, err := NewViper(path)
	if err != nil {
		return nil, err
	}
	return FromViper(v)
}

// FromViper extracts and validates a Config.
func FromViper(v *viper.Viper) (*Config, error) {
	c := &Config{
		ServerURL:          strings.TrimRight(v.GetString("server.url"), "/"),
		Timeout:            v.GetDuration("server.timeout"),
		PageSize:           v.GetInt("table.page_size"),
		Timezone:           v.GetString("display.timezone"),
		RetryMaxAttempts:   v.GetInt("retry.max_attempts"),
		RetryDelay:         v.GetDuration("retry.delay"),
		FetchRetryMax:      v.GetInt("fetch.retry_max"),
		FetchRatePerSecond: v.GetFloat64("fetch.rate_per_second"),
		NATSURL:            v.GetString("events.nats_url"),
		ExportS3Region:     v.GetString("export.s3_region"),
		ExportS3Endpoint:   v.GetString("export.s3_endpoint"),
		DatabaseURL:        v.GetString("serve.database_url"),
		HTTPAddr:           v.GetString("serve.http_addr"),
		AuthToken:          v.GetString("serve.auth_token"),
	}

	statuses, err := parseStatuses(v.Get("retry.statuses"))
	if err != nil {
		return nil, fmt.Errorf("retry.statuses: %w", err)
	}
	c.RetryStatuses = statuses

	if c.PageSize < 1 {
		return nil, fmt.Errorf("table.page_size must be positive, got %d", c.PageSize)
	}
	if c.RetryMaxAttempts < 1 {
		return nil, fmt.Errorf("retry.max_attempts must be at least 1, got %d", c.RetryMaxAttempts)
	}
	if c.RetryDelay < 0 {
		return nil, fmt.Errorf("retry.delay must not be negative, got %s", c.RetryDelay)
	}
	if c.FetchRetryMax < 0 {
		return nil, fmt.Errorf("fetch.retry_max must not be negative, got %d", c.FetchRetryMax)
	}
	if _, err := c.Location(); err != nil {
		return nil, err
	}
	return c, nil
}

// Location resolves the display timezone.
func (c *Config) Location() (*time.Location, error) {
	if c.Timezone == "" {
		return time.UTC, nil
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("display.timezone: %w", err)
	}
	return loc, nil
}

// RequireDatabase reports an error unless the serve settings are usable.
func (c *Config) RequireDatabase() error {
	if c.DatabaseURL == "" {
		return fmt.Errorf("serve.database_url (%s_SERVE_DATABASE_URL) is required", EnvPrefix)
	}
	return nil
}

// parseStatuses accepts a TOML array or a comma/space separated string.
func parseStatuses(raw any) ([]int, error) {
	var parts []string
	switch x := raw.(type) {
	case nil:
		return nil, nil
	case []int:
		return append([]int(nil), x...), nil
	case []int64:
		out := make([]int, len(x))
		for i, n := range x {
			out[i] = int(n)
		}
		return out, nil
	case []any:
		for _, p := range x {
			parts = append(parts, fmt.Sprint(p))
		}
	case []string:
		parts = x
	case string:
		parts = strings.FieldsFunc(x, func(r rune) bool { return r == ',' || r == ' ' })
	case int:
		return []int{x}, nil
	case int64:
		return []int{int(x)}, nil
	default:
		return nil, fmt.Errorf("unsupported value %v", raw)
	}

	out := make([]int, 0, len(parts))
	for _, p := range parts {
		n, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil || n < 100 || n > 599 {
			return nil, fmt.Errorf("invalid HTTP status %q", p)
		}
		out = append(out, n)
	}
	return out, nil
}

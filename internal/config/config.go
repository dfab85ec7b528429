// Package config provides configuration loading and validation for the CLI and server.
package config

import (
	"encoding/json"
	"fmt"
	"net/textproto"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/jonathan/profile-images/internal/db"
	"github.com/jonathan/profile-images/internal/fetch"
	"github.com/pelletier/go-toml/v2"
)

// DefaultPort is the HTTP port used when none is configured.
const DefaultPort = 5000

// DefaultConcurrency bounds how many profiles are scraped at once.
const DefaultConcurrency = 4

// Config represents the configuration that can be loaded from a JSON or TOML file or the environment.
// All fields are optional; missing values use defaults or must be provided via CLI flags.
type Config struct {
	// Serving
	Port         int    `json:"port,omitempty" toml:"port" validate:"omitempty,min=1,max=65535"`                     // HTTP listen port
	DatabaseURL  string `json:"database_url,omitempty" toml:"database_url" validate:"omitempty,url"`                 // PostgreSQL connection URL
	Concurrency  int    `json:"concurrency,omitempty" toml:"concurrency" validate:"omitempty,min=1,max=64"`          // Parallel scrapes for batch runs
	CacheTTL     int    `json:"cache_ttl_hours,omitempty" toml:"cache_ttl_hours" validate:"omitempty,min=1,max=720"` // Page cache lifetime in hours
	HistoryLimit int    `json:"history_limit,omitempty" toml:"history_limit" validate:"omitempty,min=1,max=100"`     // Rows returned by history queries
	HomeURL      string `json:"home_url,omitempty" toml:"home_url" validate:"omitempty,url"`                         // Session bootstrap URL
	SkipCache    bool   `json:"skip_cache,omitempty" toml:"skip_cache"`                                              // Always fetch fresh pages
	Verbose      bool   `json:"verbose,omitempty" toml:"verbose"`                                                    // Print detailed debug information

	// Fetching
	UserAgent    string            `json:"user_agent,omitempty" toml:"user_agent"`                                              // User-Agent header
	Headers      map[string]string `json:"headers,omitempty" toml:"headers"`                                                    // Extra request headers
	Timeout      int               `json:"timeout_seconds,omitempty" toml:"timeout_seconds" validate:"omitempty,min=1,max=300"` // Per-request timeout
	MaxAttempts  int               `json:"max_attempts,omitempty" toml:"max_attempts" validate:"omitempty,min=1,max=10"`        // Tries per page
	RetryDelay   int               `json:"retry_delay_ms,omitempty" toml:"retry_delay_ms" validate:"omitempty,min=1"`           // Base backoff delay
	MaxBodyBytes int64             `json:"max_body_bytes,omitempty" toml:"max_body_bytes" validate:"omitempty,min=1024"`        // Response body cap
}

// LoadConfig loads configuration from a JSON file, or a TOML file when path ends in .toml.
// Returns an error if the file cannot be read or parsed.
func LoadConfig(path string) (*Config, error) {
	if path == "" {
		return nil, fmt.Errorf("config path is empty")
	}

	// Resolve path relative to current directory if not absolute
	if !filepath.IsAbs(path) {
		cwd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("failed to get current directory: %w", err)
		}
		path = filepath.Join(cwd, path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	var cfg Config
	if strings.EqualFold(filepath.Ext(path), ".toml") {
		if err := toml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config TOML: %w", err)
		}
		return &cfg, nil
	}
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}

	return &cfg, nil
}

// Validate checks that the configuration has valid values.
// Zero values are allowed; they are filled in by MergeWithDefaults.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("config error: %w", err)
	}
	for key := range c.Headers {
		if reservedHeader(key) {
			return fmt.Errorf("config error: header %q cannot be configured", key)
		}
	}
	return nil
}

// reservedHeader reports headers that are set per request or by the transport.
func reservedHeader(key string) bool {
	switch textproto.CanonicalMIMEHeaderKey(key) {
	case "Referer", "Host", "Cookie", "Content-Length", "Accept-Encoding":
		return true
	}
	return false
}

// MergeWithDefaults returns a new Config with empty fields filled from defaults.
// This is used to apply config file values as defaults for CLI flags.
func (c *Config) MergeWithDefaults(defaults Config) Config {
	result := *c

	// String fields: use default if empty
	if result.DatabaseURL == "" {
		result.DatabaseURL = defaults.DatabaseURL
	}
	if result.UserAgent == "" {
		result.UserAgent = defaults.UserAgent
	}
	if result.HomeURL == "" {
		result.HomeURL = defaults.HomeURL
	}

	// Int fields: use default if zero
	if result.Port == 0 {
		result.Port = defaults.Port
	}
	if result.Concurrency == 0 {
		result.Concurrency = defaults.Concurrency
	}
	if result.CacheTTL == 0 {
		result.CacheTTL = defaults.CacheTTL
	}
	if result.HistoryLimit == 0 {
		result.HistoryLimit = defaults.HistoryLimit
	}
	if result.Timeout == 0 {
		result.Timeout = defaults.Timeout
	}
	if result.MaxAttempts == 0 {
		result.MaxAttempts = defaults.MaxAttempts
	}
	if result.RetryDelay == 0 {
		result.RetryDelay = defaults.RetryDelay
	}
	if result.MaxBodyBytes == 0 {
		result.MaxBodyBytes = defaults.MaxBodyBytes
	}

	// Headers: keys from defaults are added only when absent
	if len(defaults.Headers) > 0 {
		merged := make(map[string]string, len(defaults.Headers)+len(result.Headers))
		for k, v := range defaults.Headers {
			merged[k] = v
		}
		for k, v := range result.Headers {
			merged[k] = v
		}
		result.Headers = merged
	}

	// Bool fields: cannot distinguish unset from false, so we don't merge
	// (CLI flags should always win for bools)

	return result
}

// Defaults returns the built-in configuration.
func Defaults() Config {
	opts := fetch.DefaultOptions()
	return Config{
		Port:         DefaultPort,
		Concurrency:  DefaultConcurrency,
		CacheTTL:     int(db.DefaultPageCacheTTL / time.Hour),
		HomeURL:      fetch.HomeURL,
		HistoryLimit: db.DefaultHistoryLimit,
		UserAgent:    opts.UserAgent,
		Headers:      opts.Headers,
		Timeout:      int(opts.Timeout / time.Second),
		MaxAttempts:  opts.MaxAttempts,
		RetryDelay:   int(opts.RetryDelay / time.Millisecond),
		MaxBodyBytes: opts.MaxBodyBytes,
	}
}

// FetchOptions converts the fetch-related fields into fetch.Options.
func (c *Config) FetchOptions() *fetch.Options {
	return &fetch.Options{
		Timeout:      time.Duration(c.Timeout) * time.Second,
		UserAgent:    c.UserAgent,
		Headers:      c.Headers,
		MaxAttempts:  c.MaxAttempts,
		RetryDelay:   time.Duration(c.RetryDelay) * time.Millisecond,
		MaxBodyBytes: c.MaxBodyBytes,
		Verbose:      c.Verbose,
	}
}

// CacheDuration returns the page cache lifetime.
func (c *Config) CacheDuration() time.Duration {
	if c.CacheTTL <= 0 {
		return db.DefaultPageCacheTTL
	}
	return time.Duration(c.CacheTTL) * time.Hour
}

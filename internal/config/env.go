package config

import (
	"fmt"
	"os"
	"strconv"
)

// FromEnv builds a Config from environment variables.
// Unset variables leave the field zero so file values and defaults can fill it.
//
//	PORT, DATABASE_URL, FETCH_USER_AGENT, FETCH_TIMEOUT_SECONDS, FETCH_MAX_ATTEMPTS,
//	FETCH_RETRY_DELAY_MS, FETCH_MAX_BODY_BYTES, CACHE_TTL_HOURS, SCRAPE_CONCURRENCY
func FromEnv() (*Config, error) {
	cfg := &Config{
		DatabaseURL: os.Getenv("DATABASE_URL"),
		UserAgent:   os.Getenv("FETCH_USER_AGENT"),
	}

	ints := []struct {
		key  string
		dest *int
	}{
		{"PORT", &cfg.Port},
		{"FETCH_TIMEOUT_SECONDS", &cfg.Timeout},
		{"FETCH_MAX_ATTEMPTS", &cfg.MaxAttempts},
		{"FETCH_RETRY_DELAY_MS", &cfg.RetryDelay},
		{"CACHE_TTL_HOURS", &cfg.CacheTTL},
		{"SCRAPE_CONCURRENCY", &cfg.Concurrency},
	}
	for _, field := range ints {
		value := os.Getenv(field.key)
		if value == "" {
			continue
		}
		parsed, err := strconv.Atoi(value)
		if err != nil {
			return nil, fmt.Errorf("invalid %s: %v", field.key, err)
		}
		*field.dest = parsed
	}

	if value := os.Getenv("FETCH_MAX_BODY_BYTES"); value != "" {
		parsed, err := strconv.ParseInt(value, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid FETCH_MAX_BODY_BYTES: %v", err)
		}
		cfg.MaxBodyBytes = parsed
	}

	return cfg, nil
}

// Resolve layers configuration sources: explicit values win over the environment,
// the environment wins over the config file at path (if any), and defaults fill the rest.
func Resolve(path string, explicit Config) (*Config, error) {
	env, err := FromEnv()
	if err != nil {
		return nil, err
	}

	file := &Config{}
	if path != "" {
		file, err = LoadConfig(path)
		if err != nil {
			return nil, err
		}
	}

	merged := explicit.MergeWithDefaults(env.MergeWithDefaults(file.MergeWithDefaults(Defaults())))
	if file.Verbose {
		merged.Verbose = true
	}
	if file.SkipCache {
		merged.SkipCache = true
	}
	if err := merged.Validate(); err != nil {
		return nil, err
	}
	return &merged, nil
}

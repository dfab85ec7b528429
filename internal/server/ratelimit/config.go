package ratelimit

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// EndpointConfig is the limit for one path and method.
type EndpointConfig struct {
	Path   string        // Exact path, or a prefix when it ends with "/"
	Method string        // HTTP method
	Limit  int           // Requests per Window; 0 means unlimited
	Window time.Duration // Refill window
	Burst  int           // Bucket capacity, defaults to Limit
}

// LoadConfig reads RATE_LIMIT_* environment variables.
//
//	RATE_LIMIT_ENABLED           default true
//	RATE_LIMIT_DEFAULT_LIMIT     default 300
//	RATE_LIMIT_DEFAULT_WINDOW    default 1m
//	RATE_LIMIT_EXTRACT_LIMIT     default 30 (per minute, GET /api/all)
//	RATE_LIMIT_CLEANUP_INTERVAL  default 5m
//	RATE_LIMIT_WHITELIST         comma-separated client IPs
//	RATE_LIMIT_BLACKLIST         comma-separated client IPs
func LoadConfig() *Config {
	if !envBool("RATE_LIMIT_ENABLED", true) {
		return &Config{Enabled: false}
	}

	return &Config{
		Enabled:         true,
		DefaultLimit:    envInt("RATE_LIMIT_DEFAULT_LIMIT", 300),
		DefaultWindow:   envDuration("RATE_LIMIT_DEFAULT_WINDOW", time.Minute),
		CleanupInterval: envDuration("RATE_LIMIT_CLEANUP_INTERVAL", 5*time.Minute),
		Whitelist:       parseIPList(os.Getenv("RATE_LIMIT_WHITELIST")),
		Blacklist:       parseIPList(os.Getenv("RATE_LIMIT_BLACKLIST")),
		EndpointConfigs: DefaultEndpointConfigs(envInt("RATE_LIMIT_EXTRACT_LIMIT", 30)),
	}
}

// DefaultEndpointConfigs returns the per-endpoint limits. Extraction triggers
// outbound requests and gets extractPerMinute; history reads are cheaper.
func DefaultEndpointConfigs(extractPerMinute int) []EndpointConfig {
	burst := max(extractPerMinute/6, 1)
	return []EndpointConfig{
		{Path: "/api/all", Method: "GET", Limit: extractPerMinute, Window: time.Minute, Burst: burst},
		{Path: "/api/history", Method: "GET", Limit: 120, Window: time.Minute, Burst: 20},
	}
}

func envInt(key string, fallback int) int {
	if v, err := strconv.Atoi(os.Getenv(key)); err == nil {
		return v
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if v, err := strconv.ParseBool(os.Getenv(key)); err == nil {
		return v
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v, err := time.ParseDuration(os.Getenv(key)); err == nil {
		return v
	}
	return fallback
}

// parseIPList splits a comma-separated list into a set.
func parseIPList(list string) map[string]bool {
	set := make(map[string]bool)
	for _, ip := range strings.Split(list, ",") {
		if ip = strings.TrimSpace(ip); ip != "" {
			set[ip] = true
		}
	}
	return set
}

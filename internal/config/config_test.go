package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/jonathan/profile-images/internal/fetch"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	tmpFile := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(tmpFile, []byte(content), 0644))
	return tmpFile
}

func TestLoadConfig_ValidJSON(t *testing.T) {
	tmpFile := writeConfig(t, `{
		"port": 8080,
		"database_url": "postgres://localhost:5432/profile_images",
		"timeout_seconds": 10,
		"headers": {"Accept-Language": "fr-FR"},
		"verbose": true
	}`)

	cfg, err := LoadConfig(tmpFile)
	require.NoError(t, err)
	require.NotNil(t, cfg)

	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, "postgres://localhost:5432/profile_images", cfg.DatabaseURL)
	assert.Equal(t, 10, cfg.Timeout)
	assert.Equal(t, "fr-FR", cfg.Headers["Accept-Language"])
	assert.True(t, cfg.Verbose)
}

func TestLoadConfig_InvalidJSON(t *testing.T) {
	tmpFile := writeConfig(t, `{ invalid json }`)

	cfg, err := LoadConfig(tmpFile)
	assert.Error(t, err)
	assert.Nil(t, cfg)
	assert.Contains(t, err.Error(), "failed to parse config JSON")
}

func TestLoadConfig_TOML(t *testing.T) {
	tmpFile := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(tmpFile, []byte(`
port = 9090
cache_ttl_hours = 6
max_attempts = 3

[headers]
Accept-Language = "de-DE"
`), 0644))

	cfg, err := LoadConfig(tmpFile)
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Port)
	assert.Equal(t, 6, cfg.CacheTTL)
	assert.Equal(t, 3, cfg.MaxAttempts)
	assert.Equal(t, "de-DE", cfg.Headers["Accept-Language"])
}

func TestLoadConfig_InvalidTOML(t *testing.T) {
	tmpFile := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(tmpFile, []byte("port = = 1"), 0644))

	_, err := LoadConfig(tmpFile)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse config TOML")
}

func TestLoadConfig_FileNotFound(t *testing.T) {
	cfg, err := LoadConfig("/nonexistent/path/config.json")
	assert.Error(t, err)
	assert.Nil(t, cfg)
	assert.Contains(t, err.Error(), "failed to read config file")
}

func TestLoadConfig_EmptyPath(t *testing.T) {
	cfg, err := LoadConfig("")
	assert.Error(t, err)
	assert.Nil(t, cfg)
	assert.Contains(t, err.Error(), "config path is empty")
}

func TestValidate_ValidConfig(t *testing.T) {
	cfg := Defaults()
	assert.NoError(t, cfg.Validate())

	empty := &Config{}
	assert.NoError(t, empty.Validate())
}

func TestValidate_OutOfRange(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
	}{
		{"negative port", Config{Port: -1}},
		{"port too large", Config{Port: 70000}},
		{"concurrency too large", Config{Concurrency: 1000}},
		{"timeout too long", Config{Timeout: 301}},
		{"too many attempts", Config{MaxAttempts: 11}},
		{"tiny body cap", Config{MaxBodyBytes: 10}},
		{"bad database url", Config{DatabaseURL: "not a url"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), "config error")
		})
	}
}

func TestValidate_ReservedHeaders(t *testing.T) {
	for _, key := range []string{"Referer", "referer", "Cookie", "accept-encoding"} {
		cfg := &Config{Headers: map[string]string{key: "x"}}
		assert.Error(t, cfg.Validate(), key)
	}

	cfg := &Config{Headers: map[string]string{"Accept-Language": "en"}}
	assert.NoError(t, cfg.Validate())
}

func TestMergeWithDefaults(t *testing.T) {
	cfg := &Config{
		Port:    9000,
		Headers: map[string]string{"Accept-Language": "de-DE"},
	}
	defaults := Config{
		Port:        5000,
		DatabaseURL: "postgres://localhost/db",
		Timeout:     30,
		Headers:     map[string]string{"Accept-Language": "en-US", "Dnt": "1"},
	}

	merged := cfg.MergeWithDefaults(defaults)

	assert.Equal(t, 9000, merged.Port)
	assert.Equal(t, "postgres://localhost/db", merged.DatabaseURL)
	assert.Equal(t, 30, merged.Timeout)
	assert.Equal(t, "de-DE", merged.Headers["Accept-Language"])
	assert.Equal(t, "1", merged.Headers["Dnt"])
	// Original is untouched
	assert.Len(t, cfg.Headers, 1)
}

func TestMergeWithDefaults_EmptyDefaults(t *testing.T) {
	cfg := &Config{Port: 8080, UserAgent: "agent"}

	merged := cfg.MergeWithDefaults(Config{})

	assert.Equal(t, 8080, merged.Port)
	assert.Equal(t, "agent", merged.UserAgent)
	assert.Zero(t, merged.Timeout)
}

func TestDefaults_MatchFetchDefaults(t *testing.T) {
	cfg := Defaults()
	opts := cfg.FetchOptions()
	want := fetch.DefaultOptions()

	assert.Equal(t, want.Timeout, opts.Timeout)
	assert.Equal(t, want.UserAgent, opts.UserAgent)
	assert.Equal(t, want.MaxAttempts, opts.MaxAttempts)
	assert.Equal(t, want.RetryDelay, opts.RetryDelay)
	assert.Equal(t, want.MaxBodyBytes, opts.MaxBodyBytes)
	assert.Equal(t, want.Headers, opts.Headers)
	assert.Equal(t, 24*time.Hour, cfg.CacheDuration())
	assert.Equal(t, fetch.HomeURL, cfg.HomeURL)
}

func TestCacheDuration(t *testing.T) {
	assert.Equal(t, 3*time.Hour, (&Config{CacheTTL: 3}).CacheDuration())
	assert.Equal(t, 24*time.Hour, (&Config{}).CacheDuration())
}

func TestFromEnv(t *testing.T) {
	t.Setenv("PORT", "7000")
	t.Setenv("DATABASE_URL", "postgres://env/db")
	t.Setenv("FETCH_MAX_ATTEMPTS", "3")
	t.Setenv("FETCH_MAX_BODY_BYTES", "2048")

	cfg, err := FromEnv()
	require.NoError(t, err)

	assert.Equal(t, 7000, cfg.Port)
	assert.Equal(t, "postgres://env/db", cfg.DatabaseURL)
	assert.Equal(t, 3, cfg.MaxAttempts)
	assert.Equal(t, int64(2048), cfg.MaxBodyBytes)
}

func TestFromEnv_InvalidNumber(t *testing.T) {
	t.Setenv("PORT", "eighty")

	_, err := FromEnv()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid PORT")
}

func TestResolve_Precedence(t *testing.T) {
	path := writeConfig(t, `{"port": 6000, "timeout_seconds": 12, "max_attempts": 4, "verbose": true}`)
	t.Setenv("PORT", "")
	t.Setenv("FETCH_MAX_ATTEMPTS", "5")

	cfg, err := Resolve(path, Config{Timeout: 20})
	require.NoError(t, err)

	assert.Equal(t, 6000, cfg.Port)     // file
	assert.Equal(t, 5, cfg.MaxAttempts) // env beats file
	assert.Equal(t, 20, cfg.Timeout)    // explicit beats everything
	assert.Equal(t, DefaultConcurrency, cfg.Concurrency)
	assert.True(t, cfg.Verbose)
}

func TestResolve_InvalidFile(t *testing.T) {
	path := writeConfig(t, `{"port": 99999}`)

	_, err := Resolve(path, Config{})
	assert.Error(t, err)
}

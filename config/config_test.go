package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360/ruleflow/errors"
)

func writeConfig(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
	return path
}

func TestDefaultConfig_IsValid(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "ruleflow", cfg.Service.Name)
	assert.Equal(t, "nats://localhost:4222", cfg.NATS.URL)
	assert.Equal(t, BackendMemory, cfg.Store.Backend)
	assert.Equal(t, "ruleflow.events.>", cfg.Ingest.Subject)
	assert.Equal(t, 9090, cfg.Metrics.Port)
	assert.True(t, cfg.Feed.Enabled)
}

func TestLoad_NoFile(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
}

func TestLoad_FileOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := writeConfig(t, dir, "ruleflow.json", `{
		"service": {"shutdown_timeout": "30s"},
		"nats": {"url": "nats://prod.example.com:4222"},
		"store": {"backend": "sqlite", "path": "`+filepath.Join(dir, "rules.db")+`"},
		"feed": {"enabled": false}
	}`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 30*time.Second, cfg.Service.ShutdownTimeout)
	assert.Equal(t, "nats://prod.example.com:4222", cfg.NATS.URL)
	assert.Equal(t, BackendSQLite, cfg.Store.Backend)
	assert.False(t, cfg.Feed.Enabled)

	// Fields the document does not mention keep their defaults.
	assert.Equal(t, "ruleflow", cfg.Service.Name)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, 4, cfg.Ingest.Workers)
	assert.Equal(t, 9090, cfg.Metrics.Port)
}

func TestLoad_DurationStrings(t *testing.T) {
	dir := t.TempDir()
	path := writeConfig(t, dir, "durations.json", `{
		"service": {"shutdown_timeout": "1m"},
		"nats": {"reconnect_wait": "500ms", "connect_timeout": "3s"},
		"store": {"cache_ttl": "45s"},
		"dispatch": {"webhook_timeout": "2s"}
	}`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, time.Minute, cfg.Service.ShutdownTimeout)
	assert.Equal(t, 500*time.Millisecond, cfg.NATS.ReconnectWait)
	assert.Equal(t, 3*time.Second, cfg.NATS.ConnectTimeout)
	assert.Equal(t, 45*time.Second, cfg.Store.CacheTTL)
	assert.Equal(t, 2*time.Second, cfg.Dispatch.WebhookTimeout)
}

func TestLoad_NumericDurations(t *testing.T) {
	dir := t.TempDir()
	path := writeConfig(t, dir, "nanos.json",
		`{"service": {"shutdown_timeout": 5000000000}}`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 5*time.Second, cfg.Service.ShutdownTimeout)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("RULEFLOW_NATS_URL", "nats://env.example.com:4222")
	t.Setenv("RULEFLOW_LOG_LEVEL", "debug")
	t.Setenv("RULEFLOW_STORE_BACKEND", "file")
	t.Setenv("RULEFLOW_STORE_DIR", t.TempDir())
	t.Setenv("RULEFLOW_METRICS_PORT", "9191")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "nats://env.example.com:4222", cfg.NATS.URL)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, BackendFile, cfg.Store.Backend)
	assert.Equal(t, 9191, cfg.Metrics.Port)
}

func TestLoad_EnvBeatsFile(t *testing.T) {
	dir := t.TempDir()
	path := writeConfig(t, dir, "ruleflow.json",
		`{"nats": {"url": "nats://file.example.com:4222"}}`)
	t.Setenv("RULEFLOW_NATS_URL", "nats://env.example.com:4222")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "nats://env.example.com:4222", cfg.NATS.URL)
}

func TestLoad_BadMetricsPortEnv(t *testing.T) {
	t.Setenv("RULEFLOW_METRICS_PORT", "nine")

	_, err := Load("")
	require.Error(t, err)
	assert.True(t, errors.IsInvalid(err))
}

func TestLoad_FileErrors(t *testing.T) {
	dir := t.TempDir()

	t.Run("missing file", func(t *testing.T) {
		_, err := Load(filepath.Join(dir, "absent.json"))
		require.Error(t, err)
		assert.True(t, errors.IsInvalid(err))
	})

	t.Run("wrong extension", func(t *testing.T) {
		_, err := Load(filepath.Join(dir, "ruleflow.yaml"))
		require.Error(t, err)
		assert.Contains(t, err.Error(), ".json")
	})

	t.Run("path traversal", func(t *testing.T) {
		_, err := Load("../../outside/ruleflow.json")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "escapes")
	})

	t.Run("malformed document", func(t *testing.T) {
		path := writeConfig(t, dir, "broken.json", `{"service": {`)
		_, err := Load(path)
		require.Error(t, err)
		assert.True(t, errors.IsInvalid(err))
	})

	t.Run("excessive nesting", func(t *testing.T) {
		doc := strings.Repeat(`{"a":`, maxJSONDepth+1) + "1" + strings.Repeat("}", maxJSONDepth+1)
		path := writeConfig(t, dir, "deep.json", doc)
		_, err := Load(path)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "depth")
	})
}

func TestValidate_Failures(t *testing.T) {
	tests := []struct {
		name     string
		mutate   func(*Config)
		sentinel error
	}{
		{
			name:     "empty service name",
			mutate:   func(c *Config) { c.Service.Name = "" },
			sentinel: errors.ErrMissingConfig,
		},
		{
			name:     "unknown log level",
			mutate:   func(c *Config) { c.Logging.Level = "verbose" },
			sentinel: errors.ErrInvalidConfig,
		},
		{
			name:     "unknown log format",
			mutate:   func(c *Config) { c.Logging.Format = "yaml" },
			sentinel: errors.ErrInvalidConfig,
		},
		{
			name:     "empty nats url",
			mutate:   func(c *Config) { c.NATS.URL = "" },
			sentinel: errors.ErrMissingConfig,
		},
		{
			name:     "negative reconnect wait",
			mutate:   func(c *Config) { c.NATS.ReconnectWait = -time.Second },
			sentinel: errors.ErrInvalidConfig,
		},
		{
			name:     "unknown store backend",
			mutate:   func(c *Config) { c.Store.Backend = "redis" },
			sentinel: errors.ErrInvalidConfig,
		},
		{
			name:     "file backend without dir",
			mutate:   func(c *Config) { c.Store.Backend = BackendFile },
			sentinel: errors.ErrMissingConfig,
		},
		{
			name:     "sqlite backend without path",
			mutate:   func(c *Config) { c.Store.Backend = BackendSQLite },
			sentinel: errors.ErrMissingConfig,
		},
		{
			name:     "negative cache ttl",
			mutate:   func(c *Config) { c.Store.CacheTTL = -time.Minute },
			sentinel: errors.ErrInvalidConfig,
		},
		{
			name:     "metrics port out of range",
			mutate:   func(c *Config) { c.Metrics.Port = 0 },
			sentinel: errors.ErrInvalidConfig,
		},
		{
			name:     "metrics path without slash",
			mutate:   func(c *Config) { c.Metrics.Path = "metrics" },
			sentinel: errors.ErrInvalidConfig,
		},
		{
			name:     "tls enabled without cert",
			mutate:   func(c *Config) { c.NATS.TLS.Enabled = true },
			sentinel: errors.ErrMissingConfig,
		},
		{
			name: "tls cert file does not exist",
			mutate: func(c *Config) {
				c.NATS.TLS.Enabled = true
				c.NATS.TLS.CertFile = "/nonexistent/cert.pem"
				c.NATS.TLS.KeyFile = "/nonexistent/key.pem"
			},
		},
		{
			name:     "feed enabled without addr",
			mutate:   func(c *Config) { c.Feed.Addr = "" },
			sentinel: errors.ErrMissingConfig,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)

			err := cfg.Validate()
			require.Error(t, err)
			assert.True(t, errors.IsInvalid(err), "config errors classify as invalid")
			if tt.sentinel != nil {
				assert.ErrorIs(t, err, tt.sentinel)
			}
		})
	}
}

func TestString_RedactsCredentials(t *testing.T) {
	cfg := DefaultConfig()
	cfg.NATS.Username = "svc-ruleflow"
	cfg.NATS.Password = "hunter2"
	cfg.NATS.Token = "s3cr3t-token"

	out := cfg.String()

	assert.NotContains(t, out, "hunter2")
	assert.NotContains(t, out, "s3cr3t-token")
	assert.Contains(t, out, "[redacted]")
	assert.Contains(t, out, "svc-ruleflow")

	// The original is untouched.
	assert.Equal(t, "hunter2", cfg.NATS.Password)
}

func TestSaveToFile_RoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "saved.json")

	cfg := DefaultConfig()
	cfg.Store.Backend = BackendSQLite
	cfg.Store.Path = filepath.Join(dir, "rules.db")
	cfg.Dispatch.WebhookTimeout = 4 * time.Second

	require.NoError(t, cfg.SaveToFile(path))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, loaded)
}

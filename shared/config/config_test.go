package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	t.Setenv("CONFIG_FILE", path)
}

func TestLoadDefaultsWithoutFile(t *testing.T) {
	t.Setenv("CONFIG_FILE", filepath.Join(t.TempDir(), "missing.yaml"))
	t.Setenv("GEMINI_API_KEY", "")
	t.Setenv("REDIS_ADDRESS", "")

	cfg, err := Load()
	require.NoError(t, err)

	assert.False(t, cfg.RemoteEnabled())
	assert.Equal(t, "gemini-2.5-flash", cfg.AI.Model)
	assert.Equal(t, 3, cfg.AI.MaxAttempts)
	assert.Equal(t, 60*time.Second, cfg.AI.RetryDelay)
	assert.Equal(t, 100, cfg.Cache.MaxEntries)
	assert.Equal(t, 30*time.Minute, cfg.Cache.MaxAge)
	assert.Equal(t, 15, cfg.RateLimit.MaxPerWindow)
	assert.Equal(t, time.Minute, cfg.RateLimit.Window)
	assert.Equal(t, 4*time.Second, cfg.RateLimit.MinInterval)
	assert.Equal(t, "file", cfg.Storage.Backend)
	assert.Equal(t, "localhost:6379", cfg.Storage.Redis.Address)
	assert.Equal(t, 8080, cfg.Monitoring.HealthPort)
	assert.Equal(t, "0 */5 * * * *", cfg.Schedule)
}

func TestLoadFromYAMLAndEnv(t *testing.T) {
	writeConfig(t, `
ai:
  model: gemini-2.5-pro
  retry_delay: 30s
cache:
  max_entries: 10
  max_age: 5m
rate_limit:
  min_interval: 2s
storage:
  backend: redis
  redis:
    key_prefix: "test:"
agent:
  inbox_dir: /tmp/inbox
schedule: "@every 1m"
`)
	t.Setenv("GEMINI_API_KEY", "secret")
	t.Setenv("REDIS_ADDRESS", "redis:6379")

	cfg, err := Load()
	require.NoError(t, err)

	assert.True(t, cfg.RemoteEnabled())
	assert.Equal(t, "gemini-2.5-pro", cfg.AI.Model)
	assert.Equal(t, 30*time.Second, cfg.AI.RetryDelay)
	assert.Equal(t, 10, cfg.Cache.MaxEntries)
	assert.Equal(t, 5*time.Minute, cfg.Cache.MaxAge)
	assert.Equal(t, 2*time.Second, cfg.RateLimit.MinInterval)
	assert.Equal(t, "redis", cfg.Storage.Backend)
	assert.Equal(t, "redis:6379", cfg.Storage.Redis.Address)
	assert.Equal(t, "test:", cfg.Storage.Redis.KeyPrefix)
	assert.Equal(t, "/tmp/inbox", cfg.Agent.InboxDir)
	assert.Equal(t, "@every 1m", cfg.Schedule)
}

func TestLoadValidation(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"negative attempts", "ai:\n  max_attempts: -1\n"},
		{"negative cache size", "cache:\n  max_entries: -5\n"},
		{"negative window", "rate_limit:\n  window: -1s\n"},
		{"unknown backend", "storage:\n  backend: postgres\n"},
		{"malformed yaml", "ai: [unclosed\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			writeConfig(t, tt.content)
			_, err := Load()
			assert.Error(t, err)
		})
	}
}

func TestNewLogger(t *testing.T) {
	cfg := &Config{Logging: LoggingConfig{Level: "debug", Format: "json"}}
	logger, err := cfg.NewLogger()
	require.NoError(t, err)
	assert.Equal(t, logrus.DebugLevel, logger.GetLevel())
	assert.IsType(t, &logrus.JSONFormatter{}, logger.Formatter)

	cfg.Logging.Level = "loud"
	_, err = cfg.NewLogger()
	assert.Error(t, err)
}

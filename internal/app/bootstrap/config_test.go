package bootstrap

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaultsWithoutFile(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)
	assert.Equal(t, 8080, cfg.HTTPPort)
	assert.Equal(t, 14*24*time.Hour, cfg.HoldPeriod)
	assert.Equal(t, 3, cfg.MaxRejected)
	assert.True(t, cfg.EmbeddedWorkers, "memory store runs its own workers")
}

func TestLoadConfigFileThenEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
service:
  http_port: 8181
dependencies:
  postgres_url: postgres://file
  kafka_brokers: [k1:9092]
events:
  topics:
    sala.created: sala.lifecycle
escrow:
  hold_period: 48h
  max_rejected_attempts: 5
`), 0o600))

	t.Setenv("HOLD_PERIOD", "72h")
	t.Setenv("KAFKA_BROKERS", "a:9092, b:9092,")
	t.Setenv("RATE_LIMIT_PER_SECOND", "2.5")

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, 8181, cfg.HTTPPort)
	assert.Equal(t, "postgres://file", cfg.DatabaseURL)
	assert.Equal(t, 72*time.Hour, cfg.HoldPeriod)
	assert.Equal(t, 5, cfg.MaxRejected)
	assert.Equal(t, []string{"a:9092", "b:9092"}, cfg.KafkaBrokers)
	assert.Equal(t, "sala.lifecycle", cfg.KafkaTopics["sala.created"])
	assert.InDelta(t, 2.5, cfg.RateLimitPerSec, 0.0001)
	assert.False(t, cfg.EmbeddedWorkers)
}

func TestLoadConfigRejectsBadHoldPeriod(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("escrow:\n  hold_period: soon\n"), 0o600))
	_, err := LoadConfig(path)
	require.Error(t, err)
}

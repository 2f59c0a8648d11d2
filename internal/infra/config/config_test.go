package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromEnvDefaults(t *testing.T) {
	t.Setenv("APP_ENV", "dev")

	cfg, err := FromEnv()
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.HTTPAddr)
	assert.Equal(t, DriverMemory, cfg.StorageDriver)
	assert.Equal(t, NotifierLog, cfg.Notifier)
	assert.Equal(t, "booking_updates", cfg.RedisChannel)
	assert.Equal(t, []time.Duration{20 * time.Millisecond, 100 * time.Millisecond, 500 * time.Millisecond}, cfg.RetryBackoff)
	assert.Equal(t, 256, cfg.NotifyQueueSize)
	assert.True(t, cfg.AutoMigrate)
	assert.True(t, cfg.IsDev())
}

func TestFromEnvOverrides(t *testing.T) {
	t.Setenv("APP_ENV", "prod")
	t.Setenv("JWT_SECRET", "s3cret")
	t.Setenv("STORAGE_DRIVER", "Postgres")
	t.Setenv("DATABASE_URL", "postgres://localhost/grabit?sslmode=disable")
	t.Setenv("NOTIFIER", "kafka")
	t.Setenv("KAFKA_BROKERS", "k1:9092, k2:9092,")
	t.Setenv("RETRY_BACKOFF", "5ms")
	t.Setenv("RATE_LIMIT_RPS", "2.5")
	t.Setenv("AUTO_MIGRATE", "off")

	cfg, err := FromEnv()
	require.NoError(t, err)

	assert.Equal(t, DriverPostgres, cfg.StorageDriver)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.KafkaBrokers)
	assert.Equal(t, []time.Duration{5 * time.Millisecond}, cfg.RetryBackoff)
	assert.Equal(t, 2.5, cfg.RateLimitRPS)
	assert.False(t, cfg.AutoMigrate)
	assert.False(t, cfg.IsDev())
}

func TestFromEnvValidation(t *testing.T) {
	cases := map[string]map[string]string{
		"postgres without url":  {"APP_ENV": "dev", "STORAGE_DRIVER": "postgres"},
		"mongo without uri":     {"APP_ENV": "dev", "STORAGE_DRIVER": "mongo"},
		"unknown driver":        {"APP_ENV": "dev", "STORAGE_DRIVER": "sqlite"},
		"kafka without brokers": {"APP_ENV": "dev", "NOTIFIER": "kafka"},
		"prod without secret":   {"APP_ENV": "prod"},
		"bad duration":          {"APP_ENV": "dev", "IDEMP_TTL": "forever"},
		"bad backoff":           {"APP_ENV": "dev", "RETRY_BACKOFF": "1s,soon"},
		"bad bool":              {"APP_ENV": "dev", "AUTO_MIGRATE": "maybe"},
		"bad queue size":        {"APP_ENV": "dev", "NOTIFY_QUEUE_SIZE": "0"},
	}
	for name, env := range cases {
		t.Run(name, func(t *testing.T) {
			for k, v := range env {
				t.Setenv(k, v)
			}
			_, err := FromEnv()
			assert.Error(t, err)
		})
	}
}

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultIsValid(t *testing.T) {
	require.NoError(t, Default().Validate())
}

func TestFromEnv(t *testing.T) {
	t.Run("environment overrides defaults", func(t *testing.T) {
		t.Setenv("HOSPITAL_ADDR", ":9090")
		t.Setenv("HOSPITAL_MAX_STRING_LEN", "10")
		t.Setenv("STORAGE_BACKEND", BackendPostgres)
		t.Setenv("DATABASE_URL", "postgres://localhost/hospitals")
		t.Setenv("DATABASE_DRIVER", "postgres")
		t.Setenv("EVENT_SINK", SinkKafka)
		t.Setenv("KAFKA_BROKERS", "a:9092, b:9092,a:9092")
		t.Setenv("OUTBOX_POLL_INTERVAL", "250ms")

		cfg, err := FromEnv()
		require.NoError(t, err)
		require.NoError(t, cfg.Validate())

		assert.Equal(t, ":9090", cfg.Server.Addr)
		assert.Equal(t, uint32(10), cfg.Registry.MaxStringLen)
		assert.Equal(t, BackendPostgres, cfg.Storage.Backend)
		assert.Equal(t, "postgres", cfg.Database.Driver)
		assert.Equal(t, []string{"a:9092", "b:9092"}, cfg.Events.KafkaBrokers)
		assert.Equal(t, 250*time.Millisecond, cfg.Events.OutboxPollInterval)
	})

	t.Run("malformed numbers are reported", func(t *testing.T) {
		t.Setenv("HOSPITAL_MAX_STRING_LEN", "ten")
		t.Setenv("REDIS_DIAL_TIMEOUT", "soon")

		_, err := FromEnv()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "HOSPITAL_MAX_STRING_LEN")
		assert.Contains(t, err.Error(), "REDIS_DIAL_TIMEOUT")
	})

	t.Run("yaml file is applied before the environment", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "hospital.yaml")
		require.NoError(t, os.WriteFile(path, []byte(`
server:
  addr: ":7000"
registry:
  max_string_len: 32
redis:
  url: redis://localhost:6379/0
  dial_timeout: 2s
storage:
  backend: redis
`), 0o600))
		t.Setenv("HOSPITAL_CONFIG", path)
		t.Setenv("HOSPITAL_ADDR", ":7001")

		cfg, err := FromEnv()
		require.NoError(t, err)
		require.NoError(t, cfg.Validate())
		assert.Equal(t, ":7001", cfg.Server.Addr)
		assert.Equal(t, uint32(32), cfg.Registry.MaxStringLen)
		assert.Equal(t, BackendRedis, cfg.Storage.Backend)
		assert.Equal(t, 2*time.Second, cfg.Redis.DialTimeout)
		assert.Equal(t, 3*time.Second, cfg.Redis.ReadTimeout)
	})
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"zero max length", func(c *Config) { c.Registry.MaxStringLen = 0 }, "max_string_len"},
		{"unknown backend", func(c *Config) { c.Storage.Backend = "sqlite" }, "storage.backend"},
		{"postgres without url", func(c *Config) { c.Storage.Backend = BackendPostgres }, "database.url"},
		{"unknown driver", func(c *Config) {
			c.Storage.Backend = BackendPostgres
			c.Database.URL = "postgres://x"
			c.Database.Driver = "mysql"
		}, "database.driver"},
		{"redis without url", func(c *Config) { c.Storage.Backend = BackendRedis }, "redis.url"},
		{"kafka without brokers", func(c *Config) { c.Events.Sink = SinkKafka }, "kafka_brokers"},
		{"nats without url", func(c *Config) { c.Events.Sink = SinkNATS }, "nats_url"},
		{"bad log level", func(c *Config) { c.Log.Level = "verbose" }, "log.level"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(&cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

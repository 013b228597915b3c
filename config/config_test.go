package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	for _, key := range []string{"PORT", "DB_DRIVER", "DATABASE_PATH", "DATABASE_URL", "KEY_LOCK_MODE", "REDIS_URL", "CORS_ALLOWED_ORIGINS", "MAX_CHAIN_HOPS", "REQUEST_TIMEOUT_SECONDS", "KEY_LOCK_TTL_SECONDS"} {
		t.Setenv(key, "")
	}

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, DriverSQLite, cfg.DatabaseDriver)
	assert.Equal(t, "identity.db", cfg.DatabasePath)
	assert.Equal(t, KeyLockNone, cfg.KeyLockMode)
	assert.Equal(t, []string{"http://localhost:5173"}, cfg.CORSAllowedOrigins)
	assert.Equal(t, 10000, cfg.MaxChainHops)
	assert.Equal(t, 60*time.Second, cfg.RequestTimeout)
	assert.Equal(t, 70*time.Second, cfg.KeyLockTTL)
}

func TestLoadConfigKeyLockTTL(t *testing.T) {
	t.Setenv("DB_DRIVER", "memory")
	t.Setenv("KEY_LOCK_MODE", "redis")
	t.Setenv("REDIS_URL", "redis://localhost:6379/0")

	t.Run("default follows request timeout", func(t *testing.T) {
		t.Setenv("REQUEST_TIMEOUT_SECONDS", "20")
		t.Setenv("KEY_LOCK_TTL_SECONDS", "")
		cfg, err := LoadConfig()
		require.NoError(t, err)
		assert.Equal(t, 30*time.Second, cfg.KeyLockTTL)
	})

	t.Run("explicit lease longer than requests", func(t *testing.T) {
		t.Setenv("REQUEST_TIMEOUT_SECONDS", "20")
		t.Setenv("KEY_LOCK_TTL_SECONDS", "25")
		cfg, err := LoadConfig()
		require.NoError(t, err)
		assert.Equal(t, 25*time.Second, cfg.KeyLockTTL)
	})

	t.Run("lease shorter than requests", func(t *testing.T) {
		t.Setenv("REQUEST_TIMEOUT_SECONDS", "60")
		t.Setenv("KEY_LOCK_TTL_SECONDS", "10")
		_, err := LoadConfig()
		assert.ErrorContains(t, err, "KEY_LOCK_TTL_SECONDS")
	})

	t.Run("short lease is fine without redis locking", func(t *testing.T) {
		t.Setenv("KEY_LOCK_MODE", "local")
		t.Setenv("REQUEST_TIMEOUT_SECONDS", "60")
		t.Setenv("KEY_LOCK_TTL_SECONDS", "10")
		_, err := LoadConfig()
		assert.NoError(t, err)
	})
}

func TestLoadConfigOverrides(t *testing.T) {
	t.Setenv("DB_DRIVER", "Postgres")
	t.Setenv("DATABASE_URL", "postgres://identity@localhost/identity?sslmode=disable")
	t.Setenv("KEY_LOCK_MODE", "redis")
	t.Setenv("REDIS_URL", "redis://localhost:6379/0")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.example.com, https://b.example.com,")
	t.Setenv("NUM_EVENT_WORKERS", "not-a-number")
	t.Setenv("LOG_PRETTY", "true")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, DriverPostgres, cfg.DatabaseDriver)
	assert.Equal(t, KeyLockRedis, cfg.KeyLockMode)
	assert.Equal(t, []string{"https://a.example.com", "https://b.example.com"}, cfg.CORSAllowedOrigins)
	assert.Equal(t, defaultNumEventWorkers, cfg.NumEventWorkers)
	assert.True(t, cfg.LogPretty)
}

func TestLoadConfigRejectsInvalidSettings(t *testing.T) {
	t.Run("unknown driver", func(t *testing.T) {
		t.Setenv("DB_DRIVER", "oracle")
		_, err := LoadConfig()
		assert.Error(t, err)
	})

	t.Run("postgres without url", func(t *testing.T) {
		t.Setenv("DB_DRIVER", "postgres")
		t.Setenv("DATABASE_URL", "")
		_, err := LoadConfig()
		assert.Error(t, err)
	})

	t.Run("redis locking without redis", func(t *testing.T) {
		t.Setenv("DB_DRIVER", "memory")
		t.Setenv("KEY_LOCK_MODE", "redis")
		t.Setenv("REDIS_URL", "")
		_, err := LoadConfig()
		assert.Error(t, err)
	})
}

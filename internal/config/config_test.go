package config

import (
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0:8080", cfg.HTTPAddr)
	assert.Equal(t, slog.LevelInfo, cfg.LogLevel)
	assert.Equal(t, BackendMemory, cfg.PollStore)
	assert.Equal(t, BackendMemory, cfg.VoteLedger)
	assert.False(t, cfg.VoteUniqueVoter)
	assert.Equal(t, 3, cfg.StorageRetryAttempts)
	assert.Equal(t, 50*time.Millisecond, cfg.StorageRetryDelay)
	assert.Equal(t, []string{"*"}, cfg.CORSAllowedOrigins)
	assert.Empty(t, cfg.RabbitMQURL)
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("HTTP_ADDR", ":9090")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("POLL_STORE", "postgres")
	t.Setenv("VOTE_LEDGER", "redis")
	t.Setenv("POSTGRES_HOST", "db")
	t.Setenv("VOTE_UNIQUE_VOTER", "true")
	t.Setenv("VOTE_RATE_LIMIT", "0")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.example, https://b.example,")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":9090", cfg.HTTPAddr)
	assert.Equal(t, slog.LevelDebug, cfg.LogLevel)
	assert.Equal(t, BackendPostgres, cfg.PollStore)
	assert.Equal(t, BackendRedis, cfg.VoteLedger)
	assert.Equal(t, "db", cfg.Postgres.Host)
	assert.True(t, cfg.VoteUniqueVoter)
	assert.Zero(t, cfg.VoteRateLimit)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.CORSAllowedOrigins)
}

func TestLoadInvalid(t *testing.T) {
	cases := map[string]map[string]string{
		"unknown store":            {"POLL_STORE": "mysql"},
		"unknown ledger":           {"VOTE_LEDGER": "kafka"},
		"postgres ledger needs db": {"VOTE_LEDGER": "postgres"},
		"bad bool":                 {"VOTE_UNIQUE_VOTER": "maybe"},
		"bad level":                {"LOG_LEVEL": "loud"},
		"zero retries":             {"STORAGE_RETRY_ATTEMPTS": "0"},
	}

	for name, env := range cases {
		t.Run(name, func(t *testing.T) {
			for k, v := range env {
				t.Setenv(k, v)
			}
			_, err := Load()
			assert.Error(t, err)
		})
	}
}

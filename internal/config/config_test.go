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

	assert.Equal(t, "127.0.0.1:8080", cfg.Addr())
	assert.Equal(t, slog.LevelInfo, cfg.LogLevel)
	assert.Equal(t, StorageMemory, cfg.Storage)
	assert.Equal(t, 3, cfg.MaxKickAttempts)
	assert.Equal(t, 500*time.Millisecond, cfg.SoftlockInterval)
	assert.Empty(t, cfg.OperatorTokenHash)
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("HOSTGUARD_PORT", "9000")
	t.Setenv("HOSTGUARD_LOG_LEVEL", "debug")
	t.Setenv("HOSTGUARD_STORAGE", "sqlite")
	t.Setenv("HOSTGUARD_KICK_COOLDOWN", "1500ms")
	t.Setenv("HOSTGUARD_SIM_DROP_PERCENT", "40")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 9000, cfg.Port)
	assert.Equal(t, slog.LevelDebug, cfg.LogLevel)
	assert.Equal(t, StorageSQLite, cfg.Storage)
	assert.Equal(t, 1500*time.Millisecond, cfg.KickCooldown)
	assert.Equal(t, 40, cfg.SimDropPercent)
}

func TestLoadParseError(t *testing.T) {
	t.Setenv("HOSTGUARD_PORT", "not-an-int")

	_, err := Load()

	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse env:")
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		env    map[string]string
		errMsg string
	}{
		{
			name:   "redis without url",
			env:    map[string]string{"HOSTGUARD_STORAGE": "redis"},
			errMsg: "HOSTGUARD_REDIS_URL is required",
		},
		{
			name:   "unknown storage",
			env:    map[string]string{"HOSTGUARD_STORAGE": "etcd"},
			errMsg: "invalid HOSTGUARD_STORAGE",
		},
		{
			name:   "zero attempts",
			env:    map[string]string{"HOSTGUARD_MAX_KICK_ATTEMPTS": "0"},
			errMsg: "HOSTGUARD_MAX_KICK_ATTEMPTS",
		},
		{
			name:   "zero poll interval",
			env:    map[string]string{"HOSTGUARD_POLL_INTERVAL": "0s"},
			errMsg: "HOSTGUARD_POLL_INTERVAL must be positive",
		},
		{
			name:   "drop percent out of range",
			env:    map[string]string{"HOSTGUARD_SIM_DROP_PERCENT": "101"},
			errMsg: "out of range",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}

			_, err := Load()

			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}
}

func TestToEngineConfig(t *testing.T) {
	t.Setenv("HOSTGUARD_MAX_KICK_ATTEMPTS", "5")
	t.Setenv("HOSTGUARD_REMOVAL_GRACE", "20s")
	t.Setenv("HOSTGUARD_LOAD_CHUNK", "50")
	cfg, err := Load()
	require.NoError(t, err)

	engineCfg := cfg.ToEngineConfig()

	assert.Equal(t, 5, engineCfg.Kick.MaxAttempts)
	assert.Equal(t, 3*time.Second, engineCfg.Kick.Cooldown)
	assert.Equal(t, 20*time.Second, engineCfg.Kick.RemovalGrace)
	assert.Equal(t, 50, engineCfg.LoadChunkSize)
	assert.Equal(t, time.Second, engineCfg.PollInterval)
}

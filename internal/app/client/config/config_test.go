package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stockkeeper/internal/domain/conflict"
	"stockkeeper/internal/domain/sale"
)

func TestLoad_Defaults(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("CONFIG_DIR", dir)

	cfg, err := Load(viper.New(), "")
	require.NoError(t, err)

	assert.True(t, cfg.IsLocal())
	assert.Equal(t, "http://localhost:8080", cfg.ServerAddress)
	assert.Equal(t, "ws://localhost:8080/ws", cfg.PushAddress)
	assert.Equal(t, filepath.Join(dir, "stockkeeper.db"), cfg.DataPath)
	assert.Equal(t, filepath.Join(dir, "state.json"), cfg.StatePath)
	assert.Equal(t, 30*time.Second, cfg.SyncInterval)
	assert.Equal(t, 50, cfg.BatchSize)
	assert.Equal(t, 3, cfg.QueueMaxRetries)
	assert.Equal(t, 200*time.Millisecond, cfg.RemoteBackoff)
	assert.Equal(t, conflict.LatestWins, cfg.ConflictStrategy)
	assert.Equal(t, sale.OversellAllow, cfg.OversellPolicy)
	assert.True(t, cfg.IncrementalPull)
}

func TestLoad_Env(t *testing.T) {
	t.Setenv("CONFIG_DIR", t.TempDir())
	t.Setenv("APP_ENV", "prod")
	t.Setenv("SERVER_ADDRESS", "https://pos.example.com/api/")
	t.Setenv("SYNC_INTERVAL_SECONDS", "5")
	t.Setenv("CONFLICT_STRATEGY", "server-wins")
	t.Setenv("OVERSELL_POLICY", "reject")
	t.Setenv("INCREMENTAL_PULL", "false")

	cfg, err := Load(viper.New(), "")
	require.NoError(t, err)

	assert.True(t, cfg.IsProd())
	assert.Equal(t, "https://pos.example.com/api", cfg.ServerAddress)
	assert.Equal(t, "wss://pos.example.com/api/ws", cfg.PushAddress)
	assert.Equal(t, 5*time.Second, cfg.SyncInterval)
	assert.Equal(t, conflict.ServerWins, cfg.ConflictStrategy)
	assert.Equal(t, sale.OversellReject, cfg.OversellPolicy)
	assert.False(t, cfg.IncrementalPull)
}

func TestLoad_ConfigFile(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("CONFIG_DIR", dir)

	path := filepath.Join(dir, "custom.yaml")
	require.NoError(t, os.WriteFile(path, []byte("sync_batch_size: 10\npush_address: ws://push:9000/ws\n"), 0600))

	cfg, err := Load(viper.New(), path)
	require.NoError(t, err)
	assert.Equal(t, 10, cfg.BatchSize)
	assert.Equal(t, "ws://push:9000/ws", cfg.PushAddress)

	_, err = Load(viper.New(), filepath.Join(dir, "missing.yaml"))
	assert.Error(t, err)
}

func TestLoad_Invalid(t *testing.T) {
	t.Setenv("CONFIG_DIR", t.TempDir())

	t.Run("strategy", func(t *testing.T) {
		t.Setenv("CONFLICT_STRATEGY", "coin-flip")
		_, err := Load(viper.New(), "")
		assert.Error(t, err)
	})

	t.Run("batch size", func(t *testing.T) {
		t.Setenv("SYNC_BATCH_SIZE", "0")
		_, err := Load(viper.New(), "")
		assert.Error(t, err)
	})
}

func TestPushAddress(t *testing.T) {
	assert.Equal(t, "ws://10.0.0.5:8080/ws", pushAddress("10.0.0.5:8080"))
	assert.Equal(t, "wss://host/ws", pushAddress("https://host"))
}

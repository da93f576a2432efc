package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Equal(t, "info", cfg.Server.LogLevel)
	assert.Equal(t, "memory", cfg.Store.Backend)
	assert.Equal(t, 10, cfg.Table.MinBet)
	assert.Equal(t, 30*time.Second, cfg.Table.PlayerTimeout)
	assert.Equal(t, 2*time.Second, cfg.Table.BotDelay)
	assert.Equal(t, 100, cfg.Table.BotCallThreshold)
	assert.Equal(t, 3, cfg.Table.MaxStalls)
}

func TestLoadMissingFileFallsBackToDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "memory", cfg.Store.Backend)
}

func TestLoadFileOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	raw := []byte("server:\n  addr: \":9999\"\nstore:\n  backend: redis\ntable:\n  playertimeout: 5s\n")
	require.NoError(t, os.WriteFile(path, raw, 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, ":9999", cfg.Server.Addr)
	assert.Equal(t, "redis", cfg.Store.Backend)
	assert.Equal(t, 5*time.Second, cfg.Table.PlayerTimeout)
	assert.Equal(t, 10, cfg.Table.MinBet, "untouched keys keep their defaults")
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("HOLDEM_STORE_BACKEND", "postgres")
	t.Setenv("HOLDEM_SERVER_ADDR", ":7070")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "postgres", cfg.Store.Backend)
	assert.Equal(t, ":7070", cfg.Server.Addr)
}

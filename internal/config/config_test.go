package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(t.TempDir())
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.ServerAddress)
	assert.Equal(t, "file", cfg.StoreDriver)
	assert.Equal(t, "file://./data", cfg.StoreURL)
	assert.Equal(t, "gpt-4o-mini", cfg.OpenAIModel)
	assert.Equal(t, 30*time.Minute, cfg.PreviewIdleTimeout)
	assert.Equal(t, 24*time.Hour, cfg.PreviewMaxAge)
	assert.True(t, cfg.VerifySyntax)
}

func TestLoad_FileThenEnvironment(t *testing.T) {
	dir := t.TempDir()
	yaml := "SERVER_ADDRESS: \":9090\"\nSTORE_DRIVER: sqlite\nPREVIEW_IDLE_TIMEOUT: 5m\nVERIFY_SYNTAX: false\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0o644))
	t.Setenv("STORE_DRIVER", "memory")

	cfg, err := Load(dir)
	require.NoError(t, err)
	assert.Equal(t, ":9090", cfg.ServerAddress)
	assert.Equal(t, "memory", cfg.StoreDriver)
	assert.Equal(t, 5*time.Minute, cfg.PreviewIdleTimeout)
	assert.False(t, cfg.VerifySyntax)
}

func TestLoad_RejectsUnknownDriver(t *testing.T) {
	t.Setenv("STORE_DRIVER", "postgres")
	_, err := Load(t.TempDir())
	assert.ErrorContains(t, err, "STORE_DRIVER")
}

func TestLoad_BadFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte("SERVER_ADDRESS: [unclosed\n"), 0o644))
	_, err := Load(dir)
	assert.ErrorContains(t, err, "reading config file")
}

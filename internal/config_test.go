package internal

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "petrel.yaml")
	yaml := `
app_name: petrel-test
storage:
  mode: memory
  workdir: /tmp/petrel
  pool_capacity: 64
log:
  level: debug
`
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0o644))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "petrel-test", cfg.AppName)
	assert.Equal(t, "memory", cfg.Storage.Mode)
	assert.Equal(t, "/tmp/petrel", cfg.Storage.Workdir)
	assert.Equal(t, 64, cfg.Storage.PoolCapacity)
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestLoadConfigDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "petrel.yaml")
	require.NoError(t, os.WriteFile(path, []byte("app_name: mini\n"), 0o644))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "mini", cfg.AppName)
	assert.Equal(t, "file", cfg.Storage.Mode)
	assert.Equal(t, 128, cfg.Storage.PoolCapacity)
	assert.Equal(t, "info", cfg.Log.Level)
}

func TestLoadConfigMissingFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
}

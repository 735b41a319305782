package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/knzhou-cli/knzhou/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigInitAndGet(t *testing.T) {
	dir := isolateEnv(t)
	path := filepath.Join(dir, "config.toml")

	out, err := executeCmd(t, "config", "get")
	require.NoError(t, err)
	assert.Contains(t, out, path)
	assert.Contains(t, out, "not created")
	assert.Contains(t, out, "{handout}")

	out, err = executeCmd(t, "config", "init")
	require.NoError(t, err)
	assert.Contains(t, out, "wrote "+path)

	cfg, err := config.LoadFromFile(path)
	require.NoError(t, err)
	assert.Equal(t, config.DefaultFormat, cfg.Format)

	_, err = executeCmd(t, "config", "init")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already exists")

	require.NoError(t, os.WriteFile(path, []byte("format = \"x-{handout}\"\n"), 0o644))
	out, err = executeCmd(t, "config", "get")
	require.NoError(t, err)
	assert.Contains(t, out, "x-{handout}")
	assert.NotContains(t, out, "not created")

	_, err = executeCmd(t, "config", "init", "--force")
	require.NoError(t, err)
	cfg, err = config.LoadFromFile(path)
	require.NoError(t, err)
	assert.Equal(t, config.DefaultFormat, cfg.Format)
}

func TestConfigInit_ExplicitPath(t *testing.T) {
	isolateEnv(t)
	path := filepath.Join(t.TempDir(), "nested", "knzhou.toml")

	_, err := executeCmd(t, "--config", path, "config", "init")
	require.NoError(t, err)
	assert.FileExists(t, path)
}

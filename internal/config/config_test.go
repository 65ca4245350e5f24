package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := Load("")
	require.NoError(t, err)
	wd, err := os.Getwd()
	require.NoError(t, err)
	assert.Equal(t, "", cfg.Catalog.URL)
	assert.Equal(t, "parameters.xml", cfg.Catalog.Key)
	assert.Equal(t, "file://"+filepath.ToSlash(wd), cfg.Store.URL)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.False(t, cfg.Log.JSON)
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "prmsparam.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
verbose = true

[catalog]
url = "file:///srv/prms"

[log]
json = true
level = "debug"
`), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.True(t, cfg.Verbose)
	assert.Equal(t, "file:///srv/prms", cfg.Catalog.URL)
	assert.Equal(t, "parameters.xml", cfg.Catalog.Key)
	assert.True(t, cfg.Log.JSON)
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestLoadEnv(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("PRMS_STORE_URL", "mem://")
	t.Setenv("PRMS_LOG_LEVEL", "warn")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "mem://", cfg.Store.URL)
	assert.Equal(t, "warn", cfg.Log.Level)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.toml"))
	require.Error(t, err)
}

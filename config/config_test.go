package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadMissingExplicitFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "error reading config file")
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := []byte(`
server:
  port: 8081
logging:
  level: debug
upload:
  max_upload_bytes: 1024
`)
	require.NoError(t, os.WriteFile(path, content, 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 8081, cfg.Server.Port)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, int64(1024), cfg.Upload.MaxUploadBytes)
	// untouched keys keep their defaults
	assert.Equal(t, 30*time.Second, cfg.Server.ReadTimeout)
	assert.True(t, cfg.Upload.IncludeAuxiliaryParts)
	assert.Equal(t, "./data/uploads", cfg.Storage.BasePath)
	assert.Same(t, cfg, Get())
}

func TestDatabaseURLFromEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server:\n  port: 1\n"), 0o644))

	t.Setenv("DATABASE_URL", "postgres://u:p@localhost:5432/intake")
	_, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "postgres://u:p@localhost:5432/intake", GetDatabaseURL())
}

func TestLoadEnvFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	content := []byte("# local overrides\nINTAKE_TEST_NEW=\"from file\"\nINTAKE_TEST_SET=from file\n")
	require.NoError(t, os.WriteFile(path, content, 0o644))

	t.Setenv("INTAKE_TEST_SET", "from env")
	t.Cleanup(func() { os.Unsetenv("INTAKE_TEST_NEW") })

	require.NoError(t, loadEnvFile([]string{filepath.Join(dir, "missing.env"), path}))
	assert.Equal(t, "from file", os.Getenv("INTAKE_TEST_NEW"))
	// existing variables win over the file
	assert.Equal(t, "from env", os.Getenv("INTAKE_TEST_SET"))

	assert.Error(t, loadEnvFile([]string{filepath.Join(dir, "missing.env")}))
}

package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadCreatesDefaultFile(t *testing.T) {
	t.Setenv("MEETGRID_ENV", "")
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig().Listen, cfg.Listen)
	assert.Equal(t, "Asia/Tokyo", cfg.Timezone)
	assert.Equal(t, 90, cfg.TTLDays)

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
}

func TestLoadNormalizesPartialFile(t *testing.T) {
	t.Setenv("MEETGRID_ENV", "")
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
listen: ":9000"
timezone: America/New_York
base_url: https://meet.example.com/
storage:
  driver: sqlite
log:
  format: xml
`), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, ":9000", cfg.Listen)
	assert.Equal(t, "America/New_York", cfg.Timezone)
	assert.Equal(t, "https://meet.example.com", cfg.BaseURL)
	assert.Equal(t, "memory", cfg.Storage.Driver)
	assert.Equal(t, "text", cfg.Log.Format)
	assert.Equal(t, 20, cfg.MaxGuestsSoftLimit)
	assert.Equal(t, "0 * * * *", cfg.PurgeCron)
	assert.Nil(t, cfg.BasicAuth)
}

func TestLoadRejectsBadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("listen: [unterminated"), 0o600))

	_, err := Load(path)
	assert.Error(t, err)

	_, err = Load("")
	assert.Error(t, err)
}

func TestApplyEnvOverrides(t *testing.T) {
	t.Setenv("MEETGRID_ENV", "production")
	t.Setenv("MEETGRID_LISTEN", "0.0.0.0:80")
	t.Setenv("MEETGRID_DATABASE_URL", "postgres://u:p@db/meetgrid?sslmode=disable")
	t.Setenv("MEETGRID_LOG_LEVEL", "debug")

	cfg := DefaultConfig()
	cfg.ApplyEnv()

	assert.Equal(t, "0.0.0.0:80", cfg.Listen)
	assert.Equal(t, "postgres", cfg.Storage.Driver)
	assert.Equal(t, "postgres://u:p@db/meetgrid?sslmode=disable", cfg.Storage.DSN)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
}

func TestSaveRoundTrip(t *testing.T) {
	t.Setenv("MEETGRID_ENV", "production")
	path := filepath.Join(t.TempDir(), "config.yaml")

	cfg := DefaultConfig()
	cfg.SecondaryTimezone = "Europe/London"
	cfg.BasicAuth = &BasicAuthConfig{Username: "admin", Password: "secret"}
	require.NoError(t, Save(path, cfg))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "Europe/London", loaded.SecondaryTimezone)
	require.NotNil(t, loaded.BasicAuth)
	assert.Equal(t, "admin", loaded.BasicAuth.Username)

	assert.Error(t, Save(path, nil))
}

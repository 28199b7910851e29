package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/doeshing/shexec/internal/domain"
)

func TestLoadWritesDefaultsWhenMissing(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")
	loader := NewFileLoader(path)

	cfg, err := loader.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
	assert.FileExists(t, path)

	again, err := loader.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, cfg, again)
}

func TestLoadYAMLHydratesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
execution:
  timeout: 30s
cache:
  enabled: true
  max_entries: 5
remote:
  host: build.example.com
  user: ci
  key_path: /keys/id_ed25519
`), 0o600))

	cfg, err := NewFileLoader(path).Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "30s", cfg.Execution.Timeout)
	assert.Equal(t, domain.DefaultConnectTimeout.String(), cfg.Execution.ConnectTimeout)
	assert.Equal(t, 5, cfg.Cache.MaxEntries)
	assert.NotEmpty(t, cfg.Cache.SnapshotPath)
	assert.Equal(t, "warn", cfg.Logging.Level)
	require.NotNil(t, cfg.Remote)
	assert.Equal(t, "ci@build.example.com:22", cfg.Remote.String())
}

func TestLoadTOML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
config_format_version = "1"

[execution]
shell = "/bin/bash"

[cache]
enabled = false
max_entries = 7
refresh_interval = "0"

[logging]
level = "debug"
format = "json"
`), 0o600))

	cfg, err := NewFileLoader(path).Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "/bin/bash", cfg.Execution.Shell)
	assert.False(t, cfg.Cache.Enabled)
	assert.Equal(t, 7, cfg.Cache.MaxEntries)
	assert.Zero(t, cfg.Cache.RefreshDuration())
	assert.Equal(t, "json", cfg.Logging.Format)
}

func TestWriteTOMLRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	cfg := DefaultConfig()
	cfg.Execution.Shell = "/bin/zsh"
	require.NoError(t, Write(path, cfg))

	loaded, err := NewFileLoader(path).Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, cfg, loaded)
}

func TestLoadRejectsMalformedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("execution: [unclosed"), 0o600))

	_, err := NewFileLoader(path).Load(context.Background())
	assert.Error(t, err)
}

func TestPathHonorsEnvironment(t *testing.T) {
	custom := filepath.Join(t.TempDir(), "custom.yaml")
	t.Setenv(EnvConfigPath, custom)
	assert.Equal(t, custom, NewFileLoader("").Path())

	explicit := filepath.Join(t.TempDir(), "explicit.yaml")
	assert.Equal(t, explicit, NewFileLoader(explicit).Path())
}

func TestSaveAndBackup(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	loader := NewFileLoader(path)

	_, err := loader.Backup()
	assert.Error(t, err, "nothing to back up yet")

	cfg := DefaultConfig()
	cfg.Aliases = map[string]string{"logs": "tail -n 50 /var/log/syslog"}
	require.NoError(t, loader.Save(cfg))

	backup, err := loader.Backup()
	require.NoError(t, err)
	assert.Equal(t, path+".bak", backup)

	loaded, err := loader.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "tail -n 50 /var/log/syslog", loaded.Aliases["logs"])
}

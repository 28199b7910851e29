// Package config reads and writes the shexec configuration file.
package config

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"github.com/doeshing/shexec/internal/domain"
	"github.com/doeshing/shexec/internal/pkg/filesystem"
	"github.com/doeshing/shexec/internal/ports"
)

// EnvConfigPath overrides the default configuration location.
const EnvConfigPath = "SHEXEC_CONFIG"

// FileLoader loads configuration from ~/.shexec/config.yaml (overridable via
// SHEXEC_CONFIG). Paths ending in .toml are decoded as TOML, everything else
// as YAML.
type FileLoader struct {
	overridePath string
}

// NewFileLoader builds a new loader. An empty path uses the default location.
func NewFileLoader(path string) *FileLoader {
	return &FileLoader{overridePath: path}
}

// Path reports the file Load reads.
func (l *FileLoader) Path() string {
	if l.overridePath != "" {
		return filesystem.ExpandPath(l.overridePath)
	}
	if custom := os.Getenv(EnvConfigPath); custom != "" {
		return filesystem.ExpandPath(custom)
	}
	return filepath.Join(filesystem.UserHomeDir(), ".shexec", "config.yaml")
}

// Load implements ports.ConfigProvider. A missing file is created with defaults.
func (l *FileLoader) Load(context.Context) (domain.Config, error) {
	path := l.Path()
	if err := os.MkdirAll(filepath.Dir(path), domain.DirectoryPermissions); err != nil {
		return domain.Config{}, fmt.Errorf("create config dir: %w", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			cfg := DefaultConfig()
			if err := Write(path, cfg); err != nil {
				return domain.Config{}, err
			}
			return cfg, nil
		}
		return domain.Config{}, fmt.Errorf("read config: %w", err)
	}

	var cfg domain.Config
	if isTOML(path) {
		if _, err := toml.Decode(string(data), &cfg); err != nil {
			return domain.Config{}, fmt.Errorf("parse %s: %w", path, err)
		}
	} else if err := yaml.Unmarshal(data, &cfg); err != nil {
		return domain.Config{}, fmt.Errorf("parse %s: %w", path, err)
	}
	return hydrateDefaults(cfg), nil
}

// Save writes cfg to Path.
func (l *FileLoader) Save(cfg domain.Config) error {
	path := l.Path()
	if err := os.MkdirAll(filepath.Dir(path), domain.DirectoryPermissions); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}
	return Write(path, cfg)
}

// Backup copies the current file to <path>.bak and returns the backup path.
func (l *FileLoader) Backup() (string, error) {
	path := l.Path()
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read config: %w", err)
	}
	dest := path + ".bak"
	if err := os.WriteFile(dest, data, domain.SecureFilePermissions); err != nil {
		return "", fmt.Errorf("write backup: %w", err)
	}
	return dest, nil
}

// Write stores cfg at path in the format its extension implies.
func Write(path string, cfg domain.Config) error {
	var raw []byte
	if isTOML(path) {
		var buf bytes.Buffer
		if err := toml.NewEncoder(&buf).Encode(cfg); err != nil {
			return fmt.Errorf("encode config: %w", err)
		}
		raw = buf.Bytes()
	} else {
		out, err := yaml.Marshal(cfg)
		if err != nil {
			return fmt.Errorf("encode config: %w", err)
		}
		raw = out
	}
	if err := os.WriteFile(path, raw, domain.SecureFilePermissions); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

// DefaultConfig is written on first run.
func DefaultConfig() domain.Config {
	home := filepath.Join(filesystem.UserHomeDir(), ".shexec")
	return domain.Config{
		ConfigFormatVersion: "1",
		Execution: domain.ExecutionSettings{
			Shell:          "auto",
			Timeout:        domain.DefaultCommandTimeout.String(),
			ConnectTimeout: domain.DefaultConnectTimeout.String(),
		},
		Cache: domain.CacheSettings{
			Enabled:         true,
			MaxEntries:      domain.DefaultMaxCacheEntries,
			RefreshInterval: domain.DefaultRefreshInterval.String(),
			Persist:         true,
			SnapshotPath:    filepath.Join(home, "cache", "snapshot.json"),
		},
		Logging: domain.LoggingSettings{
			Level:  "warn",
			Format: "console",
			Output: "stderr",
		},
		History: domain.HistorySettings{
			Enabled: true,
			Path:    filepath.Join(home, "history.db"),
		},
	}
}

func hydrateDefaults(cfg domain.Config) domain.Config {
	def := DefaultConfig()
	if cfg.ConfigFormatVersion == "" {
		cfg.ConfigFormatVersion = def.ConfigFormatVersion
	}
	if cfg.Execution.Shell == "" {
		cfg.Execution.Shell = def.Execution.Shell
	}
	if cfg.Execution.Timeout == "" {
		cfg.Execution.Timeout = def.Execution.Timeout
	}
	if cfg.Execution.ConnectTimeout == "" {
		cfg.Execution.ConnectTimeout = def.Execution.ConnectTimeout
	}
	cfg.Execution.WorkingDir = filesystem.ExpandPath(cfg.Execution.WorkingDir)
	if cfg.Cache.MaxEntries == 0 {
		cfg.Cache.MaxEntries = def.Cache.MaxEntries
	}
	if cfg.Cache.SnapshotPath == "" {
		cfg.Cache.SnapshotPath = def.Cache.SnapshotPath
	}
	cfg.Cache.SnapshotPath = filesystem.ExpandPath(cfg.Cache.SnapshotPath)
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = def.Logging.Level
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = def.Logging.Format
	}
	if cfg.Logging.Output == "" {
		cfg.Logging.Output = def.Logging.Output
	}
	if cfg.History.Path == "" {
		cfg.History.Path = def.History.Path
	}
	cfg.History.Path = filesystem.ExpandPath(cfg.History.Path)
	if cfg.Remote != nil {
		cfg.Remote.KeyPath = filesystem.ExpandPath(cfg.Remote.KeyPath)
		cfg.Remote.KnownHostsPath = filesystem.ExpandPath(cfg.Remote.KnownHostsPath)
	}
	return cfg
}

func isTOML(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".toml")
}

var _ ports.ConfigProvider = (*FileLoader)(nil)

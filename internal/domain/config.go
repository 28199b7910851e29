package domain

import "time"

// Config mirrors ~/.shexec/config.yaml.
type Config struct {
	ConfigFormatVersion string            `yaml:"config_format_version" toml:"config_format_version"`
	Execution           ExecutionSettings `yaml:"execution" toml:"execution"`
	Cache               CacheSettings     `yaml:"cache" toml:"cache"`
	Remote              *RemoteHost       `yaml:"remote,omitempty" toml:"remote,omitempty"`
	Logging             LoggingSettings   `yaml:"logging" toml:"logging"`
	History             HistorySettings   `yaml:"history" toml:"history"`
	// Aliases register shell scripts under short names for `run --alias`.
	Aliases             map[string]string `yaml:"aliases,omitempty" toml:"aliases,omitempty"`
}

// ExecutionSettings controls how commands run.
type ExecutionSettings struct {
	Shell          string `yaml:"shell" toml:"shell"`
	WorkingDir     string `yaml:"working_dir" toml:"working_dir"`
	Timeout        string `yaml:"timeout" toml:"timeout"`
	ConnectTimeout string `yaml:"connect_timeout" toml:"connect_timeout"`
}

// CacheSettings configures the result cache.
type CacheSettings struct {
	Enabled         bool   `yaml:"enabled" toml:"enabled"`
	MaxEntries      int    `yaml:"max_entries" toml:"max_entries"`
	RefreshInterval string `yaml:"refresh_interval" toml:"refresh_interval"`
	Persist         bool   `yaml:"persist" toml:"persist"`
	SnapshotPath    string `yaml:"snapshot_path" toml:"snapshot_path"`
}

// LoggingSettings configures the log sink.
type LoggingSettings struct {
	Level  string `yaml:"level" toml:"level"`
	Format string `yaml:"format" toml:"format"`
	Output string `yaml:"output" toml:"output"`
}

// HistorySettings configures persistent command history.
type HistorySettings struct {
	Enabled bool   `yaml:"enabled" toml:"enabled"`
	Path    string `yaml:"path" toml:"path"`
}

// TimeoutDuration parses Timeout, falling back to DefaultCommandTimeout.
func (s ExecutionSettings) TimeoutDuration() time.Duration {
	return parseDuration(s.Timeout, DefaultCommandTimeout)
}

// ConnectTimeoutDuration parses ConnectTimeout, falling back to DefaultConnectTimeout.
func (s ExecutionSettings) ConnectTimeoutDuration() time.Duration {
	return parseDuration(s.ConnectTimeout, DefaultConnectTimeout)
}

// RefreshDuration parses RefreshInterval. Zero disables background refresh.
func (s CacheSettings) RefreshDuration() time.Duration {
	if s.RefreshInterval == "" || s.RefreshInterval == "0" {
		return 0
	}
	return parseDuration(s.RefreshInterval, DefaultRefreshInterval)
}

func parseDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}
	d, err := time.ParseDuration(raw)
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}

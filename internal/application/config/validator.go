// Package config validates loaded configuration before it is wired.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/doeshing/shexec/internal/domain"
)

// Validate reports every inconsistent field at once as a *domain.ValidationError.
func Validate(cfg domain.Config) error {
	fields := map[string]string{}
	validateExecution(cfg.Execution, fields)
	validateCache(cfg.Cache, fields)
	validateLogging(cfg.Logging, fields)
	if cfg.Remote != nil {
		validateRemote(*cfg.Remote, fields)
	}
	if cfg.History.Enabled && cfg.History.Path == "" {
		fields["history.path"] = "required when history is enabled"
	}
	for name, script := range cfg.Aliases {
		if strings.TrimSpace(name) == "" || strings.TrimSpace(script) == "" {
			fields["aliases."+name] = "name and script required"
		}
	}
	if len(fields) == 0 {
		return nil
	}
	return &domain.ValidationError{Command: "config", Fields: fields}
}

func validateExecution(exec domain.ExecutionSettings, fields map[string]string) {
	checkDuration("execution.timeout", exec.Timeout, 0, fields)
	checkDuration("execution.connect_timeout", exec.ConnectTimeout, 0, fields)
}

func validateCache(cache domain.CacheSettings, fields map[string]string) {
	if cache.MaxEntries <= 0 {
		fields["cache.max_entries"] = "must be > 0"
	}
	if cache.RefreshInterval != "0" {
		// The scheduler fires at whole seconds.
		checkDuration("cache.refresh_interval", cache.RefreshInterval, time.Second, fields)
	}
	if cache.Persist && cache.SnapshotPath == "" {
		fields["cache.snapshot_path"] = "required when persist is enabled"
	}
}

func validateLogging(logging domain.LoggingSettings, fields map[string]string) {
	switch strings.ToLower(logging.Level) {
	case "", "trace", "debug", "info", "warn", "warning", "error", "disabled", "off", "none":
	default:
		fields["logging.level"] = fmt.Sprintf("must be debug|info|warn|error|disabled, got %s", logging.Level)
	}
	switch strings.ToLower(logging.Format) {
	case "", "console", "json":
	default:
		fields["logging.format"] = fmt.Sprintf("must be console|json, got %s", logging.Format)
	}
}

func validateRemote(remote domain.RemoteHost, fields map[string]string) {
	if strings.TrimSpace(remote.Host) == "" {
		fields["remote.host"] = "required"
	}
	if remote.Port < 0 || remote.Port > 65535 {
		fields["remote.port"] = "must be between 0 and 65535"
	}
	if remote.KeyPath == "" && remote.Password == "" {
		fields["remote.key_path"] = "key_path or password required"
	}
}

func checkDuration(field, raw string, min time.Duration, fields map[string]string) {
	if raw == "" {
		return
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		fields[field] = fmt.Sprintf("invalid duration: %v", err)
		return
	}
	if d <= 0 || d < min {
		fields[field] = fmt.Sprintf("must be at least %s", max(min, time.Nanosecond))
	}
}

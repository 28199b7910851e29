package config

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/doeshing/shexec/internal/domain"
)

func validConfig() domain.Config {
	return domain.Config{
		Execution: domain.ExecutionSettings{Timeout: "1m", ConnectTimeout: "5s"},
		Cache:     domain.CacheSettings{Enabled: true, MaxEntries: 10, RefreshInterval: "30s"},
		Logging:   domain.LoggingSettings{Level: "info", Format: "console"},
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*domain.Config)
		fields []string
	}{
		{"valid", func(*domain.Config) {}, nil},
		{"refresh disabled", func(c *domain.Config) { c.Cache.RefreshInterval = "0" }, nil},
		{"bad timeout", func(c *domain.Config) { c.Execution.Timeout = "soon" }, []string{"execution.timeout"}},
		{"negative connect timeout", func(c *domain.Config) { c.Execution.ConnectTimeout = "-1s" }, []string{"execution.connect_timeout"}},
		{"sub-second refresh", func(c *domain.Config) { c.Cache.RefreshInterval = "500ms" }, []string{"cache.refresh_interval"}},
		{"zero capacity", func(c *domain.Config) { c.Cache.MaxEntries = 0 }, []string{"cache.max_entries"}},
		{"persist without path", func(c *domain.Config) { c.Cache.Persist = true }, []string{"cache.snapshot_path"}},
		{"bad logging", func(c *domain.Config) {
			c.Logging.Level = "loud"
			c.Logging.Format = "xml"
		}, []string{"logging.level", "logging.format"}},
		{"remote without credentials", func(c *domain.Config) {
			c.Remote = &domain.RemoteHost{Port: 70000}
		}, []string{"remote.host", "remote.port", "remote.key_path"}},
		{"empty alias", func(c *domain.Config) { c.Aliases = map[string]string{"ok": "ls", "bad": " "} }, []string{"aliases.bad"}},
		{"history without path", func(c *domain.Config) { c.History.Enabled = true }, []string{"history.path"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(&cfg)
			err := Validate(cfg)
			if tt.fields == nil {
				assert.NoError(t, err)
				return
			}
			var verr *domain.ValidationError
			require.True(t, errors.As(err, &verr), "got %v", err)
			keys := make([]string, 0, len(verr.Fields))
			for k := range verr.Fields {
				keys = append(keys, k)
			}
			assert.ElementsMatch(t, tt.fields, keys)
		})
	}
}

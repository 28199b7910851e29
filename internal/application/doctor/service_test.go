package doctor

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/doeshing/shexec/internal/application/execution"
	"github.com/doeshing/shexec/internal/domain"
	"github.com/doeshing/shexec/internal/infrastructure/backend"
	"github.com/doeshing/shexec/internal/infrastructure/config"
	"github.com/doeshing/shexec/internal/infrastructure/history"
	"github.com/doeshing/shexec/internal/ports"
)

type staticConfig struct {
	cfg domain.Config
	err error
}

func (s staticConfig) Load(context.Context) (domain.Config, error) { return s.cfg, s.err }

func statusOf(report domain.HealthReport, name string) domain.HealthStatus {
	for _, c := range report.Checks {
		if c.Name == name {
			return c.Status
		}
	}
	return ""
}

func TestDoctorHealthyLocalSetup(t *testing.T) {
	dir := t.TempDir()
	cfg := config.DefaultConfig()
	cfg.Execution.Shell = "/bin/sh"

	store := history.NewFileStore(filepath.Join(dir, "history.jsonl"))

	svc := &Service{
		ConfigProvider: staticConfig{cfg: cfg},
		Context:        execution.NewContext(dir, backend.NewLocal("/bin/sh", 0), nil),
		History:        store,
		SnapshotPath:   filepath.Join(dir, "cache", "snapshot.json"),
	}
	report, err := svc.Run(context.Background())
	require.NoError(t, err)

	assert.Zero(t, report.Failures(), "%+v", report.Checks)
	assert.Equal(t, domain.HealthOK, statusOf(report, "Shell"))
	assert.Equal(t, domain.HealthOK, statusOf(report, "Backend local"))
	assert.Equal(t, domain.HealthOK, statusOf(report, "History"))
	assert.Equal(t, domain.HealthOK, statusOf(report, "Cache snapshot"))
}

func TestDoctorReportsBrokenPieces(t *testing.T) {
	dir := t.TempDir()
	blocker := filepath.Join(dir, "file")
	require.NoError(t, os.WriteFile(blocker, nil, 0o600))

	cfg := config.DefaultConfig()
	cfg.Execution.Shell = "definitely-not-a-shell"
	cfg.Cache.MaxEntries = -1

	svc := &Service{
		ConfigProvider: staticConfig{cfg: cfg},
		Context:        execution.NewContext(filepath.Join(dir, "missing"), backend.NewLocal("/bin/sh", 0), nil),
		SnapshotPath:   filepath.Join(blocker, "snapshot.json"),
	}
	report, err := svc.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, domain.HealthError, statusOf(report, "Config file"))
	assert.Equal(t, domain.HealthError, statusOf(report, "Shell"))
	assert.Equal(t, domain.HealthError, statusOf(report, "Working directory"))
	assert.Equal(t, domain.HealthError, statusOf(report, "Backend local"))
	assert.Equal(t, domain.HealthWarn, statusOf(report, "History"))
	assert.Equal(t, domain.HealthError, statusOf(report, "Cache snapshot"))
	assert.Equal(t, 5, report.Failures())
}

func TestDoctorConfigLoadFailure(t *testing.T) {
	svc := &Service{ConfigProvider: staticConfig{err: errors.New("boom")}}
	report, err := svc.Run(context.Background())
	require.Error(t, err)
	assert.Equal(t, 1, report.Failures())
}

func TestDoctorRemoteModeSkipsLocalDirectory(t *testing.T) {
	remote := backend.NewLocal("/bin/sh", 0)
	ec := execution.NewContext(filepath.Join(t.TempDir(), "missing"), backend.NewLocal("/bin/sh", 0), func(domain.RemoteHost) (ports.Backend, error) {
		return remote, nil
	})
	require.NoError(t, ec.SetRemote(domain.RemoteHost{Host: "db1", User: "ops"}))

	svc := &Service{ConfigProvider: staticConfig{cfg: config.DefaultConfig()}, Context: ec}
	report, err := svc.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, domain.HealthStatus(""), statusOf(report, "Working directory"))
	assert.Equal(t, domain.HealthOK, statusOf(report, "Backend ops@db1:22"))
}

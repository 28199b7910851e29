// Package doctor checks that shexec can actually run commands with the
// current configuration.
package doctor

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	appconfig "github.com/doeshing/shexec/internal/application/config"
	"github.com/doeshing/shexec/internal/application/execution"
	"github.com/doeshing/shexec/internal/domain"
	"github.com/doeshing/shexec/internal/ports"
)

const probeMarker = "shexec-doctor"

// Service runs environment diagnostics.
type Service struct {
	ConfigProvider ports.ConfigProvider
	Context        *execution.Context
	History        ports.HistoryRepository
	SnapshotPath   string
	ProbeTimeout   time.Duration
}

// Run executes checks and returns a report. The error is only set when the
// configuration cannot be loaded at all.
func (s *Service) Run(ctx context.Context) (domain.HealthReport, error) {
	var checks []domain.HealthCheck

	cfg, err := s.ConfigProvider.Load(ctx)
	if err != nil {
		checks = append(checks, fail("Config file", fmt.Sprintf("load failed: %v", err)))
		return domain.HealthReport{Checks: checks}, err
	}
	if err := appconfig.Validate(cfg); err != nil {
		checks = append(checks, fail("Config file", err.Error()))
	} else {
		checks = append(checks, ok("Config file", fmt.Sprintf("loaded %s", cfg.ConfigFormatVersion)))
	}

	checks = append(checks, shellCheck(cfg.Execution.Shell))
	if s.Context != nil {
		if s.Context.Mode() == domain.ModeLocal {
			checks = append(checks, dirCheck(s.Context.Dir()))
		}
		checks = append(checks, s.backendCheck(ctx))
	}
	checks = append(checks, s.historyCheck())
	checks = append(checks, snapshotCheck(s.SnapshotPath))

	return domain.HealthReport{Checks: checks}, nil
}

func shellCheck(shell string) domain.HealthCheck {
	if shell == "" || shell == "auto" {
		if env := os.Getenv("SHELL"); env != "" {
			shell = env
		} else {
			shell = "/bin/sh"
		}
	}
	path, err := exec.LookPath(shell)
	if err != nil {
		return fail("Shell", err.Error())
	}
	return ok("Shell", path)
}

func dirCheck(dir string) domain.HealthCheck {
	info, err := os.Stat(dir)
	switch {
	case err != nil:
		return fail("Working directory", err.Error())
	case !info.IsDir():
		return fail("Working directory", dir+" is not a directory")
	default:
		return ok("Working directory", dir)
	}
}

// backendCheck runs a probe through the active backend, so in remote mode it
// also covers the SSH dial and authentication.
func (s *Service) backendCheck(ctx context.Context) domain.HealthCheck {
	name := "Backend " + s.Context.Target()
	timeout := s.ProbeTimeout
	if timeout <= 0 {
		timeout = domain.DefaultConnectTimeout
	}
	out, err := s.Context.RunScript(ctx, "echo "+probeMarker, execution.RunOptions{Timeout: timeout})
	switch {
	case err != nil:
		return fail(name, err.Error())
	case out.ExitCode != 0:
		return fail(name, fmt.Sprintf("probe exited %d: %s", out.ExitCode, strings.TrimSpace(out.Stderr)))
	case strings.TrimSpace(out.Stdout) != probeMarker:
		return warn(name, fmt.Sprintf("unexpected probe output %q", out.Stdout))
	default:
		return ok(name, fmt.Sprintf("probe took %s", out.Duration.Round(time.Millisecond)))
	}
}

func (s *Service) historyCheck() domain.HealthCheck {
	if s.History == nil {
		return warn("History", "disabled")
	}
	if _, err := s.History.Records(1, ""); err != nil {
		return fail("History", fmt.Sprintf("%s: %v", s.History.Path(), err))
	}
	return ok("History", s.History.Path())
}

func snapshotCheck(path string) domain.HealthCheck {
	if path == "" {
		return warn("Cache snapshot", "persistence disabled")
	}
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fail("Cache snapshot", err.Error())
	}
	probe, err := os.CreateTemp(dir, ".doctor-*")
	if err != nil {
		return fail("Cache snapshot", fmt.Sprintf("%s not writable: %v", dir, err))
	}
	_ = probe.Close()
	_ = os.Remove(probe.Name())
	return ok("Cache snapshot", path)
}

func ok(name, details string) domain.HealthCheck {
	return domain.HealthCheck{Name: name, Status: domain.HealthOK, Details: details}
}

func warn(name, details string) domain.HealthCheck {
	return domain.HealthCheck{Name: name, Status: domain.HealthWarn, Details: details}
}

func fail(name, details string) domain.HealthCheck {
	return domain.HealthCheck{Name: name, Status: domain.HealthError, Details: details}
}

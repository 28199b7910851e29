package backend

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"sort"
	"strings"
	"time"

	"github.com/doeshing/shexec/internal/domain"
	"github.com/doeshing/shexec/internal/ports"
)

// Local runs commands through the host shell.
type Local struct {
	shell     string
	timeout   time.Duration
	waitDelay time.Duration
}

// NewLocal builds a local backend, shell defaults to $SHELL then /bin/sh.
// A zero defaultTimeout means requests without a timeout run unbounded.
func NewLocal(shell string, defaultTimeout time.Duration) *Local {
	if shell == "" || shell == "auto" {
		shell = os.Getenv("SHELL")
	}
	if shell == "" {
		shell = "/bin/sh"
	}
	return &Local{shell: shell, timeout: defaultTimeout, waitDelay: domain.DefaultWaitDelay}
}

// Name implements ports.Backend.
func (l *Local) Name() string { return "local" }

// Close implements ports.Backend.
func (l *Local) Close() error { return nil }

// Execute implements ports.Backend.
func (l *Local) Execute(ctx context.Context, req domain.ExecRequest) (domain.ExecOutput, error) {
	if req.Dir != "" {
		info, err := os.Stat(req.Dir)
		if err != nil {
			return domain.ExecOutput{}, &domain.ExecutionError{Kind: domain.KindSpawn, Command: req.Command, Err: fmt.Errorf("working directory: %w", err)}
		}
		if !info.IsDir() {
			return domain.ExecOutput{}, &domain.ExecutionError{Kind: domain.KindSpawn, Command: req.Command, Err: fmt.Errorf("working directory %s is not a directory", req.Dir)}
		}
	}

	timeout := req.Timeout
	if timeout <= 0 {
		timeout = l.timeout
	}
	runCtx := ctx
	if timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	c := exec.CommandContext(runCtx, l.shell, "-c", req.Command)
	c.Dir = req.Dir
	c.Env = mergeEnv(os.Environ(), req.Env)
	c.WaitDelay = l.waitDelay
	configureProcessGroup(c)

	var stdout, stderr bytes.Buffer
	if req.Stream != nil {
		c.Stdout = io.MultiWriter(&stdout, req.Stream)
	} else {
		c.Stdout = &stdout
	}
	c.Stderr = &stderr
	if len(req.Input) > 0 {
		c.Stdin = bytes.NewReader(req.Input)
	}

	start := time.Now()
	err := c.Run()
	out := domain.ExecOutput{
		Stdout:   stdout.String(),
		Stderr:   stderr.String(),
		Duration: time.Since(start),
	}

	if ctxErr := runCtx.Err(); ctxErr != nil && err != nil {
		out.ExitCode = -1
		if errors.Is(ctxErr, context.DeadlineExceeded) {
			return out, &domain.ExecutionError{Kind: domain.KindTimeout, Command: req.Command, Err: ctxErr}
		}
		return out, &domain.ExecutionError{Kind: domain.KindSpawn, Command: req.Command, Err: ctxErr}
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		out.ExitCode = exitErr.ExitCode()
		return out, nil
	}
	if err != nil {
		out.ExitCode = -1
		return out, &domain.ExecutionError{Kind: domain.KindSpawn, Command: req.Command, Err: err}
	}
	return out, nil
}

// mergeEnv overlays extra on base; later keys win, output is deterministic.
func mergeEnv(base []string, extra map[string]string) []string {
	if len(extra) == 0 {
		return base
	}
	env := make([]string, 0, len(base)+len(extra))
	for _, kv := range base {
		key, _, _ := strings.Cut(kv, "=")
		if _, overridden := extra[key]; overridden {
			continue
		}
		env = append(env, kv)
	}
	keys := make([]string, 0, len(extra))
	for k := range extra {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		env = append(env, k+"="+extra[k])
	}
	return env
}

var _ ports.Backend = (*Local)(nil)

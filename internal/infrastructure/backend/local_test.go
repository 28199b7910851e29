package backend

import (
	"bytes"
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/doeshing/shexec/internal/domain"
)

func TestLocalExecuteCapturesStreamsSeparately(t *testing.T) {
	b := NewLocal("/bin/sh", 0)

	out, err := b.Execute(context.Background(), domain.ExecRequest{Command: "echo out; echo err 1>&2"})
	require.NoError(t, err)
	assert.Equal(t, 0, out.ExitCode)
	assert.Equal(t, "out\n", out.Stdout)
	assert.Equal(t, "err\n", out.Stderr)
}

func TestLocalExecuteReportsExitCode(t *testing.T) {
	b := NewLocal("/bin/sh", 0)

	out, err := b.Execute(context.Background(), domain.ExecRequest{Command: "exit 7"})
	require.NoError(t, err)
	assert.Equal(t, 7, out.ExitCode)
}

func TestLocalExecutePipesInput(t *testing.T) {
	b := NewLocal("/bin/sh", 0)

	out, err := b.Execute(context.Background(), domain.ExecRequest{Command: "tr a-z A-Z", Input: []byte("hello")})
	require.NoError(t, err)
	assert.Equal(t, "HELLO", out.Stdout)
}

func TestLocalExecuteHonorsDirAndEnv(t *testing.T) {
	dir := t.TempDir()
	b := NewLocal("/bin/sh", 0)

	out, err := b.Execute(context.Background(), domain.ExecRequest{
		Command: `pwd; echo "$SHEXEC_TEST"`,
		Dir:     dir,
		Env:     map[string]string{"SHEXEC_TEST": "merged"},
	})
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(out.Stdout), "\n")
	require.Len(t, lines, 2)
	resolved, err := filepath.EvalSymlinks(dir)
	require.NoError(t, err)
	assert.Contains(t, []string{dir, resolved}, lines[0])
	assert.Equal(t, "merged", lines[1])
}

func TestLocalExecuteMissingDirFailsFast(t *testing.T) {
	b := NewLocal("/bin/sh", 0)

	_, err := b.Execute(context.Background(), domain.ExecRequest{
		Command: "echo never",
		Dir:     filepath.Join(t.TempDir(), "missing"),
	})
	var execErr *domain.ExecutionError
	require.True(t, errors.As(err, &execErr))
	assert.Equal(t, domain.KindSpawn, execErr.Kind)
}

func TestLocalExecuteTimeoutKillsProcessGroup(t *testing.T) {
	dir := t.TempDir()
	marker := filepath.Join(dir, "survived")
	b := NewLocal("/bin/sh", 0)

	start := time.Now()
	_, err := b.Execute(context.Background(), domain.ExecRequest{
		Command: "(sleep 1; touch " + marker + ") & sleep 5",
		Timeout: 100 * time.Millisecond,
	})
	require.Error(t, err)
	assert.True(t, domain.IsTimeout(err))
	assert.Less(t, time.Since(start), 4*time.Second)

	time.Sleep(1500 * time.Millisecond)
	assert.NoFileExists(t, marker)
}

func TestLocalExecuteStreamsStdout(t *testing.T) {
	var live bytes.Buffer
	b := NewLocal("/bin/sh", 0)

	out, err := b.Execute(context.Background(), domain.ExecRequest{Command: "echo live", Stream: &live})
	require.NoError(t, err)
	assert.Equal(t, "live\n", live.String())
	assert.Equal(t, "live\n", out.Stdout)
}

func TestMergeEnvOverridesBase(t *testing.T) {
	got := mergeEnv([]string{"A=1", "B=2"}, map[string]string{"B": "3", "C": "4"})
	assert.Equal(t, []string{"A=1", "B=3", "C=4"}, got)
}

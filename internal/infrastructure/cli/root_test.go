package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/doeshing/shexec/internal/app"
)

func writeTestConfig(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
execution:
  shell: /bin/sh
  working_dir: `+dir+`
cache:
  enabled: true
  max_entries: 10
  refresh_interval: "0"
  persist: true
  snapshot_path: `+filepath.Join(dir, "snapshot.json")+`
logging:
  level: disabled
history:
  enabled: true
  path: `+filepath.Join(dir, "history.db")+`
`), 0o600))
	return path
}

func newContainer(t *testing.T, configPath string) *app.Container {
	t.Helper()
	c, err := app.BuildContainer(context.Background(), app.Options{ConfigPath: configPath})
	require.NoError(t, err)
	return c
}

func run(t *testing.T, c *app.Container, args ...string) (string, string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	root := NewRootCmd(c)
	root.SetOut(&out)
	root.SetErr(&errOut)
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return out.String(), errOut.String(), err
}

func TestRunPrintsOutputAndCaches(t *testing.T) {
	c := newContainer(t, writeTestConfig(t))
	t.Cleanup(func() { _ = c.Close() })

	out, _, err := run(t, c, "run", "--", "echo", "hello")
	require.NoError(t, err)
	assert.Equal(t, "hello\n", out)

	_, _, err = run(t, c, "run", "--", "echo", "hello")
	require.NoError(t, err)

	stats, _, err := run(t, c, "cache", "stats")
	require.NoError(t, err)
	assert.Contains(t, stats, "Entries: 1/10")
	assert.Contains(t, stats, "Stores: 1")
	assert.Contains(t, stats, "shell: 1")
}

func TestRunFailureReturnsExitCode(t *testing.T) {
	c := newContainer(t, writeTestConfig(t))
	t.Cleanup(func() { _ = c.Close() })

	_, stderr, err := run(t, c, "run", "--", "echo bad >&2; exit 3")
	var exitErr *ExitError
	require.True(t, errors.As(err, &exitErr), "got %v", err)
	assert.Equal(t, 3, exitErr.Code)
	assert.Equal(t, "bad\n", stderr)
}

func TestRunStructuredRendersRecords(t *testing.T) {
	c := newContainer(t, writeTestConfig(t))
	t.Cleanup(func() { _ = c.Close() })

	out, _, err := run(t, c, "run", "--structured", "--", `printf 'status: ok\ninfo: done\n'`)
	require.NoError(t, err)
	assert.Equal(t, "status=ok\ninfo=done\n", out)

	out, _, err = run(t, c, "run", "--json", "--no-cache", "--", "echo", "x")
	require.NoError(t, err)
	var decoded map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &decoded))
	assert.Equal(t, "x\n", decoded["raw_output"])
	assert.Equal(t, true, decoded["success"])
}

func TestRunChainStopsAtFailure(t *testing.T) {
	c := newContainer(t, writeTestConfig(t))
	t.Cleanup(func() { _ = c.Close() })

	out, _, err := run(t, c, "run", "--then", "sort", "--then", "head -n 1", "--", `printf 'b\na\n'`)
	require.NoError(t, err)
	assert.Equal(t, "a\n", out)

	marker := filepath.Join(t.TempDir(), "ran")
	_, _, err = run(t, c, "run", "--then", "touch "+marker, "--", "exit 2")
	var exitErr *ExitError
	require.True(t, errors.As(err, &exitErr))
	assert.Equal(t, 2, exitErr.Code)
	assert.NoFileExists(t, marker)
}

func TestHeadCommandUsesRegistry(t *testing.T) {
	c := newContainer(t, writeTestConfig(t))
	t.Cleanup(func() { _ = c.Close() })
	file := filepath.Join(t.TempDir(), "lines.txt")
	require.NoError(t, os.WriteFile(file, []byte("one\ntwo\nthree\n"), 0o600))

	out, _, err := run(t, c, "head", "-n", "2", file)
	require.NoError(t, err)
	assert.Contains(t, out, "one")
	assert.Contains(t, out, "two")
	assert.NotContains(t, out, "three")
}

func TestAliasAddThenRun(t *testing.T) {
	cfgPath := writeTestConfig(t)
	c := newContainer(t, cfgPath)
	t.Cleanup(func() { _ = c.Close() })

	_, _, err := run(t, c, "alias", "add", "greet", "echo", "hi", "there")
	require.NoError(t, err)
	out, _, err := run(t, c, "run", "--alias", "greet")
	require.NoError(t, err)
	assert.Equal(t, "hi there\n", out)

	list, _, err := run(t, c, "alias", "list")
	require.NoError(t, err)
	assert.Equal(t, "greet = echo hi there\n", list)
	assert.FileExists(t, cfgPath+".bak")

	_, _, err = run(t, c, "run", "--alias", "missing")
	assert.Error(t, err)
}

func TestHistoryAndSnapshotSurviveRestart(t *testing.T) {
	cfgPath := writeTestConfig(t)
	first := newContainer(t, cfgPath)
	_, _, err := run(t, first, "run", "--", "echo", "persisted")
	require.NoError(t, err)
	require.NoError(t, first.Close())

	second := newContainer(t, cfgPath)
	t.Cleanup(func() { _ = second.Close() })

	list, _, err := run(t, second, "cache", "list")
	require.NoError(t, err)
	assert.Contains(t, list, "echo persisted")

	history, _, err := run(t, second, "history", "list")
	require.NoError(t, err)
	assert.Contains(t, history, "echo persisted")
	assert.Equal(t, 1, strings.Count(history, "\n"))

	_, _, err = run(t, second, "cache", "clear")
	require.NoError(t, err)
	list, _, err = run(t, second, "cache", "list")
	require.NoError(t, err)
	assert.Equal(t, "No cached results.\n", list)
}

func TestVersionCommand(t *testing.T) {
	c := newContainer(t, writeTestConfig(t))
	t.Cleanup(func() { _ = c.Close() })

	out, _, err := run(t, c, "version")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "shexec version "))
}

func TestDoctorCommand(t *testing.T) {
	c := newContainer(t, writeTestConfig(t))
	t.Cleanup(func() { _ = c.Close() })

	out, _, err := run(t, c, "doctor")
	require.NoError(t, err, out)
	assert.Contains(t, out, "[OK] Backend local")
	assert.Contains(t, out, "[OK] History")
}

func TestVersionCommandJSON(t *testing.T) {
	c := newContainer(t, writeTestConfig(t))
	t.Cleanup(func() { _ = c.Close() })

	out, _, err := run(t, c, "version", "--json")
	require.NoError(t, err)
	var decoded map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &decoded))
	assert.NotEmpty(t, decoded["version"])
	assert.NotEmpty(t, decoded["go_version"])
}

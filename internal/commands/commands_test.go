package commands

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/doeshing/shexec/internal/application/execution"
	"github.com/doeshing/shexec/internal/domain"
	"github.com/doeshing/shexec/internal/infrastructure/backend"
)

func newLocalContext(t *testing.T, dir string) *execution.Context {
	t.Helper()
	return execution.NewContext(dir, backend.NewLocal("/bin/sh", 0), nil)
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestShellSuccessAndFailure(t *testing.T) {
	ec := newLocalContext(t, t.TempDir())

	res := NewShell("echo hi").Execute(context.Background(), ec, nil)
	assert.True(t, res.Success)
	assert.Equal(t, "hi\n", res.RawOutput)
	assert.Empty(t, res.ErrorMessage)

	res = NewShell("echo nope 1>&2; exit 4").Execute(context.Background(), ec, nil)
	assert.False(t, res.Success)
	assert.Equal(t, 4, res.ExitCode)
	assert.Equal(t, "exit status 4: nope", res.ErrorMessage)
}

func TestShellUsesInputAsStdin(t *testing.T) {
	ec := newLocalContext(t, t.TempDir())
	input := domain.CommandResult{RawOutput: "b\na\n", Success: true}

	res := NewShell("sort").Execute(context.Background(), ec, &input)
	assert.True(t, res.Success)
	assert.Equal(t, "a\nb\n", res.RawOutput)
}

func TestChangeDirectoryUpdatesContextOnlyOnSuccess(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.Mkdir(filepath.Join(root, "sub dir"), 0o755))
	ec := newLocalContext(t, root)

	res := (&ChangeDirectory{Path: "sub dir"}).Execute(context.Background(), ec, nil)
	require.True(t, res.Success, res.ErrorMessage)
	assert.Equal(t, "sub dir", filepath.Base(ec.Dir()))

	before := ec.Dir()
	res = (&ChangeDirectory{Path: "missing"}).Execute(context.Background(), ec, nil)
	assert.False(t, res.Success)
	assert.Equal(t, before, ec.Dir())
}

func TestChangeDirectoryIsNeverCacheable(t *testing.T) {
	assert.False(t, (&ChangeDirectory{Path: "/"}).Traits().Cacheable)
}

func TestCdTarget(t *testing.T) {
	assert.Equal(t, "~", cdTarget("~"))
	assert.Equal(t, "~/'my dir'", cdTarget("~/my dir"))
	assert.Equal(t, "/tmp", cdTarget("/tmp"))
	assert.Equal(t, "'a b'", cdTarget("a b"))
}

func TestHeadMultipleFilesProducesSections(t *testing.T) {
	dir := t.TempDir()
	a := writeFile(t, dir, "a.txt", "1\n2\n3\n")
	b := writeFile(t, dir, "b.txt", "x\ny\n")
	ec := newLocalContext(t, dir)

	res := (&Head{Files: []string{a, b}, Lines: 2}).Execute(context.Background(), ec, nil)
	require.True(t, res.Success, res.ErrorMessage)
	assert.Contains(t, res.RawOutput, "==> "+a+" <==")
	assert.Contains(t, res.RawOutput, "==> "+b+" <==")
	assert.NotContains(t, res.RawOutput, "3")
}

func TestTailReadsPipedInput(t *testing.T) {
	ec := newLocalContext(t, t.TempDir())
	input := domain.CommandResult{RawOutput: "1\n2\n3\n", Success: true}

	res := (&Tail{Lines: 1}).Execute(context.Background(), ec, &input)
	require.True(t, res.Success, res.ErrorMessage)
	assert.Equal(t, "3\n", res.RawOutput)
}

func TestCatMissingFileFails(t *testing.T) {
	ec := newLocalContext(t, t.TempDir())
	res := (&Cat{Files: []string{"does-not-exist"}}).Execute(context.Background(), ec, nil)
	assert.False(t, res.Success)
	assert.NotZero(t, res.ExitCode)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name string
		cmd  execution.Command
		want []string
	}{
		{"shell ok", NewShell("ls"), nil},
		{"shell empty", NewShell("  "), []string{"script"}},
		{"cd empty", &ChangeDirectory{}, []string{"path"}},
		{"head negative", &Head{Lines: -1, Files: []string{""}}, []string{"lines", "files[0]"}},
		{"cat ok", &Cat{Files: []string{"a"}}, nil},
		{"chain empty", &Chain{}, []string{"stages"}},
		{"chain nested", Then(NewShell("ls"), &Tail{Lines: -2}), []string{"stages[1].lines"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			errs := tt.cmd.Validate()
			keys := make([]string, 0, len(errs))
			for k := range errs {
				keys = append(keys, k)
			}
			assert.ElementsMatch(t, tt.want, keys)
		})
	}
}

func TestClonesAreIndependent(t *testing.T) {
	shell := &Shell{Script: "ls", Env: map[string]string{"A": "1"}}
	clone := shell.Clone().(*Shell)
	clone.Script = "rm"
	clone.Env["A"] = "2"
	assert.Equal(t, "ls", shell.Script)
	assert.Equal(t, "1", shell.Env["A"])

	head := &Head{Files: []string{"a"}}
	hc := head.Clone().(*Head)
	hc.Files[0] = "b"
	assert.Equal(t, "a", head.Files[0])

	chain := Then(shell, head)
	cc := chain.Clone().(*Chain)
	cc.Stages[0].(*Shell).Script = "changed"
	assert.Equal(t, "ls", chain.Stages[0].(*Shell).Script)
}

func TestChainPassesResultsAndStopsOnFailure(t *testing.T) {
	ec := newLocalContext(t, t.TempDir())

	ok := Then(NewShell("printf 'c\\nb\\na\\n'"), NewShell("sort"), &Head{Lines: 1})
	res := ok.Execute(context.Background(), ec, nil)
	require.True(t, res.Success, res.ErrorMessage)
	assert.Equal(t, "a\n", res.RawOutput)

	marker := filepath.Join(t.TempDir(), "ran")
	failing := Then(NewShell("echo broken; exit 2"), NewShell("touch "+marker))
	res = failing.Execute(context.Background(), ec, nil)
	assert.False(t, res.Success)
	assert.Equal(t, 2, res.ExitCode)
	assert.Equal(t, "broken\n", res.RawOutput)
	assert.NoFileExists(t, marker)
}

func TestChainBuildAndTraits(t *testing.T) {
	chain := Then(NewShell("ls"), &Head{Lines: 3, Files: []string{"f"}})
	assert.Equal(t, "shell ls | head head -n 3 f", strings.Join(chain.Build(), " "))
	assert.True(t, chain.Traits().Structured)
	assert.True(t, chain.Traits().Cacheable)

	chain.Then(&ChangeDirectory{Path: "/"})
	assert.False(t, chain.Traits().Cacheable)
	assert.False(t, chain.Traits().Structured)
}

func TestDefaultsCreateEveryKind(t *testing.T) {
	for name, factory := range Defaults() {
		cmd := factory()
		assert.Equal(t, name, cmd.Name())
	}
}

func TestEnvProducesKeyValueRecords(t *testing.T) {
	ec := newLocalContext(t, t.TempDir())
	ec.SetEnv(map[string]string{"SHEXEC_ENV_TEST": "a=b"})

	res := (&Env{}).Execute(context.Background(), ec, nil)
	require.True(t, res.Success, res.ErrorMessage)
	var found domain.Record
	for _, r := range res.Structured {
		if r["key"] == "SHEXEC_ENV_TEST" {
			found = r
		}
	}
	require.NotNil(t, found)
	assert.Equal(t, "a=b", found["value"])
	assert.Equal(t, "SHEXEC_ENV_TEST=a=b", found[domain.FieldRawLine])
}

func TestRawCommand(t *testing.T) {
	assert.Equal(t, "ls -la | wc -l", execution.RawCommand(NewShell("ls -la | wc -l")))
	assert.Equal(t, "head -n 3 'my file'", execution.RawCommand(&Head{Files: []string{"my file"}, Lines: 3}))
	assert.Equal(t, "env", execution.RawCommand(&Env{}))
	assert.Equal(t, "cat a | tail -n 10", execution.RawCommand(Then(&Cat{Files: []string{"a"}}, &Tail{})))
}

func TestShellSettingsShapeArgsAndRaw(t *testing.T) {
	sh := NewShell(`echo "$B $A"`)
	sh.Env = map[string]string{"B": "two words", "A": "1"}
	sh.Timeout = 30 * time.Second

	assert.Equal(t, []string{`echo "$B $A"`, "--env=A=1", "--env=B=two words", "--timeout=30s"}, sh.Build())
	assert.Equal(t, `export A=1 B='two words'; echo "$B $A"`, execution.RawCommand(sh))
	assert.Equal(t, 30*time.Second, sh.RunTimeout())

	chain := Then(sh, NewShell("wc -c"))
	assert.Equal(t, `(export A=1 B='two words'; echo "$B $A") | wc -c`, execution.RawCommand(chain))
}

func TestShellRawReproducesEnv(t *testing.T) {
	sh := NewShell(`printf '%s' "$GREETING"`)
	sh.Env = map[string]string{"GREETING": "it's here"}

	out, err := backend.NewLocal("/bin/sh", 0).Execute(context.Background(), domain.ExecRequest{Command: execution.RawCommand(sh)})
	require.NoError(t, err)
	assert.Equal(t, "it's here", out.Stdout)
}

package commands

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/doeshing/shexec/internal/application/execution"
	"github.com/doeshing/shexec/internal/domain"
	"github.com/doeshing/shexec/internal/pkg/shellquote"
)

// Shell runs a script verbatim through the backend's shell.
type Shell struct {
	Script     string
	Env        map[string]string
	Timeout    time.Duration
	Structured bool
	NoCache    bool
}

// NewShell builds a shell command for script.
func NewShell(script string) *Shell {
	return &Shell{Script: script}
}

func (s *Shell) Name() string { return NameShell }

// Build is the script followed by the settings that change what it prints:
// sorted --env=K=V pairs and --timeout. NoCache and Structured are traits,
// not arguments.
func (s *Shell) Build() []string {
	args := []string{s.Script}
	for _, k := range envKeys(s.Env) {
		args = append(args, "--env="+k+"="+s.Env[k])
	}
	if s.Timeout > 0 {
		args = append(args, "--timeout="+s.Timeout.String())
	}
	return args
}

// Raw is the script with its environment exported up front, so re-running
// the string alone reproduces the command.
func (s *Shell) Raw() string {
	keys := envKeys(s.Env)
	if len(keys) == 0 {
		return s.Script
	}
	exports := make([]string, 0, len(keys))
	for _, k := range keys {
		exports = append(exports, k+"="+shellquote.Escape(s.Env[k]))
	}
	return "export " + strings.Join(exports, " ") + "; " + s.Script
}

// RunTimeout implements execution.Timed.
func (s *Shell) RunTimeout() time.Duration { return s.Timeout }

func (s *Shell) Validate() map[string]string {
	errs := map[string]string{}
	if strings.TrimSpace(s.Script) == "" {
		errs["script"] = "required"
	}
	if s.Timeout < 0 {
		errs["timeout"] = "must not be negative"
	}
	return errs
}

func (s *Shell) Execute(ctx context.Context, ec *execution.Context, input *domain.CommandResult) domain.CommandResult {
	out, err := ec.RunScript(ctx, s.Script, execution.RunOptions{
		Input:   inputBytes(input),
		Env:     s.Env,
		Timeout: s.Timeout,
	})
	return execution.ToResult(out, err)
}

func (s *Shell) Clone() execution.Command {
	c := *s
	c.Env = cloneEnv(s.Env)
	return &c
}

func (s *Shell) Traits() execution.Traits {
	return execution.Traits{Structured: s.Structured, Cacheable: !s.NoCache}
}

func envKeys(env map[string]string) []string {
	keys := make([]string, 0, len(env))
	for k := range env {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

package execution

import (
	"strconv"
	"strings"
	"time"

	"github.com/doeshing/shexec/internal/domain"
	"github.com/doeshing/shexec/internal/pkg/shellquote"
)

// ToResult converts a backend outcome into a CommandResult. Backend errors and
// non-zero exits become unsuccessful results.
func ToResult(out domain.ExecOutput, err error) domain.CommandResult {
	res := domain.CommandResult{
		RawOutput: out.Stdout,
		Stderr:    out.Stderr,
		ExitCode:  out.ExitCode,
		Duration:  out.Duration,
		Success:   err == nil && out.ExitCode == 0,
	}
	switch {
	case err != nil:
		res.ErrorMessage = err.Error()
	case out.ExitCode != 0:
		res.ErrorMessage = exitMessage(out)
	}
	return res
}

func exitMessage(out domain.ExecOutput) string {
	msg := "exit status " + strconv.Itoa(out.ExitCode)
	if stderr := strings.TrimSpace(out.Stderr); stderr != "" {
		if i := strings.IndexByte(stderr, '\n'); i >= 0 {
			stderr = stderr[:i]
		}
		msg += ": " + stderr
	}
	return msg
}

// Scripted is implemented by commands whose shell form differs from their
// escaped argument list.
type Scripted interface {
	Raw() string
}

// Timed is implemented by commands that carry their own timeout.
type Timed interface {
	RunTimeout() time.Duration
}

// RawCommand renders cmd as the shell script that reproduces it. The cache
// refresh loop re-runs this string.
func RawCommand(cmd Command) string {
	if s, ok := cmd.(Scripted); ok {
		return s.Raw()
	}
	return shellquote.JoinArgv(cmd.Build())
}

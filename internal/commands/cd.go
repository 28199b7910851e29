package commands

import (
	"context"
	"strings"

	"github.com/doeshing/shexec/internal/application/execution"
	"github.com/doeshing/shexec/internal/domain"
	"github.com/doeshing/shexec/internal/pkg/shellquote"
)

// ChangeDirectory moves the context's working directory. The backend resolves
// the path, so relative paths and "~" behave as they do in a shell; the
// context is only updated when the change succeeds.
type ChangeDirectory struct {
	Path string
}

func (c *ChangeDirectory) Name() string { return NameCd }

func (c *ChangeDirectory) Build() []string { return []string{"cd", c.Path} }

func (c *ChangeDirectory) Validate() map[string]string {
	errs := map[string]string{}
	if strings.TrimSpace(c.Path) == "" {
		errs["path"] = "required"
	}
	return errs
}

func (c *ChangeDirectory) Execute(ctx context.Context, ec *execution.Context, _ *domain.CommandResult) domain.CommandResult {
	out, err := ec.RunScript(ctx, "cd "+cdTarget(c.Path)+" && pwd", execution.RunOptions{})
	res := execution.ToResult(out, err)
	if !res.Success {
		return res
	}
	dir := strings.TrimSpace(out.Stdout)
	if dir == "" {
		res.Success = false
		res.ErrorMessage = "cd: backend did not report the new directory"
		return res
	}
	ec.Chdir(dir)
	return res
}

func (c *ChangeDirectory) Clone() execution.Command {
	cp := *c
	return &cp
}

// Traits: never cached, a cache hit would skip the directory change.
func (c *ChangeDirectory) Traits() execution.Traits {
	return execution.Traits{}
}

func cdTarget(path string) string {
	switch {
	case path == "~":
		return "~"
	case strings.HasPrefix(path, "~/"):
		rest := strings.TrimPrefix(path, "~/")
		if rest == "" {
			return "~/"
		}
		return "~/" + shellquote.Escape(rest)
	default:
		return shellquote.Escape(path)
	}
}

package commands

import (
	"context"
	"strconv"

	"github.com/doeshing/shexec/internal/application/execution"
	"github.com/doeshing/shexec/internal/domain"
)

// Cat prints files, or the piped input when no files are given.
type Cat struct {
	Files []string
}

func (c *Cat) Name() string { return NameCat }

func (c *Cat) Build() []string { return append([]string{"cat"}, c.Files...) }

func (c *Cat) Validate() map[string]string {
	errs := map[string]string{}
	validateFiles(c.Files, errs)
	return errs
}

func (c *Cat) Execute(ctx context.Context, ec *execution.Context, input *domain.CommandResult) domain.CommandResult {
	return execution.ToResult(ec.Run(ctx, c.Build(), execution.RunOptions{Input: inputBytes(input)}))
}

func (c *Cat) Clone() execution.Command { return &Cat{Files: cloneStrings(c.Files)} }

func (c *Cat) Traits() execution.Traits {
	return execution.Traits{Structured: true, Cacheable: true}
}

// Head prints the first Lines lines of each file, or of the piped input.
// With several files the output carries "==> name <==" section headers.
type Head struct {
	Files []string
	Lines int
}

func (h *Head) Name() string { return NameHead }

func (h *Head) Build() []string { return lineArgs("head", h.Lines, h.Files) }

func (h *Head) Validate() map[string]string { return validateLines(h.Lines, h.Files) }

func (h *Head) Execute(ctx context.Context, ec *execution.Context, input *domain.CommandResult) domain.CommandResult {
	return execution.ToResult(ec.Run(ctx, h.Build(), execution.RunOptions{Input: inputBytes(input)}))
}

func (h *Head) Clone() execution.Command { return &Head{Files: cloneStrings(h.Files), Lines: h.Lines} }

func (h *Head) Traits() execution.Traits {
	return execution.Traits{Structured: true, Cacheable: true}
}

// Tail prints the last Lines lines of each file.
type Tail struct {
	Files []string
	Lines int
}

func (t *Tail) Name() string { return NameTail }

func (t *Tail) Build() []string { return lineArgs("tail", t.Lines, t.Files) }

func (t *Tail) Validate() map[string]string { return validateLines(t.Lines, t.Files) }

func (t *Tail) Execute(ctx context.Context, ec *execution.Context, input *domain.CommandResult) domain.CommandResult {
	return execution.ToResult(ec.Run(ctx, t.Build(), execution.RunOptions{Input: inputBytes(input)}))
}

func (t *Tail) Clone() execution.Command { return &Tail{Files: cloneStrings(t.Files), Lines: t.Lines} }

func (t *Tail) Traits() execution.Traits {
	return execution.Traits{Structured: true, Cacheable: true}
}

// lineArgs treats zero lines as the tool default of ten.
func lineArgs(tool string, lines int, files []string) []string {
	if lines == 0 {
		lines = defaultLines
	}
	args := []string{tool, "-n", strconv.Itoa(lines)}
	return append(args, files...)
}

func validateLines(lines int, files []string) map[string]string {
	errs := map[string]string{}
	if lines < 0 {
		errs["lines"] = "must not be negative"
	}
	validateFiles(files, errs)
	return errs
}

package commands

import (
	"context"
	"fmt"
	"strings"

	"github.com/doeshing/shexec/internal/application/execution"
	"github.com/doeshing/shexec/internal/domain"
)

// Chain runs stages in order, handing each stage's result to the next as its
// input. It stops at the first failing stage and returns that stage's result.
type Chain struct {
	Stages []execution.Command
}

// Then chains first with the following stages. Stages are cloned, so later
// changes to the arguments do not leak into the chain.
func Then(first execution.Command, next ...execution.Command) *Chain {
	c := &Chain{}
	c.Stages = append(c.Stages, first.Clone())
	for _, n := range next {
		c.Stages = append(c.Stages, n.Clone())
	}
	return c
}

// Then appends another stage.
func (c *Chain) Then(next execution.Command) *Chain {
	c.Stages = append(c.Stages, next.Clone())
	return c
}

func (c *Chain) Name() string { return NameChain }

// Build lists every stage as name followed by its arguments, stages separated by "|".
func (c *Chain) Build() []string {
	var args []string
	for i, s := range c.Stages {
		if i > 0 {
			args = append(args, "|")
		}
		args = append(args, s.Name())
		args = append(args, s.Build()...)
	}
	return args
}

// Raw renders the chain as a shell pipeline for display. Stages that are
// compound scripts are grouped in a subshell. A pipeline does not stop at a
// failing stage, so the refresh loop never re-runs this string.
func (c *Chain) Raw() string {
	parts := make([]string, 0, len(c.Stages))
	for _, s := range c.Stages {
		raw := execution.RawCommand(s)
		if strings.ContainsAny(raw, ";&|\n") {
			raw = "(" + raw + ")"
		}
		parts = append(parts, raw)
	}
	return strings.Join(parts, " | ")
}

func (c *Chain) Validate() map[string]string {
	errs := map[string]string{}
	if len(c.Stages) == 0 {
		errs["stages"] = "at least one stage required"
	}
	for i, s := range c.Stages {
		if s == nil {
			errs[fmt.Sprintf("stages[%d]", i)] = "must not be nil"
			continue
		}
		for field, msg := range s.Validate() {
			errs[fmt.Sprintf("stages[%d].%s", i, field)] = msg
		}
	}
	return errs
}

func (c *Chain) Execute(ctx context.Context, ec *execution.Context, input *domain.CommandResult) domain.CommandResult {
	prev := input
	var res domain.CommandResult
	for _, s := range c.Stages {
		res = s.Execute(ctx, ec, prev)
		if !res.Success {
			return res
		}
		stage := res
		prev = &stage
	}
	return res
}

func (c *Chain) Clone() execution.Command {
	cp := &Chain{Stages: make([]execution.Command, 0, len(c.Stages))}
	for _, s := range c.Stages {
		cp.Stages = append(cp.Stages, s.Clone())
	}
	return cp
}

// Traits: structured when the last stage is, cacheable only when every stage is.
func (c *Chain) Traits() execution.Traits {
	if len(c.Stages) == 0 {
		return execution.Traits{}
	}
	t := execution.Traits{Structured: c.Stages[len(c.Stages)-1].Traits().Structured, Cacheable: true}
	for _, s := range c.Stages {
		if !s.Traits().Cacheable {
			t.Cacheable = false
		}
	}
	return t
}

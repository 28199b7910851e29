// Package execution holds the execution context commands run against and the
// capability contract every command implements.
package execution

import (
	"context"

	"github.com/doeshing/shexec/internal/domain"
)

// Traits describe how the orchestrator treats a command's results.
type Traits struct {
	// Structured asks for output normalization into records.
	Structured bool
	// Cacheable allows results to be served from the result cache.
	Cacheable bool
}

// Command is the capability set shared by every wrapped utility.
type Command interface {
	// Name identifies the command kind; it is part of the cache fingerprint.
	Name() string
	// Build renders the argument list the command will run.
	Build() []string
	// Validate reports field problems; a non-empty map blocks execution.
	Validate() map[string]string
	// Execute runs against the context. input is the previous stage's result
	// when the command is part of a chain, otherwise nil. Failures are
	// reported in the returned result, never as a panic or error.
	Execute(ctx context.Context, ec *Context, input *domain.CommandResult) domain.CommandResult
	// Clone returns an independent deep copy.
	Clone() Command
	Traits() Traits
}

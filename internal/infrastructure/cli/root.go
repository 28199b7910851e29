// Package cli exposes the orchestrator as the shexec command line.
package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/doeshing/shexec/internal/app"
	"github.com/doeshing/shexec/internal/infrastructure/cli/commands"
)

// Options holds CLI-level configuration.
type Options struct {
	Verbose bool
	Args    []string
}

// ExitError carries a command's exit status out of cobra.
type ExitError struct {
	Code    int
	Message string
}

func (e *ExitError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("exit status %d", e.Code)
	}
	return e.Message
}

// Run builds the container, executes the command line and tears everything
// down, saving the cache snapshot on the way out.
func Run(ctx context.Context, opts Options) error {
	container, err := app.BuildContainer(ctx, app.Options{Verbose: opts.Verbose})
	if err != nil {
		return err
	}
	root := NewRootCmd(container)
	if opts.Args != nil {
		root.SetArgs(opts.Args)
	}
	runErr := root.ExecuteContext(ctx)
	closeErr := container.Close()
	return errors.Join(runErr, closeErr)
}

// NewRootCmd wires the cobra root command.
func NewRootCmd(container *app.Container) *cobra.Command {
	root := &cobra.Command{
		Use:           "shexec",
		Short:         "shexec - cached local and SSH command runner",
		Long:          "shexec runs shell commands locally or over SSH, caches their results and turns output into records.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(newRunCommand(container))
	root.AddCommand(newFileCommands(container)...)
	root.AddCommand(commands.NewCacheCommand(container))
	root.AddCommand(commands.NewHistoryCommand(container))
	root.AddCommand(commands.NewConfigCommand(container))
	root.AddCommand(commands.NewAliasCommand(container))
	root.AddCommand(commands.NewDoctorCommand(container))
	root.AddCommand(commands.NewVersionCommand())
	return root
}

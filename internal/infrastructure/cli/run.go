package cli

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/doeshing/shexec/internal/app"
	"github.com/doeshing/shexec/internal/application/execution"
	"github.com/doeshing/shexec/internal/application/orchestrator"
	"github.com/doeshing/shexec/internal/commands"
	"github.com/doeshing/shexec/internal/domain"
	"github.com/doeshing/shexec/internal/pkg/filesystem"
)

// runFlags are shared by every command that executes something.
type runFlags struct {
	live       bool
	structured bool
	noCache    bool
	asJSON     bool
	insecure   bool
	remote     string
	key        string
	dir        string
	timeout    time.Duration
	then       []string
}

func (f *runFlags) register(cmd *cobra.Command) {
	cmd.Flags().BoolVarP(&f.live, "live", "l", false, "Stream stdout while the command runs (bypasses the cache)")
	cmd.Flags().BoolVarP(&f.structured, "structured", "s", false, "Normalize output into records")
	cmd.Flags().BoolVar(&f.noCache, "no-cache", false, "Always execute, never read or store cached results")
	cmd.Flags().BoolVar(&f.asJSON, "json", false, "Print the full result as JSON")
	cmd.Flags().StringVarP(&f.remote, "remote", "r", "", "Run over SSH on user@host[:port]")
	cmd.Flags().StringVarP(&f.key, "key", "i", "", "Private key for --remote")
	cmd.Flags().BoolVar(&f.insecure, "insecure", false, "Skip SSH host key verification")
	cmd.Flags().StringVarP(&f.dir, "dir", "C", "", "Working directory")
	cmd.Flags().DurationVar(&f.timeout, "timeout", 0, "Per-command timeout (default from config)")
	cmd.Flags().StringArrayVar(&f.then, "then", nil, "Shell command fed the previous stage's output (repeatable)")
}

func newRunCommand(container *app.Container) *cobra.Command {
	var (
		flags runFlags
		alias string
	)

	cmd := &cobra.Command{
		Use:   "run [flags] -- <command...>",
		Short: "Run a shell command locally or over SSH",
		Example: `  shexec run -- df -h
  shexec run --structured -- 'cat /etc/os-release'
  shexec run -r ops@db1 --then 'grep ERROR' -- journalctl -n 200
  shexec run --alias logs`,
		RunE: func(cmd *cobra.Command, args []string) error {
			var first execution.Command
			switch {
			case alias != "" && len(args) > 0:
				return fmt.Errorf("--alias and a command are mutually exclusive")
			case alias != "":
				proto, ok := container.Orchestrator.Get(alias)
				if !ok {
					return fmt.Errorf("unknown alias %q: %w", alias, domain.ErrNotFound)
				}
				first = proto
			case len(args) == 0:
				return fmt.Errorf("a command is required")
			default:
				first = commands.NewShell(strings.Join(args, " "))
			}
			return execute(cmd, container, &flags, first)
		},
	}
	flags.register(cmd)
	cmd.Flags().StringVarP(&alias, "alias", "a", "", "Run a command registered in the config aliases")
	return cmd
}

// execute applies the flags to the context, runs first (plus any --then
// stages) and renders the result.
func execute(cmd *cobra.Command, container *app.Container, flags *runFlags, first execution.Command) error {
	svc := container.Orchestrator
	svc.LiveWriter = cmd.OutOrStdout()
	if flags.noCache {
		svc.CachingEnabled = false
	}

	if flags.remote != "" {
		host, err := remoteHost(container.Config, flags)
		if err != nil {
			return err
		}
		if err := svc.Context.SetRemote(host); err != nil {
			return err
		}
	}
	if flags.dir != "" {
		svc.Context.Chdir(filesystem.ExpandPath(flags.dir))
	}

	applyShellFlags(first, flags)
	stages := []execution.Command{first}
	for _, script := range flags.then {
		stage := commands.NewShell(script)
		applyShellFlags(stage, flags)
		stages = append(stages, stage)
	}

	opts := orchestrator.Options{LiveOutput: flags.live}
	var (
		res domain.CommandResult
		err error
	)
	if len(stages) == 1 {
		res, err = svc.Execute(cmd.Context(), first, opts)
	} else {
		res, err = svc.Chain(cmd.Context(), opts, stages...)
	}
	if err != nil {
		return err
	}

	if err := RenderResult(cmd.OutOrStdout(), cmd.ErrOrStderr(), res, RenderOptions{
		JSON:       flags.asJSON,
		Live:       flags.live,
		Structured: flags.structured || len(res.Structured) > 0,
	}); err != nil {
		return err
	}
	if !res.Success {
		code := res.ExitCode
		if code <= 0 {
			code = 1
		}
		return &ExitError{Code: code, Message: res.ErrorMessage}
	}
	return nil
}

func applyShellFlags(c execution.Command, flags *runFlags) {
	shell, ok := c.(*commands.Shell)
	if !ok {
		return
	}
	if flags.structured {
		shell.Structured = true
	}
	if flags.noCache {
		shell.NoCache = true
	}
	if flags.timeout > 0 {
		shell.Timeout = flags.timeout
	}
}

// remoteHost parses --remote and fills credentials from the configured
// remote when the flags leave them empty.
func remoteHost(cfg domain.Config, flags *runFlags) (domain.RemoteHost, error) {
	host, err := domain.ParseRemoteHost(flags.remote)
	if err != nil {
		return domain.RemoteHost{}, err
	}
	host.KeyPath = filesystem.ExpandPath(flags.key)
	host.Insecure = flags.insecure
	if cfg.Remote != nil {
		if host.KeyPath == "" {
			host.KeyPath = cfg.Remote.KeyPath
			host.Passphrase = cfg.Remote.Passphrase
		}
		if host.Password == "" {
			host.Password = cfg.Remote.Password
		}
		if host.KnownHostsPath == "" {
			host.KnownHostsPath = cfg.Remote.KnownHostsPath
		}
		if host.User == "" {
			host.User = cfg.Remote.User
		}
	}
	if host.KeyPath == "" && host.Password == "" {
		return domain.RemoteHost{}, fmt.Errorf("--remote %s: no --key given and no credentials configured", flags.remote)
	}
	return host, nil
}

// newFileCommands exposes the file readers and env as first-class commands,
// created through the registry.
func newFileCommands(container *app.Container) []*cobra.Command {
	var out []*cobra.Command
	for _, kind := range []string{commands.NameCat, commands.NameHead, commands.NameTail, commands.NameEnv} {
		out = append(out, newKindCommand(container, kind))
	}
	return out
}

func newKindCommand(container *app.Container, kind string) *cobra.Command {
	var (
		flags runFlags
		lines int
	)
	cmd := &cobra.Command{
		Use:   kind + " [files...]",
		Short: "Run " + kind + " and normalize its output",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, ok := container.Orchestrator.Create(kind)
			if !ok {
				return fmt.Errorf("unknown command kind %q: %w", kind, domain.ErrNotFound)
			}
			switch typed := c.(type) {
			case *commands.Cat:
				typed.Files = args
			case *commands.Head:
				typed.Files, typed.Lines = args, lines
			case *commands.Tail:
				typed.Files, typed.Lines = args, lines
			case *commands.Env:
				if len(args) > 0 {
					return fmt.Errorf("env takes no arguments, got %s", strconv.Quote(strings.Join(args, " ")))
				}
			}
			return execute(cmd, container, &flags, c)
		},
	}
	flags.register(cmd)
	if kind == commands.NameHead || kind == commands.NameTail {
		cmd.Flags().IntVarP(&lines, "lines", "n", 10, "Number of lines")
	}
	return cmd
}

package commands

import (
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/doeshing/shexec/internal/app"
	"github.com/doeshing/shexec/internal/commands"
	"github.com/doeshing/shexec/internal/infrastructure/cli/helpers"
)

// NewAliasCommand manages named shell commands stored in the configuration.
func NewAliasCommand(container *app.Container) *cobra.Command {
	aliasCmd := &cobra.Command{
		Use:   "alias",
		Short: "Manage command aliases used by `run --alias`",
	}

	aliasCmd.AddCommand(
		&cobra.Command{
			Use:   "list",
			Short: "List aliases",
			RunE: func(cmd *cobra.Command, args []string) error {
				aliases := container.Config.Aliases
				if len(aliases) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), MsgNoAliases)
					return nil
				}
				names := make([]string, 0, len(aliases))
				for name := range aliases {
					names = append(names, name)
				}
				sort.Strings(names)
				for _, name := range names {
					fmt.Fprintf(cmd.OutOrStdout(), "%s = %s\n", name, aliases[name])
				}
				return nil
			},
		},
		&cobra.Command{
			Use:   "add <name> <command...>",
			Short: "Add or replace an alias",
			Args:  cobra.MinimumNArgs(2),
			RunE: func(cmd *cobra.Command, args []string) error {
				cfg := container.Config
				aliases := make(map[string]string, len(cfg.Aliases)+1)
				for k, v := range cfg.Aliases {
					aliases[k] = v
				}
				script := strings.Join(args[1:], " ")
				aliases[args[0]] = script
				cfg.Aliases = aliases
				if err := helpers.SaveConfigWithValidation(container, cfg); err != nil {
					return err
				}
				container.Config = cfg
				return container.Orchestrator.Register(args[0], commands.NewShell(script))
			},
		},
		&cobra.Command{
			Use:   "remove <name>",
			Short: "Remove an alias",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				cfg := container.Config
				if _, ok := cfg.Aliases[args[0]]; !ok {
					return fmt.Errorf("alias %q not found", args[0])
				}
				aliases := make(map[string]string, len(cfg.Aliases))
				for k, v := range cfg.Aliases {
					if k != args[0] {
						aliases[k] = v
					}
				}
				cfg.Aliases = aliases
				if err := helpers.SaveConfigWithValidation(container, cfg); err != nil {
					return err
				}
				container.Config = cfg
				return nil
			},
		},
	)
	return aliasCmd
}

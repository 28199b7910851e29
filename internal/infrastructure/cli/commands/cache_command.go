package commands

import (
	"fmt"
	"io"
	"os"
	"os/signal"
	"sort"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/doeshing/shexec/internal/app"
	"github.com/doeshing/shexec/internal/application/orchestrator"
)

// NewCacheCommand creates the cache command with all subcommands
func NewCacheCommand(container *app.Container) *cobra.Command {
	cacheCmd := &cobra.Command{
		Use:   "cache",
		Short: "Inspect, refresh or clear cached results",
	}

	cacheCmd.AddCommand(
		newCacheListCommand(container),
		newCacheStatsCommand(container),
		newCacheHistoryCommand(container),
		newCacheExportCommand(container),
		newCacheClearCommand(container),
		newCacheRefreshCommand(container),
		newCacheWatchCommand(container),
	)

	return cacheCmd
}

// newCacheListCommand creates the 'cache list' subcommand
func newCacheListCommand(container *app.Container) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List cached commands, oldest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			return listCacheEntries(cmd.OutOrStdout(), container)
		},
	}
}

// newCacheStatsCommand creates the 'cache stats' subcommand
func newCacheStatsCommand(container *app.Container) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show store counts since the last clear",
		RunE: func(cmd *cobra.Command, args []string) error {
			return showCacheStats(cmd.OutOrStdout(), container)
		},
	}
}

// newCacheHistoryCommand creates the 'cache history' subcommand
func newCacheHistoryCommand(container *app.Container) *cobra.Command {
	var successOnly bool
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show every store into the cache",
		RunE: func(cmd *cobra.Command, args []string) error {
			if container.Cache == nil {
				return fmt.Errorf(ErrCacheUnavailable)
			}
			for _, h := range container.Cache.History(successOnly) {
				fmt.Fprintf(cmd.OutOrStdout(), "%s | %s | %s | %s\n",
					h.Timestamp.Format(TimestampFormat),
					statusLabel(h.Success),
					shortKey(h.Key),
					h.RawCommand)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&successOnly, "success", false, "Only successful stores")
	return cmd
}

// newCacheExportCommand creates the 'cache export' subcommand
func newCacheExportCommand(container *app.Container) *cobra.Command {
	var includeResults bool
	cmd := &cobra.Command{
		Use:   "export [path]",
		Short: "Export history and statistics as JSON (stdout by default)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if container.Cache == nil {
				return fmt.Errorf(ErrCacheUnavailable)
			}
			if len(args) == 0 {
				return container.Cache.WriteJSON(cmd.OutOrStdout(), includeResults)
			}
			file, err := os.Create(args[0])
			if err != nil {
				return fmt.Errorf("failed to create %s: %w", args[0], err)
			}
			defer file.Close()
			return container.Cache.WriteJSON(file, includeResults)
		},
	}
	cmd.Flags().BoolVar(&includeResults, "results", false, "Include cached outputs")
	return cmd
}

// newCacheClearCommand creates the 'cache clear' subcommand
func newCacheClearCommand(container *app.Container) *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Drop results, history and statistics",
		RunE: func(cmd *cobra.Command, args []string) error {
			if container.Cache == nil {
				return fmt.Errorf(ErrCacheUnavailable)
			}
			container.Cache.Clear()
			if container.Snapshots != nil {
				if err := container.Snapshots.Clear(); err != nil {
					return fmt.Errorf("failed to clear snapshot: %w", err)
				}
			}
			return nil
		},
	}
}

// newCacheRefreshCommand creates the 'cache refresh' subcommand
func newCacheRefreshCommand(container *app.Container) *cobra.Command {
	return &cobra.Command{
		Use:   "refresh",
		Short: "Re-run every cached command once",
		RunE: func(cmd *cobra.Command, args []string) error {
			before := container.Cache.RefreshErrors()
			if err := container.Orchestrator.RefreshNow(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Refreshed %d entries (%d failed).\n",
				container.Cache.Len(), container.Cache.RefreshErrors()-before)
			return nil
		},
	}
}

// newCacheWatchCommand creates the 'cache watch' subcommand
func newCacheWatchCommand(container *app.Container) *cobra.Command {
	var interval time.Duration
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Keep cached results fresh until interrupted",
		RunE: func(cmd *cobra.Command, args []string) error {
			if interval <= 0 {
				interval = container.Config.Cache.RefreshDuration()
			}
			if interval <= 0 {
				return fmt.Errorf("refresh is disabled; pass --interval or set cache.refresh_interval")
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			if err := container.Orchestrator.StartRefresh(interval); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Refreshing %d entries every %s. Press Ctrl-C to stop.\n", container.Cache.Len(), interval)
			<-ctx.Done()
			container.Orchestrator.StopRefresh()
			return container.SaveSnapshot()
		},
	}
	cmd.Flags().DurationVar(&interval, "interval", 0, "Refresh interval (default from config, at least 1s)")
	return cmd
}

// listCacheEntries lists cached commands in eviction order
func listCacheEntries(out io.Writer, container *app.Container) error {
	if container.Cache == nil {
		return fmt.Errorf(ErrCacheUnavailable)
	}
	export := container.Cache.Export(true)
	if len(export.Results) == 0 {
		fmt.Fprintln(out, MsgNoCachedResults)
		return nil
	}
	for _, key := range container.Cache.Keys() {
		res, ok := export.Results[key]
		if !ok {
			continue
		}
		fmt.Fprintf(out, "%s | %s | exit %d | %s\n", shortKey(key), statusLabel(res.Success), res.ExitCode, res.RawCommand)
	}
	return nil
}

// showCacheStats displays capacity and store counters
func showCacheStats(out io.Writer, container *app.Container) error {
	c := container.Cache
	if c == nil {
		return fmt.Errorf(ErrCacheUnavailable)
	}
	stats := c.Statistics()
	fmt.Fprintf(out, "Entries: %d/%d\nStores: %d\nSuccessful: %d\nFailed: %d\n",
		c.Len(), c.Capacity(), stats.TotalCommands, stats.SuccessCount, stats.ErrorCount)

	perCommand := make(map[string]int)
	for _, res := range c.Export(true).Results {
		perCommand[res.Metadata[orchestrator.MetaCommand]]++
	}
	if len(perCommand) == 0 {
		return nil
	}
	names := make([]string, 0, len(perCommand))
	for name := range perCommand {
		names = append(names, name)
	}
	sort.Strings(names)
	fmt.Fprintln(out, "Entries per command:")
	for _, name := range names {
		fmt.Fprintf(out, "  %s: %d\n", name, perCommand[name])
	}
	return nil
}

func statusLabel(success bool) string {
	if success {
		return "ok"
	}
	return "failed"
}

func shortKey(key string) string {
	if len(key) > 12 {
		return key[:12]
	}
	return key
}

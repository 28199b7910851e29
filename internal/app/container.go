// Package app wires application services to infrastructure adapters.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	appconfig "github.com/doeshing/shexec/internal/application/config"
	"github.com/doeshing/shexec/internal/application/execution"
	"github.com/doeshing/shexec/internal/application/orchestrator"
	"github.com/doeshing/shexec/internal/application/registry"
	"github.com/doeshing/shexec/internal/commands"
	"github.com/doeshing/shexec/internal/domain"
	"github.com/doeshing/shexec/internal/infrastructure/backend"
	"github.com/doeshing/shexec/internal/infrastructure/cache"
	"github.com/doeshing/shexec/internal/infrastructure/config"
	"github.com/doeshing/shexec/internal/infrastructure/history"
	"github.com/doeshing/shexec/internal/infrastructure/normalize"
	"github.com/doeshing/shexec/internal/pkg/logger"
	"github.com/doeshing/shexec/internal/ports"
)

// Options tune container construction.
type Options struct {
	ConfigPath string
	Verbose    bool
}

// Container wires up application services with infrastructure adapters.
type Container struct {
	Config       domain.Config
	ConfigLoader *config.FileLoader
	Logger       ports.Logger
	Orchestrator *orchestrator.Service
	Cache        *cache.ResultCache
	Snapshots    *cache.SnapshotStore
	HistoryStore ports.HistoryRepository
}

// BuildContainer constructs the dependency graph.
func BuildContainer(ctx context.Context, opts Options) (*Container, error) {
	cfgLoader := config.NewFileLoader(opts.ConfigPath)
	cfg, err := cfgLoader.Load(ctx)
	if err != nil {
		return nil, err
	}
	if err := appconfig.Validate(cfg); err != nil {
		return nil, fmt.Errorf("%s: %w", cfgLoader.Path(), err)
	}

	logSettings := cfg.Logging
	if opts.Verbose {
		logSettings.Level = "debug"
	}
	log := logger.New(logSettings)
	if err := log.Init(); err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	timeout := cfg.Execution.TimeoutDuration()
	dir := cfg.Execution.WorkingDir
	if dir == "" {
		if dir, err = os.Getwd(); err != nil {
			dir = "."
		}
	}
	ec := execution.NewContext(dir, backend.NewLocal(cfg.Execution.Shell, timeout),
		backend.NewSSHFactory(cfg.Execution.ConnectTimeoutDuration(), timeout, log))
	ec.SetTimeout(timeout)
	if cfg.Remote != nil {
		if err := ec.SetRemote(*cfg.Remote); err != nil {
			_ = log.Close()
			return nil, err
		}
	}

	resultCache, err := cache.New(cfg.Cache.MaxEntries, cache.WithLogger(log))
	if err != nil {
		_ = log.Close()
		return nil, err
	}
	var snapshots *cache.SnapshotStore
	if cfg.Cache.Enabled && cfg.Cache.Persist {
		snapshots = cache.NewSnapshotStore(cfg.Cache.SnapshotPath)
		if export, err := snapshots.Load(); err != nil {
			log.Warn("cache snapshot unreadable, starting empty", map[string]interface{}{
				"path":  snapshots.Path(),
				"error": err.Error(),
			})
		} else {
			restored := resultCache.Restore(export)
			log.Debug("cache snapshot restored", map[string]interface{}{"entries": restored})
		}
	}

	var historyStore ports.HistoryRepository
	if cfg.History.Enabled {
		historyStore = history.Open(cfg.History.Path, log)
	}

	reg := registry.New(factories())
	for alias, script := range cfg.Aliases {
		if err := reg.Register(alias, commands.NewShell(script)); err != nil {
			log.Warn("alias skipped", map[string]interface{}{"alias": alias, "error": err.Error()})
		}
	}

	svc := &orchestrator.Service{
		Context:        ec,
		Registry:       reg,
		Cache:          resultCache,
		Normalizer:     normalize.New(),
		History:        historyStore,
		Logger:         log,
		CachingEnabled: cfg.Cache.Enabled,
		LiveWriter:     os.Stdout,
	}

	return &Container{
		Config:       cfg,
		ConfigLoader: cfgLoader,
		Logger:       log,
		Orchestrator: svc,
		Cache:        resultCache,
		Snapshots:    snapshots,
		HistoryStore: historyStore,
	}, nil
}

// SaveSnapshot persists cached results when persistence is enabled.
func (c *Container) SaveSnapshot() error {
	if c.Snapshots == nil {
		return nil
	}
	return c.Snapshots.Save(c.Cache)
}

// Close stops background work, saves the cache snapshot and releases
// backends, the history database and the log output.
func (c *Container) Close() error {
	var errs []error
	if err := c.Orchestrator.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close orchestrator: %w", err))
	}
	if err := c.SaveSnapshot(); err != nil {
		errs = append(errs, fmt.Errorf("save cache snapshot: %w", err))
	}
	if closer, ok := c.HistoryStore.(io.Closer); ok {
		if err := closer.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close history: %w", err))
		}
	}
	if err := c.Logger.Close(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

func factories() map[string]func() execution.Command {
	out := make(map[string]func() execution.Command)
	for name, f := range commands.Defaults() {
		out[name] = f
	}
	return out
}

package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/doeshing/shexec/internal/domain"
	"github.com/doeshing/shexec/internal/ports"
)

// StartRefresh re-executes every cached command each interval and overwrites
// its result. Calling it while a refresh loop is running is a no-op.
func (c *ResultCache) StartRefresh(interval time.Duration, refresh RefreshFunc) error {
	if interval <= 0 {
		return fmt.Errorf("refresh interval must be positive, got %s", interval)
	}
	if refresh == nil {
		return fmt.Errorf("refresh function is required")
	}

	c.refreshMu.Lock()
	defer c.refreshMu.Unlock()
	if c.scheduler != nil {
		return nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	cronLog := cronLogger{logger: c.logger}
	scheduler := cron.New(
		cron.WithLogger(cronLog),
		cron.WithChain(cron.Recover(cronLog), cron.SkipIfStillRunning(cronLog)),
	)
	if _, err := scheduler.AddFunc(fmt.Sprintf("@every %s", interval), func() {
		c.RefreshOnce(ctx, refresh)
	}); err != nil {
		cancel()
		return fmt.Errorf("schedule refresh: %w", err)
	}
	scheduler.Start()

	c.scheduler = scheduler
	c.refreshCancel = cancel
	return nil
}

// StopRefresh cancels any in-flight iteration and blocks until the refresh job
// has returned. No cache mutation from the loop happens after it returns.
func (c *ResultCache) StopRefresh() {
	c.refreshMu.Lock()
	scheduler, cancel := c.scheduler, c.refreshCancel
	c.scheduler, c.refreshCancel = nil, nil
	c.refreshMu.Unlock()

	if scheduler == nil {
		return
	}
	cancel()
	<-scheduler.Stop().Done()
}

// Refreshing reports whether the refresh loop is running.
func (c *ResultCache) Refreshing() bool {
	c.refreshMu.Lock()
	defer c.refreshMu.Unlock()
	return c.scheduler != nil
}

// RefreshErrors counts failed per-entry refreshes since the cache was created.
func (c *ResultCache) RefreshErrors() int {
	c.refreshMu.Lock()
	defer c.refreshMu.Unlock()
	return c.refreshErrors
}

// RefreshOnce runs a single refresh pass. Commands run outside the lock;
// results are written back only for entries that are still cached.
func (c *ResultCache) RefreshOnce(ctx context.Context, refresh RefreshFunc) {
	type target struct{ key, raw string }

	c.mu.RLock()
	targets := make([]target, 0, len(c.order))
	for _, key := range c.order {
		targets = append(targets, target{key: key, raw: c.entries[key].rawCommand})
	}
	c.mu.RUnlock()

	for _, t := range targets {
		if ctx.Err() != nil {
			return
		}
		result, err := refresh(ctx, t.key, t.raw)
		if errors.Is(err, domain.ErrRefreshSkipped) {
			continue
		}
		if err != nil {
			c.refreshMu.Lock()
			c.refreshErrors++
			c.refreshMu.Unlock()
			if c.logger != nil {
				c.logger.Error("cache refresh failed", err, map[string]interface{}{"key": t.key, "command": t.raw})
			}
			continue
		}

		c.mu.Lock()
		if ctx.Err() == nil {
			if e, ok := c.entries[t.key]; ok {
				meta := copyMetadata(e.metadata)
				meta["refreshed_at"] = c.now().UTC().Format(time.RFC3339)
				c.storeLocked(t.key, t.raw, result, meta)
			}
		}
		c.mu.Unlock()
	}
}

// cronLogger adapts ports.Logger to cron.Logger.
type cronLogger struct {
	logger ports.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	if l.logger != nil {
		l.logger.Debug("cron: "+msg, kvFields(keysAndValues))
	}
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	if l.logger != nil {
		l.logger.Error("cron: "+msg, err, kvFields(keysAndValues))
	}
}

func kvFields(keysAndValues []interface{}) map[string]interface{} {
	fields := make(map[string]interface{}, len(keysAndValues)/2)
	for i := 0; i+1 < len(keysAndValues); i += 2 {
		fields[fmt.Sprint(keysAndValues[i])] = keysAndValues[i+1]
	}
	return fields
}

var _ cron.Logger = cronLogger{}

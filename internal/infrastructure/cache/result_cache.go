// Package cache holds the bounded command result cache and its snapshot store.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/doeshing/shexec/internal/domain"
	"github.com/doeshing/shexec/internal/ports"
)

// RefreshFunc re-executes the raw command behind a cache entry.
type RefreshFunc = ports.RefreshFunc

type entry struct {
	rawCommand string
	result     domain.CommandResult
	metadata   map[string]string
	seq        uint64
	storedAt   time.Time
}

// ResultCache is a fixed-capacity store evicting in insertion order. A single
// RWMutex guards results, order, history and statistics; every mutation takes
// the write lock.
type ResultCache struct {
	maxSize int
	logger  ports.Logger
	now     func() time.Time

	mu      sync.RWMutex
	entries map[string]*entry
	order   []string
	seq     uint64
	history []domain.CacheHistoryEntry
	stats   domain.CacheStatistics

	refreshMu     sync.Mutex
	scheduler     *cron.Cron
	refreshCancel context.CancelFunc
	refreshErrors int
}

// Option customizes a ResultCache.
type Option func(*ResultCache)

// WithLogger routes refresh diagnostics to logger.
func WithLogger(logger ports.Logger) Option {
	return func(c *ResultCache) { c.logger = logger }
}

// WithClock overrides the timestamp source.
func WithClock(now func() time.Time) Option {
	return func(c *ResultCache) { c.now = now }
}

// New creates a cache holding at most maxSize entries.
func New(maxSize int, opts ...Option) (*ResultCache, error) {
	if maxSize <= 0 {
		return nil, fmt.Errorf("%w: got %d", domain.ErrInvalidCapacity, maxSize)
	}
	c := &ResultCache{
		maxSize: maxSize,
		now:     time.Now,
		entries: make(map[string]*entry),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Store inserts or overwrites key. An overwrite keeps the key's original
// insertion position; a new key evicts the oldest-inserted entries first.
func (c *ResultCache) Store(key, rawCommand string, result domain.CommandResult, metadata map[string]string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.storeLocked(key, rawCommand, result, metadata)
}

func (c *ResultCache) storeLocked(key, rawCommand string, result domain.CommandResult, metadata map[string]string) {
	now := c.now()
	if existing, ok := c.entries[key]; ok {
		existing.rawCommand = rawCommand
		existing.result = result
		existing.metadata = copyMetadata(metadata)
		existing.storedAt = now
	} else {
		for len(c.order) >= c.maxSize {
			c.evictOldestLocked()
		}
		c.seq++
		c.entries[key] = &entry{
			rawCommand: rawCommand,
			result:     result,
			metadata:   copyMetadata(metadata),
			seq:        c.seq,
			storedAt:   now,
		}
		c.order = append(c.order, key)
	}

	c.history = append(c.history, domain.CacheHistoryEntry{
		Key:        key,
		RawCommand: rawCommand,
		Timestamp:  now,
		Success:    result.Success,
	})
	c.stats.TotalCommands++
	if result.Success {
		c.stats.SuccessCount++
	} else {
		c.stats.ErrorCount++
	}
}

func (c *ResultCache) evictOldestLocked() {
	if len(c.order) == 0 {
		return
	}
	oldest := c.order[0]
	c.order = c.order[1:]
	delete(c.entries, oldest)
}

// Get returns the stored result for key.
func (c *ResultCache) Get(key string) (domain.CommandResult, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.entries[key]
	if !ok {
		return domain.CommandResult{}, false
	}
	return e.result, true
}

// Metadata returns a copy of the metadata stored with key.
func (c *ResultCache) Metadata(key string) (map[string]string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	return copyMetadata(e.metadata), true
}

// Len reports the number of cached entries.
func (c *ResultCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.order)
}

// Capacity reports the configured maximum size.
func (c *ResultCache) Capacity() int { return c.maxSize }

// Keys lists cached keys oldest first.
func (c *ResultCache) Keys() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]string(nil), c.order...)
}

// History lists every store since the last Clear, oldest first.
func (c *ResultCache) History(successOnly bool) []domain.CacheHistoryEntry {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]domain.CacheHistoryEntry, 0, len(c.history))
	for _, h := range c.history {
		if successOnly && !h.Success {
			continue
		}
		out = append(out, h)
	}
	return out
}

// Statistics aggregates stores since the last Clear.
func (c *ResultCache) Statistics() domain.CacheStatistics {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.stats
}

// Export serializes history and statistics, plus result payloads when asked.
func (c *ResultCache) Export(includeResults bool) domain.CacheExport {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := domain.CacheExport{
		History:    append([]domain.CacheHistoryEntry{}, c.history...),
		Statistics: c.stats,
	}
	if includeResults {
		out.Results = make(map[string]domain.CachedResult, len(c.entries))
		for key, e := range c.entries {
			out.Results[key] = domain.CachedResult{
				RawCommand: e.rawCommand,
				RawOutput:  e.result.RawOutput,
				Success:    e.result.Success,
				ExitCode:   e.result.ExitCode,
				Metadata:   copyMetadata(e.metadata),
			}
		}
	}
	return out
}

// WriteJSON writes Export(includeResults) to w as indented JSON.
func (c *ResultCache) WriteJSON(w io.Writer, includeResults bool) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(c.Export(includeResults))
}

// Restore re-seeds results from an export, oldest history first so insertion
// order survives the round trip. Entries without a payload are skipped.
func (c *ResultCache) Restore(export domain.CacheExport) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	restored := 0
	seen := make(map[string]bool, len(export.Results))
	for _, h := range export.History {
		payload, ok := export.Results[h.Key]
		if !ok || seen[h.Key] {
			continue
		}
		seen[h.Key] = true
		raw := payload.RawCommand
		if raw == "" {
			raw = h.RawCommand
		}
		c.storeLocked(h.Key, raw, domain.CommandResult{
			RawOutput: payload.RawOutput,
			Success:   payload.Success,
			ExitCode:  payload.ExitCode,
		}, payload.Metadata)
		restored++
	}
	return restored
}

// Clear empties results, history and statistics in one step.
func (c *ResultCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]*entry)
	c.order = nil
	c.history = nil
	c.stats = domain.CacheStatistics{}
}

var _ ports.ResultCache = (*ResultCache)(nil)

func copyMetadata(in map[string]string) map[string]string {
	out := make(map[string]string, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

// Package orchestrator is the entry point for running commands: validation,
// caching, live output, normalization, history and chaining.
package orchestrator

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"strconv"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/doeshing/shexec/internal/application/execution"
	"github.com/doeshing/shexec/internal/application/registry"
	"github.com/doeshing/shexec/internal/commands"
	"github.com/doeshing/shexec/internal/domain"
	"github.com/doeshing/shexec/internal/ports"
)

// Metadata keys stored with every cached result.
const (
	MetaCommand    = "command"
	MetaDir        = "dir"
	MetaTarget     = "target"
	MetaStructured = "structured"
	MetaTimeout    = "timeout"
)

// Options tune a single Execute call.
type Options struct {
	// LiveOutput streams stdout to the service's LiveWriter and bypasses the
	// cache in both directions.
	LiveOutput bool
	// Input is handed to the command as if it were the previous chain stage.
	// Runs with input bypass the cache.
	Input *domain.CommandResult
}

// Service runs commands against Context. Cache, Normalizer, History and
// Logger are optional.
type Service struct {
	Context        *execution.Context
	Registry       *registry.Registry
	Cache          ports.ResultCache
	Normalizer     ports.OutputNormalizer
	History        ports.HistoryRepository
	Logger         ports.Logger
	CachingEnabled bool
	LiveWriter     io.Writer
}

// Execute validates cmd, serves it from the cache when allowed, otherwise runs
// it. Validation problems are returned as *domain.ValidationError and nothing
// is dispatched; every other failure is reported in the result.
func (s *Service) Execute(ctx context.Context, cmd execution.Command, opts Options) (domain.CommandResult, error) {
	if s.Context == nil {
		return domain.CommandResult{}, errors.New("orchestrator.Service dependencies not satisfied")
	}
	if cmd == nil {
		return domain.CommandResult{}, errors.New("execute: command is nil")
	}
	if fields := cmd.Validate(); len(fields) > 0 {
		return domain.CommandResult{}, &domain.ValidationError{Command: cmd.Name(), Fields: fields}
	}

	args := cmd.Build()
	traits := cmd.Traits()
	dir := s.Context.Dir()
	target := s.Context.Target()
	key := Fingerprint(cmd.Name(), args, traits.Structured, s.Context.Mode(), target, dir)
	// Piped input is not part of the fingerprint, so such runs skip the cache.
	useCache := s.CachingEnabled && s.Cache != nil && traits.Cacheable && !opts.LiveOutput && opts.Input == nil

	if useCache {
		if cached, ok := s.Cache.Get(key); ok {
			s.debug("cache hit", map[string]interface{}{"command": cmd.Name(), "key": key})
			return cached, nil
		}
	}

	runCtx := ctx
	if opts.LiveOutput {
		runCtx = execution.WithStream(ctx, s.LiveWriter)
	}
	start := time.Now()
	result := cmd.Execute(runCtx, s.Context, opts.Input)
	if result.Duration == 0 {
		result.Duration = time.Since(start)
	}
	if traits.Structured && len(result.Structured) == 0 && s.Normalizer != nil {
		result = result.WithStructured(s.Normalizer.Normalize(result.RawOutput, result.ExitCode))
	}

	raw := execution.RawCommand(cmd)
	s.record(domain.HistoryEntry{
		ID:          newID(start),
		Timestamp:   start.UTC(),
		Command:     cmd.Name(),
		Args:        args,
		Raw:         raw,
		Fingerprint: key,
		Dir:         dir,
		Mode:        s.Context.Mode(),
		Host:        hostLabel(s.Context),
		Success:     result.Success,
		ExitCode:    result.ExitCode,
		Live:        opts.LiveOutput,
		DurationMS:  result.Duration.Milliseconds(),
	})

	if useCache {
		meta := map[string]string{
			MetaCommand:    cmd.Name(),
			MetaDir:        dir,
			MetaTarget:     target,
			MetaStructured: strconv.FormatBool(traits.Structured),
		}
		if timed, ok := cmd.(execution.Timed); ok && timed.RunTimeout() > 0 {
			meta[MetaTimeout] = timed.RunTimeout().String()
		}
		s.Cache.Store(key, raw, result, meta)
	}

	if !result.Success {
		s.warn("command failed", map[string]interface{}{
			"command": cmd.Name(),
			"exit":    result.ExitCode,
			"error":   result.ErrorMessage,
		})
	}
	return result, nil
}

// Chain runs stages as one chained command: each stage receives the previous
// stage's result and the chain stops at the first failure.
func (s *Service) Chain(ctx context.Context, opts Options, stages ...execution.Command) (domain.CommandResult, error) {
	if len(stages) == 0 {
		return domain.CommandResult{}, &domain.ValidationError{Command: commands.NameChain, Fields: map[string]string{"stages": "at least one stage required"}}
	}
	for i, st := range stages {
		if st == nil {
			return domain.CommandResult{}, &domain.ValidationError{Command: commands.NameChain, Fields: map[string]string{fmt.Sprintf("stages[%d]", i): "must not be nil"}}
		}
	}
	return s.Execute(ctx, commands.Then(stages[0], stages[1:]...), opts)
}

// Create builds a fresh command of kind name.
func (s *Service) Create(name string) (execution.Command, bool) {
	if s.Registry == nil {
		return nil, false
	}
	return s.Registry.Create(name)
}

// Register stores a clone of proto under alias.
func (s *Service) Register(alias string, proto execution.Command) error {
	if s.Registry == nil {
		return errors.New("register: no registry configured")
	}
	return s.Registry.Register(alias, proto)
}

// Get returns a clone of the prototype registered under alias.
func (s *Service) Get(alias string) (execution.Command, bool) {
	if s.Registry == nil {
		return nil, false
	}
	return s.Registry.Get(alias)
}

// StartRefresh periodically re-runs cached commands through the context's
// current backend. Entries cached for another target are left alone.
func (s *Service) StartRefresh(interval time.Duration) error {
	if s.Cache == nil {
		return errors.New("refresh: no cache configured")
	}
	return s.Cache.StartRefresh(interval, s.refresh)
}

// RefreshNow runs a single refresh pass in the foreground.
func (s *Service) RefreshNow(ctx context.Context) error {
	if s.Cache == nil {
		return errors.New("refresh: no cache configured")
	}
	s.Cache.RefreshOnce(ctx, s.refresh)
	return nil
}

// StopRefresh stops the refresh loop and waits for it to finish.
func (s *Service) StopRefresh() {
	if s.Cache != nil {
		s.Cache.StopRefresh()
	}
}

// Close stops refreshing and releases the remote backend.
func (s *Service) Close() error {
	s.StopRefresh()
	if s.Context == nil {
		return nil
	}
	return s.Context.Close()
}

func (s *Service) refresh(ctx context.Context, key, raw string) (domain.CommandResult, error) {
	meta, ok := s.Cache.Metadata(key)
	if !ok {
		return domain.CommandResult{}, domain.ErrRefreshSkipped
	}
	if target := s.Context.Target(); meta[MetaTarget] != target {
		return domain.CommandResult{}, fmt.Errorf("cached for %s, context on %s: %w", meta[MetaTarget], target, domain.ErrRefreshSkipped)
	}
	// A chain's raw form is a pipeline, which would not stop at a failing stage.
	if meta[MetaCommand] == commands.NameChain {
		return domain.CommandResult{}, fmt.Errorf("chain %q: %w", raw, domain.ErrRefreshSkipped)
	}
	opts := execution.RunOptions{Dir: meta[MetaDir]}
	if d, err := time.ParseDuration(meta[MetaTimeout]); err == nil {
		opts.Timeout = d
	}
	// Spawn, transport and timeout failures keep the previous result; only a
	// completed run, whatever its exit code, replaces it.
	out, err := s.Context.RunScript(ctx, raw, opts)
	if err != nil {
		return domain.CommandResult{}, err
	}
	result := execution.ToResult(out, nil)
	if meta[MetaStructured] == "true" && s.Normalizer != nil {
		result = result.WithStructured(s.Normalizer.Normalize(result.RawOutput, result.ExitCode))
	}
	return result, nil
}

func (s *Service) record(entry domain.HistoryEntry) {
	s.Context.AppendHistory(entry)
	if s.History == nil {
		return
	}
	if err := s.History.Save(entry); err != nil && s.Logger != nil {
		s.Logger.Error("history save failed", err, map[string]interface{}{"command": entry.Command})
	}
}

func (s *Service) debug(msg string, fields map[string]interface{}) {
	if s.Logger != nil {
		s.Logger.Debug(msg, fields)
	}
}

func (s *Service) warn(msg string, fields map[string]interface{}) {
	if s.Logger != nil {
		s.Logger.Warn(msg, fields)
	}
}

// Fingerprint identifies a command invocation: kind, arguments, whether the
// result carries records and where it runs. The same arguments in another
// directory or on another host are a different entry.
func Fingerprint(name string, args []string, structured bool, mode domain.Mode, target, dir string) string {
	payload, _ := json.Marshal(struct {
		Name       string   `json:"name"`
		Args       []string `json:"args"`
		Structured bool     `json:"structured"`
		Mode       string   `json:"mode"`
		Target     string   `json:"target"`
		Dir        string   `json:"dir"`
	}{name, args, structured, string(mode), target, dir})
	sum := sha256.Sum256(payload)
	return hex.EncodeToString(sum[:])
}

func hostLabel(ec *execution.Context) string {
	if h := ec.Host(); h != nil {
		return h.String()
	}
	return ""
}

func newID(t time.Time) string {
	entropy := ulid.Monotonic(rand.New(rand.NewSource(t.UnixNano())), 0)
	return ulid.MustNew(ulid.Timestamp(t), entropy).String()
}

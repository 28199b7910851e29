package execution

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/doeshing/shexec/internal/domain"
	"github.com/doeshing/shexec/internal/pkg/shellquote"
	"github.com/doeshing/shexec/internal/ports"
)

// Context is the state commands execute against: working directory, mode,
// remote host and an append-only history. The local and remote working
// directories are tracked separately; a fresh remote session starts in the
// login directory. Reads are safe alongside the cache
// refresh loop; mutation from several goroutines at once is not coordinated,
// give each concurrent caller its own Context.
type Context struct {
	mu        sync.RWMutex
	localDir  string
	remoteDir string
	mode    domain.Mode
	host    *domain.RemoteHost
	timeout time.Duration
	env     map[string]string

	local   ports.Backend
	remote  ports.Backend
	factory ports.BackendFactory

	historyMu sync.RWMutex
	history   []domain.HistoryEntry
}

// NewContext starts in local mode at dir.
func NewContext(dir string, local ports.Backend, factory ports.BackendFactory) *Context {
	return &Context{
		localDir: dir,
		mode:     domain.ModeLocal,
		local:    local,
		factory:  factory,
	}
}

// Dir returns the working directory of the active mode. In remote mode an
// empty string means the remote login directory.
func (c *Context) Dir() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.activeDir()
}

func (c *Context) activeDir() string {
	if c.mode == domain.ModeRemote {
		return c.remoteDir
	}
	return c.localDir
}

// Mode returns the current execution mode.
func (c *Context) Mode() domain.Mode {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.mode
}

// Host returns a copy of the remote host, or nil in local mode.
func (c *Context) Host() *domain.RemoteHost {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.host == nil {
		return nil
	}
	h := *c.host
	return &h
}

// Target names where commands currently run, without credentials.
func (c *Context) Target() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.mode == domain.ModeRemote && c.host != nil {
		return c.host.String()
	}
	return string(domain.ModeLocal)
}

// SetTimeout sets the default timeout applied to requests without one.
func (c *Context) SetTimeout(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.timeout = d
}

// SetEnv sets extra environment variables for every request.
func (c *Context) SetEnv(env map[string]string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.env = make(map[string]string, len(env))
	for k, v := range env {
		c.env[k] = v
	}
}

// SetLocal switches subsequent executions to the local backend, back in the
// local working directory.
func (c *Context) SetLocal() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.remote != nil {
		if err := c.remote.Close(); err != nil {
			return fmt.Errorf("close remote backend: %w", err)
		}
	}
	c.remote = nil
	c.host = nil
	c.remoteDir = ""
	c.mode = domain.ModeLocal
	return nil
}

// SetRemote switches subsequent executions to a new backend for host,
// starting in the remote login directory. The previous remote backend, if
// any, is closed.
func (c *Context) SetRemote(host domain.RemoteHost) error {
	if c.factory == nil {
		return fmt.Errorf("no remote backend factory configured")
	}
	backend, err := c.factory(host)
	if err != nil {
		return fmt.Errorf("remote backend for %s: %w", host.String(), err)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.remote != nil {
		_ = c.remote.Close()
	}
	h := host
	c.remote = backend
	c.host = &h
	c.remoteDir = ""
	c.mode = domain.ModeRemote
	return nil
}

// Backend resolves the backend for the current mode.
func (c *Context) Backend() (ports.Backend, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	switch c.mode {
	case domain.ModeRemote:
		if c.remote == nil {
			return nil, fmt.Errorf("remote mode without a backend")
		}
		return c.remote, nil
	default:
		if c.local == nil {
			return nil, fmt.Errorf("no local backend configured")
		}
		return c.local, nil
	}
}

// Chdir records a successful directory change for the active mode. Commands
// call it only after the backend confirmed the directory exists.
func (c *Context) Chdir(dir string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.mode == domain.ModeRemote {
		c.remoteDir = dir
		return
	}
	c.localDir = dir
}

// AppendHistory adds an entry. Entries are stored by value and never modified.
func (c *Context) AppendHistory(entry domain.HistoryEntry) {
	entry.Args = append([]string(nil), entry.Args...)
	c.historyMu.Lock()
	defer c.historyMu.Unlock()
	c.history = append(c.history, entry)
}

// History returns a copy of the history log, oldest first.
func (c *Context) History() []domain.HistoryEntry {
	c.historyMu.RLock()
	defer c.historyMu.RUnlock()
	out := make([]domain.HistoryEntry, len(c.history))
	for i, e := range c.history {
		e.Args = append([]string(nil), e.Args...)
		out[i] = e
	}
	return out
}

// RunOptions tunes a single dispatch.
type RunOptions struct {
	Input   []byte
	Dir     string
	Env     map[string]string
	Timeout time.Duration
}

// Run escapes argv and dispatches it to the current backend.
func (c *Context) Run(ctx context.Context, argv []string, opts RunOptions) (domain.ExecOutput, error) {
	return c.RunScript(ctx, shellquote.JoinArgv(argv), opts)
}

// RunScript dispatches a shell script verbatim to the current backend.
func (c *Context) RunScript(ctx context.Context, script string, opts RunOptions) (domain.ExecOutput, error) {
	backend, err := c.Backend()
	if err != nil {
		return domain.ExecOutput{}, &domain.ExecutionError{Kind: domain.KindSpawn, Command: script, Err: err}
	}
	c.mu.RLock()
	req := domain.ExecRequest{
		Command: script,
		Input:   opts.Input,
		Dir:     opts.Dir,
		Env:     mergeEnv(c.env, opts.Env),
		Timeout: opts.Timeout,
		Stream:  streamFrom(ctx),
	}
	if req.Dir == "" {
		req.Dir = c.activeDir()
	}
	if req.Timeout <= 0 {
		req.Timeout = c.timeout
	}
	c.mu.RUnlock()
	return backend.Execute(ctx, req)
}

// Close releases the remote backend.
func (c *Context) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.remote == nil {
		return nil
	}
	err := c.remote.Close()
	c.remote = nil
	return err
}

func mergeEnv(base, extra map[string]string) map[string]string {
	if len(base) == 0 && len(extra) == 0 {
		return nil
	}
	out := make(map[string]string, len(base)+len(extra))
	for k, v := range base {
		out[k] = v
	}
	for k, v := range extra {
		out[k] = v
	}
	return out
}

type streamKey struct{}

// WithStream asks backends to tee stdout to w for executions under ctx.
func WithStream(ctx context.Context, w io.Writer) context.Context {
	if w == nil {
		return ctx
	}
	return context.WithValue(ctx, streamKey{}, w)
}

func streamFrom(ctx context.Context) io.Writer {
	w, _ := ctx.Value(streamKey{}).(io.Writer)
	return w
}

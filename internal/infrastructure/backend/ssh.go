package backend

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/sony/gobreaker/v2"
	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/knownhosts"

	"github.com/doeshing/shexec/internal/domain"
	"github.com/doeshing/shexec/internal/pkg/shellquote"
	"github.com/doeshing/shexec/internal/ports"
)

// Breaker defaults for SSH dials.
const (
	defaultBreakerFailures uint32        = 3
	defaultBreakerTimeout  time.Duration = 30 * time.Second
)

var errSessionLost = errors.New("ssh session unavailable")

// SSHConfig configures a remote backend.
type SSHConfig struct {
	Host           domain.RemoteHost
	ConnectTimeout time.Duration
	CommandTimeout time.Duration
	Logger         ports.Logger
}

// SSH runs commands over one shared SSH connection. Commands are serialized:
// at most one session is open on the connection at any time.
type SSH struct {
	host           domain.RemoteHost
	connectTimeout time.Duration
	timeout        time.Duration
	waitDelay      time.Duration
	logger         ports.Logger
	breaker        *gobreaker.CircuitBreaker[*ssh.Client]

	mu     sync.Mutex
	client *ssh.Client
}

// NewSSH builds a remote backend. The connection is opened on first use.
func NewSSH(cfg SSHConfig) *SSH {
	if cfg.ConnectTimeout <= 0 {
		cfg.ConnectTimeout = domain.DefaultConnectTimeout
	}
	s := &SSH{
		host:           cfg.Host,
		connectTimeout: cfg.ConnectTimeout,
		timeout:        cfg.CommandTimeout,
		waitDelay:      domain.DefaultWaitDelay,
		logger:         cfg.Logger,
	}
	s.breaker = gobreaker.NewCircuitBreaker[*ssh.Client](gobreaker.Settings{
		Name:        "ssh:" + cfg.Host.Address(),
		MaxRequests: 1,
		Timeout:     defaultBreakerTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= defaultBreakerFailures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			if s.logger != nil {
				s.logger.Warn("ssh dial breaker state change", map[string]interface{}{
					"breaker": name,
					"from":    from.String(),
					"to":      to.String(),
				})
			}
		},
	})
	return s
}

// NewSSHFactory returns a ports.BackendFactory producing SSH backends.
func NewSSHFactory(connectTimeout, commandTimeout time.Duration, logger ports.Logger) ports.BackendFactory {
	return func(host domain.RemoteHost) (ports.Backend, error) {
		if strings.TrimSpace(host.Host) == "" {
			return nil, fmt.Errorf("ssh host is required")
		}
		return NewSSH(SSHConfig{
			Host:           host,
			ConnectTimeout: connectTimeout,
			CommandTimeout: commandTimeout,
			Logger:         logger,
		}), nil
	}
}

// Name implements ports.Backend.
func (s *SSH) Name() string { return "ssh:" + s.host.String() }

// Close drops the shared connection.
func (s *SSH) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dropClient()
}

// Execute implements ports.Backend.
func (s *SSH) Execute(ctx context.Context, req domain.ExecRequest) (domain.ExecOutput, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	command := remoteCommand(req)
	out, err := s.run(ctx, command, req)
	if errors.Is(err, errSessionLost) {
		if s.logger != nil {
			s.logger.Warn("ssh session lost, reconnecting", map[string]interface{}{"host": s.host.String()})
		}
		_ = s.dropClient()
		out, err = s.run(ctx, command, req)
		if errors.Is(err, errSessionLost) {
			return out, &domain.ConnectionError{Host: s.host.String(), Err: err}
		}
	}
	return out, err
}

func (s *SSH) run(ctx context.Context, command string, req domain.ExecRequest) (domain.ExecOutput, error) {
	client, err := s.connect(ctx)
	if err != nil {
		return domain.ExecOutput{}, err
	}

	session, err := client.NewSession()
	if err != nil {
		return domain.ExecOutput{}, fmt.Errorf("%w: %v", errSessionLost, err)
	}
	defer session.Close()

	var stdout, stderr bytes.Buffer
	if req.Stream != nil {
		session.Stdout = io.MultiWriter(&stdout, req.Stream)
	} else {
		session.Stdout = &stdout
	}
	session.Stderr = &stderr
	if len(req.Input) > 0 {
		session.Stdin = bytes.NewReader(req.Input)
	}

	timeout := req.Timeout
	if timeout <= 0 {
		timeout = s.timeout
	}
	runCtx := ctx
	if timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	start := time.Now()
	if err := session.Start(command); err != nil {
		return domain.ExecOutput{}, fmt.Errorf("%w: %v", errSessionLost, err)
	}

	done := make(chan error, 1)
	go func() { done <- session.Wait() }()

	var waitErr error
	select {
	case waitErr = <-done:
	case <-runCtx.Done():
		// Closing the connection makes sshd hang up the remote process group
		// even when the server ignores signal requests.
		_ = session.Signal(ssh.SIGKILL)
		_ = session.Close()
		_ = s.dropClient()
		select {
		case <-done:
		case <-time.After(s.waitDelay):
		}
		out := domain.ExecOutput{ExitCode: -1, Stdout: stdout.String(), Stderr: stderr.String(), Duration: time.Since(start)}
		kind := domain.KindTransport
		if errors.Is(runCtx.Err(), context.DeadlineExceeded) {
			kind = domain.KindTimeout
		}
		return out, &domain.ExecutionError{Kind: kind, Command: req.Command, Err: runCtx.Err()}
	}

	out := domain.ExecOutput{Stdout: stdout.String(), Stderr: stderr.String(), Duration: time.Since(start)}
	if waitErr == nil {
		return out, nil
	}
	var exitErr *ssh.ExitError
	if errors.As(waitErr, &exitErr) {
		out.ExitCode = exitErr.ExitStatus()
		return out, nil
	}
	out.ExitCode = -1
	_ = s.dropClient()
	return out, &domain.ExecutionError{Kind: domain.KindTransport, Command: req.Command, Err: waitErr}
}

// connect returns the shared client, dialing through the breaker when needed.
func (s *SSH) connect(ctx context.Context) (*ssh.Client, error) {
	if s.client != nil {
		return s.client, nil
	}
	client, err := s.breaker.Execute(func() (*ssh.Client, error) {
		return s.dial(ctx)
	})
	if err != nil {
		return nil, &domain.ConnectionError{Host: s.host.String(), Err: err}
	}
	s.client = client
	if s.logger != nil {
		s.logger.Debug("ssh connected", map[string]interface{}{"host": s.host.String()})
	}
	return client, nil
}

func (s *SSH) dropClient() error {
	if s.client == nil {
		return nil
	}
	err := s.client.Close()
	s.client = nil
	return err
}

func (s *SSH) dial(ctx context.Context) (*ssh.Client, error) {
	config, err := s.clientConfig()
	if err != nil {
		return nil, err
	}
	address := s.host.Address()

	dialer := net.Dialer{Timeout: s.connectTimeout}
	conn, err := dialer.DialContext(ctx, "tcp", address)
	if err != nil {
		return nil, err
	}

	if s.connectTimeout > 0 {
		_ = conn.SetDeadline(time.Now().Add(s.connectTimeout))
	}
	clientConn, chans, reqs, err := ssh.NewClientConn(conn, address, config)
	if err != nil {
		conn.Close()
		return nil, err
	}
	_ = conn.SetDeadline(time.Time{})

	return ssh.NewClient(clientConn, chans, reqs), nil
}

func (s *SSH) clientConfig() (*ssh.ClientConfig, error) {
	if s.host.User == "" {
		return nil, fmt.Errorf("ssh user is required")
	}

	var auth []ssh.AuthMethod
	if s.host.KeyPath != "" {
		signer, err := s.signer()
		if err != nil {
			return nil, err
		}
		auth = append(auth, ssh.PublicKeys(signer))
	}
	if s.host.Password != "" {
		auth = append(auth, ssh.Password(s.host.Password))
	}
	if len(auth) == 0 {
		return nil, fmt.Errorf("ssh key path or password is required")
	}

	var hostKeyCallback ssh.HostKeyCallback
	if s.host.Insecure {
		hostKeyCallback = ssh.InsecureIgnoreHostKey()
	} else {
		callback, err := s.knownHostsCallback()
		if err != nil {
			return nil, err
		}
		hostKeyCallback = callback
	}

	return &ssh.ClientConfig{
		User:            s.host.User,
		Auth:            auth,
		HostKeyCallback: hostKeyCallback,
		Timeout:         s.connectTimeout,
	}, nil
}

func (s *SSH) signer() (ssh.Signer, error) {
	privateKey, err := os.ReadFile(s.host.KeyPath)
	if err != nil {
		return nil, err
	}
	if s.host.Passphrase != "" {
		return ssh.ParsePrivateKeyWithPassphrase(privateKey, []byte(s.host.Passphrase))
	}
	return ssh.ParsePrivateKey(privateKey)
}

func (s *SSH) knownHostsCallback() (ssh.HostKeyCallback, error) {
	path := strings.TrimSpace(s.host.KnownHostsPath)
	if path == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("known hosts path not set and home dir unavailable")
		}
		path = filepath.Join(home, ".ssh", "known_hosts")
	}
	return knownhosts.New(path)
}

// remoteCommand folds the working directory and environment into the command
// line, since many servers reject "env" requests.
func remoteCommand(req domain.ExecRequest) string {
	var parts []string
	if req.Dir != "" {
		parts = append(parts, "cd "+shellquote.Escape(req.Dir))
	}
	if len(req.Env) > 0 {
		keys := make([]string, 0, len(req.Env))
		for k := range req.Env {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		exports := make([]string, 0, len(keys))
		for _, k := range keys {
			exports = append(exports, k+"="+shellquote.Escape(req.Env[k]))
		}
		parts = append(parts, "export "+strings.Join(exports, " "))
	}
	if len(parts) == 0 {
		return req.Command
	}
	return strings.Join(parts, " && ") + " && sh -c " + shellquote.Escape(req.Command)
}

var _ ports.Backend = (*SSH)(nil)

package domain

import (
	"fmt"
	"io"
	"net"
	"strconv"
	"strings"
	"time"
)

// Mode selects where commands run.
type Mode string

const (
	ModeLocal  Mode = "local"
	ModeRemote Mode = "remote"
)

// RemoteHost carries the SSH target and credentials used in remote mode.
type RemoteHost struct {
	Host           string `yaml:"host" toml:"host" json:"host"`
	User           string `yaml:"user" toml:"user" json:"user"`
	Port           int    `yaml:"port" toml:"port" json:"port"`
	KeyPath        string `yaml:"key_path" toml:"key_path" json:"-"`
	Passphrase     string `yaml:"passphrase" toml:"passphrase" json:"-"`
	Password       string `yaml:"password" toml:"password" json:"-"`
	KnownHostsPath string `yaml:"known_hosts" toml:"known_hosts" json:"-"`
	Insecure       bool   `yaml:"insecure_skip_host_key" toml:"insecure_skip_host_key" json:"-"`
}

// Address returns host:port, defaulting the port to 22.
func (h RemoteHost) Address() string {
	host := strings.TrimSpace(h.Host)
	if h.Port > 0 {
		return net.JoinHostPort(host, strconv.Itoa(h.Port))
	}
	if _, _, err := net.SplitHostPort(host); err == nil {
		return host
	}
	return net.JoinHostPort(host, "22")
}

// String renders user@host:port without secrets.
func (h RemoteHost) String() string {
	if h.User == "" {
		return h.Address()
	}
	return h.User + "@" + h.Address()
}

// ParseRemoteHost accepts "user@host", "user@host:port" or "host".
func ParseRemoteHost(raw string) (RemoteHost, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return RemoteHost{}, fmt.Errorf("remote host is empty")
	}
	var h RemoteHost
	if at := strings.LastIndex(raw, "@"); at >= 0 {
		h.User = raw[:at]
		raw = raw[at+1:]
	}
	if host, port, err := net.SplitHostPort(raw); err == nil {
		p, err := strconv.Atoi(port)
		if err != nil || p <= 0 || p > 65535 {
			return RemoteHost{}, fmt.Errorf("invalid port %q", port)
		}
		h.Host = host
		h.Port = p
	} else {
		h.Host = raw
	}
	if h.Host == "" {
		return RemoteHost{}, fmt.Errorf("remote host is empty")
	}
	return h, nil
}

// ExecRequest is what a backend receives for a single invocation.
type ExecRequest struct {
	Command string
	Input   []byte
	Dir     string
	Env     map[string]string
	Timeout time.Duration
	// Stream receives stdout as it is produced, in addition to capture.
	Stream io.Writer
}

// ExecOutput is the raw outcome of a backend invocation.
type ExecOutput struct {
	ExitCode int
	Stdout   string
	Stderr   string
	Duration time.Duration
}

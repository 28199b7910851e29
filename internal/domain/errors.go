package domain

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

var (
	// ErrInvalidCapacity is returned when a cache is configured with a non-positive size.
	ErrInvalidCapacity = errors.New("cache capacity must be greater than zero")
	// ErrNotFound reports an unknown command name or alias.
	ErrNotFound = errors.New("not found")
	// ErrRefreshSkipped marks a cache entry the refresh loop chose not to re-run.
	ErrRefreshSkipped = errors.New("refresh skipped")
)

// ValidationError carries per-field problems reported by a command before dispatch.
type ValidationError struct {
	Command string
	Fields  map[string]string
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s: %s", k, e.Fields[k]))
	}
	return fmt.Sprintf("validate %s: %s", e.Command, strings.Join(parts, "; "))
}

// ExecutionKind classifies an ExecutionError.
type ExecutionKind string

const (
	KindSpawn     ExecutionKind = "spawn"
	KindTimeout   ExecutionKind = "timeout"
	KindTransport ExecutionKind = "transport"
)

// ExecutionError reports a process or session that could not run to completion.
type ExecutionError struct {
	Kind    ExecutionKind
	Command string
	Err     error
}

func (e *ExecutionError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("execute %q: %s", e.Command, e.Kind)
	}
	return fmt.Sprintf("execute %q: %s: %v", e.Command, e.Kind, e.Err)
}

func (e *ExecutionError) Unwrap() error { return e.Err }

// IsTimeout reports whether err is an ExecutionError of kind timeout.
func IsTimeout(err error) bool {
	var execErr *ExecutionError
	return errors.As(err, &execErr) && execErr.Kind == KindTimeout
}

// ConnectionError reports a remote session that could not be established.
type ConnectionError struct {
	Host string
	Err  error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("connect %s: %v", e.Host, e.Err)
}

func (e *ConnectionError) Unwrap() error { return e.Err }

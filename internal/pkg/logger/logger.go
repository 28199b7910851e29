package logger

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/doeshing/shexec/internal/domain"
	"github.com/doeshing/shexec/internal/ports"
)

// ZeroLogger routes ports.Logger calls into zerolog. Nothing is written until Init.
type ZeroLogger struct {
	settings domain.LoggingSettings

	mu     sync.Mutex
	log    zerolog.Logger
	closer io.Closer
	ready  bool
}

// New creates a ZeroLogger for the given settings.
func New(settings domain.LoggingSettings) *ZeroLogger {
	return &ZeroLogger{settings: settings, log: zerolog.Nop()}
}

// NewWriter creates a logger that writes JSON lines to w. Used by tests and
// callers that manage the output themselves.
func NewWriter(w io.Writer, level string) *ZeroLogger {
	l := &ZeroLogger{settings: domain.LoggingSettings{Level: level, Format: "json"}}
	l.log = zerolog.New(w).Level(parseLevel(level)).With().Timestamp().Logger()
	l.ready = true
	return l
}

// NewNop returns a logger that discards everything.
func NewNop() *ZeroLogger {
	return &ZeroLogger{log: zerolog.Nop(), ready: true}
}

// Init opens the configured output.
func (l *ZeroLogger) Init() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.ready {
		return nil
	}
	writer, closer, err := openOutput(l.settings.Output)
	if err != nil {
		return fmt.Errorf("open log output: %w", err)
	}
	if !strings.EqualFold(l.settings.Format, "json") {
		writer = zerolog.ConsoleWriter{Out: writer, TimeFormat: time.RFC3339}
	}
	l.log = zerolog.New(writer).Level(parseLevel(l.settings.Level)).With().Timestamp().Str("app", "shexec").Logger()
	l.closer = closer
	l.ready = true
	return nil
}

// Close releases the output. Further calls are dropped.
func (l *ZeroLogger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.log = zerolog.Nop()
	l.ready = false
	if l.closer == nil {
		return nil
	}
	err := l.closer.Close()
	l.closer = nil
	return err
}

func (l *ZeroLogger) Debug(msg string, fields map[string]interface{}) {
	l.logger().Debug().Fields(fields).Msg(msg)
}

func (l *ZeroLogger) Info(msg string, fields map[string]interface{}) {
	l.logger().Info().Fields(fields).Msg(msg)
}

func (l *ZeroLogger) Warn(msg string, fields map[string]interface{}) {
	l.logger().Warn().Fields(fields).Msg(msg)
}

func (l *ZeroLogger) Error(msg string, err error, fields map[string]interface{}) {
	l.logger().Error().Err(err).Fields(fields).Msg(msg)
}

func (l *ZeroLogger) logger() *zerolog.Logger {
	l.mu.Lock()
	defer l.mu.Unlock()
	lg := l.log
	return &lg
}

func parseLevel(raw string) zerolog.Level {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "trace":
		return zerolog.TraceLevel
	case "debug":
		return zerolog.DebugLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	case "disabled", "off", "none":
		return zerolog.Disabled
	default:
		return zerolog.InfoLevel
	}
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

func openOutput(output string) (io.Writer, io.Closer, error) {
	switch strings.ToLower(strings.TrimSpace(output)) {
	case "stdout":
		return os.Stdout, nopCloser{}, nil
	case "stderr", "":
		return os.Stderr, nopCloser{}, nil
	default:
		f, err := os.OpenFile(output, os.O_CREATE|os.O_APPEND|os.O_WRONLY, domain.SecureFilePermissions)
		if err != nil {
			return nil, nil, err
		}
		return f, f, nil
	}
}

var _ ports.Logger = (*ZeroLogger)(nil)

package logger

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

const (
	LevelDebug = "debug"
	LevelInfo  = "info"
	LevelWarn  = "warn"
	LevelError = "error"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

// Logger is the logging contract used across the service.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)

	With(args ...any) Logger
	WithGroup(name string) Logger
}

// New returns a JSON logger in production and a text logger otherwise.
// Output goes to stderr.
func New(environment string, level string) (Logger, error) {
	if environment == EnvProduction {
		return NewJSONLogger(level)
	}
	return NewTextLogger(level)
}

func NewTextLogger(level string) (Logger, error) {
	opts, err := handlerOptions(level)
	if err != nil {
		return nil, err
	}
	return newSlogLogger(slog.NewTextHandler(os.Stderr, opts)), nil
}

func NewJSONLogger(level string) (Logger, error) {
	opts, err := handlerOptions(level)
	if err != nil {
		return nil, err
	}
	return newSlogLogger(slog.NewJSONHandler(os.Stderr, opts)), nil
}

// NewNoOpLogger discards everything. Handy in tests.
func NewNoOpLogger() Logger {
	return newSlogLogger(slog.DiscardHandler)
}

// NewWriterLogger writes text records to w. Used by tests that assert on output.
func NewWriterLogger(w io.Writer, level string) (Logger, error) {
	opts, err := handlerOptions(level)
	if err != nil {
		return nil, err
	}
	opts.AddSource = false
	return newSlogLogger(slog.NewTextHandler(w, opts)), nil
}

func handlerOptions(level string) (*slog.HandlerOptions, error) {
	lvl, err := parseLevel(level)
	if err != nil {
		return nil, err
	}
	return &slog.HandlerOptions{
		Level:       lvl,
		AddSource:   true,
		ReplaceAttr: trimSource,
	}, nil
}

func parseLevel(level string) (slog.Level, error) {
	switch strings.ToLower(level) {
	case LevelDebug:
		return slog.LevelDebug, nil
	case LevelInfo:
		return slog.LevelInfo, nil
	case LevelWarn:
		return slog.LevelWarn, nil
	case LevelError:
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("unknown log level %q", level)
	}
}

// trimSource keeps only the base name of the source file
func trimSource(_ []string, a slog.Attr) slog.Attr {
	if a.Key == slog.SourceKey {
		if source, ok := a.Value.Any().(*slog.Source); ok {
			source.File = filepath.Base(source.File)
		}
	}
	return a
}

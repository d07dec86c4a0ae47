// Package logging provides structured logging shared across the reconciler.
package logging

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

var root zerolog.Logger

// Level is a logging verbosity level.
type Level string

const (
	DebugLevel Level = "debug"
	InfoLevel  Level = "info"
	WarnLevel  Level = "warn"
	ErrorLevel Level = "error"
)

// Config controls how Init configures the root logger.
type Config struct {
	Level      Level
	JSONOutput bool
	Output     io.Writer
}

// Init configures the package-level root logger. Call once at process startup.
func Init(cfg Config) {
	var level zerolog.Level
	switch cfg.Level {
	case DebugLevel:
		level = zerolog.DebugLevel
	case WarnLevel:
		level = zerolog.WarnLevel
	case ErrorLevel:
		level = zerolog.ErrorLevel
	default:
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	out := cfg.Output
	if out == nil {
		out = os.Stdout
	}

	if cfg.JSONOutput {
		root = zerolog.New(out).With().Timestamp().Logger()
		return
	}
	root = zerolog.New(zerolog.ConsoleWriter{
		Out:        out,
		TimeFormat: time.RFC3339,
	}).With().Timestamp().Logger()
}

func init() {
	Init(Config{Level: InfoLevel})
}

// For returns a child logger tagged with the calling component's name.
func For(component string) zerolog.Logger {
	return root.With().Str("component", component).Logger()
}

// WithResource tags a logger with the absolute path of the resource it concerns.
func WithResource(l zerolog.Logger, kind, path string) zerolog.Logger {
	return l.With().Str("kind", kind).Str("path", path).Logger()
}

package logger

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Options tune a ZerologLogger. Zero values select stderr and debug level.
type Options struct {
	Level  string
	Writer io.Writer
	// Console forces the human readable writer regardless of APP_ENV.
	Console bool
}

// ZerologLogger implements Logger using rs/zerolog.
type ZerologLogger struct {
	log zerolog.Logger
}

// NewZerologLogger creates a ZerologLogger using the APP_ENV environment variable
// to determine the output format. All logs include the provided component field.
func NewZerologLogger(component string) Logger {
	return NewWithOptions(component, Options{})
}

// NewWithOptions builds a component logger with an explicit level and sink.
func NewWithOptions(component string, opts Options) Logger {
	out := opts.Writer
	if out == nil {
		out = os.Stderr
	}
	if opts.Console || strings.ToLower(os.Getenv("APP_ENV")) == "dev" {
		out = zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339}
	}
	z := zerolog.New(out).With().Timestamp().Str("component", component).Logger()
	if opts.Level != "" {
		if lvl, err := zerolog.ParseLevel(strings.ToLower(opts.Level)); err == nil {
			z = z.Level(lvl)
		}
	}
	return &ZerologLogger{log: z}
}

// With returns a child logger carrying the extra fields on every entry.
func (l *ZerologLogger) With(fields map[string]any) Logger {
	return &ZerologLogger{log: l.log.With().Fields(fields).Logger()}
}

func (l *ZerologLogger) Debugf(format string, args ...any) {
	l.log.Debug().Msgf(format, args...)
}

func (l *ZerologLogger) Debugw(msg string, fields map[string]any) {
	l.log.Debug().Fields(fields).Msg(msg)
}

func (l *ZerologLogger) Infof(format string, args ...any) {
	l.log.Info().Msgf(format, args...)
}

func (l *ZerologLogger) Warnf(format string, args ...any) {
	l.log.Warn().Msgf(format, args...)
}

func (l *ZerologLogger) Errorf(format string, args ...any) {
	l.log.Error().Msgf(format, args...)
}

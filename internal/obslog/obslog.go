// Package obslog provides magritte's structured logging, built on
// zerolog the way the teacher's logger middleware uses it.
package obslog

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

// Field is a single structured attribute attached to a log line.
type Field struct {
	Key   string
	Value any
}

// F constructs a Field, for callers that prefer a short helper over a
// struct literal.
func F(key string, value any) Field { return Field{Key: key, Value: value} }

// Logger wraps zerolog.Logger with magritte's fixed field conventions
// (handler name, correlation id).
type Logger struct {
	zl zerolog.Logger
}

// New builds a Logger writing level-colored console output when pretty is
// true (for local development), or plain JSON otherwise (for production,
// where a log shipper parses it).
func New(level string, pretty bool) Logger {
	zerolog.TimeFieldFormat = time.RFC3339Nano

	var w io.Writer = os.Stderr
	if pretty {
		w = zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}
	}

	zl := zerolog.New(w).With().Timestamp().Logger()
	zl = zl.Level(parseLevel(level))
	return Logger{zl: zl}
}

func parseLevel(level string) zerolog.Level {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		return zerolog.InfoLevel
	}
	return lvl
}

// With returns a Logger that always includes the given fields.
func (l Logger) With(fields ...Field) Logger {
	ctx := l.zl.With()
	for _, f := range fields {
		ctx = ctx.Interface(f.Key, f.Value)
	}
	return Logger{zl: ctx.Logger()}
}

func (l Logger) event(evt *zerolog.Event, msg string, fields []Field) {
	for _, f := range fields {
		evt = evt.Interface(f.Key, f.Value)
	}
	evt.Msg(msg)
}

// Debug logs msg at debug level with the given fields.
func (l Logger) Debug(msg string, fields ...Field) { l.event(l.zl.Debug(), msg, fields) }

// Info logs msg at info level with the given fields.
func (l Logger) Info(msg string, fields ...Field) { l.event(l.zl.Info(), msg, fields) }

// Warn logs msg at warn level with the given fields.
func (l Logger) Warn(msg string, fields ...Field) { l.event(l.zl.Warn(), msg, fields) }

// Error logs msg at error level with the given fields, tagging the
// underlying error under the "error" field if err is non-nil.
func (l Logger) Error(msg string, err error, fields ...Field) {
	evt := l.zl.Error()
	if err != nil {
		evt = evt.Err(err)
	}
	l.event(evt, msg, fields)
}

// Package logger builds the process-wide slog logger: colored console
// output through tint and, optionally, a rotating JSON file through
// lumberjack. Credentials are masked before either handler sees them.
package logger

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/lmittmann/tint"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Redacted replaces the value of a sensitive attribute.
const Redacted = "[REDACTED]"

// SensitiveKeys are attribute keys whose values are never written.
var SensitiveKeys = []string{"token", "secret", "cookie", "authorization", "code", "password", "client_secret"}

// Options configures New.
type Options struct {
	// Env is the runtime environment; "development" gets a short time format.
	Env string

	// ConsoleLevel and FileLevel are "debug", "info", "warn" or "error".
	ConsoleLevel string
	FileLevel    string

	// File enables JSON file output with rotation when non-empty.
	File string

	// Console is where console output goes. Defaults to stdout.
	Console io.Writer

	// NoColor disables ANSI colors on the console.
	NoColor bool
}

// New creates the logger. The returned close function flushes and closes
// the log file, if any, and is safe to call when there is none.
func New(o Options) (*slog.Logger, func() error) {
	console := o.Console
	if console == nil {
		console = os.Stdout
	}

	timeFormat := time.RFC3339
	if o.Env == "development" {
		timeFormat = time.Kitchen
	}

	handlers := []slog.Handler{
		tint.NewHandler(console, &tint.Options{
			Level:      ParseLevel(o.ConsoleLevel, slog.LevelInfo),
			TimeFormat: timeFormat,
			NoColor:    o.NoColor,
		}),
	}

	closeFn := func() error { return nil }
	if o.File != "" {
		rotator := &lumberjack.Logger{
			Filename:   o.File,
			MaxSize:    10, // MB
			MaxBackups: 5,
			MaxAge:     28, // days
			Compress:   true,
		}
		closeFn = rotator.Close
		handlers = append(handlers, slog.NewJSONHandler(rotator, &slog.HandlerOptions{
			Level: ParseLevel(o.FileLevel, slog.LevelDebug),
		}))
	}

	var h slog.Handler = fanout(handlers)
	if len(handlers) == 1 {
		h = handlers[0]
	}
	h = NewRedactor(h, SensitiveKeys...)

	return slog.New(h).With(slog.String("env", o.Env)), closeFn
}

// ParseLevel maps a level name to a slog.Level, returning def for anything
// unrecognized.
func ParseLevel(s string, def slog.Level) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return def
	}
}

// Redactor is a slog.Handler that masks the values of sensitive keys,
// including keys nested inside groups.
type Redactor struct {
	next slog.Handler
	keys map[string]struct{}
}

// NewRedactor wraps next. Keys are matched case-insensitively.
func NewRedactor(next slog.Handler, keys ...string) *Redactor {
	set := make(map[string]struct{}, len(keys))
	for _, k := range keys {
		set[strings.ToLower(k)] = struct{}{}
	}
	return &Redactor{next: next, keys: set}
}

func (r *Redactor) Enabled(ctx context.Context, level slog.Level) bool {
	return r.next.Enabled(ctx, level)
}

func (r *Redactor) Handle(ctx context.Context, rec slog.Record) error {
	clean := slog.NewRecord(rec.Time, rec.Level, rec.Message, rec.PC)
	rec.Attrs(func(a slog.Attr) bool {
		clean.AddAttrs(r.mask(a))
		return true
	})
	return r.next.Handle(ctx, clean)
}

func (r *Redactor) WithAttrs(attrs []slog.Attr) slog.Handler {
	masked := make([]slog.Attr, len(attrs))
	for i, a := range attrs {
		masked[i] = r.mask(a)
	}
	return &Redactor{next: r.next.WithAttrs(masked), keys: r.keys}
}

func (r *Redactor) WithGroup(name string) slog.Handler {
	return &Redactor{next: r.next.WithGroup(name), keys: r.keys}
}

func (r *Redactor) mask(a slog.Attr) slog.Attr {
	if _, ok := r.keys[strings.ToLower(a.Key)]; ok {
		return slog.String(a.Key, Redacted)
	}
	if a.Value.Kind() == slog.KindGroup {
		group := a.Value.Group()
		masked := make([]any, len(group))
		for i, ga := range group {
			masked[i] = r.mask(ga)
		}
		return slog.Group(a.Key, masked...)
	}
	return a
}

// fanout sends each record to every handler that accepts its level.
type fanout []slog.Handler

func (f fanout) Enabled(ctx context.Context, level slog.Level) bool {
	for _, h := range f {
		if h.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

func (f fanout) Handle(ctx context.Context, rec slog.Record) error {
	var errs []error
	for _, h := range f {
		if h.Enabled(ctx, rec.Level) {
			errs = append(errs, h.Handle(ctx, rec.Clone()))
		}
	}
	return errors.Join(errs...)
}

func (f fanout) WithAttrs(attrs []slog.Attr) slog.Handler {
	out := make(fanout, len(f))
	for i, h := range f {
		out[i] = h.WithAttrs(attrs)
	}
	return out
}

func (f fanout) WithGroup(name string) slog.Handler {
	out := make(fanout, len(f))
	for i, h := range f {
		out[i] = h.WithGroup(name)
	}
	return out
}

package gologger

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"

	glog "github.com/goliatone/go-logger/glog"
)

// Resolve uses deterministic precedence provider > logger > nop.
func Resolve(name string, provider glog.LoggerProvider, logger glog.Logger) (glog.LoggerProvider, glog.Logger) {
	return glog.Resolve(name, provider, logger)
}

// SlogLogger adapts a *slog.Logger to the glog contracts.
type SlogLogger struct {
	base *slog.Logger
	ctx  context.Context
	exit func(code int)
}

func NewSlogLogger(base *slog.Logger) *SlogLogger {
	if base == nil {
		base = slog.Default()
	}
	return &SlogLogger{base: base, ctx: context.Background(), exit: os.Exit}
}

// NewJSONLogger writes JSON lines to w at the named level.
func NewJSONLogger(w io.Writer, level string) *SlogLogger {
	if w == nil {
		w = os.Stderr
	}
	handler := slog.NewJSONHandler(w, &slog.HandlerOptions{Level: ParseLevel(level)})
	return NewSlogLogger(slog.New(handler))
}

// ParseLevel maps trace and debug to debug, unknown names to info.
func ParseLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "trace", "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error", "fatal":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func (l *SlogLogger) Trace(msg string, args ...any) { l.log(slog.LevelDebug, msg, args...) }
func (l *SlogLogger) Debug(msg string, args ...any) { l.log(slog.LevelDebug, msg, args...) }
func (l *SlogLogger) Info(msg string, args ...any)  { l.log(slog.LevelInfo, msg, args...) }
func (l *SlogLogger) Warn(msg string, args ...any)  { l.log(slog.LevelWarn, msg, args...) }
func (l *SlogLogger) Error(msg string, args ...any) { l.log(slog.LevelError, msg, args...) }

func (l *SlogLogger) Fatal(msg string, args ...any) {
	l.log(slog.LevelError, msg, args...)
	l.exit(1)
}

func (l *SlogLogger) WithContext(ctx context.Context) glog.Logger {
	if ctx == nil {
		ctx = context.Background()
	}
	return &SlogLogger{base: l.base, ctx: ctx, exit: l.exit}
}

func (l *SlogLogger) WithFields(fields map[string]any) glog.Logger {
	if len(fields) == 0 {
		return l
	}
	args := make([]any, 0, len(fields)*2)
	for key, value := range fields {
		args = append(args, key, value)
	}
	return &SlogLogger{base: l.base.With(args...), ctx: l.ctx, exit: l.exit}
}

func (l *SlogLogger) log(level slog.Level, msg string, args ...any) {
	l.base.Log(l.ctx, level, msg, args...)
}

// SlogProvider hands out loggers tagged with their component name.
type SlogProvider struct {
	base *SlogLogger
}

func NewSlogProvider(base *SlogLogger) *SlogProvider {
	if base == nil {
		base = NewSlogLogger(nil)
	}
	return &SlogProvider{base: base}
}

func (p *SlogProvider) GetLogger(name string) glog.Logger {
	name = strings.TrimSpace(name)
	if name == "" {
		return p.base
	}
	return &SlogLogger{base: p.base.base.With("logger", name), ctx: p.base.ctx, exit: p.base.exit}
}

var (
	_ glog.Logger         = (*SlogLogger)(nil)
	_ glog.FieldsLogger   = (*SlogLogger)(nil)
	_ glog.LoggerProvider = (*SlogProvider)(nil)
)

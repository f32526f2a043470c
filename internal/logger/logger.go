package logger

import (
	"context"
	"io"
	"log/slog"
	"os"

	"go.opentelemetry.io/otel/trace"
)

const (
	red   = "\x1b[31m"
	reset = "\x1b[0m"
)

// New builds the service logger. Kubernetes, prod and dev write JSON; local
// runs write text at debug level with error messages in red.
func New(env string) *slog.Logger {
	return newLogger(os.Stdout, env)
}

// NewWithServiceContext tags every record with the service identity.
func NewWithServiceContext(serviceName, version, env string) *slog.Logger {
	return New(env).With(
		slog.String("service", serviceName),
		slog.String("version", version),
		slog.String("environment", env),
	)
}

func newLogger(w io.Writer, env string) *slog.Logger {
	if structured(env) {
		return slog.New(&handler{next: slog.NewJSONHandler(w, &slog.HandlerOptions{
			Level:     slog.LevelInfo,
			AddSource: true,
		})})
	}
	return slog.New(&handler{
		next:        slog.NewTextHandler(w, &slog.HandlerOptions{Level: slog.LevelDebug}),
		colorErrors: true,
	})
}

func structured(env string) bool {
	if _, ok := os.LookupEnv("KUBERNETES_SERVICE_HOST"); ok {
		return true
	}
	return env == "prod" || env == "dev"
}

// handler adds trace_id and span_id from the active span and optionally
// paints error messages.
type handler struct {
	next        slog.Handler
	colorErrors bool
}

func (h *handler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.next.Enabled(ctx, level)
}

func (h *handler) Handle(ctx context.Context, r slog.Record) error {
	if h.colorErrors && r.Level >= slog.LevelError {
		painted := slog.NewRecord(r.Time, r.Level, red+r.Message+reset, r.PC)
		r.Attrs(func(a slog.Attr) bool {
			painted.AddAttrs(a)
			return true
		})
		r = painted
	}

	if sc := trace.SpanContextFromContext(ctx); sc.IsValid() {
		r.AddAttrs(
			slog.String("trace_id", sc.TraceID().String()),
			slog.String("span_id", sc.SpanID().String()),
		)
	}
	return h.next.Handle(ctx, r)
}

func (h *handler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &handler{next: h.next.WithAttrs(attrs), colorErrors: h.colorErrors}
}

func (h *handler) WithGroup(name string) slog.Handler {
	return &handler{next: h.next.WithGroup(name), colorErrors: h.colorErrors}
}

package observability

import (
	"context"
	"fmt"
	"log/slog"

	"go.opentelemetry.io/otel/trace"
)

const (
	attrTraceID = "trace_id"
	attrSpanID  = "span_id"
	attrSweepID = "sweep_id"
	attrService = "service"
	attrServer  = "server"
	attrMode    = "mode"
)

type sweepIDKey struct{}

// WithSweepID returns a context whose log records carry the given sweep id.
func WithSweepID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, sweepIDKey{}, id)
}

// SweepID returns the sweep id stored by [WithSweepID], or "".
func SweepID(ctx context.Context) string {
	id, _ := ctx.Value(sweepIDKey{}).(string)

	return id
}

// TracingHandler is an [slog.Handler] that injects OpenTelemetry trace context
// (trace_id, span_id), the current sweep id, and service metadata into every
// log record. Service attributes are pre-attached at construction so they
// stay at the top level when groups are used.
type TracingHandler struct {
	inner slog.Handler
}

// NewTracingHandler wraps an [slog.Handler], injecting trace context and service metadata.
func NewTracingHandler(inner slog.Handler, service, server string, appMode AppMode) *TracingHandler {
	attrs := []slog.Attr{
		slog.String(attrService, service),
		slog.String(attrMode, string(appMode)),
	}

	if server != "" {
		attrs = append(attrs, slog.String(attrServer, server))
	}

	return &TracingHandler{
		inner: inner.WithAttrs(attrs),
	}
}

// Enabled delegates to the inner handler.
func (th *TracingHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return th.inner.Enabled(ctx, level)
}

// Handle adds trace and sweep attributes from ctx, then delegates.
func (th *TracingHandler) Handle(ctx context.Context, record slog.Record) error {
	sc := trace.SpanContextFromContext(ctx)
	if sc.IsValid() {
		record.AddAttrs(
			slog.String(attrTraceID, sc.TraceID().String()),
			slog.String(attrSpanID, sc.SpanID().String()),
		)
	}

	if id := SweepID(ctx); id != "" {
		record.AddAttrs(slog.String(attrSweepID, id))
	}

	err := th.inner.Handle(ctx, record)
	if err != nil {
		return fmt.Errorf("tracing handler: %w", err)
	}

	return nil
}

// WithAttrs returns a new TracingHandler with additional attributes on the inner handler.
func (th *TracingHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &TracingHandler{
		inner: th.inner.WithAttrs(attrs),
	}
}

// WithGroup returns a new TracingHandler with a group prefix on the inner handler.
func (th *TracingHandler) WithGroup(name string) slog.Handler {
	return &TracingHandler{
		inner: th.inner.WithGroup(name),
	}
}

// Package observability carries cycle and job identity through a context so
// that every record logged under it is tagged without threading loggers.
package observability

import (
	"context"
	"log/slog"

	"git.home.luguber.info/inful/legistrack/internal/logfields"
)

// LogContext holds structured logging context information.
type LogContext struct {
	CycleID   string
	Mode      string
	Partition string
	Job       string
	RequestID string
}

type logContextKeyType string

const logContextKey logContextKeyType = "log-context"

// KeyMode is the attribute name for the cycle mode (poll or backfill).
const KeyMode = "mode"

// KeyRequestID is the attribute name for an HTTP request identifier.
const KeyRequestID = "request_id"

// WithCycle tags ctx with a cycle identifier and its mode.
func WithCycle(ctx context.Context, cycleID, mode string) context.Context {
	lc := extractLogContext(ctx)
	lc.CycleID = cycleID
	lc.Mode = mode
	return context.WithValue(ctx, logContextKey, lc)
}

// WithPartition tags ctx with the backfill partition being fetched.
func WithPartition(ctx context.Context, partition string) context.Context {
	lc := extractLogContext(ctx)
	lc.Partition = partition
	return context.WithValue(ctx, logContextKey, lc)
}

// WithJob tags ctx with a scheduled job name.
func WithJob(ctx context.Context, name string) context.Context {
	lc := extractLogContext(ctx)
	lc.Job = name
	return context.WithValue(ctx, logContextKey, lc)
}

// WithRequestID tags ctx with an HTTP request identifier.
func WithRequestID(ctx context.Context, id string) context.Context {
	lc := extractLogContext(ctx)
	lc.RequestID = id
	return context.WithValue(ctx, logContextKey, lc)
}

func extractLogContext(ctx context.Context) LogContext {
	if ctx == nil {
		return LogContext{}
	}
	if lc, ok := ctx.Value(logContextKey).(LogContext); ok {
		return lc
	}
	return LogContext{}
}

// GetContext returns the structured log context from the provided context.
func GetContext(ctx context.Context) LogContext {
	return extractLogContext(ctx)
}

// Attrs returns the non-empty context values as slog attributes.
func Attrs(ctx context.Context) []slog.Attr {
	lc := extractLogContext(ctx)
	var attrs []slog.Attr
	if lc.CycleID != "" {
		attrs = append(attrs, logfields.CycleID(lc.CycleID))
	}
	if lc.Mode != "" {
		attrs = append(attrs, slog.String(KeyMode, lc.Mode))
	}
	if lc.Partition != "" {
		attrs = append(attrs, logfields.Partition(lc.Partition))
	}
	if lc.Job != "" {
		attrs = append(attrs, logfields.Job(lc.Job))
	}
	if lc.RequestID != "" {
		attrs = append(attrs, slog.String(KeyRequestID, lc.RequestID))
	}
	return attrs
}

// ContextHandler wraps another slog.Handler and appends the LogContext of the
// record's context. Keys already bound through WithAttrs or present on the
// record are not repeated.
type ContextHandler struct {
	inner slog.Handler
	bound map[string]struct{}
}

// NewContextHandler wraps h. Wrapping an existing ContextHandler returns it unchanged.
func NewContextHandler(h slog.Handler) *ContextHandler {
	if ch, ok := h.(*ContextHandler); ok {
		return ch
	}
	return &ContextHandler{inner: h}
}

// Enabled implements slog.Handler.
func (h *ContextHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.inner.Enabled(ctx, level)
}

// Handle implements slog.Handler.
func (h *ContextHandler) Handle(ctx context.Context, r slog.Record) error {
	extra := Attrs(ctx)
	if len(extra) == 0 {
		return h.inner.Handle(ctx, r)
	}
	r = r.Clone()
	present := make(map[string]struct{}, r.NumAttrs())
	r.Attrs(func(a slog.Attr) bool {
		present[a.Key] = struct{}{}
		return true
	})
	for _, a := range extra {
		if _, ok := h.bound[a.Key]; ok {
			continue
		}
		if _, ok := present[a.Key]; ok {
			continue
		}
		r.AddAttrs(a)
	}
	return h.inner.Handle(ctx, r)
}

// WithAttrs implements slog.Handler.
func (h *ContextHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	bound := make(map[string]struct{}, len(h.bound)+len(attrs))
	for k := range h.bound {
		bound[k] = struct{}{}
	}
	for _, a := range attrs {
		bound[a.Key] = struct{}{}
	}
	return &ContextHandler{inner: h.inner.WithAttrs(attrs), bound: bound}
}

// WithGroup implements slog.Handler.
func (h *ContextHandler) WithGroup(name string) slog.Handler {
	return &ContextHandler{inner: h.inner.WithGroup(name), bound: h.bound}
}

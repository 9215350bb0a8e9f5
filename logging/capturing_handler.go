package logging

import (
	"context"
	"log/slog"
)

// CapturingHandler wraps an slog.Handler and copies records at or above a minimum
// level into a LogCollector while passing every record through.
//
// The signup client uses it to keep failed requests visible in the diagnostics view
// even when the log output itself goes to a file.
type CapturingHandler struct {
	underlying slog.Handler  // Pass-through to actual handler
	collector  *LogCollector // Stores captured logs
	minLevel   slog.Level    // Lowest level that is captured
	attrs      []slog.Attr   // Attributes added via WithAttrs
	groups     []string      // Groups added via WithGroup
}

// NewCapturingHandler creates a new CapturingHandler that captures records at minLevel
// and above into the collector while passing them through to the underlying handler.
func NewCapturingHandler(underlying slog.Handler, collector *LogCollector, minLevel slog.Level) *CapturingHandler {
	return &CapturingHandler{
		underlying: underlying,
		collector:  collector,
		minLevel:   minLevel,
	}
}

// Enabled reports whether either the collector or the underlying handler wants the record.
func (h *CapturingHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return level >= h.minLevel || h.underlying.Enabled(ctx, level)
}

// Handle captures the log record and then passes it to the underlying handler.
func (h *CapturingHandler) Handle(ctx context.Context, r slog.Record) error {
	if r.Level >= h.minLevel {
		entry := LogEntry{
			Time:       r.Time,
			Level:      r.Level.String(),
			Message:    r.Message,
			Attributes: make(map[string]interface{}, r.NumAttrs()+len(h.attrs)),
		}

		for _, attr := range h.attrs {
			entry.Attributes[attr.Key] = resolveValue(attr.Value)
		}
		r.Attrs(func(a slog.Attr) bool {
			entry.Attributes[a.Key] = resolveValue(a.Value)
			return true
		})

		h.collector.AddLog(entry)
	}

	if !h.underlying.Enabled(ctx, r.Level) {
		return nil
	}
	return h.underlying.Handle(ctx, r)
}

// WithAttrs returns a new CapturingHandler with additional attributes.
// It must return a CapturingHandler, not the underlying handler, so that
// loggers derived with .With() keep capturing.
func (h *CapturingHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	newAttrs := make([]slog.Attr, len(h.attrs)+len(attrs))
	copy(newAttrs, h.attrs)
	copy(newAttrs[len(h.attrs):], attrs)

	return &CapturingHandler{
		underlying: h.underlying.WithAttrs(attrs),
		collector:  h.collector,
		minLevel:   h.minLevel,
		attrs:      newAttrs,
		groups:     h.groups,
	}
}

// WithGroup returns a new CapturingHandler with a group name.
func (h *CapturingHandler) WithGroup(name string) slog.Handler {
	newGroups := make([]string, len(h.groups)+1)
	copy(newGroups, h.groups)
	newGroups[len(h.groups)] = name

	return &CapturingHandler{
		underlying: h.underlying.WithGroup(name),
		collector:  h.collector,
		minLevel:   h.minLevel,
		attrs:      h.attrs,
		groups:     newGroups,
	}
}

// resolveValue converts a slog.Value to a JSON-serializable value.
// Errors are converted to their message.
func resolveValue(v slog.Value) interface{} {
	v = v.Resolve()

	switch v.Kind() {
	case slog.KindString:
		return v.String()
	case slog.KindInt64:
		return v.Int64()
	case slog.KindUint64:
		return v.Uint64()
	case slog.KindFloat64:
		return v.Float64()
	case slog.KindBool:
		return v.Bool()
	case slog.KindDuration:
		return v.Duration().String()
	case slog.KindTime:
		return v.Time()
	case slog.KindAny:
		any := v.Any()
		if err, ok := any.(error); ok {
			return err.Error()
		}
		return any
	case slog.KindGroup:
		attrs := v.Group()
		group := make(map[string]interface{}, len(attrs))
		for _, attr := range attrs {
			group[attr.Key] = resolveValue(attr.Value)
		}
		return group
	default:
		return v.Any()
	}
}

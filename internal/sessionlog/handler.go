// Package sessionlog tees warning-level slog records into an in-memory
// diagnostics feed the settings screen can display.
package sessionlog

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"runtime/debug"
	"strings"
	"time"
)

// Entry is one diagnostics record as exposed to the frontend.
type Entry struct {
	Time    time.Time         `json:"time"`
	Level   string            `json:"level"`
	Message string            `json:"message"`
	Source  string            `json:"source,omitempty"`
	Attrs   map[string]string `json:"attrs,omitempty"`
}

// EntryFunc receives each record at or above the handler's threshold.
type EntryFunc func(Entry)

// TeeHandler forwards every record to base and hands records at or above
// minLevel to a callback as an Entry.
type TeeHandler struct {
	base     slog.Handler
	callback EntryFunc
	minLevel slog.Level
	group    string
	attrs    []slog.Attr // pre-bound via WithAttrs, keys already group-qualified
}

// NewTeeHandler returns a handler that delegates to base. A nil callback
// disables the tee.
func NewTeeHandler(base slog.Handler, minLevel slog.Level, callback EntryFunc) *TeeHandler {
	return &TeeHandler{
		base:     base,
		callback: callback,
		minLevel: minLevel,
	}
}

// Enabled defers to the base handler; minLevel only gates the callback.
func (h *TeeHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.base.Enabled(ctx, level)
}

func (h *TeeHandler) Handle(ctx context.Context, record slog.Record) error {
	err := h.base.Handle(ctx, record)
	if h.callback == nil || record.Level < h.minLevel {
		return err
	}

	entry := h.entryFor(record)
	func() {
		defer func() {
			if r := recover(); r != nil {
				// stderr, not slog: logging here would re-enter this handler.
				fmt.Fprintf(os.Stderr, "[session-log] callback panicked: %v\n%s\n", r, debug.Stack())
			}
		}()
		h.callback(entry)
	}()
	return err
}

func (h *TeeHandler) entryFor(record slog.Record) Entry {
	entry := Entry{
		Time:    record.Time,
		Level:   record.Level.String(),
		Message: record.Message,
		Source:  h.group,
	}
	if entry.Time.IsZero() {
		entry.Time = time.Now()
	}
	if len(h.attrs) == 0 && record.NumAttrs() == 0 {
		return entry
	}

	entry.Attrs = make(map[string]string, len(h.attrs)+record.NumAttrs())
	for _, attr := range h.attrs {
		flattenAttr(entry.Attrs, "", attr)
	}
	record.Attrs(func(attr slog.Attr) bool {
		flattenAttr(entry.Attrs, h.group, attr)
		return true
	})
	return entry
}

func flattenAttr(dst map[string]string, prefix string, attr slog.Attr) {
	attr.Value = attr.Value.Resolve()
	if attr.Equal(slog.Attr{}) {
		return
	}
	key := attr.Key
	if prefix != "" && key != "" {
		key = prefix + "." + key
	} else if key == "" {
		key = prefix
	}
	if attr.Value.Kind() == slog.KindGroup {
		for _, child := range attr.Value.Group() {
			flattenAttr(dst, key, child)
		}
		return
	}
	dst[key] = attr.Value.String()
}

// WithAttrs applies attrs to the base handler and remembers them for the
// callback so diagnostics entries carry the same context as the log line.
func (h *TeeHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	if len(attrs) == 0 {
		return h
	}
	bound := make([]slog.Attr, 0, len(h.attrs)+len(attrs))
	bound = append(bound, h.attrs...)
	for _, attr := range attrs {
		if h.group != "" {
			attr.Key = h.group + "." + attr.Key
		}
		bound = append(bound, attr)
	}
	return &TeeHandler{
		base:     h.base.WithAttrs(attrs),
		callback: h.callback,
		minLevel: h.minLevel,
		group:    h.group,
		attrs:    bound,
	}
}

func (h *TeeHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	group := name
	if h.group != "" {
		group = strings.Join([]string{h.group, name}, ".")
	}
	return &TeeHandler{
		base:     h.base.WithGroup(name),
		callback: h.callback,
		minLevel: h.minLevel,
		group:    group,
		attrs:    h.attrs,
	}
}

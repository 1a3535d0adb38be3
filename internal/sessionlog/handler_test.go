package sessionlog

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
	"testing"
	"time"
)

// newTestCallback returns a callback that records entries and a getter for them.
func newTestCallback() (EntryFunc, func() []Entry) {
	var mu sync.Mutex
	var entries []Entry

	cb := func(entry Entry) {
		mu.Lock()
		defer mu.Unlock()
		entries = append(entries, entry)
	}
	get := func() []Entry {
		mu.Lock()
		defer mu.Unlock()
		return append([]Entry(nil), entries...)
	}
	return cb, get
}

func TestTeeHandlerCallbackThreshold(t *testing.T) {
	tests := []struct {
		name      string
		log       func(*slog.Logger)
		wantLevel string
		wantTee   bool
	}{
		{
			name:      "error is teed",
			log:       func(l *slog.Logger) { l.Error("registry replace failed") },
			wantLevel: "ERROR",
			wantTee:   true,
		},
		{
			name:      "warning is teed",
			log:       func(l *slog.Logger) { l.Warn("[WARN-SHORTCUT] skipped binding") },
			wantLevel: "WARN",
			wantTee:   true,
		},
		{
			name:    "info is not teed",
			log:     func(l *slog.Logger) { l.Info("key stream listening") },
			wantTee: false,
		},
		{
			name:    "debug is not teed",
			log:     func(l *slog.Logger) { l.Debug("[DEBUG-WS] frame") },
			wantTee: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			base := slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})
			cb, getEntries := newTestCallback()

			tt.log(slog.New(NewTeeHandler(base, slog.LevelWarn, cb)))

			entries := getEntries()
			if !tt.wantTee {
				if len(entries) != 0 {
					t.Fatalf("callback entries = %d, want 0", len(entries))
				}
				if buf.Len() == 0 {
					t.Fatal("base handler should still receive the record")
				}
				return
			}
			if len(entries) != 1 {
				t.Fatalf("callback entries = %d, want 1", len(entries))
			}
			if entries[0].Level != tt.wantLevel {
				t.Fatalf("Level = %q, want %q", entries[0].Level, tt.wantLevel)
			}
			if entries[0].Time.IsZero() {
				t.Fatal("Time is zero")
			}
			if entries[0].Source != "" {
				t.Fatalf("Source = %q, want empty", entries[0].Source)
			}
		})
	}
}

func TestTeeHandlerCollectsAttrs(t *testing.T) {
	cb, getEntries := newTestCallback()
	handler := NewTeeHandler(slog.NewTextHandler(io.Discard, nil), slog.LevelWarn, cb)
	logger := slog.New(handler).With("component", "config")

	logger.Warn("[WARN-CONFIG] reload failed",
		"path", "C:/cfg.yaml",
		"error", errors.New("yaml: bad indentation"),
		slog.Group("binding", "action", "boss_key", "chord", "Control+Enter"),
	)

	entries := getEntries()
	if len(entries) != 1 {
		t.Fatalf("callback entries = %d, want 1", len(entries))
	}
	want := map[string]string{
		"component":      "config",
		"path":           "C:/cfg.yaml",
		"error":          "yaml: bad indentation",
		"binding.action": "boss_key",
		"binding.chord":  "Control+Enter",
	}
	for key, value := range want {
		if got := entries[0].Attrs[key]; got != value {
			t.Fatalf("Attrs[%q] = %q, want %q (attrs=%v)", key, got, value, entries[0].Attrs)
		}
	}
}

func TestTeeHandlerGroupsBecomeSource(t *testing.T) {
	cb, getEntries := newTestCallback()
	handler := NewTeeHandler(slog.NewTextHandler(io.Discard, nil), slog.LevelWarn, cb)
	logger := slog.New(handler).WithGroup("capture").With("session", "abc").WithGroup("listener")

	logger.Warn("publish failed", "client", 3)

	entries := getEntries()
	if len(entries) != 1 {
		t.Fatalf("callback entries = %d, want 1", len(entries))
	}
	if entries[0].Source != "capture.listener" {
		t.Fatalf("Source = %q, want %q", entries[0].Source, "capture.listener")
	}
	if got := entries[0].Attrs["capture.session"]; got != "abc" {
		t.Fatalf("Attrs[capture.session] = %q, want abc", got)
	}
	if got := entries[0].Attrs["capture.listener.client"]; got != "3" {
		t.Fatalf("Attrs[capture.listener.client] = %q, want 3", got)
	}
}

func TestTeeHandlerNilCallback(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(NewTeeHandler(slog.NewTextHandler(&buf, nil), slog.LevelWarn, nil))

	logger.Error("should not panic")

	if !strings.Contains(buf.String(), "should not panic") {
		t.Fatalf("base output = %q, want message", buf.String())
	}
}

func TestTeeHandlerWithEmptyInputsReturnsReceiver(t *testing.T) {
	h := NewTeeHandler(slog.NewTextHandler(io.Discard, nil), slog.LevelInfo, nil)
	if got := h.WithGroup(""); got != h {
		t.Fatal("WithGroup(\"\") should return the receiver")
	}
	if got := h.WithAttrs(nil); got != h {
		t.Fatal("WithAttrs(nil) should return the receiver")
	}
}

// errorHandler always fails Handle with err.
type errorHandler struct{ err error }

func (h *errorHandler) Enabled(context.Context, slog.Level) bool  { return true }
func (h *errorHandler) Handle(context.Context, slog.Record) error { return h.err }
func (h *errorHandler) WithAttrs([]slog.Attr) slog.Handler        { return h }
func (h *errorHandler) WithGroup(string) slog.Handler             { return h }

func TestTeeHandlerBaseError(t *testing.T) {
	baseErr := fmt.Errorf("write log: %w", errors.New("no space left on device"))
	cb, getEntries := newTestCallback()
	handler := NewTeeHandler(&errorHandler{err: baseErr}, slog.LevelWarn, cb)

	err := handler.Handle(context.Background(), slog.NewRecord(time.Now(), slog.LevelError, "save failed", 0))
	if !errors.Is(err, baseErr) {
		t.Fatalf("Handle() error = %v, want %v", err, baseErr)
	}
	if len(getEntries()) != 1 {
		t.Fatal("callback should still run when the base handler fails")
	}
}

func TestTeeHandlerCallbackPanicIsContained(t *testing.T) {
	origStderr := os.Stderr
	readPipe, writePipe, err := os.Pipe()
	if err != nil {
		t.Fatalf("os.Pipe() error = %v", err)
	}
	os.Stderr = writePipe
	t.Cleanup(func() {
		os.Stderr = origStderr
		_ = readPipe.Close()
	})

	h := NewTeeHandler(slog.NewTextHandler(io.Discard, nil), slog.LevelInfo, func(Entry) {
		panic("listener gone")
	})
	if err := h.Handle(context.Background(), slog.NewRecord(time.Now(), slog.LevelWarn, "x", 0)); err != nil {
		t.Fatalf("Handle() error = %v, want nil", err)
	}
	_ = writePipe.Close()
	os.Stderr = origStderr

	out, _ := io.ReadAll(readPipe)
	if !strings.Contains(string(out), "callback panicked: listener gone") {
		t.Fatalf("stderr = %q, want panic report", out)
	}
}

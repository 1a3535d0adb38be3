package main

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"testing"

	"readlet/internal/testutil"
)

// NOTE: Tests in the root package override package-level function variables
// (runtimeEventsEmitFn, runtimeLogger, runtimeWindow*Fn). Do not use t.Parallel().

type recordedEvent struct {
	name    string
	payload any
}

// eventRecorder captures runtime events emitted through runtimeEventsEmitFn.
type eventRecorder struct {
	mu     sync.Mutex
	events []recordedEvent
}

func recordRuntimeEvents(t *testing.T) *eventRecorder {
	t.Helper()
	rec := &eventRecorder{}
	origEmit := runtimeEventsEmitFn
	runtimeEventsEmitFn = func(_ context.Context, name string, data ...interface{}) {
		var payload any
		if len(data) > 0 {
			payload = data[0]
		}
		rec.mu.Lock()
		rec.events = append(rec.events, recordedEvent{name: name, payload: payload})
		rec.mu.Unlock()
	}
	t.Cleanup(func() {
		runtimeEventsEmitFn = origEmit
	})
	return rec
}

func (r *eventRecorder) named(name string) []any {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []any
	for _, ev := range r.events {
		if ev.name == name {
			out = append(out, ev.payload)
		}
	}
	return out
}

func (r *eventRecorder) names() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.events))
	for _, ev := range r.events {
		out = append(out, ev.name)
	}
	return out
}

func TestEmitRuntimeEventWithContextSkipsNilContext(t *testing.T) {
	logBuf := testutil.CaptureLogBuffer(t, slog.LevelWarn)
	rec := recordRuntimeEvents(t)

	app := NewApp()
	app.emitRuntimeEvent(eventConfigUpdated, nil)

	if got := rec.names(); len(got) != 0 {
		t.Fatalf("emitted events = %v, want none", got)
	}
	if !strings.Contains(logBuf.String(), "runtime event dropped because app context is nil") {
		t.Fatalf("log output = %q, want nil-context warning", logBuf.String())
	}
}

func TestEmitRuntimeEventWithContextEmitsWhenContextIsReady(t *testing.T) {
	rec := recordRuntimeEvents(t)

	app := NewApp()
	app.setRuntimeContext(context.Background())
	app.emitRuntimeEvent(eventShortcutTriggered, shortcutTriggeredEvent{Action: "next_line_shortcut"})

	got := rec.named(eventShortcutTriggered)
	if len(got) != 1 {
		t.Fatalf("shortcut:triggered events = %d, want 1", len(got))
	}
	if ev, ok := got[0].(shortcutTriggeredEvent); !ok || ev.Action != "next_line_shortcut" {
		t.Fatalf("payload = %#v", got[0])
	}
}

package main

import (
	"context"
	"log/slog"

	"readlet/internal/config"
)

// Runtime event names emitted to the frontend.
const (
	eventCaptureChanged    = "shortcut:capture-changed"
	eventShortcutCommitted = "shortcut:committed"
	eventShortcutRejected  = "shortcut:rejected"
	eventShortcutTriggered = "shortcut:triggered"
	eventConfigUpdated     = "config:updated"
	eventConfigLoadFailed  = "config:load-failed"
	eventWorkerPanic       = "app:worker-panic"
	eventSessionLogAdded   = "app:session-log-added"
)

type configUpdatedEvent struct {
	Config             config.Config `json:"config"`
	Version            uint64        `json:"version"`
	UpdatedAtUnixMilli int64         `json:"updated_at_unix_milli"`
}

type shortcutCommittedEvent struct {
	SessionID string `json:"session_id"`
	Action    string `json:"action"`
	Chord     string `json:"chord"`
	Display   string `json:"display"`
}

type shortcutRejectedEvent struct {
	SessionID string `json:"session_id"`
	Action    string `json:"action"`
	Reason    string `json:"reason"`
}

type shortcutTriggeredEvent struct {
	Action string `json:"action"`
}

// emitRuntimeEvent emits via the app context and delegates to emitRuntimeEventWithContext.
func (a *App) emitRuntimeEvent(name string, payload any) {
	a.emitRuntimeEventWithContext(a.runtimeContext(), name, payload)
}

// emitRuntimeEventWithContext emits a runtime event only when ctx is non-nil.
// Prefer this helper for best-effort contexts that may not be initialized yet.
func (a *App) emitRuntimeEventWithContext(ctx context.Context, name string, payload any) {
	if ctx == nil {
		slog.Warn("[EVENT] runtime event dropped because app context is nil", "event", name)
		return
	}
	runtimeEventsEmitFn(ctx, name, payload)
}

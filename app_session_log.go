package main

import (
	"log/slog"

	"readlet/internal/sessionlog"
)

// newSessionLogHandler wraps base so warning-level records also land in the
// App's diagnostics feed.
func (a *App) newSessionLogHandler(base slog.Handler) slog.Handler {
	return sessionlog.NewTeeHandler(base, slog.LevelWarn, a.recordSessionLogEntry)
}

// recordSessionLogEntry runs inside the slog handler and must not log.
func (a *App) recordSessionLogEntry(entry sessionlog.Entry) {
	a.sessionLog.Add(entry)
	if ctx := a.runtimeContext(); ctx != nil && !a.shuttingDown.Load() {
		runtimeEventsEmitFn(ctx, eventSessionLogAdded, entry)
	}
}

// GetSessionLog returns buffered warnings and errors, oldest first.
func (a *App) GetSessionLog() []sessionlog.Entry {
	return a.sessionLog.Snapshot()
}

// ClearSessionLog drops all buffered diagnostics.
func (a *App) ClearSessionLog() {
	a.sessionLog.Clear()
}

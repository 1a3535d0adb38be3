package main

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"readlet/internal/capture"
	"readlet/internal/chord"
	"readlet/internal/config"
)

// ShortcutView is one row of the shortcut settings form.
type ShortcutView struct {
	Action  string `json:"action"`
	Chord   string `json:"chord"`
	Display string `json:"display"`
	Default string `json:"default"`
}

// StartShortcutCapture begins recording a shortcut for action, aborting any
// other capture first. Returns the new session ID.
func (a *App) StartShortcutCapture(action string) (string, error) {
	snap, err := a.startCapture(action)
	if err != nil {
		return "", err
	}
	return snap.ID, nil
}

// ShortcutKeyDown feeds a KeyboardEvent.code to the active capture.
func (a *App) ShortcutKeyDown(code string) {
	if session := a.currentCapture(); session != nil {
		session.KeyDown(code)
	}
}

// ShortcutKeyUp feeds a key release to the active capture.
func (a *App) ShortcutKeyUp(code string) {
	if session := a.currentCapture(); session != nil {
		session.KeyUp(code)
	}
}

// ShortcutBlur aborts the active capture without committing.
func (a *App) ShortcutBlur() {
	if session := a.currentCapture(); session != nil {
		session.Blur()
	}
}

// GetShortcuts returns every known action with its binding and display text.
func (a *App) GetShortcuts() []ShortcutView {
	cfg := a.getConfigSnapshot()
	platform := config.ResolvePlatform(cfg)
	formatter := chord.NewFormatter(platform)
	defaults := config.DefaultShortcuts(platform)

	actions := config.Actions()
	views := make([]ShortcutView, 0, len(actions))
	for _, action := range actions {
		binding := cfg.Shortcuts[action]
		views = append(views, ShortcutView{
			Action:  action,
			Chord:   binding,
			Display: formatter.FormatString(binding),
			Default: defaults[action],
		})
	}
	return views
}

// FormatShortcut renders a chord string for display on the current platform.
func (a *App) FormatShortcut(chordString string) string {
	return a.currentFormatter().FormatString(chordString)
}

// TriggerShortcut dispatches the chord formed by codes while the reader
// window has focus. Returns the triggered action, or "" when nothing fired.
func (a *App) TriggerShortcut(codes []string) string {
	registry, err := a.requireRegistry()
	if err != nil {
		slog.Debug("[DEBUG-hotkey] trigger ignored", "error", err)
		return ""
	}
	var composer chord.Composer
	for _, code := range codes {
		if key := chord.Normalize(code); !key.IsZero() {
			composer.KeyDown(key)
		}
	}
	c := composer.Current()
	if len(c) == 0 {
		return ""
	}
	action, _ := registry.Dispatch(c)
	return action
}

// handleShortcutTriggered runs for every action the registry dispatches.
func (a *App) handleShortcutTriggered(action string) {
	slog.Debug("[DEBUG-hotkey] shortcut triggered", "action", action)
	if action == config.ActionBossKey {
		a.toggleBossWindow()
	}
	a.emitRuntimeEvent(eventShortcutTriggered, shortcutTriggeredEvent{Action: action})
}

func (a *App) startCapture(action string) (capture.Snapshot, error) {
	action = strings.TrimSpace(action)
	if !config.IsKnownAction(action) {
		return capture.Snapshot{}, fmt.Errorf("unknown shortcut action %q", action)
	}
	if a.shuttingDown.Load() {
		return capture.Snapshot{}, errors.New("application is shutting down")
	}
	registry, err := a.requireRegistry()
	if err != nil {
		return capture.Snapshot{}, err
	}

	id := uuid.NewString()
	session := capture.NewSession(capture.Options{
		ID:        id,
		Action:    action,
		Gate:      registry,
		Bindings:  registry,
		Validator: a.currentValidator(),
		Listener:  a.captureListener(id, action),
		Formatter: a.currentFormatter(),
	})
	// One recording at a time: a newer field takes over from an older one.
	if prev := a.swapCapture(session); prev != nil {
		prev.Close()
	}
	if err := session.Start(); err != nil {
		return capture.Snapshot{}, fmt.Errorf("start capture: %w", err)
	}
	return session.Snapshot(), nil
}

func (a *App) captureListener(sessionID, action string) capture.Listener {
	return capture.ListenerFuncs{
		Commit: func(chordString string) {
			a.commitCapturedShortcut(sessionID, action, chordString)
		},
		Reject: func(reason string) {
			a.emitRuntimeEvent(eventShortcutRejected, shortcutRejectedEvent{
				SessionID: sessionID,
				Action:    action,
				Reason:    reason,
			})
		},
		Change: a.publishCaptureSnapshot,
	}
}

// commitCapturedShortcut persists an accepted chord. A save failure (for
// example a conflicting binding written by a concurrent save) is reported
// as a rejection.
func (a *App) commitCapturedShortcut(sessionID, action, chordString string) {
	event, err := a.setShortcut(action, chordString)
	if err != nil {
		slog.Warn("[WARN-SHORTCUT] failed to persist captured shortcut",
			"action", action, "chord", chordString, "error", err)
		a.emitRuntimeEvent(eventShortcutRejected, shortcutRejectedEvent{
			SessionID: sessionID,
			Action:    action,
			Reason:    err.Error(),
		})
		return
	}
	a.emitRuntimeEvent(eventShortcutCommitted, shortcutCommittedEvent{
		SessionID: sessionID,
		Action:    action,
		Chord:     chordString,
		Display:   a.currentFormatter().FormatString(chordString),
	})
	a.emitRuntimeEvent(eventConfigUpdated, event)
}

func (a *App) publishCaptureSnapshot(snap capture.Snapshot) {
	a.emitRuntimeEvent(eventCaptureChanged, snap)
	if a.wsHub != nil {
		a.wsHub.PublishCapture(snap)
	}
}

// keyStreamSink routes key stream frames to the App's capture controller.
type keyStreamSink struct {
	app *App
}

func (s keyStreamSink) StartCapture(action string) (capture.Snapshot, error) {
	return s.app.startCapture(action)
}

func (s keyStreamSink) KeyDown(code string) { s.app.ShortcutKeyDown(code) }
func (s keyStreamSink) KeyUp(code string)   { s.app.ShortcutKeyUp(code) }
func (s keyStreamSink) Blur()               { s.app.ShortcutBlur() }

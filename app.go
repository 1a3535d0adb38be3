package main

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"

	"readlet/internal/capture"
	"readlet/internal/config"
	"readlet/internal/hotkeys"
	"readlet/internal/sessionlog"
	"readlet/internal/wsserver"
)

// App is the Wails-bound application service.
type App struct {
	// Runtime context lifecycle.
	ctx   context.Context
	ctxMu sync.RWMutex

	// Configuration state and startup warnings.
	// Lock ordering (outer -> inner):
	//   cfgSaveMu -> cfgMu
	//   cfgSaveMu -> hotkeys.Registry.mu (via Bind/Replace)
	//
	// Independent locks: do not assume ordering across these.
	//   captureMu, windowMu, startupWarnMu, ctxMu
	//   capture.Session.mu, wsserver.Hub.mu
	//
	// captureMu is never held while calling into a capture.Session; session
	// listeners call back into the App and may take cfgSaveMu.
	cfgMu              sync.RWMutex
	cfgSaveMu          sync.Mutex
	configEventVersion atomic.Uint64
	cfg                config.Config
	configPath         string
	startupWarnMu      sync.Mutex
	configLoadWarnings []string

	// Shortcut state. registry is created in NewApp and never reassigned.
	registry  *hotkeys.Registry
	captureMu sync.Mutex
	capture   *capture.Session

	// Window visibility state (boss key).
	windowMu       sync.Mutex
	windowVisible  bool
	windowToggling atomic.Bool // CAS guard to prevent concurrent toggleBossWindow
	shuttingDown   atomic.Bool // set true at the start of shutdown(); checked by worker recovery loops

	// wsHub carries raw key events from the WebView during capture.
	// Set once during startup; nil if the key stream failed to start.
	// Safe without mutex: written once before any reader goroutine starts, never reassigned.
	wsHub *wsserver.Hub

	// Warning-level diagnostics teed from slog. Created in NewApp, never reassigned.
	sessionLog *sessionlog.Ring

	// Background worker cancellation/waits.
	watchCancel context.CancelFunc
	bgWG        sync.WaitGroup
}

// NewApp creates the app service.
func NewApp() *App {
	a := &App{sessionLog: sessionlog.NewRing(sessionlog.DefaultCapacity)}
	registry, err := hotkeys.NewRegistry(a.handleShortcutTriggered)
	if err != nil {
		// Unreachable: the callback is a non-nil method value.
		slog.Error("[hotkey] registry creation failed", "error", err)
	}
	a.registry = registry
	return a
}

func (a *App) setRuntimeContext(ctx context.Context) {
	a.ctxMu.Lock()
	a.ctx = ctx
	a.ctxMu.Unlock()
}

func (a *App) runtimeContext() context.Context {
	a.ctxMu.RLock()
	ctx := a.ctx
	a.ctxMu.RUnlock()
	return ctx
}

// GetKeyStreamURL returns the WebSocket endpoint the frontend streams raw
// key events to while a shortcut field is recording.
// Returns empty string if the key stream is not available.
func (a *App) GetKeyStreamURL() string {
	if a.wsHub == nil {
		slog.Debug("[DEBUG-WS] wsHub is nil, key stream URL unavailable")
		return ""
	}
	return a.wsHub.URL()
}

package main

import (
	"context"
	"fmt"
	"log/slog"
	"reflect"
	"strings"
	"time"

	"readlet/internal/config"
	"readlet/internal/workerutil"
	"readlet/internal/wsserver"

	"github.com/wailsapp/wails/v2/pkg/runtime"
)

type appRuntimeLogger interface {
	Warningf(context.Context, string, ...interface{})
	Infof(context.Context, string, ...interface{})
	Errorf(context.Context, string, ...interface{})
}

type wailsRuntimeLogger struct{}

func formatRuntimeLogMessage(message string, args ...interface{}) string {
	if len(args) == 0 {
		return message
	}
	return fmt.Sprintf(message, args...)
}

func (wailsRuntimeLogger) Warningf(ctx context.Context, message string, args ...interface{}) {
	if ctx == nil {
		slog.Warn(formatRuntimeLogMessage(message, args...))
		return
	}
	runtime.LogWarningf(ctx, message, args...)
}

func (wailsRuntimeLogger) Infof(ctx context.Context, message string, args ...interface{}) {
	if ctx == nil {
		slog.Info(formatRuntimeLogMessage(message, args...))
		return
	}
	runtime.LogInfof(ctx, message, args...)
}

func (wailsRuntimeLogger) Errorf(ctx context.Context, message string, args ...interface{}) {
	if ctx == nil {
		slog.Error(formatRuntimeLogMessage(message, args...))
		return
	}
	runtime.LogErrorf(ctx, message, args...)
}

var (
	runtimeEventsEmitFn                            = runtime.EventsEmit
	runtimeLogger                 appRuntimeLogger = wailsRuntimeLogger{}
	newConfigWatcherFn                             = config.NewWatcher
	runtimeWindowIsMinimisedFn                     = runtime.WindowIsMinimised
	runtimeWindowHideFn                            = runtime.WindowHide
	runtimeWindowShowFn                            = runtime.WindowShow
	runtimeWindowUnminimiseFn                      = runtime.WindowUnminimise
	runtimeWindowSetAlwaysOnTopFn                  = runtime.WindowSetAlwaysOnTop
)

const shutdownWaitTimeout = 10 * time.Second

func (a *App) addPendingConfigLoadWarning(message string) {
	trimmed := strings.TrimSpace(message)
	if trimmed == "" {
		return
	}
	a.startupWarnMu.Lock()
	a.configLoadWarnings = append(a.configLoadWarnings, trimmed)
	a.startupWarnMu.Unlock()
}

func (a *App) consumePendingConfigLoadWarning() string {
	a.startupWarnMu.Lock()
	defer a.startupWarnMu.Unlock()
	if len(a.configLoadWarnings) == 0 {
		return ""
	}
	message := strings.Join(a.configLoadWarnings, "\n")
	a.configLoadWarnings = nil
	return message
}

func (a *App) startup(ctx context.Context) {
	a.setRuntimeContext(ctx)
	a.setWindowVisible(true)

	a.configPath = config.DefaultPath()
	for _, message := range config.ConsumeDefaultPathWarnings() {
		a.addPendingConfigLoadWarning(message)
	}

	cfg, err := config.EnsureFile(a.configPath)
	if err != nil {
		// Config load/parse failures are non-fatal: run with defaults and
		// surface a warning to the user.
		cfg = config.DefaultConfig()
		a.addPendingConfigLoadWarning(
			"Failed to load config file at startup. Running with default shortcuts. Error: " + err.Error(),
		)
		runtimeLogger.Warningf(ctx, "failed to load config from %s: %v", a.configPath, err)
	}
	a.setConfigSnapshot(cfg)
	a.applyShortcutBindings(cfg)

	a.startKeyStream(ctx, cfg.KeyStreamPort)
	a.startConfigWatcher(ctx)
	a.flushPendingConfigLoadWarnings()
}

// startKeyStream starts the localhost key event endpoint. Failure is
// non-fatal: shortcut fields fall back to the bound ShortcutKey* methods.
func (a *App) startKeyStream(ctx context.Context, port int) {
	hub, err := wsserver.NewHub(wsserver.HubOptions{
		Addr: fmt.Sprintf("127.0.0.1:%d", port),
		Sink: keyStreamSink{app: a},
	})
	if err != nil {
		runtimeLogger.Errorf(ctx, "key stream setup failed: %v", err)
		return
	}
	if err := hub.Start(ctx); err != nil {
		runtimeLogger.Errorf(ctx, "key stream failed to start: %v", err)
		a.addPendingConfigLoadWarning(
			"Failed to start the key stream server. Shortcut recording uses the slower event path. Error: " + err.Error(),
		)
		return
	}
	a.wsHub = hub
	runtimeLogger.Infof(ctx, "key stream listening: %s", hub.URL())
}

// startConfigWatcher reloads shortcuts when the config file is edited
// outside the app. Each restart after a panic opens a fresh watcher.
func (a *App) startConfigWatcher(parent context.Context) {
	ctx, cancel := context.WithCancel(parent)
	a.watchCancel = cancel

	workerutil.RunWithPanicRecovery(ctx, "config-watcher", &a.bgWG, func(ctx context.Context) {
		watcher, err := newConfigWatcherFn(a.configPath, 0, a.handleConfigFileChange)
		if err != nil {
			slog.Warn("[WARN-CONFIG] config watcher unavailable", "path", a.configPath, "error", err)
			return
		}
		watcher.Run(ctx)
	}, workerutil.RecoveryOptions{
		IsShutdown: a.shuttingDown.Load,
		OnPanic: func(worker string, _ int) {
			a.emitRuntimeEvent(eventWorkerPanic, map[string]any{"worker": worker})
		},
	})
}

// handleConfigFileChange applies an on-disk config edit. Reloads equal to
// the in-memory config (such as the echo of our own Save) are ignored.
func (a *App) handleConfigFileChange(cfg config.Config, err error) {
	if a.shuttingDown.Load() {
		return
	}
	if err != nil {
		slog.Warn("[WARN-CONFIG] config reload failed, keeping current shortcuts", "error", err)
		a.addPendingConfigLoadWarning("Failed to reload config file. Keeping current shortcuts. Error: " + err.Error())
		a.flushPendingConfigLoadWarnings()
		return
	}

	a.cfgSaveMu.Lock()
	if reflect.DeepEqual(cfg, a.getConfigSnapshot()) {
		a.cfgSaveMu.Unlock()
		return
	}
	a.setConfigSnapshot(cfg)
	a.applyShortcutBindings(cfg)
	event := a.newConfigUpdatedEvent(cfg)
	a.cfgSaveMu.Unlock()

	slog.Info("[DEBUG-CONFIG] config reloaded from disk", "version", event.Version)
	a.emitRuntimeEvent(eventConfigUpdated, event)
}

func (a *App) shutdown(_ context.Context) {
	a.shuttingDown.Store(true)
	logCtx := a.runtimeContext()

	if session := a.swapCapture(nil); session != nil {
		session.Close()
	}
	if a.watchCancel != nil {
		a.watchCancel()
		a.watchCancel = nil
	}
	if !waitWithTimeout(a.bgWG.Wait, shutdownWaitTimeout) {
		runtimeLogger.Warningf(logCtx, "timed out waiting for background workers during shutdown")
	}
	if a.wsHub != nil {
		if err := a.wsHub.Stop(); err != nil {
			runtimeLogger.Warningf(logCtx, "key stream stop failed: %v", err)
		}
	}
}

func waitWithTimeout(waitFn func(), timeout time.Duration) bool {
	// Best effort timeout guard for shutdown paths. The waiting goroutine may
	// outlive timeout when waitFn blocks indefinitely, but this function is only
	// used during process shutdown where eventual completion is expected.
	done := make(chan struct{})
	go func() {
		waitFn()
		close(done)
	}()

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case <-done:
		return true
	case <-timer.C:
		return false
	}
}

func (a *App) raiseWindow(ctx context.Context) {
	runtimeWindowShowFn(ctx)
	runtimeWindowUnminimiseFn(ctx)
	runtimeWindowSetAlwaysOnTopFn(ctx, true)
	runtimeWindowSetAlwaysOnTopFn(ctx, false)
}

func (a *App) setWindowVisible(visible bool) {
	a.windowMu.Lock()
	a.windowVisible = visible
	a.windowMu.Unlock()
}

// toggleBossWindow hides the reader window, or brings it back when hidden.
func (a *App) toggleBossWindow() {
	// CAS guard prevents double-toggle when a second trigger fires
	// while OS window operations are in progress.
	if !a.windowToggling.CompareAndSwap(false, true) {
		slog.Debug("[DEBUG-hotkey] toggle already in progress, skipping")
		return
	}
	defer a.windowToggling.Store(false)

	ctx := a.runtimeContext()
	if ctx == nil {
		return
	}

	// Read OS window state outside lock: no Wails runtime API inside mutex.
	isMinimised := runtimeWindowIsMinimisedFn(ctx)

	a.windowMu.Lock()
	currentlyVisible := a.windowVisible && !isMinimised
	a.windowMu.Unlock()

	if currentlyVisible {
		runtimeWindowHideFn(ctx)
	} else {
		a.raiseWindow(ctx)
	}

	a.setWindowVisible(!currentlyVisible)
}

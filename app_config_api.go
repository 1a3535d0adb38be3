package main

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"readlet/internal/config"
)

// GetConfig returns loaded config.
func (a *App) GetConfig() config.Config {
	return a.getConfigSnapshot()
}

// GetConfigAndFlushWarnings returns loaded config and emits any pending startup warnings.
func (a *App) GetConfigAndFlushWarnings() config.Config {
	a.flushPendingConfigLoadWarnings()
	return a.getConfigSnapshot()
}

func (a *App) flushPendingConfigLoadWarnings() {
	ctx := a.runtimeContext()
	if ctx == nil {
		return
	}
	if warning := a.consumePendingConfigLoadWarning(); warning != "" {
		a.emitRuntimeEventWithContext(ctx, eventConfigLoadFailed, map[string]string{
			"message": warning,
		})
	}
}

// SaveConfig validates and persists cfg to disk, then updates in-memory config
// and the shortcut registry.
// The config:updated event carries the normalized config (with defaults filled).
func (a *App) SaveConfig(cfg config.Config) error {
	event, err := a.saveConfigWithLock(func(config.Config) (config.Config, error) {
		return cfg, nil
	})
	if err != nil {
		return err
	}
	// Event emission intentionally happens outside cfgSaveMu.
	// Concurrent saves are ordered by Version, and frontend consumers must
	// treat the highest version as authoritative.
	a.emitRuntimeEvent(eventConfigUpdated, event)
	return nil
}

// ResetShortcut restores action's default binding for the current platform.
func (a *App) ResetShortcut(action string) error {
	action = strings.TrimSpace(action)
	if !config.IsKnownAction(action) {
		return fmt.Errorf("unknown shortcut action %q", action)
	}
	event, err := a.saveConfigWithLock(func(current config.Config) (config.Config, error) {
		defaults := config.DefaultShortcuts(config.ResolvePlatform(current))
		if current.Shortcuts == nil {
			current.Shortcuts = map[string]string{}
		}
		current.Shortcuts[action] = defaults[action]
		return current, nil
	})
	if err != nil {
		return fmt.Errorf("reset %s: %w", action, err)
	}
	a.emitRuntimeEvent(eventConfigUpdated, event)
	return nil
}

// setShortcut persists one action binding. An empty chord unbinds the action.
func (a *App) setShortcut(action, chordString string) (configUpdatedEvent, error) {
	return a.saveConfigWithLock(func(current config.Config) (config.Config, error) {
		if current.Shortcuts == nil {
			current.Shortcuts = map[string]string{}
		}
		current.Shortcuts[action] = chordString
		return current, nil
	})
}

// saveConfigWithLock derives the next config from the current snapshot,
// persists it, updates the in-memory snapshot and registry, and bumps the
// event version under cfgSaveMu.
func (a *App) saveConfigWithLock(update func(current config.Config) (config.Config, error)) (configUpdatedEvent, error) {
	a.cfgSaveMu.Lock()
	defer a.cfgSaveMu.Unlock()

	next, err := update(a.getConfigSnapshot())
	if err != nil {
		return configUpdatedEvent{}, err
	}
	normalized, err := config.Save(a.configPath, next)
	if err != nil {
		return configUpdatedEvent{}, err
	}
	a.setConfigSnapshot(normalized)
	a.applyShortcutBindings(normalized)
	return a.newConfigUpdatedEvent(normalized), nil
}

// newConfigUpdatedEvent must be called with cfgSaveMu held so versions
// follow save order.
func (a *App) newConfigUpdatedEvent(cfg config.Config) configUpdatedEvent {
	return configUpdatedEvent{
		Config:             config.Clone(cfg),
		Version:            a.configEventVersion.Add(1),
		UpdatedAtUnixMilli: time.Now().UnixMilli(),
	}
}

// applyShortcutBindings installs cfg's shortcuts in the registry. Invalid
// entries are skipped by the registry and logged.
func (a *App) applyShortcutBindings(cfg config.Config) {
	registry, err := a.requireRegistry()
	if err != nil {
		slog.Warn("[WARN-CONFIG] skipped shortcut update", "error", err)
		return
	}
	if err := registry.Replace(cfg.Shortcuts); err != nil {
		slog.Warn("[WARN-CONFIG] some shortcuts could not be installed", "error", err)
	}
}

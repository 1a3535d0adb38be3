package main

import (
	"context"
	"errors"
	"strings"
	"testing"

	"readlet/internal/config"
)

func TestSaveConfigEmitsUpdatedConfigEvent(t *testing.T) {
	rec := recordRuntimeEvents(t)
	app := newTestApp(t)

	cfg := windowsTestConfig()
	cfg.Shortcuts[config.ActionBossKey] = "Alt+Shift+B"
	if err := app.SaveConfig(cfg); err != nil {
		t.Fatalf("SaveConfig() error = %v", err)
	}

	updated := rec.named(eventConfigUpdated)
	if len(updated) != 1 {
		t.Fatalf("config:updated events = %d, want 1", len(updated))
	}
	event := updated[0].(configUpdatedEvent)
	if event.Version != 1 {
		t.Fatalf("event version = %d, want 1", event.Version)
	}
	if event.UpdatedAtUnixMilli <= 0 {
		t.Fatalf("event updated_at_unix_milli = %d, want > 0", event.UpdatedAtUnixMilli)
	}
	if got := event.Config.Shortcuts[config.ActionBossKey]; got != "Shift+Alt+B" && got != "Alt+Shift+B" {
		t.Fatalf("event boss key = %q", got)
	}
	if got, want := app.GetConfig().Shortcuts[config.ActionBossKey], event.Config.Shortcuts[config.ActionBossKey]; got != want {
		t.Fatalf("in-memory boss key = %q, want %q", got, want)
	}
	if _, ok := app.registry.Bindings()[config.ActionBossKey]; !ok {
		t.Fatal("registry should carry the saved boss key binding")
	}
}

func TestSaveConfigVersionIncrements(t *testing.T) {
	rec := recordRuntimeEvents(t)
	app := newTestApp(t)

	for range 3 {
		if err := app.SaveConfig(windowsTestConfig()); err != nil {
			t.Fatalf("SaveConfig() error = %v", err)
		}
	}
	updated := rec.named(eventConfigUpdated)
	if len(updated) != 3 {
		t.Fatalf("config:updated events = %d, want 3", len(updated))
	}
	for i, payload := range updated {
		if got := payload.(configUpdatedEvent).Version; got != uint64(i+1) {
			t.Fatalf("event[%d].Version = %d, want %d", i, got, i+1)
		}
	}
}

func TestSaveConfigRejectsDuplicateBindings(t *testing.T) {
	rec := recordRuntimeEvents(t)
	app := newTestApp(t)

	cfg := windowsTestConfig()
	cfg.Shortcuts[config.ActionNextLine] = cfg.Shortcuts[config.ActionPrevLine]
	err := app.SaveConfig(cfg)
	if err == nil || !strings.Contains(err.Error(), "both bound to") {
		t.Fatalf("SaveConfig() error = %v, want duplicate binding error", err)
	}
	if got := app.GetConfig().Shortcuts[config.ActionNextLine]; got != "Control+ArrowRight" {
		t.Fatalf("in-memory binding = %q, want unchanged", got)
	}
	if len(rec.named(eventConfigUpdated)) != 0 {
		t.Fatal("failed save must not emit config:updated")
	}
}

func TestResetShortcut(t *testing.T) {
	recordRuntimeEvents(t)
	app := newTestApp(t)

	cfg := windowsTestConfig()
	cfg.Shortcuts[config.ActionPrevChapter] = "Alt+K"
	if err := app.SaveConfig(cfg); err != nil {
		t.Fatal(err)
	}
	if err := app.ResetShortcut(config.ActionPrevChapter); err != nil {
		t.Fatalf("ResetShortcut() error = %v", err)
	}
	if got := app.GetConfig().Shortcuts[config.ActionPrevChapter]; got != "Control+ArrowUp" {
		t.Fatalf("binding after reset = %q, want Control+ArrowUp", got)
	}
	if err := app.ResetShortcut("nope"); err == nil {
		t.Fatal("ResetShortcut() with unknown action should fail")
	}
}

func TestResetShortcutConflictingDefaultFails(t *testing.T) {
	recordRuntimeEvents(t)
	app := newTestApp(t)

	cfg := windowsTestConfig()
	cfg.Shortcuts[config.ActionBossKey] = "Alt+B"
	cfg.Shortcuts[config.ActionNextLine] = "Control+Enter"
	if err := app.SaveConfig(cfg); err != nil {
		t.Fatal(err)
	}
	if err := app.ResetShortcut(config.ActionBossKey); err == nil {
		t.Fatal("ResetShortcut() should fail when the default is taken")
	}
	if got := app.GetConfig().Shortcuts[config.ActionBossKey]; got != "Alt+B" {
		t.Fatalf("binding = %q, want unchanged Alt+B", got)
	}
}

func TestFlushPendingConfigLoadWarnings(t *testing.T) {
	rec := recordRuntimeEvents(t)
	app := NewApp()

	app.addPendingConfigLoadWarning("  first  ")
	app.addPendingConfigLoadWarning("   ")
	app.addPendingConfigLoadWarning("second")

	// No runtime context yet: warnings stay queued.
	app.flushPendingConfigLoadWarnings()
	if len(rec.named(eventConfigLoadFailed)) != 0 {
		t.Fatal("warnings flushed without a runtime context")
	}

	app.setRuntimeContext(context.Background())
	app.flushPendingConfigLoadWarnings()
	failed := rec.named(eventConfigLoadFailed)
	if len(failed) != 1 {
		t.Fatalf("config:load-failed events = %d, want 1", len(failed))
	}
	if got := failed[0].(map[string]string)["message"]; got != "first\nsecond" {
		t.Fatalf("message = %q, want %q", got, "first\nsecond")
	}

	app.flushPendingConfigLoadWarnings()
	if len(rec.named(eventConfigLoadFailed)) != 1 {
		t.Fatal("warnings should be consumed once")
	}
}

func TestHandleConfigFileChange(t *testing.T) {
	t.Run("equal config is ignored", func(t *testing.T) {
		rec := recordRuntimeEvents(t)
		app := newTestApp(t)
		app.handleConfigFileChange(app.GetConfig(), nil)
		if got := rec.names(); len(got) != 0 {
			t.Fatalf("events = %v, want none", got)
		}
	})

	t.Run("changed config is applied", func(t *testing.T) {
		rec := recordRuntimeEvents(t)
		app := newTestApp(t)
		cfg := app.GetConfig()
		cfg.Shortcuts[config.ActionNextLine] = "Alt+N"
		app.handleConfigFileChange(cfg, nil)

		if got := app.GetConfig().Shortcuts[config.ActionNextLine]; got != "Alt+N" {
			t.Fatalf("binding = %q, want Alt+N", got)
		}
		if got := app.registry.Bindings()[config.ActionNextLine]; got != "Alt+N" {
			t.Fatalf("registry binding = %q, want Alt+N", got)
		}
		if len(rec.named(eventConfigUpdated)) != 1 {
			t.Fatal("reload should emit config:updated")
		}
	})

	t.Run("load error keeps current config", func(t *testing.T) {
		rec := recordRuntimeEvents(t)
		app := newTestApp(t)
		app.handleConfigFileChange(config.Config{}, errors.New("yaml: bad indentation"))

		if got := app.GetConfig().Shortcuts[config.ActionNextLine]; got != "Control+ArrowRight" {
			t.Fatalf("binding = %q, want unchanged", got)
		}
		failed := rec.named(eventConfigLoadFailed)
		if len(failed) != 1 || !strings.Contains(failed[0].(map[string]string)["message"], "bad indentation") {
			t.Fatalf("config:load-failed events = %v", failed)
		}
	})

	t.Run("ignored during shutdown", func(t *testing.T) {
		rec := recordRuntimeEvents(t)
		app := newTestApp(t)
		app.shuttingDown.Store(true)
		app.handleConfigFileChange(config.Config{}, errors.New("late"))
		if got := rec.names(); len(got) != 0 {
			t.Fatalf("events = %v, want none", got)
		}
	})
}

func TestGetKeyStreamURLWithoutHub(t *testing.T) {
	app := NewApp()
	if got := app.GetKeyStreamURL(); got != "" {
		t.Fatalf("GetKeyStreamURL() = %q, want empty", got)
	}
}

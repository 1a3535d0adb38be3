package config

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"readlet/internal/chord"
)

func TestNewWatcherValidation(t *testing.T) {
	if _, err := NewWatcher(filepath.Join(t.TempDir(), "config.yaml"), 0, nil); err == nil {
		t.Fatal("NewWatcher() without callback should fail")
	}
	if _, err := NewWatcher("", 0, func(Config, error) {}); err == nil {
		t.Fatal("NewWatcher() without path should fail")
	}
	missingDir := filepath.Join(t.TempDir(), "missing", "config.yaml")
	if _, err := NewWatcher(missingDir, 0, func(Config, error) {}); err == nil {
		t.Fatal("NewWatcher() on a missing directory should fail")
	}
}

func TestWatcherReloadsOnWrite(t *testing.T) {
	withPlatform(t, chord.PlatformWindows)
	path := filepath.Join(t.TempDir(), "config.yaml")
	writeConfigFile(t, path, "key_stream_port: 1000\n")

	type result struct {
		cfg Config
		err error
	}
	results := make(chan result, 8)
	w, err := NewWatcher(path, 20*time.Millisecond, func(cfg Config, err error) {
		results <- result{cfg: cfg, err: err}
	})
	if err != nil {
		t.Fatalf("NewWatcher() error = %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	var wg sync.WaitGroup
	wg.Go(func() { w.Run(ctx) })
	t.Cleanup(func() {
		cancel()
		wg.Wait()
	})

	// Unrelated files in the directory are ignored.
	writeConfigFile(t, filepath.Join(filepath.Dir(path), "other.yaml"), "x: 1\n")
	writeConfigFile(t, path, "key_stream_port: 2000\nshortcuts:\n  boss_key_shortcut: Alt+B\n")

	deadline := time.After(5 * time.Second)
	for {
		select {
		case got := <-results:
			if got.err != nil {
				t.Fatalf("reload error = %v", got.err)
			}
			if got.cfg.KeyStreamPort != 2000 {
				continue
			}
			if got.cfg.Shortcuts[ActionBossKey] != "Alt+B" {
				t.Fatalf("boss key = %q, want Alt+B", got.cfg.Shortcuts[ActionBossKey])
			}
			return
		case <-deadline:
			t.Fatal("timed out waiting for config reload")
		}
	}
}

func TestWatcherRunStopsOnCancel(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	w, err := NewWatcher(path, 0, func(Config, error) {})
	if err != nil {
		t.Fatalf("NewWatcher() error = %v", err)
	}
	if w.Path() != filepath.Clean(path) {
		t.Fatalf("Path() = %q, want %q", w.Path(), path)
	}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		w.Run(ctx)
		close(done)
	}()
	cancel()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("Run() did not return after cancel")
	}
}

package config

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/bep/debounce"
	"github.com/fsnotify/fsnotify"
)

// defaultReloadDelay coalesces the burst of events an editor or our own
// atomic rename produces for one logical save.
const defaultReloadDelay = 200 * time.Millisecond

// Watcher reloads the config file when it changes on disk.
// The parent directory is watched so that temp-file + rename saves are seen.
type Watcher struct {
	path     string
	watcher  *fsnotify.Watcher
	debounce func(func())
	onChange func(Config, error)
}

// NewWatcher starts watching path's directory. onChange receives the result
// of Load after each debounced change. delay <= 0 uses the default.
func NewWatcher(path string, delay time.Duration, onChange func(Config, error)) (*Watcher, error) {
	if onChange == nil {
		return nil, errors.New("onChange callback is required")
	}
	if path == "" {
		return nil, errors.New("config path required")
	}
	if delay <= 0 {
		delay = defaultReloadDelay
	}
	absolutePath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("watch config: resolve path: %w", err)
	}
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("watch config: %w", err)
	}
	if err := fw.Add(filepath.Dir(absolutePath)); err != nil {
		_ = fw.Close()
		return nil, fmt.Errorf("watch config: add %s: %w", filepath.Dir(absolutePath), err)
	}
	return &Watcher{
		path:     absolutePath,
		watcher:  fw,
		debounce: debounce.New(delay),
		onChange: onChange,
	}, nil
}

// Path returns the absolute path being watched.
func (w *Watcher) Path() string { return w.path }

// Run delivers change notifications until ctx is cancelled or the watcher
// is closed. It closes the underlying watcher on return.
func (w *Watcher) Run(ctx context.Context) {
	defer func() {
		if err := w.watcher.Close(); err != nil {
			slog.Debug("[DEBUG-CONFIG] watcher close failed", "error", err)
		}
	}()
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if !w.relevant(event) {
				continue
			}
			slog.Debug("[DEBUG-CONFIG] config file event", "path", event.Name, "op", event.Op.String())
			w.debounce(func() {
				if ctx.Err() != nil {
					return
				}
				w.onChange(Load(w.path))
			})
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			slog.Warn("[WARN-CONFIG] config watcher error", "error", err)
		}
	}
}

// Close stops the watcher. Run returns once its channels drain.
func (w *Watcher) Close() error {
	return w.watcher.Close()
}

func (w *Watcher) relevant(event fsnotify.Event) bool {
	if filepath.Clean(event.Name) != w.path {
		return false
	}
	return event.Has(fsnotify.Write) || event.Has(fsnotify.Create) ||
		event.Has(fsnotify.Rename) || event.Has(fsnotify.Remove)
}

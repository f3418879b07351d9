package config

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/wethinkt/go-panes/internal/tuilog"
)

// WatchDebounce collapses bursts of writes from editors into one reload.
var WatchDebounce = 200 * time.Millisecond

// Watch calls fn with the reloaded configuration each time the file at path
// changes. Invalid files are logged and skipped. Watch blocks until ctx is
// cancelled.
func Watch(ctx context.Context, path string, fn func(Config)) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer w.Close()

	// Watch the directory: editors often replace the file rather than write it.
	if err := w.Add(filepath.Dir(path)); err != nil {
		return fmt.Errorf("watch %s: %w", filepath.Dir(path), err)
	}

	reload := make(chan struct{}, 1)
	var timer *time.Timer
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case event, ok := <-w.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != filepath.Clean(path) {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}
			if timer != nil {
				timer.Stop()
			}
			timer = time.AfterFunc(WatchDebounce, func() {
				select {
				case reload <- struct{}{}:
				default:
				}
			})

		case <-reload:
			cfg, err := LoadFile(path)
			if err == nil {
				err = cfg.Validate()
			}
			if err != nil {
				tuilog.Log.Warn("config: ignoring invalid reload", "path", path, "error", err)
				continue
			}
			tuilog.Log.Info("config: reloaded", "path", path)
			fn(cfg)

		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			tuilog.Log.Warn("config: fsnotify error", "error", err)

		case <-ctx.Done():
			return nil
		}
	}
}

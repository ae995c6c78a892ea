package config

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// reloadDelay coalesces the burst of events editors produce on save.
var reloadDelay = 200 * time.Millisecond

// WatchTuning re-reads the tuning file at path whenever it changes and
// passes the result, overlaid on base, to apply. Unreadable or invalid
// files are logged and skipped. It blocks until ctx is done.
func WatchTuning(ctx context.Context, path string, base Tuning, apply func(Tuning), logger *slog.Logger) error {
	if logger == nil {
		logger = slog.Default()
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("watch tuning: %w", err)
	}
	defer w.Close()

	path = filepath.Clean(path)
	// Watch the directory: editors often replace the file by rename.
	if err := w.Add(filepath.Dir(path)); err != nil {
		return fmt.Errorf("watch tuning %s: %w", path, err)
	}
	logger.Info("watching tuning file", "path", path)

	var reload <-chan time.Time
	for {
		select {
		case <-ctx.Done():
			return nil

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != path || ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			reload = time.After(reloadDelay)

		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			logger.Warn("tuning watcher error", "error", err)

		case <-reload:
			reload = nil
			t, err := LoadTuning(path, base)
			if err != nil {
				logger.Warn("tuning reload skipped", "path", path, "error", err)
				continue
			}
			apply(t)
			logger.Info("tuning reloaded", "path", path)
		}
	}
}

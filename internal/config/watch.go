package config

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// reloadDelay coalesces the burst of events a single save produces.
const reloadDelay = 100 * time.Millisecond

// Watch reloads path whenever it changes on disk and calls onChange with the
// previously active and the newly loaded Config. current is the config already
// in use and may be nil.
//
// The parent directory is watched so editors that save by renaming a temp file
// over path are seen. A reload that fails to parse or validate is logged and
// skipped; the previous config stays active. Watch returns nil once ctx is
// cancelled.
func Watch(ctx context.Context, path string, current *Config, onChange func(prev, next *Config)) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return err
	}
	if _, err := os.Stat(abs); err != nil {
		return err
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	if err := watcher.Add(filepath.Dir(abs)); err != nil {
		return fmt.Errorf("watch %s: %w", filepath.Dir(abs), err)
	}

	logger := slog.With("component", "config", "path", abs)
	logger.Info("watching for changes")

	var (
		timer *time.Timer
		fire  <-chan time.Time
	)
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != abs || event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(reloadDelay)
			} else {
				timer.Reset(reloadDelay)
			}
			fire = timer.C

		case <-fire:
			fire = nil
			next, err := Load(abs)
			if err != nil {
				logger.Error("reload failed, keeping previous config", "err", err)
				continue
			}
			logger.Info("reloaded")
			prev := current
			current = next
			onChange(prev, next)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Error("watcher error", "err", err)
		}
	}
}

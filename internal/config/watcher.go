package config

import (
	"context"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	log "github.com/sirupsen/logrus"
)

// Watch reloads the config file whenever it changes and invokes onChange with
// the fresh configuration. The directory is watched too so atomic
// write-rename saves are caught. Watch returns immediately; the watcher stops
// when ctx is cancelled. If fsnotify is unavailable it falls back to polling.
func Watch(ctx context.Context, path string, onChange func(*Config)) {
	if path == "" || onChange == nil {
		return
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		log.WithError(err).Warn("failed to create file watcher, falling back to polling")
		go pollLoop(ctx, path, onChange)
		return
	}

	if err := watcher.Add(path); err != nil {
		log.WithError(err).WithField("path", path).Warn("failed to watch config file, falling back to polling")
		watcher.Close()
		go pollLoop(ctx, path, onChange)
		return
	}
	if err := watcher.Add(filepath.Dir(path)); err != nil {
		log.WithError(err).WithField("dir", filepath.Dir(path)).Warn("failed to watch config directory")
	}
	log.WithField("path", path).Info("config watcher started")

	go func() {
		defer watcher.Close()

		var debounce *time.Timer
		for {
			select {
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if event.Name != path {
					continue
				}
				if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
					continue
				}
				if debounce != nil {
					debounce.Stop()
				}
				debounce = time.AfterFunc(100*time.Millisecond, func() {
					reload(path, onChange)
				})

			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				log.WithError(err).Warn("config watcher error")

			case <-ctx.Done():
				if debounce != nil {
					debounce.Stop()
				}
				return
			}
		}
	}()
}

func pollLoop(ctx context.Context, path string, onChange func(*Config)) {
	ticker := time.NewTicker(5 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			reload(path, onChange)
		case <-ctx.Done():
			return
		}
	}
}

func reload(path string, onChange func(*Config)) {
	cfg := Load(path)
	if err := cfg.Validate(); err != nil {
		log.WithError(err).WithField("path", path).Warn("reloaded config is invalid, keeping previous")
		return
	}
	log.WithField("path", path).Info("config reloaded")
	onChange(cfg)
}

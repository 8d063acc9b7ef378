package config

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
)

// Watch reloads path whenever it changes and invokes onChange with the
// freshly parsed table. It watches the containing directory rather than
// the file itself, since editors and config-management tools commonly
// replace a file via rename-on-save rather than writing it in place —
// an in-place-only watch would miss that create event once the original
// inode is gone. A reload that fails to parse is logged and skipped,
// leaving the caller's existing config untouched rather than clearing it.
func Watch(ctx context.Context, path string, onChange func(*Config)) error {
	if path == "" {
		return nil
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create config watcher: %w", err)
	}
	dir := filepath.Dir(path)
	if err := watcher.Add(dir); err != nil {
		watcher.Close()
		return fmt.Errorf("watch %s: %w", dir, err)
	}

	go func() {
		defer watcher.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if filepath.Clean(event.Name) != filepath.Clean(path) {
					continue
				}
				if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
					continue
				}
				cfg, err := Load(path)
				if err != nil {
					slog.Warn("config.reload_failed", "path", path, "error", err)
					continue
				}
				slog.Info("config.reloaded", "path", path, "servers", len(cfg.Servers()))
				onChange(cfg)
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				slog.Warn("config.watch_error", "error", err)
			}
		}
	}()
	return nil
}

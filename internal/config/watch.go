package config

import (
	"context"
	"log/slog"

	"github.com/fsnotify/fsnotify"
)

// WatchRules reloads the rules file into store every time it is written.
// A reload that fails keeps the previous rules. It runs until ctx is cancelled.
func WatchRules(ctx context.Context, path string, store *RuleStore) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	if err := watcher.Add(path); err != nil {
		return err
	}

	slog.Info("config: watching rules file", "path", path)

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			// Editors often save via rename, so Create counts as a write.
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}

			rules, err := LoadRules(path)
			if err != nil {
				slog.Error("config: rules reload failed, keeping previous rules",
					"path", path, "err", err)
				continue
			}

			store.Replace(rules)
			slog.Info("config: rules reloaded", "path", path, "models", len(rules))

			_ = watcher.Add(path)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			slog.Error("config: watcher error", "err", err)
		}
	}
}

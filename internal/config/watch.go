package config

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog/log"
)

// Watch reloads path into store whenever the file is written or replaced.
// A file that fails to load or validate is logged and the previous snapshot
// stays active. Watch blocks until ctx is done.
//
// The parent directory is watched rather than the file so editors that save
// via rename keep triggering reloads.
func Watch(ctx context.Context, path string, store *Store) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("config watcher: %w", err)
	}
	defer watcher.Close()

	abs, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("config watcher: %w", err)
	}
	if err := watcher.Add(filepath.Dir(abs)); err != nil {
		return fmt.Errorf("config watcher: watch %s: %w", filepath.Dir(abs), err)
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != abs {
				continue
			}
			if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) {
				continue
			}
			reload(abs, store)
		case werr, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			log.Warn().Err(werr).Str("path", abs).Msg("config watcher error")
		}
	}
}

func reload(path string, store *Store) {
	cfg, err := Load(path)
	if err != nil {
		log.Error().Err(err).Str("path", path).Msg("config reload failed, keeping previous configuration")
		return
	}
	store.Swap(cfg)
	log.Info().
		Str("path", path).
		Str("endpoint", cfg.Adapter.EndpointURL()).
		Strs("models", cfg.Adapter.ModelList()).
		Msg("config reloaded")
}

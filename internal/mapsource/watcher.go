package mapsource

import (
	"context"
	"path/filepath"

	"github.com/fsnotify/fsnotify"

	"navd/internal/costmap"
	"navd/internal/logger"
)

// Watch re-rasterizes the scenario whenever its file is written and hands
// the fresh grid (and its frame) to onUpdate. Parse failures are logged and
// skipped; the previous map stays in effect. Blocks until ctx is done.
func Watch(ctx context.Context, path string, onUpdate func(*costmap.Grid, string)) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	// Watch the directory: editors replace files on save, which drops a
	// watch registered on the file itself.
	if err := w.Add(filepath.Dir(path)); err != nil {
		return err
	}
	target, err := filepath.Abs(path)
	if err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			name, err := filepath.Abs(ev.Name)
			if err != nil || name != target {
				continue
			}
			if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) {
				continue
			}
			sc, err := LoadScenario(path)
			if err != nil {
				logger.Log.Printf("[MapSource] Ignoring map update: %v", err)
				continue
			}
			logger.Log.Printf("[MapSource] Map reloaded from %s", path)
			onUpdate(sc.Grid(), sc.Frame)
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			logger.Log.Printf("[MapSource] Watcher error: %v", err)
		}
	}
}

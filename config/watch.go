package config

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
)

// Watcher reloads a configuration file when it changes.
type Watcher struct {
	path string
	w    *fsnotify.Watcher
}

// NewWatcher starts watching the configuration file at path. The directory
// of the file is watched, editors often replace files instead of writing
// them.
func NewWatcher(path string) (*Watcher, error) {
	path, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("dbgraph: config: %w", err)
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("dbgraph: config: creating watcher: %w", err)
	}
	if err := w.Add(filepath.Dir(path)); err != nil {
		_ = w.Close()
		return nil, fmt.Errorf("dbgraph: config: watching %s: %w", path, err)
	}
	return &Watcher{path: path, w: w}, nil
}

// Run calls onChange with the reloaded configuration, or the load error,
// after every change of the file. It returns when ctx is done and closes
// the watcher.
func (w *Watcher) Run(ctx context.Context, onChange func(*Config, error)) error {
	defer w.w.Close()
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-w.w.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != w.path || !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) {
				continue
			}
			onChange(Load(w.path))
		case err, ok := <-w.w.Errors:
			if !ok {
				return nil
			}
			return fmt.Errorf("dbgraph: config: watching %s: %w", w.path, err)
		}
	}
}

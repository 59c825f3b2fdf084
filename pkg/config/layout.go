package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
	"gopkg.in/yaml.v3"

	"github.com/elettorale/seggio/pkg/observability"
	"github.com/elettorale/seggio/pkg/sheets"
)

// LoadLayout reads a YAML layout overlay and merges it over the default
// layout, so a file only needs to name the ranges it moves.
func LoadLayout(path string) (sheets.Layout, error) {
	layout := sheets.DefaultLayout()

	data, err := os.ReadFile(path)
	if err != nil {
		return layout, fmt.Errorf("failed to read layout file: %w", err)
	}

	var overlay sheets.Layout
	if err := yaml.Unmarshal(data, &overlay); err != nil {
		return layout, fmt.Errorf("failed to parse layout file: %w", err)
	}

	for name, origin := range overlay.Origins {
		if origin.Sheet == "" || origin.Row < 1 || origin.Col < 1 {
			return layout, fmt.Errorf("invalid origin for range %s", name)
		}
		layout.Origins[name] = origin
	}
	return layout, nil
}

// LayoutWatcher reloads the layout overlay when the file changes and feeds
// the result to a callback. Editors replace files on save, so the parent
// directory is watched rather than the file itself.
type LayoutWatcher struct {
	path    string
	watcher *fsnotify.Watcher
	logger  *observability.Logger
	apply   func(sheets.Layout)
	done    chan struct{}
}

// WatchLayout starts watching path and calls apply with each successfully
// loaded layout. The initial load happens before returning.
func WatchLayout(path string, logger *observability.Logger, apply func(sheets.Layout)) (*LayoutWatcher, error) {
	layout, err := LoadLayout(path)
	if err != nil {
		return nil, err
	}
	apply(layout)

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create layout watcher: %w", err)
	}
	if err := watcher.Add(filepath.Dir(path)); err != nil {
		watcher.Close()
		return nil, fmt.Errorf("failed to watch layout directory: %w", err)
	}

	w := &LayoutWatcher{
		path:    path,
		watcher: watcher,
		logger:  logger,
		apply:   apply,
		done:    make(chan struct{}),
	}
	go w.run()
	return w, nil
}

func (w *LayoutWatcher) run() {
	defer close(w.done)
	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != filepath.Clean(w.path) {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			layout, err := LoadLayout(w.path)
			if err != nil {
				// keep the last good layout on a bad edit
				w.logger.WithError(err).Warn("layout reload failed, keeping previous layout")
				continue
			}
			w.apply(layout)
			w.logger.WithField("path", w.path).Info("layout reloaded")
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.WithError(err).Warn("layout watcher error")
		}
	}
}

// Close stops watching and waits for the watch loop to exit
func (w *LayoutWatcher) Close() error {
	err := w.watcher.Close()
	<-w.done
	return err
}

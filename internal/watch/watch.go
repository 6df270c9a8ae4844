// Package watch re-runs a job whenever a file changes.
package watch

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/bft-labs/querybatch/pkg/log"
)

// Watcher watches a single file. Changes are debounced: a burst of writes
// triggers one run once the file has been quiet for the debounce delay.
type Watcher struct {
	path     string
	debounce time.Duration
	logger   log.Logger

	mu    sync.Mutex
	timer *time.Timer
}

// New creates a watcher for path.
func New(path string, debounce time.Duration, logger log.Logger) *Watcher {
	if debounce <= 0 {
		debounce = 200 * time.Millisecond
	}
	return &Watcher{
		path:     filepath.Clean(path),
		debounce: debounce,
		logger:   logger,
	}
}

// Run calls fn once immediately and again after every change to the file,
// until ctx is done. Runs never overlap.
func (w *Watcher) Run(ctx context.Context, fn func(context.Context)) error {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer fsw.Close()

	// Watch the directory so editors that replace the file are seen.
	if err := fsw.Add(filepath.Dir(w.path)); err != nil {
		return fmt.Errorf("watch %s: %w", filepath.Dir(w.path), err)
	}

	trigger := make(chan struct{}, 1)
	defer w.stopTimer()

	fn(ctx)

	for {
		select {
		case <-ctx.Done():
			return nil

		case <-trigger:
			w.logger.Info("plan changed, re-running", log.String("path", w.path))
			fn(ctx)

		case event, ok := <-fsw.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != w.path {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			w.schedule(trigger)

		case err, ok := <-fsw.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("watcher error", log.Err(err))
		}
	}
}

func (w *Watcher) schedule(trigger chan<- struct{}) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.debounce, func() {
		select {
		case trigger <- struct{}{}:
		default:
		}
	})
}

func (w *Watcher) stopTimer() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.timer != nil {
		w.timer.Stop()
		w.timer = nil
	}
}

// Package watcher monitors the configuration file and triggers a reload
// when it changes on disk.
package watcher

import (
	"context"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

const debounce = 2 * time.Second

// Watcher monitors one file and invokes a callback after changes settle.
// The parent directory is watched rather than the file itself because
// editors and the config Manager replace the file atomically, which
// would otherwise drop the watch.
type Watcher struct {
	watcher       *fsnotify.Watcher
	filePath      string
	onChange      func()
	debounceTimer *time.Timer
	debounceMutex sync.Mutex
	running       bool
	stopChan      chan struct{}
}

// NewWatcher creates a new file watcher that calls onChange after the
// watched file changes.
func NewWatcher(onChange func()) (*Watcher, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	return &Watcher{
		watcher:  watcher,
		onChange: onChange,
		stopChan: make(chan struct{}),
	}, nil
}

// Start begins watching the given file for changes.
func (w *Watcher) Start(ctx context.Context, filePath string) error {
	w.filePath = filepath.Clean(filePath)
	slog.Info("Starting config watcher", "path", w.filePath)

	if err := w.watcher.Add(filepath.Dir(w.filePath)); err != nil {
		return err
	}

	w.running = true
	go w.watchLoop(ctx)

	return nil
}

// Stop stops the watcher.
func (w *Watcher) Stop() {
	if !w.running {
		return
	}

	slog.Info("Stopping config watcher")
	w.running = false
	close(w.stopChan)

	w.debounceMutex.Lock()
	if w.debounceTimer != nil {
		w.debounceTimer.Stop()
		w.debounceTimer = nil
	}
	w.debounceMutex.Unlock()

	w.watcher.Close()
}

// watchLoop processes file system events
func (w *Watcher) watchLoop(ctx context.Context) {
	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			w.handleEvent(event)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			slog.Error("Config watcher error", "error", err)

		case <-w.stopChan:
			return

		case <-ctx.Done():
			return
		}
	}
}

// handleEvent processes a single file system event
func (w *Watcher) handleEvent(event fsnotify.Event) {
	if filepath.Clean(event.Name) != w.filePath {
		return
	}
	if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
		return
	}

	slog.Debug("Config file changed", "file", event.Name, "op", event.Op.String())

	// Writes arrive in bursts; act once they settle.
	w.debounceMutex.Lock()
	defer w.debounceMutex.Unlock()

	if w.debounceTimer != nil {
		w.debounceTimer.Stop()
	}

	w.debounceTimer = time.AfterFunc(debounce, func() {
		slog.Info("Config file settled, triggering reload", "path", w.filePath)
		w.onChange()
	})
}

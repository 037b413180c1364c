package store

import (
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"bookbot/internal/logging"
)

// watchDebounce coalesces editor write bursts into one reload.
const watchDebounce = 500 * time.Millisecond

// Watcher reloads the catalog file into the store whenever it changes on
// disk. Watches the parent directory rather than the file itself so atomic
// rename-based saves keep working.
type Watcher struct {
	store    *Local
	path     string
	onReload func(count int, err error)

	fw   *fsnotify.Watcher
	mu   sync.Mutex
	t    *time.Timer
	done chan struct{}
}

// NewWatcher creates a catalog watcher. onReload is invoked after every
// reload attempt (nil is allowed).
func NewWatcher(s *Local, catalogPath string, onReload func(count int, err error)) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create file watcher: %w", err)
	}
	if err := fw.Add(filepath.Dir(catalogPath)); err != nil {
		fw.Close()
		return nil, fmt.Errorf("failed to watch catalog directory: %w", err)
	}

	w := &Watcher{
		store:    s,
		path:     catalogPath,
		onReload: onReload,
		fw:       fw,
		done:     make(chan struct{}),
	}
	go w.loop()
	logging.Store("watching catalog %s", catalogPath)
	return w, nil
}

// Close stops watching. Pending debounced reloads are dropped.
func (w *Watcher) Close() error {
	w.mu.Lock()
	if w.t != nil {
		w.t.Stop()
	}
	w.mu.Unlock()

	err := w.fw.Close()
	<-w.done
	return err
}

func (w *Watcher) loop() {
	defer close(w.done)
	for {
		select {
		case event, ok := <-w.fw.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != filepath.Clean(w.path) {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			w.scheduleReload()
		case err, ok := <-w.fw.Errors:
			if !ok {
				return
			}
			logging.Store("watcher error: %v", err)
		}
	}
}

func (w *Watcher) scheduleReload() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.t != nil {
		w.t.Stop()
	}
	w.t = time.AfterFunc(watchDebounce, w.reload)
}

func (w *Watcher) reload() {
	count, err := Seed(w.store, w.path)
	if err != nil {
		logging.Store("catalog reload failed: %v", err)
	} else {
		logging.Store("catalog reloaded: %d books", count)
	}
	if w.onReload != nil {
		w.onReload(count, err)
	}
}

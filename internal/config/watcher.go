package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/dshills/xterminal/internal/logging"
)

// DefaultDebounce is how long the watcher waits for writes to settle.
const DefaultDebounce = 150 * time.Millisecond

// ErrWatcherClosed is returned when Start is called on a closed watcher.
var ErrWatcherClosed = errors.New("watcher is closed")

// ReloadFunc receives freshly loaded settings, or the error that prevented
// loading them.
type ReloadFunc func(s *Settings, err error)

// WatcherOption configures a Watcher.
type WatcherOption func(*Watcher)

// WithDebounce sets the debounce delay.
func WithDebounce(d time.Duration) WatcherOption {
	return func(w *Watcher) {
		if d > 0 {
			w.debounce = d
		}
	}
}

// WithWatcherLogger sets the logger.
func WithWatcherLogger(l *logging.Logger) WatcherOption {
	return func(w *Watcher) {
		if l != nil {
			w.logger = l
		}
	}
}

// Watcher reloads settings when the loader's files change.
//
// It watches the containing directories rather than the files so that
// editors which save by rename are picked up, and files that do not exist
// yet are noticed once created.
type Watcher struct {
	loader   *Loader
	onReload ReloadFunc
	debounce time.Duration
	logger   *logging.Logger

	mu      sync.Mutex
	fsw     *fsnotify.Watcher
	names   map[string]bool
	deb     *debouncer
	closed  bool
	stopped chan struct{}
}

// NewWatcher creates a watcher for the loader's files.
func NewWatcher(loader *Loader, onReload ReloadFunc, opts ...WatcherOption) *Watcher {
	w := &Watcher{
		loader:   loader,
		onReload: onReload,
		debounce: DefaultDebounce,
		logger:   logging.Null,
		names:    make(map[string]bool),
	}
	for _, opt := range opts {
		opt(w)
	}
	w.logger = w.logger.WithComponent("config")
	w.deb = newDebouncer(w.debounce, w.reload)
	return w
}

// Start begins watching.
func (w *Watcher) Start() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return ErrWatcherClosed
	}
	if w.fsw != nil {
		return nil
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	dirs := make(map[string]bool)
	for _, f := range w.loader.Files() {
		abs, err := filepath.Abs(f)
		if err != nil {
			continue
		}
		w.names[abs] = true
		dirs[filepath.Dir(abs)] = true
	}
	for dir := range dirs {
		if err := fsw.Add(dir); err != nil {
			// the settings directory may not exist yet
			w.logger.Debug("not watching %s: %v", dir, err)
		}
	}

	w.fsw = fsw
	w.stopped = make(chan struct{})
	go w.loop(fsw, w.stopped)
	return nil
}

// Close stops watching. It is safe to call more than once.
func (w *Watcher) Close() error {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return nil
	}
	w.closed = true
	fsw, stopped := w.fsw, w.stopped
	w.mu.Unlock()

	w.deb.Cancel()
	if fsw == nil {
		return nil
	}
	err := fsw.Close()
	<-stopped
	return err
}

func (w *Watcher) loop(fsw *fsnotify.Watcher, stopped chan struct{}) {
	defer close(stopped)
	for {
		select {
		case ev, ok := <-fsw.Events:
			if !ok {
				return
			}
			if w.relevant(ev) {
				w.deb.Call()
			}
		case err, ok := <-fsw.Errors:
			if !ok {
				return
			}
			w.logger.Warn("watch error: %v", err)
		}
	}
}

func (w *Watcher) relevant(ev fsnotify.Event) bool {
	if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Rename) && !ev.Has(fsnotify.Remove) {
		return false
	}
	abs, err := filepath.Abs(ev.Name)
	if err != nil {
		return false
	}
	return w.names[abs]
}

func (w *Watcher) reload() {
	s, err := w.loader.Load()
	if err != nil {
		w.logger.Warn("reload failed: %v", err)
	} else {
		w.logger.Info("settings reloaded")
	}
	w.safeCall(s, err)
}

func (w *Watcher) safeCall(s *Settings, err error) {
	defer func() {
		if r := recover(); r != nil {
			w.logger.Error("reload handler panicked: %v", r)
		}
	}()
	if w.onReload != nil {
		w.onReload(s, err)
	}
}

package confloader

import (
	"log/slog"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"

	"github.com/calderhale/keepsake-go/internal/core/domain"
)

// Watcher reports writes to specific files. It watches the containing
// directory rather than the file itself so editor-style replace-by-rename
// keeps the watch alive, and filters events down to the registered files.
type Watcher struct {
	watcher *fsnotify.Watcher
	logger  *slog.Logger

	mu        sync.RWMutex
	files     map[string]struct{}
	callbacks []func(string)

	closeOnce sync.Once
	done      chan struct{}
}

// WatcherOption configures a Watcher.
type WatcherOption func(*Watcher)

// WithWatcherLogger sets the watcher's logger. Defaults to slog.Default().
func WithWatcherLogger(logger *slog.Logger) WatcherOption {
	return func(w *Watcher) {
		w.logger = logger
	}
}

// NewWatcher returns a Watcher with no files registered.
func NewWatcher(opts ...WatcherOption) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, domain.ErrIO.WithDetails("file watcher unavailable").WithCause(err)
	}

	w := &Watcher{
		watcher: fw,
		logger:  slog.Default(),
		files:   make(map[string]struct{}),
		done:    make(chan struct{}),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w, nil
}

// Watch registers a file. Events for other files in the same directory
// are ignored.
func (w *Watcher) Watch(path string) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return domain.ErrIO.WithDetailsf("resolve %s", path).WithCause(err)
	}

	if err := w.watcher.Add(filepath.Dir(abs)); err != nil {
		return domain.ErrIO.WithDetailsf("watch %s", filepath.Dir(abs)).WithCause(err)
	}

	w.mu.Lock()
	w.files[abs] = struct{}{}
	w.mu.Unlock()

	w.logger.Debug("watching file", "path", abs)
	return nil
}

// OnChange registers a callback invoked with the path of a registered
// file whenever it is written or recreated.
func (w *Watcher) OnChange(callback func(string)) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.callbacks = append(w.callbacks, callback)
}

// Start consumes events until Stop is called. It blocks; use StartAsync
// to run it in the background.
func (w *Watcher) Start() {
	for {
		select {
		case ev, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) {
				continue
			}
			abs, err := filepath.Abs(ev.Name)
			if err != nil || !w.watched(abs) {
				continue
			}
			w.logger.Debug("watched file changed", "path", abs, "op", ev.Op.String())
			w.notify(abs)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Error("file watcher error", "error", err)

		case <-w.done:
			return
		}
	}
}

// StartAsync runs Start in a goroutine.
func (w *Watcher) StartAsync() {
	go w.Start()
}

// Stop halts event delivery and releases the underlying watcher. Safe to
// call more than once.
func (w *Watcher) Stop() error {
	var err error
	w.closeOnce.Do(func() {
		close(w.done)
		err = w.watcher.Close()
	})
	return err
}

func (w *Watcher) watched(abs string) bool {
	w.mu.RLock()
	defer w.mu.RUnlock()
	_, ok := w.files[abs]
	return ok
}

func (w *Watcher) notify(path string) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	for _, cb := range w.callbacks {
		cb(path)
	}
}

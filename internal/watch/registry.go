package watch

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/fsnotify/fsnotify"
)

// handleState is the lifecycle of the shared OS watcher.
type handleState int

const (
	stateUninitialized handleState = iota
	stateActive
	stateClosed
)

// Registry manages the single OS watcher shared by every watched path. The
// watcher is created on the first Watch call and lives until Close. One
// mutex serializes creation, add, and remove; it is never held while events
// are delivered.
type Registry struct {
	mu      sync.Mutex
	state   handleState
	watcher FsWatcher

	newWatcher WatcherFactory
	normalizer *Normalizer
	logger     *slog.Logger

	// pumpDone is closed when the delivery goroutine exits.
	pumpDone chan struct{}
}

// NewRegistry creates a Registry in the uninitialized state. No OS resources
// are allocated until the first Watch.
func NewRegistry(normalizer *Normalizer, newWatcher WatcherFactory, logger *slog.Logger) *Registry {
	return &Registry{
		newWatcher: newWatcher,
		normalizer: normalizer,
		logger:     logger,
	}
}

// Watch starts observing path non-recursively. Repeated calls for the same
// path are harmless. On ErrWatcherInit the registry stays uninitialized and
// the next call retries; on ErrWatchAdd the shared watcher stays usable.
func (r *Registry) Watch(path string) error {
	if path == "" {
		return fmt.Errorf("%w: empty path", ErrWatchAdd)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	switch r.state {
	case stateClosed:
		return ErrClosed
	case stateUninitialized:
		if err := r.initLocked(); err != nil {
			return err
		}
	case stateActive:
	}

	if err := r.watcher.Add(path); err != nil {
		return fmt.Errorf("%w %q: %w", ErrWatchAdd, path, err)
	}

	r.logger.Debug("watching file", slog.String("path", path))

	return nil
}

// Unwatch stops observing path. It succeeds without effect when the watcher
// was never created or the path is not being watched.
func (r *Registry) Unwatch(path string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.state != stateActive {
		return nil
	}

	if err := r.watcher.Remove(path); err != nil {
		if errors.Is(err, fsnotify.ErrNonExistentWatch) {
			return nil
		}

		return fmt.Errorf("%w %q: %w", ErrWatchRemove, path, err)
	}

	r.logger.Debug("stopped watching file", slog.String("path", path))

	return nil
}

// Active reports whether the shared OS watcher exists.
func (r *Registry) Active() bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.state == stateActive
}

// Close releases the OS watcher and waits for in-flight deliveries to finish.
// Later Watch calls fail with ErrClosed. Close is idempotent.
func (r *Registry) Close() error {
	r.mu.Lock()
	prev := r.state
	w := r.watcher
	done := r.pumpDone
	r.state = stateClosed
	r.watcher = nil
	r.mu.Unlock()

	if prev != stateActive {
		return nil
	}

	err := w.Close()
	<-done

	if err != nil {
		return fmt.Errorf("closing file watcher: %w", err)
	}

	return nil
}

// initLocked creates the OS watcher and starts its delivery goroutine.
// Caller must hold r.mu.
func (r *Registry) initLocked() error {
	w, err := r.newWatcher()
	if err != nil {
		return fmt.Errorf("%w: %w", ErrWatcherInit, err)
	}

	r.watcher = w
	r.state = stateActive
	r.pumpDone = make(chan struct{})

	go r.pump(w, r.pumpDone)

	r.logger.Debug("file watcher started")

	return nil
}

// pump forwards watcher events and errors to the normalizer until both
// channels are closed. It runs on the watcher's own goroutine, never under
// r.mu, so UI commands are not blocked by delivery.
func (r *Registry) pump(w FsWatcher, done chan<- struct{}) {
	defer close(done)

	events := w.Events()
	errs := w.Errors()

	for events != nil || errs != nil {
		select {
		case ev, ok := <-events:
			if !ok {
				events = nil

				continue
			}

			r.normalizer.Deliver(FromFsnotify(ev))

		case err, ok := <-errs:
			if !ok {
				errs = nil

				continue
			}

			r.normalizer.ReportError(err)
		}
	}
}

package watch

import "errors"

// Sentinel errors returned by Registry operations. Callers match them with
// errors.Is; the wrapped message carries the path and the OS cause.
var (
	// ErrWatcherInit means the OS watcher could not be created. The registry
	// stays uninitialized, so a later Watch retries creation.
	ErrWatcherInit = errors.New("watch: cannot create file watcher")

	// ErrWatchAdd means one path could not be registered. Other paths are
	// unaffected.
	ErrWatchAdd = errors.New("watch: cannot watch path")

	// ErrWatchRemove means the OS refused to drop a registration for a reason
	// other than the path not being watched.
	ErrWatchRemove = errors.New("watch: cannot unwatch path")

	// ErrClosed is returned by Watch after Close.
	ErrClosed = errors.New("watch: registry closed")
)

package watch

import "github.com/fsnotify/fsnotify"

// FsWatcher abstracts the OS file watcher so tests can drive the registry
// without touching the filesystem. The fsnotify-backed implementation is
// returned by NewFsnotifyWatcher.
type FsWatcher interface {
	Add(name string) error
	Remove(name string) error
	Close() error
	Events() <-chan fsnotify.Event
	Errors() <-chan error
}

// WatcherFactory creates the OS watcher. The registry calls it at most once
// per successful initialization.
type WatcherFactory func() (FsWatcher, error)

// fsnotifyWatcher wraps *fsnotify.Watcher, whose channels are struct fields,
// to satisfy FsWatcher.
type fsnotifyWatcher struct {
	w *fsnotify.Watcher
}

// NewFsnotifyWatcher is the production WatcherFactory.
func NewFsnotifyWatcher() (FsWatcher, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	return &fsnotifyWatcher{w: w}, nil
}

func (f *fsnotifyWatcher) Add(name string) error         { return f.w.Add(name) }
func (f *fsnotifyWatcher) Remove(name string) error      { return f.w.Remove(name) }
func (f *fsnotifyWatcher) Close() error                  { return f.w.Close() }
func (f *fsnotifyWatcher) Events() <-chan fsnotify.Event { return f.w.Events }
func (f *fsnotifyWatcher) Errors() <-chan error          { return f.w.Errors }

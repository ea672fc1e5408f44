package watch

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"testing"

	"github.com/fsnotify/fsnotify"
)

// testLogger returns a debug-level logger on stderr. It stays valid after
// the test returns, which matters for the registry's delivery goroutine.
func testLogger(t *testing.T) *slog.Logger {
	t.Helper()

	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

// emitted is one call recorded by recordingSink.
type emitted struct {
	event, payload string
}

// recordingSink records every Emit. Payloads listed in fail are rejected.
type recordingSink struct {
	mu   sync.Mutex
	got  []emitted
	fail map[string]bool
}

func (s *recordingSink) Emit(event, payload string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.fail[payload] {
		return fmt.Errorf("ui unavailable for %s", payload)
	}

	s.got = append(s.got, emitted{event: event, payload: payload})

	return nil
}

func (s *recordingSink) payloads() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]string, 0, len(s.got))
	for _, e := range s.got {
		out = append(out, e.payload)
	}

	return out
}

// fakeWatcher is an in-memory FsWatcher. addErr and removeErr map a path to
// the error Add/Remove should return for it.
type fakeWatcher struct {
	mu        sync.Mutex
	added     []string
	removed   []string
	addErr    map[string]error
	removeErr map[string]error
	events    chan fsnotify.Event
	errs      chan error
	closeOnce sync.Once
}

func newFakeWatcher() *fakeWatcher {
	return &fakeWatcher{
		addErr:    make(map[string]error),
		removeErr: make(map[string]error),
		events:    make(chan fsnotify.Event, 10),
		errs:      make(chan error, 10),
	}
}

func (f *fakeWatcher) Add(name string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := f.addErr[name]; err != nil {
		return err
	}

	f.added = append(f.added, name)

	return nil
}

func (f *fakeWatcher) Remove(name string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := f.removeErr[name]; err != nil {
		return err
	}

	f.removed = append(f.removed, name)

	return nil
}

func (f *fakeWatcher) Close() error {
	f.closeOnce.Do(func() {
		close(f.events)
		close(f.errs)
	})

	return nil
}

func (f *fakeWatcher) Events() <-chan fsnotify.Event { return f.events }
func (f *fakeWatcher) Errors() <-chan error          { return f.errs }

// countingFactory hands out one fakeWatcher and counts creations. While
// failures > 0 each call fails and decrements it.
type countingFactory struct {
	mu       sync.Mutex
	calls    int
	failures int
	watcher  *fakeWatcher
}

func (c *countingFactory) create() (FsWatcher, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.calls++

	if c.failures > 0 {
		c.failures--

		return nil, errors.New("too many open files")
	}

	return c.watcher, nil
}

func (c *countingFactory) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.calls
}

// Package app holds the editor backend's shared state and exposes it to the
// UI bridge. One App exists per process; every UI command runs against it.
package app

import (
	"context"
	"log/slog"
)

// Watcher is the file-watch surface the UI commands use.
type Watcher interface {
	Watch(path string) error
	Unwatch(path string) error
}

// StartupFile hands out the launch path once.
type StartupFile interface {
	Take() (string, bool)
}

// RecentStore persists recently opened files.
type RecentStore interface {
	Paths(ctx context.Context) ([]string, error)
	Record(ctx context.Context, path string) error
	Clear(ctx context.Context) error
}

// App is the application state handle. Recent may be nil when the recent
// files list is disabled.
type App struct {
	watcher Watcher
	startup StartupFile
	recent  RecentStore
	exit    func()
	logger  *slog.Logger
}

// Option customizes an App.
type Option func(*App)

// WithRecent enables the recent-files commands.
func WithRecent(store RecentStore) Option {
	return func(a *App) { a.recent = store }
}

// WithExit sets the function run by the exit_app command.
func WithExit(exit func()) Option {
	return func(a *App) { a.exit = exit }
}

// New creates an App.
func New(watcher Watcher, startup StartupFile, logger *slog.Logger, opts ...Option) *App {
	a := &App{
		watcher: watcher,
		startup: startup,
		exit:    func() {},
		logger:  logger,
	}

	for _, opt := range opts {
		opt(a)
	}

	return a
}

// StartupFile returns the launch path the first time it is asked for.
func (a *App) StartupFile() (string, bool) {
	path, ok := a.startup.Take()
	if ok {
		a.logger.Debug("startup file taken", slog.String("path", path))
	}

	return path, ok
}

// WatchFile starts watching path for external changes.
func (a *App) WatchFile(path string) error {
	return a.watcher.Watch(path)
}

// UnwatchFile stops watching path.
func (a *App) UnwatchFile(path string) error {
	return a.watcher.Unwatch(path)
}

// RecentFiles lists recently opened files, most recent first. Empty when
// the list is disabled.
func (a *App) RecentFiles(ctx context.Context) ([]string, error) {
	if a.recent == nil {
		return []string{}, nil
	}

	return a.recent.Paths(ctx)
}

// RecordRecentFile moves path to the front of the recent list.
func (a *App) RecordRecentFile(ctx context.Context, path string) error {
	if a.recent == nil {
		return nil
	}

	return a.recent.Record(ctx, path)
}

// ClearRecentFiles empties the recent list.
func (a *App) ClearRecentFiles(ctx context.Context) error {
	if a.recent == nil {
		return nil
	}

	return a.recent.Clear(ctx)
}

// Exit asks the process to shut down.
func (a *App) Exit() {
	a.logger.Info("exit requested by ui")
	a.exit()
}

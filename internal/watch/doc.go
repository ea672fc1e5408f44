// Package watch keeps the editor informed about on-disk changes to the
// documents it has open. A Registry owns one lazily created OS watcher
// shared by every watched path; a Normalizer turns the watcher's raw events
// into "file-changed" notifications for the UI.
//
// Watching is non-recursive and carries no per-path bookkeeping: the OS
// watcher is the only record of what is watched.
package watch

package watch

import (
	"errors"
	"log/slog"

	"github.com/fsnotify/fsnotify"
)

// EventFileChanged is the UI event name for a change notification. The
// payload is the affected path.
const EventFileChanged = "file-changed"

// Sink publishes a named event with a string payload to the UI layer.
// Implementations must be safe for concurrent use.
type Sink interface {
	Emit(event, payload string) error
}

// Normalizer filters raw watcher events and publishes one notification per
// affected path. It holds no mutable state and is safe for concurrent use.
type Normalizer struct {
	sink   Sink
	logger *slog.Logger
}

// NewNormalizer creates a Normalizer that publishes to sink.
func NewNormalizer(sink Sink, logger *slog.Logger) *Normalizer {
	return &Normalizer{sink: sink, logger: logger}
}

// Normalize returns the notifications for ev: none for access events, one
// per path in order for every other kind. Duplicates are preserved.
func (n *Normalizer) Normalize(ev RawEvent) []ChangeNotification {
	if ev.Kind == KindAccess || len(ev.Paths) == 0 {
		return nil
	}

	out := make([]ChangeNotification, 0, len(ev.Paths))
	for _, p := range ev.Paths {
		out = append(out, ChangeNotification{Path: p})
	}

	return out
}

// Deliver normalizes ev and emits each notification to the sink. A failed
// emit is logged and dropped; later notifications are still attempted.
// Returns the number of notifications the sink accepted.
func (n *Normalizer) Deliver(ev RawEvent) int {
	delivered := 0

	for _, note := range n.Normalize(ev) {
		if err := n.sink.Emit(EventFileChanged, note.Path); err != nil {
			n.logger.Warn("dropping file change notification",
				slog.String("path", note.Path),
				slog.String("kind", ev.Kind.String()),
				slog.String("error", err.Error()),
			)

			continue
		}

		delivered++
	}

	return delivered
}

// ReportError logs an error surfaced by the OS watcher. Nothing is sent to
// the UI.
func (n *Normalizer) ReportError(err error) {
	if errors.Is(err, fsnotify.ErrEventOverflow) {
		n.logger.Warn("file watcher queue overflowed, some changes were lost",
			slog.String("error", err.Error()),
		)

		return
	}

	n.logger.Warn("file watcher error", slog.String("error", err.Error()))
}

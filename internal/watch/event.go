package watch

import "github.com/fsnotify/fsnotify"

// Kind classifies a raw watcher event.
type Kind int

// Event kinds. KindAccess covers open/read/close notifications, which never
// reach the UI.
const (
	KindAccess Kind = iota
	KindCreate
	KindModify
	KindRemove
	KindRename
	KindMetadata
)

var kindNames = [...]string{
	KindAccess:   "access",
	KindCreate:   "create",
	KindModify:   "modify",
	KindRemove:   "remove",
	KindRename:   "rename",
	KindMetadata: "metadata",
}

func (k Kind) String() string {
	if k < 0 || int(k) >= len(kindNames) {
		return "unknown"
	}

	return kindNames[k]
}

// RawEvent is one notification from the OS watcher. A single event may name
// several paths (a rename reports both ends on some platforms).
type RawEvent struct {
	Kind  Kind
	Paths []string
}

// ChangeNotification is the UI-facing form of a change: the path, exactly as
// the OS reported it.
type ChangeNotification struct {
	Path string
}

// FromFsnotify maps an fsnotify event to a RawEvent. When several op bits are
// set the most content-relevant one wins; an op with none of the portable
// bits is an access notification.
func FromFsnotify(ev fsnotify.Event) RawEvent {
	kind := KindAccess

	switch {
	case ev.Has(fsnotify.Create):
		kind = KindCreate
	case ev.Has(fsnotify.Write):
		kind = KindModify
	case ev.Has(fsnotify.Remove):
		kind = KindRemove
	case ev.Has(fsnotify.Rename):
		kind = KindRename
	case ev.Has(fsnotify.Chmod):
		kind = KindMetadata
	}

	return RawEvent{Kind: kind, Paths: []string{ev.Name}}
}

package launch

import "sync"

// mailboxState is the two-state value held by a Mailbox.
type mailboxState int

const (
	mailboxEmpty mailboxState = iota
	mailboxPending
)

// Mailbox holds the path the application was launched with until the UI
// retrieves it. The value is handed out exactly once.
type Mailbox struct {
	mu    sync.Mutex
	state mailboxState
	path  string
}

// NewMailbox returns an empty Mailbox.
func NewMailbox() *Mailbox {
	return &Mailbox{}
}

// SetOnce stores path as pending. It is called at most once, during startup
// before any UI command can run; a second call overwrites.
func (m *Mailbox) SetOnce(path string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.state = mailboxPending
	m.path = path
}

// Take returns the pending path and empties the mailbox. Every later call,
// including concurrent ones that lose the race, returns ("", false).
func (m *Mailbox) Take() (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.state != mailboxPending {
		return "", false
	}

	path := m.path
	m.state = mailboxEmpty
	m.path = ""

	return path, true
}

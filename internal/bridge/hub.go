package bridge

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
)

// ErrUndelivered means no connected UI client accepted an event.
var ErrUndelivered = errors.New("bridge: event not delivered")

// client is one connected UI. send is closed by Hub.unregister.
type client struct {
	id   string
	send chan []byte
}

// Hub fans events out to every connected UI client. Delivery never blocks:
// a client whose send buffer is full misses the event.
type Hub struct {
	mu         sync.Mutex
	clients    map[string]*client
	bufferSize int
	dropped    atomic.Int64
	logger     *slog.Logger
}

// NewHub creates a Hub whose clients each queue up to bufferSize frames.
func NewHub(bufferSize int, logger *slog.Logger) *Hub {
	if bufferSize < 1 {
		bufferSize = 1
	}

	return &Hub{
		clients:    make(map[string]*client),
		bufferSize: bufferSize,
		logger:     logger,
	}
}

// Emit publishes a named event to every connected client. It returns an
// error wrapping ErrUndelivered when no client took the event.
func (h *Hub) Emit(event, payload string) error {
	frame, err := json.Marshal(eventFrame{Type: frameEvent, Event: event, Payload: payload})
	if err != nil {
		return fmt.Errorf("encoding %s event: %w", event, err)
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	if len(h.clients) == 0 {
		return fmt.Errorf("%w: %s: no UI connected", ErrUndelivered, event)
	}

	accepted := 0

	for _, c := range h.clients {
		select {
		case c.send <- frame:
			accepted++
		default:
			h.dropped.Add(1)
			h.logger.Warn("ui client backed up, dropping event",
				slog.String("client", c.id),
				slog.String("event", event),
			)
		}
	}

	if accepted == 0 {
		return fmt.Errorf("%w: %s: every UI client is backed up", ErrUndelivered, event)
	}

	return nil
}

// Focus asks the UI to bring the main window forward.
func (h *Hub) Focus() error {
	return h.Emit(EventFocusWindow, "")
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()

	return len(h.clients)
}

// Dropped returns how many per-client event deliveries were skipped because
// the client's buffer was full.
func (h *Hub) Dropped() int64 {
	return h.dropped.Load()
}

func (h *Hub) register() *client {
	c := &client{
		id:   uuid.NewString(),
		send: make(chan []byte, h.bufferSize),
	}

	h.mu.Lock()
	h.clients[c.id] = c
	h.mu.Unlock()

	h.logger.Debug("ui client connected", slog.String("client", c.id))

	return c
}

// unregister removes c and closes its send channel. Emit sends only under
// h.mu, so no send can race the close.
func (h *Hub) unregister(c *client) {
	h.mu.Lock()
	delete(h.clients, c.id)
	close(c.send)
	h.mu.Unlock()

	h.logger.Debug("ui client disconnected", slog.String("client", c.id))
}

package realtime

import (
	"log/slog"
	"sync"
)

// Sender is one live client connection as seen by the hub and gateway.
// *Conn is the production implementation; tests substitute their own.
type Sender interface {
	ID() string
	Send(data []byte) error
}

// Hub holds every connected client and provides the fan-out primitives.
// It knows nothing about users; user bookkeeping lives in the presence
// registry.
type Hub struct {
	log *slog.Logger

	mu    sync.RWMutex
	conns map[string]Sender
}

func NewHub(log *slog.Logger) *Hub {
	return &Hub{
		log:   log,
		conns: make(map[string]Sender),
	}
}

func (h *Hub) Register(s Sender) {
	h.mu.Lock()
	h.conns[s.ID()] = s
	count := len(h.conns)
	h.mu.Unlock()

	h.log.Debug("client_connected", "conn_id", s.ID(), "clients", count)
}

func (h *Hub) Unregister(connID string) {
	h.mu.Lock()
	delete(h.conns, connID)
	count := len(h.conns)
	h.mu.Unlock()

	h.log.Debug("client_disconnected", "conn_id", connID, "clients", count)
}

// Broadcast delivers an event to every connected client. Delivery is
// at-most-once: a full or dead client drops the frame rather than blocking
// the rest of the fan-out.
func (h *Hub) Broadcast(event string, data any) {
	h.send(event, data, "")
}

// BroadcastExcept delivers to everyone but the named connection.
func (h *Hub) BroadcastExcept(exceptID, event string, data any) {
	h.send(event, data, exceptID)
}

func (h *Hub) send(event string, data any, exceptID string) {
	frame, err := encode(event, data)
	if err != nil {
		h.log.Error("event_encode_failed", "event", event, "error", err)
		return
	}

	h.mu.RLock()
	targets := make([]Sender, 0, len(h.conns))
	for id, c := range h.conns {
		if id == exceptID {
			continue
		}
		targets = append(targets, c)
	}
	h.mu.RUnlock()

	for _, c := range targets {
		if err := c.Send(frame); err != nil {
			h.log.Warn("event_send_failed", "event", event, "conn_id", c.ID(), "error", err)
		}
	}
}

// Send unicasts an event to a single connection, used for error acks.
func (h *Hub) Send(connID, event string, data any) {
	frame, err := encode(event, data)
	if err != nil {
		h.log.Error("event_encode_failed", "event", event, "error", err)
		return
	}

	h.mu.RLock()
	c, ok := h.conns[connID]
	h.mu.RUnlock()
	if !ok {
		return
	}

	if err := c.Send(frame); err != nil {
		h.log.Warn("event_send_failed", "event", event, "conn_id", connID, "error", err)
	}
}

// Count returns the number of connected clients, for the health endpoint.
func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.conns)
}

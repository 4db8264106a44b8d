package websocket

import (
	"encoding/json"
	"log/slog"
	"sync"
)

const (
	TypeFieldUpdated     = "field_updated"
	TypeHouseholdUpdated = "household_updated"
	TypeSessionEnded     = "session_ended"
)

// Message is a notification pushed to the clients of one session.
type Message struct {
	Type     string `json:"type"`
	Revision uint64 `json:"revision,omitempty"`
	Data     any    `json:"data,omitempty"`
}

func NewMessage(typ string, revision uint64, data any) Message {
	return Message{Type: typ, Revision: revision, Data: data}
}

// Hub tracks the WebSocket clients of every session. Broadcasts reach only
// the clients of the named session.
type Hub struct {
	mu       sync.RWMutex
	sessions map[string]map[*Client]struct{}
	logger   *slog.Logger
}

func NewHub(logger *slog.Logger) *Hub {
	return &Hub{
		sessions: make(map[string]map[*Client]struct{}),
		logger:   logger,
	}
}

// Register adds a client to its session.
func (h *Hub) Register(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	clients, ok := h.sessions[c.sessionID]
	if !ok {
		clients = make(map[*Client]struct{})
		h.sessions[c.sessionID] = clients
	}
	clients[c] = struct{}{}
}

// Unregister removes a client and closes its send channel.
func (h *Hub) Unregister(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	clients := h.sessions[c.sessionID]
	if _, ok := clients[c]; !ok {
		return
	}
	delete(clients, c)
	close(c.send)
	if len(clients) == 0 {
		delete(h.sessions, c.sessionID)
	}
}

// Broadcast sends msg to every client of sessionID.
func (h *Hub) Broadcast(sessionID string, msg Message) {
	data, err := json.Marshal(msg)
	if err != nil {
		h.logger.Error("marshal broadcast", "error", err, "type", msg.Type)
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	for c := range h.sessions[sessionID] {
		select {
		case c.send <- data:
		default:
			// Client buffer full, drop.
			h.logger.Warn("dropped message", "session", sessionID, "type", msg.Type)
		}
	}
}

// CloseSession tells the clients of sessionID that it ended and
// disconnects them.
func (h *Hub) CloseSession(sessionID string) {
	data, _ := json.Marshal(NewMessage(TypeSessionEnded, 0, nil))

	h.mu.Lock()
	clients := h.sessions[sessionID]
	delete(h.sessions, sessionID)
	h.mu.Unlock()

	for c := range clients {
		select {
		case c.send <- data:
		default:
		}
		close(c.send)
	}
}

// ClientCount returns the number of clients connected to sessionID.
func (h *Hub) ClientCount(sessionID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.sessions[sessionID])
}

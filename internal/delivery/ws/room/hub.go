// Package ws_room is the realtime side of the service: it tracks live
// WebSocket connections, their room bindings, and fans room events out to
// members.
package ws_room

import (
	"encoding/json"
	"log/slog"
	"sync"

	"github.com/codepair/core/internal/model"
)

const (
	EventJoinRoom       = "join-room"
	EventCodeChange     = "code-change"
	EventLanguageChange = "language-change"
	EventCursorPosition = "cursor-position"

	EventRoomState      = "room-state"
	EventUserJoined     = "user-joined"
	EventUserLeft       = "user-left"
	EventCodeUpdate     = "code-update"
	EventLanguageUpdate = "language-update"
	EventCursorUpdate   = "cursor-update"
	EventError          = "error"
)

type Event struct {
	Type    string `json:"type"`
	Payload any    `json:"payload,omitempty"`
}

// Hub keeps the set of live connections and which room each one joined.
// Delivery never blocks on a slow member: events are enqueued to buffered
// per-client channels, and a client with a full buffer is dropped.
type Hub struct {
	mu      sync.RWMutex
	clients map[*Client]bool
	rooms   map[model.RoomID]map[*Client]bool

	logger *slog.Logger
}

type HubOption func(*Hub)

func WithLogger(logger *slog.Logger) HubOption {
	return func(h *Hub) {
		h.logger = logger
	}
}

func NewHub(opts ...HubOption) *Hub {
	h := &Hub{
		clients: make(map[*Client]bool),
		rooms:   make(map[model.RoomID]map[*Client]bool),
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Register adds a freshly upgraded connection. It belongs to no room yet.
func (h *Hub) Register(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.clients[client] = true

	h.logger.Info("client registered", slog.String("conn_id", string(client.ID)))
}

// Bind associates a registered client with a room after a successful join.
func (h *Hub) Bind(client *Client, roomID model.RoomID) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if !h.clients[client] {
		return
	}
	if _, ok := h.rooms[roomID]; !ok {
		h.rooms[roomID] = make(map[*Client]bool)
	}
	h.rooms[roomID][client] = true
	client.roomID = roomID
}

// Unregister drops the client from the hub and closes its send channel.
// That stops the write pump, which closes the connection and so unblocks
// the read pump too. Idempotent.
func (h *Hub) Unregister(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if !h.clients[client] {
		return
	}
	delete(h.clients, client)

	if room, ok := h.rooms[client.roomID]; ok {
		delete(room, client)
		if len(room) == 0 {
			delete(h.rooms, client.roomID)
		}
	}

	close(client.send)

	h.logger.Info("client unregistered", slog.String("conn_id", string(client.ID)))
}

// Send delivers a single event to one client.
func (h *Hub) Send(client *Client, event Event) {
	payload, err := json.Marshal(event)
	if err != nil {
		h.logger.Error("failed to marshal event", slog.String("error", err.Error()))
		return
	}

	h.mu.RLock()
	ok := h.trySendLocked(client, payload)
	h.mu.RUnlock()

	if !ok {
		h.Unregister(client)
	}
}

// BroadcastToRoom delivers the event to every member of the room. A non-nil
// except skips that client (sender echo suppression); language updates pass
// nil so the server-computed document reaches the originator too. Delivery
// order across members is unspecified; per-client order follows enqueue
// order.
func (h *Hub) BroadcastToRoom(roomID model.RoomID, event Event, except *Client) {
	payload, err := json.Marshal(event)
	if err != nil {
		h.logger.Error("failed to marshal event", slog.String("error", err.Error()))
		return
	}

	var failed []*Client

	h.mu.RLock()
	for client := range h.rooms[roomID] {
		if client == except {
			continue
		}
		if !h.trySendLocked(client, payload) {
			failed = append(failed, client)
		}
	}
	h.mu.RUnlock()

	for _, client := range failed {
		h.logger.Warn("dropping client with full send buffer",
			slog.String("conn_id", string(client.ID)),
			slog.String("room_id", string(roomID)))
		h.Unregister(client)
	}
}

// trySendLocked must be called with h.mu held (read or write). The membership
// check under the lock guarantees the send channel is not closed concurrently.
func (h *Hub) trySendLocked(client *Client, payload []byte) bool {
	if !h.clients[client] {
		return false
	}
	select {
	case client.send <- payload:
		return true
	default:
		return false
	}
}

// RoomSize reports how many connections are currently bound to the room.
func (h *Hub) RoomSize(roomID model.RoomID) int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	return len(h.rooms[roomID])
}

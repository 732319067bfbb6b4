package ws_room

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/codepair/core/internal/model"
	usecase_room "github.com/codepair/core/internal/usecase/room"
)

// Gateway dispatches decoded client events against the room usecase and
// triggers fanout. Each connection moves through three states: connected
// (no room), in-room after a join, closed on disconnect. Malformed or
// out-of-state events are dropped without an error reply; the protocol is
// fire-and-forget. The one exception is a second join from a connection
// already in a room, which is rejected with an error event.
type Gateway struct {
	hub     *Hub
	usecase *usecase_room.Usecase
	logger  *slog.Logger
}

type GatewayOption func(*Gateway)

func WithGatewayLogger(logger *slog.Logger) GatewayOption {
	return func(g *Gateway) {
		g.logger = logger
	}
}

func NewGateway(hub *Hub, usecase *usecase_room.Usecase, opts ...GatewayOption) *Gateway {
	g := &Gateway{
		hub:     hub,
		usecase: usecase,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

type inboundEvent struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type joinRoomDTO struct {
	RoomID   string `json:"roomId"`
	UserID   string `json:"userId"`
	Username string `json:"username"`
}

type codeChangeDTO struct {
	RoomID string `json:"roomId"`
	Code   string `json:"code"`
}

type languageChangeDTO struct {
	RoomID   string `json:"roomId"`
	Language string `json:"language"`
}

type cursorPositionDTO struct {
	RoomID   string          `json:"roomId"`
	Position json.RawMessage `json:"position"`
}

type userLeftDTO struct {
	UserID string `json:"userId"`
}

type codeUpdateDTO struct {
	Code string `json:"code"`
}

type languageUpdateDTO struct {
	Language model.Language `json:"language"`
}

type cursorUpdateDTO struct {
	UserID   string          `json:"userId"`
	Position json.RawMessage `json:"position"`
}

type errorDTO struct {
	Message string `json:"message"`
}

// HandleMessage is called by the client's read pump for every inbound frame.
func (g *Gateway) HandleMessage(client *Client, raw []byte) {
	var event inboundEvent
	if err := json.Unmarshal(raw, &event); err != nil {
		g.logger.Debug("dropping undecodable frame",
			slog.String("conn_id", string(client.ID)),
			slog.String("error", err.Error()))
		return
	}

	switch event.Type {
	case EventJoinRoom:
		g.handleJoin(client, event.Payload)
	case EventCodeChange:
		g.handleCodeChange(client, event.Payload)
	case EventLanguageChange:
		g.handleLanguageChange(client, event.Payload)
	case EventCursorPosition:
		g.handleCursorPosition(client, event.Payload)
	default:
		g.logger.Debug("dropping unknown event",
			slog.String("conn_id", string(client.ID)),
			slog.String("type", event.Type))
	}
}

func (g *Gateway) handleJoin(client *Client, payload json.RawMessage) {
	if client.joined {
		g.hub.Send(client, Event{
			Type:    EventError,
			Payload: errorDTO{Message: "already joined a room"},
		})
		return
	}

	var dto joinRoomDTO
	if err := json.Unmarshal(payload, &dto); err != nil || dto.RoomID == "" || dto.UserID == "" {
		return
	}

	roomID := model.RoomID(dto.RoomID)
	user := model.User{UserID: dto.UserID, Username: dto.Username}

	snapshot := g.usecase.Join(context.Background(), roomID, client.ID, user)

	client.joined = true
	g.hub.Bind(client, roomID)

	g.hub.Send(client, Event{Type: EventRoomState, Payload: snapshot})
	g.hub.BroadcastToRoom(roomID, Event{Type: EventUserJoined, Payload: user}, client)
}

func (g *Gateway) handleCodeChange(client *Client, payload json.RawMessage) {
	var dto codeChangeDTO
	if err := json.Unmarshal(payload, &dto); err != nil || dto.RoomID == "" {
		return
	}
	if !client.joined || client.roomID != model.RoomID(dto.RoomID) {
		return
	}

	if !g.usecase.CodeChange(context.Background(), client.roomID, dto.Code) {
		return
	}
	g.hub.BroadcastToRoom(client.roomID, Event{
		Type:    EventCodeUpdate,
		Payload: codeUpdateDTO{Code: dto.Code},
	}, client)
}

func (g *Gateway) handleLanguageChange(client *Client, payload json.RawMessage) {
	var dto languageChangeDTO
	if err := json.Unmarshal(payload, &dto); err != nil || dto.RoomID == "" {
		return
	}
	if !client.joined {
		return
	}

	roomID := model.RoomID(dto.RoomID)
	code, ok := g.usecase.LanguageChange(context.Background(), roomID, model.Language(dto.Language))
	if !ok {
		return
	}

	// The whole room, sender included: the server-computed starter document
	// must reach the originator as well.
	g.hub.BroadcastToRoom(roomID, Event{
		Type:    EventLanguageUpdate,
		Payload: languageUpdateDTO{Language: model.Language(dto.Language)},
	}, nil)
	g.hub.BroadcastToRoom(roomID, Event{
		Type:    EventCodeUpdate,
		Payload: codeUpdateDTO{Code: code},
	}, nil)
}

func (g *Gateway) handleCursorPosition(client *Client, payload json.RawMessage) {
	var dto cursorPositionDTO
	if err := json.Unmarshal(payload, &dto); err != nil || dto.RoomID == "" {
		return
	}
	if !client.joined {
		return
	}

	// Stateless relay; the position blob passes through untouched.
	g.hub.BroadcastToRoom(model.RoomID(dto.RoomID), Event{
		Type: EventCursorUpdate,
		Payload: cursorUpdateDTO{
			UserID:   string(client.ID),
			Position: dto.Position,
		},
	}, client)
}

// Disconnect runs the cleanup path when the connection dies: membership
// removal, a user-left notice when there was a membership to remove, and
// the eviction countdown once the room empties.
func (g *Gateway) Disconnect(client *Client) {
	if !client.joined {
		return
	}

	user, _, ok := g.usecase.Leave(context.Background(), client.roomID, client.ID)
	if !ok {
		return
	}
	g.hub.BroadcastToRoom(client.roomID, Event{
		Type:    EventUserLeft,
		Payload: userLeftDTO{UserID: user.UserID},
	}, client)
}

package ws_room

import (
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/codepair/core/internal/model"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = 54 * time.Second
	maxMessageSize = 1 << 20
	sendBufferSize = 256
)

// Client is one live WebSocket connection. roomID is written once on join,
// under the hub lock, where the hub also reads it during unregistration.
type Client struct {
	ID   model.ConnID
	hub  *Hub
	conn *websocket.Conn
	send chan []byte

	roomID model.RoomID
	joined bool
}

func NewClient(conn *websocket.Conn, hub *Hub) *Client {
	return &Client{
		ID:   model.ConnID(uuid.NewString()),
		hub:  hub,
		conn: conn,
		send: make(chan []byte, sendBufferSize),
	}
}

// StartReading runs the inbound loop: every frame is decoded and handled by
// the gateway on this goroutine, so a connection's events apply in order.
// Returns when the connection dies, after running the disconnect cleanup.
func (c *Client) StartReading(gateway *Gateway) {
	defer func() {
		gateway.Disconnect(c)
		c.hub.Unregister(c)
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			break
		}
		gateway.HandleMessage(c, raw)
	}
}

// StartWriting drains the send channel onto the wire and keeps the
// connection alive with pings. Exits when the channel is closed by
// Hub.Unregister or the peer stops responding.
func (c *Client) StartWriting() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case payload, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

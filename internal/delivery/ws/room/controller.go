package ws_room

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

type Controller struct {
	hub     *Hub
	gateway *Gateway

	logger *slog.Logger
}

type ControllerOption func(*Controller)

func WithControllerLogger(logger *slog.Logger) ControllerOption {
	return func(c *Controller) {
		c.logger = logger
	}
}

func NewController(hub *Hub, gateway *Gateway, opts ...ControllerOption) *Controller {
	c := &Controller{
		hub:     hub,
		gateway: gateway,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Controller) RegisterRoutes(router *gin.RouterGroup) {
	router.GET("/ws", c.serveWS)
}

func (c *Controller) serveWS(ctx *gin.Context) {
	conn, err := upgrader.Upgrade(ctx.Writer, ctx.Request, nil)
	if err != nil {
		c.logger.Error("failed to upgrade to websocket",
			slog.String("error", err.Error()))
		return
	}

	client := NewClient(conn, c.hub)
	c.hub.Register(client)

	go client.StartWriting()
	go client.StartReading(c.gateway)
}

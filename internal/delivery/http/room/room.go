package http_room

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	http_common "github.com/codepair/core/internal/delivery/http/common"
	"github.com/codepair/core/internal/model"
	usecase_room "github.com/codepair/core/internal/usecase/room"
)

type Controller struct {
	usecase *usecase_room.Usecase
	logger  *slog.Logger
}

type ControllerOption func(*Controller)

func WithLogger(logger *slog.Logger) ControllerOption {
	return func(c *Controller) {
		c.logger = logger
	}
}

func New(usecase *usecase_room.Usecase, opts ...ControllerOption) *Controller {
	c := &Controller{
		usecase: usecase,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Controller) RegisterRoutes(router *gin.RouterGroup) {
	rooms := router.Group("/rooms")
	{
		rooms.GET("/:room_id", c.roomInfo)
	}
}

type RoomInfoDTO struct {
	RoomID    string         `json:"roomId"`
	UserCount int            `json:"userCount"`
	Language  model.Language `json:"language"`
}

func (c *Controller) roomInfo(ctx *gin.Context) {
	roomID := ctx.Param("room_id")

	snapshot, err := c.usecase.Snapshot(ctx.Request.Context(), model.RoomID(roomID))
	if err != nil {
		if errors.Is(err, usecase_room.ErrRoomNotFound) {
			ctx.JSON(http.StatusNotFound, http_common.ErrorResponse{
				Error: "Room not found",
			})
			return
		}
		c.logger.Error("failed to read room", slog.String("error", err.Error()))
		ctx.JSON(http.StatusInternalServerError, http_common.ErrorResponse{
			Error: "internal error",
		})
		return
	}

	ctx.JSON(http.StatusOK, RoomInfoDTO{
		RoomID:    roomID,
		UserCount: len(snapshot.Users),
		Language:  snapshot.Language,
	})
}

package http_health

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

type Controller struct{}

func New() *Controller {
	return &Controller{}
}

func (c *Controller) RegisterRoutes(router *gin.RouterGroup) {
	router.GET("/health", c.health)
}

type HealthDTO struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
}

func (c *Controller) health(ctx *gin.Context) {
	ctx.JSON(http.StatusOK, HealthDTO{
		Status:    "ok",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
}

package app

import (
	"github.com/codepair/core/internal/config"
	http_health "github.com/codepair/core/internal/delivery/http/health"
	http_init "github.com/codepair/core/internal/delivery/http/init"
	http_room "github.com/codepair/core/internal/delivery/http/room"
	ws_room "github.com/codepair/core/internal/delivery/ws/room"
	storage_room "github.com/codepair/core/internal/storage/room"
	usecase_room "github.com/codepair/core/internal/usecase/room"
)

func Go(cfg *config.Config) {
	roomStorage := storage_room.New()
	roomUC := usecase_room.New(roomStorage,
		usecase_room.WithEvictionGrace(cfg.Rooms.EvictionGrace))

	hub := ws_room.NewHub()
	gateway := ws_room.NewGateway(hub, roomUC)

	controllerPool := http_init.NewControllerPool()
	controllerPool.Add(http_health.New())
	controllerPool.Add(http_room.New(roomUC))
	controllerPool.Add(ws_room.NewController(hub, gateway))

	controllerPool.Register()
	controllerPool.RunAll(cfg.HTTP.Port)
}

package handler

import (
	"context"

	ws "github.com/InbalMary/mistertoy-mongo-backend/internal/infrastructure/websocket"
	"github.com/InbalMary/mistertoy-mongo-backend/internal/usecase"
)

var (
	toyHandler       *ToyHandler
	webSocketHandler *WebSocketHandler
	healthHandler    *HealthHandler
)

func Setup(ctx context.Context, toyUseCase *usecase.ToyUseCase, hub *ws.Hub, checks map[string]Check) {
	toyHandler = NewToyHandler(toyUseCase)
	webSocketHandler = NewWebSocketHandler(ctx, hub)
	healthHandler = NewHealthHandler(checks)
}

func GetToyHandler() *ToyHandler {
	return toyHandler
}

func GetWebSocketHandler() *WebSocketHandler {
	return webSocketHandler
}

func GetHealthHandler() *HealthHandler {
	return healthHandler
}

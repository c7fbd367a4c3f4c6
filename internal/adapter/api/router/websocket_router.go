package router

import (
	"github.com/labstack/echo/v4"

	"github.com/InbalMary/mistertoy-mongo-backend/internal/adapter/api/handler"
	"github.com/InbalMary/mistertoy-mongo-backend/internal/adapter/api/middleware"
)

// SetupWebSocketRouter serves /ws. Auth is optional; a valid token binds the socket to its user.
func SetupWebSocketRouter(e *echo.Echo, authMiddleware *middleware.AuthMiddleware) {
	wsHandler := handler.GetWebSocketHandler()
	e.GET("/ws", wsHandler.HandleWebSocket, authMiddleware.Optional)
}

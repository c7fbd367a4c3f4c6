package handler

import (
	"context"
	"net/http"

	gorillaws "github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"

	"github.com/InbalMary/mistertoy-mongo-backend/internal/adapter/api/middleware"
	ws "github.com/InbalMary/mistertoy-mongo-backend/internal/infrastructure/websocket"
	"github.com/InbalMary/mistertoy-mongo-backend/pkg/logger"
)

type WebSocketHandler struct {
	ctx      context.Context
	hub      *ws.Hub
	upgrader gorillaws.Upgrader
}

// NewWebSocketHandler serves sockets under ctx. The request context ends when
// the upgrade returns, so the pumps cannot use it.
func NewWebSocketHandler(ctx context.Context, hub *ws.Hub) *WebSocketHandler {
	return &WebSocketHandler{
		ctx: ctx,
		hub: hub,
		upgrader: gorillaws.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
	}
}

// HandleWebSocket upgrades the request. Anonymous sockets are allowed; a
// verified caller is bound to the connection right away.
func (h *WebSocketHandler) HandleWebSocket(c echo.Context) error {
	conn, err := h.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		logger.Error("Failed to upgrade connection: %v", err)
		return nil
	}

	userID := ""
	if identity := middleware.IdentityFrom(c); identity != nil {
		userID = identity.ID
	}
	h.hub.Serve(h.ctx, conn, userID)
	return nil
}

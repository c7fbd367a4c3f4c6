package router

import (
	"github.com/labstack/echo/v4"

	"github.com/InbalMary/mistertoy-mongo-backend/internal/adapter/api/middleware"
	"github.com/InbalMary/mistertoy-mongo-backend/internal/infrastructure/ratelimit"
)

func Setup(e *echo.Echo, authMiddleware *middleware.AuthMiddleware, limiter *ratelimit.Limiter) {
	SetupToyRouter(e, authMiddleware, limiter)
	SetupWebSocketRouter(e, authMiddleware)
	SetupHealthRouter(e)
}

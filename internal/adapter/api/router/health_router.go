package router

import (
	"github.com/labstack/echo/v4"

	"github.com/InbalMary/mistertoy-mongo-backend/internal/adapter/api/handler"
)

func SetupHealthRouter(e *echo.Echo) {
	healthHandler := handler.GetHealthHandler()
	e.GET("/health", healthHandler.CheckHealth)
}

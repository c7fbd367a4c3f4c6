package router

import (
	"github.com/labstack/echo/v4"

	"github.com/InbalMary/mistertoy-mongo-backend/internal/adapter/api/handler"
	"github.com/InbalMary/mistertoy-mongo-backend/internal/adapter/api/middleware"
	"github.com/InbalMary/mistertoy-mongo-backend/internal/infrastructure/ratelimit"
)

func SetupToyRouter(e *echo.Echo, authMiddleware *middleware.AuthMiddleware, limiter *ratelimit.Limiter) {
	toyHandler := handler.GetToyHandler()

	toys := e.Group("/api/toy")
	toys.GET("", toyHandler.ListToys)
	toys.GET("/labels", toyHandler.GetLabels)
	toys.GET("/labels/stats", toyHandler.GetLabelStats)
	toys.GET("/:id", toyHandler.GetToy)

	writes := e.Group("/api/toy")
	writes.Use(authMiddleware.Authenticate)
	writes.Use(middleware.RateLimit(limiter, ratelimit.ActionWrite))
	writes.POST("", toyHandler.CreateToy)
	writes.PUT("/:id", toyHandler.UpdateToy)
	writes.DELETE("/:id", toyHandler.RemoveToy)
	writes.POST("/:id/msg", toyHandler.AddToyMsg)
	writes.DELETE("/:id/msg/:msgId", toyHandler.RemoveToyMsg)
}

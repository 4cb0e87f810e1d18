package api

import (
	"github.com/gin-gonic/gin"

	"github.com/charlesng35/socialink/internal/handlers"
)

func registerHealthRoutes(router gin.IRouter, handler *handlers.HealthHandler) {
	router.GET("/health", handler.Overall)
	router.GET("/health/live", handler.Liveness)
	router.GET("/health/ready", handler.Readiness)
}

package api

import (
	"github.com/gin-gonic/gin"

	"github.com/charlesng35/socialink/internal/handlers"
)

type authRouteDeps struct {
	Handler *handlers.AuthHandler
	Limit   gin.HandlerFunc
}

func registerAuthRoutes(engine *gin.Engine, deps authRouteDeps) {
	engine.POST("/register", deps.Limit, deps.Handler.Register)
	engine.POST("/token", deps.Limit, deps.Handler.Token)
	engine.GET("/confirm/:token", deps.Handler.Confirm)
}

package api

import (
	"github.com/gin-gonic/gin"

	"github.com/charlesng35/socialink/internal/handlers"
)

func registerPostRoutes(engine *gin.Engine, requireAuth gin.HandlerFunc, handler *handlers.PostHandler) {
	posts := engine.Group("/post")
	{
		posts.GET("", handler.List)
		posts.POST("", requireAuth, handler.Create)
		posts.GET("/:id", handler.Get)
		posts.GET("/:id/comments", handler.Comments)
	}

	engine.POST("/comment", requireAuth, handler.CreateComment)
	engine.POST("/like", requireAuth, handler.Like)
}

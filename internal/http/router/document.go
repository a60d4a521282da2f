package router

import (
	"github.com/gin-gonic/gin"

	"prepwise.app/pipeline/internal/http/handler"
)

func DocumentRouter(router *gin.RouterGroup, handler *handler.DocumentHandler) {
	router.POST("/events", handler.Ingest)
	router.GET("/:id", handler.Get)
	router.GET("/:id/runs", handler.ListRuns)
}

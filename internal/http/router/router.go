package router

import (
	"github.com/gin-gonic/gin"

	"prepwise.app/pipeline/internal/http/handler"
	"prepwise.app/pipeline/internal/service"
)

type RouterConfig struct {
	TraceHeader string
}

func SetupRoutes(router *gin.Engine, services *service.Services, cfg RouterConfig) {
	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	v1 := router.Group("/api/v1")
	{
		documentHandler := handler.NewDocumentHandler(services.Documents(), cfg.TraceHeader)
		DocumentRouter(v1.Group("/documents"), documentHandler)
	}
}

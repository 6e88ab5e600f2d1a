package router

import (
	"github.com/gin-gonic/gin"

	"storysmith.app/refinery/internal/http/handler"
	"storysmith.app/refinery/internal/service"
)

func SetupRoutes(router *gin.Engine, services *service.Services) {
	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	v1 := router.Group("/api/v1")
	{
		sessionHandler := handler.NewSessionHandler(services.Refinements())
		pipelineHandler := handler.NewPipelineHandler(services.Refinements())
		generationHandler := handler.NewGenerationHandler(services.Refinements())
		decisionHandler := handler.NewDecisionHandler(services.Refinements())
		SessionRouter(v1.Group("/sessions"), sessionHandler, pipelineHandler, generationHandler, decisionHandler)

		documentHandler := handler.NewDocumentHandler(services.Documents())
		DocumentRouter(v1.Group("/documents"), documentHandler)
	}
}

package router

import (
	"github.com/gin-gonic/gin"

	"storysmith.app/refinery/internal/http/handler"
)

func SessionRouter(rg *gin.RouterGroup, sessions *handler.SessionHandler, pipeline *handler.PipelineHandler, generation *handler.GenerationHandler, decisions *handler.DecisionHandler) {
	rg.POST("", sessions.Create)
	rg.GET("", sessions.List)
	rg.GET("/:id", sessions.Get)
	rg.DELETE("/:id", sessions.Delete)
	rg.PUT("/:id/story", sessions.ReplaceStory)
	rg.PUT("/:id/text", sessions.EditText)
	rg.GET("/:id/export", sessions.Export)

	rg.POST("/:id/pipeline", pipeline.Run)
	rg.POST("/:id/analyze", pipeline.Analyze)

	rg.POST("/:id/rewrites", generation.Rewrites)
	rg.POST("/:id/criteria", generation.Criteria)

	rg.POST("/:id/decisions", decisions.Decide)
	rg.POST("/:id/findings/:findingId/note", decisions.AnnotateFinding)
}

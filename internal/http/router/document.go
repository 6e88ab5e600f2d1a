package router

import (
	"github.com/gin-gonic/gin"

	"storysmith.app/refinery/internal/http/handler"
)

func DocumentRouter(rg *gin.RouterGroup, h *handler.DocumentHandler) {
	rg.POST("", h.Ingest)
}

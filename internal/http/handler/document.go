package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"storysmith.app/refinery/internal/http/dto"
	"storysmith.app/refinery/internal/service"
)

type DocumentHandler struct {
	documents service.DocumentService
}

func NewDocumentHandler(documents service.DocumentService) *DocumentHandler {
	return &DocumentHandler{documents: documents}
}

// Ingest accepts a reference document and enqueues it for embedding. The
// 202 acknowledges the handoff, not the ingestion itself.
func (h *DocumentHandler) Ingest(c *gin.Context) {
	ctx := c.Request.Context()

	var req dto.IngestDocumentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		slog.WarnContext(ctx, "invalid request body", "error", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.documents.Ingest(ctx, req.Name, req.Text); err != nil {
		switch {
		case errors.Is(err, service.ErrIntakeDisabled):
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "document intake is not configured"})
		case errors.Is(err, service.ErrEmptyDocument):
			c.JSON(http.StatusBadRequest, gin.H{"error": "document text is empty"})
		default:
			slog.ErrorContext(ctx, "failed to ingest document", "error", err, "name", req.Name)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to ingest document"})
		}
		return
	}

	c.JSON(http.StatusAccepted, dto.IngestDocumentResponse{
		Name:     req.Name,
		Enqueued: true,
	})
}

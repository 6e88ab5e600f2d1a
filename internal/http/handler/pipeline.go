package handler

import (
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"storysmith.app/refinery/internal/http/dto"
	"storysmith.app/refinery/internal/service"
	"storysmith.app/refinery/internal/store"
)

type PipelineHandler struct {
	refinements service.RefinementService
}

func NewPipelineHandler(refinements service.RefinementService) *PipelineHandler {
	return &PipelineHandler{refinements: refinements}
}

// Run executes the staged pipeline against the session's current text. The
// call blocks until all stages settled; per-stage failures are reported in
// the stage results, not as an HTTP error.
func (h *PipelineHandler) Run(c *gin.Context) {
	ctx := c.Request.Context()

	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	// The body is optional; an absent body runs every stage with defaults.
	var req dto.RunPipelineRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		slog.WarnContext(ctx, "invalid request body", "error", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	stages, err := dto.ParseStages(req.Stages)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	sess, err := h.refinements.RunPipeline(ctx, id, service.RunOptions{
		AdditionalContext: req.AdditionalContext,
		Language:          req.Language,
		Stages:            stages,
	})
	if err != nil {
		switch {
		case errors.Is(err, store.ErrNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "session not found"})
		case errors.Is(err, service.ErrEmptyStory):
			c.JSON(http.StatusBadRequest, gin.H{"error": "story text is empty"})
		default:
			slog.ErrorContext(ctx, "pipeline run failed", "error", err, "session_id", id)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "pipeline run failed"})
		}
		return
	}

	c.JSON(http.StatusOK, dto.ToSessionResponse(sess))
}

// Analyze runs the legacy single-shot review.
func (h *PipelineHandler) Analyze(c *gin.Context) {
	ctx := c.Request.Context()

	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	var req dto.AnalyzeRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		slog.WarnContext(ctx, "invalid request body", "error", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	sess, err := h.refinements.Analyze(ctx, id, service.RunOptions{Language: req.Language})
	if err != nil {
		switch {
		case errors.Is(err, store.ErrNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "session not found"})
		case errors.Is(err, service.ErrEmptyStory):
			c.JSON(http.StatusBadRequest, gin.H{"error": "story text is empty"})
		default:
			slog.ErrorContext(ctx, "analysis failed", "error", err, "session_id", id)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "analysis failed"})
		}
		return
	}

	c.JSON(http.StatusOK, dto.ToSessionResponse(sess))
}

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

type GenerationHandler struct {
	refinements service.RefinementService
}

func NewGenerationHandler(refinements service.RefinementService) *GenerationHandler {
	return &GenerationHandler{refinements: refinements}
}

// Rewrites generates replacement candidates conditioned on the findings the
// reviewer marked relevant.
func (h *GenerationHandler) Rewrites(c *gin.Context) {
	ctx := c.Request.Context()

	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	var req dto.GenerateRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		slog.WarnContext(ctx, "invalid request body", "error", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	candidates, err := h.refinements.GenerateRewrites(ctx, id, service.RunOptions{
		AdditionalContext: req.AdditionalContext,
		Language:          req.Language,
	})
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "session not found"})
			return
		}
		slog.ErrorContext(ctx, "rewrite generation failed", "error", err, "session_id", id)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "rewrite generation failed"})
		return
	}

	resp := dto.RewritesResponse{Candidates: make([]dto.CandidateResponse, 0, len(candidates))}
	for _, cand := range candidates {
		resp.Candidates = append(resp.Candidates, dto.ToCandidateResponse(cand))
	}
	c.JSON(http.StatusOK, resp)
}

// Criteria generates acceptance criteria outside a full pipeline run.
func (h *GenerationHandler) Criteria(c *gin.Context) {
	ctx := c.Request.Context()

	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	var req dto.GenerateRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		slog.WarnContext(ctx, "invalid request body", "error", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result, err := h.refinements.GenerateCriteria(ctx, id, service.RunOptions{
		AdditionalContext: req.AdditionalContext,
		Language:          req.Language,
	})
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "session not found"})
			return
		}
		slog.ErrorContext(ctx, "criteria generation failed", "error", err, "session_id", id)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "criteria generation failed"})
		return
	}

	coverage := dto.ToCoverageResponse(result.Coverage)
	resp := dto.CriteriaResponse{
		Criteria:      make([]dto.CriterionResponse, 0, len(result.Criteria)),
		Coverage:      &coverage,
		OpenQuestions: result.OpenQuestions,
	}
	for _, crit := range result.Criteria {
		resp.Criteria = append(resp.Criteria, dto.ToCriterionResponse(crit))
	}
	c.JSON(http.StatusOK, resp)
}

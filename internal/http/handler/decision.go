package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"storysmith.app/refinery/internal/http/dto"
	"storysmith.app/refinery/internal/model"
	"storysmith.app/refinery/internal/service"
	"storysmith.app/refinery/internal/store"
)

type DecisionHandler struct {
	refinements service.RefinementService
}

func NewDecisionHandler(refinements service.RefinementService) *DecisionHandler {
	return &DecisionHandler{refinements: refinements}
}

// Decide applies one accept/reject/edit decision. A decision against an id
// the session does not contain answers 200 with applied=false; stale UIs
// must not turn into server errors.
func (h *DecisionHandler) Decide(c *gin.Context) {
	ctx := c.Request.Context()

	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	var req dto.DecisionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		slog.WarnContext(ctx, "invalid request body", "error", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	sess, applied, err := h.refinements.Decide(ctx, id, service.DecisionInput{
		TargetType: model.DecisionTarget(req.TargetType),
		TargetID:   req.TargetID,
		Decision:   model.DecisionKind(req.Decision),
		EditedText: req.EditedText,
		Edits:      req.Edits,
	})
	if err != nil {
		switch {
		case errors.Is(err, store.ErrNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "session not found"})
		case errors.Is(err, service.ErrInvalidDecision):
			c.JSON(http.StatusBadRequest, gin.H{"error": "decision not valid for target type"})
		default:
			slog.ErrorContext(ctx, "failed to apply decision", "error", err, "session_id", id)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to apply decision"})
		}
		return
	}

	c.JSON(http.StatusOK, dto.DecisionResponse{
		Applied: applied,
		Session: dto.ToSessionResponse(sess),
	})
}

// AnnotateFinding attaches a reviewer note to a finding without deciding it.
func (h *DecisionHandler) AnnotateFinding(c *gin.Context) {
	ctx := c.Request.Context()

	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	findingID, ok := pathID(c, "findingId")
	if !ok {
		return
	}

	var req dto.NoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		slog.WarnContext(ctx, "invalid request body", "error", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	applied, err := h.refinements.AnnotateFinding(ctx, id, findingID, req.Note)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "session not found"})
			return
		}
		slog.ErrorContext(ctx, "failed to annotate finding", "error", err, "session_id", id, "finding_id", findingID)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to annotate finding"})
		return
	}

	c.JSON(http.StatusOK, dto.NoteResponse{Applied: applied})
}

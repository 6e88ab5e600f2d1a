package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"storysmith.app/refinery/internal/export"
	"storysmith.app/refinery/internal/http/dto"
	"storysmith.app/refinery/internal/service"
	"storysmith.app/refinery/internal/store"
)

type SessionHandler struct {
	refinements service.RefinementService
}

func NewSessionHandler(refinements service.RefinementService) *SessionHandler {
	return &SessionHandler{refinements: refinements}
}

// pathID parses a snowflake path parameter. On failure it writes the 400
// response itself and reports false.
func pathID(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid " + name})
		return 0, false
	}
	return id, true
}

func (h *SessionHandler) Create(c *gin.Context) {
	ctx := c.Request.Context()

	var req dto.CreateSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		slog.WarnContext(ctx, "invalid request body", "error", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	sess, parsed, err := h.refinements.Create(ctx, req.OriginalText)
	if err != nil {
		if errors.Is(err, service.ErrEmptyStory) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "story text is empty"})
			return
		}
		slog.ErrorContext(ctx, "failed to create session", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create session"})
		return
	}

	c.JSON(http.StatusCreated, dto.CreateSessionResponse{
		Session: dto.ToSessionResponse(sess),
		Parse:   dto.ToParseInfo(parsed),
	})
}

func (h *SessionHandler) Get(c *gin.Context) {
	ctx := c.Request.Context()

	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	sess, err := h.refinements.Get(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "session not found"})
			return
		}
		slog.ErrorContext(ctx, "failed to load session", "error", err, "session_id", id)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load session"})
		return
	}

	c.JSON(http.StatusOK, dto.ToSessionResponse(sess))
}

func (h *SessionHandler) List(c *gin.Context) {
	ctx := c.Request.Context()

	sessions, err := h.refinements.List(ctx)
	if err != nil {
		slog.ErrorContext(ctx, "failed to list sessions", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list sessions"})
		return
	}

	resp := dto.ListSessionsResponse{Sessions: make([]dto.SessionSummary, 0, len(sessions))}
	for _, s := range sessions {
		resp.Sessions = append(resp.Sessions, dto.ToSessionSummary(s))
	}
	c.JSON(http.StatusOK, resp)
}

func (h *SessionHandler) Delete(c *gin.Context) {
	ctx := c.Request.Context()

	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	if err := h.refinements.Delete(ctx, id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "session not found"})
			return
		}
		slog.ErrorContext(ctx, "failed to delete session", "error", err, "session_id", id)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to delete session"})
		return
	}

	c.Status(http.StatusNoContent)
}

// ReplaceStory swaps the original text and resets all derived artifacts.
func (h *SessionHandler) ReplaceStory(c *gin.Context) {
	ctx := c.Request.Context()

	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	var req dto.ReplaceStoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		slog.WarnContext(ctx, "invalid request body", "error", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	sess, parsed, err := h.refinements.ReplaceStory(ctx, id, req.Text)
	if err != nil {
		switch {
		case errors.Is(err, store.ErrNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "session not found"})
		case errors.Is(err, service.ErrEmptyStory):
			c.JSON(http.StatusBadRequest, gin.H{"error": "story text is empty"})
		default:
			slog.ErrorContext(ctx, "failed to replace story", "error", err, "session_id", id)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to replace story"})
		}
		return
	}

	c.JSON(http.StatusOK, dto.CreateSessionResponse{
		Session: dto.ToSessionResponse(sess),
		Parse:   dto.ToParseInfo(parsed),
	})
}

// EditText updates the working text in place, keeping findings and
// candidates.
func (h *SessionHandler) EditText(c *gin.Context) {
	ctx := c.Request.Context()

	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	var req dto.EditTextRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		slog.WarnContext(ctx, "invalid request body", "error", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	sess, err := h.refinements.EditCurrentText(ctx, id, req.Text)
	if err != nil {
		switch {
		case errors.Is(err, store.ErrNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "session not found"})
		case errors.Is(err, service.ErrEmptyStory):
			c.JSON(http.StatusBadRequest, gin.H{"error": "story text is empty"})
		default:
			slog.ErrorContext(ctx, "failed to edit text", "error", err, "session_id", id)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to edit text"})
		}
		return
	}

	c.JSON(http.StatusOK, dto.ToSessionResponse(sess))
}

func (h *SessionHandler) Export(c *gin.Context) {
	ctx := c.Request.Context()

	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	format, err := export.ParseFormat(c.Query("format"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	out, err := h.refinements.Export(ctx, id, format)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "session not found"})
			return
		}
		slog.ErrorContext(ctx, "failed to export session", "error", err, "session_id", id)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to export session"})
		return
	}

	contentType := "text/markdown; charset=utf-8"
	if format == export.FormatJSON {
		contentType = "application/json; charset=utf-8"
	}
	c.Data(http.StatusOK, contentType, []byte(out))
}

package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"

	"github.com/gin-gonic/gin"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"storysmith.app/refinery/internal/http/handler"
	"storysmith.app/refinery/internal/model"
	"storysmith.app/refinery/internal/service"
)

var _ = Describe("DecisionHandler", func() {
	var (
		router *gin.Engine
		svc    *mockRefinementService
	)

	BeforeEach(func() {
		gin.SetMode(gin.TestMode)
		router = gin.New()
		svc = &mockRefinementService{}
		h := handler.NewDecisionHandler(svc)
		router.POST("/sessions/:id/decisions", h.Decide)
		router.POST("/sessions/:id/findings/:findingId/note", h.AnnotateFinding)
	})

	Describe("Decide", func() {
		It("applies a decision and returns the updated session", func() {
			var gotInput service.DecisionInput
			svc.decideFn = func(_ context.Context, id int64, input service.DecisionInput) (*model.Session, bool, error) {
				gotInput = input
				return &model.Session{ID: id}, true, nil
			}

			body, _ := json.Marshal(map[string]any{
				"target_type": "rewrite",
				"target_id":   "42",
				"decision":    "edited",
				"edited_text": "Präzisierte Variante",
			})
			req := httptest.NewRequest(http.MethodPost, "/sessions/7/decisions", bytes.NewBuffer(body))
			req.Header.Set("Content-Type", "application/json")
			w := httptest.NewRecorder()

			router.ServeHTTP(w, req)

			Expect(w.Code).To(Equal(http.StatusOK))
			Expect(gotInput.TargetType).To(Equal(model.TargetRewrite))
			Expect(gotInput.TargetID).To(Equal(int64(42)))
			Expect(gotInput.Decision).To(Equal(model.DecisionEdited))
			Expect(gotInput.EditedText).To(Equal("Präzisierte Variante"))

			var resp map[string]any
			Expect(json.Unmarshal(w.Body.Bytes(), &resp)).To(Succeed())
			Expect(resp["applied"]).To(BeTrue())
		})

		It("answers 200 with applied=false for an unknown target", func() {
			svc.decideFn = func(_ context.Context, id int64, _ service.DecisionInput) (*model.Session, bool, error) {
				return &model.Session{ID: id}, false, nil
			}

			body, _ := json.Marshal(map[string]any{
				"target_type": "finding",
				"target_id":   "404",
				"decision":    "accepted",
			})
			req := httptest.NewRequest(http.MethodPost, "/sessions/7/decisions", bytes.NewBuffer(body))
			req.Header.Set("Content-Type", "application/json")
			w := httptest.NewRecorder()

			router.ServeHTTP(w, req)

			Expect(w.Code).To(Equal(http.StatusOK))
			var resp map[string]any
			Expect(json.Unmarshal(w.Body.Bytes(), &resp)).To(Succeed())
			Expect(resp["applied"]).To(BeFalse())
		})

		It("returns 400 when the decision does not fit the target", func() {
			svc.decideFn = func(_ context.Context, _ int64, _ service.DecisionInput) (*model.Session, bool, error) {
				return nil, false, service.ErrInvalidDecision
			}

			body, _ := json.Marshal(map[string]any{
				"target_type": "finding",
				"target_id":   "1",
				"decision":    "edited",
			})
			req := httptest.NewRequest(http.MethodPost, "/sessions/7/decisions", bytes.NewBuffer(body))
			req.Header.Set("Content-Type", "application/json")
			w := httptest.NewRecorder()

			router.ServeHTTP(w, req)

			Expect(w.Code).To(Equal(http.StatusBadRequest))
		})

		It("rejects an unknown target type at binding", func() {
			body, _ := json.Marshal(map[string]any{
				"target_type": "story",
				"target_id":   "1",
				"decision":    "accepted",
			})
			req := httptest.NewRequest(http.MethodPost, "/sessions/7/decisions", bytes.NewBuffer(body))
			req.Header.Set("Content-Type", "application/json")
			w := httptest.NewRecorder()

			router.ServeHTTP(w, req)

			Expect(w.Code).To(Equal(http.StatusBadRequest))
		})
	})

	Describe("AnnotateFinding", func() {
		It("stores the note", func() {
			var gotNote string
			svc.annotateFindingFn = func(_ context.Context, sessionID, findingID int64, note string) (bool, error) {
				Expect(sessionID).To(Equal(int64(7)))
				Expect(findingID).To(Equal(int64(3)))
				gotNote = note
				return true, nil
			}

			body, _ := json.Marshal(map[string]string{"note": "Mit PO klären"})
			req := httptest.NewRequest(http.MethodPost, "/sessions/7/findings/3/note", bytes.NewBuffer(body))
			req.Header.Set("Content-Type", "application/json")
			w := httptest.NewRecorder()

			router.ServeHTTP(w, req)

			Expect(w.Code).To(Equal(http.StatusOK))
			Expect(gotNote).To(Equal("Mit PO klären"))
		})
	})
})

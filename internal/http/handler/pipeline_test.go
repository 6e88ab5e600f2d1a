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
	"storysmith.app/refinery/internal/store"
)

var _ = Describe("PipelineHandler", func() {
	var (
		router *gin.Engine
		svc    *mockRefinementService
	)

	BeforeEach(func() {
		gin.SetMode(gin.TestMode)
		router = gin.New()
		svc = &mockRefinementService{}
		h := handler.NewPipelineHandler(svc)
		router.POST("/sessions/:id/pipeline", h.Run)
		router.POST("/sessions/:id/analyze", h.Analyze)
	})

	Describe("Run", func() {
		It("runs the pipeline and returns the updated session", func() {
			var gotOpts service.RunOptions
			svc.runPipelineFn = func(_ context.Context, id int64, opts service.RunOptions) (*model.Session, error) {
				gotOpts = opts
				return &model.Session{
					ID: id,
					StageResults: []model.StageResult{
						{Stage: model.StageAmbiguityAnalysis, Status: model.StageCompleted},
					},
				}, nil
			}

			body, _ := json.Marshal(map[string]any{
				"additional_context": "Sprint 12",
				"language":           "en",
				"stages":             []string{"ambiguity_analysis"},
			})
			req := httptest.NewRequest(http.MethodPost, "/sessions/3/pipeline", bytes.NewBuffer(body))
			req.Header.Set("Content-Type", "application/json")
			w := httptest.NewRecorder()

			router.ServeHTTP(w, req)

			Expect(w.Code).To(Equal(http.StatusOK))
			Expect(gotOpts.AdditionalContext).To(Equal("Sprint 12"))
			Expect(gotOpts.Language).To(Equal("en"))
			Expect(gotOpts.Stages).To(Equal([]model.Stage{model.StageAmbiguityAnalysis}))

			var resp map[string]any
			Expect(json.Unmarshal(w.Body.Bytes(), &resp)).To(Succeed())
			Expect(resp["stage_results"].([]any)).To(HaveLen(1))
		})

		It("accepts an empty body", func() {
			req := httptest.NewRequest(http.MethodPost, "/sessions/3/pipeline", nil)
			w := httptest.NewRecorder()

			router.ServeHTTP(w, req)

			Expect(w.Code).To(Equal(http.StatusOK))
		})

		It("rejects an unknown stage name", func() {
			body, _ := json.Marshal(map[string]any{"stages": []string{"mystery_stage"}})
			req := httptest.NewRequest(http.MethodPost, "/sessions/3/pipeline", bytes.NewBuffer(body))
			req.Header.Set("Content-Type", "application/json")
			w := httptest.NewRecorder()

			router.ServeHTTP(w, req)

			Expect(w.Code).To(Equal(http.StatusBadRequest))
		})

		It("returns 404 for an unknown session", func() {
			svc.runPipelineFn = func(_ context.Context, _ int64, _ service.RunOptions) (*model.Session, error) {
				return nil, store.ErrNotFound
			}

			req := httptest.NewRequest(http.MethodPost, "/sessions/3/pipeline", nil)
			w := httptest.NewRecorder()

			router.ServeHTTP(w, req)

			Expect(w.Code).To(Equal(http.StatusNotFound))
		})
	})

	Describe("Analyze", func() {
		It("runs the single-shot analysis", func() {
			svc.analyzeFn = func(_ context.Context, id int64, _ service.RunOptions) (*model.Session, error) {
				score := 85
				return &model.Session{ID: id, OverallScore: &score}, nil
			}

			req := httptest.NewRequest(http.MethodPost, "/sessions/3/analyze", nil)
			w := httptest.NewRecorder()

			router.ServeHTTP(w, req)

			Expect(w.Code).To(Equal(http.StatusOK))
			var resp map[string]any
			Expect(json.Unmarshal(w.Body.Bytes(), &resp)).To(Succeed())
			Expect(resp["overall_score"]).To(BeNumerically("==", 85))
		})
	})
})

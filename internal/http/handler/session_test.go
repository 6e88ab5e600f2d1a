package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"

	"github.com/gin-gonic/gin"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"storysmith.app/refinery/internal/export"
	"storysmith.app/refinery/internal/http/handler"
	"storysmith.app/refinery/internal/model"
	"storysmith.app/refinery/internal/parse"
	"storysmith.app/refinery/internal/service"
	"storysmith.app/refinery/internal/store"
)

var _ = Describe("SessionHandler", func() {
	var (
		router *gin.Engine
		svc    *mockRefinementService
	)

	BeforeEach(func() {
		gin.SetMode(gin.TestMode)
		router = gin.New()
		svc = &mockRefinementService{}
		h := handler.NewSessionHandler(svc)
		router.POST("/sessions", h.Create)
		router.GET("/sessions", h.List)
		router.GET("/sessions/:id", h.Get)
		router.DELETE("/sessions/:id", h.Delete)
		router.PUT("/sessions/:id/story", h.ReplaceStory)
		router.GET("/sessions/:id/export", h.Export)
	})

	Describe("Create", func() {
		It("returns 201 with the session and parse info", func() {
			svc.createFn = func(_ context.Context, text string) (*model.Session, parse.Result, error) {
				return &model.Session{
						ID:    12345,
						Story: model.Story{ID: 12345, OriginalText: text, CurrentText: text},
					}, parse.Result{
						Structured:   &model.StructuredStory{Role: "Benutzer"},
						Language:     "de",
						Completeness: 75,
					}, nil
			}

			body, _ := json.Marshal(map[string]string{
				"original_text": "Als Benutzer möchte ich mich einloggen.",
			})
			req := httptest.NewRequest(http.MethodPost, "/sessions", bytes.NewBuffer(body))
			req.Header.Set("Content-Type", "application/json")
			w := httptest.NewRecorder()

			router.ServeHTTP(w, req)

			Expect(w.Code).To(Equal(http.StatusCreated))
			var resp map[string]any
			Expect(json.Unmarshal(w.Body.Bytes(), &resp)).To(Succeed())

			session := resp["session"].(map[string]any)
			Expect(session["id"]).To(Equal("12345"))

			parseInfo := resp["parse"].(map[string]any)
			Expect(parseInfo["structure_detected"]).To(BeTrue())
			Expect(parseInfo["completeness"]).To(BeNumerically("==", 75))
		})

		It("returns 400 on an invalid body", func() {
			req := httptest.NewRequest(http.MethodPost, "/sessions", bytes.NewBufferString(`{`))
			req.Header.Set("Content-Type", "application/json")
			w := httptest.NewRecorder()

			router.ServeHTTP(w, req)

			Expect(w.Code).To(Equal(http.StatusBadRequest))
		})

		It("returns 400 when the story text is blank", func() {
			svc.createFn = func(_ context.Context, _ string) (*model.Session, parse.Result, error) {
				return nil, parse.Result{}, service.ErrEmptyStory
			}

			body, _ := json.Marshal(map[string]string{"original_text": "   "})
			req := httptest.NewRequest(http.MethodPost, "/sessions", bytes.NewBuffer(body))
			req.Header.Set("Content-Type", "application/json")
			w := httptest.NewRecorder()

			router.ServeHTTP(w, req)

			Expect(w.Code).To(Equal(http.StatusBadRequest))
		})

		It("returns 500 when the service fails", func() {
			svc.createFn = func(_ context.Context, _ string) (*model.Session, parse.Result, error) {
				return nil, parse.Result{}, errors.New("boom")
			}

			body, _ := json.Marshal(map[string]string{"original_text": "x"})
			req := httptest.NewRequest(http.MethodPost, "/sessions", bytes.NewBuffer(body))
			req.Header.Set("Content-Type", "application/json")
			w := httptest.NewRecorder()

			router.ServeHTTP(w, req)

			Expect(w.Code).To(Equal(http.StatusInternalServerError))
		})
	})

	Describe("Get", func() {
		It("returns the full session state", func() {
			svc.getFn = func(_ context.Context, id int64) (*model.Session, error) {
				return &model.Session{
					ID:    id,
					Story: model.Story{ID: id, OriginalText: "text", CurrentText: "text"},
					Findings: []model.Finding{
						{ID: 9, Stage: model.StageQualityCheck, Category: model.CategoryVagueLanguage, Severity: model.SeverityMinor},
					},
				}, nil
			}

			req := httptest.NewRequest(http.MethodGet, "/sessions/77", nil)
			w := httptest.NewRecorder()

			router.ServeHTTP(w, req)

			Expect(w.Code).To(Equal(http.StatusOK))
			var resp map[string]any
			Expect(json.Unmarshal(w.Body.Bytes(), &resp)).To(Succeed())
			Expect(resp["id"]).To(Equal("77"))
			findings := resp["findings"].([]any)
			Expect(findings).To(HaveLen(1))
			Expect(findings[0].(map[string]any)["id"]).To(Equal("9"))
		})

		It("returns 404 for an unknown session", func() {
			svc.getFn = func(_ context.Context, _ int64) (*model.Session, error) {
				return nil, store.ErrNotFound
			}

			req := httptest.NewRequest(http.MethodGet, "/sessions/404", nil)
			w := httptest.NewRecorder()

			router.ServeHTTP(w, req)

			Expect(w.Code).To(Equal(http.StatusNotFound))
		})

		It("returns 400 for a malformed id", func() {
			req := httptest.NewRequest(http.MethodGet, "/sessions/abc", nil)
			w := httptest.NewRecorder()

			router.ServeHTTP(w, req)

			Expect(w.Code).To(Equal(http.StatusBadRequest))
		})
	})

	Describe("List", func() {
		It("returns session summaries", func() {
			svc.listFn = func(_ context.Context) ([]model.Session, error) {
				return []model.Session{
					{ID: 1, Story: model.Story{CurrentText: "a"}},
					{ID: 2, Story: model.Story{CurrentText: "b"}},
				}, nil
			}

			req := httptest.NewRequest(http.MethodGet, "/sessions", nil)
			w := httptest.NewRecorder()

			router.ServeHTTP(w, req)

			Expect(w.Code).To(Equal(http.StatusOK))
			var resp map[string]any
			Expect(json.Unmarshal(w.Body.Bytes(), &resp)).To(Succeed())
			Expect(resp["sessions"].([]any)).To(HaveLen(2))
		})
	})

	Describe("Delete", func() {
		It("returns 204 on success", func() {
			req := httptest.NewRequest(http.MethodDelete, "/sessions/5", nil)
			w := httptest.NewRecorder()

			router.ServeHTTP(w, req)

			Expect(w.Code).To(Equal(http.StatusNoContent))
		})

		It("returns 404 for an unknown session", func() {
			svc.deleteFn = func(_ context.Context, _ int64) error {
				return store.ErrNotFound
			}

			req := httptest.NewRequest(http.MethodDelete, "/sessions/5", nil)
			w := httptest.NewRecorder()

			router.ServeHTTP(w, req)

			Expect(w.Code).To(Equal(http.StatusNotFound))
		})
	})

	Describe("ReplaceStory", func() {
		It("passes the new text to the service", func() {
			var gotText string
			svc.replaceStoryFn = func(_ context.Context, id int64, text string) (*model.Session, parse.Result, error) {
				gotText = text
				return &model.Session{ID: id, Story: model.Story{OriginalText: text, CurrentText: text}}, parse.Result{}, nil
			}

			body, _ := json.Marshal(map[string]string{"text": "Neue Story."})
			req := httptest.NewRequest(http.MethodPut, "/sessions/5/story", bytes.NewBuffer(body))
			req.Header.Set("Content-Type", "application/json")
			w := httptest.NewRecorder()

			router.ServeHTTP(w, req)

			Expect(w.Code).To(Equal(http.StatusOK))
			Expect(gotText).To(Equal("Neue Story."))
		})
	})

	Describe("Export", func() {
		It("returns markdown by default", func() {
			svc.exportFn = func(_ context.Context, _ int64, format export.Format) (string, error) {
				Expect(format).To(Equal(export.FormatMarkdown))
				return "# Story Review 5\n", nil
			}

			req := httptest.NewRequest(http.MethodGet, "/sessions/5/export", nil)
			w := httptest.NewRecorder()

			router.ServeHTTP(w, req)

			Expect(w.Code).To(Equal(http.StatusOK))
			Expect(w.Header().Get("Content-Type")).To(ContainSubstring("text/markdown"))
			Expect(w.Body.String()).To(ContainSubstring("# Story Review 5"))
		})

		It("returns json when requested", func() {
			svc.exportFn = func(_ context.Context, _ int64, format export.Format) (string, error) {
				Expect(format).To(Equal(export.FormatJSON))
				return `{"id":"5"}`, nil
			}

			req := httptest.NewRequest(http.MethodGet, "/sessions/5/export?format=json", nil)
			w := httptest.NewRecorder()

			router.ServeHTTP(w, req)

			Expect(w.Code).To(Equal(http.StatusOK))
			Expect(w.Header().Get("Content-Type")).To(ContainSubstring("application/json"))
		})

		It("returns 400 for an unknown format", func() {
			req := httptest.NewRequest(http.MethodGet, "/sessions/5/export?format=pdf", nil)
			w := httptest.NewRecorder()

			router.ServeHTTP(w, req)

			Expect(w.Code).To(Equal(http.StatusBadRequest))
		})
	})
})

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
	"storysmith.app/refinery/internal/service"
)

var _ = Describe("DocumentHandler", func() {
	var (
		router *gin.Engine
		svc    *mockDocumentService
	)

	BeforeEach(func() {
		gin.SetMode(gin.TestMode)
		router = gin.New()
		svc = &mockDocumentService{}
		h := handler.NewDocumentHandler(svc)
		router.POST("/documents", h.Ingest)
	})

	It("returns 202 when the document is enqueued", func() {
		var gotName string
		svc.ingestFn = func(_ context.Context, name, _ string) error {
			gotName = name
			return nil
		}

		body, _ := json.Marshal(map[string]string{
			"name": "glossary.md",
			"text": "Definitionen der Fachbegriffe.",
		})
		req := httptest.NewRequest(http.MethodPost, "/documents", bytes.NewBuffer(body))
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()

		router.ServeHTTP(w, req)

		Expect(w.Code).To(Equal(http.StatusAccepted))
		Expect(gotName).To(Equal("glossary.md"))

		var resp map[string]any
		Expect(json.Unmarshal(w.Body.Bytes(), &resp)).To(Succeed())
		Expect(resp["enqueued"]).To(BeTrue())
	})

	It("returns 400 on a body without text", func() {
		body, _ := json.Marshal(map[string]string{"name": "empty.md"})
		req := httptest.NewRequest(http.MethodPost, "/documents", bytes.NewBuffer(body))
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()

		router.ServeHTTP(w, req)

		Expect(w.Code).To(Equal(http.StatusBadRequest))
	})

	It("returns 503 when intake is not configured", func() {
		svc.ingestFn = func(_ context.Context, _, _ string) error {
			return service.ErrIntakeDisabled
		}

		body, _ := json.Marshal(map[string]string{"name": "doc.md", "text": "Inhalt"})
		req := httptest.NewRequest(http.MethodPost, "/documents", bytes.NewBuffer(body))
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()

		router.ServeHTTP(w, req)

		Expect(w.Code).To(Equal(http.StatusServiceUnavailable))
	})
})

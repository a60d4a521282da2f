package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"

	"github.com/gin-gonic/gin"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"prepwise.app/pipeline/internal/http/handler"
	"prepwise.app/pipeline/internal/model"
	"prepwise.app/pipeline/internal/service"
	"prepwise.app/pipeline/internal/store"
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
		h := handler.NewDocumentHandler(svc, "X-Trace-Id")
		router.POST("/documents/events", h.Ingest)
		router.GET("/documents/:id", h.Get)
		router.GET("/documents/:id/runs", h.ListRuns)
	})

	post := func(body string, headers map[string]string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/documents/events", bytes.NewBufferString(body))
		req.Header.Set("Content-Type", "application/json")
		for k, v := range headers {
			req.Header.Set(k, v)
		}
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		return w
	}

	get := func(path string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		return w
	}

	Describe("Ingest", func() {
		const validBody = `{"documentId":"doc-1","url":"https://files.example.edu/l1.pdf","fileName":"operating-systems-l1.pdf"}`

		It("returns 202 with the document id", func() {
			w := post(validBody, nil)

			Expect(w.Code).To(Equal(http.StatusAccepted))
			var resp map[string]any
			Expect(json.Unmarshal(w.Body.Bytes(), &resp)).To(Succeed())
			Expect(resp["documentId"]).To(Equal("doc-1"))
			Expect(resp["enqueued"]).To(BeTrue())

			Expect(svc.capturedParams.FileName).To(Equal("operating-systems-l1.pdf"))
		})

		It("forwards the trace header", func() {
			post(validBody, map[string]string{"X-Trace-Id": "4bf92f3577b34da6a3ce929d0e0e4736"})

			Expect(svc.capturedParams.TraceID).To(HaveValue(Equal("4bf92f3577b34da6a3ce929d0e0e4736")))
		})

		It("leaves the trace id unset without a header or span", func() {
			post(validBody, nil)

			Expect(svc.capturedParams.TraceID).To(BeNil())
		})

		DescribeTable("returns 400 without calling the service",
			func(body string) {
				w := post(body, nil)

				Expect(w.Code).To(Equal(http.StatusBadRequest))
				Expect(svc.capturedParams).To(BeNil())
			},
			Entry("malformed json", `{`),
			Entry("missing documentId", `{"url":"https://x/y.pdf","fileName":"y.pdf"}`),
			Entry("missing url", `{"documentId":"doc-1","fileName":"y.pdf"}`),
			Entry("missing fileName", `{"documentId":"doc-1","url":"https://x/y.pdf"}`),
			Entry("empty fileName", `{"documentId":"doc-1","url":"https://x/y.pdf","fileName":""}`),
		)

		It("returns 400 when the service rejects the event", func() {
			svc.ingestFn = func(context.Context, service.IngestParams) (*service.IngestResult, error) {
				return nil, fmt.Errorf("%w: blank", service.ErrInvalidEvent)
			}

			w := post(validBody, nil)
			Expect(w.Code).To(Equal(http.StatusBadRequest))
		})

		It("returns 500 when enqueueing fails", func() {
			svc.ingestFn = func(context.Context, service.IngestParams) (*service.IngestResult, error) {
				return nil, errors.New("redis down")
			}

			w := post(validBody, nil)
			Expect(w.Code).To(Equal(http.StatusInternalServerError))
		})
	})

	Describe("Get", func() {
		It("returns 404 for unknown documents", func() {
			w := get("/documents/missing")
			Expect(w.Code).To(Equal(http.StatusNotFound))
		})

		It("returns the flattened document", func() {
			module := "Computer Networks"
			svc.getFn = func(_ context.Context, id string) (*model.Document, error) {
				return &model.Document{
					ID:                 id,
					FileName:           "networks.pdf",
					Module:             &module,
					ExtractedTopics:    []string{"TCP/IP"},
					IndustryTasks:      []string{"Packet Sniffer (entry)"},
					InterviewQuestions: nil,
					Status:             model.DocumentStatusCompleted,
				}, nil
			}

			w := get("/documents/doc-9")

			Expect(w.Code).To(Equal(http.StatusOK))
			var resp map[string]any
			Expect(json.Unmarshal(w.Body.Bytes(), &resp)).To(Succeed())
			Expect(resp["id"]).To(Equal("doc-9"))
			Expect(resp["status"]).To(Equal("completed"))
			Expect(resp["module"]).To(Equal("Computer Networks"))
			Expect(resp["interviewQuestions"]).To(BeEmpty())
			Expect(resp["interviewQuestions"]).NotTo(BeNil())
		})

		It("returns 500 on store failure", func() {
			svc.getFn = func(context.Context, string) (*model.Document, error) {
				return nil, errors.New("connection reset")
			}

			w := get("/documents/doc-1")
			Expect(w.Code).To(Equal(http.StatusInternalServerError))
		})
	})

	Describe("ListRuns", func() {
		It("renders run ids as strings", func() {
			svc.getFn = nil
			svc.listRunsFn = func(_ context.Context, documentID string, _ int32) ([]model.PipelineRun, error) {
				return []model.PipelineRun{
					{ID: 1789012345678901234, DocumentID: documentID, Attempt: 1, Status: model.RunStatusRunning},
				}, nil
			}

			w := get("/documents/doc-1/runs?limit=5")

			Expect(w.Code).To(Equal(http.StatusOK))
			Expect(svc.capturedLimit).To(Equal(int32(5)))
			var resp struct {
				DocumentID string           `json:"documentId"`
				Runs       []map[string]any `json:"runs"`
			}
			Expect(json.Unmarshal(w.Body.Bytes(), &resp)).To(Succeed())
			Expect(resp.DocumentID).To(Equal("doc-1"))
			Expect(resp.Runs).To(HaveLen(1))
			Expect(resp.Runs[0]["id"]).To(Equal("1789012345678901234"))
		})

		It("returns 400 on a non-numeric limit", func() {
			w := get("/documents/doc-1/runs?limit=ten")
			Expect(w.Code).To(Equal(http.StatusBadRequest))
		})

		It("returns 404 for unknown documents", func() {
			svc.listRunsFn = func(context.Context, string, int32) ([]model.PipelineRun, error) {
				return nil, store.ErrNotFound
			}

			w := get("/documents/missing/runs")
			Expect(w.Code).To(Equal(http.StatusNotFound))
		})
	})
})

package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/trace"

	"prepwise.app/pipeline/internal/http/dto"
	"prepwise.app/pipeline/internal/service"
	"prepwise.app/pipeline/internal/store"
)

type DocumentHandler struct {
	service     service.DocumentService
	traceHeader string
}

func NewDocumentHandler(service service.DocumentService, traceHeader string) *DocumentHandler {
	return &DocumentHandler{
		service:     service,
		traceHeader: traceHeader,
	}
}

func (h *DocumentHandler) Ingest(c *gin.Context) {
	ctx := c.Request.Context()

	var req dto.IngestDocumentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		slog.WarnContext(ctx, "invalid document event", "error", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	traceID := c.GetHeader(h.traceHeader)
	if traceID == "" {
		if spanCtx := trace.SpanContextFromContext(ctx); spanCtx.IsValid() {
			traceID = spanCtx.TraceID().String()
		}
	}
	params := service.IngestParams{
		DocumentID: req.DocumentID,
		URL:        req.URL,
		FileName:   req.FileName,
	}
	if traceID != "" {
		params.TraceID = &traceID
	}

	result, err := h.service.Ingest(ctx, params)
	if err != nil {
		if errors.Is(err, service.ErrInvalidEvent) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		slog.ErrorContext(ctx, "failed to ingest document event", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to ingest document event"})
		return
	}

	c.JSON(http.StatusAccepted, dto.IngestDocumentResponse{
		DocumentID: result.Document.ID,
		Enqueued:   result.Enqueued,
	})
}

func (h *DocumentHandler) Get(c *gin.Context) {
	ctx := c.Request.Context()
	documentID := c.Param("id")

	doc, err := h.service.Get(ctx, documentID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "document not found"})
			return
		}
		slog.ErrorContext(ctx, "failed to get document", "error", err, "document_id", documentID)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to get document"})
		return
	}

	c.JSON(http.StatusOK, dto.ToDocumentResponse(doc))
}

func (h *DocumentHandler) ListRuns(c *gin.Context) {
	ctx := c.Request.Context()
	documentID := c.Param("id")

	var limit int32
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.ParseInt(raw, 10, 32)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be an integer"})
			return
		}
		limit = int32(parsed)
	}

	runs, err := h.service.ListRuns(ctx, documentID, limit)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "document not found"})
			return
		}
		slog.ErrorContext(ctx, "failed to list pipeline runs", "error", err, "document_id", documentID)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list pipeline runs"})
		return
	}

	resp := dto.ListRunsResponse{
		DocumentID: documentID,
		Runs:       make([]dto.PipelineRunResponse, 0, len(runs)),
	}
	for _, run := range runs {
		resp.Runs = append(resp.Runs, dto.ToPipelineRunResponse(run))
	}
	c.JSON(http.StatusOK, resp)
}

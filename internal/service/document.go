package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"prepwise.app/pipeline/common/logger"
	"prepwise.app/pipeline/internal/model"
	"prepwise.app/pipeline/internal/queue"
	"prepwise.app/pipeline/internal/store"
)

// ErrInvalidEvent is returned for a document-uploaded trigger missing any of
// its three fields. Such events are never enqueued.
var ErrInvalidEvent = errors.New("invalid document event")

const defaultRunsLimit = 20

type IngestParams struct {
	DocumentID string
	URL        string
	FileName   string
	TraceID    *string
}

type IngestResult struct {
	Document *model.Document
	Enqueued bool
}

type DocumentService interface {
	Ingest(ctx context.Context, params IngestParams) (*IngestResult, error)
	Get(ctx context.Context, documentID string) (*model.Document, error)
	ListRuns(ctx context.Context, documentID string, limit int32) ([]model.PipelineRun, error)
}

type documentService struct {
	docs     store.DocumentStore
	runs     store.PipelineRunStore
	producer queue.Producer
	logger   *slog.Logger
}

func NewDocumentService(docs store.DocumentStore, runs store.PipelineRunStore, producer queue.Producer, logger *slog.Logger) DocumentService {
	if logger == nil {
		logger = slog.Default()
	}
	return &documentService{
		docs:     docs,
		runs:     runs,
		producer: producer,
		logger:   logger,
	}
}

func (s *documentService) Ingest(ctx context.Context, params IngestParams) (*IngestResult, error) {
	ref := model.DocumentRef{
		DocumentID: strings.TrimSpace(params.DocumentID),
		URL:        strings.TrimSpace(params.URL),
		FileName:   strings.TrimSpace(params.FileName),
	}
	if ref.DocumentID == "" || ref.URL == "" || ref.FileName == "" {
		return nil, fmt.Errorf("%w: documentId, url and fileName are required", ErrInvalidEvent)
	}

	ctx = logger.WithLogFields(ctx, logger.LogFields{
		DocumentID: &ref.DocumentID,
		Component:  "pipeline.service.document",
	})

	// Row must exist before the worker sees the event.
	doc, err := s.docs.UpsertPending(ctx, ref)
	if err != nil {
		return nil, fmt.Errorf("registering document: %w", err)
	}

	if err := s.producer.Enqueue(ctx, queue.DocumentEvent{
		DocumentID: ref.DocumentID,
		URL:        ref.URL,
		FileName:   ref.FileName,
		TraceID:    params.TraceID,
		Attempt:    1,
	}); err != nil {
		return nil, fmt.Errorf("enqueueing document event: %w", err)
	}

	s.logger.InfoContext(ctx, "document event accepted", "file_name", ref.FileName)

	return &IngestResult{Document: doc, Enqueued: true}, nil
}

func (s *documentService) Get(ctx context.Context, documentID string) (*model.Document, error) {
	doc, err := s.docs.GetByID(ctx, documentID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("fetching document: %w", err)
	}
	return doc, nil
}

func (s *documentService) ListRuns(ctx context.Context, documentID string, limit int32) ([]model.PipelineRun, error) {
	if limit <= 0 || limit > 100 {
		limit = defaultRunsLimit
	}

	if _, err := s.Get(ctx, documentID); err != nil {
		return nil, err
	}

	runs, err := s.runs.ListByDocument(ctx, documentID, limit)
	if err != nil {
		return nil, fmt.Errorf("listing pipeline runs: %w", err)
	}
	return runs, nil
}

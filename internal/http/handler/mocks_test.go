package handler_test

import (
	"context"

	"prepwise.app/pipeline/internal/model"
	"prepwise.app/pipeline/internal/service"
	"prepwise.app/pipeline/internal/store"
)

type mockDocumentService struct {
	ingestFn   func(ctx context.Context, params service.IngestParams) (*service.IngestResult, error)
	getFn      func(ctx context.Context, documentID string) (*model.Document, error)
	listRunsFn func(ctx context.Context, documentID string, limit int32) ([]model.PipelineRun, error)

	capturedParams *service.IngestParams
	capturedLimit  int32
}

func (m *mockDocumentService) Ingest(ctx context.Context, params service.IngestParams) (*service.IngestResult, error) {
	m.capturedParams = &params
	if m.ingestFn != nil {
		return m.ingestFn(ctx, params)
	}
	return &service.IngestResult{
		Document: &model.Document{ID: params.DocumentID, Status: model.DocumentStatusPending},
		Enqueued: true,
	}, nil
}

func (m *mockDocumentService) Get(ctx context.Context, documentID string) (*model.Document, error) {
	if m.getFn != nil {
		return m.getFn(ctx, documentID)
	}
	return nil, store.ErrNotFound
}

func (m *mockDocumentService) ListRuns(ctx context.Context, documentID string, limit int32) ([]model.PipelineRun, error) {
	m.capturedLimit = limit
	if m.listRunsFn != nil {
		return m.listRunsFn(ctx, documentID, limit)
	}
	return nil, nil
}

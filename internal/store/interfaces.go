package store

import (
	"context"
	"errors"

	"prepwise.app/pipeline/internal/model"
)

// ErrNotFound is returned when a requested entity does not exist
var ErrNotFound = errors.New("not found")

// DocumentStore is the document database collaborator. UpdateWithExtractedData
// is an upsert keyed by document ID, so repeating it with the same input
// leaves one identical row.
type DocumentStore interface {
	GetByID(ctx context.Context, id string) (*model.Document, error)
	UpsertPending(ctx context.Context, ref model.DocumentRef) (*model.Document, error)
	UpdateWithExtractedData(ctx context.Context, update model.DocumentUpdate) error
	SetStatus(ctx context.Context, id string, status model.DocumentStatus, errMsg *string) error
}

// PipelineRunStore records worker deliveries of a document event.
type PipelineRunStore interface {
	Create(ctx context.Context, run *model.PipelineRun) (*model.PipelineRun, error)
	Finish(ctx context.Context, id int64, status model.RunStatus, errMsg *string) error
	ListByDocument(ctx context.Context, documentID string, limit int32) ([]model.PipelineRun, error)
}

// LLMEvalStore records model calls for offline review.
type LLMEvalStore interface {
	Create(ctx context.Context, eval *model.LLMEval) error
	ListByDocument(ctx context.Context, documentID string, limit int32) ([]model.LLMEval, error)
}

// StateStore checkpoints the per-document pipeline blackboard between agent
// steps so a retried run resumes where the previous delivery stopped.
type StateStore interface {
	Load(ctx context.Context, documentID string) (*model.PipelineState, error)
	Save(ctx context.Context, state *model.PipelineState) error
	Delete(ctx context.Context, documentID string) error
}

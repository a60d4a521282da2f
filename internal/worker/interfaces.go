package worker

import (
	"context"

	"prepwise.app/pipeline/internal/model"
	"prepwise.app/pipeline/internal/queue"
	"prepwise.app/pipeline/internal/store"
)

// Consumer abstracts the message queue for testability.
type Consumer interface {
	Read(ctx context.Context) ([]queue.Message, error)
	Ack(ctx context.Context, msg queue.Message) error
	Requeue(ctx context.Context, msg queue.Message, errMsg string) error
	SendDLQ(ctx context.Context, msg queue.Message, errMsg string) error
}

// NetworkRunner runs the agent network for one document.
type NetworkRunner interface {
	Run(ctx context.Context, ref model.DocumentRef) (*model.PipelineState, error)
}

// MessageProcessor handles one delivery. A nil return means the message can
// be acked.
type MessageProcessor interface {
	Process(ctx context.Context, msg queue.Message) error
}

// Mirrors service.StoreProvider - defined here to avoid import cycles.
type StoreProvider interface {
	Documents() store.DocumentStore
	PipelineRuns() store.PipelineRunStore
}

// TxRunner runs fn with stores bound to one transaction.
type TxRunner interface {
	WithTx(ctx context.Context, fn func(stores StoreProvider) error) error
}

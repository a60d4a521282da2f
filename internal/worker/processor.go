package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"prepwise.app/pipeline/common/id"
	"prepwise.app/pipeline/common/logger"
	"prepwise.app/pipeline/internal/brain"
	"prepwise.app/pipeline/internal/model"
	"prepwise.app/pipeline/internal/queue"
	"prepwise.app/pipeline/internal/store"
)

// Processor runs the network for a message and records the delivery as a
// pipeline run.
type Processor struct {
	network  NetworkRunner
	txRunner TxRunner
	runs     store.PipelineRunStore
}

func NewProcessor(network NetworkRunner, txRunner TxRunner, runs store.PipelineRunStore) *Processor {
	return &Processor{
		network:  network,
		txRunner: txRunner,
		runs:     runs,
	}
}

func (p *Processor) Process(ctx context.Context, msg queue.Message) error {
	ref := model.DocumentRef{
		DocumentID: msg.DocumentID,
		URL:        msg.URL,
		FileName:   msg.FileName,
	}

	// Single transaction: mark processing -> open run
	var run *model.PipelineRun
	err := p.txRunner.WithTx(ctx, func(sp StoreProvider) error {
		if err := markProcessing(ctx, sp.Documents(), ref); err != nil {
			return err
		}

		created, err := sp.PipelineRuns().Create(ctx, &model.PipelineRun{
			ID:         id.New(),
			DocumentID: ref.DocumentID,
			Attempt:    int32(msg.Attempt),
			Status:     model.RunStatusRunning,
		})
		if err != nil {
			return fmt.Errorf("creating pipeline run: %w", err)
		}
		run = created
		return nil
	})
	if err != nil {
		return brain.NewRetryableError(fmt.Errorf("starting pipeline run: %w", err))
	}

	ctx = logger.WithLogFields(ctx, logger.LogFields{RunID: &run.ID})
	slog.InfoContext(ctx, "pipeline run started", "attempt", msg.Attempt)

	_, runErr := p.network.Run(ctx, ref)

	status := model.RunStatusCompleted
	var errMsg *string
	if runErr != nil {
		status = model.RunStatusFailed
		errMsg = logger.Ptr(runErr.Error())
	}
	// Finish even when ctx was cancelled mid-run.
	if err := p.runs.Finish(context.WithoutCancel(ctx), run.ID, status, errMsg); err != nil {
		slog.WarnContext(ctx, "failed to finish pipeline run", "error", err)
	}

	if runErr != nil {
		return runErr
	}

	slog.InfoContext(ctx, "pipeline run completed")
	return nil
}

// markProcessing registers documents that arrived without going through the
// ingest API.
func markProcessing(ctx context.Context, docs store.DocumentStore, ref model.DocumentRef) error {
	err := docs.SetStatus(ctx, ref.DocumentID, model.DocumentStatusProcessing, nil)
	if errors.Is(err, store.ErrNotFound) {
		if _, err := docs.UpsertPending(ctx, ref); err != nil {
			return fmt.Errorf("registering document: %w", err)
		}
		err = docs.SetStatus(ctx, ref.DocumentID, model.DocumentStatusProcessing, nil)
	}
	if err != nil {
		return fmt.Errorf("marking document processing: %w", err)
	}
	return nil
}

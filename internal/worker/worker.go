package worker

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"prepwise.app/pipeline/common/logger"
	"prepwise.app/pipeline/internal/brain"
	"prepwise.app/pipeline/internal/model"
	"prepwise.app/pipeline/internal/queue"
	"prepwise.app/pipeline/internal/store"
)

type Config struct {
	MaxAttempts int
}

type Worker struct {
	consumer  Consumer
	processor MessageProcessor
	docs      store.DocumentStore
	states    store.StateStore
	cfg       Config

	stopCh    chan struct{}
	stoppedCh chan struct{}
}

func New(consumer Consumer, processor MessageProcessor, docs store.DocumentStore, states store.StateStore, cfg Config) *Worker {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 3
	}
	return &Worker{
		consumer:  consumer,
		processor: processor,
		docs:      docs,
		states:    states,
		cfg:       cfg,
		stopCh:    make(chan struct{}),
		stoppedCh: make(chan struct{}),
	}
}

func (w *Worker) Run(ctx context.Context) error {
	defer close(w.stoppedCh)

	ctx = logger.WithLogFields(ctx, logger.LogFields{Component: "pipeline.worker"})
	slog.InfoContext(ctx, "worker started", "max_attempts", w.cfg.MaxAttempts)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-w.stopCh:
			slog.InfoContext(ctx, "worker stopping")
			return nil
		default:
			if err := w.processOneBatch(ctx); err != nil {
				slog.ErrorContext(ctx, "batch processing error", "error", err)
				select {
				case <-ctx.Done():
				case <-w.stopCh:
				case <-time.After(time.Second):
				}
			}
		}
	}
}

func (w *Worker) Stop() {
	close(w.stopCh)
	<-w.stoppedCh
}

func (w *Worker) processOneBatch(ctx context.Context) error {
	messages, err := w.consumer.Read(ctx)
	if err != nil {
		return fmt.Errorf("reading from stream: %w", err)
	}

	for _, msg := range messages {
		w.HandleMessage(ctx, msg)
	}
	return nil
}

// HandleMessage processes msg and settles it: ack on success, requeue on a
// retryable failure, dead letter otherwise. The reclaimer shares it.
func (w *Worker) HandleMessage(ctx context.Context, msg queue.Message) {
	ctx = logger.WithLogFields(ctx, logger.LogFields{
		DocumentID: &msg.DocumentID,
		MessageID:  &msg.ID,
	})

	sc := logger.StartSpanFromTraceID(ctx, msg.TraceID, "worker.process_message",
		trace.WithAttributes(
			attribute.String("document_id", msg.DocumentID),
			attribute.Int("attempt", msg.Attempt),
		))
	defer sc.End()
	ctx = sc.Context()

	slog.InfoContext(ctx, "processing message",
		"attempt", msg.Attempt,
		"last_error", msg.LastError)

	start := time.Now()
	if err := w.processMessageSafe(ctx, msg); err != nil {
		sc.RecordError(err)
		slog.ErrorContext(ctx, "message processing failed",
			"error", err,
			"duration_ms", time.Since(start).Milliseconds())
		w.handleFailedMessage(ctx, msg, err)
		return
	}

	if err := w.consumer.Ack(ctx, msg); err != nil {
		// left pending; the reclaimer redelivers it
		slog.WarnContext(ctx, "failed to ACK message", "error", err)
	}

	slog.InfoContext(ctx, "message processed",
		"duration_ms", time.Since(start).Milliseconds())
}

func (w *Worker) processMessageSafe(ctx context.Context, msg queue.Message) (err error) {
	defer func() {
		if r := recover(); r != nil {
			slog.ErrorContext(ctx, "panic recovered in message processing", "panic", r)
			err = brain.NewRetryableError(fmt.Errorf("panic: %v", r))
		}
	}()
	return w.processor.Process(ctx, msg)
}

func (w *Worker) handleFailedMessage(ctx context.Context, msg queue.Message, err error) {
	retryable := brain.IsRetryable(err)
	if !retryable || msg.Attempt >= w.cfg.MaxAttempts {
		slog.ErrorContext(ctx, "sending message to DLQ",
			"attempts", msg.Attempt,
			"retryable", retryable)
		if dlqErr := w.consumer.SendDLQ(ctx, msg, err.Error()); dlqErr != nil {
			slog.ErrorContext(ctx, "failed to send to DLQ", "error", dlqErr)
			return
		}
		w.markFailed(ctx, msg, err)
		w.discardState(ctx, msg)
		return
	}

	slog.WarnContext(ctx, "requeuing failed message", "attempt", msg.Attempt)
	if requeueErr := w.consumer.Requeue(ctx, msg, err.Error()); requeueErr != nil {
		slog.ErrorContext(ctx, "failed to requeue message", "error", requeueErr)
	}
}

func (w *Worker) markFailed(ctx context.Context, msg queue.Message, cause error) {
	if w.docs == nil {
		return
	}
	errMsg := cause.Error()
	if err := w.docs.SetStatus(ctx, msg.DocumentID, model.DocumentStatusFailed, &errMsg); err != nil {
		slog.ErrorContext(ctx, "failed to mark document failed", "error", err)
	}
}

// discardState drops the checkpoint of a dead-lettered run so a later upload
// of the same document starts clean.
func (w *Worker) discardState(ctx context.Context, msg queue.Message) {
	if w.states == nil {
		return
	}
	if err := w.states.Delete(ctx, msg.DocumentID); err != nil {
		slog.ErrorContext(ctx, "failed to delete pipeline state", "error", err)
	}
}

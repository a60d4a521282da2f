package store

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"prepwise.app/pipeline/common/id"
	"prepwise.app/pipeline/internal/model"
)

// EvalRecord describes one model call to be logged for review.
type EvalRecord struct {
	DocumentID       string
	Stage            string
	Input            string
	Output           any
	Model            string
	PromptVersion    string
	Latency          time.Duration
	PromptTokens     int
	CompletionTokens int
}

// RecordEval writes r to evals. Failures are logged and swallowed: eval
// logging is observability, never the critical path.
func RecordEval(ctx context.Context, evals LLMEvalStore, r EvalRecord) {
	if evals == nil {
		return
	}

	output, err := json.Marshal(r.Output)
	if err != nil {
		slog.ErrorContext(ctx, "failed to marshal model output for eval", "error", err, "stage", r.Stage)
		return
	}

	latency := int(r.Latency.Milliseconds())
	eval := &model.LLMEval{
		ID:               id.New(),
		Stage:            r.Stage,
		InputText:        r.Input,
		OutputJSON:       output,
		Model:            r.Model,
		LatencyMs:        &latency,
		PromptTokens:     &r.PromptTokens,
		CompletionTokens: &r.CompletionTokens,
	}
	if r.DocumentID != "" {
		eval.DocumentID = &r.DocumentID
	}
	if r.PromptVersion != "" {
		eval.PromptVersion = &r.PromptVersion
	}

	if err := evals.Create(ctx, eval); err != nil {
		slog.ErrorContext(ctx, "failed to log eval", "error", err, "stage", r.Stage)
	}
}

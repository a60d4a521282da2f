package store

import (
	"context"
	"fmt"

	"prepwise.app/pipeline/internal/model"
)

type llmEvalStore struct {
	db DBTX
}

func newLLMEvalStore(db DBTX) LLMEvalStore {
	return &llmEvalStore{db: db}
}

func (s *llmEvalStore) Create(ctx context.Context, eval *model.LLMEval) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO llm_evals (id, document_id, stage, input_text, output_json, model,
			prompt_version, latency_ms, prompt_tokens, completion_tokens)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		eval.ID, eval.DocumentID, eval.Stage, eval.InputText, []byte(eval.OutputJSON), eval.Model,
		eval.PromptVersion, eval.LatencyMs, eval.PromptTokens, eval.CompletionTokens)
	if err != nil {
		return fmt.Errorf("inserting llm eval: %w", err)
	}
	return nil
}

func (s *llmEvalStore) ListByDocument(ctx context.Context, documentID string, limit int32) ([]model.LLMEval, error) {
	rows, err := s.db.Query(ctx, `
		SELECT id, document_id, stage, input_text, output_json, model, prompt_version,
			latency_ms, prompt_tokens, completion_tokens, created_at
		FROM llm_evals
		WHERE document_id = $1
		ORDER BY created_at DESC
		LIMIT $2`, documentID, limit)
	if err != nil {
		return nil, fmt.Errorf("listing llm evals: %w", err)
	}
	defer rows.Close()

	evals := []model.LLMEval{}
	for rows.Next() {
		var (
			e      model.LLMEval
			output []byte
		)
		if err := rows.Scan(&e.ID, &e.DocumentID, &e.Stage, &e.InputText, &output, &e.Model,
			&e.PromptVersion, &e.LatencyMs, &e.PromptTokens, &e.CompletionTokens, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning llm eval: %w", err)
		}
		e.OutputJSON = output
		evals = append(evals, e)
	}
	return evals, rows.Err()
}

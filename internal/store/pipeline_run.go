package store

import (
	"context"
	"fmt"
	"time"

	"prepwise.app/pipeline/internal/model"
)

type pipelineRunStore struct {
	db DBTX
}

func newPipelineRunStore(db DBTX) PipelineRunStore {
	return &pipelineRunStore{db: db}
}

func (s *pipelineRunStore) Create(ctx context.Context, run *model.PipelineRun) (*model.PipelineRun, error) {
	var startedAt time.Time
	err := s.db.QueryRow(ctx, `
		INSERT INTO pipeline_runs (id, document_id, attempt, status, error)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING started_at`,
		run.ID, run.DocumentID, run.Attempt, string(run.Status), run.Error,
	).Scan(&startedAt)
	if err != nil {
		return nil, fmt.Errorf("creating pipeline run: %w", err)
	}

	created := *run
	created.StartedAt = startedAt
	return &created, nil
}

func (s *pipelineRunStore) Finish(ctx context.Context, id int64, status model.RunStatus, errMsg *string) error {
	tag, err := s.db.Exec(ctx,
		`UPDATE pipeline_runs SET status = $2, error = $3, finished_at = now() WHERE id = $1`,
		id, string(status), errMsg)
	if err != nil {
		return fmt.Errorf("finishing pipeline run: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *pipelineRunStore) ListByDocument(ctx context.Context, documentID string, limit int32) ([]model.PipelineRun, error) {
	rows, err := s.db.Query(ctx, `
		SELECT id, document_id, attempt, status, error, started_at, finished_at
		FROM pipeline_runs
		WHERE document_id = $1
		ORDER BY started_at DESC
		LIMIT $2`, documentID, limit)
	if err != nil {
		return nil, fmt.Errorf("listing pipeline runs: %w", err)
	}
	defer rows.Close()

	runs := []model.PipelineRun{}
	for rows.Next() {
		var (
			run    model.PipelineRun
			status string
		)
		if err := rows.Scan(&run.ID, &run.DocumentID, &run.Attempt, &status, &run.Error, &run.StartedAt, &run.FinishedAt); err != nil {
			return nil, fmt.Errorf("scanning pipeline run: %w", err)
		}
		run.Status = model.RunStatus(status)
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"prepwise.app/pipeline/internal/model"
)

type documentStore struct {
	db DBTX
}

func newDocumentStore(db DBTX) DocumentStore {
	return &documentStore{db: db}
}

const documentColumns = `id, file_name, url, summary, module, extracted_topics, industry_tasks,
	interview_questions, status, error, created_at, updated_at`

func (s *documentStore) GetByID(ctx context.Context, id string) (*model.Document, error) {
	row := s.db.QueryRow(ctx, `SELECT `+documentColumns+` FROM documents WHERE id = $1`, id)
	doc, err := scanDocument(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("getting document: %w", err)
	}
	return doc, nil
}

// UpsertPending registers an uploaded document, or resets an existing one to
// pending when its event is re-sent.
func (s *documentStore) UpsertPending(ctx context.Context, ref model.DocumentRef) (*model.Document, error) {
	row := s.db.QueryRow(ctx, `
		INSERT INTO documents (id, file_name, url, status)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (id) DO UPDATE SET
			file_name = EXCLUDED.file_name,
			url = EXCLUDED.url,
			status = EXCLUDED.status,
			error = NULL,
			updated_at = now()
		RETURNING `+documentColumns,
		ref.DocumentID, ref.FileName, ref.URL, string(model.DocumentStatusPending))

	doc, err := scanDocument(row)
	if err != nil {
		return nil, fmt.Errorf("upserting document: %w", err)
	}
	return doc, nil
}

func (s *documentStore) UpdateWithExtractedData(ctx context.Context, u model.DocumentUpdate) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO documents (id, file_name, url, summary, module, extracted_topics,
			industry_tasks, interview_questions, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (id) DO UPDATE SET
			file_name = EXCLUDED.file_name,
			summary = EXCLUDED.summary,
			module = EXCLUDED.module,
			extracted_topics = EXCLUDED.extracted_topics,
			industry_tasks = EXCLUDED.industry_tasks,
			interview_questions = EXCLUDED.interview_questions,
			status = EXCLUDED.status,
			error = NULL,
			updated_at = now()`,
		u.ID, u.FileName, u.URL, u.Summary, u.Module, nonNil(u.ExtractedTopics),
		nonNil(u.IndustryTasks), nonNil(u.InterviewQuestions), string(u.Status))
	if err != nil {
		return fmt.Errorf("updating document %s with extracted data: %w", u.ID, err)
	}
	return nil
}

func (s *documentStore) SetStatus(ctx context.Context, id string, status model.DocumentStatus, errMsg *string) error {
	tag, err := s.db.Exec(ctx,
		`UPDATE documents SET status = $2, error = $3, updated_at = now() WHERE id = $1`,
		id, string(status), errMsg)
	if err != nil {
		return fmt.Errorf("setting document status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func scanDocument(row pgx.Row) (*model.Document, error) {
	var (
		doc    model.Document
		status string
	)
	if err := row.Scan(
		&doc.ID,
		&doc.FileName,
		&doc.URL,
		&doc.Summary,
		&doc.Module,
		&doc.ExtractedTopics,
		&doc.IndustryTasks,
		&doc.InterviewQuestions,
		&status,
		&doc.Error,
		&doc.CreatedAt,
		&doc.UpdatedAt,
	); err != nil {
		return nil, err
	}
	doc.Status = model.DocumentStatus(status)
	return &doc, nil
}

// nonNil keeps NOT NULL array columns from receiving NULL.
func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

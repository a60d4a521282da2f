package brain

import (
	"context"
	"fmt"
	"log/slog"

	"prepwise.app/pipeline/internal/model"
)

// DocumentWriter is the document database mutation. It must be an upsert
// keyed by document ID.
type DocumentWriter interface {
	UpdateWithExtractedData(ctx context.Context, update model.DocumentUpdate) error
}

type PersistenceAgent struct {
	docs DocumentWriter
}

func NewPersistenceAgent(docs DocumentWriter) *PersistenceAgent {
	return &PersistenceAgent{docs: docs}
}

// Run writes the flattened record. A database failure is reported in the
// envelope and leaves SavedToDatabase unset so a retry re-enters here.
func (a *PersistenceAgent) Run(ctx context.Context, state *model.PipelineState) (*AgentOutput, error) {
	if state.ExtractedData == nil {
		return nil, NewFatalError(fmt.Errorf("persistence: %w", ErrNoExtractedData))
	}

	update := BuildDocumentUpdate(state)

	if err := a.docs.UpdateWithExtractedData(ctx, update); err != nil {
		slog.ErrorContext(ctx, "failed to save document", "error", err)
		return failed(fmt.Errorf("saving document: %w", err)), nil
	}

	state.SavedToDatabase = true

	slog.InfoContext(ctx, "document saved",
		"topics", len(update.ExtractedTopics),
		"projects", len(update.IndustryTasks),
		"questions", len(update.InterviewQuestions))

	return succeeded(update.Summary, map[string]int{
		"topics":    len(update.ExtractedTopics),
		"projects":  len(update.IndustryTasks),
		"questions": len(update.InterviewQuestions),
	}), nil
}

// BuildDocumentUpdate flattens the state into the document record. Missing
// catalogs flatten to empty lists.
func BuildDocumentUpdate(state *model.PipelineState) model.DocumentUpdate {
	data := state.ExtractedData
	tasks := state.IndustryTasks.Flatten()
	questions := state.InterviewQuestions.Flatten()

	return model.DocumentUpdate{
		ID:                 state.DocumentID,
		FileName:           state.FileName,
		URL:                state.DocumentURL,
		Summary:            fmt.Sprintf("%s: %d topics, %d projects, %d questions", data.AcademicModule, len(data.CoreTopics), len(tasks), len(questions)),
		ExtractedTopics:    append([]string{}, data.CoreTopics...),
		Module:             data.AcademicModule,
		IndustryTasks:      tasks,
		InterviewQuestions: questions,
		Status:             model.DocumentStatusCompleted,
	}
}

package brain

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"prepwise.app/pipeline/internal/model"
)

// DocumentAnalyzer is the document-analysis collaborator.
type DocumentAnalyzer interface {
	Analyze(ctx context.Context, ref model.DocumentRef) (*model.ExtractedDocumentData, error)
}

type ExtractionAgent struct {
	analyzer DocumentAnalyzer
}

func NewExtractionAgent(analyzer DocumentAnalyzer) *ExtractionAgent {
	return &ExtractionAgent{analyzer: analyzer}
}

// Run writes ExtractedData to state. Every failure is fatal: the analyzer
// already degrades internally, so an error here means no profile exists.
func (a *ExtractionAgent) Run(ctx context.Context, state *model.PipelineState) (*AgentOutput, error) {
	if state.ExtractedData != nil {
		return succeeded("extracted data already present", nil), nil
	}

	ref := state.Ref()
	if err := validateRef(ref); err != nil {
		return nil, NewFatalError(err)
	}

	data, err := a.analyzer.Analyze(ctx, ref)
	if err != nil {
		return nil, NewFatalError(fmt.Errorf("analyzing document: %w", err))
	}
	if data == nil || len(data.CoreTopics) == 0 {
		return nil, NewFatalError(errors.New("document analysis returned no core topics"))
	}

	state.ExtractedData = data

	slog.InfoContext(ctx, "document extracted",
		"module", data.AcademicModule,
		"topics", len(data.CoreTopics),
		"source", data.Source)

	return succeeded("extracted "+data.AcademicModule, map[string]int{
		"topics": len(data.CoreTopics),
	}), nil
}

func validateRef(ref model.DocumentRef) error {
	var missing []string
	if ref.DocumentID == "" {
		missing = append(missing, "documentId")
	}
	if ref.URL == "" {
		missing = append(missing, "url")
	}
	if ref.FileName == "" {
		missing = append(missing, "fileName")
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: %v", ErrMissingDocumentRef, missing)
	}
	return nil
}

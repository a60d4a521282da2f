package model

import "time"

// PipelineState is the blackboard for one document run. Every artifact is an
// optional field: presence marks the producing stage as complete, and a field
// once set is never re-derived by another agent.
type PipelineState struct {
	DocumentURL string `json:"documentUrl"`
	DocumentID  string `json:"documentId"`
	FileName    string `json:"fileName"`

	ExtractedData      *ExtractedDocumentData `json:"extractedData,omitempty"`
	IndustryTasks      *TaskCatalog           `json:"industryTasks,omitempty"`
	InterviewQuestions *QuestionCatalog       `json:"interviewQuestions,omitempty"`

	SavedToDatabase   bool `json:"savedToDatabase"`
	ProcessingStarted bool `json:"processingStarted"`

	Iterations int       `json:"iterations"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

func NewPipelineState(ref DocumentRef) *PipelineState {
	return &PipelineState{
		DocumentURL: ref.URL,
		DocumentID:  ref.DocumentID,
		FileName:    ref.FileName,
	}
}

func (s *PipelineState) Ref() DocumentRef {
	return DocumentRef{DocumentID: s.DocumentID, URL: s.DocumentURL, FileName: s.FileName}
}

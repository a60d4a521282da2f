package dto

import (
	"strconv"
	"time"

	"prepwise.app/pipeline/internal/model"
)

// IngestDocumentRequest is the document-uploaded trigger.
type IngestDocumentRequest struct {
	DocumentID string `json:"documentId" binding:"required"`
	URL        string `json:"url" binding:"required"`
	FileName   string `json:"fileName" binding:"required"`
}

type IngestDocumentResponse struct {
	DocumentID string `json:"documentId"`
	Enqueued   bool   `json:"enqueued"`
}

type DocumentResponse struct {
	ID                 string    `json:"id"`
	FileName           string    `json:"fileName"`
	URL                string    `json:"url"`
	Status             string    `json:"status"`
	Summary            *string   `json:"summary,omitempty"`
	Module             *string   `json:"module,omitempty"`
	ExtractedTopics    []string  `json:"extractedTopics"`
	IndustryTasks      []string  `json:"industryTasks"`
	InterviewQuestions []string  `json:"interviewQuestions"`
	Error              *string   `json:"error,omitempty"`
	CreatedAt          time.Time `json:"createdAt"`
	UpdatedAt          time.Time `json:"updatedAt"`
}

type PipelineRunResponse struct {
	ID         string     `json:"id"`
	Attempt    int32      `json:"attempt"`
	Status     string     `json:"status"`
	Error      *string    `json:"error,omitempty"`
	StartedAt  time.Time  `json:"startedAt"`
	FinishedAt *time.Time `json:"finishedAt,omitempty"`
}

type ListRunsResponse struct {
	DocumentID string                `json:"documentId"`
	Runs       []PipelineRunResponse `json:"runs"`
}

func ToDocumentResponse(doc *model.Document) DocumentResponse {
	return DocumentResponse{
		ID:                 doc.ID,
		FileName:           doc.FileName,
		URL:                doc.URL,
		Status:             string(doc.Status),
		Summary:            doc.Summary,
		Module:             doc.Module,
		ExtractedTopics:    nonNil(doc.ExtractedTopics),
		IndustryTasks:      nonNil(doc.IndustryTasks),
		InterviewQuestions: nonNil(doc.InterviewQuestions),
		Error:              doc.Error,
		CreatedAt:          doc.CreatedAt,
		UpdatedAt:          doc.UpdatedAt,
	}
}

// Snowflake IDs are rendered as strings; they overflow JavaScript numbers.
func ToPipelineRunResponse(run model.PipelineRun) PipelineRunResponse {
	return PipelineRunResponse{
		ID:         strconv.FormatInt(run.ID, 10),
		Attempt:    run.Attempt,
		Status:     string(run.Status),
		Error:      run.Error,
		StartedAt:  run.StartedAt,
		FinishedAt: run.FinishedAt,
	}
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

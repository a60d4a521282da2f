package model

import "time"

type RunStatus string

const (
	RunStatusRunning   RunStatus = "running"
	RunStatusCompleted RunStatus = "completed"
	RunStatusFailed    RunStatus = "failed"
)

// PipelineRun records one delivery of a document event to the worker.
type PipelineRun struct {
	ID         int64      `json:"id"`
	DocumentID string     `json:"documentId"`
	Attempt    int32      `json:"attempt"`
	Status     RunStatus  `json:"status"`
	Error      *string    `json:"error,omitempty"`
	StartedAt  time.Time  `json:"startedAt"`
	FinishedAt *time.Time `json:"finishedAt,omitempty"`
}

package brain

import (
	"context"

	"prepwise.app/pipeline/internal/model"
)

// Agent performs one pipeline stage against the run's state.
//
// A returned error aborts the run. A non-nil output with Success false is a
// reported failure: the run stops without the stage's completion mark, so a
// retry re-enters at the same stage.
type Agent interface {
	Run(ctx context.Context, state *model.PipelineState) (*AgentOutput, error)
}

// AgentOutput is the envelope each agent returns to the runner.
type AgentOutput struct {
	Success bool           `json:"success"`
	Message string         `json:"message,omitempty"`
	Error   string         `json:"error,omitempty"`
	Counts  map[string]int `json:"counts,omitempty"`
}

func succeeded(message string, counts map[string]int) *AgentOutput {
	return &AgentOutput{Success: true, Message: message, Counts: counts}
}

func failed(err error) *AgentOutput {
	return &AgentOutput{Success: false, Error: err.Error()}
}

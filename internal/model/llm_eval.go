package model

import (
	"encoding/json"
	"time"
)

// LLMEval captures one model call for offline quality review.
type LLMEval struct {
	ID               int64           `json:"id"`
	DocumentID       *string         `json:"documentId,omitempty"`
	Stage            string          `json:"stage"`
	InputText        string          `json:"inputText"`
	OutputJSON       json.RawMessage `json:"outputJson"`
	Model            string          `json:"model"`
	PromptVersion    *string         `json:"promptVersion,omitempty"`
	LatencyMs        *int            `json:"latencyMs,omitempty"`
	PromptTokens     *int            `json:"promptTokens,omitempty"`
	CompletionTokens *int            `json:"completionTokens,omitempty"`
	CreatedAt        time.Time       `json:"createdAt"`
}

package logger

import "context"

type contextKey string

const logFieldsKey contextKey = "log_fields"

// LogFields contains structured fields automatically added to all logs within a context.
// Fields flow through context enrichment so agents never pass document or run IDs
// to slog calls explicitly.
type LogFields struct {
	DocumentID *string // Document being processed
	RunID      *int64  // Pipeline run ID (one per stream delivery)
	MessageID  *string // Redis stream message ID
	Agent      *string // Agent currently invoked by the network
	Topic      *string // Core topic during per-topic generation
	Component  string  // Component name, e.g. "pipeline.brain.network"
}

// WithLogFields enriches context with structured log fields.
// Multiple calls merge fields, with newer non-nil/non-empty values taking precedence.
func WithLogFields(ctx context.Context, fields LogFields) context.Context {
	existing := GetLogFields(ctx)
	merged := mergeFields(existing, fields)
	return context.WithValue(ctx, logFieldsKey, merged)
}

// GetLogFields retrieves log fields from context.
// Returns empty LogFields if none are set.
func GetLogFields(ctx context.Context) LogFields {
	if fields, ok := ctx.Value(logFieldsKey).(LogFields); ok {
		return fields
	}
	return LogFields{}
}

func mergeFields(existing, new LogFields) LogFields {
	result := existing

	if new.DocumentID != nil {
		result.DocumentID = new.DocumentID
	}
	if new.RunID != nil {
		result.RunID = new.RunID
	}
	if new.MessageID != nil {
		result.MessageID = new.MessageID
	}
	if new.Agent != nil {
		result.Agent = new.Agent
	}
	if new.Topic != nil {
		result.Topic = new.Topic
	}
	if new.Component != "" {
		result.Component = new.Component
	}

	return result
}

// Ptr is a helper to create a pointer from a value.
// Useful for setting LogFields inline: logger.WithLogFields(ctx, logger.LogFields{DocumentID: logger.Ptr(id)})
func Ptr[T any](v T) *T {
	return &v
}

// Truncate truncates a string to maxLen characters, appending "..." if truncated.
func Truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}

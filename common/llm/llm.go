package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/invopop/jsonschema"
)

func GenerateSchema[T any]() any {
	reflector := jsonschema.Reflector{
		AllowAdditionalProperties: false,
		DoNotReference:            true,
	}
	var v T
	return reflector.Reflect(v)
}

// SchemaPrompt renders a schema as indented JSON for inclusion in a free-text
// prompt. Generation prompts ask for a bare JSON payload and show the model
// the shape it must follow.
func SchemaPrompt(schema any) string {
	data, err := json.MarshalIndent(schema, "", "  ")
	if err != nil {
		return "{}"
	}
	return string(data)
}

// RetryPolicy bounds retries of a single model call.
type RetryPolicy struct {
	Attempts  int
	BaseDelay time.Duration // doubled after every failed attempt
}

// DefaultRetryPolicy makes 3 attempts, waiting 1s then 2s between them.
var DefaultRetryPolicy = RetryPolicy{Attempts: 3, BaseDelay: time.Second}

// GenerateWithRetry calls Generate until it succeeds, the error is not
// retryable, or the policy is exhausted.
func GenerateWithRetry(ctx context.Context, client Client, req Request, policy RetryPolicy) (*Response, error) {
	attempts := policy.Attempts
	if attempts <= 0 {
		attempts = 1
	}

	var (
		lastErr error
		made    int
	)
	for attempt := 0; attempt < attempts; attempt++ {
		made++
		resp, err := client.Generate(ctx, req)
		if err == nil {
			return resp, nil
		}
		lastErr = err

		if !IsRetryable(ctx, err) || attempt == attempts-1 {
			break
		}

		delay := policy.BaseDelay * time.Duration(1<<attempt)
		slog.WarnContext(ctx, "llm generate retry",
			"attempt", attempt+1,
			"delay_ms", delay.Milliseconds(),
			"error", err)

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(delay):
		}
	}

	return nil, fmt.Errorf("generate after %d attempt(s): %w", made, lastErr)
}

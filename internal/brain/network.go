package brain

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"prepwise.app/pipeline/common/logger"
	"prepwise.app/pipeline/internal/model"
	"prepwise.app/pipeline/internal/store"
)

const defaultMaxIterations = 10

// Network drives one document through the agents: route, invoke, checkpoint,
// repeat until the router returns Done. Agents run strictly one at a time.
type Network struct {
	Name          string
	Agents        map[AgentRef]Agent
	Router        Router
	States        store.StateStore
	MaxIterations int
}

type Agents struct {
	Extraction  Agent
	Tasks       Agent
	Questions   Agent
	Persistence Agent
}

func NewNetwork(name string, agents Agents, states store.StateStore, maxIterations int) *Network {
	if maxIterations <= 0 {
		maxIterations = defaultMaxIterations
	}
	return &Network{
		Name: name,
		Agents: map[AgentRef]Agent{
			ExtractionAgentRef:  agents.Extraction,
			TaskAgentRef:        agents.Tasks,
			QuestionAgentRef:    agents.Questions,
			PersistenceAgentRef: agents.Persistence,
		},
		Router:        Route,
		States:        states,
		MaxIterations: maxIterations,
	}
}

// Run processes ref to completion. A checkpoint left by an earlier attempt
// is resumed, so stages already reflected in state are skipped. The returned
// state is the latest checkpoint even when err is non-nil.
func (n *Network) Run(ctx context.Context, ref model.DocumentRef) (*model.PipelineState, error) {
	if err := validateRef(ref); err != nil {
		return nil, NewFatalError(err)
	}

	ctx = logger.WithLogFields(ctx, logger.LogFields{
		DocumentID: &ref.DocumentID,
		Component:  "pipeline.brain.network",
	})

	sc := logger.StartSpan(ctx, "brain.network.run",
		trace.WithAttributes(
			attribute.String("network", n.Name),
			attribute.String("document_id", ref.DocumentID),
		))
	defer sc.End()
	ctx = sc.Context()

	state, err := n.loadState(ctx, ref)
	if err != nil {
		sc.RecordError(err)
		return nil, err
	}

	router := n.Router
	if router == nil {
		router = Route
	}

	for steps := 0; ; steps++ {
		next := router(state)
		if next == Done {
			break
		}

		if steps >= n.MaxIterations {
			err := NewRetryableError(fmt.Errorf("%w: %d steps, next %s", ErrMaxIterations, steps, next))
			sc.RecordError(err)
			return state, err
		}

		if MarkStarted(state) {
			slog.InfoContext(ctx, "processing started", "network", n.Name)
		}

		out, err := n.invoke(ctx, next, state)
		if err != nil {
			sc.RecordError(err)
			if !IsRetryable(err) {
				n.discard(ctx, ref.DocumentID)
			}
			return state, err
		}

		state.Iterations++
		state.UpdatedAt = time.Now().UTC()
		if err := n.States.Save(ctx, state); err != nil {
			err = NewRetryableError(fmt.Errorf("checkpointing state after %s: %w", next, err))
			sc.RecordError(err)
			return state, err
		}

		if !out.Success {
			err := NewRetryableError(fmt.Errorf("%s reported failure: %s", next, out.Error))
			sc.RecordError(err)
			return state, err
		}
	}

	n.discard(ctx, ref.DocumentID)

	sc.SetAttributes(attribute.Int("iterations", state.Iterations))
	slog.InfoContext(ctx, "network run completed", "iterations", state.Iterations)

	return state, nil
}

func (n *Network) loadState(ctx context.Context, ref model.DocumentRef) (*model.PipelineState, error) {
	state, err := n.States.Load(ctx, ref.DocumentID)
	if errors.Is(err, store.ErrNotFound) {
		return model.NewPipelineState(ref), nil
	}
	if err != nil {
		return nil, NewRetryableError(fmt.Errorf("loading state: %w", err))
	}

	if state.Ref() != ref {
		slog.WarnContext(ctx, "discarding checkpoint for a different document reference",
			"checkpoint_url", state.DocumentURL,
			"checkpoint_file_name", state.FileName)
		if err := n.States.Delete(ctx, ref.DocumentID); err != nil {
			return nil, NewRetryableError(fmt.Errorf("discarding stale state: %w", err))
		}
		return model.NewPipelineState(ref), nil
	}

	slog.InfoContext(ctx, "resuming from checkpoint",
		"iterations", state.Iterations,
		"next", Route(state).String())
	return state, nil
}

// discard drops the checkpoint once a run has completed or cannot continue.
func (n *Network) discard(ctx context.Context, documentID string) {
	if err := n.States.Delete(ctx, documentID); err != nil {
		slog.WarnContext(ctx, "failed to delete pipeline state", "error", err)
	}
}

func (n *Network) invoke(ctx context.Context, ref AgentRef, state *model.PipelineState) (out *AgentOutput, err error) {
	agent, ok := n.Agents[ref]
	if !ok || agent == nil {
		return nil, NewFatalError(fmt.Errorf("no agent registered for %s", ref))
	}

	name := ref.String()
	ctx = logger.WithLogFields(ctx, logger.LogFields{Agent: &name})

	sc := logger.StartSpan(ctx, "brain.agent."+name)
	defer sc.End()
	ctx = sc.Context()

	start := time.Now()
	slog.InfoContext(ctx, "invoking agent")

	out, err = agent.Run(ctx, state)
	if err != nil {
		sc.RecordError(err)
		slog.ErrorContext(ctx, "agent failed",
			"error", err,
			"retryable", IsRetryable(err),
			"duration_ms", time.Since(start).Milliseconds())
		return nil, err
	}
	if out == nil {
		out = succeeded("", nil)
	}

	slog.InfoContext(ctx, "agent finished",
		"success", out.Success,
		"message", out.Message,
		"duration_ms", time.Since(start).Milliseconds())
	return out, nil
}

package store

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"prepwise.app/pipeline/internal/model"
)

// MemoryStateStore is a process-local StateStore for the CLI and tests.
// States are stored as JSON so callers never share pointers with the store.
type MemoryStateStore struct {
	mu     sync.Mutex
	states map[string][]byte
}

func NewMemoryStateStore() *MemoryStateStore {
	return &MemoryStateStore{states: make(map[string][]byte)}
}

func (s *MemoryStateStore) Load(_ context.Context, documentID string) (*model.PipelineState, error) {
	s.mu.Lock()
	data, ok := s.states[documentID]
	s.mu.Unlock()
	if !ok {
		return nil, ErrNotFound
	}

	var state model.PipelineState
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, fmt.Errorf("unmarshal pipeline state: %w", err)
	}
	return &state, nil
}

func (s *MemoryStateStore) Save(_ context.Context, state *model.PipelineState) error {
	state.UpdatedAt = time.Now().UTC()
	data, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("marshal pipeline state: %w", err)
	}

	s.mu.Lock()
	s.states[state.DocumentID] = data
	s.mu.Unlock()
	return nil
}

func (s *MemoryStateStore) Delete(_ context.Context, documentID string) error {
	s.mu.Lock()
	delete(s.states, documentID)
	s.mu.Unlock()
	return nil
}

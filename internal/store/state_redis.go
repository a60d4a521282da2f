package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"prepwise.app/pipeline/internal/model"
)

const (
	defaultStatePrefix = "pipeline:"
	activeStatesKey    = "states:active"
)

// RedisStateStore keeps one JSON blackboard per document with a TTL, plus a
// set of document IDs whose runs have not reached persistence yet.
type RedisStateStore struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

type RedisStateOptions struct {
	Prefix string        // default "pipeline:"
	TTL    time.Duration // 0 keeps state until the run completes
}

func NewRedisStateStore(client *redis.Client, opts RedisStateOptions) *RedisStateStore {
	prefix := opts.Prefix
	if prefix == "" {
		prefix = defaultStatePrefix
	}
	return &RedisStateStore{
		client: client,
		prefix: prefix,
		ttl:    opts.TTL,
	}
}

func (s *RedisStateStore) stateKey(documentID string) string {
	return fmt.Sprintf("%sstate:%s", s.prefix, documentID)
}

func (s *RedisStateStore) activeKey() string {
	return s.prefix + activeStatesKey
}

func (s *RedisStateStore) Load(ctx context.Context, documentID string) (*model.PipelineState, error) {
	data, err := s.client.Get(ctx, s.stateKey(documentID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("loading pipeline state: %w", err)
	}

	var state model.PipelineState
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, fmt.Errorf("unmarshal pipeline state: %w", err)
	}
	return &state, nil
}

func (s *RedisStateStore) Save(ctx context.Context, state *model.PipelineState) error {
	if state.DocumentID == "" {
		return fmt.Errorf("pipeline state has no document id")
	}

	state.UpdatedAt = time.Now().UTC()
	data, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("marshal pipeline state: %w", err)
	}

	pipe := s.client.TxPipeline()
	pipe.Set(ctx, s.stateKey(state.DocumentID), data, s.ttl)
	if state.SavedToDatabase {
		pipe.SRem(ctx, s.activeKey(), state.DocumentID)
	} else {
		pipe.SAdd(ctx, s.activeKey(), state.DocumentID)
	}

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("saving pipeline state: %w", err)
	}
	return nil
}

func (s *RedisStateStore) Delete(ctx context.Context, documentID string) error {
	pipe := s.client.TxPipeline()
	pipe.Del(ctx, s.stateKey(documentID))
	pipe.SRem(ctx, s.activeKey(), documentID)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("deleting pipeline state: %w", err)
	}
	return nil
}

// ListActive returns document IDs with a checkpoint that has not reached
// persistence. Entries whose state expired are pruned.
func (s *RedisStateStore) ListActive(ctx context.Context) ([]string, error) {
	ids, err := s.client.SMembers(ctx, s.activeKey()).Result()
	if err != nil {
		return nil, fmt.Errorf("listing active states: %w", err)
	}

	active := make([]string, 0, len(ids))
	for _, id := range ids {
		n, err := s.client.Exists(ctx, s.stateKey(id)).Result()
		if err != nil {
			return nil, fmt.Errorf("checking state %s: %w", id, err)
		}
		if n == 0 {
			s.client.SRem(ctx, s.activeKey(), id)
			continue
		}
		active = append(active, id)
	}
	return active, nil
}

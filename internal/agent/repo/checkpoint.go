package repo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/dinewise-core/server/internal/agent/model"
	errx "github.com/dinewise-core/server/internal/core/error"
	logx "github.com/dinewise-core/server/pkg/logger"
)

// RedisCheckpointer stores one JSON ThreadState per thread identifier.
type RedisCheckpointer struct {
	rdb redis.Cmdable
	ttl time.Duration
}

// NewRedisCheckpointer returns a checkpointer whose records expire after
// ttl of inactivity; ttl <= 0 keeps them until deleted externally.
func NewRedisCheckpointer(rdb redis.Cmdable, ttl time.Duration) *RedisCheckpointer {
	return &RedisCheckpointer{rdb: rdb, ttl: ttl}
}

func (r *RedisCheckpointer) checkpointKey(threadID string) string {
	return fmt.Sprintf("checkpoint:%s:state", threadID)
}

func (r *RedisCheckpointer) Load(ctx context.Context, threadID string) (*model.ThreadState, error) {
	key := r.checkpointKey(threadID)
	raw, err := r.rdb.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return &model.ThreadState{ThreadID: threadID}, nil
		}
		logx.Error().Err(err).Str("key", key).Msg("failed to load checkpoint from redis")
		return nil, errx.WrapRedis(err)
	}

	var s model.ThreadState
	if err := json.Unmarshal(raw, &s); err != nil {
		logx.Error().Err(err).Str("thread_id", threadID).Msg("failed to unmarshal checkpoint")
		return nil, fmt.Errorf("unmarshal checkpoint: %w", err)
	}
	s.ThreadID = threadID
	return &s, nil
}

func (r *RedisCheckpointer) Save(ctx context.Context, s *model.ThreadState) error {
	if s == nil || s.ThreadID == "" {
		return fmt.Errorf("checkpoint requires a thread id")
	}
	b, err := json.Marshal(s)
	if err != nil {
		logx.Error().Err(err).Str("thread_id", s.ThreadID).Msg("failed to marshal checkpoint")
		return fmt.Errorf("marshal checkpoint: %w", err)
	}
	key := r.checkpointKey(s.ThreadID)
	// a zero expiration keeps the key forever
	if err := r.rdb.Set(ctx, key, b, max(r.ttl, 0)).Err(); err != nil {
		logx.Error().Err(err).Str("key", key).Msg("failed to save checkpoint to redis")
		return errx.WrapRedis(err)
	}
	return nil
}

// MemoryCheckpointer keeps checkpoints in process memory. States are
// stored as JSON so callers never share message pointers across turns.
type MemoryCheckpointer struct {
	mu     sync.RWMutex
	states map[string][]byte
}

func NewMemoryCheckpointer() *MemoryCheckpointer {
	return &MemoryCheckpointer{states: make(map[string][]byte)}
}

func (m *MemoryCheckpointer) Load(_ context.Context, threadID string) (*model.ThreadState, error) {
	m.mu.RLock()
	raw, ok := m.states[threadID]
	m.mu.RUnlock()
	if !ok {
		return &model.ThreadState{ThreadID: threadID}, nil
	}
	var s model.ThreadState
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil, fmt.Errorf("unmarshal checkpoint: %w", err)
	}
	return &s, nil
}

func (m *MemoryCheckpointer) Save(_ context.Context, s *model.ThreadState) error {
	if s == nil || s.ThreadID == "" {
		return fmt.Errorf("checkpoint requires a thread id")
	}
	b, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("marshal checkpoint: %w", err)
	}
	m.mu.Lock()
	m.states[s.ThreadID] = b
	m.mu.Unlock()
	return nil
}

var (
	_ model.Checkpointer = (*RedisCheckpointer)(nil)
	_ model.Checkpointer = (*MemoryCheckpointer)(nil)
)

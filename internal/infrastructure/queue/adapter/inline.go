package adapter

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"birdconnect/internal/infrastructure/queue/port"
)

// InlineQueue is both a port.Client and a port.Server that runs handlers
// synchronously inside Enqueue. It stands in for asynq when no Redis is
// configured. There are no retries. UniqueTTL holds a lock on the task while
// its handler runs, released on completion or when the TTL lapses.
type InlineQueue struct {
	mu       sync.RWMutex
	handlers map[string]port.Handler
	inflight map[string]time.Time // unique key -> lock expiry
}

var (
	_ port.Client = (*InlineQueue)(nil)
	_ port.Server = (*InlineQueue)(nil)
)

func NewInlineQueue() *InlineQueue {
	return &InlineQueue{
		handlers: make(map[string]port.Handler),
		inflight: make(map[string]time.Time),
	}
}

func (q *InlineQueue) Register(taskType string, h port.Handler) {
	q.mu.Lock()
	q.handlers[taskType] = h
	q.mu.Unlock()
}

func (q *InlineQueue) Enqueue(ctx context.Context, t port.Task, opts ...port.EnqueueOption) (string, error) {
	if t.Type == "" {
		return "", errors.New("inline queue: task type is required")
	}
	q.mu.RLock()
	h, ok := q.handlers[t.Type]
	q.mu.RUnlock()
	if !ok {
		return "", fmt.Errorf("inline queue: no handler for %q", t.Type)
	}

	if len(opts) > 0 && opts[0].UniqueTTL > 0 {
		key := t.Type + "\x00" + string(t.Payload)
		if !q.lock(key, opts[0].UniqueTTL) {
			return "", fmt.Errorf("inline queue: %s: %w", t.Type, port.ErrDuplicateTask)
		}
		defer q.unlock(key)
	}

	if err := h(ctx, t); err != nil {
		return "", err
	}
	return uuid.NewString(), nil
}

func (q *InlineQueue) lock(key string, ttl time.Duration) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	now := time.Now()
	if exp, held := q.inflight[key]; held && now.Before(exp) {
		return false
	}
	q.inflight[key] = now.Add(ttl)
	return true
}

func (q *InlineQueue) unlock(key string) {
	q.mu.Lock()
	delete(q.inflight, key)
	q.mu.Unlock()
}

// Run blocks until ctx is canceled; work happens in Enqueue.
func (q *InlineQueue) Run(ctx context.Context) error {
	<-ctx.Done()
	return nil
}

func (q *InlineQueue) Stop(context.Context) error { return nil }

func (q *InlineQueue) Close() error { return nil }

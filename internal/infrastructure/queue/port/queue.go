package port

import (
	"context"
	"errors"
	"time"
)

// ErrDuplicateTask is returned by Enqueue when a task with the same type and
// payload is still held under its UniqueTTL.
var ErrDuplicateTask = errors.New("queue: duplicate task")

// Task is a background job: a stable type name plus payload bytes whose
// encoding belongs to the producer and the registered handler.
type Task struct {
	Type    string
	Payload []byte
}

// Handler processes a Task. A non-nil error lets the adapter retry, so
// handlers must be idempotent.
type Handler func(ctx context.Context, task Task) error

// EnqueueOption controls delivery of one task. Zero values leave the
// adapter default in place.
type EnqueueOption struct {
	Queue     string        // logical queue name
	MaxRetry  int           // retries after the first failed attempt
	UniqueTTL time.Duration // reject an identical task while the lock is held
}

// Client enqueues tasks for background processing.
type Client interface {
	Enqueue(ctx context.Context, t Task, opts ...EnqueueOption) (id string, err error)
	Close() error
}

// Server runs the workers. Run blocks until ctx is cancelled or Stop is called.
type Server interface {
	Register(taskType string, h Handler)
	Run(ctx context.Context) error
	Stop(ctx context.Context) error
}

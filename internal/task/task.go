package task

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// JobType identifies the handler for a job.
type JobType string

// Job types
const (
	JobTypeGenerateEmbedding JobType = "generate_embedding"
	JobTypeProcessImage      JobType = "process_image"
	JobTypeClusterBoard      JobType = "cluster_board"
	JobTypeHeartbeat         JobType = "heartbeat"
)

// RetryPolicy bounds queue-level redelivery of a failed job.
type RetryPolicy struct {
	MaxAttempts int
	RetryDelay  time.Duration
}

// DefaultPolicies are the queue-level retry policies per job type.
var DefaultPolicies = map[JobType]RetryPolicy{
	JobTypeGenerateEmbedding: {MaxAttempts: 3, RetryDelay: 5 * time.Second},
	JobTypeProcessImage:      {MaxAttempts: 3, RetryDelay: 5 * time.Second},
	JobTypeClusterBoard:      {MaxAttempts: 3, RetryDelay: 10 * time.Second},
	JobTypeHeartbeat:         {MaxAttempts: 1, RetryDelay: 0},
}

// Job is a typed unit of deferred work. Attempt is incremented by the broker
// on every dispatch.
type Job struct {
	ID          string          `json:"id"`
	Type        JobType         `json:"type"`
	Payload     json.RawMessage `json:"payload"`
	Attempt     int             `json:"attempt"`
	MaxAttempts int             `json:"max_attempts"`
	RetryDelay  time.Duration   `json:"retry_delay"`
	EnqueuedAt  time.Time       `json:"enqueued_at"`

	// Receipt identifies this delivery to the broker that produced it.
	Receipt string `json:"-"`
}

// NewJob builds a job of type t carrying payload, with the type's default policy.
func NewJob(t JobType, payload any) (*Job, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal %s payload: %w", t, err)
	}

	policy, ok := DefaultPolicies[t]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownJobType, t)
	}

	return &Job{
		ID:          uuid.NewString(),
		Type:        t,
		Payload:     data,
		MaxAttempts: policy.MaxAttempts,
		RetryDelay:  policy.RetryDelay,
		EnqueuedAt:  time.Now().UTC(),
	}, nil
}

// Handler executes one job type.
type Handler interface {
	Handle(ctx context.Context, job *Job) error
}

// HandlerFunc adapts a function to Handler.
type HandlerFunc func(ctx context.Context, job *Job) error

// Handle implements Handler.
func (f HandlerFunc) Handle(ctx context.Context, job *Job) error {
	return f(ctx, job)
}

// Broker is a durable at-least-once job queue.
type Broker interface {
	// Enqueue makes job available to consumers.
	Enqueue(ctx context.Context, job *Job) error

	// Dequeue waits up to timeout for a job and returns nil, nil when none
	// arrived. The returned job's Attempt has been incremented.
	Dequeue(ctx context.Context, timeout time.Duration) (*Job, error)

	// Ack settles a dequeued job for good.
	Ack(ctx context.Context, job *Job) error

	// Retry settles a dequeued job and makes it available again after delay.
	Retry(ctx context.Context, job *Job, delay time.Duration) error
}

// Recoverer is implemented by brokers that can hand back deliveries a
// previous consumer took but never settled.
type Recoverer interface {
	Recover(ctx context.Context) (int, error)
}

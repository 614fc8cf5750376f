package task

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

const testJobType JobType = "test"

// newTestJob builds a job that bypasses DefaultPolicies.
func newTestJob(t JobType, maxAttempts int, retryDelay time.Duration) *Job {
	return &Job{
		ID:          uuid.NewString(),
		Type:        t,
		Payload:     json.RawMessage(`{}`),
		MaxAttempts: maxAttempts,
		RetryDelay:  retryDelay,
		EnqueuedAt:  time.Now().UTC(),
	}
}

// jobFor builds a job of type t with payload and a delivery attempt of 1.
func jobFor(t *testing.T, jt JobType, payload any) *Job {
	t.Helper()
	job, err := NewJob(jt, payload)
	require.NoError(t, err)
	job.Attempt = 1
	return job
}

func testPoolConfig() PoolConfig {
	return PoolConfig{
		Concurrency:     2,
		PollTimeout:     10 * time.Millisecond,
		JobTimeout:      time.Second,
		ShutdownTimeout: time.Second,
	}
}

// startPool runs p until the returned stop function is called; stop returns Run's error.
func startPool(t *testing.T, p *Pool) (stop func() error) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- p.Run(ctx) }()

	var stopped bool
	var runErr error
	stop = func() error {
		if !stopped {
			stopped = true
			cancel()
			select {
			case runErr = <-errCh:
			case <-time.After(5 * time.Second):
				t.Fatal("pool did not stop")
			}
		}
		return runErr
	}
	t.Cleanup(func() { _ = stop() })
	return stop
}

package task

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"
)

// MemoryBroker is an in-process Broker for tests and single-process use.
// Jobs do not survive a restart.
type MemoryBroker struct {
	mu       sync.Mutex
	ready    [][]byte
	inflight map[string][]byte
	delayed  int
	closed   bool
	notify   chan struct{}
}

var (
	_ Broker    = (*MemoryBroker)(nil)
	_ Recoverer = (*MemoryBroker)(nil)
)

// NewMemoryBroker returns an empty broker.
func NewMemoryBroker() *MemoryBroker {
	return &MemoryBroker{
		inflight: make(map[string][]byte),
		notify:   make(chan struct{}, 1),
	}
}

// Enqueue implements Broker.
func (b *MemoryBroker) Enqueue(_ context.Context, job *Job) error {
	data, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("marshal job: %w", err)
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return ErrQueueClosed
	}
	b.push(data)
	return nil
}

// push appends an envelope and wakes a waiting consumer. Caller holds mu.
func (b *MemoryBroker) push(data []byte) {
	b.ready = append(b.ready, data)
	select {
	case b.notify <- struct{}{}:
	default:
	}
}

// Dequeue implements Broker.
func (b *MemoryBroker) Dequeue(ctx context.Context, timeout time.Duration) (*Job, error) {
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	for {
		job, err := b.pop()
		if job != nil || err != nil {
			return job, err
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-timer.C:
			return nil, nil
		case <-b.notify:
		}
	}
}

func (b *MemoryBroker) pop() (*Job, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil, ErrQueueClosed
	}
	if len(b.ready) == 0 {
		return nil, nil
	}

	data := b.ready[0]
	b.ready = b.ready[1:]

	var job Job
	if err := json.Unmarshal(data, &job); err != nil {
		return nil, fmt.Errorf("decode job: %w", err)
	}
	job.Attempt++
	job.Receipt = job.ID
	b.inflight[job.Receipt] = data
	return &job, nil
}

// Ack implements Broker.
func (b *MemoryBroker) Ack(_ context.Context, job *Job) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.inflight, job.Receipt)
	return nil
}

// Retry implements Broker.
func (b *MemoryBroker) Retry(_ context.Context, job *Job, delay time.Duration) error {
	data, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("marshal job: %w", err)
	}

	b.mu.Lock()
	delete(b.inflight, job.Receipt)
	b.delayed++
	b.mu.Unlock()

	time.AfterFunc(delay, func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		b.delayed--
		if !b.closed {
			b.push(data)
		}
	})
	return nil
}

// Recover implements Recoverer by moving unsettled deliveries back to the ready list.
func (b *MemoryBroker) Recover(_ context.Context) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	n := len(b.inflight)
	for receipt, data := range b.inflight {
		b.push(data)
		delete(b.inflight, receipt)
	}
	return n, nil
}

// Close makes every later call fail with ErrQueueClosed.
func (b *MemoryBroker) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closed = true
}

// Stats returns the number of ready, in-flight and delayed jobs.
func (b *MemoryBroker) Stats() (ready, inflight, delayed int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.ready), len(b.inflight), b.delayed
}

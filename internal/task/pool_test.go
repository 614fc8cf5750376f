package task

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/phrazzld/moodboard-api/internal/platform/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func settled(b *MemoryBroker) bool {
	ready, inflight, delayed := b.Stats()
	return ready == 0 && inflight == 0 && delayed == 0
}

func TestPool_SuccessAcksJob(t *testing.T) {
	t.Parallel()
	broker := NewMemoryBroker()
	p := NewPool(broker, testPoolConfig(), logger.Discard())

	var calls atomic.Int32
	p.Register(testJobType, HandlerFunc(func(ctx context.Context, job *Job) error {
		calls.Add(1)
		return nil
	}))
	startPool(t, p)

	require.NoError(t, broker.Enqueue(context.Background(), newTestJob(testJobType, 3, time.Millisecond)))

	require.Eventually(t, func() bool { return calls.Load() == 1 && settled(broker) },
		2*time.Second, 5*time.Millisecond)
}

func TestPool_RetriesThenDropsWithLog(t *testing.T) {
	t.Parallel()
	broker := NewMemoryBroker()
	log, buf := logger.NewCaptureLogger()
	p := NewPool(broker, testPoolConfig(), log)

	var calls atomic.Int32
	var attempts []int
	var mu sync.Mutex
	p.Register(testJobType, HandlerFunc(func(ctx context.Context, job *Job) error {
		calls.Add(1)
		mu.Lock()
		attempts = append(attempts, job.Attempt)
		mu.Unlock()
		return errors.New("store unavailable")
	}))
	startPool(t, p)

	require.NoError(t, broker.Enqueue(context.Background(), newTestJob(testJobType, 3, 5*time.Millisecond)))

	require.Eventually(t, func() bool {
		return buf.CountMessage("job dropped after exhausting attempts") == 1 && settled(broker)
	}, 2*time.Second, 5*time.Millisecond)

	assert.Equal(t, int32(3), calls.Load())
	mu.Lock()
	assert.Equal(t, []int{1, 2, 3}, attempts)
	mu.Unlock()
	assert.Equal(t, 2, buf.CountMessage("job failed, scheduling retry"))
}

func TestPool_PermanentErrorIsNotRetried(t *testing.T) {
	t.Parallel()
	broker := NewMemoryBroker()
	log, buf := logger.NewCaptureLogger()
	p := NewPool(broker, testPoolConfig(), log)

	var calls atomic.Int32
	p.Register(testJobType, HandlerFunc(func(ctx context.Context, job *Job) error {
		calls.Add(1)
		return Permanent(errors.New("bad payload"))
	}))
	startPool(t, p)

	require.NoError(t, broker.Enqueue(context.Background(), newTestJob(testJobType, 3, time.Millisecond)))

	require.Eventually(t, func() bool {
		return buf.CountMessage("job failed permanently") == 1 && settled(broker)
	}, 2*time.Second, 5*time.Millisecond)
	assert.Equal(t, int32(1), calls.Load())
}

func TestPool_UnknownJobTypeIsDropped(t *testing.T) {
	t.Parallel()
	broker := NewMemoryBroker()
	log, buf := logger.NewCaptureLogger()
	p := NewPool(broker, testPoolConfig(), log)
	startPool(t, p)

	require.NoError(t, broker.Enqueue(context.Background(), newTestJob("unregistered", 3, time.Millisecond)))

	require.Eventually(t, func() bool {
		return buf.CountMessage("job failed permanently") == 1 && settled(broker)
	}, 2*time.Second, 5*time.Millisecond)
	assert.Contains(t, buf.String(), ErrUnknownJobType.Error())
}

func TestPool_PanicIsIsolatedAndRetried(t *testing.T) {
	t.Parallel()
	broker := NewMemoryBroker()
	log, buf := logger.NewCaptureLogger()
	p := NewPool(broker, testPoolConfig(), log)

	var panics, ok atomic.Int32
	p.Register(testJobType, HandlerFunc(func(ctx context.Context, job *Job) error {
		if job.Attempt == 1 {
			panics.Add(1)
			panic("boom")
		}
		ok.Add(1)
		return nil
	}))
	p.Register("other", HandlerFunc(func(ctx context.Context, job *Job) error {
		ok.Add(1)
		return nil
	}))
	startPool(t, p)

	ctx := context.Background()
	require.NoError(t, broker.Enqueue(ctx, newTestJob(testJobType, 2, time.Millisecond)))
	require.NoError(t, broker.Enqueue(ctx, newTestJob("other", 1, 0)))

	require.Eventually(t, func() bool { return ok.Load() == 2 && settled(broker) },
		2*time.Second, 5*time.Millisecond)
	assert.Equal(t, int32(1), panics.Load())
	assert.Contains(t, buf.String(), "handler panicked")
}

func TestPool_RespectsConcurrencyBound(t *testing.T) {
	t.Parallel()
	broker := NewMemoryBroker()
	cfg := testPoolConfig()
	cfg.Concurrency = 3
	p := NewPool(broker, cfg, logger.Discard())

	var active, peak, done atomic.Int32
	p.Register(testJobType, HandlerFunc(func(ctx context.Context, job *Job) error {
		n := active.Add(1)
		for {
			old := peak.Load()
			if n <= old || peak.CompareAndSwap(old, n) {
				break
			}
		}
		time.Sleep(20 * time.Millisecond)
		active.Add(-1)
		done.Add(1)
		return nil
	}))
	startPool(t, p)

	for i := 0; i < 10; i++ {
		require.NoError(t, broker.Enqueue(context.Background(), newTestJob(testJobType, 1, 0)))
	}

	require.Eventually(t, func() bool { return done.Load() == 10 }, 5*time.Second, 5*time.Millisecond)
	assert.LessOrEqual(t, peak.Load(), int32(3))
	assert.Greater(t, peak.Load(), int32(1), "jobs should run concurrently")
}

func TestPool_ShutdownLetsInFlightJobsFinish(t *testing.T) {
	t.Parallel()
	broker := NewMemoryBroker()
	p := NewPool(broker, testPoolConfig(), logger.Discard())

	started := make(chan struct{})
	var finished atomic.Bool
	p.Register(testJobType, HandlerFunc(func(ctx context.Context, job *Job) error {
		close(started)
		time.Sleep(50 * time.Millisecond)
		finished.Store(ctx.Err() == nil)
		return nil
	}))
	stop := startPool(t, p)

	require.NoError(t, broker.Enqueue(context.Background(), newTestJob(testJobType, 1, 0)))
	<-started

	require.NoError(t, stop())
	assert.True(t, finished.Load(), "job context must survive pool shutdown")
	assert.True(t, settled(broker))
}

func TestPool_ShutdownTimeoutAbandonsJobForRedelivery(t *testing.T) {
	t.Parallel()
	broker := NewMemoryBroker()
	cfg := testPoolConfig()
	cfg.ShutdownTimeout = 20 * time.Millisecond
	log, buf := logger.NewCaptureLogger()
	p := NewPool(broker, cfg, log)

	started := make(chan struct{})
	p.Register(testJobType, HandlerFunc(func(ctx context.Context, job *Job) error {
		close(started)
		<-ctx.Done()
		return ctx.Err()
	}))
	stop := startPool(t, p)

	require.NoError(t, broker.Enqueue(context.Background(), newTestJob(testJobType, 3, 0)))
	<-started

	require.NoError(t, stop(), "shutdown is not a pool failure")

	_, inflight, delayed := broker.Stats()
	assert.Equal(t, 1, inflight, "abandoned job stays unacknowledged")
	assert.Equal(t, 0, delayed)
	assert.Equal(t, 1, buf.CountMessage("job abandoned during shutdown, left for redelivery"))

	n, err := broker.Recover(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestPool_DequeueFailureEndsRun(t *testing.T) {
	t.Parallel()
	broker := NewMemoryBroker()
	broker.Close()
	p := NewPool(broker, testPoolConfig(), logger.Discard())

	err := p.Run(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrQueueClosed)
}

func TestPool_RunScheduled(t *testing.T) {
	t.Parallel()
	p := NewPool(NewMemoryBroker(), testPoolConfig(), logger.Discard())

	var seen *Job
	p.Register(JobTypeHeartbeat, HandlerFunc(func(ctx context.Context, job *Job) error {
		seen = job
		return nil
	}))

	job, err := NewJob(JobTypeHeartbeat, struct{}{})
	require.NoError(t, err)
	require.NoError(t, p.RunScheduled(context.Background(), job))
	require.NotNil(t, seen)
	assert.Equal(t, 1, seen.Attempt)

	err = p.RunScheduled(context.Background(), newTestJob("unregistered", 1, 0))
	assert.ErrorIs(t, err, ErrUnknownJobType)
	assert.True(t, IsPermanent(err))
}

func TestPool_RunScheduledWhileSlotsBusy(t *testing.T) {
	t.Parallel()
	broker := NewMemoryBroker()
	cfg := testPoolConfig()
	cfg.Concurrency = 1
	cfg.JobTimeout = 5 * time.Second
	p := NewPool(broker, cfg, logger.Discard())

	started := make(chan struct{})
	release := make(chan struct{})
	p.Register(testJobType, HandlerFunc(func(ctx context.Context, job *Job) error {
		close(started)
		<-release
		return nil
	}))
	var beats atomic.Int32
	p.Register(JobTypeHeartbeat, HandlerFunc(func(ctx context.Context, job *Job) error {
		beats.Add(1)
		return nil
	}))

	require.NoError(t, broker.Enqueue(context.Background(), newTestJob(testJobType, 1, 0)))
	stop := startPool(t, p)
	defer func() {
		close(release)
		_ = stop()
	}()
	<-started

	heartbeat, err := NewJob(JobTypeHeartbeat, struct{}{})
	require.NoError(t, err)
	ctx, cancel := context.WithTimeout(context.Background(), 300*time.Millisecond)
	defer cancel()

	require.NoError(t, p.RunScheduled(ctx, heartbeat))
	assert.Equal(t, int32(1), beats.Load())
}

func TestNewPool_InvalidConcurrency(t *testing.T) {
	t.Parallel()
	cfg := testPoolConfig()
	cfg.Concurrency = 0
	p := NewPool(NewMemoryBroker(), cfg, logger.Discard())
	assert.Equal(t, 1, p.config.Concurrency)
}

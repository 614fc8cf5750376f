package task

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/phrazzld/moodboard-api/internal/platform/logger"
	"github.com/sourcegraph/conc/panics"
	"golang.org/x/sync/semaphore"
)

// PoolConfig tunes the worker pool.
type PoolConfig struct {
	// Concurrency bounds how many queued jobs execute at once. Scheduled
	// jobs run outside this bound.
	Concurrency int
	// PollTimeout is how long one Dequeue call waits for a job.
	PollTimeout time.Duration
	// JobTimeout bounds a single handler execution.
	JobTimeout time.Duration
	// ShutdownTimeout is how long in-flight jobs may keep running after Run's
	// context is cancelled. Jobs still running afterwards are cancelled and
	// left unacknowledged for redelivery.
	ShutdownTimeout time.Duration
}

// DefaultPoolConfig returns a PoolConfig with reasonable defaults
func DefaultPoolConfig() PoolConfig {
	return PoolConfig{
		Concurrency:     5,
		PollTimeout:     5 * time.Second,
		JobTimeout:      5 * time.Minute,
		ShutdownTimeout: 30 * time.Second,
	}
}

// Pool pulls jobs from a Broker and dispatches them to registered handlers
// with bounded concurrency. A failing or panicking handler only affects its
// own job.
type Pool struct {
	// broker is the queue jobs are pulled from and settled on.
	broker Broker

	// config holds the concurrency, polling and timeout settings.
	config PoolConfig

	// logger is tagged with the worker_pool component.
	logger *slog.Logger

	// handlers maps each job type to the handler executing it. It is only
	// written by Register, before Run.
	handlers map[JobType]Handler

	// slots limits queued jobs to config.Concurrency executions at once.
	slots *semaphore.Weighted

	// inFlight counts queued jobs currently executing, for logging.
	inFlight atomic.Int64
}

// NewPool creates a pool consuming broker.
func NewPool(broker Broker, config PoolConfig, logger *slog.Logger) *Pool {
	if config.Concurrency <= 0 {
		logger.Warn("invalid concurrency specified, using default",
			slog.Int("specified", config.Concurrency),
			slog.Int("default", 1))
		config.Concurrency = 1
	}

	return &Pool{
		broker:   broker,
		config:   config,
		logger:   logger.With(slog.String("component", "worker_pool")),
		handlers: make(map[JobType]Handler),
		slots:    semaphore.NewWeighted(int64(config.Concurrency)),
	}
}

// Register binds a handler to a job type. It must be called before Run.
func (p *Pool) Register(t JobType, h Handler) {
	p.handlers[t] = h
}

// Run consumes jobs until ctx is cancelled, then drains in-flight jobs. It
// returns nil on cancellation and an error when the broker fails, which the
// Supervisor treats as a crash.
func (p *Pool) Run(ctx context.Context) error {
	if r, ok := p.broker.(Recoverer); ok {
		n, err := r.Recover(ctx)
		if err != nil {
			return fmt.Errorf("recover unsettled jobs: %w", err)
		}
		if n > 0 {
			p.logger.Info("requeued unsettled jobs from a previous run", slog.Int("count", n))
		}
	}

	// Jobs run on a context that outlives ctx so they can finish during shutdown.
	workCtx, cancelWork := context.WithCancel(context.WithoutCancel(ctx))
	defer cancelWork()

	var wg sync.WaitGroup
	runErr := p.consume(ctx, workCtx, &wg)

	p.drain(&wg, cancelWork)
	return runErr
}

func (p *Pool) consume(ctx, workCtx context.Context, wg *sync.WaitGroup) error {
	p.logger.Info("worker pool started", slog.Int("concurrency", p.config.Concurrency))

	for {
		if err := p.slots.Acquire(ctx, 1); err != nil {
			return nil
		}

		job, err := p.broker.Dequeue(ctx, p.config.PollTimeout)
		if err != nil {
			p.slots.Release(1)
			if ctx.Err() != nil {
				return nil
			}
			p.logger.Error("failed to dequeue job", slog.String("error", err.Error()))
			return fmt.Errorf("dequeue: %w", err)
		}
		if job == nil {
			p.slots.Release(1)
			continue
		}

		wg.Add(1)
		go func() {
			defer wg.Done()
			defer p.slots.Release(1)
			p.dispatch(workCtx, job)
		}()
	}
}

// drain waits for in-flight jobs, cancelling them after ShutdownTimeout.
func (p *Pool) drain(wg *sync.WaitGroup, cancelWork context.CancelFunc) {
	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	p.logger.Info("worker pool stopping", slog.Int64("in_flight", p.inFlight.Load()))

	timer := time.NewTimer(p.config.ShutdownTimeout)
	defer timer.Stop()

	select {
	case <-done:
	case <-timer.C:
		p.logger.Warn("shutdown timeout reached, cancelling in-flight jobs",
			slog.Int64("in_flight", p.inFlight.Load()))
		cancelWork()
		<-done
	}
	p.logger.Info("worker pool stopped")
}

// RunScheduled executes a job that did not come from the broker, such as a
// cron tick, through the same handler dispatch. There is nothing to
// acknowledge or redeliver: the handler error is returned.
//
// Scheduled jobs do not take a queue slot, so a pool saturated with long jobs
// still runs them on time.
func (p *Pool) RunScheduled(ctx context.Context, job *Job) error {
	if job.Attempt == 0 {
		job.Attempt = 1
	}
	return p.execute(ctx, p.jobLogger(job), job)
}

func (p *Pool) jobLogger(job *Job) *slog.Logger {
	return p.logger.With(
		slog.String("job_id", job.ID),
		slog.String("job_type", string(job.Type)),
		slog.Int("attempt", job.Attempt),
		slog.Int("max_attempts", job.MaxAttempts),
	)
}

// execute runs the handler for job with a timeout and panic isolation.
func (p *Pool) execute(ctx context.Context, log *slog.Logger, job *Job) error {
	h, ok := p.handlers[job.Type]
	if !ok {
		return Permanent(fmt.Errorf("%w: %s", ErrUnknownJobType, job.Type))
	}

	p.inFlight.Add(1)
	defer p.inFlight.Add(-1)

	jobCtx, cancel := context.WithTimeout(ctx, p.config.JobTimeout)
	defer cancel()
	jobCtx = logger.WithContext(jobCtx, log)

	start := time.Now()
	log.Info("processing job", slog.Int64("in_flight", p.inFlight.Load()))

	var err error
	var pc panics.Catcher
	pc.Try(func() { err = h.Handle(jobCtx, job) })
	if r := pc.Recovered(); r != nil {
		err = fmt.Errorf("handler panicked: %w", r.AsError())
	}

	log.Debug("job finished", slog.Int64("duration_ms", time.Since(start).Milliseconds()))
	return err
}

// dispatch executes a brokered job and settles it with the broker.
func (p *Pool) dispatch(workCtx context.Context, job *Job) {
	log := p.jobLogger(job)
	err := p.execute(workCtx, log, job)

	switch {
	case err == nil:
		log.Info("job completed")
		p.ack(workCtx, log, job)

	case workCtx.Err() != nil:
		log.Info("job abandoned during shutdown, left for redelivery",
			slog.String("error", err.Error()))

	case IsPermanent(err):
		log.Error("job failed permanently", slog.String("error", err.Error()))
		p.ack(workCtx, log, job)

	case job.Attempt < job.MaxAttempts:
		log.Warn("job failed, scheduling retry",
			slog.String("error", err.Error()),
			slog.Duration("retry_delay", job.RetryDelay))
		if rerr := p.broker.Retry(workCtx, job, job.RetryDelay); rerr != nil {
			log.Error("failed to schedule job retry", slog.String("error", rerr.Error()))
		}

	default:
		log.Error("job dropped after exhausting attempts", slog.String("error", err.Error()))
		p.ack(workCtx, log, job)
	}
}

func (p *Pool) ack(ctx context.Context, log *slog.Logger, job *Job) {
	if err := p.broker.Ack(ctx, job); err != nil && !errors.Is(err, context.Canceled) {
		log.Error("failed to acknowledge job", slog.String("error", err.Error()))
	}
}

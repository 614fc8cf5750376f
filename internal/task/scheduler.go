package task

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/robfig/cron/v3"
)

// Dispatcher runs a job outside the broker. Pool implements it.
type Dispatcher interface {
	RunScheduled(ctx context.Context, job *Job) error
}

type scheduledEntry struct {
	spec    string
	jobType JobType
	payload any
}

// Scheduler feeds periodic jobs into a Dispatcher on cron schedules,
// independently of the broker.
type Scheduler struct {
	dispatcher Dispatcher
	logger     *slog.Logger
	entries    []scheduledEntry
}

// NewScheduler creates a scheduler dispatching to d.
func NewScheduler(d Dispatcher, logger *slog.Logger) *Scheduler {
	return &Scheduler{dispatcher: d, logger: logger.With(slog.String("component", "scheduler"))}
}

// Add schedules a job of type t with payload on a standard cron spec
// (five fields or a descriptor such as "@every 1m").
func (s *Scheduler) Add(spec string, t JobType, payload any) error {
	if _, err := cron.ParseStandard(spec); err != nil {
		return fmt.Errorf("invalid schedule %q for %s: %w", spec, t, err)
	}
	if _, ok := DefaultPolicies[t]; !ok {
		return fmt.Errorf("%w: %s", ErrUnknownJobType, t)
	}
	s.entries = append(s.entries, scheduledEntry{spec: spec, jobType: t, payload: payload})
	return nil
}

// Run fires scheduled jobs until ctx is cancelled and then waits for running
// ticks to finish. Overlapping ticks of the same entry are skipped.
func (s *Scheduler) Run(ctx context.Context) error {
	cl := cronLogger{logger: s.logger}
	c := cron.New(
		cron.WithLogger(cl),
		cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
	)

	for _, e := range s.entries {
		e := e
		if _, err := c.AddFunc(e.spec, func() { s.fire(ctx, e) }); err != nil {
			return fmt.Errorf("schedule %s: %w", e.jobType, err)
		}
	}

	c.Start()
	s.logger.Info("scheduler started", slog.Int("entries", len(s.entries)))

	<-ctx.Done()
	<-c.Stop().Done()
	s.logger.Info("scheduler stopped")
	return nil
}

func (s *Scheduler) fire(ctx context.Context, e scheduledEntry) {
	job, err := NewJob(e.jobType, e.payload)
	if err != nil {
		s.logger.Error("failed to build scheduled job",
			slog.String("job_type", string(e.jobType)),
			slog.String("error", err.Error()))
		return
	}
	if err := s.dispatcher.RunScheduled(ctx, job); err != nil && ctx.Err() == nil {
		s.logger.Error("scheduled job failed",
			slog.String("job_id", job.ID),
			slog.String("job_type", string(e.jobType)),
			slog.String("error", err.Error()))
	}
}

// cronLogger routes robfig/cron logs into slog.
type cronLogger struct {
	logger *slog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.Debug(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.logger.Error(msg, append([]interface{}{"error", err}, keysAndValues...)...)
}

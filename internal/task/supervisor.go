package task

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/phrazzld/moodboard-api/internal/backoff"
	"github.com/sethvargo/go-retry"
	"github.com/sourcegraph/conc/panics"
)

// RunFunc is a long-running component supervised by a Supervisor.
type RunFunc func(ctx context.Context) error

// Supervisor keeps a component running forever. A crash (error or panic)
// restarts it after a capped exponential backoff; a clean return restarts it
// after the initial delay and resets the backoff. Cancellation of the
// supervisor's context is a graceful shutdown, never a crash.
type Supervisor struct {
	// name identifies the supervised component in logs.
	name string

	// run is the component. It is called again after every exit.
	run RunFunc

	// initial is the first restart delay and the delay after a clean exit.
	initial time.Duration

	// max caps the restart delay after consecutive crashes.
	max time.Duration

	// logger is tagged with the supervisor component and the supervised name.
	logger *slog.Logger

	// sleep waits for d or until ctx is done; it reports whether d elapsed.
	sleep func(ctx context.Context, d time.Duration) bool
}

// NewSupervisor creates a supervisor for run.
func NewSupervisor(name string, run RunFunc, initial, max time.Duration, logger *slog.Logger) *Supervisor {
	return &Supervisor{
		name:    name,
		run:     run,
		initial: initial,
		max:     max,
		logger:  logger.With(slog.String("component", "supervisor"), slog.String("supervised", name)),
		sleep:   sleepCtx,
	}
}

// Run supervises until ctx is cancelled. It always returns nil.
func (s *Supervisor) Run(ctx context.Context) error {
	b := s.newBackoff()
	restarts := 0

	for {
		err := s.runOnce(ctx)

		if ctx.Err() != nil || errors.Is(err, context.Canceled) {
			s.logger.Info("shutdown requested, supervisor exiting", slog.Int("restarts", restarts))
			return nil
		}

		var delay time.Duration
		if err == nil {
			b = s.newBackoff()
			delay = s.initial
			s.logger.Warn("component exited cleanly, restarting", slog.Duration("delay", delay))
		} else {
			delay, _ = b.Next()
			s.logger.Error("component crashed, restarting",
				slog.String("error", err.Error()),
				slog.Duration("delay", delay),
				slog.Int("restarts", restarts))
		}

		if !s.sleep(ctx, delay) {
			s.logger.Info("shutdown requested during restart backoff")
			return nil
		}
		restarts++
	}
}

func (s *Supervisor) newBackoff() retry.Backoff {
	return backoff.Capped(s.initial, s.max)
}

// runOnce runs the component, turning a panic into an error.
func (s *Supervisor) runOnce(ctx context.Context) (err error) {
	var pc panics.Catcher
	pc.Try(func() { err = s.run(ctx) })
	if r := pc.Recovered(); r != nil {
		return fmt.Errorf("%s panicked: %w", s.name, r.AsError())
	}
	return err
}

func sleepCtx(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

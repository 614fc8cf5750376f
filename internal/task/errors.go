package task

import (
	"context"
	"errors"
	"fmt"

	"github.com/phrazzld/moodboard-api/internal/generation"
)

// Common task errors
var (
	// ErrUnknownJobType is returned for a job type with no policy or handler.
	ErrUnknownJobType = errors.New("unknown job type")

	// ErrQueueClosed is returned by a broker that no longer accepts or hands out jobs.
	ErrQueueClosed = errors.New("job queue is closed")

	// ErrInvalidPayload is returned when a job payload does not decode or validate.
	ErrInvalidPayload = errors.New("invalid job payload")
)

// permanentError marks an error the queue must not retry.
type permanentError struct {
	err error
}

func (e *permanentError) Error() string { return e.err.Error() }
func (e *permanentError) Unwrap() error { return e.err }

// Permanent wraps err so the pool acknowledges the job instead of retrying it.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}

// IsPermanent reports whether err was marked with Permanent.
func IsPermanent(err error) bool {
	var p *permanentError
	return errors.As(err, &p)
}

// FailureKind classifies why a handler stage failed.
type FailureKind int

// Failure kinds
const (
	// FailureTransient is a rate-limit class failure worth retrying in place.
	FailureTransient FailureKind = iota + 1
	// FailureUnrecoverable means the item cannot be enriched; it is deleted.
	FailureUnrecoverable
	// FailureInfrastructure is a persistence or cancellation failure left to the queue.
	FailureInfrastructure
)

func (k FailureKind) String() string {
	switch k {
	case FailureTransient:
		return "transient"
	case FailureUnrecoverable:
		return "unrecoverable"
	case FailureInfrastructure:
		return "infrastructure"
	default:
		return "unknown"
	}
}

// Failure is the outcome of a failed handler stage.
type Failure struct {
	Kind FailureKind
	Err  error
}

func (f *Failure) Error() string {
	return fmt.Sprintf("%s failure: %v", f.Kind, f.Err)
}

func (f *Failure) Unwrap() error { return f.Err }

// classifyGeneration maps a collaborator error to a Failure. Cancellation is
// never unrecoverable: the job is being abandoned, not failing.
func classifyGeneration(err error) *Failure {
	switch {
	case errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded):
		return &Failure{Kind: FailureInfrastructure, Err: err}
	case generation.IsTransient(err):
		return &Failure{Kind: FailureTransient, Err: err}
	default:
		return &Failure{Kind: FailureUnrecoverable, Err: err}
	}
}

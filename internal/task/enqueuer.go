package task

import (
	"context"
	"fmt"
	"log/slog"
)

// Enqueuer is the fire-and-forget client used by the API layer. It returns
// once the broker has accepted a job, never waiting for completion.
type Enqueuer struct {
	// broker accepts the jobs.
	broker Broker

	// logger is tagged with the enqueuer component.
	logger *slog.Logger
}

// NewEnqueuer creates an Enqueuer on broker.
func NewEnqueuer(broker Broker, logger *slog.Logger) *Enqueuer {
	return &Enqueuer{broker: broker, logger: logger.With(slog.String("component", "enqueuer"))}
}

// EnqueueEmbedding schedules embedding generation for a text item.
func (e *Enqueuer) EnqueueEmbedding(ctx context.Context, itemID int64, content string, boardID int64) (string, error) {
	return e.enqueue(ctx, JobTypeGenerateEmbedding, EmbeddingPayload{ItemID: itemID, Content: content, BoardID: boardID})
}

// EnqueueImageProcessing schedules captioning and embedding of an image item.
func (e *Enqueuer) EnqueueImageProcessing(ctx context.Context, itemID int64, imageURL string, boardID int64) (string, error) {
	return e.enqueue(ctx, JobTypeProcessImage, ImagePayload{ItemID: itemID, ImageURL: imageURL, BoardID: boardID})
}

// EnqueueClustering schedules clustering of a board.
func (e *Enqueuer) EnqueueClustering(ctx context.Context, boardID int64) (string, error) {
	return e.enqueue(ctx, JobTypeClusterBoard, ClusterPayload{BoardID: boardID})
}

func (e *Enqueuer) enqueue(ctx context.Context, t JobType, payload any) (string, error) {
	if err := validatePayload(payload); err != nil {
		return "", err
	}

	job, err := NewJob(t, payload)
	if err != nil {
		return "", err
	}
	if err := e.broker.Enqueue(ctx, job); err != nil {
		e.logger.ErrorContext(ctx, "failed to enqueue job",
			slog.String("job_type", string(t)),
			slog.String("error", err.Error()))
		return "", fmt.Errorf("enqueue %s: %w", t, err)
	}

	e.logger.DebugContext(ctx, "job enqueued",
		slog.String("job_id", job.ID),
		slog.String("job_type", string(t)))
	return job.ID, nil
}

package task

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/phrazzld/moodboard-api/internal/backoff"
	"github.com/phrazzld/moodboard-api/internal/generation"
	"github.com/phrazzld/moodboard-api/internal/platform/logger"
	"github.com/phrazzld/moodboard-api/internal/store"
)

// ImageHandler handles ProcessImage jobs: it captions an image, embeds the
// image description and stores both on the item. Rate-limited analysis calls
// are retried in place with policy.
type ImageHandler struct {
	items    store.ItemStore
	analyzer generation.ImageAnalyzer
	policy   backoff.Policy
	logger   *slog.Logger
}

// NewImageHandler creates an ImageHandler.
func NewImageHandler(
	items store.ItemStore,
	analyzer generation.ImageAnalyzer,
	policy backoff.Policy,
	logger *slog.Logger,
) *ImageHandler {
	return &ImageHandler{items: items, analyzer: analyzer, policy: policy, logger: logger}
}

// Handle implements Handler.
func (h *ImageHandler) Handle(ctx context.Context, job *Job) error {
	var p ImagePayload
	if err := decodePayload(job, &p); err != nil {
		return err
	}

	log := logger.FromContextOrDefault(ctx, h.logger).With(
		slog.Int64("item_id", p.ItemID),
		slog.Int64("board_id", p.BoardID))

	analysis, f := h.analyze(ctx, log, p)
	if f == nil {
		f = h.persist(ctx, log, job, p, analysis)
	}
	if f != nil {
		return settleItemFailure(ctx, h.items, log, p.ItemID, f)
	}
	return nil
}

func (h *ImageHandler) analyze(ctx context.Context, log *slog.Logger, p ImagePayload) (*generation.ImageAnalysis, *Failure) {
	var analysis *generation.ImageAnalysis

	err := h.policy.Do(ctx, generation.IsTransient, func(ctx context.Context, attempt int) error {
		a, err := h.analyzer.AnalyzeImage(ctx, p.ImageURL)
		if err != nil {
			log.Warn("image analysis attempt failed",
				slog.Int("analysis_attempt", attempt),
				slog.Int("max_analysis_attempts", h.policy.MaxAttempts),
				slog.Bool("retryable", generation.IsTransient(err)),
				slog.String("error", err.Error()))
			return err
		}
		analysis = a
		return nil
	})
	if err != nil {
		f := classifyGeneration(fmt.Errorf("analyze image of item %d: %w", p.ItemID, err))
		// Retries are exhausted by now.
		if f.Kind == FailureTransient {
			f.Kind = FailureUnrecoverable
		}
		return nil, f
	}
	return analysis, nil
}

// persist stores the analysis. Store failures are left to the Queue until the
// final delivery, which deletes the item instead of leaving it unenriched.
func (h *ImageHandler) persist(
	ctx context.Context,
	log *slog.Logger,
	job *Job,
	p ImagePayload,
	a *generation.ImageAnalysis,
) *Failure {
	err := h.items.UpdateEnrichment(ctx, p.ItemID, a.Caption, a.Embedding)
	switch {
	case errors.Is(err, store.ErrItemNotFound):
		log.Info("item no longer exists, nothing to enrich")
		return nil
	case errors.Is(err, store.ErrInvalidEntity):
		return &Failure{Kind: FailureUnrecoverable, Err: fmt.Errorf("store enrichment of item %d: %w", p.ItemID, err)}
	case err != nil:
		f := &Failure{Kind: FailureInfrastructure, Err: fmt.Errorf("store enrichment of item %d: %w", p.ItemID, err)}
		if ctx.Err() == nil && job.Attempt >= job.MaxAttempts {
			f.Kind = FailureUnrecoverable
		}
		return f
	}

	log.Info("stored image caption and embedding",
		slog.Int("caption_length", len(a.Caption)),
		slog.Int("dimensions", len(a.Embedding)))
	return nil
}

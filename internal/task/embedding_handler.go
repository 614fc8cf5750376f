package task

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/phrazzld/moodboard-api/internal/generation"
	"github.com/phrazzld/moodboard-api/internal/platform/logger"
	"github.com/phrazzld/moodboard-api/internal/store"
)

// EmbeddingHandler handles GenerateEmbedding jobs: it embeds an item's text
// and stores the vector on the item.
type EmbeddingHandler struct {
	items    store.ItemStore
	embedder generation.Embedder
	logger   *slog.Logger
}

// NewEmbeddingHandler creates an EmbeddingHandler.
func NewEmbeddingHandler(items store.ItemStore, embedder generation.Embedder, logger *slog.Logger) *EmbeddingHandler {
	return &EmbeddingHandler{items: items, embedder: embedder, logger: logger}
}

// Handle implements Handler.
func (h *EmbeddingHandler) Handle(ctx context.Context, job *Job) error {
	var p EmbeddingPayload
	if err := decodePayload(job, &p); err != nil {
		return err
	}

	log := logger.FromContextOrDefault(ctx, h.logger).With(
		slog.Int64("item_id", p.ItemID),
		slog.Int64("board_id", p.BoardID))

	if f := h.enrich(ctx, log, p); f != nil {
		return settleItemFailure(ctx, h.items, log, p.ItemID, f)
	}
	return nil
}

func (h *EmbeddingHandler) enrich(ctx context.Context, log *slog.Logger, p EmbeddingPayload) *Failure {
	vec, err := h.embedder.EmbedText(ctx, p.Content)
	if err != nil {
		f := classifyGeneration(fmt.Errorf("embed item %d: %w", p.ItemID, err))
		// Any embedding failure makes the item unviable, rate limits included.
		if f.Kind == FailureTransient {
			f.Kind = FailureUnrecoverable
		}
		return f
	}

	err = h.items.UpdateEmbedding(ctx, p.ItemID, vec)
	switch {
	case errors.Is(err, store.ErrItemNotFound):
		log.Info("item no longer exists, nothing to enrich")
		return nil
	case err != nil:
		if ctx.Err() != nil {
			return &Failure{Kind: FailureInfrastructure, Err: err}
		}
		return &Failure{Kind: FailureUnrecoverable, Err: fmt.Errorf("store embedding of item %d: %w", p.ItemID, err)}
	}

	log.Info("stored embedding", slog.Int("dimensions", len(vec)))
	return nil
}

package gemini

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/phrazzld/moodboard-api/internal/generation"
	"google.golang.org/genai"
)

const embeddingTaskType = "SEMANTIC_SIMILARITY"

// EmbedText implements generation.Embedder.
func (c *Client) EmbedText(ctx context.Context, text string) ([]float32, error) {
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("%w: text cannot be empty", generation.ErrInvalidInput)
	}
	if err := c.wait(ctx); err != nil {
		return nil, err
	}

	resp, err := c.models.EmbedContent(ctx, c.cfg.EmbeddingModel, genai.Text(text),
		&genai.EmbedContentConfig{TaskType: embeddingTaskType})
	if err != nil {
		c.logger.WarnContext(ctx, "embedding call failed", slog.String("error", err.Error()))
		return nil, classifyError("embed content", err)
	}
	if resp == nil || len(resp.Embeddings) == 0 || resp.Embeddings[0] == nil ||
		len(resp.Embeddings[0].Values) == 0 {
		return nil, fmt.Errorf("%w: empty embedding", generation.ErrInvalidResponse)
	}

	c.logger.DebugContext(ctx, "embedding generated",
		slog.Int("text_length", len(text)),
		slog.Int("dimensions", len(resp.Embeddings[0].Values)))
	return resp.Embeddings[0].Values, nil
}

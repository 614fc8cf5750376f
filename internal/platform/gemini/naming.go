package gemini

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/phrazzld/moodboard-api/internal/generation"
	"google.golang.org/genai"
)

const (
	namingSystemPrompt = "You name clusters of similar text. Be descriptive and come up with a " +
		"title that's not just Cluster 0, Cluster 1, etc. Don't return the title in quotes."
	namingPromptPrefix = "Name this group of items: "
	maxNamingSamples   = 3
)

// NamingPrompt builds the prompt for a cluster from up to three sample contents.
func NamingPrompt(samples []string) string {
	if len(samples) > maxNamingSamples {
		samples = samples[:maxNamingSamples]
	}
	return namingPromptPrefix + strings.Join(samples, ", ")
}

// NameCluster implements generation.ClusterNamer.
func (c *Client) NameCluster(ctx context.Context, samples []string) (string, error) {
	prompt := NamingPrompt(samples)

	label, err := c.generateText(ctx, "name cluster", c.cfg.NamingModel,
		[]*genai.Part{{Text: prompt}},
		&genai.GenerateContentConfig{SystemInstruction: systemInstruction(namingSystemPrompt)})
	if err != nil {
		return "", err
	}

	label = strings.Trim(label, "\"'")
	if label == "" {
		return "", fmt.Errorf("%w: empty cluster name", generation.ErrInvalidResponse)
	}

	c.logger.DebugContext(ctx, "cluster named",
		slog.Int("samples", len(samples)),
		slog.String("label", label))
	return label, nil
}

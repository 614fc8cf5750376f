package gemini

import (
	"context"
	"fmt"
	"strings"

	"github.com/phrazzld/moodboard-api/internal/generation"
	"google.golang.org/genai"
)

// generateText runs one GenerateContent call and returns the concatenated
// text of the first candidate.
func (c *Client) generateText(
	ctx context.Context,
	op string,
	model string,
	parts []*genai.Part,
	cfg *genai.GenerateContentConfig,
) (string, error) {
	if err := c.wait(ctx); err != nil {
		return "", err
	}

	resp, err := c.models.GenerateContent(ctx, model,
		[]*genai.Content{{Role: "user", Parts: parts}}, cfg)
	if err != nil {
		return "", classifyError(op, err)
	}

	switch {
	case resp == nil:
		return "", fmt.Errorf("%w: %s: nil response", generation.ErrInvalidResponse, op)
	case resp.PromptFeedback != nil && resp.PromptFeedback.BlockReason != "":
		return "", fmt.Errorf("%w: %s: prompt blocked (%s)", generation.ErrContentBlocked, op,
			resp.PromptFeedback.BlockReason)
	case len(resp.Candidates) == 0:
		return "", fmt.Errorf("%w: %s: no candidates", generation.ErrInvalidResponse, op)
	case resp.Candidates[0].FinishReason == genai.FinishReasonSafety:
		return "", fmt.Errorf("%w: %s", generation.ErrContentBlocked, op)
	case resp.Candidates[0].Content == nil:
		return "", fmt.Errorf("%w: %s: empty content", generation.ErrInvalidResponse, op)
	}

	var sb strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if part != nil {
			sb.WriteString(part.Text)
		}
	}
	return strings.TrimSpace(sb.String()), nil
}

func systemInstruction(text string) *genai.Content {
	return &genai.Content{Parts: []*genai.Part{{Text: text}}}
}

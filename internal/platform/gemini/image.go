package gemini

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/phrazzld/moodboard-api/internal/generation"
	"google.golang.org/genai"
)

const (
	imageSystemPrompt = "You describe images briefly and clearly. " +
		"Respond with JSON: {\"description\": string, \"caption\": string}."
	imageUserPrompt = "Describe this image in detail as \"description\", and write a concise " +
		"poetic statement that captures the vibe of this image as \"caption\"."
)

// imageResponse is the JSON document the vision model is asked to return.
type imageResponse struct {
	Description string `json:"description"`
	Caption     string `json:"caption"`
}

// AnalyzeImage implements generation.ImageAnalyzer. The returned embedding is
// computed from the description, never from the caption.
func (c *Client) AnalyzeImage(ctx context.Context, imageURL string) (*generation.ImageAnalysis, error) {
	data, mimeType, err := c.fetchImage(ctx, imageURL)
	if err != nil {
		return nil, err
	}

	text, err := c.generateText(ctx, "analyze image", c.cfg.VisionModel,
		[]*genai.Part{
			{Text: imageUserPrompt},
			{InlineData: &genai.Blob{Data: data, MIMEType: mimeType}},
		},
		&genai.GenerateContentConfig{
			SystemInstruction: systemInstruction(imageSystemPrompt),
			ResponseMIMEType:  "application/json",
		})
	if err != nil {
		c.logger.WarnContext(ctx, "image analysis failed",
			slog.String("image_url", imageURL),
			slog.String("error", err.Error()))
		return nil, err
	}

	var parsed imageResponse
	if err := json.Unmarshal([]byte(text), &parsed); err != nil {
		return nil, fmt.Errorf("%w: failed to parse JSON response: %v", generation.ErrInvalidResponse, err)
	}
	parsed.Description = strings.TrimSpace(parsed.Description)
	parsed.Caption = strings.TrimSpace(parsed.Caption)
	if parsed.Description == "" || parsed.Caption == "" {
		return nil, fmt.Errorf("%w: missing description or caption", generation.ErrInvalidResponse)
	}

	embedding, err := c.EmbedText(ctx, parsed.Description)
	if err != nil {
		return nil, err
	}

	return &generation.ImageAnalysis{
		Description: parsed.Description,
		Caption:     parsed.Caption,
		Embedding:   embedding,
	}, nil
}

// fetchImage downloads an image, enforcing the size limit and checking that
// the bytes really are an image.
func (c *Client) fetchImage(ctx context.Context, imageURL string) ([]byte, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, imageURL, nil)
	if err != nil {
		return nil, "", fmt.Errorf("%w: bad image URL: %v", generation.ErrInvalidInput, err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("%w: fetch image: %v", generation.ErrTransientFailure, err)
	}
	defer func() { _ = resp.Body.Close() }()

	switch {
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
		return nil, "", fmt.Errorf("%w: fetch image: status %d", generation.ErrTransientFailure, resp.StatusCode)
	case resp.StatusCode != http.StatusOK:
		return nil, "", fmt.Errorf("%w: fetch image: status %d", generation.ErrInvalidInput, resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, c.cfg.ImageMaxBytes+1))
	if err != nil {
		return nil, "", fmt.Errorf("%w: read image: %v", generation.ErrTransientFailure, err)
	}
	if int64(len(data)) > c.cfg.ImageMaxBytes {
		return nil, "", fmt.Errorf("%w: image exceeds %d bytes", generation.ErrInvalidInput, c.cfg.ImageMaxBytes)
	}

	mt := mimetype.Detect(data)
	if !strings.HasPrefix(mt.String(), "image/") {
		return nil, "", fmt.Errorf("%w: unsupported content type %s", generation.ErrInvalidInput, mt.String())
	}
	return data, mt.String(), nil
}

package gemini

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/phrazzld/moodboard-api/internal/config"
	"github.com/phrazzld/moodboard-api/internal/generation"
	"golang.org/x/time/rate"
	"google.golang.org/genai"
)

// modelService is the subset of genai.Models used by Client.
type modelService interface {
	GenerateContent(
		ctx context.Context,
		model string,
		contents []*genai.Content,
		config *genai.GenerateContentConfig,
	) (*genai.GenerateContentResponse, error)
	EmbedContent(
		ctx context.Context,
		model string,
		contents []*genai.Content,
		config *genai.EmbedContentConfig,
	) (*genai.EmbedContentResponse, error)
}

// Client implements generation.Embedder, generation.ImageAnalyzer and
// generation.ClusterNamer.
type Client struct {
	models     modelService
	httpClient *http.Client
	limiter    *rate.Limiter
	cfg        config.LLMConfig
	logger     *slog.Logger
}

var (
	_ generation.Embedder      = (*Client)(nil)
	_ generation.ImageAnalyzer = (*Client)(nil)
	_ generation.ClusterNamer  = (*Client)(nil)
)

// NewClient creates a Gemini client from configuration.
func NewClient(ctx context.Context, cfg config.LLMConfig, logger *slog.Logger) (*Client, error) {
	if logger == nil {
		return nil, fmt.Errorf("%w: logger cannot be nil", generation.ErrInvalidConfig)
	}
	if cfg.GeminiAPIKey == "" {
		return nil, fmt.Errorf("%w: gemini API key cannot be empty", generation.ErrInvalidConfig)
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.GeminiAPIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: failed to create Gemini client: %v", generation.ErrInvalidConfig, err)
	}

	logger.InfoContext(ctx, "gemini client initialized",
		slog.String("embedding_model", cfg.EmbeddingModel),
		slog.String("vision_model", cfg.VisionModel),
		slog.String("naming_model", cfg.NamingModel),
		slog.Float64("requests_per_second", cfg.RequestsPerSecond))

	return newClient(client.Models, &http.Client{Timeout: 30 * time.Second}, cfg, logger), nil
}

func newClient(models modelService, httpClient *http.Client, cfg config.LLMConfig, logger *slog.Logger) *Client {
	burst := int(cfg.RequestsPerSecond)
	if burst < 1 {
		burst = 1
	}
	return &Client{
		models:     models,
		httpClient: httpClient,
		limiter:    rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), burst),
		cfg:        cfg,
		logger:     logger.With(slog.String("component", "gemini")),
	}
}

// wait blocks until the rate limiter admits one more request.
func (c *Client) wait(ctx context.Context) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limiter: %w", err)
	}
	return nil
}

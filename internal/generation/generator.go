package generation

import "context"

// Embedder turns text into an embedding vector.
type Embedder interface {
	// EmbedText returns the embedding of text. Empty text is ErrInvalidInput.
	EmbedText(ctx context.Context, text string) ([]float32, error)
}

// ImageAnalysis is the result of analyzing one image.
type ImageAnalysis struct {
	// Description is a detailed description of the image used for similarity.
	Description string
	// Caption is a short human-readable caption shown as the item's content.
	Caption string
	// Embedding is the embedding of Description, never of Caption.
	Embedding []float32
}

// ImageAnalyzer describes an image and embeds the description.
type ImageAnalyzer interface {
	AnalyzeImage(ctx context.Context, imageURL string) (*ImageAnalysis, error)
}

// ClusterNamer produces a short label for a group of item contents.
type ClusterNamer interface {
	// NameCluster returns a non-empty label for the given sample contents.
	NameCluster(ctx context.Context, samples []string) (string, error)
}

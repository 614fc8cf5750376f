package mocks

import (
	"context"
	"sync"

	"github.com/phrazzld/moodboard-api/internal/generation"
)

// MockEmbedder implements generation.Embedder for testing
type MockEmbedder struct {
	// EmbedTextFn allows test cases to mock the EmbedText behavior
	EmbedTextFn func(ctx context.Context, text string) ([]float32, error)

	// Default response values
	Embedding []float32
	Err       error

	// Call tracking for verification
	EmbedTextCalls struct {
		mu    sync.Mutex
		Count int
		Texts []string
	}
}

var _ generation.Embedder = (*MockEmbedder)(nil)

// EmbedText implements the generation.Embedder interface
func (m *MockEmbedder) EmbedText(ctx context.Context, text string) ([]float32, error) {
	m.EmbedTextCalls.mu.Lock()
	m.EmbedTextCalls.Count++
	m.EmbedTextCalls.Texts = append(m.EmbedTextCalls.Texts, text)
	m.EmbedTextCalls.mu.Unlock()

	if m.EmbedTextFn != nil {
		return m.EmbedTextFn(ctx, text)
	}
	return m.Embedding, m.Err
}

// CallCount returns the number of EmbedText calls.
func (m *MockEmbedder) CallCount() int {
	m.EmbedTextCalls.mu.Lock()
	defer m.EmbedTextCalls.mu.Unlock()
	return m.EmbedTextCalls.Count
}

// MockImageAnalyzer implements generation.ImageAnalyzer for testing
type MockImageAnalyzer struct {
	// AnalyzeImageFn allows test cases to mock the AnalyzeImage behavior
	AnalyzeImageFn func(ctx context.Context, imageURL string) (*generation.ImageAnalysis, error)

	// Default response values
	Analysis *generation.ImageAnalysis
	Err      error

	// Call tracking for verification
	AnalyzeImageCalls struct {
		mu        sync.Mutex
		Count     int
		ImageURLs []string
	}
}

var _ generation.ImageAnalyzer = (*MockImageAnalyzer)(nil)

// AnalyzeImage implements the generation.ImageAnalyzer interface
func (m *MockImageAnalyzer) AnalyzeImage(
	ctx context.Context,
	imageURL string,
) (*generation.ImageAnalysis, error) {
	m.AnalyzeImageCalls.mu.Lock()
	m.AnalyzeImageCalls.Count++
	m.AnalyzeImageCalls.ImageURLs = append(m.AnalyzeImageCalls.ImageURLs, imageURL)
	m.AnalyzeImageCalls.mu.Unlock()

	if m.AnalyzeImageFn != nil {
		return m.AnalyzeImageFn(ctx, imageURL)
	}
	return m.Analysis, m.Err
}

// CallCount returns the number of AnalyzeImage calls.
func (m *MockImageAnalyzer) CallCount() int {
	m.AnalyzeImageCalls.mu.Lock()
	defer m.AnalyzeImageCalls.mu.Unlock()
	return m.AnalyzeImageCalls.Count
}

// MockClusterNamer implements generation.ClusterNamer for testing
type MockClusterNamer struct {
	// NameClusterFn allows test cases to mock the NameCluster behavior
	NameClusterFn func(ctx context.Context, samples []string) (string, error)

	// Default response values
	Name string
	Err  error

	// Call tracking for verification
	NameClusterCalls struct {
		mu      sync.Mutex
		Count   int
		Samples [][]string
	}
}

var _ generation.ClusterNamer = (*MockClusterNamer)(nil)

// NameCluster implements the generation.ClusterNamer interface
func (m *MockClusterNamer) NameCluster(ctx context.Context, samples []string) (string, error) {
	m.NameClusterCalls.mu.Lock()
	m.NameClusterCalls.Count++
	m.NameClusterCalls.Samples = append(m.NameClusterCalls.Samples, append([]string(nil), samples...))
	m.NameClusterCalls.mu.Unlock()

	if m.NameClusterFn != nil {
		return m.NameClusterFn(ctx, samples)
	}
	return m.Name, m.Err
}

// CallCount returns the number of NameCluster calls.
func (m *MockClusterNamer) CallCount() int {
	m.NameClusterCalls.mu.Lock()
	defer m.NameClusterCalls.mu.Unlock()
	return m.NameClusterCalls.Count
}

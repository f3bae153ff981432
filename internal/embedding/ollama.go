package embedding

import (
	"context"
	"fmt"
	"sync"

	"github.com/tmc/langchaingo/embeddings"
	"github.com/tmc/langchaingo/llms/ollama"
)

// OllamaEmbedder encodes text with an embedding model served by Ollama.
type OllamaEmbedder struct {
	model      embeddings.Embedder
	modelName  string
	dimensions int
	mu         sync.Mutex
}

// NewOllamaEmbedder connects to the Ollama server at baseURL. dimensions is
// the expected width; it is replaced by the observed width after the first call.
func NewOllamaEmbedder(baseURL, model string, dimensions int) (*OllamaEmbedder, error) {
	llm, err := ollama.New(
		ollama.WithModel(model),
		ollama.WithServerURL(baseURL),
	)
	if err != nil {
		return nil, fmt.Errorf("create ollama client: %w", err)
	}
	emb, err := embeddings.NewEmbedder(llm)
	if err != nil {
		return nil, fmt.Errorf("create ollama embedder: %w", err)
	}
	return &OllamaEmbedder{model: emb, modelName: model, dimensions: dimensions}, nil
}

// Embed returns the embedding for a single text.
func (e *OllamaEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	vectors, err := e.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

// EmbedBatch embeds texts in one request.
func (e *OllamaEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return [][]float32{}, nil
	}
	vectors, err := e.model.EmbedDocuments(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("embed with %s: %w", e.modelName, err)
	}
	if len(vectors) != len(texts) {
		return nil, fmt.Errorf("embed with %s: got %d vectors for %d texts", e.modelName, len(vectors), len(texts))
	}
	e.mu.Lock()
	e.dimensions = len(vectors[0])
	e.mu.Unlock()
	return vectors, nil
}

// Dimensions returns the last observed embedding width.
func (e *OllamaEmbedder) Dimensions() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.dimensions
}

// Close is a no-op; the HTTP client holds no resources.
func (e *OllamaEmbedder) Close() error {
	return nil
}

package embedding

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/hyperjump/shirabe/internal/config"
)

// Provider names accepted in embedding.provider.
const (
	ProviderHash   = "hash"
	ProviderONNX   = "onnx"
	ProviderOllama = "ollama"
)

// New builds the encoder selected by cfg and wraps it in an LRU cache.
// An ONNX model that fails to load falls back to the hashing encoder.
func New(cfg config.EmbeddingConfig, ollamaURL string, logger *zap.Logger) (Embedder, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	var inner Embedder
	switch cfg.Provider {
	case ProviderHash, "mock", "":
		inner = NewHashEmbedder(cfg.Dimensions)
	case ProviderONNX:
		onnx, err := NewONNXEmbedder(ONNXConfig{
			ModelPath:   cfg.ModelPath,
			LibraryPath: cfg.LibraryPath,
			Dimensions:  cfg.Dimensions,
			MaxTokens:   cfg.MaxTokens,
		})
		if err != nil {
			logger.Warn("ONNX embedder unavailable, using hash embedder", zap.Error(err))
			inner = NewHashEmbedder(cfg.Dimensions)
		} else {
			inner = onnx
		}
	case ProviderOllama:
		ollama, err := NewOllamaEmbedder(ollamaURL, cfg.Model, cfg.Dimensions)
		if err != nil {
			return nil, err
		}
		inner = ollama
	default:
		return nil, fmt.Errorf("unknown embedding provider: %s (supported: hash, onnx, ollama)", cfg.Provider)
	}
	if cfg.CacheSize <= 0 {
		return inner, nil
	}
	return NewCachedEmbedder(inner, cfg.CacheSize), nil
}

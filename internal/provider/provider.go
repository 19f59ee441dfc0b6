// Package provider contains embedding provider clients. Providers do
// no caching and no retrying: reuse decisions happen before texts get
// here, and a failed batch fails the whole sync.
package provider

import (
	"context"
	"errors"
	"fmt"
)

// Sentinel errors for provider operations.
var (
	ErrRateLimit       = errors.New("rate limit exceeded")
	ErrTimeout         = errors.New("request timed out")
	ErrInvalidResponse = errors.New("invalid response from provider")
)

// Embedder generates a vector embedding for a single text.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// BatchEmbedder embeds an ordered list of texts, returning one vector
// per text in the same order. An empty input yields an empty result
// without calling the underlying model.
type BatchEmbedder interface {
	Embedder
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
}

// EmbedBatchSequential implements batch embedding by calling Embed once
// per text. Fallback for providers without a native batch endpoint.
func EmbedBatchSequential(ctx context.Context, embedder Embedder, texts []string) ([][]float32, error) {
	results := make([][]float32, len(texts))
	for i, text := range texts {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		emb, err := embedder.Embed(ctx, text)
		if err != nil {
			return nil, fmt.Errorf("embedding text %d: %w", i, err)
		}
		results[i] = emb
	}
	return results, nil
}

// Config holds configuration for creating a BatchEmbedder.
type Config struct {
	Type   string
	Model  string
	APIKey string
	URL    string
}

// New creates a BatchEmbedder from config. Supported types: "openai",
// "ollama".
func New(cfg Config) (BatchEmbedder, error) {
	switch cfg.Type {
	case "openai":
		if cfg.APIKey == "" {
			return nil, fmt.Errorf("openai embedding provider requires an api_key")
		}
		return NewOpenAIEmbedder(cfg.APIKey, cfg.Model), nil
	case "ollama":
		return NewOllamaEmbedder(cfg.URL, cfg.Model), nil
	default:
		return nil, fmt.Errorf("unknown embedding provider type %q", cfg.Type)
	}
}

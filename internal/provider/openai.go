package provider

import (
	"context"
	"errors"
	"fmt"
	"sort"

	openai "github.com/sashabaranov/go-openai"
)

const defaultOpenAIEmbeddingModel = string(openai.SmallEmbedding3)

// OpenAIEmbedder implements BatchEmbedder using the OpenAI embeddings
// API, which supports embedding a whole batch in one call.
type OpenAIEmbedder struct {
	client *openai.Client
	model  openai.EmbeddingModel
}

// NewOpenAIEmbedder creates a new OpenAIEmbedder.
// If model is empty, it defaults to text-embedding-3-small.
func NewOpenAIEmbedder(apiKey, model string) *OpenAIEmbedder {
	if model == "" {
		model = defaultOpenAIEmbeddingModel
	}
	return &OpenAIEmbedder{
		client: openai.NewClient(apiKey),
		model:  openai.EmbeddingModel(model),
	}
}

// EmbedBatch embeds all texts in a single API call, returning vectors
// in input order.
func (o *OpenAIEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	resp, err := o.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Input: texts,
		Model: o.model,
	})
	if err != nil {
		var apiErr *openai.APIError
		if errors.As(err, &apiErr) {
			if apiErr.HTTPStatusCode == 429 {
				return nil, fmt.Errorf("%w: %s", ErrRateLimit, err)
			}
			if apiErr.HTTPStatusCode == 408 || apiErr.HTTPStatusCode == 504 {
				return nil, fmt.Errorf("%w: %s", ErrTimeout, err)
			}
		}
		if ctx.Err() != nil {
			return nil, fmt.Errorf("%w: %s", ErrTimeout, ctx.Err())
		}
		return nil, fmt.Errorf("openai embeddings: %w", err)
	}

	if len(resp.Data) != len(texts) {
		return nil, fmt.Errorf("%w: got %d embeddings for %d inputs", ErrInvalidResponse, len(resp.Data), len(texts))
	}

	// The API tags each embedding with its input index; order by it
	// rather than trusting response order.
	data := make([]openai.Embedding, len(resp.Data))
	copy(data, resp.Data)
	sort.Slice(data, func(i, j int) bool { return data[i].Index < data[j].Index })

	vectors := make([][]float32, len(texts))
	for i, d := range data {
		if len(d.Embedding) == 0 {
			return nil, fmt.Errorf("%w: empty embedding at index %d", ErrInvalidResponse, i)
		}
		vectors[i] = d.Embedding
	}
	return vectors, nil
}

// Embed embeds a single text.
func (o *OpenAIEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	vectors, err := o.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

var _ BatchEmbedder = (*OpenAIEmbedder)(nil)

package llm

import (
	"context"
	"fmt"
	"time"

	openai "github.com/sashabaranov/go-openai"
)

// EmbeddingsClient is a client for an OpenAI-compatible embeddings API.
type EmbeddingsClient struct {
	BaseURL      string
	Model        string
	ExpectedSize int // Expected vector size for validation
	Timeout      time.Duration
	client       *openai.Client
}

// NewEmbeddingsClient creates a new embeddings client.
// expectedSize is the expected vector size (from EMBEDDING_DIMENSION config).
// All embeddings returned by EmbedTexts will be validated against this size.
func NewEmbeddingsClient(baseURL, apiKey, model string, expectedSize int, timeout time.Duration) *EmbeddingsClient {
	return &EmbeddingsClient{
		BaseURL:      baseURL,
		Model:        model,
		ExpectedSize: expectedSize,
		Timeout:      timeout,
		client:       newOpenAIClient(baseURL, apiKey),
	}
}

// EmbedTexts generates embeddings for the given texts.
// Returns a slice of float32 vectors, one per input text, in input order.
// Validates that all returned vectors match the expected size.
func (c *EmbeddingsClient) EmbedTexts(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, fmt.Errorf("empty input array")
	}

	var result [][]float32
	err := withRetry(ctx, c.Timeout, "embeddings", func(ctx context.Context) error {
		resp, err := c.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
			Model: openai.EmbeddingModel(c.Model),
			Input: texts,
		})
		if err != nil {
			return fmt.Errorf("failed to send request: %w", err)
		}

		if len(resp.Data) != len(texts) {
			return fmt.Errorf("expected %d embeddings, got %d", len(texts), len(resp.Data))
		}

		out := make([][]float32, len(texts))
		for i, data := range resp.Data {
			if len(data.Embedding) != c.ExpectedSize {
				return fmt.Errorf("embedding %d has size %d, expected %d", i, len(data.Embedding), c.ExpectedSize)
			}
			idx := data.Index
			if idx < 0 || idx >= len(texts) || out[idx] != nil {
				idx = i
			}
			vec := make([]float32, len(data.Embedding))
			for j, v := range data.Embedding {
				vec[j] = float32(v)
			}
			out[idx] = vec
		}
		result = out
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// Validate embeds a sample string and checks the model's output dimension.
// It is meant to run once at startup so a misconfigured model fails fast.
func (c *EmbeddingsClient) Validate(ctx context.Context) error {
	if _, err := c.EmbedTexts(ctx, []string{"test"}); err != nil {
		return fmt.Errorf("embedding model %q failed validation: %w", c.Model, err)
	}
	return nil
}

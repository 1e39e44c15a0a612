package llm

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
)

// Client is a chat client for any OpenAI-compatible completions API (Ollama, llama.cpp, vLLM).
type Client struct {
	BaseURL string
	Model   string
	Timeout time.Duration
	client  *openai.Client
}

// NewClient creates a new LLM client. baseURL must include the API version prefix,
// e.g. http://localhost:11434/v1.
func NewClient(baseURL, apiKey, model string, timeout time.Duration) *Client {
	return &Client{
		BaseURL: baseURL,
		Model:   model,
		Timeout: timeout,
		client:  newOpenAIClient(baseURL, apiKey),
	}
}

// Chat sends a single-turn prompt and returns the assistant reply text.
// A call that exceeds the client timeout is retried once.
func (c *Client) Chat(ctx context.Context, prompt string) (string, error) {
	var reply string
	err := withRetry(ctx, c.Timeout, "chat", func(ctx context.Context) error {
		resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
			Model: c.Model,
			Messages: []openai.ChatCompletionMessage{
				{
					Role:    openai.ChatMessageRoleUser,
					Content: prompt,
				},
			},
		})
		if err != nil {
			return fmt.Errorf("failed to send request: %w", err)
		}
		if len(resp.Choices) == 0 {
			return fmt.Errorf("no choices returned")
		}
		reply = strings.TrimSpace(resp.Choices[0].Message.Content)
		return nil
	})
	if err != nil {
		return "", err
	}
	return reply, nil
}

func newOpenAIClient(baseURL, apiKey string) *openai.Client {
	cfg := openai.DefaultConfig(apiKey)
	cfg.BaseURL = strings.TrimRight(baseURL, "/")
	cfg.HTTPClient = &http.Client{}
	return openai.NewClientWithConfig(cfg)
}

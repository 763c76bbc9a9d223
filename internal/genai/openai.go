package genai

import (
	"context"
	"errors"
	"fmt"
	"time"

	openai "github.com/sashabaranov/go-openai"
)

// OpenAIConfig holds configuration for the OpenAI-backed provider tiers.
type OpenAIConfig struct {
	APIKey  string
	Model   string        // default: gpt-4o-mini
	BaseURL string        // optional override for compatible gateways
	Timeout time.Duration // default: 60s
}

// OpenAIClient implements Provider using the OpenAI chat completions API.
// A flash tier and a strict tier are just two clients with different models.
type OpenAIClient struct {
	api            *openai.Client
	model          string
	timeout        time.Duration
	circuitBreaker *CircuitBreaker
}

// NewOpenAIClient creates a provider for the given model tier.
func NewOpenAIClient(cfg OpenAIConfig) *OpenAIClient {
	if cfg.Model == "" {
		cfg.Model = "gpt-4o-mini"
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 60 * time.Second
	}

	apiCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		apiCfg.BaseURL = cfg.BaseURL
	}

	return &OpenAIClient{
		api:            openai.NewClientWithConfig(apiCfg),
		model:          cfg.Model,
		timeout:        cfg.Timeout,
		circuitBreaker: NewCircuitBreaker(),
	}
}

// Complete sends a single-turn completion. A content_filter finish reason is
// reported via BlockReason; any text in the first choice is still returned,
// because the resilient layer prefers partial text over a block verdict.
func (c *OpenAIClient) Complete(ctx context.Context, prompt string, opts Options) (*Completion, error) {
	result, err := c.circuitBreaker.Execute(ctx, func() (interface{}, error) {
		return c.complete(ctx, prompt, opts)
	})
	if err != nil {
		if errors.Is(err, ErrCircuitOpen) {
			return nil, fmt.Errorf("openai circuit breaker open: %w", err)
		}
		return nil, err
	}
	return result.(*Completion), nil
}

func (c *OpenAIClient) complete(ctx context.Context, prompt string, opts Options) (*Completion, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req := openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		Temperature: float32(opts.Temperature),
	}
	if opts.JSONMode {
		req.ResponseFormat = &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		}
	}

	resp, err := c.api.CreateChatCompletion(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("openai completion failed: %w", err)
	}

	if len(resp.Choices) == 0 {
		return &Completion{Model: c.model}, nil
	}

	choice := resp.Choices[0]
	completion := &Completion{
		Text:  choice.Message.Content,
		Model: c.model,
	}
	if choice.FinishReason == openai.FinishReasonContentFilter {
		completion.BlockReason = "content_filter"
	}

	return completion, nil
}

// GetModel returns the configured model name.
func (c *OpenAIClient) GetModel() string {
	return c.model
}

var _ Provider = (*OpenAIClient)(nil)

// OpenAIEmbeddingClient implements EmbeddingGenerator using the OpenAI
// embeddings API.
type OpenAIEmbeddingClient struct {
	api            *openai.Client
	model          openai.EmbeddingModel
	timeout        time.Duration
	circuitBreaker *CircuitBreaker
}

// NewOpenAIEmbeddingClient creates an embedding client. Model defaults to
// text-embedding-3-small.
func NewOpenAIEmbeddingClient(cfg OpenAIConfig) *OpenAIEmbeddingClient {
	if cfg.Model == "" {
		cfg.Model = string(openai.SmallEmbedding3)
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}

	apiCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		apiCfg.BaseURL = cfg.BaseURL
	}

	return &OpenAIEmbeddingClient{
		api:            openai.NewClientWithConfig(apiCfg),
		model:          openai.EmbeddingModel(cfg.Model),
		timeout:        cfg.Timeout,
		circuitBreaker: NewCircuitBreaker(),
	}
}

// Embed generates an embedding vector for the given text.
func (c *OpenAIEmbeddingClient) Embed(ctx context.Context, text string) ([]float32, error) {
	result, err := c.circuitBreaker.Execute(ctx, func() (interface{}, error) {
		return c.embed(ctx, text)
	})
	if err != nil {
		if errors.Is(err, ErrCircuitOpen) {
			return nil, fmt.Errorf("openai embedding circuit breaker open: %w", err)
		}
		return nil, err
	}
	return result.([]float32), nil
}

func (c *OpenAIEmbeddingClient) embed(ctx context.Context, text string) ([]float32, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	resp, err := c.api.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Input: []string{text},
		Model: c.model,
	})
	if err != nil {
		return nil, fmt.Errorf("openai embedding failed: %w", err)
	}

	if len(resp.Data) == 0 || len(resp.Data[0].Embedding) == 0 {
		return nil, fmt.Errorf("openai returned empty embedding")
	}

	return resp.Data[0].Embedding, nil
}

// GetModel returns the configured embedding model name.
func (c *OpenAIEmbeddingClient) GetModel() string {
	return string(c.model)
}

var _ EmbeddingGenerator = (*OpenAIEmbeddingClient)(nil)

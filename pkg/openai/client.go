// Package openai wraps the OpenAI chat completion API (and OpenAI-compatible
// endpoints) behind a small client interface.
package openai

import (
	"context"

	"github.com/rotisserie/eris"
	openai "github.com/sashabaranov/go-openai"
)

// Client defines the chat completion operation used by the pipeline.
type Client interface {
	Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error)
}

// CompletionRequest is our own request type for Complete.
type CompletionRequest struct {
	Model        string
	SystemPrompt string
	UserPrompt   string
	Temperature  float32
	MaxTokens    int
}

// CompletionResponse holds the model's text output and token usage.
type CompletionResponse struct {
	Text         string
	Model        string
	InputTokens  int
	OutputTokens int
}

// Config holds OpenAI API settings.
type Config struct {
	APIKey      string
	BaseURL     string // empty = api.openai.com; set for Groq/Ollama-style endpoints
	Temperature float32
	MaxTokens   int
}

// DefaultConfig returns settings tuned for factual extraction tasks.
func DefaultConfig() Config {
	return Config{
		Temperature: 0.3,
		MaxTokens:   2000,
	}
}

type apiClient struct {
	client *openai.Client
	cfg    Config
}

// NewClient creates an OpenAI-backed client. A non-empty BaseURL points the
// client at an OpenAI-compatible endpoint.
func NewClient(cfg Config) Client {
	sdkCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		sdkCfg.BaseURL = cfg.BaseURL
	}
	return &apiClient{
		client: openai.NewClientWithConfig(sdkCfg),
		cfg:    cfg,
	}
}

func (c *apiClient) Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error) {
	temperature := req.Temperature
	if temperature == 0 {
		temperature = c.cfg.Temperature
	}
	maxTokens := req.MaxTokens
	if maxTokens == 0 {
		maxTokens = c.cfg.MaxTokens
	}

	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       req.Model,
		Temperature: temperature,
		MaxTokens:   maxTokens,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: req.SystemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: req.UserPrompt},
		},
	})
	if err != nil {
		return nil, eris.Wrap(err, "openai: create chat completion")
	}
	if len(resp.Choices) == 0 {
		return nil, eris.New("openai: empty choices in response")
	}

	return &CompletionResponse{
		Text:         resp.Choices[0].Message.Content,
		Model:        resp.Model,
		InputTokens:  resp.Usage.PromptTokens,
		OutputTokens: resp.Usage.CompletionTokens,
	}, nil
}

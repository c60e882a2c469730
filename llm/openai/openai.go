// Package openai serves chat completions from any OpenAI-compatible
// /chat/completions endpoint.
package openai

import (
	"context"

	"github.com/kbukum/stageflow/errors"
	"github.com/kbukum/stageflow/llm"
)

// Dialect is the name this backend registers under.
const Dialect = "openai"

func init() {
	llm.RegisterDialect(Dialect, func(cfg llm.Config) (llm.Provider, error) {
		return New(cfg), nil
	})
}

// Provider implements llm.Provider. The API key, if any, is sent as a
// Bearer token.
type Provider struct {
	cfg    llm.Config
	client *llm.Client
}

// New creates a provider. cfg is expected to have defaults applied.
func New(cfg llm.Config) *Provider {
	return &Provider{cfg: cfg, client: llm.NewClient(cfg.Name, cfg)}
}

// Name returns the configured provider name.
func (p *Provider) Name() string { return p.cfg.Name }

// IsAvailable reports whether GET /models succeeds.
func (p *Provider) IsAvailable(ctx context.Context) bool {
	return p.client.Get(ctx, "/models")
}

// Execute posts a chat completion and returns the first choice.
func (p *Provider) Execute(ctx context.Context, req llm.CompletionRequest) (llm.CompletionResponse, error) {
	p.cfg.ApplyRequestDefaults(&req)

	body := chatRequest{
		Model:       req.Model,
		Messages:    req.AllMessages(),
		Temperature: req.Temperature,
		MaxTokens:   req.MaxTokens,
	}
	var resp chatResponse
	if err := p.client.PostJSON(ctx, "/chat/completions", body, &resp); err != nil {
		return llm.CompletionResponse{}, err
	}
	if len(resp.Choices) == 0 {
		e := errors.ExternalService(p.Name(), nil).WithDetail("reason", "no choices")
		e.Retryable = false
		return llm.CompletionResponse{}, e
	}
	return llm.CompletionResponse{
		Content: resp.Choices[0].Message.Content,
		Model:   resp.Model,
		Usage: llm.Usage{
			PromptTokens:     resp.Usage.PromptTokens,
			CompletionTokens: resp.Usage.CompletionTokens,
			TotalTokens:      resp.Usage.TotalTokens,
		},
	}, nil
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []llm.Message `json:"messages"`
	Temperature float64       `json:"temperature,omitempty"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
}

type chatResponse struct {
	Model   string `json:"model"`
	Choices []struct {
		Index        int         `json:"index"`
		Message      llm.Message `json:"message"`
		FinishReason string      `json:"finish_reason"`
	} `json:"choices"`
	Usage llm.Usage `json:"usage"`
}

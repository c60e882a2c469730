// Package ollama serves chat completions from an Ollama server.
package ollama

import (
	"context"

	"github.com/kbukum/stageflow/llm"
)

// Dialect is the name this backend registers under.
const Dialect = "ollama"

func init() {
	llm.RegisterDialect(Dialect, func(cfg llm.Config) (llm.Provider, error) {
		return New(cfg), nil
	})
}

// Provider implements llm.Provider on Ollama's /api/chat endpoint with
// streaming disabled.
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

// IsAvailable reports whether the server answers /api/tags.
func (p *Provider) IsAvailable(ctx context.Context) bool {
	return p.client.Get(ctx, "/api/tags")
}

// Execute sends a chat request and returns the assistant reply.
func (p *Provider) Execute(ctx context.Context, req llm.CompletionRequest) (llm.CompletionResponse, error) {
	p.cfg.ApplyRequestDefaults(&req)

	var resp chatResponse
	if err := p.client.PostJSON(ctx, "/api/chat", buildChatRequest(req), &resp); err != nil {
		return llm.CompletionResponse{}, err
	}
	return llm.CompletionResponse{
		Content: resp.Message.Content,
		Model:   resp.Model,
		Usage: llm.Usage{
			PromptTokens:     resp.PromptEvalCount,
			CompletionTokens: resp.EvalCount,
			TotalTokens:      resp.PromptEvalCount + resp.EvalCount,
		},
	}, nil
}

type chatRequest struct {
	Model    string        `json:"model"`
	Messages []llm.Message `json:"messages"`
	Stream   bool          `json:"stream"`
	Options  *options      `json:"options,omitempty"`
}

type options struct {
	Temperature float64 `json:"temperature,omitempty"`
	NumPredict  int     `json:"num_predict,omitempty"`
}

type chatResponse struct {
	Model           string      `json:"model"`
	Message         llm.Message `json:"message"`
	Done            bool        `json:"done"`
	PromptEvalCount int         `json:"prompt_eval_count,omitempty"`
	EvalCount       int         `json:"eval_count,omitempty"`
}

func buildChatRequest(req llm.CompletionRequest) chatRequest {
	out := chatRequest{Model: req.Model, Messages: req.AllMessages()}
	if req.Temperature != 0 || req.MaxTokens != 0 {
		out.Options = &options{Temperature: req.Temperature, NumPredict: req.MaxTokens}
	}
	return out
}

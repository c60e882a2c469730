package llm

import (
	"github.com/kbukum/stageflow/provider"
)

// Provider is a chat completion backend.
type Provider = provider.RequestResponse[CompletionRequest, CompletionResponse]

var dialects = provider.NewRegistry[Config, Provider]()

// RegisterDialect makes a backend available to New under name. Backend
// packages call it from init:
//
//	func init() { llm.RegisterDialect("openai", New) }
func RegisterDialect(name string, factory provider.Factory[Config, Provider]) {
	dialects.Register(name, factory)
}

// Dialects returns the registered dialect names, sorted.
func Dialects() []string {
	return dialects.Names()
}

// New validates cfg and creates a provider with the factory registered for
// cfg.Dialect. The backend package must be imported for its side effect.
func New(cfg Config) (Provider, error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return dialects.Create(cfg.Dialect, cfg)
}

// NewProvider creates a provider like New and wraps it with mws followed by
// the retry and circuit breaker middleware configured in cfg.
func NewProvider(cfg Config, mws ...provider.Middleware[CompletionRequest, CompletionResponse]) (Provider, error) {
	p, err := New(cfg)
	if err != nil {
		return nil, err
	}
	resilient := provider.WithResilience[CompletionRequest, CompletionResponse](provider.ResilienceConfig{
		Retry:          cfg.Retry,
		CircuitBreaker: cfg.CircuitBreaker,
	})
	chain := make([]provider.Middleware[CompletionRequest, CompletionResponse], 0, len(mws)+1)
	chain = append(chain, mws...)
	chain = append(chain, resilient)
	return provider.Chain(chain...)(p), nil
}

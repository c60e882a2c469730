package llm

import (
	"time"

	"github.com/kbukum/stageflow/resilience"
	"github.com/kbukum/stageflow/validation"
)

// Config selects and configures a chat completion backend.
type Config struct {
	// Name identifies the provider instance in logs, spans and metrics.
	Name string `yaml:"name" mapstructure:"name"`
	// Dialect selects the backend, e.g. "openai" or "ollama".
	Dialect string `yaml:"dialect" mapstructure:"dialect" validate:"required"`
	// BaseURL is the API root, e.g. "https://api.openai.com/v1".
	BaseURL string `yaml:"base_url" mapstructure:"base_url" validate:"required,url"`
	// APIKey is sent as a Bearer token when set.
	APIKey string `yaml:"api_key" mapstructure:"api_key"`
	// Model is the default model for requests that do not name one.
	Model string `yaml:"model" mapstructure:"model" validate:"required"`
	// Temperature is the default sampling temperature.
	Temperature float64 `yaml:"temperature" mapstructure:"temperature" validate:"gte=0,lte=2"`
	// MaxTokens is the default response limit. 0 means the backend default.
	MaxTokens int `yaml:"max_tokens" mapstructure:"max_tokens" validate:"gte=0"`
	// Timeout bounds each HTTP request. Defaults to 120s.
	Timeout time.Duration `yaml:"timeout" mapstructure:"timeout"`
	// Headers are sent with every request.
	Headers map[string]string `yaml:"headers" mapstructure:"headers"`

	Retry          *resilience.RetryConfig          `yaml:"retry" mapstructure:"retry"`
	CircuitBreaker *resilience.CircuitBreakerConfig `yaml:"circuit_breaker" mapstructure:"circuit_breaker"`
}

// ApplyDefaults fills unset fields.
func (c *Config) ApplyDefaults() {
	if c.Timeout == 0 {
		c.Timeout = 120 * time.Second
	}
	if c.Name == "" && c.Dialect != "" {
		c.Name = c.Dialect + "-llm"
	}
}

// Validate checks the configuration.
func (c *Config) Validate() error {
	return validation.Validate(c)
}

// ApplyRequestDefaults fills the model, temperature and token limit of req
// from the configuration where req leaves them unset.
func (c Config) ApplyRequestDefaults(req *CompletionRequest) {
	if req.Model == "" {
		req.Model = c.Model
	}
	if req.Temperature == 0 {
		req.Temperature = c.Temperature
	}
	if req.MaxTokens == 0 {
		req.MaxTokens = c.MaxTokens
	}
}

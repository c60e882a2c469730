package provider

import (
	"context"
	"errors"

	apperrors "github.com/kbukum/stageflow/errors"
	"github.com/kbukum/stageflow/resilience"
)

// ResilienceConfig bundles optional resilience policies. Nil fields are skipped.
type ResilienceConfig struct {
	// CircuitBreaker stops calls after repeated failures.
	CircuitBreaker *resilience.CircuitBreakerConfig `yaml:"circuit_breaker" mapstructure:"circuit_breaker"`
	// Retry retries failed calls with exponential backoff.
	Retry *resilience.RetryConfig `yaml:"retry" mapstructure:"retry"`
}

// IsEmpty reports whether no policy is configured.
func (c ResilienceConfig) IsEmpty() bool {
	return c.CircuitBreaker == nil && c.Retry == nil
}

// WithResilience applies the configured policies: Retry wraps CircuitBreaker
// wraps Execute, so every attempt is seen by the breaker. An empty config
// returns the provider unchanged.
func WithResilience[I, O any](cfg ResilienceConfig) Middleware[I, O] {
	return func(inner RequestResponse[I, O]) RequestResponse[I, O] {
		if cfg.IsEmpty() {
			return inner
		}
		r := &resilientRR[I, O]{inner: inner, retry: cfg.Retry}
		if cfg.CircuitBreaker != nil {
			cbCfg := *cfg.CircuitBreaker
			if cbCfg.Name == "" {
				cbCfg.Name = inner.Name()
			}
			r.cb = resilience.NewCircuitBreaker(cbCfg)
		}
		return r
	}
}

type resilientRR[I, O any] struct {
	inner RequestResponse[I, O]
	cb    *resilience.CircuitBreaker
	retry *resilience.RetryConfig
}

func (r *resilientRR[I, O]) Name() string { return r.inner.Name() }

// IsAvailable is false while the circuit is open.
func (r *resilientRR[I, O]) IsAvailable(ctx context.Context) bool {
	if r.cb != nil && r.cb.State() == resilience.StateOpen {
		return false
	}
	return r.inner.IsAvailable(ctx)
}

func (r *resilientRR[I, O]) Execute(ctx context.Context, input I) (O, error) {
	call := func() (O, error) { return r.inner.Execute(ctx, input) }

	if r.cb != nil {
		guarded := call
		call = func() (O, error) {
			var out O
			err := r.cb.Execute(func() error {
				var err error
				out, err = guarded()
				return err
			})
			if errors.Is(err, resilience.ErrCircuitOpen) {
				return out, apperrors.ServiceUnavailable(r.inner.Name()).WithCause(err)
			}
			return out, err
		}
	}

	if r.retry != nil {
		return resilience.Retry(ctx, *r.retry, call)
	}
	return call()
}

package provider

import (
	"context"
	"errors"
	"time"

	apperrors "github.com/kbukum/stageflow/errors"
)

// WithTimeout bounds each Execute call. A call that overruns fails with a
// TIMEOUT AppError wrapping context.DeadlineExceeded. A non-positive d
// returns the provider unchanged.
func WithTimeout[I, O any](d time.Duration) Middleware[I, O] {
	return func(inner RequestResponse[I, O]) RequestResponse[I, O] {
		if d <= 0 {
			return inner
		}
		return &timeoutRR[I, O]{inner: inner, timeout: d}
	}
}

type timeoutRR[I, O any] struct {
	inner   RequestResponse[I, O]
	timeout time.Duration
}

func (t *timeoutRR[I, O]) Name() string                         { return t.inner.Name() }
func (t *timeoutRR[I, O]) IsAvailable(ctx context.Context) bool { return t.inner.IsAvailable(ctx) }

func (t *timeoutRR[I, O]) Execute(ctx context.Context, input I) (O, error) {
	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()

	output, err := t.inner.Execute(ctx, input)
	if err != nil && errors.Is(ctx.Err(), context.DeadlineExceeded) && !apperrors.HasCode(err, apperrors.ErrCodeTimeout) {
		return output, apperrors.Timeout(t.inner.Name()).
			WithDetail("timeout", t.timeout.String()).
			WithCause(context.DeadlineExceeded)
	}
	return output, err
}

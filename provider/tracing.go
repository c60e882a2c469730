package provider

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/kbukum/stageflow/observability"
)

// WithTracing opens a span named "{serviceName}.{providerName}" around each
// Execute call on the given tracer.
func WithTracing[I, O any](tracer trace.Tracer, serviceName string) Middleware[I, O] {
	return func(inner RequestResponse[I, O]) RequestResponse[I, O] {
		return &tracingRR[I, O]{inner: inner, tracer: tracer, serviceName: serviceName}
	}
}

type tracingRR[I, O any] struct {
	inner       RequestResponse[I, O]
	tracer      trace.Tracer
	serviceName string
}

func (t *tracingRR[I, O]) Name() string                         { return t.inner.Name() }
func (t *tracingRR[I, O]) IsAvailable(ctx context.Context) bool { return t.inner.IsAvailable(ctx) }

func (t *tracingRR[I, O]) Execute(ctx context.Context, input I) (O, error) {
	ctx, span := t.tracer.Start(ctx, t.serviceName+"."+t.inner.Name(),
		trace.WithAttributes(
			attribute.String(observability.AttrServiceName, t.serviceName),
			attribute.String(observability.AttrOperationName, t.inner.Name()),
		),
	)
	defer span.End()

	output, err := t.inner.Execute(ctx, input)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return output, err
}

// Package observability builds OpenTelemetry tracer and meter providers and
// the metric instruments used by stageflow.
//
// Providers are returned to the caller and never installed as process-wide
// globals; pass the tracer explicitly to the components that need it:
//
//	tp, err := observability.NewTracerProvider(ctx, observability.DefaultTracerConfig("translate"))
//	defer tp.Shutdown(ctx)
//	sink := workflow.NewTracingSink(tp.Tracer(observability.InstrumentationName))
//
// Metrics:
//
//	mp, err := observability.NewMeterProvider(ctx, observability.DefaultMeterConfig("translate"))
//	metrics, err := observability.NewMetrics(mp.Meter(observability.InstrumentationName))
package observability

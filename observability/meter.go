package observability

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
)

// MeterConfig configures the OpenTelemetry meter provider.
type MeterConfig struct {
	// Enabled turns export on. When false a provider without reader is built.
	Enabled bool `yaml:"enabled" mapstructure:"enabled"`
	// ServiceName is the name of the service.
	ServiceName string `yaml:"service_name" mapstructure:"service_name"`
	// ServiceVersion is the version of the service.
	ServiceVersion string `yaml:"service_version" mapstructure:"service_version"`
	// Environment is the deployment environment (dev, staging, prod).
	Environment string `yaml:"environment" mapstructure:"environment"`
	// Endpoint is the OTLP HTTP endpoint host:port (e.g., "localhost:4318").
	Endpoint string `yaml:"endpoint" mapstructure:"endpoint"`
	// Insecure allows insecure connections (for development).
	Insecure bool `yaml:"insecure" mapstructure:"insecure"`
	// Interval is the metric export interval.
	Interval time.Duration `yaml:"interval" mapstructure:"interval"`
}

// DefaultMeterConfig returns sensible defaults for development.
func DefaultMeterConfig(serviceName string) MeterConfig {
	return MeterConfig{
		Enabled:        true,
		ServiceName:    serviceName,
		ServiceVersion: "1.0.0",
		Environment:    "development",
		Endpoint:       "localhost:4318",
		Insecure:       true,
		Interval:       15 * time.Second,
	}
}

// NewMeterProvider builds a meter provider exporting over OTLP/HTTP.
// The caller owns the provider and must Shutdown it on exit.
func NewMeterProvider(ctx context.Context, config MeterConfig, opts ...sdkmetric.Option) (*sdkmetric.MeterProvider, error) {
	res, err := newResource(config.ServiceName, config.ServiceVersion, config.Environment)
	if err != nil {
		return nil, fmt.Errorf("creating resource: %w", err)
	}

	mpOpts := []sdkmetric.Option{sdkmetric.WithResource(res)}

	if config.Enabled {
		expOpts := []otlpmetrichttp.Option{
			otlpmetrichttp.WithEndpoint(config.Endpoint),
		}
		if config.Insecure {
			expOpts = append(expOpts, otlpmetrichttp.WithInsecure())
		}
		exporter, err := otlpmetrichttp.New(ctx, expOpts...)
		if err != nil {
			return nil, fmt.Errorf("creating metric exporter: %w", err)
		}

		var readerOpts []sdkmetric.PeriodicReaderOption
		if config.Interval > 0 {
			readerOpts = append(readerOpts, sdkmetric.WithInterval(config.Interval))
		}
		mpOpts = append(mpOpts, sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exporter, readerOpts...)))
	}

	return sdkmetric.NewMeterProvider(append(mpOpts, opts...)...), nil
}

// Metrics holds the workflow metric instruments.
type Metrics struct {
	runTotal       metric.Int64Counter
	runActive      metric.Int64UpDownCounter
	stageTotal     metric.Int64Counter
	stageDuration  metric.Float64Histogram
	operationTotal metric.Int64Counter
	errorTotal     metric.Int64Counter
}

// NewMetrics creates metric instruments on the given meter.
func NewMetrics(meter metric.Meter) (*Metrics, error) {
	runTotal, err := meter.Int64Counter("workflow.run.total",
		metric.WithDescription("Workflow runs by terminal status"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating workflow.run.total counter: %w", err)
	}

	runActive, err := meter.Int64UpDownCounter("workflow.run.active",
		metric.WithDescription("Workflow runs currently in progress"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating workflow.run.active gauge: %w", err)
	}

	stageTotal, err := meter.Int64Counter("workflow.stage.total",
		metric.WithDescription("Stage invocations by stage and status"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating workflow.stage.total counter: %w", err)
	}

	stageDuration, err := meter.Float64Histogram("workflow.stage.duration",
		metric.WithDescription("Duration of stage invocations in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating workflow.stage.duration histogram: %w", err)
	}

	operationTotal, err := meter.Int64Counter("provider.operation.total",
		metric.WithDescription("Provider executions by provider and status"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating provider.operation.total counter: %w", err)
	}

	errorTotal, err := meter.Int64Counter("error.total",
		metric.WithDescription("Errors by kind and component"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating error.total counter: %w", err)
	}

	return &Metrics{
		runTotal:       runTotal,
		runActive:      runActive,
		stageTotal:     stageTotal,
		stageDuration:  stageDuration,
		operationTotal: operationTotal,
		errorTotal:     errorTotal,
	}, nil
}

// RecordRunActive moves the in-progress run count by delta.
func (m *Metrics) RecordRunActive(ctx context.Context, graph string, delta int64) {
	m.runActive.Add(ctx, delta, metric.WithAttributes(attribute.String("graph", graph)))
}

// RecordRunEnd counts a run by terminal status.
func (m *Metrics) RecordRunEnd(ctx context.Context, graph, status string) {
	m.runTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("graph", graph),
		attribute.String("status", status),
	))
}

// RecordStage records one stage invocation.
func (m *Metrics) RecordStage(ctx context.Context, graph, stage, status string, duration time.Duration) {
	m.stageTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("graph", graph),
		attribute.String("stage", stage),
		attribute.String("status", status),
	))
	m.stageDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(
		attribute.String("graph", graph),
		attribute.String("stage", stage),
	))
}

// RecordOperation records a provider execution.
func (m *Metrics) RecordOperation(ctx context.Context, provider, status string) {
	m.operationTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("provider", provider),
		attribute.String("status", status),
	))
}

// RecordError records an error by kind and component.
func (m *Metrics) RecordError(ctx context.Context, kind, component string) {
	m.errorTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("kind", kind),
		attribute.String("component", component),
	))
}

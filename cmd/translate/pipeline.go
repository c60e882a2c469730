package main

import (
	"context"
	"fmt"
	"io"
	"strings"

	"go.opentelemetry.io/otel/metric"
	metricnoop "go.opentelemetry.io/otel/metric/noop"
	"go.opentelemetry.io/otel/trace"
	tracenoop "go.opentelemetry.io/otel/trace/noop"

	"github.com/kbukum/stageflow/agent"
	"github.com/kbukum/stageflow/component"
	"github.com/kbukum/stageflow/errors"
	"github.com/kbukum/stageflow/journal"
	"github.com/kbukum/stageflow/llm"
	"github.com/kbukum/stageflow/logger"
	"github.com/kbukum/stageflow/observability"
	"github.com/kbukum/stageflow/provider"
	"github.com/kbukum/stageflow/workflow"
)

// pipeline holds what a translation run needs. The tracer, meter, journal
// and completer are filled in by the components as they start.
type pipeline struct {
	cfg *Config
	log *logger.Logger
	out io.Writer

	tracer    trace.Tracer
	meter     metric.Meter
	metrics   *observability.Metrics
	journal   *journal.Journal
	completer llm.Provider

	stopTracing func(context.Context) error
	stopMetrics func(context.Context) error
}

func newPipeline(cfg *Config, log *logger.Logger, out io.Writer) *pipeline {
	return &pipeline{
		cfg:    cfg,
		log:    log,
		out:    out,
		tracer: tracenoop.NewTracerProvider().Tracer(observability.InstrumentationName),
		meter:  metricnoop.NewMeterProvider().Meter(observability.InstrumentationName),

		stopTracing: func(context.Context) error { return nil },
		stopMetrics: func(context.Context) error { return nil },
	}
}

// components returns the infrastructure in start order.
func (p *pipeline) components() []component.Component {
	tracing := component.New("tracing", func(ctx context.Context) error {
		tp, err := observability.NewTracerProvider(ctx, p.cfg.Tracing)
		if err != nil {
			return err
		}
		p.tracer = tp.Tracer(observability.InstrumentationName)
		p.stopTracing = tp.Shutdown
		return nil
	}, func(ctx context.Context) error { return p.stopTracing(ctx) })

	metrics := component.New("metrics", func(ctx context.Context) error {
		mp, err := observability.NewMeterProvider(ctx, p.cfg.Metrics)
		if err != nil {
			return err
		}
		p.meter = mp.Meter(observability.InstrumentationName)
		p.stopMetrics = mp.Shutdown
		return nil
	}, func(ctx context.Context) error { return p.stopMetrics(ctx) })

	completer := component.New("llm", func(context.Context) error {
		return p.connect()
	}, nil).WithProbe(func(ctx context.Context) error {
		if p.completer == nil {
			return errors.ServiceUnavailable("llm")
		}
		if !p.completer.IsAvailable(ctx) {
			return errors.ServiceUnavailable(p.completer.Name())
		}
		return nil
	})

	out := []component.Component{tracing, metrics, completer}
	if p.cfg.Journal.Enabled {
		out = append(out, component.New("journal", func(ctx context.Context) error {
			j, err := journal.Open(ctx, p.cfg.Journal.DSN, journal.WithLogger(p.log))
			if err != nil {
				return err
			}
			p.journal = j
			return nil
		}, func(context.Context) error {
			return p.journal.Close()
		}).WithProbe(func(ctx context.Context) error {
			return p.journal.Ping(ctx)
		}))
	}
	return out
}

// connect builds the completion provider with logging, tracing and
// metrics around the configured resilience.
func (p *pipeline) connect() error {
	metrics, err := observability.NewMetrics(p.meter)
	if err != nil {
		return err
	}
	p.metrics = metrics
	completer, err := llm.NewProvider(p.cfg.LLM,
		provider.WithLogging[llm.CompletionRequest, llm.CompletionResponse](p.log),
		provider.WithTracing[llm.CompletionRequest, llm.CompletionResponse](p.tracer, p.cfg.LLM.Name),
		provider.WithMetrics[llm.CompletionRequest, llm.CompletionResponse](metrics),
	)
	if err != nil {
		return err
	}
	p.completer = completer
	return nil
}

// capabilities registers one translator per configured language.
func (p *pipeline) capabilities() *workflow.Registry {
	reg := workflow.NewRegistry()
	for _, lang := range p.cfg.Workflow.Languages {
		var c workflow.Capability = agent.NewTranslator(lang, p.completer, agent.WithModel(p.cfg.LLM.Model))
		if d := p.cfg.Workflow.StageTimeout; d > 0 {
			c = workflow.Wrap(lang, c, provider.WithTimeout[workflow.StageInput, string](d))
		}
		reg.Register(strings.ToLower(lang), c)
	}
	return reg
}

// graph loads the definition and builds it against the translators.
func (p *pipeline) graph() (*workflow.Graph, error) {
	def, err := workflow.LoadDefinition(p.cfg.Workflow.Definition, "cmd/translate/pipeline.yaml")
	if err != nil {
		return nil, err
	}
	return def.Build(p.capabilities())
}

// run executes the pipeline once and prints the progress and the final
// output.
func (p *pipeline) run(ctx context.Context) error {
	g, err := p.graph()
	if err != nil {
		return err
	}

	opts := []workflow.RunOption{workflow.WithLogger(p.log), workflow.WithMetrics(p.metrics)}
	if p.journal != nil {
		opts = append(opts, workflow.WithTelemetry(p.journal.Hook(g.Name())))
	}
	if p.cfg.Workflow.StageEvents {
		opts = append(opts, workflow.WithStageStartedEvents())
	}

	run := g.NewRun(ctx, opts...)
	p.log.Info("running workflow", logger.Fields(
		logger.FieldRunID, run.ID(),
		logger.FieldGraph, g.Name(),
		"stages", strings.Join(g.StageIDs(), " -> "),
	))
	if err := run.Start(p.cfg.Workflow.Input); err != nil {
		return err
	}

	sink := workflow.NewTracingSink(p.tracer,
		workflow.WithSinkLogger(p.log),
		workflow.WithProgress(func(ev workflow.Event) {
			fmt.Fprintln(p.out, workflow.ProgressLine(ev))
		}),
	)
	state, err := sink.Drain(ctx, run)
	if err != nil {
		return err
	}
	if state.Status != workflow.StatusCompleted {
		return fmt.Errorf("run %s ended %s", run.ID(), state.Status)
	}
	fmt.Fprintf(p.out, "Final output: %s\n", state.CurrentPayload)
	return nil
}

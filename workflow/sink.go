package workflow

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/kbukum/stageflow/logger"
	"github.com/kbukum/stageflow/observability"
)

// Span names opened by TracingSink.
const (
	RunSpanName         = "workflow.run"
	EventSpanNamePrefix = "workflow.event."
)

// TracingSink drains a run and opens one span per event under a run span.
// Event spans never overlap: each ends before the next one starts. The sink
// only reads events and cannot change the run.
type TracingSink struct {
	tracer   trace.Tracer
	log      *logger.Logger
	progress func(Event)
}

// SinkOption configures a TracingSink.
type SinkOption func(*TracingSink)

// WithSinkLogger sets the logger that receives progress lines.
func WithSinkLogger(log *logger.Logger) SinkOption {
	return func(s *TracingSink) { s.log = log }
}

// WithProgress registers a callback invoked for every event after its span
// was opened.
func WithProgress(fn func(Event)) SinkOption {
	return func(s *TracingSink) { s.progress = fn }
}

// NewTracingSink creates a sink that traces on tracer.
func NewTracingSink(tracer trace.Tracer, opts ...SinkOption) *TracingSink {
	s := &TracingSink{tracer: tracer, log: logger.Nop()}
	for _, opt := range opts {
		opt(s)
	}
	s.log = s.log.WithComponent("tracing-sink")
	return s
}

// Drain consumes every event of run until the stream closes and returns the
// final state together with Run.Err. If ctx is cancelled first, the run is
// cancelled and still drained to its terminal event.
func (s *TracingSink) Drain(ctx context.Context, run *Run) (RunState, error) {
	g := run.Graph()
	ctx, runSpan := s.tracer.Start(ctx, RunSpanName, trace.WithAttributes(
		attribute.String(observability.AttrRunID, run.ID()),
		attribute.String(observability.AttrGraph, g.Name()),
		attribute.StringSlice(observability.AttrStages, g.StageIDs()),
	))
	defer runSpan.End()

	var (
		eventSpan trace.Span
		last      Event
	)
	endEventSpan := func() {
		if eventSpan != nil {
			eventSpan.End()
			eventSpan = nil
		}
	}

	events := run.Events()
	done := ctx.Done()
	for events != nil {
		select {
		case ev, ok := <-events:
			if !ok {
				events = nil
				continue
			}
			endEventSpan()
			eventSpan = s.observe(ctx, runSpan, ev)
			last = ev
		case <-done:
			done = nil
			_ = run.Cancel()
		}
	}
	endEventSpan()

	state := run.State()
	runSpan.SetAttributes(attribute.String(observability.AttrStatus, state.Status.String()))
	if last != nil {
		runSpan.SetAttributes(attribute.Int(observability.AttrEventSeq, last.Meta().Seq))
	}
	return state, run.Err()
}

func (s *TracingSink) observe(ctx context.Context, runSpan trace.Span, ev Event) trace.Span {
	_, span := s.tracer.Start(ctx, EventSpanNamePrefix+string(ev.Kind()))
	observability.SetSpanAttributes(span, Attributes(ev))

	if failed, ok := ev.(WorkflowFailed); ok {
		err := failed.Err
		if err == nil {
			err = fmt.Errorf("%s", failed.Message)
		}
		span.SetStatus(codes.Error, failed.Message)
		runSpan.RecordError(err, trace.WithAttributes(
			attribute.String(observability.AttrStageID, failed.StageID),
			attribute.String(observability.AttrErrorKind, string(failed.ErrorKind)),
		))
		runSpan.SetStatus(codes.Error, failed.Message)
	}

	s.log.WithContext(ctx).Info(ProgressLine(ev), logger.Fields(logger.FieldRunID, ev.Meta().RunID, logger.FieldEventKind, string(ev.Kind())))
	if s.progress != nil {
		s.progress(ev)
	}
	return span
}

// ProgressLine renders an event as a human-readable progress line, with
// 1-based stage numbers.
func ProgressLine(ev Event) string {
	switch e := ev.(type) {
	case StageStarted:
		return fmt.Sprintf("[Stage %d] Started: %s", e.Ordinal+1, e.StageID)
	case StageCompleted:
		return fmt.Sprintf("[Stage %d] Completed: %s", e.Ordinal+1, e.StageID)
	case WorkflowCompleted:
		return fmt.Sprintf("Workflow completed after %d stages", e.Stages)
	case WorkflowFailed:
		return fmt.Sprintf("[Stage %d] Failed: %s (%s): %s", e.Ordinal+1, e.StageID, e.ErrorKind, e.Message)
	case WorkflowCancelled:
		return fmt.Sprintf("Workflow cancelled after %d stages", e.Completed)
	default:
		return string(ev.Kind())
	}
}

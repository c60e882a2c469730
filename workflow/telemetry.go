package workflow

import (
	"context"
	"fmt"
	"time"

	"github.com/kbukum/stageflow/logger"
	"github.com/kbukum/stageflow/observability"
)

// TelemetryFunc receives one call per event, in order, on the goroutine that
// delivered the event, after the event was accepted by the stream. stageID is
// empty for run-level events. attrs is a fresh map per call; values are
// string, int or int64.
type TelemetryFunc func(kind EventKind, stageID string, attrs map[string]any)

// notify calls every hook with its own attribute map. A panicking hook is
// logged and does not affect the run or the other hooks.
func (r *Run) notify(ev Event) {
	if len(r.cfg.hooks) == 0 {
		return
	}
	stageID, _ := StageOf(ev)
	if c, ok := ev.(WorkflowCancelled); ok {
		stageID = c.StageID
	}
	attrs := Attributes(ev)
	attrs[observability.AttrGraph] = r.graph.name

	for i, hook := range r.cfg.hooks {
		r.callHook(i, hook, ev.Kind(), stageID, cloneAttrs(attrs))
	}
}

func (r *Run) callHook(i int, hook TelemetryFunc, kind EventKind, stageID string, attrs map[string]any) {
	defer func() {
		if p := recover(); p != nil {
			r.log.Error("telemetry hook panicked", logger.Fields("hook", i, logger.FieldEventKind, string(kind), logger.FieldError, fmt.Sprint(p)))
		}
	}()
	hook(kind, stageID, attrs)
}

func cloneAttrs(in map[string]any) map[string]any {
	out := make(map[string]any, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

// MetricsHook records stage durations and terminal statuses on metrics.
func MetricsHook(metrics *observability.Metrics, graph string) TelemetryFunc {
	ctx := context.Background()
	return func(kind EventKind, stageID string, attrs map[string]any) {
		switch kind {
		case KindStageCompleted:
			ms, _ := attrs[observability.AttrDurationMs].(int64)
			metrics.RecordStage(ctx, graph, stageID, "completed", time.Duration(ms)*time.Millisecond)
		case KindWorkflowCompleted:
			metrics.RecordRunEnd(ctx, graph, StatusCompleted.String())
		case KindWorkflowFailed:
			metrics.RecordStage(ctx, graph, stageID, "failed", 0)
			errKind, _ := attrs[observability.AttrErrorKind].(string)
			metrics.RecordError(ctx, errKind, "workflow")
			metrics.RecordRunEnd(ctx, graph, StatusFailed.String())
		case KindWorkflowCancelled:
			metrics.RecordRunEnd(ctx, graph, StatusCancelled.String())
		}
	}
}

package workflow

import (
	"time"

	"github.com/kbukum/stageflow/observability"
)

// EventKind names an event variant.
type EventKind string

const (
	KindStageStarted      EventKind = "stage_started"
	KindStageCompleted    EventKind = "stage_completed"
	KindWorkflowCompleted EventKind = "workflow_completed"
	KindWorkflowFailed    EventKind = "workflow_failed"
	KindWorkflowCancelled EventKind = "workflow_cancelled"
)

// Terminal reports whether the kind ends a run.
func (k EventKind) Terminal() bool {
	switch k {
	case KindWorkflowCompleted, KindWorkflowFailed, KindWorkflowCancelled:
		return true
	}
	return false
}

// ErrorKind classifies a stage failure.
type ErrorKind string

const (
	// ErrorTimeout is a stage that hit a deadline.
	ErrorTimeout ErrorKind = "timeout"
	// ErrorStageInvocation is any other error returned by a capability.
	ErrorStageInvocation ErrorKind = "stage_invocation"
	// ErrorPanic is a capability that panicked.
	ErrorPanic ErrorKind = "panic"
)

// EventMeta is carried by every event.
type EventMeta struct {
	// Seq is the 1-based position of the event in its run.
	Seq   int
	RunID string
	At    time.Time
}

// Meta returns the event metadata.
func (m EventMeta) Meta() EventMeta { return m }

// Event is a run lifecycle event. The set of variants is closed: use a type
// switch or an EventVisitor.
type Event interface {
	Kind() EventKind
	Meta() EventMeta
	Accept(v EventVisitor)
	sealed()
}

// EventVisitor has one method per event variant. Adding a variant adds a
// method here, so every visitor stops compiling until it handles it.
type EventVisitor interface {
	VisitStageStarted(StageStarted)
	VisitStageCompleted(StageCompleted)
	VisitWorkflowCompleted(WorkflowCompleted)
	VisitWorkflowFailed(WorkflowFailed)
	VisitWorkflowCancelled(WorkflowCancelled)
}

// StageStarted is emitted before a stage is invoked when the run was
// created WithStageStartedEvents.
type StageStarted struct {
	EventMeta
	StageID     string
	Ordinal     int
	InputLength int
}

// StageCompleted carries the output of a stage.
type StageCompleted struct {
	EventMeta
	StageID     string
	Ordinal     int
	Output      string
	InputLength int
	Duration    time.Duration
}

// WorkflowCompleted is the terminal event of a successful run.
type WorkflowCompleted struct {
	EventMeta
	FinalOutput string
	Stages      int
}

// WorkflowFailed is the terminal event of a run whose stage failed.
type WorkflowFailed struct {
	EventMeta
	StageID   string
	Ordinal   int
	ErrorKind ErrorKind
	Message   string
	// Err is the AppError returned by Run.Err.
	Err error
}

// WorkflowCancelled is the terminal event of a cancelled run. StageID names
// the stage that would have run next, or whose result was discarded.
type WorkflowCancelled struct {
	EventMeta
	StageID   string
	Completed int
}

func (StageStarted) Kind() EventKind      { return KindStageStarted }
func (StageCompleted) Kind() EventKind    { return KindStageCompleted }
func (WorkflowCompleted) Kind() EventKind { return KindWorkflowCompleted }
func (WorkflowFailed) Kind() EventKind    { return KindWorkflowFailed }
func (WorkflowCancelled) Kind() EventKind { return KindWorkflowCancelled }

func (e StageStarted) Accept(v EventVisitor)      { v.VisitStageStarted(e) }
func (e StageCompleted) Accept(v EventVisitor)    { v.VisitStageCompleted(e) }
func (e WorkflowCompleted) Accept(v EventVisitor) { v.VisitWorkflowCompleted(e) }
func (e WorkflowFailed) Accept(v EventVisitor)    { v.VisitWorkflowFailed(e) }
func (e WorkflowCancelled) Accept(v EventVisitor) { v.VisitWorkflowCancelled(e) }

func (StageStarted) sealed()      {}
func (StageCompleted) sealed()    {}
func (WorkflowCompleted) sealed() {}
func (WorkflowFailed) sealed()    {}
func (WorkflowCancelled) sealed() {}

// StageOf returns the stage ID and ordinal an event refers to. Run-level
// events without a stage return "" and -1.
func StageOf(e Event) (string, int) {
	switch ev := e.(type) {
	case StageStarted:
		return ev.StageID, ev.Ordinal
	case StageCompleted:
		return ev.StageID, ev.Ordinal
	case WorkflowFailed:
		return ev.StageID, ev.Ordinal
	}
	return "", -1
}

// Attributes flattens an event into telemetry attributes. Values are
// strings, ints or int64s.
func Attributes(e Event) map[string]any {
	m := e.Meta()
	attrs := map[string]any{
		observability.AttrEventKind: string(e.Kind()),
		observability.AttrEventSeq:  m.Seq,
		observability.AttrRunID:     m.RunID,
	}
	if id, ord := StageOf(e); id != "" {
		attrs[observability.AttrStageID] = id
		attrs[observability.AttrStageOrdinal] = ord
	}

	switch ev := e.(type) {
	case StageStarted:
		attrs[observability.AttrInputLength] = ev.InputLength
	case StageCompleted:
		attrs[observability.AttrInputLength] = ev.InputLength
		attrs[observability.AttrOutputLength] = len(ev.Output)
		attrs[observability.AttrDurationMs] = ev.Duration.Milliseconds()
	case WorkflowCompleted:
		attrs[observability.AttrOutputLength] = len(ev.FinalOutput)
		attrs[observability.AttrStages] = ev.Stages
	case WorkflowFailed:
		attrs[observability.AttrErrorKind] = string(ev.ErrorKind)
		attrs[observability.AttrErrorMessage] = ev.Message
	case WorkflowCancelled:
		attrs["stages.completed"] = ev.Completed
		if ev.StageID != "" {
			attrs[observability.AttrStageID] = ev.StageID
		}
	}
	return attrs
}

package workflow

import (
	"context"
	stderrors "errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/kbukum/stageflow/errors"
	"github.com/kbukum/stageflow/logger"
	"github.com/kbukum/stageflow/observability"
)

// Status is the state of a run.
type Status int

const (
	StatusCreated Status = iota
	StatusRunning
	StatusCompleted
	StatusFailed
	StatusCancelled
)

// String returns the status name.
func (s Status) String() string {
	switch s {
	case StatusCreated:
		return "created"
	case StatusRunning:
		return "running"
	case StatusCompleted:
		return "completed"
	case StatusFailed:
		return "failed"
	case StatusCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// Terminal reports whether no transition leaves s.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed || s == StatusCancelled
}

// RunState is a snapshot of a run.
type RunState struct {
	GraphName         string
	RunID             string
	CurrentStageIndex int
	CurrentPayload    string
	Status            Status
	Events            []Event
}

// RunOption configures a run.
type RunOption func(*runConfig)

type runConfig struct {
	id           string
	stageStarted bool
	hooks        []TelemetryFunc
	log          *logger.Logger
	conversation Conversation
	metrics      *observability.Metrics
}

// WithRunID sets the run ID. The default is a random UUID.
func WithRunID(id string) RunOption {
	return func(c *runConfig) { c.id = id }
}

// WithStageStartedEvents emits a StageStarted event before every stage.
func WithStageStartedEvents() RunOption {
	return func(c *runConfig) { c.stageStarted = true }
}

// WithTelemetry registers a hook called once per event. May be repeated.
func WithTelemetry(fn TelemetryFunc) RunOption {
	return func(c *runConfig) {
		if fn != nil {
			c.hooks = append(c.hooks, fn)
		}
	}
}

// WithLogger sets the run logger.
func WithLogger(log *logger.Logger) RunOption {
	return func(c *runConfig) { c.log = log }
}

// WithConversation sets the conversation context handed to every stage.
func WithConversation(conv Conversation) RunOption {
	return func(c *runConfig) { c.conversation = conv.Clone() }
}

// WithMetrics records run and stage metrics.
func WithMetrics(m *observability.Metrics) RunOption {
	return func(c *runConfig) { c.metrics = m }
}

// Run is one execution of a Graph against one input. Its state is only
// changed by Start, Cancel and the run's own advancement goroutine.
type Run struct {
	graph *Graph
	ctx   context.Context
	cfg   runConfig
	log   *logger.Logger

	events   chan Event
	cancelCh chan struct{}
	done     chan struct{}

	mu      sync.Mutex
	status  Status
	index   int
	payload string
	history []Event
	err     error
	seq     int
	started bool
}

// NewRun creates a run in the Created state. Cancelling ctx cancels the
// run; ctx is also the context handed to stage capabilities.
func (g *Graph) NewRun(ctx context.Context, opts ...RunOption) *Run {
	var cfg runConfig
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.id == "" {
		cfg.id = uuid.NewString()
	}
	if cfg.log == nil {
		cfg.log = logger.Nop()
	}
	if cfg.metrics != nil {
		cfg.hooks = append(cfg.hooks, MetricsHook(cfg.metrics, g.name))
	}

	return &Run{
		graph:    g,
		ctx:      ctx,
		cfg:      cfg,
		log:      cfg.log.WithComponent("workflow").WithFields(logger.Fields(logger.FieldRunID, cfg.id, logger.FieldGraph, g.name)),
		events:   make(chan Event, 1),
		cancelCh: make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// ID returns the run ID.
func (r *Run) ID() string { return r.cfg.id }

// Graph returns the graph being run.
func (r *Run) Graph() *Graph { return r.graph }

// Status returns the current status.
func (r *Run) Status() Status {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.status
}

// State returns a snapshot of the run.
func (r *Run) State() RunState {
	r.mu.Lock()
	defer r.mu.Unlock()
	history := make([]Event, len(r.history))
	copy(history, r.history)
	return RunState{
		GraphName:         r.graph.name,
		RunID:             r.cfg.id,
		CurrentStageIndex: r.index,
		CurrentPayload:    r.payload,
		Status:            r.status,
		Events:            history,
	}
}

// Err returns the failure of a Failed run as an AppError with code
// STAGE_INVOCATION or TIMEOUT, and nil otherwise.
func (r *Run) Err() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.err
}

// Events returns the ordered event stream. It yields each event once and is
// closed right after the terminal event. The run blocks until each event is
// received, so the stream must be drained.
func (r *Run) Events() <-chan Event { return r.events }

// Done is closed once the terminal event has been handed to the stream.
func (r *Run) Done() <-chan struct{} { return r.done }

// Wait blocks until the run is terminal or ctx is done. Someone else must be
// draining Events.
func (r *Run) Wait(ctx context.Context) (RunState, error) {
	select {
	case <-r.done:
		return r.State(), r.Err()
	case <-ctx.Done():
		return r.State(), ctx.Err()
	}
}

// Start moves the run to Running with initialInput as the first payload and
// returns without waiting for any stage. It fails with INVALID_STATE unless
// the run is Created.
func (r *Run) Start(initialInput string) error {
	r.mu.Lock()
	if r.status != StatusCreated {
		status := r.status
		r.mu.Unlock()
		return errors.InvalidState("start", status.String())
	}
	r.status = StatusRunning
	r.started = true
	r.payload = initialInput
	r.index = 0
	r.mu.Unlock()

	if r.cfg.metrics != nil {
		r.cfg.metrics.RecordRunActive(r.ctx, r.graph.name, 1)
	}
	r.log.Debug("run started", logger.Fields("stages", r.graph.Len(), "input_length", len(initialInput)))

	go r.watchContext()
	go r.advance(initialInput)
	return nil
}

// Cancel moves a Created or Running run to Cancelled. No stage starts after
// Cancel returns; a stage already in flight finishes but its result is
// dropped. The stream ends with a WorkflowCancelled event. Cancel fails
// with INVALID_STATE on a terminal run.
func (r *Run) Cancel() error {
	r.mu.Lock()
	switch r.status {
	case StatusCreated:
		r.status = StatusCancelled
		ev := WorkflowCancelled{EventMeta: r.nextMeta(), StageID: r.graph.Entry()}
		r.history = append(r.history, ev)
		r.mu.Unlock()

		// Nothing was emitted yet, so the buffer has room.
		r.events <- ev
		r.log.Info("run cancelled before start")
		r.notify(ev)
		r.finish()
		return nil
	case StatusRunning:
		r.status = StatusCancelled
		close(r.cancelCh)
		r.mu.Unlock()
		r.log.Info("run cancel requested")
		return nil
	default:
		status := r.status
		r.mu.Unlock()
		return errors.InvalidState("cancel", status.String())
	}
}

// watchContext cancels the run when its context is cancelled. An expired
// deadline is not a cancellation; the next stage fails with a timeout.
func (r *Run) watchContext() {
	select {
	case <-r.ctx.Done():
		if stderrors.Is(r.ctx.Err(), context.Canceled) {
			_ = r.Cancel()
		}
	case <-r.done:
	}
}

// stopRequested reports whether the run was cancelled, directly or through
// its context.
func (r *Run) stopRequested() bool {
	if stderrors.Is(r.ctx.Err(), context.Canceled) {
		_ = r.Cancel()
	}
	return r.cancelled()
}

func (r *Run) cancelled() bool {
	select {
	case <-r.cancelCh:
		return true
	default:
		return false
	}
}

// advance runs on its own goroutine and is the only writer of payload,
// index and the event stream after Start.
func (r *Run) advance(payload string) {
	for i, stage := range r.graph.stages {
		if r.stopRequested() {
			r.finishCancelled(i)
			return
		}
		if err := r.ctx.Err(); err != nil {
			r.finishFailed(i, stage, err)
			return
		}

		if r.cfg.stageStarted {
			ev := StageStarted{StageID: stage.ID, Ordinal: i, InputLength: len(payload)}
			if !r.emit(func(m EventMeta) Event { ev.EventMeta = m; return ev }) {
				r.finishCancelled(i)
				return
			}
			// The send can complete after Cancel returned.
			if r.stopRequested() {
				r.finishCancelled(i)
				return
			}
		}

		start := time.Now()
		out, err := r.invoke(stage, payload)
		elapsed := time.Since(start)

		if r.stopRequested() {
			r.log.Debug("discarding result of cancelled stage", logger.Fields(logger.FieldStageID, stage.ID))
			r.finishCancelled(i)
			return
		}
		if err != nil {
			r.finishFailed(i, stage, err)
			return
		}

		ev := StageCompleted{StageID: stage.ID, Ordinal: i, Output: out, InputLength: len(payload), Duration: elapsed}
		if !r.emit(func(m EventMeta) Event { ev.EventMeta = m; return ev }) {
			r.finishCancelled(i)
			return
		}
		r.log.Debug("stage completed", logger.MergeWithDuration(logger.Fields(logger.FieldStageID, stage.ID, logger.FieldOrdinal, i), elapsed))

		payload = out
		r.mu.Lock()
		r.payload = out
		r.index = i + 1
		r.mu.Unlock()
	}
	r.finishCompleted(payload)
}

// invoke calls the stage capability, turning a panic into an error.
func (r *Run) invoke(stage Stage, input string) (out string, err error) {
	defer func() {
		if p := recover(); p != nil {
			err = &panicError{value: p}
		}
	}()
	return stage.Capability.Invoke(r.ctx, input, r.cfg.conversation)
}

type panicError struct{ value any }

func (e *panicError) Error() string { return fmt.Sprintf("stage panicked: %v", e.value) }

func classify(err error) ErrorKind {
	var pe *panicError
	switch {
	case stderrors.As(err, &pe):
		return ErrorPanic
	case stderrors.Is(err, context.DeadlineExceeded), errors.HasCode(err, errors.ErrCodeTimeout):
		return ErrorTimeout
	default:
		return ErrorStageInvocation
	}
}

// emit hands a non-terminal event to the stream. It gives up and returns
// false if the run is cancelled first; seq only advances for delivered events.
func (r *Run) emit(build func(EventMeta) Event) bool {
	if r.cancelled() {
		return false
	}
	r.mu.Lock()
	ev := build(r.peekMeta())
	r.mu.Unlock()

	select {
	case r.events <- ev:
	case <-r.cancelCh:
		return false
	}

	r.mu.Lock()
	r.seq++
	r.history = append(r.history, ev)
	r.mu.Unlock()
	r.notify(ev)
	return true
}

// terminate moves the run to a terminal status and delivers the terminal
// event. It returns false if a concurrent Cancel won the transition.
func (r *Run) terminate(to Status, build func(EventMeta) Event, failure error) bool {
	r.mu.Lock()
	if r.status != StatusRunning {
		r.mu.Unlock()
		return false
	}
	r.status = to
	r.err = failure
	ev := build(r.nextMeta())
	r.history = append(r.history, ev)
	r.mu.Unlock()

	r.events <- ev
	r.notify(ev)
	r.finish()
	return true
}

func (r *Run) finishCompleted(output string) {
	ok := r.terminate(StatusCompleted, func(m EventMeta) Event {
		return WorkflowCompleted{EventMeta: m, FinalOutput: output, Stages: r.graph.Len()}
	}, nil)
	if !ok {
		r.finishCancelled(r.graph.Len())
		return
	}
	r.log.Info("run completed", logger.Fields(logger.FieldStatus, StatusCompleted.String()))
}

func (r *Run) finishFailed(i int, stage Stage, cause error) {
	kind := classify(cause)

	var appErr *errors.AppError
	if kind == ErrorTimeout {
		appErr = errors.Timeout("stage " + stage.ID).WithDetail("stage_id", stage.ID).WithCause(cause)
	} else {
		appErr = errors.StageInvocation(stage.ID, cause)
		if kind == ErrorPanic {
			appErr.WithDetail("panic", true)
		}
	}

	ok := r.terminate(StatusFailed, func(m EventMeta) Event {
		return WorkflowFailed{EventMeta: m, StageID: stage.ID, Ordinal: i, ErrorKind: kind, Message: cause.Error(), Err: appErr}
	}, appErr)
	if !ok {
		r.finishCancelled(i)
		return
	}
	r.log.WithError(cause).Warn("run failed", logger.Fields(logger.FieldStageID, stage.ID, logger.FieldOrdinal, i, "error_kind", string(kind)))
}

// finishCancelled delivers the cancellation marker. next is the index of
// the first stage that did not complete.
func (r *Run) finishCancelled(next int) {
	stageID := ""
	if next < r.graph.Len() {
		stageID = r.graph.stages[next].ID
	}

	r.mu.Lock()
	ev := WorkflowCancelled{EventMeta: r.nextMeta(), StageID: stageID, Completed: next}
	r.history = append(r.history, ev)
	r.mu.Unlock()

	r.events <- ev
	r.notify(ev)
	r.finish()
	r.log.Info("run cancelled", logger.Fields(logger.FieldStageID, stageID, "completed", next))
}

func (r *Run) finish() {
	if r.started && r.cfg.metrics != nil {
		r.cfg.metrics.RecordRunActive(context.WithoutCancel(r.ctx), r.graph.name, -1)
	}
	close(r.events)
	close(r.done)
}

// peekMeta must be called with mu held.
func (r *Run) peekMeta() EventMeta {
	return EventMeta{Seq: r.seq + 1, RunID: r.cfg.id, At: time.Now()}
}

// nextMeta must be called with mu held.
func (r *Run) nextMeta() EventMeta {
	r.seq++
	return EventMeta{Seq: r.seq, RunID: r.cfg.id, At: time.Now()}
}

// Package workflow runs sequential multi-stage pipelines.
//
// A Builder accumulates stages and the edges between them and produces an
// immutable Graph that forms a single simple path. Each execution of a graph
// is a Run: a state machine (Created, Running, Completed, Failed, Cancelled)
// that advances one stage at a time on its own goroutine and publishes an
// ordered stream of Events.
//
//	b := workflow.NewBuilder("translate")
//	_ = b.AddStage(workflow.Stage{ID: "to-french", Capability: french})
//	_ = b.AddStage(workflow.Stage{ID: "to-spanish", Capability: spanish})
//	_ = b.AddEdge("to-french", "to-spanish")
//	_ = b.WithOutput("to-spanish")
//	graph, err := b.Build()
//
//	run := graph.NewRun(ctx)
//	if err := run.Start("Hello, world!"); err != nil { ... }
//	for ev := range run.Events() { ... }
//
// The events channel has a buffer of one: the run does not start stage k+1
// before the event for stage k was accepted, so a slow consumer throttles
// the run. Every run ends with exactly one terminal event (WorkflowCompleted,
// WorkflowFailed or WorkflowCancelled) after which the channel is closed.
//
// TracingSink drains a run and opens one OpenTelemetry span per event under
// a run span, on a tracer passed in by the caller. TelemetryFunc hooks
// receive a flat attribute map per event; MetricsHook and the journal
// package build on them.
package workflow

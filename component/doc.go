// Package component manages the lifecycle of the infrastructure a
// stageflow binary runs on: telemetry providers, the run journal and the
// LLM backend.
//
// Components start in registration order and stop in reverse order:
//
//	reg := component.NewRegistry(log)
//	_ = reg.Register(component.New("journal", openJournal, closeJournal))
//	if err := reg.StartAll(ctx); err != nil { ... }
//	defer reg.StopAll(ctx)
package component

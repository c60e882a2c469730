package workflow

import "context"

// Edge declares that the output of From becomes the input of To.
type Edge struct {
	From string
	To   string
}

// Graph is a validated single-path workflow. It is immutable and safe to
// share between concurrent runs.
type Graph struct {
	name   string
	stages []Stage // path order, entry first
	edges  []Edge  // declaration order
	index  map[string]int
}

// Name returns the graph name given to the builder.
func (g *Graph) Name() string { return g.name }

// Len returns the number of stages.
func (g *Graph) Len() int { return len(g.stages) }

// Stages returns the stages in path order.
func (g *Graph) Stages() []Stage {
	out := make([]Stage, len(g.stages))
	copy(out, g.stages)
	return out
}

// StageIDs returns the stage IDs in path order.
func (g *Graph) StageIDs() []string {
	ids := make([]string, len(g.stages))
	for i, s := range g.stages {
		ids[i] = s.ID
	}
	return ids
}

// Edges returns the edges in declaration order.
func (g *Graph) Edges() []Edge {
	out := make([]Edge, len(g.edges))
	copy(out, g.edges)
	return out
}

// Entry returns the ID of the stage with no incoming edge.
func (g *Graph) Entry() string { return g.stages[0].ID }

// Output returns the ID of the designated output stage.
func (g *Graph) Output() string { return g.stages[len(g.stages)-1].ID }

// Stage looks up a stage by ID.
func (g *Graph) Stage(id string) (Stage, bool) {
	i, ok := g.index[id]
	if !ok {
		return Stage{}, false
	}
	return g.stages[i], true
}

// Ordinal returns the 0-based path position of a stage, or -1.
func (g *Graph) Ordinal(id string) int {
	if i, ok := g.index[id]; ok {
		return i
	}
	return -1
}

// Execute starts a run with input, drains its events and returns the final
// state. The error is nil for completed and cancelled runs.
func (g *Graph) Execute(ctx context.Context, input string, opts ...RunOption) (RunState, error) {
	run := g.NewRun(ctx, opts...)
	if err := run.Start(input); err != nil {
		return run.State(), err
	}
	for range run.Events() {
	}
	return run.State(), run.Err()
}

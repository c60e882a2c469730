package workflow

import (
	"fmt"
	"strings"

	"github.com/kbukum/stageflow/errors"
)

// Builder accumulates stages and edges and produces immutable graphs.
// A Builder is not safe for concurrent use.
type Builder struct {
	name   string
	stages []Stage
	byID   map[string]int
	edges  []Edge
	next   map[string]string
	prev   map[string]string
	output string
}

// NewBuilder creates an empty builder for a graph called name.
func NewBuilder(name string) *Builder {
	return &Builder{
		name: name,
		byID: make(map[string]int),
		next: make(map[string]string),
		prev: make(map[string]string),
	}
}

// AddStage registers a stage. A repeated ID fails with DUPLICATE_STAGE.
func (b *Builder) AddStage(s Stage) error {
	if err := s.validate(); err != nil {
		return err
	}
	if _, ok := b.byID[s.ID]; ok {
		return errors.DuplicateStage(s.ID)
	}
	b.byID[s.ID] = len(b.stages)
	b.stages = append(b.stages, s)
	return nil
}

// AddEdge links from to to. Unregistered endpoints fail with UNKNOWN_STAGE.
// An edge that would branch, merge, loop onto itself or close a cycle fails
// with TOPOLOGY and leaves the builder unchanged.
func (b *Builder) AddEdge(from, to string) error {
	for _, id := range []string{from, to} {
		if _, ok := b.byID[id]; !ok {
			return errors.UnknownStage(id)
		}
	}
	if from == to {
		return errors.Topology(from, to, "self loop")
	}
	if existing, ok := b.next[from]; ok {
		return errors.Topology(from, to, fmt.Sprintf("%q already has an outgoing edge to %q", from, existing))
	}
	if existing, ok := b.prev[to]; ok {
		return errors.Topology(from, to, fmt.Sprintf("%q already has an incoming edge from %q", to, existing))
	}
	// Out-degree is at most one, so following next from to reaches from
	// only if the new edge would close a cycle.
	for cur, ok := to, true; ok; cur, ok = b.next[cur] {
		if cur == from {
			return errors.Topology(from, to, "edge would create a cycle")
		}
	}

	b.next[from] = to
	b.prev[to] = from
	b.edges = append(b.edges, Edge{From: from, To: to})
	return nil
}

// WithOutput designates the terminal stage.
func (b *Builder) WithOutput(id string) error {
	if _, ok := b.byID[id]; !ok {
		return errors.UnknownStage(id)
	}
	b.output = id
	return nil
}

// Build validates that the stages form one simple path from the unique
// entry to the output stage and returns the graph. Violations are reported
// together in an INVALID_TOPOLOGY error. Build does not modify the builder.
func (b *Builder) Build() (*Graph, error) {
	if len(b.stages) == 0 {
		return nil, errors.InvalidTopology([]string{"no stages registered"})
	}

	var violations []string
	if b.output == "" {
		violations = append(violations, "no output stage designated")
	}

	var entries, exits []string
	for _, s := range b.stages {
		if _, ok := b.prev[s.ID]; !ok {
			entries = append(entries, s.ID)
		}
		if _, ok := b.next[s.ID]; !ok {
			exits = append(exits, s.ID)
		}
	}
	if len(entries) != 1 {
		violations = append(violations, fmt.Sprintf("expected one entry stage, found %d (%s)", len(entries), strings.Join(entries, ", ")))
	}
	if len(exits) != 1 {
		violations = append(violations, fmt.Sprintf("expected one exit stage, found %d (%s)", len(exits), strings.Join(exits, ", ")))
	}

	var path []Stage
	if len(entries) > 0 {
		for cur, ok := entries[0], true; ok; cur, ok = b.next[cur] {
			path = append(path, b.stages[b.byID[cur]])
		}
	}
	if len(entries) == 1 {
		onPath := make(map[string]bool, len(path))
		for _, s := range path {
			onPath[s.ID] = true
		}
		for _, s := range b.stages {
			if !onPath[s.ID] {
				violations = append(violations, fmt.Sprintf("stage %q is not reachable from entry %q", s.ID, entries[0]))
			}
		}
	}
	if b.output != "" && len(path) > 0 && path[len(path)-1].ID != b.output {
		violations = append(violations, fmt.Sprintf("output stage %q is not the last stage of the path (%q)", b.output, path[len(path)-1].ID))
	}

	if len(violations) > 0 {
		return nil, errors.InvalidTopology(violations)
	}

	g := &Graph{
		name:   b.name,
		stages: path,
		edges:  make([]Edge, len(b.edges)),
		index:  make(map[string]int, len(path)),
	}
	copy(g.edges, b.edges)
	for i, s := range path {
		g.index[s.ID] = i
	}
	return g, nil
}

// Chain builds a graph that runs stages in the given order with the last one
// as output.
func Chain(name string, stages ...Stage) (*Graph, error) {
	b := NewBuilder(name)
	for i, s := range stages {
		if err := b.AddStage(s); err != nil {
			return nil, err
		}
		if i > 0 {
			if err := b.AddEdge(stages[i-1].ID, s.ID); err != nil {
				return nil, err
			}
		}
	}
	if len(stages) > 0 {
		if err := b.WithOutput(stages[len(stages)-1].ID); err != nil {
			return nil, err
		}
	}
	return b.Build()
}

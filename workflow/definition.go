package workflow

import (
	"fmt"
	"os"
	"sort"
	"sync"

	"go.yaml.in/yaml/v3"

	"github.com/kbukum/stageflow/errors"
	"github.com/kbukum/stageflow/validation"
)

// Definition is the declarative form of a graph, usually loaded from YAML:
//
//	name: translate
//	output: to-english
//	stages:
//	  - id: to-french
//	    capability: french
//	  - id: to-spanish
//	    capability: spanish
//	    after: to-french
type Definition struct {
	Name   string            `yaml:"name" validate:"required"`
	Output string            `yaml:"output"`
	Stages []StageDefinition `yaml:"stages" validate:"required,min=1,dive"`
}

// StageDefinition declares one stage. After names the stage whose output
// feeds this one; it is empty for the entry stage.
type StageDefinition struct {
	ID          string `yaml:"id" validate:"required"`
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
	Capability  string `yaml:"capability" validate:"required"`
	After       string `yaml:"after"`
}

// ParseDefinition decodes and validates a YAML definition.
func ParseDefinition(data []byte) (*Definition, error) {
	var def Definition
	if err := yaml.Unmarshal(data, &def); err != nil {
		return nil, errors.InvalidInput("definition", err.Error()).WithCause(err)
	}
	if err := validation.Validate(def); err != nil {
		return nil, err
	}
	return &def, nil
}

// LoadDefinition reads the first of paths that exists and parses it.
func LoadDefinition(paths ...string) (*Definition, error) {
	for _, path := range paths {
		data, err := os.ReadFile(path)
		if os.IsNotExist(err) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("workflow: reading %s: %w", path, err)
		}
		def, err := ParseDefinition(data)
		if err != nil {
			return nil, fmt.Errorf("workflow: parsing %s: %w", path, err)
		}
		return def, nil
	}
	return nil, errors.NotFound("workflow definition", fmt.Sprint(paths))
}

// Build resolves capabilities in reg and builds the graph through a Builder,
// so the usual builder errors apply. An empty Output selects the last
// declared stage.
func (d *Definition) Build(reg *Registry) (*Graph, error) {
	b := NewBuilder(d.Name)
	for _, sd := range d.Stages {
		capability, ok := reg.Get(sd.Capability)
		if !ok {
			return nil, errors.NotFound("capability", sd.Capability).WithDetail("stage_id", sd.ID)
		}
		if err := b.AddStage(Stage{ID: sd.ID, DisplayName: sd.Name, Description: sd.Description, Capability: capability}); err != nil {
			return nil, err
		}
	}
	for _, sd := range d.Stages {
		if sd.After == "" {
			continue
		}
		if err := b.AddEdge(sd.After, sd.ID); err != nil {
			return nil, err
		}
	}

	output := d.Output
	if output == "" && len(d.Stages) > 0 {
		output = d.Stages[len(d.Stages)-1].ID
	}
	if err := b.WithOutput(output); err != nil {
		return nil, err
	}
	return b.Build()
}

// Registry maps capability names used in definitions to implementations.
type Registry struct {
	mu           sync.RWMutex
	capabilities map[string]Capability
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{capabilities: make(map[string]Capability)}
}

// Register adds or replaces a capability.
func (r *Registry) Register(name string, c Capability) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.capabilities[name] = c
}

// Get looks up a capability.
func (r *Registry) Get(name string) (Capability, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.capabilities[name]
	return c, ok
}

// Names returns the registered names, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.capabilities))
	for name := range r.capabilities {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

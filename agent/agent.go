// Package agent implements workflow stages backed by a chat completion
// provider.
package agent

import (
	"context"
	"fmt"

	"github.com/kbukum/stageflow/errors"
	"github.com/kbukum/stageflow/llm"
	"github.com/kbukum/stageflow/workflow"
)

// Agent answers each stage input with one completion. Instructions become
// the system prompt, the run conversation precedes the input, and the
// trimmed reply is the stage output.
type Agent struct {
	Name         string
	Description  string
	Instructions string

	completer llm.Provider
	model     string
}

// Option configures an Agent.
type Option func(*Agent)

// WithModel overrides the provider's default model for this agent.
func WithModel(model string) Option {
	return func(a *Agent) { a.model = model }
}

// New creates an agent that completes through completer.
func New(name, instructions string, completer llm.Provider, opts ...Option) *Agent {
	a := &Agent{Name: name, Instructions: instructions, completer: completer}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// NewTranslator creates an agent that translates its input to target.
func NewTranslator(target string, completer llm.Provider, opts ...Option) *Agent {
	a := New(
		target+"Agent",
		fmt.Sprintf("Translate the given text to %s. Only output the translation, without quotes, notes or explanations.", target),
		completer,
		opts...,
	)
	a.Description = "Translates text to " + target
	return a
}

// Invoke implements workflow.Capability.
func (a *Agent) Invoke(ctx context.Context, input string, conv workflow.Conversation) (string, error) {
	if a.completer == nil {
		return "", errors.InvalidInput("completer", "agent "+a.Name+" has no completer")
	}

	messages := make([]llm.Message, 0, len(conv)+1)
	for _, m := range conv {
		messages = append(messages, llm.Message{Role: string(m.Role), Content: m.Content})
	}
	messages = append(messages, llm.Message{Role: llm.RoleUser, Content: input})

	resp, err := a.completer.Execute(ctx, llm.CompletionRequest{
		Model:        a.model,
		SystemPrompt: a.Instructions,
		Messages:     messages,
	})
	if err != nil {
		return "", err
	}
	return llm.Content(a.completer.Name(), resp)
}

// Stage wraps a as a workflow stage with the given ID.
func Stage(a *Agent, id string) workflow.Stage {
	return workflow.Stage{ID: id, DisplayName: a.Name, Description: a.Description, Capability: a}
}

package workflow

import (
	"context"

	"github.com/kbukum/stageflow/provider"
)

// StageInput is what a provider-backed stage receives.
type StageInput struct {
	Text         string
	Conversation Conversation
}

// FromProvider turns a provider into a stage capability.
func FromProvider(p provider.RequestResponse[StageInput, string]) Capability {
	return &providerCapability{p: p}
}

type providerCapability struct {
	p provider.RequestResponse[StageInput, string]
}

func (c *providerCapability) Invoke(ctx context.Context, input string, conv Conversation) (string, error) {
	return c.p.Execute(ctx, StageInput{Text: input, Conversation: conv})
}

// AsProvider exposes a capability as a provider so provider middleware
// (logging, tracing, timeout, resilience) can wrap it.
func AsProvider(name string, c Capability) provider.RequestResponse[StageInput, string] {
	return provider.Func(name, func(ctx context.Context, in StageInput) (string, error) {
		return c.Invoke(ctx, in.Text, in.Conversation)
	})
}

// Wrap applies provider middleware to a capability.
func Wrap(name string, c Capability, mws ...provider.Middleware[StageInput, string]) Capability {
	return FromProvider(provider.Chain(mws...)(AsProvider(name, c)))
}

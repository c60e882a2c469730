// Package provider defines the generic request/response abstraction used for
// every external collaborator of a workflow stage (LLM endpoints, adapters,
// test doubles) and the middleware that wraps them.
//
// A RequestResponse[I, O] takes one input and returns one output. Middleware
// composes with Chain; the first middleware is outermost:
//
//	wrapped := provider.Chain(
//	    provider.WithLogging[In, Out](log),
//	    provider.WithTracing[In, Out](tracer, "translate"),
//	    provider.WithTimeout[In, Out](30*time.Second),
//	    provider.WithResilience[In, Out](provider.ResilienceConfig{Retry: &retry}),
//	)(raw)
//
// Adapt bridges a backend with types [BI, BO] to a domain interface [I, O].
// Registry maps names to typed factories, e.g. LLM dialects to clients.
package provider

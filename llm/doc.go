// Package llm defines chat completion types and a dialect registry for the
// backends that serve them.
//
// A backend package registers a factory for its dialect from init; importing
// it for side effects makes the dialect available to [New]:
//
//	import _ "github.com/kbukum/stageflow/llm/openai"
//
//	p, err := llm.NewProvider(llm.Config{
//	    Dialect: "openai",
//	    BaseURL: "https://api.openai.com/v1",
//	    Model:   "gpt-4o-mini",
//	    APIKey:  os.Getenv("OPENAI_API_KEY"),
//	})
//
// Providers are [provider.RequestResponse] values, so the usual provider
// middleware (logging, tracing, timeout, resilience) applies to them.
// [Client] holds the shared HTTP plumbing and error mapping for backends.
package llm

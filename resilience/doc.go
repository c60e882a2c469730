// Package resilience provides retry and circuit breaker policies for calls
// to external collaborators such as LLM endpoints.
//
// The two patterns compose:
//
//	cb := resilience.NewCircuitBreaker(resilience.DefaultCircuitBreakerConfig("openai"))
//	out, err := resilience.Retry(ctx, resilience.DefaultRetryConfig(), func() (string, error) {
//	    var out string
//	    err := cb.Execute(func() error {
//	        var err error
//	        out, err = client.Complete(ctx, req)
//	        return err
//	    })
//	    return out, err
//	})
//
// Most callers use provider.WithResilience instead of wiring these by hand.
package resilience

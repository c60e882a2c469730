package component

import "context"

// HealthStatus is the health state of a component.
type HealthStatus string

const (
	StatusHealthy   HealthStatus = "healthy"
	StatusUnhealthy HealthStatus = "unhealthy"
	StatusDegraded  HealthStatus = "degraded"
)

// Health is the result of a health probe.
type Health struct {
	Name    string       `json:"name"`
	Status  HealthStatus `json:"status"`
	Message string       `json:"message,omitempty"`
}

// Component is a lifecycle-managed dependency.
type Component interface {
	Name() string
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
	Health(ctx context.Context) Health
}

// Funcs adapts plain functions to Component. Nil functions are no-ops and
// a nil probe reports healthy.
type Funcs struct {
	ComponentName string
	StartFunc     func(ctx context.Context) error
	StopFunc      func(ctx context.Context) error
	// ProbeFunc returns nil when healthy.
	ProbeFunc func(ctx context.Context) error
}

// New returns a component that runs start and stop.
func New(name string, start, stop func(ctx context.Context) error) *Funcs {
	return &Funcs{ComponentName: name, StartFunc: start, StopFunc: stop}
}

// WithProbe sets the health probe and returns f.
func (f *Funcs) WithProbe(probe func(ctx context.Context) error) *Funcs {
	f.ProbeFunc = probe
	return f
}

func (f *Funcs) Name() string { return f.ComponentName }

func (f *Funcs) Start(ctx context.Context) error {
	if f.StartFunc == nil {
		return nil
	}
	return f.StartFunc(ctx)
}

func (f *Funcs) Stop(ctx context.Context) error {
	if f.StopFunc == nil {
		return nil
	}
	return f.StopFunc(ctx)
}

func (f *Funcs) Health(ctx context.Context) Health {
	h := Health{Name: f.ComponentName, Status: StatusHealthy}
	if f.ProbeFunc == nil {
		return h
	}
	if err := f.ProbeFunc(ctx); err != nil {
		h.Status = StatusUnhealthy
		h.Message = err.Error()
	}
	return h
}

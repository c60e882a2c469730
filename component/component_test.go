package component

import (
	"context"
	stderrors "errors"
	"strings"
	"testing"

	"github.com/kbukum/stageflow/errors"
)

type recorder struct {
	order []string
}

func (r *recorder) component(name string, startErr, stopErr error) *Funcs {
	return New(name,
		func(context.Context) error {
			r.order = append(r.order, "start "+name)
			return startErr
		},
		func(context.Context) error {
			r.order = append(r.order, "stop "+name)
			return stopErr
		},
	)
}

func TestRegistry_Register(t *testing.T) {
	reg := NewRegistry(nil)
	if err := reg.Register(New("journal", nil, nil)); err != nil {
		t.Fatalf("Register: %v", err)
	}
	err := reg.Register(New("journal", nil, nil))
	if !errors.HasCode(err, errors.ErrCodeInvalidInput) {
		t.Fatalf("expected duplicate to be rejected, got %v", err)
	}
	if reg.Get("journal") == nil || reg.Get("missing") != nil {
		t.Error("unexpected Get results")
	}
}

func TestRegistry_Lifecycle(t *testing.T) {
	rec := &recorder{}
	reg := NewRegistry(nil)
	for _, name := range []string{"tracing", "metrics", "journal"} {
		if err := reg.Register(rec.component(name, nil, nil)); err != nil {
			t.Fatal(err)
		}
	}

	ctx := context.Background()
	if err := reg.StartAll(ctx); err != nil {
		t.Fatalf("StartAll: %v", err)
	}
	if err := reg.StartAll(ctx); err != nil {
		t.Fatalf("second StartAll: %v", err)
	}
	if err := reg.StopAll(ctx); err != nil {
		t.Fatalf("StopAll: %v", err)
	}

	want := "start tracing,start metrics,start journal,stop journal,stop metrics,stop tracing"
	if got := strings.Join(rec.order, ","); got != want {
		t.Errorf("order:\n got %s\nwant %s", got, want)
	}
	if got := reg.Names(); len(got) != 3 || got[0] != "tracing" {
		t.Errorf("unexpected names %v", got)
	}
}

func TestRegistry_StartFailure(t *testing.T) {
	rec := &recorder{}
	reg := NewRegistry(nil)
	boom := stderrors.New("boom")
	_ = reg.Register(rec.component("tracing", nil, nil))
	_ = reg.Register(rec.component("journal", boom, nil))
	_ = reg.Register(rec.component("llm", nil, nil))

	err := reg.StartAll(context.Background())
	if !stderrors.Is(err, boom) || !strings.Contains(err.Error(), "start journal") {
		t.Fatalf("expected journal start failure, got %v", err)
	}
	if err := reg.StopAll(context.Background()); err != nil {
		t.Fatalf("StopAll: %v", err)
	}

	want := "start tracing,start journal,stop tracing"
	if got := strings.Join(rec.order, ","); got != want {
		t.Errorf("expected only started components to stop:\n got %s\nwant %s", got, want)
	}
}

func TestRegistry_StopErrorsJoined(t *testing.T) {
	rec := &recorder{}
	reg := NewRegistry(nil)
	first, second := stderrors.New("first"), stderrors.New("second")
	_ = reg.Register(rec.component("a", nil, first))
	_ = reg.Register(rec.component("b", nil, second))
	_ = reg.StartAll(context.Background())

	err := reg.StopAll(context.Background())
	if !stderrors.Is(err, first) || !stderrors.Is(err, second) {
		t.Fatalf("expected both stop errors, got %v", err)
	}
}

func TestFuncs_Health(t *testing.T) {
	tests := []struct {
		name   string
		probe  func(context.Context) error
		status HealthStatus
		msg    string
	}{
		{"no probe", nil, StatusHealthy, ""},
		{"passing probe", func(context.Context) error { return nil }, StatusHealthy, ""},
		{"failing probe", func(context.Context) error { return stderrors.New("down") }, StatusUnhealthy, "down"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			h := New("llm", nil, nil).WithProbe(tc.probe).Health(context.Background())
			if h.Name != "llm" || h.Status != tc.status || h.Message != tc.msg {
				t.Errorf("unexpected health %+v", h)
			}
		})
	}
}

func TestRegistry_HealthAll(t *testing.T) {
	reg := NewRegistry(nil)
	_ = reg.Register(New("a", nil, nil))
	_ = reg.Register(New("b", nil, nil).WithProbe(func(context.Context) error { return stderrors.New("x") }))

	got := reg.HealthAll(context.Background())
	if len(got) != 2 || got[0].Status != StatusHealthy || got[1].Status != StatusUnhealthy {
		t.Errorf("unexpected health %+v", got)
	}
}

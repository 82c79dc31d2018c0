package hooks

import (
	"context"
	"errors"
	"testing"

	"github.com/victoralfred/goproc/proc"
)

// orderHook records the order hooks ran in.
type orderHook struct {
	name     string
	priority int
	order    *[]string
	preErr   error
}

func (h *orderHook) Name() string  { return h.name }
func (h *orderHook) Priority() int { return h.priority }

func (h *orderHook) PreRun(ctx context.Context, inv *proc.Invocation) (*proc.Invocation, error) {
	*h.order = append(*h.order, h.name+":pre")
	if h.preErr != nil {
		return nil, h.preErr
	}
	return inv, nil
}

func (h *orderHook) PostRun(ctx context.Context, inv *proc.Invocation, result *proc.Result, err error) error {
	*h.order = append(*h.order, h.name+":post")
	return nil
}

type errorOnlyHook struct {
	called *bool
}

func (h *errorOnlyHook) Name() string  { return "error-only" }
func (h *errorOnlyHook) Priority() int { return 1 }

func (h *errorOnlyHook) OnError(ctx context.Context, inv *proc.Invocation, err error) error {
	*h.called = true
	return nil
}

func inv(t *testing.T) *proc.Invocation {
	t.Helper()
	return proc.NewInvocation("ls").MustBuild()
}

func TestRegistry_PriorityOrder(t *testing.T) {
	var order []string
	r := NewRegistry()
	_ = r.Register(&orderHook{name: "late", priority: 20, order: &order})
	_ = r.Register(&orderHook{name: "early", priority: 10, order: &order})

	if _, err := r.PreRun(context.Background(), inv(t)); err != nil {
		t.Fatalf("PreRun() error = %v", err)
	}
	if err := r.PostRun(context.Background(), inv(t), &proc.Result{}, nil); err != nil {
		t.Fatalf("PostRun() error = %v", err)
	}

	want := []string{"early:pre", "late:pre", "early:post", "late:post"}
	if len(order) != len(want) {
		t.Fatalf("order = %v, want %v", order, want)
	}
	for i := range want {
		if order[i] != want[i] {
			t.Errorf("order[%d] = %q, want %q", i, order[i], want[i])
		}
	}
}

func TestRegistry_PreRunErrorStopsChain(t *testing.T) {
	var order []string
	hookErr := errors.New("denied")
	r := NewRegistry()
	_ = r.Register(&orderHook{name: "first", priority: 1, order: &order, preErr: hookErr})
	_ = r.Register(&orderHook{name: "second", priority: 2, order: &order})

	_, err := r.PreRun(context.Background(), inv(t))
	if !errors.Is(err, hookErr) {
		t.Errorf("PreRun() error = %v, want wrapped hook error", err)
	}
	if len(order) != 1 {
		t.Errorf("order = %v, second hook should not have run", order)
	}
}

func TestRegistry_ErrorHooksRunOnFailure(t *testing.T) {
	called := false
	r := NewRegistry()
	_ = r.Register(&errorOnlyHook{called: &called})

	if err := r.PostRun(context.Background(), inv(t), nil, errors.New("boom")); err != nil {
		t.Fatalf("PostRun() error = %v", err)
	}
	if !called {
		t.Error("error hook should run when the run failed")
	}

	called = false
	if err := r.PostRun(context.Background(), inv(t), &proc.Result{}, nil); err != nil {
		t.Fatalf("PostRun() error = %v", err)
	}
	if called {
		t.Error("error hook should not run on success")
	}
}

func TestRegistry_Unregister(t *testing.T) {
	var order []string
	r := NewRegistry()
	_ = r.Register(&orderHook{name: "gone", priority: 1, order: &order})

	r.Unregister("gone")

	if _, err := r.PreRun(context.Background(), inv(t)); err != nil {
		t.Fatalf("PreRun() error = %v", err)
	}
	if len(order) != 0 {
		t.Errorf("order = %v, unregistered hook still ran", order)
	}
}

func TestLoggingHook(t *testing.T) {
	var lines []string
	h := NewLoggingHook(func(format string, args ...interface{}) {
		lines = append(lines, format)
	})

	if _, err := h.PreRun(context.Background(), inv(t)); err != nil {
		t.Fatalf("PreRun() error = %v", err)
	}
	if err := h.PostRun(context.Background(), inv(t), &proc.Result{}, nil); err != nil {
		t.Fatalf("PostRun() error = %v", err)
	}
	if len(lines) != 2 {
		t.Errorf("logged %d lines, want 2", len(lines))
	}
}

// Package hooks provides extension points for the run lifecycle.
package hooks

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/victoralfred/goproc/proc"
)

// Hook identifies an extension point implementation.
type Hook interface {
	// Name returns a unique identifier for the hook.
	Name() string

	// Priority determines execution order (lower = earlier).
	Priority() int
}

// PreRunHook is called before a process is spawned and may replace the
// invocation.
type PreRunHook interface {
	Hook
	PreRun(ctx context.Context, inv *proc.Invocation) (*proc.Invocation, error)
}

// PostRunHook is called after a run completes.
type PostRunHook interface {
	Hook
	PostRun(ctx context.Context, inv *proc.Invocation, result *proc.Result, err error) error
}

// ErrorHook is called when a run fails.
type ErrorHook interface {
	Hook
	OnError(ctx context.Context, inv *proc.Invocation, err error) error
}

// Registry manages hook registration and invocation. It satisfies
// proc.Hook, so a populated registry can be handed straight to the runner
// builder with WithHooks.
type Registry struct {
	preRun     []PreRunHook
	postRun    []PostRunHook
	errorHooks []ErrorHook
	mu         sync.RWMutex
}

// NewRegistry creates a new hook registry.
func NewRegistry() *Registry {
	return &Registry{
		preRun:     make([]PreRunHook, 0),
		postRun:    make([]PostRunHook, 0),
		errorHooks: make([]ErrorHook, 0),
	}
}

// Register adds a hook to the registry. A hook may implement several of
// the lifecycle interfaces and is registered for each it satisfies.
func (r *Registry) Register(hook Hook) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if h, ok := hook.(PreRunHook); ok {
		r.preRun = append(r.preRun, h)
		sort.Slice(r.preRun, func(i, j int) bool {
			return r.preRun[i].Priority() < r.preRun[j].Priority()
		})
	}

	if h, ok := hook.(PostRunHook); ok {
		r.postRun = append(r.postRun, h)
		sort.Slice(r.postRun, func(i, j int) bool {
			return r.postRun[i].Priority() < r.postRun[j].Priority()
		})
	}

	if h, ok := hook.(ErrorHook); ok {
		r.errorHooks = append(r.errorHooks, h)
		sort.Slice(r.errorHooks, func(i, j int) bool {
			return r.errorHooks[i].Priority() < r.errorHooks[j].Priority()
		})
	}

	return nil
}

// Unregister removes a hook by name.
func (r *Registry) Unregister(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	pre := make([]PreRunHook, 0, len(r.preRun))
	for _, h := range r.preRun {
		if h.Name() != name {
			pre = append(pre, h)
		}
	}
	r.preRun = pre

	post := make([]PostRunHook, 0, len(r.postRun))
	for _, h := range r.postRun {
		if h.Name() != name {
			post = append(post, h)
		}
	}
	r.postRun = post

	errs := make([]ErrorHook, 0, len(r.errorHooks))
	for _, h := range r.errorHooks {
		if h.Name() != name {
			errs = append(errs, h)
		}
	}
	r.errorHooks = errs
}

// PreRun implements proc.Hook by running all registered pre-run hooks in
// priority order.
func (r *Registry) PreRun(ctx context.Context, inv *proc.Invocation) (*proc.Invocation, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	current := inv
	for _, hook := range r.preRun {
		modified, err := hook.PreRun(ctx, current)
		if err != nil {
			return nil, fmt.Errorf("hook %s: %w", hook.Name(), err)
		}
		current = modified
	}
	return current, nil
}

// PostRun implements proc.Hook by running all registered post-run hooks in
// priority order, then the error hooks when the run failed.
func (r *Registry) PostRun(ctx context.Context, inv *proc.Invocation, result *proc.Result, runErr error) error {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, hook := range r.postRun {
		if err := hook.PostRun(ctx, inv, result, runErr); err != nil {
			return fmt.Errorf("hook %s: %w", hook.Name(), err)
		}
	}

	if runErr != nil {
		for _, hook := range r.errorHooks {
			if err := hook.OnError(ctx, inv, runErr); err != nil {
				return fmt.Errorf("hook %s: %w", hook.Name(), err)
			}
		}
	}
	return nil
}

// LoggingHook is a built-in hook that logs run lifecycle events.
type LoggingHook struct {
	logger func(format string, args ...interface{})
}

// NewLoggingHook creates a new logging hook.
func NewLoggingHook(logger func(format string, args ...interface{})) *LoggingHook {
	return &LoggingHook{logger: logger}
}

func (h *LoggingHook) Name() string  { return "logging" }
func (h *LoggingHook) Priority() int { return 1000 }

func (h *LoggingHook) PreRun(ctx context.Context, inv *proc.Invocation) (*proc.Invocation, error) {
	h.logger("Running: %s", inv)
	return inv, nil
}

func (h *LoggingHook) PostRun(ctx context.Context, inv *proc.Invocation, result *proc.Result, err error) error {
	if err != nil {
		h.logger("Run failed: %s - %v", inv, err)
	} else {
		h.logger("Run completed: %s - status=%s exit=%d duration=%v", inv, result.Status, result.ExitCode, result.Duration)
	}
	return nil
}

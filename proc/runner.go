package proc

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"sync"
	"sync/atomic"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/victoralfred/goproc/internal/envutil"
	internalexec "github.com/victoralfred/goproc/internal/exec"
)

// Runner is the single abstraction for process invocation.
// All command execution goes through this interface.
type Runner interface {
	// Run executes an invocation and returns its result. A non-zero exit
	// is not an error unless the invocation sets Check.
	Run(ctx context.Context, inv *Invocation) (*Result, error)

	// RunChecked is Run with Check forced on, regardless of the
	// invocation's own setting.
	RunChecked(ctx context.Context, inv *Invocation) (*Result, error)

	// RunShell runs a shell script with default options by feeding it to
	// "sh" on stdin. For non-default options build the invocation with
	// Shell(script) and call Run.
	RunShell(ctx context.Context, script string) (*Result, error)

	// RunAsync runs an invocation asynchronously, returning a Future.
	RunAsync(ctx context.Context, inv *Invocation) Future[*Result]

	// Stream runs an invocation with output flowing to the given writers
	// as it is produced, instead of being buffered into a Result.
	Stream(ctx context.Context, inv *Invocation, stdout, stderr io.Writer) error

	// Attach launches path with target and args as arguments, bound to the
	// caller's standard streams, with its environment replaced entirely by
	// env. Descriptors beyond the standard three are not passed down. The
	// call blocks until the child terminates and returns its exit code.
	// There is no capture, timeout, or check.
	Attach(ctx context.Context, path, target string, env map[string]string, args ...string) (int, error)

	// Shutdown gracefully shuts down the runner, waiting for pending runs.
	Shutdown(ctx context.Context) error
}

// RateLimiter throttles process creation.
type RateLimiter interface {
	// Allow checks if a spawn is allowed for the given command path.
	Allow(path string) bool
	// Wait blocks until a spawn is allowed or the context is canceled.
	Wait(ctx context.Context, path string) error
}

// Telemetry provides observability.
type Telemetry interface {
	// StartSpan starts a new trace span.
	StartSpan(ctx context.Context, name string) (context.Context, func())
	// RecordDuration records a duration metric in seconds.
	RecordDuration(name string, seconds float64, labels map[string]string)
	// RecordCounter increments a counter.
	RecordCounter(name string, labels map[string]string)
}

// Hook defines extension points around a run.
type Hook interface {
	// PreRun is called before the process is spawned and may replace the
	// invocation.
	PreRun(ctx context.Context, inv *Invocation) (*Invocation, error)
	// PostRun is called after the run completes, with the result and the
	// error Run is about to return.
	PostRun(ctx context.Context, inv *Invocation, result *Result, err error) error
}

// processRunner is the internal execution seam, satisfied by
// internalexec.Runner and by test doubles.
type processRunner interface {
	Run(ctx context.Context, config *internalexec.RunConfig) (*internalexec.RunResult, error)
	RunAttached(ctx context.Context, config *internalexec.AttachConfig) (int, error)
}

// runner is the default Runner implementation.
type runner struct {
	exec           processRunner
	rateLimiter    RateLimiter
	telemetry      Telemetry
	hooks          []Hook
	wg             sync.WaitGroup
	mu             sync.RWMutex // protects shutdown check and wg.Add
	defaultTimeout time.Duration
	shutdown       int32
}

// Builder creates configured Runner instances.
type Builder struct {
	rateLimiter    RateLimiter
	telemetry      Telemetry
	hooks          []Hook
	gracePeriod    time.Duration
	defaultTimeout time.Duration
}

// NewBuilder creates a new runner builder. By default there is no timeout
// (a run without one waits forever) and a timed-out child gets the default
// grace period between the termination signal and the kill.
func NewBuilder() *Builder {
	return &Builder{
		gracePeriod: internalexec.DefaultGracePeriod,
	}
}

// WithRateLimiter sets the spawn rate limiter.
func (b *Builder) WithRateLimiter(limiter RateLimiter) *Builder {
	b.rateLimiter = limiter
	return b
}

// WithTelemetry sets the telemetry provider.
func (b *Builder) WithTelemetry(telemetry Telemetry) *Builder {
	b.telemetry = telemetry
	return b
}

// WithHooks adds run hooks.
func (b *Builder) WithHooks(hooks ...Hook) *Builder {
	b.hooks = append(b.hooks, hooks...)
	return b
}

// WithGracePeriod sets how long a timed-out child may linger after the
// termination signal before it is forcefully killed.
func (b *Builder) WithGracePeriod(grace time.Duration) *Builder {
	b.gracePeriod = grace
	return b
}

// WithDefaultTimeout sets a timeout applied to invocations that do not
// carry their own.
func (b *Builder) WithDefaultTimeout(timeout time.Duration) *Builder {
	b.defaultTimeout = timeout
	return b
}

// Build creates the runner.
func (b *Builder) Build() (Runner, error) {
	return &runner{
		exec:           internalexec.NewRunner(b.gracePeriod),
		rateLimiter:    b.rateLimiter,
		telemetry:      b.telemetry,
		hooks:          b.hooks,
		defaultTimeout: b.defaultTimeout,
	}, nil
}

// Run executes an invocation synchronously.
func (r *runner) Run(ctx context.Context, inv *Invocation) (*Result, error) {
	// The mutex makes the shutdown check and wg.Add atomic, so Shutdown
	// cannot start waiting between the check and the Add.
	r.mu.RLock()
	if atomic.LoadInt32(&r.shutdown) == 1 {
		r.mu.RUnlock()
		return nil, ErrRunnerShutdown
	}
	r.wg.Add(1)
	r.mu.RUnlock()

	defer r.wg.Done()

	if inv == nil || inv.Path == "" {
		return nil, fmt.Errorf("%w: command path is required", ErrInvalidInvocation)
	}

	if r.telemetry != nil {
		var endSpan func()
		ctx, endSpan = r.telemetry.StartSpan(ctx, "runner.Run")
		defer endSpan()
	}

	id := uuid.New().String()

	var err error
	inv, err = r.runPreHooks(ctx, inv)
	if err != nil {
		return nil, err
	}

	if r.rateLimiter != nil {
		if err := r.rateLimiter.Wait(ctx, inv.Path); err != nil {
			return nil, err
		}
	}

	timeout := inv.Options.Timeout
	if timeout == 0 {
		timeout = r.defaultTimeout
	}

	runCtx := ctx
	if timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	config := &internalexec.RunConfig{
		Path:     inv.Path,
		Args:     inv.Args,
		Env:      envutil.Resolve(inv.Options.InheritEnv, inv.Options.Env),
		Dir:      inv.Options.Dir,
		Input:    inv.Options.Input,
		HasInput: inv.Options.HasInput,
		Capture:  inv.Options.Capture,
		TTY:      inv.Options.TTY,
	}

	runResult, runErr := r.exec.Run(runCtx, config)

	result, resultErr := r.shapeResult(inv, runResult, runErr, id, timeout)

	r.recordMetrics(inv, result, resultErr)

	if hookErr := r.runPostHooks(ctx, inv, result, resultErr); hookErr != nil {
		return result, hookErr
	}

	return result, resultErr
}

// RunChecked executes an invocation with Check forced on.
func (r *runner) RunChecked(ctx context.Context, inv *Invocation) (*Result, error) {
	if inv == nil {
		return nil, fmt.Errorf("%w: command path is required", ErrInvalidInvocation)
	}
	checked := inv.Clone()
	checked.Options.Check = true
	return r.Run(ctx, checked)
}

// RunShell executes a shell script with default options.
func (r *runner) RunShell(ctx context.Context, script string) (*Result, error) {
	inv, err := Shell(script).Build()
	if err != nil {
		return nil, err
	}
	return r.Run(ctx, inv)
}

// RunAsync executes an invocation asynchronously.
func (r *runner) RunAsync(ctx context.Context, inv *Invocation) Future[*Result] {
	asyncCtx, cancel := context.WithCancel(ctx)
	future := NewResultFuture(cancel)

	go func() {
		result, err := r.Run(asyncCtx, inv)
		future.Complete(result, err)
	}()

	return future
}

// Stream executes an invocation with streaming output.
func (r *runner) Stream(ctx context.Context, inv *Invocation, stdout, stderr io.Writer) error {
	r.mu.RLock()
	if atomic.LoadInt32(&r.shutdown) == 1 {
		r.mu.RUnlock()
		return ErrRunnerShutdown
	}
	r.wg.Add(1)
	r.mu.RUnlock()

	defer r.wg.Done()

	if inv == nil || inv.Path == "" {
		return fmt.Errorf("%w: command path is required", ErrInvalidInvocation)
	}

	if r.rateLimiter != nil {
		if err := r.rateLimiter.Wait(ctx, inv.Path); err != nil {
			return err
		}
	}

	timeout := inv.Options.Timeout
	if timeout == 0 {
		timeout = r.defaultTimeout
	}

	runCtx := ctx
	if timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	config := &internalexec.RunConfig{
		Path:     inv.Path,
		Args:     inv.Args,
		Env:      envutil.Resolve(inv.Options.InheritEnv, inv.Options.Env),
		Dir:      inv.Options.Dir,
		Input:    inv.Options.Input,
		HasInput: inv.Options.HasInput,
		TTY:      inv.Options.TTY,
		Stdout:   stdout,
		Stderr:   stderr,
	}

	_, err := r.exec.Run(runCtx, config)
	return err
}

// Attach launches a child bound to the caller's standard streams and waits
// for it. The environment is exactly env; nothing is inherited.
func (r *runner) Attach(ctx context.Context, path, target string, env map[string]string, args ...string) (int, error) {
	r.mu.RLock()
	if atomic.LoadInt32(&r.shutdown) == 1 {
		r.mu.RUnlock()
		return -1, ErrRunnerShutdown
	}
	r.wg.Add(1)
	r.mu.RUnlock()

	defer r.wg.Done()

	if path == "" {
		return -1, fmt.Errorf("%w: command path is required", ErrInvalidInvocation)
	}

	config := &internalexec.AttachConfig{
		Path: path,
		Args: append([]string{target}, args...),
		Env:  envutil.ToSlice(env),
	}
	return r.exec.RunAttached(ctx, config)
}

// Shutdown gracefully shuts down the runner.
func (r *runner) Shutdown(ctx context.Context) error {
	// The write lock blocks new runs from slipping past the shutdown flag.
	r.mu.Lock()
	atomic.StoreInt32(&r.shutdown, 1)
	r.mu.Unlock()

	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// shapeResult folds the internal run outcome into the public result and
// error contract: timeouts become *TimeoutError with partial output,
// checked non-zero exits become *ExitError, captured bytes are decoded,
// and spawn failures propagate unwrapped.
func (r *runner) shapeResult(inv *Invocation, runResult *internalexec.RunResult, runErr error, id string, timeout time.Duration) (*Result, error) {
	if runErr != nil {
		if runResult != nil && runResult.TimedOut {
			// Partial output on a kill is reported as-is; it may end
			// mid-rune, so strict decoding does not apply here.
			result := &Result{
				InvocationID: id,
				Stdout:       string(runResult.Stdout),
				Stderr:       string(runResult.Stderr),
				Status:       StatusTimeout,
				ExitCode:     runResult.ExitCode,
				Duration:     runResult.Duration,
			}
			return result, &TimeoutError{
				Path:    inv.Path,
				Args:    inv.Args,
				Timeout: timeout,
				Stdout:  result.Stdout,
				Stderr:  result.Stderr,
			}
		}
		if runResult != nil && errors.Is(runErr, context.Canceled) {
			result := &Result{
				InvocationID: id,
				Stdout:       string(runResult.Stdout),
				Stderr:       string(runResult.Stderr),
				Status:       StatusCanceled,
				ExitCode:     runResult.ExitCode,
				Duration:     runResult.Duration,
			}
			return result, runErr
		}
		// Spawn failure: executable missing or not executable. No process
		// was created, so there is nothing to attach.
		return nil, runErr
	}

	stdout, err := decodeStream("stdout", inv, runResult.Stdout)
	if err != nil {
		return nil, err
	}
	stderr, err := decodeStream("stderr", inv, runResult.Stderr)
	if err != nil {
		return nil, err
	}

	result := &Result{
		InvocationID: id,
		Stdout:       stdout,
		Stderr:       stderr,
		ExitCode:     runResult.ExitCode,
		Duration:     runResult.Duration,
	}

	switch {
	case runResult.ExitCode == 0:
		result.Status = StatusSuccess
	case runResult.Signal != 0:
		result.Status = StatusKilled
		result.Signal = runResult.Signal.String()
	default:
		result.Status = StatusError
	}

	if inv.Options.Check && runResult.ExitCode != 0 {
		return result, &ExitError{
			Path:     inv.Path,
			Args:     inv.Args,
			Options:  inv.Options,
			ExitCode: runResult.ExitCode,
			Stdout:   stdout,
			Stderr:   stderr,
		}
	}

	return result, nil
}

// decodeStream turns captured bytes into text, enforcing strict UTF-8
// validation when the invocation asks for it.
func decodeStream(stream string, inv *Invocation, data []byte) (string, error) {
	if inv.Options.StrictDecode && !utf8.Valid(data) {
		return "", &DecodeError{
			Stream: stream,
			Path:   inv.Path,
			Raw:    data,
		}
	}
	return string(data), nil
}

func (r *runner) recordMetrics(inv *Invocation, result *Result, err error) {
	if r.telemetry == nil {
		return
	}

	status := "spawn_error"
	exitCode := -1
	var duration time.Duration
	if result != nil {
		status = result.Status.String()
		exitCode = result.ExitCode
		duration = result.Duration
	} else if err != nil {
		var decodeErr *DecodeError
		if errors.As(err, &decodeErr) {
			status = "decode_error"
		}
	}

	labels := map[string]string{
		"path":     inv.Path,
		"status":   status,
		"exitcode": strconv.Itoa(exitCode),
	}
	r.telemetry.RecordCounter("runs_total", labels)
	if result != nil {
		r.telemetry.RecordDuration("run_duration_seconds", duration.Seconds(), labels)
	}
}

// runPreHooks runs pre-run hooks in registration order.
// Hooks are read-only after Build, so no lock is needed.
func (r *runner) runPreHooks(ctx context.Context, inv *Invocation) (*Invocation, error) {
	if len(r.hooks) == 0 {
		return inv, nil
	}

	current := inv
	for _, hook := range r.hooks {
		modified, err := hook.PreRun(ctx, current)
		if err != nil {
			return nil, err
		}
		current = modified
	}
	return current, nil
}

// runPostHooks runs post-run hooks in registration order.
func (r *runner) runPostHooks(ctx context.Context, inv *Invocation, result *Result, runErr error) error {
	for _, hook := range r.hooks {
		if err := hook.PostRun(ctx, inv, result, runErr); err != nil {
			return err
		}
	}
	return nil
}

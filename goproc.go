// Package goproc is a convenience layer around operating-system subprocess
// creation: run a command or a shell script, optionally capture stdout and
// stderr, optionally allocate a pseudo-terminal, enforce a timeout, and
// optionally turn a non-zero exit code into a structured error.
//
// # Quick Start
//
// The simplest way to use goproc:
//
//	// Create a runner with default settings
//	runner, err := goproc.New()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer runner.Shutdown(context.Background())
//
//	// Run a command
//	inv := goproc.Cmd("ls", "-la").MustBuild()
//	result, err := runner.Run(ctx, inv)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(result.Stdout)
//
// # Shell Scripts
//
// Scripts are fed to "sh" on stdin, keeping full shell semantics:
//
//	result, err := runner.RunShell(ctx, "ls / | grep bin")
//
// # Execution Contract
//
// By default output is captured, the caller's environment is inherited,
// and a non-zero exit code is not an error; it is reported through
// Result.ExitCode. WithCheck(true) turns a non-zero exit into an
// *ExitError carrying the exit code, the captured output, and the full
// invocation for diagnostics. WithTimeout terminates a child that runs too
// long (a termination signal to the process group, a grace period, then a
// kill) and returns a *TimeoutError with whatever output was drained
// before the kill. WithTTY runs the child on a pseudo-terminal so it
// behaves as if attached to an interactive terminal.
//
// Stdin feeding and stdout/stderr draining always proceed concurrently
// with the exit wait, so children producing more than a pipe buffer of
// output cannot deadlock a run.
//
// # Architecture
//
// The library is organized into focused packages:
//
//   - goproc (this package): Main entry point and convenience functions
//   - proc: Core Runner interface and implementation
//   - config: Defaults and YAML configuration loading
//   - resilience: Spawn rate limiting
//   - observability: OpenTelemetry metrics/tracing and audit logging
//   - hooks: Extension points for custom behavior
//
// # Thread Safety
//
// All types in this package are safe for concurrent use by multiple
// goroutines. A Runner can be shared without additional synchronization;
// each run owns its child process, pipes, and buffers exclusively.
package goproc

import (
	"context"
	"io"
	"time"

	"github.com/victoralfred/goproc/config"
	"github.com/victoralfred/goproc/observability"
	"github.com/victoralfred/goproc/proc"
	"github.com/victoralfred/goproc/resilience"
)

// =============================================================================
// Core Types
// =============================================================================

// Runner is the primary interface for process invocation.
type Runner = proc.Runner

// Invocation is one command to run: path, verbatim arguments, and options.
type Invocation = proc.Invocation

// Options configures how a single invocation runs.
type Options = proc.Options

// Result contains the outcome of a run.
type Result = proc.Result

// ExitStatus classifies how a run ended.
type ExitStatus = proc.ExitStatus

// Builder creates configured Runner instances.
type Builder = proc.Builder

// InvocationBuilder creates invocations with a fluent interface.
type InvocationBuilder = proc.InvocationBuilder

// ExitError is returned for checked runs that exit non-zero.
type ExitError = proc.ExitError

// TimeoutError is returned when a run exceeds its timeout.
type TimeoutError = proc.TimeoutError

// DecodeError is returned when captured output is not valid UTF-8 under
// strict decoding.
type DecodeError = proc.DecodeError

// =============================================================================
// Error Variables
// =============================================================================

// Common errors returned by the library.
var (
	// ErrNonZeroExit indicates a checked command exited non-zero.
	ErrNonZeroExit = proc.ErrNonZeroExit

	// ErrTimeout indicates the command did not exit within its timeout.
	ErrTimeout = proc.ErrTimeout

	// ErrDecode indicates captured output was not valid text.
	ErrDecode = proc.ErrDecode

	// ErrInvalidInvocation indicates invalid invocation configuration.
	ErrInvalidInvocation = proc.ErrInvalidInvocation

	// ErrRunnerShutdown indicates the runner has been shut down.
	ErrRunnerShutdown = proc.ErrRunnerShutdown
)

// =============================================================================
// Status Constants
// =============================================================================

// Run status values.
const (
	StatusSuccess  = proc.StatusSuccess
	StatusError    = proc.StatusError
	StatusTimeout  = proc.StatusTimeout
	StatusCanceled = proc.StatusCanceled
	StatusKilled   = proc.StatusKilled
)

// =============================================================================
// Factory Functions
// =============================================================================

// New creates a new Runner with default settings.
func New() (Runner, error) {
	return proc.NewBuilder().Build()
}

// NewBuilder creates a new runner builder for configuring the Runner.
//
// Example:
//
//	runner, err := goproc.NewBuilder().
//	    WithGracePeriod(5 * time.Second).
//	    Build()
func NewBuilder() *Builder {
	return proc.NewBuilder()
}

// FromConfig creates a Runner wired according to cfg: telemetry when
// metrics or tracing are enabled, a file audit hook when auditing is
// enabled, and a spawn rate limiter when rate limiting is enabled.
func FromConfig(cfg config.Config) (Runner, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	builder := proc.NewBuilder().
		WithGracePeriod(cfg.Runner.GracePeriod).
		WithDefaultTimeout(cfg.Runner.DefaultTimeout)

	if cfg.Runner.EnableMetrics || cfg.Runner.EnableTracing {
		tcfg := cfg.Telemetry
		tcfg.EnableMetrics = cfg.Runner.EnableMetrics
		tcfg.EnableTracing = cfg.Runner.EnableTracing
		telemetry, err := observability.NewTelemetry(tcfg)
		if err != nil {
			return nil, err
		}
		builder = builder.WithTelemetry(observability.ForRunner(telemetry))
	}

	if cfg.Runner.EnableAudit {
		logger, err := observability.NewFileAuditLogger(cfg.Audit)
		if err != nil {
			return nil, err
		}
		builder = builder.WithHooks(observability.NewAuditHook(logger))
	}

	if cfg.Runner.EnableRateLimit {
		builder = builder.WithRateLimiter(resilience.NewRateLimiter(cfg.RateLimiter))
	}

	return builder.Build()
}

// =============================================================================
// Invocation Construction
// =============================================================================

// Cmd creates a new InvocationBuilder for the given executable and
// arguments, starting from the documented defaults.
//
// Example:
//
//	inv, err := goproc.Cmd("git", "status").WithCheck(true).Build()
func Cmd(path string, args ...string) *InvocationBuilder {
	return proc.NewInvocation(path, args...)
}

// Shell creates an InvocationBuilder that runs script through "sh".
//
// Example:
//
//	inv := goproc.Shell("ls / | grep bin").WithCheck(true).MustBuild()
func Shell(script string) *InvocationBuilder {
	return proc.Shell(script)
}

// MustCmd creates an invocation and panics on error.
func MustCmd(path string, args ...string) *Invocation {
	return proc.NewInvocation(path, args...).MustBuild()
}

// =============================================================================
// Convenience Functions
// =============================================================================

// Run is a convenience function for one-off execution. For repeated runs,
// create a Runner instance instead.
//
// Example:
//
//	result, err := goproc.Run(ctx, "ls", "-la")
func Run(ctx context.Context, path string, args ...string) (*Result, error) {
	runner, err := New()
	if err != nil {
		return nil, err
	}
	defer func() {
		// Shutdown after a completed run cannot block or fail meaningfully.
		_ = runner.Shutdown(context.Background())
	}()

	inv, err := Cmd(path, args...).Build()
	if err != nil {
		return nil, err
	}

	return runner.Run(ctx, inv)
}

// RunChecked is Run with non-zero exits converted into *ExitError.
func RunChecked(ctx context.Context, path string, args ...string) (*Result, error) {
	runner, err := New()
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = runner.Shutdown(context.Background())
	}()

	inv, err := Cmd(path, args...).Build()
	if err != nil {
		return nil, err
	}

	return runner.RunChecked(ctx, inv)
}

// RunShell is a convenience function for one-off shell scripts.
//
// Example:
//
//	result, err := goproc.RunShell(ctx, "echo hello")
func RunShell(ctx context.Context, script string) (*Result, error) {
	runner, err := New()
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = runner.Shutdown(context.Background())
	}()

	return runner.RunShell(ctx, script)
}

// RunWithTimeout is a convenience function with an explicit timeout.
func RunWithTimeout(ctx context.Context, timeout time.Duration, path string, args ...string) (*Result, error) {
	runner, err := New()
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = runner.Shutdown(context.Background())
	}()

	inv, err := Cmd(path, args...).WithTimeout(timeout).Build()
	if err != nil {
		return nil, err
	}

	return runner.Run(ctx, inv)
}

// Stream is a convenience function for streaming command output to the
// given writers as it is produced.
//
// Example:
//
//	err := goproc.Stream(ctx, os.Stdout, os.Stderr, "tail", "-f", "/var/log/syslog")
func Stream(ctx context.Context, stdout, stderr io.Writer, path string, args ...string) error {
	runner, err := New()
	if err != nil {
		return err
	}
	defer func() {
		_ = runner.Shutdown(context.Background())
	}()

	inv, err := Cmd(path, args...).Build()
	if err != nil {
		return err
	}

	return runner.Stream(ctx, inv, stdout, stderr)
}

// Attach launches path with target and args as arguments, bound to the
// caller's standard streams, with its environment replaced entirely by
// env. The call blocks until the child terminates and returns its exit
// code. There is no capture, timeout, or check.
//
// Example:
//
//	code, err := goproc.Attach(ctx, "sh", "deploy.sh", env, "v1", "v2")
func Attach(ctx context.Context, path, target string, env map[string]string, args ...string) (int, error) {
	runner, err := New()
	if err != nil {
		return -1, err
	}
	defer func() {
		_ = runner.Shutdown(context.Background())
	}()

	return runner.Attach(ctx, path, target, env, args...)
}

// =============================================================================
// Version Information
// =============================================================================

// Version returns the library version.
func Version() string {
	return "1.0.0"
}

// Package exec provides the internal process execution wrapper.
// This is the ONLY package in the library that imports os/exec and the
// pty allocator. All process creation MUST go through this package.
package exec

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	osexec "os/exec"
	"syscall"
	"time"
)

// DefaultGracePeriod is the delay between the termination signal sent on
// cancellation and the forceful kill.
const DefaultGracePeriod = 3 * time.Second

// ErrTTYUnsupported is returned when a pseudo-terminal is requested on a
// platform without pty support.
var ErrTTYUnsupported = errors.New("pseudo-terminal not supported on this platform")

// Runner executes processes using os/exec.
// This is the sole abstraction for process invocation.
type Runner struct {
	// gracePeriod is how long a canceled child may linger after the
	// termination signal before it is forcefully killed.
	gracePeriod time.Duration
}

// NewRunner creates a new process runner.
func NewRunner(gracePeriod time.Duration) *Runner {
	if gracePeriod <= 0 {
		gracePeriod = DefaultGracePeriod
	}
	return &Runner{gracePeriod: gracePeriod}
}

// RunConfig contains configuration for running a process.
type RunConfig struct {
	// Path is the executable path or name (resolved via PATH).
	Path string

	// Args are the process arguments (excluding the executable name).
	Args []string

	// Env is the complete child environment. A non-nil empty slice means
	// an empty environment; callers resolve inheritance before this point.
	Env []string

	// Dir is the working directory.
	Dir string

	// Input is written to the child's stdin, which is then closed.
	Input []byte

	// HasInput distinguishes "no stdin" from "empty stdin then EOF".
	HasInput bool

	// Capture redirects the child's stdout/stderr into buffers. When
	// false the child inherits the caller's streams.
	Capture bool

	// TTY allocates a pseudo-terminal for the child's standard streams.
	TTY bool

	// Stdout, if set, receives standard output instead of the capture
	// buffer. Used for streaming.
	Stdout io.Writer

	// Stderr, if set, receives standard error instead of the capture
	// buffer.
	Stderr io.Writer
}

// RunResult contains the outcome of a process run.
type RunResult struct {
	// ExitCode is the process exit code. -1 when killed by a signal.
	ExitCode int

	// Signal is the signal that terminated the process, if any.
	Signal syscall.Signal

	// Stdout contains captured standard output.
	Stdout []byte

	// Stderr contains captured standard error. Always empty in TTY mode,
	// where the terminal merges both streams into Stdout.
	Stderr []byte

	// Duration is the wall clock time of execution.
	Duration time.Duration

	// TimedOut reports whether the run was cut short by the context
	// deadline. Stdout/Stderr hold whatever was drained before the kill.
	TimedOut bool

	// ProcessState contains OS-level process accounting.
	ProcessState *ProcessState
}

// ProcessState contains OS-level process information.
type ProcessState struct {
	Pid        int
	UserTime   time.Duration
	SystemTime time.Duration
}

// Run executes a process with the given context and configuration.
//
// Stdin feeding and stdout/stderr draining run concurrently with the exit
// wait (os/exec copies each assigned stream on its own goroutine; the TTY
// path drains the pty master the same way), so a child producing more than
// a pipe buffer of output cannot deadlock the call.
//
// A non-zero exit is not an error here: the exit code is reported through
// RunResult and callers decide. Errors are spawn failures, context
// cancellation, and deadline expiry (reported as context.DeadlineExceeded
// with partial output attached).
func (r *Runner) Run(ctx context.Context, config *RunConfig) (*RunResult, error) {
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}

	cmd := osexec.CommandContext(ctx, config.Path, config.Args...)
	cmd.Env = config.Env
	if config.Dir != "" {
		cmd.Dir = config.Dir
	}

	// On cancellation signal the whole process group, then let WaitDelay
	// escalate to a kill if the child lingers.
	cmd.Cancel = func() error { return terminate(cmd) }
	cmd.WaitDelay = r.gracePeriod

	if config.TTY {
		return r.runTTY(ctx, config, cmd)
	}

	cmd.SysProcAttr = defaultSysProcAttr()

	if config.HasInput {
		cmd.Stdin = bytes.NewReader(config.Input)
	}

	var stdoutBuf, stderrBuf bytes.Buffer
	switch {
	case config.Stdout != nil:
		cmd.Stdout = config.Stdout
	case config.Capture:
		cmd.Stdout = &stdoutBuf
	default:
		cmd.Stdout = os.Stdout
	}
	switch {
	case config.Stderr != nil:
		cmd.Stderr = config.Stderr
	case config.Capture:
		cmd.Stderr = &stderrBuf
	default:
		cmd.Stderr = os.Stderr
	}

	start := time.Now()
	runErr := cmd.Run()
	duration := time.Since(start)

	result := &RunResult{
		Duration: duration,
		Stdout:   stdoutBuf.Bytes(),
		Stderr:   stderrBuf.Bytes(),
	}
	return r.finish(ctx, cmd, result, runErr)
}

// finish folds the wait error, the context state, and the process state
// into the final result. Shared by the pipe and pty paths.
func (r *Runner) finish(ctx context.Context, cmd *osexec.Cmd, result *RunResult, runErr error) (*RunResult, error) {
	if cmd.ProcessState != nil {
		result.ExitCode = cmd.ProcessState.ExitCode()
		result.ProcessState = &ProcessState{
			Pid:        cmd.ProcessState.Pid(),
			UserTime:   cmd.ProcessState.UserTime(),
			SystemTime: cmd.ProcessState.SystemTime(),
		}
		if sig, ok := extractSignal(cmd.ProcessState.Sys()); ok {
			result.Signal = sig
		}
	}

	if ctxErr := ctx.Err(); ctxErr != nil {
		result.TimedOut = errors.Is(ctxErr, context.DeadlineExceeded)
		return result, ctxErr
	}

	if runErr != nil {
		var exitErr *osexec.ExitError
		if errors.As(runErr, &exitErr) {
			// Ran and exited non-zero: reported via ExitCode, not an error.
			return result, nil
		}
		// Spawn failure (not found, not executable) or stream plumbing error.
		return nil, runErr
	}

	return result, nil
}

// AttachConfig configures a replace-and-wait run.
type AttachConfig struct {
	// Path is the executable to launch.
	Path string

	// Args are the process arguments.
	Args []string

	// Env replaces the child environment entirely; nothing is inherited.
	Env []string
}

// RunAttached launches a child bound to the caller's standard streams and
// blocks until it terminates. The child environment is exactly config.Env.
// Descriptors other than the standard three are not passed down: os/exec
// forwards only stdin, stdout, stderr unless descriptors are listed in
// ExtraFiles, which this path never sets.
//
// There is no capture, timeout, or exit-code check. The child's exit code
// is returned; the error is non-nil only when the process could not be
// created.
func (r *Runner) RunAttached(ctx context.Context, config *AttachConfig) (int, error) {
	cmd := osexec.CommandContext(ctx, config.Path, config.Args...)
	env := config.Env
	if env == nil {
		env = []string{}
	}
	cmd.Env = env
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr

	runErr := cmd.Run()
	if runErr != nil {
		var exitErr *osexec.ExitError
		if errors.As(runErr, &exitErr) {
			return exitErr.ExitCode(), nil
		}
		return -1, runErr
	}
	return cmd.ProcessState.ExitCode(), nil
}

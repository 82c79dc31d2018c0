package proc

import (
	"time"
)

// Result contains the outcome of a run.
// It is produced once, at process exit, and immutable thereafter.
type Result struct {
	// InvocationID uniquely identifies this run for tracing and audit.
	InvocationID string

	// Stdout and Stderr hold the decoded captured output. Both are empty
	// when capture was disabled; Stderr is always empty in TTY mode.
	Stdout string
	Stderr string

	// Status classifies how the run ended.
	Status ExitStatus

	// ExitCode is the child's exit code. -1 when killed by a signal.
	ExitCode int

	// Signal names the signal that terminated the child, if any.
	Signal string

	// Duration is the wall clock time of execution.
	Duration time.Duration
}

// ExitStatus represents the outcome of a run.
type ExitStatus int

const (
	// StatusSuccess indicates the child exited with code 0.
	StatusSuccess ExitStatus = iota
	// StatusError indicates a non-zero exit code.
	StatusError
	// StatusTimeout indicates the run was cut short by its timeout.
	StatusTimeout
	// StatusCanceled indicates the context was canceled.
	StatusCanceled
	// StatusKilled indicates the child was killed by a signal.
	StatusKilled
)

// String returns the string representation of the exit status.
func (s ExitStatus) String() string {
	switch s {
	case StatusSuccess:
		return "success"
	case StatusError:
		return "error"
	case StatusTimeout:
		return "timeout"
	case StatusCanceled:
		return "canceled"
	case StatusKilled:
		return "killed"
	default:
		return "unknown"
	}
}

// Success returns true if the run exited cleanly with code 0.
func (r *Result) Success() bool {
	return r.Status == StatusSuccess && r.ExitCode == 0
}

// Failed returns true if the run did not succeed.
func (r *Result) Failed() bool {
	return !r.Success()
}

// OutLines returns stdout split into lines.
func (r *Result) OutLines() []string {
	return splitLines(r.Stdout)
}

// ErrLines returns stderr split into lines.
func (r *Result) ErrLines() []string {
	return splitLines(r.Stderr)
}

// Future represents an asynchronous result.
type Future[T any] interface {
	// Wait blocks until the result is available.
	Wait() (T, error)

	// Done returns a channel that is closed when the result is ready.
	Done() <-chan struct{}

	// Cancel attempts to cancel the operation.
	Cancel()
}

// ResultFuture implements Future for Result.
type ResultFuture struct {
	result *Result
	err    error
	done   chan struct{}
	cancel func()
}

// NewResultFuture creates a new result future.
func NewResultFuture(cancel func()) *ResultFuture {
	return &ResultFuture{
		done:   make(chan struct{}),
		cancel: cancel,
	}
}

// Complete sets the result and signals completion.
func (f *ResultFuture) Complete(result *Result, err error) {
	f.result = result
	f.err = err
	close(f.done)
}

// Wait blocks until the result is available.
func (f *ResultFuture) Wait() (*Result, error) {
	<-f.done
	return f.result, f.err
}

// Done returns a channel that is closed when the result is ready.
func (f *ResultFuture) Done() <-chan struct{} {
	return f.done
}

// Cancel attempts to cancel the operation.
func (f *ResultFuture) Cancel() {
	if f.cancel != nil {
		f.cancel()
	}
}

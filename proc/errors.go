package proc

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

// Sentinel errors for common conditions.
var (
	// ErrNonZeroExit indicates a checked command exited non-zero.
	ErrNonZeroExit = errors.New("command exited with non-zero code")

	// ErrTimeout indicates the command did not exit within its timeout.
	ErrTimeout = errors.New("command timed out")

	// ErrDecode indicates captured output was not valid text.
	ErrDecode = errors.New("output is not valid text")

	// ErrInvalidInvocation indicates invalid invocation configuration.
	ErrInvalidInvocation = errors.New("invalid invocation")

	// ErrRunnerShutdown indicates the runner has been shut down.
	ErrRunnerShutdown = errors.New("runner shut down")
)

// ExitError is returned when Check is set and the command exits non-zero.
// It carries the full invocation context plus the captured output, enough
// to reconstruct the failed run for diagnostics.
type ExitError struct {
	// Path and Args identify the command that ran.
	Path string
	Args []string

	// Options is a snapshot of the options the command ran with.
	Options Options

	// ExitCode is the child's actual exit code.
	ExitCode int

	// Stdout and Stderr hold the captured output. Empty when the run did
	// not capture.
	Stdout string
	Stderr string
}

// Error returns a multi-line description: the command line, the options
// that mattered, and the exit code.
func (e *ExitError) Error() string {
	var b strings.Builder
	b.WriteString("command failed\n")
	b.WriteString(commandLine(e.Path, e.Args))
	b.WriteString(fmt.Sprintf("\noptions: %s", optionLine(e.Options)))
	b.WriteString(fmt.Sprintf("\nexit code: %d", e.ExitCode))
	return b.String()
}

// Unwrap returns the sentinel so errors.Is(err, ErrNonZeroExit) matches.
func (e *ExitError) Unwrap() error {
	return ErrNonZeroExit
}

// OutLines returns the captured stdout split into lines.
func (e *ExitError) OutLines() []string {
	return splitLines(e.Stdout)
}

// ErrLines returns the captured stderr split into lines.
func (e *ExitError) ErrLines() []string {
	return splitLines(e.Stderr)
}

// TimeoutError is returned when the wait exceeded the configured timeout.
// The child was killed before this error was produced; Stdout and Stderr
// hold whatever was drained up to the kill.
type TimeoutError struct {
	Path    string
	Args    []string
	Timeout time.Duration
	Stdout  string
	Stderr  string
}

// Error returns the command line and the exceeded timeout.
func (e *TimeoutError) Error() string {
	return fmt.Sprintf("command did not exit within %s: %s", e.Timeout, commandLine(e.Path, e.Args))
}

// Unwrap returns the sentinel so errors.Is(err, ErrTimeout) matches.
func (e *TimeoutError) Unwrap() error {
	return ErrTimeout
}

// Is also matches context.DeadlineExceeded, since the timeout is enforced
// through a context deadline.
func (e *TimeoutError) Is(target error) bool {
	return target == context.DeadlineExceeded
}

// DecodeError is returned when strict decoding was requested and a captured
// stream contained bytes that are not valid UTF-8.
type DecodeError struct {
	// Stream is "stdout" or "stderr".
	Stream string

	// Path identifies the command whose output failed to decode.
	Path string

	// Raw holds the undecodable bytes.
	Raw []byte
}

// Error returns which stream of which command failed to decode.
func (e *DecodeError) Error() string {
	return fmt.Sprintf("%s of %s is not valid UTF-8 (%d bytes)", e.Stream, e.Path, len(e.Raw))
}

// Unwrap returns the sentinel so errors.Is(err, ErrDecode) matches.
func (e *DecodeError) Unwrap() error {
	return ErrDecode
}

func commandLine(path string, args []string) string {
	if len(args) == 0 {
		return path
	}
	return path + " " + strings.Join(args, " ")
}

// optionLine renders only the options that deviate from their defaults.
func optionLine(o Options) string {
	parts := make([]string, 0, 8)
	if !o.Capture {
		parts = append(parts, "capture=false")
	}
	if o.Check {
		parts = append(parts, "check=true")
	}
	if o.HasInput {
		parts = append(parts, fmt.Sprintf("input=%d bytes", len(o.Input)))
	}
	if o.Timeout > 0 {
		parts = append(parts, fmt.Sprintf("timeout=%s", o.Timeout))
	}
	if o.TTY {
		parts = append(parts, "tty=true")
	}
	if !o.InheritEnv {
		parts = append(parts, "inherit_env=false")
	}
	if len(o.Env) > 0 {
		parts = append(parts, fmt.Sprintf("env=%v", o.Env))
	}
	if o.Dir != "" {
		parts = append(parts, fmt.Sprintf("cwd=%s", o.Dir))
	}
	if len(parts) == 0 {
		return "defaults"
	}
	return strings.Join(parts, " ")
}

func splitLines(s string) []string {
	if s == "" {
		return nil
	}
	return strings.Split(strings.TrimSuffix(s, "\n"), "\n")
}

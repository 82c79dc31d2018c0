// Package proc provides the core process invocation abstraction.
package proc

import (
	"fmt"
	"strings"
	"time"
)

// Options configures how a single invocation runs.
// The zero value is not useful; start from DefaultOptions or the builder.
type Options struct {
	// Capture redirects the child's stdout/stderr into buffers returned in
	// the Result. When false the child inherits the caller's streams and
	// the Result fields stay empty.
	Capture bool

	// Check turns a non-zero exit code into an *ExitError.
	Check bool

	// Input is written to the child's stdin, which is then closed so the
	// child observes end-of-input. HasInput distinguishes "no stdin" from
	// "empty stdin then EOF".
	Input    []byte
	HasInput bool

	// Timeout is the maximum time to wait for exit. Zero waits forever.
	// On expiry the child is terminated and Run returns a *TimeoutError.
	Timeout time.Duration

	// TTY allocates a pseudo-terminal for the child's standard streams.
	// The child then believes it is attached to an interactive terminal;
	// everything it writes surfaces interleaved on Stdout.
	TTY bool

	// InheritEnv starts the child environment from the caller's
	// environment before Env overrides are applied.
	InheritEnv bool

	// Env contains additional or overriding environment variables.
	Env map[string]string

	// Dir is the child's working directory.
	Dir string

	// StrictDecode rejects captured output that is not valid UTF-8 with a
	// *DecodeError. Disable it to pass binary output through untouched.
	StrictDecode bool
}

// DefaultOptions returns the documented option defaults: capture on,
// inherit the environment, strict text decoding, everything else off.
func DefaultOptions() Options {
	return Options{
		Capture:      true,
		InheritEnv:   true,
		StrictDecode: true,
	}
}

// Invocation is one command to run: an executable path or name, verbatim
// arguments, and options. Invocations are immutable once built.
type Invocation struct {
	// Path is the executable path or name, resolved via PATH.
	Path string

	// Args are the arguments passed verbatim, with no shell interpretation.
	Args []string

	// Options control capture, check, timeout, tty, environment, and
	// working directory.
	Options Options
}

// String returns the invocation as a command line.
func (inv *Invocation) String() string {
	if len(inv.Args) == 0 {
		return inv.Path
	}
	return inv.Path + " " + strings.Join(inv.Args, " ")
}

// Clone creates a deep copy of the invocation.
func (inv *Invocation) Clone() *Invocation {
	clone := &Invocation{
		Path:    inv.Path,
		Args:    make([]string, len(inv.Args)),
		Options: inv.Options,
	}
	copy(clone.Args, inv.Args)

	if inv.Options.Input != nil {
		clone.Options.Input = make([]byte, len(inv.Options.Input))
		copy(clone.Options.Input, inv.Options.Input)
	}
	if inv.Options.Env != nil {
		clone.Options.Env = make(map[string]string, len(inv.Options.Env))
		for k, v := range inv.Options.Env {
			clone.Options.Env[k] = v
		}
	}

	return clone
}

// InvocationBuilder provides a fluent API for constructing invocations.
type InvocationBuilder struct {
	inv *Invocation
	err error
}

// NewInvocation creates a builder for the given executable and arguments,
// starting from DefaultOptions.
func NewInvocation(path string, args ...string) *InvocationBuilder {
	return &InvocationBuilder{
		inv: &Invocation{
			Path:    path,
			Args:    args,
			Options: DefaultOptions(),
		},
	}
}

// Shell creates a builder that runs script through "sh". The script is fed
// to the shell on stdin, so it keeps full shell semantics (pipes, globs,
// redirection) without this package interpreting anything itself.
func Shell(script string) *InvocationBuilder {
	return NewInvocation("sh").WithInput([]byte(script))
}

// WithCapture toggles output capture.
func (b *InvocationBuilder) WithCapture(capture bool) *InvocationBuilder {
	if b.err != nil {
		return b
	}
	b.inv.Options.Capture = capture
	return b
}

// WithCheck toggles conversion of non-zero exit codes into errors.
func (b *InvocationBuilder) WithCheck(check bool) *InvocationBuilder {
	if b.err != nil {
		return b
	}
	b.inv.Options.Check = check
	return b
}

// WithInput sets the data written to the child's stdin before it is closed.
func (b *InvocationBuilder) WithInput(input []byte) *InvocationBuilder {
	if b.err != nil {
		return b
	}
	b.inv.Options.Input = input
	b.inv.Options.HasInput = true
	return b
}

// WithTimeout sets the maximum time to wait for exit.
func (b *InvocationBuilder) WithTimeout(timeout time.Duration) *InvocationBuilder {
	if b.err != nil {
		return b
	}
	if timeout <= 0 {
		b.err = fmt.Errorf("%w: timeout must be positive", ErrInvalidInvocation)
		return b
	}
	b.inv.Options.Timeout = timeout
	return b
}

// WithTTY toggles pseudo-terminal allocation.
func (b *InvocationBuilder) WithTTY(tty bool) *InvocationBuilder {
	if b.err != nil {
		return b
	}
	b.inv.Options.TTY = tty
	return b
}

// WithInheritEnv toggles whether the child environment starts from the
// caller's environment.
func (b *InvocationBuilder) WithInheritEnv(inherit bool) *InvocationBuilder {
	if b.err != nil {
		return b
	}
	b.inv.Options.InheritEnv = inherit
	return b
}

// WithEnv adds one environment override.
func (b *InvocationBuilder) WithEnv(key, value string) *InvocationBuilder {
	if b.err != nil {
		return b
	}
	if b.inv.Options.Env == nil {
		b.inv.Options.Env = make(map[string]string)
	}
	b.inv.Options.Env[key] = value
	return b
}

// WithEnvMap adds multiple environment overrides.
func (b *InvocationBuilder) WithEnvMap(env map[string]string) *InvocationBuilder {
	if b.err != nil {
		return b
	}
	if b.inv.Options.Env == nil {
		b.inv.Options.Env = make(map[string]string, len(env))
	}
	for k, v := range env {
		b.inv.Options.Env[k] = v
	}
	return b
}

// WithDir sets the child's working directory.
func (b *InvocationBuilder) WithDir(dir string) *InvocationBuilder {
	if b.err != nil {
		return b
	}
	b.inv.Options.Dir = dir
	return b
}

// WithStrictDecode toggles strict UTF-8 validation of captured output.
func (b *InvocationBuilder) WithStrictDecode(strict bool) *InvocationBuilder {
	if b.err != nil {
		return b
	}
	b.inv.Options.StrictDecode = strict
	return b
}

// Build validates and returns the invocation.
func (b *InvocationBuilder) Build() (*Invocation, error) {
	if b.err != nil {
		return nil, b.err
	}
	if b.inv.Path == "" {
		return nil, fmt.Errorf("%w: command path is required", ErrInvalidInvocation)
	}
	return b.inv, nil
}

// MustBuild validates and returns the invocation, panicking on error.
func (b *InvocationBuilder) MustBuild() *Invocation {
	inv, err := b.Build()
	if err != nil {
		panic(err)
	}
	return inv
}

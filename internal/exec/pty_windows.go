//go:build windows

package exec

import (
	"context"
	osexec "os/exec"
)

// runTTY reports that pseudo-terminals are unavailable on Windows.
func (r *Runner) runTTY(_ context.Context, _ *RunConfig, _ *osexec.Cmd) (*RunResult, error) {
	return nil, ErrTTYUnsupported
}

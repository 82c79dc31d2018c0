//go:build unix

package exec

import (
	"bytes"
	"context"
	"io"
	"os"
	osexec "os/exec"
	"time"

	"github.com/creack/pty"
)

// runTTY executes the child on a freshly allocated pseudo-terminal. The
// slave end becomes the child's stdin, stdout, and stderr, so the child
// observes an interactive terminal. Everything the child writes to either
// stream arrives interleaved on the master and is reported as Stdout;
// Stderr stays empty in this mode.
func (r *Runner) runTTY(ctx context.Context, config *RunConfig, cmd *osexec.Cmd) (*RunResult, error) {
	start := time.Now()

	// pty.Start opens the pair, wires the slave to the child's standard
	// streams, applies Setsid/Setctty, and starts the process. The slave
	// is closed in the parent once the child holds it.
	ptmx, err := pty.Start(cmd)
	if err != nil {
		return nil, err
	}
	defer ptmx.Close()

	if config.HasInput {
		go func() {
			// Input reaches the child through the terminal line
			// discipline. The master stays open for output, so there is
			// no end-of-input signal; interactive children must decide
			// for themselves when to stop reading.
			_, _ = ptmx.Write(config.Input)
		}()
	}

	var buf bytes.Buffer
	var out io.Writer = &buf
	if config.Stdout != nil {
		out = config.Stdout
	} else if !config.Capture {
		out = os.Stdout
	}

	drained := make(chan struct{})
	go func() {
		defer close(drained)
		// Reading the master fails with EIO once the child exits and the
		// slave side is gone; any error means end of output.
		_, _ = io.Copy(out, ptmx)
	}()

	runErr := cmd.Wait()
	<-drained
	duration := time.Since(start)

	result := &RunResult{
		Duration: duration,
		Stdout:   buf.Bytes(),
	}
	return r.finish(ctx, cmd, result, runErr)
}

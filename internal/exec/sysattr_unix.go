//go:build unix

package exec

import (
	osexec "os/exec"
	"syscall"
)

// defaultSysProcAttr returns process attributes for Unix systems.
func defaultSysProcAttr() *syscall.SysProcAttr {
	return &syscall.SysProcAttr{
		// Create a new process group so cancellation can kill all children.
		Setpgid: true,
		Pgid:    0,
	}
}

// terminate sends SIGTERM to the child's process group. The child is the
// group (or session) leader, so the negative pid addresses the whole group.
func terminate(cmd *osexec.Cmd) error {
	if cmd.Process == nil {
		return nil
	}
	return syscall.Kill(-cmd.Process.Pid, syscall.SIGTERM)
}

// extractSignal extracts the signal from the process state if the process
// was signaled.
func extractSignal(state interface{}) (syscall.Signal, bool) {
	if ws, ok := state.(syscall.WaitStatus); ok {
		if ws.Signaled() {
			return ws.Signal(), true
		}
	}
	return 0, false
}

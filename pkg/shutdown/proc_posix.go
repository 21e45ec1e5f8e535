//go:build !windows

package shutdown

import (
	"os"
	"syscall"
)

// terminateProcess sends SIGTERM; the caller (Engine Adapter) already
// handles the escalation to SIGKILL for processes it owns directly, so
// this path is reserved for PIDs the shutdown manager must reap on its
// own (e.g. an owning worker that never got to call Stop).
func terminateProcess(p *os.Process) error {
	return p.Signal(syscall.SIGTERM)
}

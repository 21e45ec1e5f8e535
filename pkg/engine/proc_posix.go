//go:build !windows

package engine

import (
	"os/exec"
	"syscall"
)

// setProcAttrs places the child in its own process group so it can be
// signalled independently of the orchestrator process.
func setProcAttrs(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
}

// terminate sends SIGTERM to the child's process group.
func terminate(cmd *exec.Cmd) {
	if cmd.Process == nil {
		return
	}
	syscall.Kill(-cmd.Process.Pid, syscall.SIGTERM)
}

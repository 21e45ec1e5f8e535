//go:build windows

package shutdown

import "os"

// terminateProcess kills the process directly; Windows has no graceful
// signal equivalent available here.
func terminateProcess(p *os.Process) error {
	return p.Kill()
}

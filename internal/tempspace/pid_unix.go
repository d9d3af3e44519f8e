//go:build !windows

package tempspace

import (
	"os"
	"syscall"
)

// pidAlive probes liveness with signal 0, which delivers nothing but
// fails with ESRCH if the process is gone.
func pidAlive(pid int) bool {
	proc, err := os.FindProcess(pid)
	if err != nil {
		return false
	}
	return proc.Signal(syscall.Signal(0)) == nil
}

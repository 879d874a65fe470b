//go:build unix

// Package process terminates browser process trees.
package process

import "syscall"

// KillProcessGroup kills a process and all its children by sending SIGKILL
// to the process group (negative PID). Non-positive PIDs are ignored.
func KillProcessGroup(pid int) {
	if pid <= 0 {
		return
	}
	// Best-effort: the driver's own shutdown already ran, this only reaps
	// renderer children that outlived it.
	_ = syscall.Kill(-pid, syscall.SIGKILL)
}

//go:build windows

package process

import "os/exec"

// NewGroup is a no-op on Windows; taskkill /T walks the tree by parent PID.
func NewGroup(cmd *exec.Cmd) {}

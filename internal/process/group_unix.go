//go:build unix && !linux

package process

import (
	"os/exec"
	"syscall"
)

// NewGroup makes cmd the leader of a new process group so KillProcessGroup
// reaches its children.
func NewGroup(cmd *exec.Cmd) {
	if cmd.SysProcAttr == nil {
		cmd.SysProcAttr = new(syscall.SysProcAttr)
	}
	cmd.SysProcAttr.Setpgid = true
}

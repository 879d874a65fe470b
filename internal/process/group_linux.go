//go:build linux

package process

import (
	"os/exec"
	"syscall"
)

// NewGroup makes cmd the leader of a new process group so KillProcessGroup
// reaches its children. The child is also killed if this process dies.
func NewGroup(cmd *exec.Cmd) {
	if cmd.SysProcAttr == nil {
		cmd.SysProcAttr = new(syscall.SysProcAttr)
	}
	cmd.SysProcAttr.Setpgid = true
	cmd.SysProcAttr.Pdeathsig = syscall.SIGKILL
}

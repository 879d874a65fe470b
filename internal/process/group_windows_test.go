//go:build windows

package process

import (
	"os/exec"
	"testing"
)

func checkGroupAttrs(t *testing.T, cmd *exec.Cmd) {}

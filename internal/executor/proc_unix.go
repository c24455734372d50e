//go:build unix

package executor

import (
	"os/exec"
	"syscall"

	"golang.org/x/sys/unix"
)

func setProcessGroup(c *exec.Cmd) {
	c.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
}

// killProcessGroup sends SIGKILL to every process in the child's group.
func killProcessGroup(c *exec.Cmd) error {
	return unix.Kill(-c.Process.Pid, unix.SIGKILL)
}

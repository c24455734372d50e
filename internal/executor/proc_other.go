//go:build !unix

package executor

import "os/exec"

func setProcessGroup(c *exec.Cmd) {}

func killProcessGroup(c *exec.Cmd) error {
	return c.Process.Kill()
}

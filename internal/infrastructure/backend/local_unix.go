//go:build unix

package backend

import (
	"os/exec"
	"syscall"
)

// configureProcessGroup puts the shell in its own group so a timeout kills
// every child it spawned, not just the shell.
func configureProcessGroup(c *exec.Cmd) {
	c.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	c.Cancel = func() error {
		if c.Process == nil {
			return nil
		}
		return syscall.Kill(-c.Process.Pid, syscall.SIGKILL)
	}
}

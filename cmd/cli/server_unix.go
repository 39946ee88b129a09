//go:build !windows

package main

import (
	"os/exec"
	"syscall"
)

// setSysProcAttr puts the history server in its own process group so it
// outlives the CLI and ignores the terminal's SIGINT
func setSysProcAttr(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
}

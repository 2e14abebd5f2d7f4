//go:build !windows

package procsup

import (
	"os"
	"os/exec"
	"syscall"
)

// Each worker gets its own process group so a terminal Ctrl-C only reaches the
// supervisor, which then stops workers in order.
func configureSysProcAttr(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
}

var terminateSignal os.Signal = syscall.SIGTERM

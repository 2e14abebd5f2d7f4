//go:build windows

package procsup

import (
	"os"
	"os/exec"
)

func configureSysProcAttr(cmd *exec.Cmd) {}

// Windows has no SIGTERM; unpaired workers are killed.
var terminateSignal os.Signal = os.Kill

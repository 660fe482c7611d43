// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package procgroup

import (
	"errors"
	"os"
	"os/exec"
	"syscall"

	"github.com/ManuGH/hlsladder/internal/metrics"
)

// Signal delivers sig to the process group of cmd and records the outcome.
// A group that already exited is not an error.
func Signal(cmd *exec.Cmd, sig syscall.Signal) error {
	name := signalName(sig)
	err := Kill(cmd, sig)
	switch {
	case cmd == nil || cmd.Process == nil:
		return nil
	case err == nil:
		metrics.IncProcTerminate(name, "sent")
		return nil
	case errors.Is(err, os.ErrProcessDone):
		metrics.IncProcTerminate(name, "esrch")
		return nil
	default:
		metrics.IncProcTerminate(name, "error")
		return err
	}
}

func signalName(sig syscall.Signal) string {
	switch sig {
	case syscall.SIGTERM:
		return "SIGTERM"
	case syscall.SIGKILL:
		return "SIGKILL"
	default:
		return sig.String()
	}
}

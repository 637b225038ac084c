//go:build windows

package gdb

import "os/exec"

// killProcessGroup kills the process. Windows has no process groups in the
// Unix sense; killing the direct child is the best available behavior.
func killProcessGroup(pid int, cmd *exec.Cmd) error {
	if cmd != nil && cmd.Process != nil {
		if err := cmd.Process.Kill(); err != nil {
			if err.Error() != "os: process already finished" {
				return err
			}
		}
	}
	return nil
}

// signalTerm is a no-op on Windows; Terminate falls through to Kill after
// the grace period.
func signalTerm(cmd *exec.Cmd) {}

// setProcAttr sets platform-specific process attributes (none on Windows).
func setProcAttr(cmd *exec.Cmd) {}

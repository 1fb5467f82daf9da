//go:build unix

package launch

import (
	"errors"
	"os/exec"
	"syscall"

	"github.com/giantswarm/subproc/internal/core"
)

// signalExitBase is added to the terminating signal number to derive an
// exit code for signal deaths, matching the shell convention (SIGKILL → 137).
const signalExitBase = 128

// exitStatus derives an exit code from a cmd.Wait error. A nil error is a
// clean zero exit. An exec.ExitError carries the real wait status: normal
// exits report their code, signal deaths report 128+signal. Any other error
// means waiting itself failed and no exit code exists.
func exitStatus(err error) (int, error) {
	if err == nil {
		return 0, nil
	}
	var exitErr *exec.ExitError
	if !errors.As(err, &exitErr) {
		return core.InvalidExitCode, err
	}
	if status, ok := exitErr.Sys().(syscall.WaitStatus); ok && status.Signaled() {
		return signalExitBase + int(status.Signal()), nil
	}
	return exitErr.ExitCode(), nil
}

//go:build !unix

package launch

import (
	"errors"
	"os/exec"

	"github.com/giantswarm/subproc/internal/core"
)

// exitStatus derives an exit code from a cmd.Wait error. Without POSIX wait
// status there is no signal-death distinction; the ExitError's own code is
// used directly.
func exitStatus(err error) (int, error) {
	if err == nil {
		return 0, nil
	}
	var exitErr *exec.ExitError
	if !errors.As(err, &exitErr) {
		return core.InvalidExitCode, err
	}
	return exitErr.ExitCode(), nil
}

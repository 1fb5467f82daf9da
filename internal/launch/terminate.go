package launch

import (
	"fmt"
	"syscall"
	"time"

	"github.com/giantswarm/subproc/internal/sentinel"
)

// ErrExitTimeout is returned when a terminated process fails to exit within
// the drain window. SIGKILL cannot be caught, so hitting this indicates the
// wait itself is stuck (for example on kernel-level I/O).
const ErrExitTimeout = sentinel.Error("timed out waiting for process to exit")

// killDrainTimeout is the hard upper bound for waiting on process exit after
// SIGKILL has been delivered (or after the process was found already exited).
// Under normal conditions the wait goroutine finishes almost immediately, so
// this is a safety net against indefinite blocking, not a tunable.
const killDrainTimeout = 10 * time.Second

// Terminate performs a graceful-then-forced shutdown of the process.
//
// With a positive grace it sends SIGTERM, schedules SIGKILL after grace
// (canceled if the process exits first), and waits for the exit to be
// collected. With a zero grace it kills immediately. Already-exited
// processes return nil at once, so concurrent observers (watchdog,
// destroyer, executor) can all call Terminate without coordination.
func (p *Process) Terminate(grace time.Duration) error {
	select {
	case <-p.exited:
		return nil
	default:
	}

	if grace <= 0 {
		if err := p.Kill(); err != nil {
			return err
		}
		return p.awaitExit(killDrainTimeout)
	}

	if err := p.Signal(syscall.SIGTERM); err != nil {
		// Unsignalable but not yet reaped; escalate straight to kill.
		if killErr := p.Kill(); killErr != nil {
			return fmt.Errorf("terminate pid %d: %w", p.Pid(), killErr)
		}
		return p.awaitExit(killDrainTimeout)
	}

	// Schedule SIGKILL after the grace period. If the process exits first,
	// the timer is stopped; a late Kill on a finished process is harmless
	// because Kill checks the exited channel.
	killTimer := time.AfterFunc(grace, func() {
		_ = p.Kill()
	})
	defer killTimer.Stop()

	return p.awaitExit(grace + killDrainTimeout)
}

// awaitExit waits for the process exit to be collected, bounded by timeout.
func (p *Process) awaitExit(timeout time.Duration) error {
	t := time.NewTimer(timeout)
	defer t.Stop()

	select {
	case <-p.exited:
		return nil
	case <-t.C:
		return fmt.Errorf("pid %d: %w", p.Pid(), ErrExitTimeout)
	}
}

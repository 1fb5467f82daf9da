package subproc

import (
	"time"

	"github.com/giantswarm/subproc/internal/watchdog"
)

// TimeoutWatchdog kills a process after a fixed timeout. The clock starts
// when the executor arms it and is not restarted. One watchdog observes one
// process at a time; an executor reusing it across sequential executions is
// fine, sharing it across concurrent executions is not.
type TimeoutWatchdog struct {
	inner *watchdog.Watchdog
}

var _ Watchdog = (*TimeoutWatchdog)(nil)

// NewTimeoutWatchdog returns a watchdog that terminates its process after
// timeout, escalating from a polite termination signal to a forced kill
// after DefaultKillGrace.
//
// Panics if timeout <= 0.
func NewTimeoutWatchdog(timeout time.Duration) *TimeoutWatchdog {
	requirePositive("watchdog timeout", timeout)
	return &TimeoutWatchdog{inner: watchdog.New(timeout, DefaultKillGrace)}
}

func (w *TimeoutWatchdog) Reset() { w.inner.Reset() }

func (w *TimeoutWatchdog) Start(p Proc) error { return w.inner.Start(p) }

func (w *TimeoutWatchdog) Stop() { w.inner.Stop() }

// Err returns a fault recorded by the watchdog's kill path. A successful
// timeout kill is not a fault.
func (w *TimeoutWatchdog) Err() error { return w.inner.Err() }

// Killed reports whether the watchdog fired and terminated its process.
func (w *TimeoutWatchdog) Killed() bool { return w.inner.Killed() }

// Started reports whether a process has been observed since the last
// Reset. The executor resets the watchdog at the start of each
// asynchronous execution, so after ExecuteAsync returns this reports
// whether the launch attempt reached the watchdog.
func (w *TimeoutWatchdog) Started() bool { return w.inner.Started() }

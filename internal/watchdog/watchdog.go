// Package watchdog bounds the lifetime of a supervised process: once armed,
// it terminates the process after a configured timeout and keeps a record of
// whether it fired and whether a process was ever observed.
package watchdog

import (
	"fmt"
	"sync"
	"time"

	"github.com/giantswarm/subproc/internal/core"
	"github.com/giantswarm/subproc/internal/sentinel"
)

// ErrAlreadyWatching is returned by Start when the watchdog is already
// armed for a process. A watchdog observes one process at a time; Stop or
// Reset it before reuse.
const ErrAlreadyWatching = sentinel.Error("watchdog is already watching a process")

// Proc is the subset of a process handle the watchdog needs: identity and
// graceful-then-forced termination.
type Proc interface {
	Pid() int
	Terminate(grace time.Duration) error
}

// Watchdog kills a process after a fixed timeout. The timeout clock starts
// at Start and is not restarted; Stop disarms it idempotently. All methods
// are safe for concurrent use: the timer callback runs on the timer's
// goroutine while the executor calls Stop from its own.
type Watchdog struct {
	timeout time.Duration
	grace   time.Duration

	mu      sync.Mutex
	proc    Proc
	timer   *time.Timer
	killed  bool
	started bool
	err     error
}

// New returns a watchdog that terminates its process after timeout, giving
// it grace between the polite and forced kill (zero grace kills outright).
func New(timeout, grace time.Duration) *Watchdog {
	return &Watchdog{timeout: timeout, grace: grace}
}

// Reset clears all state from a previous run, including the record of
// whether a process was ever started. Called by the executor before an
// asynchronous execution so the caller can poll Started meaningfully.
func (w *Watchdog) Reset() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.disarmLocked()
	w.started = false
	w.killed = false
	w.err = nil
}

// Start arms the watchdog for p. Returns ErrAlreadyWatching if a previous
// process is still being observed.
func (w *Watchdog) Start(p Proc) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.proc != nil {
		return ErrAlreadyWatching
	}
	w.proc = p
	w.started = true
	w.killed = false
	w.err = nil
	w.timer = time.AfterFunc(w.timeout, w.fire)
	return nil
}

// Stop disarms the timer and forgets the process. Idempotent; safe to call
// whether or not the timer already fired.
func (w *Watchdog) Stop() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.disarmLocked()
}

// disarmLocked stops the timer and drops the process reference.
// Callers must hold mu.
func (w *Watchdog) disarmLocked() {
	if w.timer != nil {
		w.timer.Stop()
		w.timer = nil
	}
	w.proc = nil
}

// fire is the timer callback: it terminates the observed process, recording
// the fact and any termination fault. A concurrent Stop may have disarmed
// the watchdog already, in which case nothing happens.
func (w *Watchdog) fire() {
	w.mu.Lock()
	p := w.proc
	if p == nil {
		w.mu.Unlock()
		return
	}
	w.killed = true
	w.proc = nil
	w.mu.Unlock()

	// Terminate outside the lock: it blocks until the process exit is
	// collected, and Stop must not be held up behind it.
	if err := p.Terminate(w.grace); err != nil {
		core.Logger().Warn("watchdog failed to terminate process",
			"pid", p.Pid(), "error", err)
		w.mu.Lock()
		w.err = fmt.Errorf("terminate pid %d after timeout: %w", p.Pid(), err)
		w.mu.Unlock()
	}
}

// Err returns the fault recorded by the kill path, if any. A normal timeout
// kill is not a fault; only a termination that itself failed is.
func (w *Watchdog) Err() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.err
}

// Killed reports whether the watchdog fired and terminated its process.
func (w *Watchdog) Killed() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.killed
}

// Started reports whether a process has been observed since the last Reset.
func (w *Watchdog) Started() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.started
}

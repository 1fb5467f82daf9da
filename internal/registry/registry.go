package registry

import (
	"context"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/giantswarm/subproc/internal/core"
	"github.com/giantswarm/subproc/internal/sentinel"
)

// ErrClosed is returned by KillAll after Close has been called.
const ErrClosed = sentinel.Error("destroyer is closed")

// Proc is the subset of a process handle the destroyer needs.
type Proc interface {
	Pid() int
	Path() string
	Kill() error
}

// Config configures a Destroyer.
type Config struct {
	// Signals to intercept for the shutdown hook. Empty disables the hook
	// entirely; processes are then only killed by an explicit KillAll.
	Signals []os.Signal

	// LedgerDir, when non-empty, enables the on-disk ledger in that
	// directory. Tracked pids are recorded on Add and erased on Remove,
	// so Reap can find orphans of a crashed supervisor.
	LedgerDir string
}

// Destroyer tracks live child processes and kills them all on demand or on
// receipt of a shutdown signal. Set semantics: a process is tracked at most
// once, keyed by pid. Safe for concurrent use.
//
// The signal hook is armed when the first process is added and disarmed
// when the set drains, so an idle destroyer does not intercept signals.
type Destroyer struct {
	signals   []os.Signal
	ledgerDir string

	mu     sync.Mutex
	procs  map[int]Proc
	ledger *Ledger
	sigCh  chan os.Signal
	closed bool
}

// New creates a Destroyer. The ledger, if configured, is opened lazily on
// the first Add so that constructing a destroyer never touches disk.
func New(cfg Config) *Destroyer {
	return &Destroyer{
		signals:   cfg.Signals,
		ledgerDir: cfg.LedgerDir,
		procs:     make(map[int]Proc),
	}
}

// Add starts tracking p. It reports whether the set changed; re-adding a
// tracked pid or adding to a closed destroyer reports false. The first
// addition arms the signal hook and opens the ledger.
func (d *Destroyer) Add(p Proc) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return false
	}
	if _, ok := d.procs[p.Pid()]; ok {
		return false
	}

	if len(d.procs) == 0 {
		d.armLocked()
	}
	d.procs[p.Pid()] = p

	if d.ledgerDir != "" {
		d.recordLocked(p)
	}
	return true
}

// Remove stops tracking p. It reports whether p was tracked. Draining the
// set disarms the signal hook.
func (d *Destroyer) Remove(p Proc) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.procs[p.Pid()]; !ok {
		return false
	}
	delete(d.procs, p.Pid())

	if d.ledger != nil {
		d.forgetLocked(p.Pid())
	}
	if len(d.procs) == 0 {
		d.disarmLocked()
	}
	return true
}

// Size returns the number of tracked processes.
func (d *Destroyer) Size() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.procs)
}

// KillAll kills every tracked process in parallel and removes it from the
// set and the ledger. The first kill error is returned after all kills have
// been attempted. Calling KillAll on a closed destroyer returns ErrClosed.
func (d *Destroyer) KillAll(ctx context.Context) error {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return ErrClosed
	}
	procs := make([]Proc, 0, len(d.procs))
	for _, p := range d.procs {
		procs = append(procs, p)
	}
	d.mu.Unlock()

	g, _ := errgroup.WithContext(ctx)
	for _, p := range procs {
		p := p
		g.Go(func() error {
			err := p.Kill()
			if err != nil {
				core.Logger().Warn("destroyer failed to kill process",
					"pid", p.Pid(), "path", p.Path(), "error", err)
			}
			d.Remove(p)
			return err
		})
	}
	return g.Wait()
}

// Close disarms the signal hook, closes the ledger, and rejects further
// Adds. Tracked processes are left running; callers that want them gone
// call KillAll first.
func (d *Destroyer) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return nil
	}
	d.closed = true
	d.disarmLocked()

	if d.ledger != nil {
		err := d.ledger.Close()
		d.ledger = nil
		return err
	}
	return nil
}

// armLocked installs the signal hook. Callers must hold mu.
func (d *Destroyer) armLocked() {
	if len(d.signals) == 0 || d.sigCh != nil {
		return
	}
	ch := make(chan os.Signal, 1)
	signal.Notify(ch, d.signals...)
	d.sigCh = ch

	go func() {
		sig, ok := <-ch
		if !ok {
			return
		}
		core.Logger().Warn("shutdown signal received; killing tracked processes",
			"signal", sig.String())

		ctx, cancel := context.WithTimeout(context.Background(), killAllTimeout)
		defer cancel()
		_ = d.KillAll(ctx)

		// Restore the default disposition and re-deliver so the program
		// still terminates the way the signal intended.
		signal.Stop(ch)
		if self, err := os.FindProcess(os.Getpid()); err == nil {
			_ = self.Signal(sig)
		}
	}()
}

// disarmLocked removes the signal hook. Callers must hold mu.
func (d *Destroyer) disarmLocked() {
	if d.sigCh == nil {
		return
	}
	signal.Stop(d.sigCh)
	close(d.sigCh)
	d.sigCh = nil
}

// killAllTimeout bounds the signal hook's KillAll so a stuck kill cannot
// swallow the shutdown signal indefinitely.
const killAllTimeout = 30 * time.Second

// recordLocked opens the ledger if needed and records p. Ledger failures
// are logged, not propagated: the in-memory destroyer keeps working and
// crash-reaping degrades to best effort. Callers must hold mu.
func (d *Destroyer) recordLocked(p Proc) {
	if d.ledger == nil {
		l, err := OpenLedger(context.Background(), d.ledgerDir)
		if err != nil {
			core.Logger().Warn("open process ledger", "dir", d.ledgerDir, "error", err)
			d.ledgerDir = "" // do not retry every Add
			return
		}
		d.ledger = l
	}
	if err := d.ledger.Record(context.Background(), p.Pid(), p.Path(), time.Now()); err != nil {
		core.Logger().Warn("record process in ledger", "pid", p.Pid(), "error", err)
	}
}

// forgetLocked erases pid from the ledger. Callers must hold mu.
func (d *Destroyer) forgetLocked(pid int) {
	if err := d.ledger.Forget(context.Background(), pid); err != nil {
		core.Logger().Warn("forget process in ledger", "pid", pid, "error", err)
	}
}

// DefaultSignals are the shutdown signals intercepted by destroyers that
// enable the hook without naming their own set.
var DefaultSignals = []os.Signal{os.Interrupt, syscall.SIGTERM}

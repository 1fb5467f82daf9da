package subproc

import (
	"context"
	"os"

	"github.com/giantswarm/subproc/internal/registry"
)

// destroyerConfig holds configuration for a ShutdownDestroyer.
type destroyerConfig struct {
	signals   []os.Signal
	ledgerDir string
}

// DestroyerOption configures a ShutdownDestroyer during construction.
type DestroyerOption func(*destroyerConfig)

// WithDestroyerSignals sets the shutdown signals the destroyer intercepts
// while it tracks at least one process. Pass none to disable the signal
// hook entirely; processes are then only killed by an explicit KillAll.
//
// Default: interrupt and SIGTERM.
func WithDestroyerSignals(signals ...os.Signal) DestroyerOption {
	return func(c *destroyerConfig) {
		c.signals = signals
	}
}

// WithLedgerDir enables the on-disk process ledger in dir. Tracked pids are
// recorded on Add and erased on Remove, so ReapOrphans can find and kill
// processes left behind by a supervisor that died without running its
// shutdown hook.
//
// Panics if dir is empty.
func WithLedgerDir(dir string) DestroyerOption {
	requireNonEmpty("ledger directory", dir)
	return func(c *destroyerConfig) {
		c.ledgerDir = dir
	}
}

// ShutdownDestroyer tracks in-flight processes and kills them all when the
// supervising program receives a shutdown signal. The signal hook is armed
// when the first process is added and disarmed when the set drains, so an
// idle destroyer does not intercept signals. After killing its processes it
// re-delivers the signal so the program still terminates as the signal
// intended.
//
// Safe for concurrent use across executors; one process-wide destroyer
// shared by every executor is the intended setup.
type ShutdownDestroyer struct {
	inner *registry.Destroyer
}

var _ Destroyer = (*ShutdownDestroyer)(nil)

// NewShutdownDestroyer creates a destroyer. Without options it intercepts
// interrupt and SIGTERM and keeps no on-disk ledger.
func NewShutdownDestroyer(opts ...DestroyerOption) *ShutdownDestroyer {
	cfg := destroyerConfig{signals: registry.DefaultSignals}
	for _, opt := range opts {
		opt(&cfg)
	}
	return &ShutdownDestroyer{inner: registry.New(registry.Config{
		Signals:   cfg.signals,
		LedgerDir: cfg.ledgerDir,
	})}
}

// Add starts tracking p. It reports whether the set changed; re-adding a
// tracked process or adding to a closed destroyer reports false.
func (d *ShutdownDestroyer) Add(p Proc) bool { return d.inner.Add(p) }

// Remove stops tracking p and reports whether it was tracked.
func (d *ShutdownDestroyer) Remove(p Proc) bool { return d.inner.Remove(p) }

// Size returns the number of tracked processes.
func (d *ShutdownDestroyer) Size() int { return d.inner.Size() }

// KillAll kills every tracked process in parallel and removes it from the
// set. The first kill error is returned after all kills were attempted.
// KillAll on a closed destroyer returns ErrDestroyerClosed.
func (d *ShutdownDestroyer) KillAll(ctx context.Context) error {
	return d.inner.KillAll(ctx)
}

// Close disarms the signal hook, closes the ledger, and rejects further
// Adds. Tracked processes are left running; call KillAll first to stop
// them.
func (d *ShutdownDestroyer) Close() error { return d.inner.Close() }

// ReapOrphans kills processes recorded in the ledger at dir by a previous
// run whose destroyer never got to clean up, and erases their ledger rows.
// It returns the number of processes killed. Call it once at program start,
// before creating the destroyer that writes to the same ledger.
func ReapOrphans(ctx context.Context, dir string) (int, error) {
	return registry.Reap(ctx, dir)
}

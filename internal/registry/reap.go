package registry

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"
	"k8s.io/apimachinery/pkg/util/wait"

	"github.com/giantswarm/subproc/internal/core"
)

// reapLockRetryInterval is the interval between attempts to acquire the
// ledger lock. 50ms balances responsiveness against busy-polling overhead.
const reapLockRetryInterval = 50 * time.Millisecond

// reapPollInterval is how often Reap re-checks whether a killed orphan has
// actually disappeared.
const reapPollInterval = 25 * time.Millisecond

// reapKillTimeout bounds the wait for a single killed orphan to vanish.
// SIGKILL cannot be caught, so this only trips on pathological kernel
// states; the row is then kept for the next reap cycle.
const reapKillTimeout = 10 * time.Second

// Reap kills processes recorded in the ledger at dir by a previous
// supervisor run and erases their rows. It returns the number of processes
// actually killed.
//
// The whole cycle runs under an exclusive file lock so concurrent reapers
// (or a supervisor starting up while another reaps) serialize. Rows whose
// pid is no longer alive, or whose pid now belongs to a different program
// (pid reuse), are erased without killing anything.
func Reap(ctx context.Context, dir string) (int, error) {
	fl := flock.New(filepath.Join(dir, ledgerLockName))
	locked, err := fl.TryLockContext(ctx, reapLockRetryInterval)
	if err != nil {
		return 0, fmt.Errorf("acquire ledger lock: %w", err)
	}
	if !locked {
		return 0, fmt.Errorf("acquire ledger lock: not acquired")
	}
	// The lock file is intentionally left on disk: removing it could
	// invalidate a lock concurrently acquired by another process.
	defer func() {
		if err := fl.Close(); err != nil {
			core.Logger().Debug("release ledger lock", "path", fl.Path(), "error", err)
		}
	}()

	ledger, err := OpenLedger(ctx, dir)
	if err != nil {
		return 0, err
	}
	defer func() {
		if err := ledger.Close(); err != nil {
			core.Logger().Debug("close ledger after reap", "error", err)
		}
	}()

	entries, err := ledger.Entries(ctx)
	if err != nil {
		return 0, err
	}

	log := core.Logger()
	killed := 0
	self := os.Getpid()
	for _, e := range entries {
		if e.Pid == self {
			// A ledger shared across runs can contain our own pid if a
			// previous run reused it; never kill ourselves.
			continue
		}
		if !pidAlive(e.Pid) || !pidMatches(e.Pid, e.Path) {
			if err := ledger.Forget(ctx, e.Pid); err != nil {
				log.Warn("erase stale ledger row", "pid", e.Pid, "error", err)
			}
			continue
		}

		log.Warn("killing orphaned process from previous run",
			"pid", e.Pid, "path", e.Path, "started_at", e.StartedAt)
		if err := killPid(e.Pid); err != nil {
			log.Warn("kill orphan", "pid", e.Pid, "error", err)
			continue // keep the row; a later reap can retry
		}
		if err := waitPidGone(ctx, e.Pid); err != nil {
			log.Warn("orphan did not exit after kill", "pid", e.Pid, "error", err)
			continue
		}
		killed++
		if err := ledger.Forget(ctx, e.Pid); err != nil {
			log.Warn("erase reaped ledger row", "pid", e.Pid, "error", err)
		}
	}
	return killed, nil
}

// waitPidGone polls until pid no longer exists.
func waitPidGone(ctx context.Context, pid int) error {
	return wait.PollUntilContextTimeout(ctx, reapPollInterval, reapKillTimeout, true,
		func(context.Context) (bool, error) {
			return !pidAlive(pid), nil
		})
}

package registry

import (
	"context"
	"database/sql"
	"fmt"
	"path/filepath"
	"time"

	// Register the pure-Go SQLite driver (no CGO required).
	_ "modernc.org/sqlite"

	"github.com/giantswarm/subproc/internal/fileutil"
)

// Ledger file names inside the ledger directory. The lock file guards the
// reap cycle; routine Record/Forget writes rely on SQLite's own locking
// (busy_timeout) so concurrent supervisors sharing a ledger do not block
// each other on every launch.
const (
	ledgerDBName   = "subproc-ledger.db"
	ledgerLockName = "subproc-ledger.lock"
)

// Entry is one tracked process as stored in the ledger.
type Entry struct {
	Pid       int
	Path      string
	StartedAt time.Time
}

// Ledger is the on-disk record of processes a destroyer is tracking.
// One row per pid; rows are inserted on Add and deleted on Remove, so any
// row that survives a supervisor belongs to a crashed run.
type Ledger struct {
	db  *sql.DB
	dir string
}

// OpenLedger opens (creating if necessary) the ledger database in dir.
func OpenLedger(ctx context.Context, dir string) (*Ledger, error) {
	if err := fileutil.EnsureDir(dir); err != nil {
		return nil, err
	}

	path := filepath.Join(dir, ledgerDBName)
	// WAL with a generous busy timeout so several supervisors can share
	// one ledger; durability needs are modest (losing a row merely skips
	// one orphan) so relaxed synchronous mode is fine.
	dsn := fmt.Sprintf(
		"file:%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(30000)&_pragma=synchronous(NORMAL)",
		path,
	)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open ledger %s: %w", path, err)
	}
	// Single connection: the ledger sees a handful of statements per
	// process lifetime, a pool buys nothing.
	db.SetMaxOpenConns(1)

	const schema = `
		CREATE TABLE IF NOT EXISTS procs (
			pid        INTEGER PRIMARY KEY,
			path       TEXT    NOT NULL,
			started_at INTEGER NOT NULL
		)
	`
	if _, err := db.ExecContext(ctx, schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create ledger schema: %w", err)
	}

	return &Ledger{db: db, dir: dir}, nil
}

// Record inserts or refreshes the row for pid. A pid may be reused by the
// OS between supervisor runs, so an existing row is overwritten rather
// than treated as a conflict.
func (l *Ledger) Record(ctx context.Context, pid int, path string, startedAt time.Time) error {
	const stmt = `
		INSERT INTO procs (pid, path, started_at) VALUES (?, ?, ?)
		ON CONFLICT(pid) DO UPDATE SET path = excluded.path, started_at = excluded.started_at
	`
	if _, err := l.db.ExecContext(ctx, stmt, pid, path, startedAt.Unix()); err != nil {
		return fmt.Errorf("record pid %d: %w", pid, err)
	}
	return nil
}

// Forget deletes the row for pid. Deleting an absent row is a no-op.
func (l *Ledger) Forget(ctx context.Context, pid int) error {
	if _, err := l.db.ExecContext(ctx, `DELETE FROM procs WHERE pid = ?`, pid); err != nil {
		return fmt.Errorf("forget pid %d: %w", pid, err)
	}
	return nil
}

// Entries returns every recorded process.
func (l *Ledger) Entries(ctx context.Context) ([]Entry, error) {
	rows, err := l.db.QueryContext(ctx, `SELECT pid, path, started_at FROM procs`)
	if err != nil {
		return nil, fmt.Errorf("query ledger: %w", err)
	}
	defer rows.Close() //nolint:errcheck // rows.Err() below catches read errors

	var entries []Entry
	for rows.Next() {
		var e Entry
		var startedAt int64
		if err := rows.Scan(&e.Pid, &e.Path, &startedAt); err != nil {
			return nil, fmt.Errorf("scan ledger row: %w", err)
		}
		e.StartedAt = time.Unix(startedAt, 0)
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate ledger rows: %w", err)
	}
	return entries, nil
}

// Close closes the database handle.
func (l *Ledger) Close() error {
	if err := l.db.Close(); err != nil {
		return fmt.Errorf("close ledger: %w", err)
	}
	return nil
}

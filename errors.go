package subproc

import (
	"fmt"

	"github.com/giantswarm/subproc/internal/core"
	"github.com/giantswarm/subproc/internal/launch"
	"github.com/giantswarm/subproc/internal/pump"
	"github.com/giantswarm/subproc/internal/registry"
	"github.com/giantswarm/subproc/internal/sentinel"
	"github.com/giantswarm/subproc/internal/watchdog"
)

// InvalidExitCode is the sentinel exit code carried by results that do not
// correspond to a real process exit: launch failures, stream faults, and
// asynchronous failures of an unrecognized kind.
const InvalidExitCode = core.InvalidExitCode

// Sentinel errors for error inspection with errors.Is.
// These are immutable constants safe for use in wrapped error chain comparison.
const (
	// ErrNilCommand is returned by Execute and ExecuteAsync when the
	// command is nil.
	ErrNilCommand = sentinel.Error("command must not be nil")

	// ErrEmptyCommand is returned when the command has no tokens.
	ErrEmptyCommand = launch.ErrNoTokens

	// ErrWorkingDirectory is returned when the configured working
	// directory does not exist at call time. No process is created.
	ErrWorkingDirectory = sentinel.Error("working directory does not exist")

	// ErrNilResultHandler is returned by ExecuteAsync when no result
	// handler is supplied.
	ErrNilResultHandler = sentinel.Error("result handler must not be nil")

	// ErrAlreadyWatching is returned when a watchdog is started for a
	// process while still observing another.
	ErrAlreadyWatching = watchdog.ErrAlreadyWatching

	// ErrStreamDrainTimeout is reported when the stream pumps do not
	// drain within their timeout after process exit.
	ErrStreamDrainTimeout = pump.ErrDrainTimeout

	// ErrDestroyerClosed is returned by KillAll on a closed
	// ShutdownDestroyer.
	ErrDestroyerClosed = registry.ErrClosed

	// ErrExitTimeout is reported when a killed process does not get
	// reaped within the kill drain window.
	ErrExitTimeout = launch.ErrExitTimeout
)

// ExitError reports that an execution completed abnormally. For exit-code
// policy failures Code is the real exit code and Err is nil. For failures
// that never produced a usable exit code, Code is InvalidExitCode and Err
// carries the cause.
type ExitError struct {
	Code int
	Err  error
}

func (e *ExitError) Error() string {
	if e.Code == InvalidExitCode {
		if e.Err != nil {
			return fmt.Sprintf("process failed: %v", e.Err)
		}
		return "process failed"
	}
	if e.Err != nil {
		return fmt.Sprintf("process exited with code %d: %v", e.Code, e.Err)
	}
	return fmt.Sprintf("process exited with code %d", e.Code)
}

func (e *ExitError) Unwrap() error { return e.Err }

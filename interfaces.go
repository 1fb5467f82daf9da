package subproc

import (
	"context"
	"io"
	"os"
	"time"
)

// Executor runs external commands, supervising each execution from launch
// through stream teardown and exit-code evaluation. Implementations
// guarantee that every call produces exactly one outcome and that process
// descriptors, pump goroutines, and destroyer registrations are released on
// every exit path.
//
// An Executor may be reused for sequential executions. The setters
// reconfigure collaborators between calls; changing configuration while an
// execution is in flight affects only later calls.
type Executor interface {
	// Execute runs cmd and blocks until it terminates, returning its exit
	// code. A non-nil error reports, in order of precedence: setup and
	// launch failures, stream or descriptor faults, a watchdog kill fault,
	// or an exit code the policy classifies as failure (an *ExitError
	// carrying the code).
	//
	// Cancelling ctx while waiting kills the process; evaluation then
	// continues on the exit code the kill produced. ctx.Err() itself is
	// never returned from the wait.
	Execute(ctx context.Context, cmd *Command) (int, error)

	// ExecuteAsync starts cmd and returns once the launch attempt has
	// resolved, not once the process finishes. The execution continues on
	// a background goroutine; exactly one of the handler's callbacks fires
	// when it completes, on that goroutine.
	//
	// Setup errors (nil command, missing working directory) are returned
	// directly and the handler is never invoked.
	ExecuteAsync(ctx context.Context, cmd *Command, handler ResultHandler) error

	// IsFailure classifies an exit code against the configured exit-value
	// policy. See SetExitValues for the policy forms.
	IsFailure(exitCode int) bool

	StreamHandler() StreamHandler
	SetStreamHandler(h StreamHandler)

	Watchdog() Watchdog
	SetWatchdog(w Watchdog)

	Destroyer() Destroyer
	SetDestroyer(d Destroyer)

	WorkingDirectory() string
	SetWorkingDirectory(dir string)

	// ExitValues returns the exit-value policy: nil when every exit code
	// is accepted, an empty slice when the launcher's platform convention
	// decides, and otherwise the set of accepted codes.
	ExitValues() []int

	// SetExitValues replaces the exit-value policy. Pass nil to accept
	// every exit code, an empty slice to defer to the launcher's platform
	// convention, or the explicit set of accepted codes.
	SetExitValues(values []int)

	// SetExitValue accepts exactly one exit code.
	SetExitValue(value int)
}

// Proc is a live child process handle. The executor owns it for the
// duration of one execution; the watchdog and destroyer hold references
// while the process runs. Kill and Terminate are idempotent and safe to
// call concurrently from all three.
type Proc interface {
	Pid() int
	Path() string

	// Stdin is the write end of the child's standard input; Stdout and
	// Stderr are the read ends of its output streams. The executor closes
	// all three after the process exits.
	Stdin() io.WriteCloser
	Stdout() io.ReadCloser
	Stderr() io.ReadCloser

	// Exited is closed once the process has been reaped.
	Exited() <-chan struct{}

	// WaitResult returns the exit code and wait error. It is valid only
	// after Exited is closed and may be called any number of times.
	WaitResult() (int, error)

	Signal(sig os.Signal) error
	Kill() error

	// Terminate asks the process to exit and escalates to a forced kill
	// after grace. It blocks until the exit is collected.
	Terminate(grace time.Duration) error
}

// Launcher creates processes. IsFailure is the platform convention used to
// classify exit codes when the exit-value policy is the empty set.
type Launcher interface {
	Launch(cmd *Command, dir string) (Proc, error)
	IsFailure(exitCode int) bool
}

// StreamHandler binds a child's three standard streams to caller-supplied
// sinks and sources and pumps them in the background. The executor calls
// Attach, Start, and Stop in that order, once per execution.
type StreamHandler interface {
	Attach(stdin io.WriteCloser, stdout, stderr io.ReadCloser) error

	// Start begins pumping and returns immediately.
	Start() error

	// Stop blocks until the pump goroutines finish and returns the first
	// pump error, if any.
	Stop() error
}

// Watchdog bounds a process's lifetime. The executor arms it with Start
// immediately after destroyer registration and disarms it with Stop once
// the process has exited; Stop after the watchdog fired is a no-op.
type Watchdog interface {
	// Reset clears the record of a previous run. The executor calls it
	// before an asynchronous execution.
	Reset()

	Start(p Proc) error
	Stop()

	// Err returns a fault recorded by the watchdog's own kill path. A
	// normal timeout kill is not a fault.
	Err() error
}

// Destroyer tracks in-flight processes so they can be killed if the
// supervising program shuts down. Set semantics keyed by process identity;
// Add reports whether the set changed, Remove whether the process was
// tracked.
type Destroyer interface {
	Add(p Proc) bool
	Remove(p Proc) bool
}

// ResultHandler receives the outcome of an asynchronous execution. Exactly
// one of the two callbacks is invoked, exactly once, on the execution's
// background goroutine.
type ResultHandler interface {
	OnProcessComplete(exitCode int)
	OnProcessFailed(err *ExitError)
}

package subproc

import (
	"fmt"
	"time"
)

// requirePositive panics if v <= 0 with a descriptive message.
func requirePositive[T int | time.Duration](name string, v T) {
	if v <= 0 {
		panic(fmt.Sprintf("subproc: %s must be greater than 0, got %v", name, v))
	}
}

// requireNonEmpty panics if s is empty with a descriptive message.
func requireNonEmpty(name, s string) {
	if s == "" {
		panic(fmt.Sprintf("subproc: %s must not be empty", name))
	}
}

// Option configures an Executor during construction via New.
// Each With* function returns an Option that sets a specific field.
//
// Several With* functions panic on invalid input (nil collaborators, empty
// paths). These panics are intentional: option values are typically
// compile-time constants or package-level variables, so an invalid value
// indicates a programmer error rather than a runtime condition. The pattern
// mirrors [regexp.MustCompile] and fails fast during initialization instead
// of returning errors that would be universally fatal anyway.
type Option func(*executorConfig)

// WithStreamHandler sets the stream handler used to pump the child's
// standard streams. The default pumps output to the parent's own stdout
// and stderr. Use SetStreamHandler(nil) on the built executor to disable
// pumping entirely.
//
// Panics if h is nil.
func WithStreamHandler(h StreamHandler) Option {
	if h == nil {
		panic("subproc: stream handler must not be nil")
	}
	return func(c *executorConfig) {
		c.streamHandler = h
	}
}

// WithWatchdog sets a watchdog that bounds each execution's lifetime.
// No watchdog is configured by default.
//
// Panics if w is nil.
func WithWatchdog(w Watchdog) Option {
	if w == nil {
		panic("subproc: watchdog must not be nil")
	}
	return func(c *executorConfig) {
		c.watchdog = w
	}
}

// WithDestroyer sets the destroyer that tracks in-flight processes for
// shutdown cleanup. No destroyer is configured by default.
//
// Panics if d is nil.
func WithDestroyer(d Destroyer) Option {
	if d == nil {
		panic("subproc: destroyer must not be nil")
	}
	return func(c *executorConfig) {
		c.destroyer = d
	}
}

// WithLauncher replaces the process launch mechanism. The default launcher
// spawns OS processes and treats exit code 0 as success.
//
// Panics if l is nil.
func WithLauncher(l Launcher) Option {
	if l == nil {
		panic("subproc: launcher must not be nil")
	}
	return func(c *executorConfig) {
		c.launcher = l
	}
}

// WithWorkingDirectory sets the directory each process starts in. It must
// exist at call time or the execution fails before any process is created.
//
// Default: the current directory.
//
// Panics if dir is empty.
func WithWorkingDirectory(dir string) Option {
	requireNonEmpty("working directory", dir)
	return func(c *executorConfig) {
		c.workingDirectory = dir
	}
}

// WithExitValues sets the exit-value policy: nil accepts every exit code,
// an empty slice defers to the launcher's platform convention, and a
// non-empty slice is the exact set of accepted codes.
//
// Default: empty (launcher convention, exit code 0 succeeds).
func WithExitValues(values []int) Option {
	return func(c *executorConfig) {
		c.policy = newExitPolicy(values)
	}
}

// WithExitValue accepts exactly one exit code.
func WithExitValue(value int) Option {
	return WithExitValues([]int{value})
}

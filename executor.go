package subproc

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/giantswarm/subproc/internal/core"
)

// newExitPolicy builds the internal policy representation, preserving the
// nil / empty / explicit-set distinction.
func newExitPolicy(values []int) core.ExitPolicy {
	return core.NewExitPolicy(values)
}

// executor is the default Executor implementation.
//
// The mutex guards the configuration fields against concurrent accessor
// use; each execution works on a snapshot taken at entry, so reconfiguring
// mid-flight affects only later calls.
type executor struct {
	mu        sync.RWMutex
	streams   StreamHandler
	watchdog  Watchdog
	destroyer Destroyer
	launcher  Launcher
	workDir   string
	policy    core.ExitPolicy
}

// New creates an Executor with the given options applied over the
// defaults: console stream pumping, the platform launcher, the current
// directory, no watchdog, no destroyer, and the launcher's exit-code
// convention.
func New(opts ...Option) Executor {
	cfg := defaultExecutorConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	return &executor{
		streams:   cfg.streamHandler,
		watchdog:  cfg.watchdog,
		destroyer: cfg.destroyer,
		launcher:  cfg.launcher,
		workDir:   cfg.workingDirectory,
		policy:    cfg.policy,
	}
}

func (e *executor) StreamHandler() StreamHandler {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.streams
}

func (e *executor) SetStreamHandler(h StreamHandler) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.streams = h
}

func (e *executor) Watchdog() Watchdog {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.watchdog
}

func (e *executor) SetWatchdog(w Watchdog) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.watchdog = w
}

func (e *executor) Destroyer() Destroyer {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.destroyer
}

func (e *executor) SetDestroyer(d Destroyer) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.destroyer = d
}

func (e *executor) WorkingDirectory() string {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.workDir
}

func (e *executor) SetWorkingDirectory(dir string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.workDir = dir
}

func (e *executor) ExitValues() []int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.policy.Values()
}

func (e *executor) SetExitValues(values []int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.policy = newExitPolicy(values)
}

func (e *executor) SetExitValue(value int) {
	e.SetExitValues([]int{value})
}

func (e *executor) IsFailure(exitCode int) bool {
	e.mu.RLock()
	policy, launcher := e.policy, e.launcher
	e.mu.RUnlock()
	return policy.IsFailure(exitCode, launcher.IsFailure)
}

func (e *executor) Execute(ctx context.Context, cmd *Command) (int, error) {
	if err := e.validate(cmd); err != nil {
		return InvalidExitCode, err
	}
	return e.executeInternal(ctx, cmd, func() {})
}

func (e *executor) ExecuteAsync(ctx context.Context, cmd *Command, handler ResultHandler) error {
	if handler == nil {
		return ErrNilResultHandler
	}
	if err := e.validate(cmd); err != nil {
		return err
	}
	if wd := e.Watchdog(); wd != nil {
		wd.Reset()
	}

	// The started latch resolves once the launch attempt has succeeded or
	// failed, bounding how long this call blocks regardless of how long
	// the process runs.
	started := make(chan struct{})
	var once sync.Once
	signal := func() { once.Do(func() { close(started) }) }

	go func() {
		code, err := e.executeInternal(ctx, cmd, signal)
		if err == nil {
			handler.OnProcessComplete(code)
			return
		}
		var exitErr *ExitError
		if !errors.As(err, &exitErr) {
			exitErr = &ExitError{Code: InvalidExitCode, Err: err}
		}
		handler.OnProcessFailed(exitErr)
	}()

	<-started
	return nil
}

// validate rejects bad input before any process is created.
func (e *executor) validate(cmd *Command) error {
	if cmd == nil {
		return ErrNilCommand
	}
	if len(cmd.Tokens()) == 0 {
		return ErrEmptyCommand
	}
	if dir := e.WorkingDirectory(); dir != "" {
		info, err := os.Stat(dir)
		if err != nil || !info.IsDir() {
			return fmt.Errorf("%w: %s", ErrWorkingDirectory, dir)
		}
	}
	return nil
}

// executeInternal runs one supervised execution. started is signalled as
// soon as the launch attempt resolves, before waiting for completion.
//
// Failure precedence on the evaluation path: a stream or descriptor fault
// dominates a watchdog kill fault, which dominates an exit-code policy
// failure. Cleanup errors beyond the first are logged and dropped.
func (e *executor) executeInternal(ctx context.Context, cmd *Command, started func()) (int, error) {
	e.mu.RLock()
	streams, wd, destroyer := e.streams, e.watchdog, e.destroyer
	launcher, dir, policy := e.launcher, e.workDir, e.policy
	e.mu.RUnlock()

	firstErr := &core.FirstError{}

	proc, err := launcher.Launch(cmd, dir)
	started()
	if err != nil {
		return InvalidExitCode, fmt.Errorf("launch %s: %w", cmd.Program(), err)
	}

	log := core.Logger()
	log.Debug("process launched", "pid", proc.Pid(), "command", cmd.String())

	if streams != nil {
		if err := streams.Attach(proc.Stdin(), proc.Stdout(), proc.Stderr()); err != nil {
			e.abort(proc, streams)
			return InvalidExitCode, fmt.Errorf("attach streams: %w", err)
		}
		if err := streams.Start(); err != nil {
			e.abort(proc, streams)
			return InvalidExitCode, fmt.Errorf("start streams: %w", err)
		}
	} else {
		// Nothing will ever feed stdin; close it so the child sees EOF.
		_ = proc.Stdin().Close()
	}

	if destroyer != nil {
		destroyer.Add(proc)
		defer destroyer.Remove(proc)
	}
	if wd != nil {
		if err := wd.Start(proc); err != nil {
			e.abort(proc, streams)
			return InvalidExitCode, fmt.Errorf("start watchdog: %w", err)
		}
	}

	select {
	case <-proc.Exited():
	case <-ctx.Done():
		// Caller cancellation forces a kill; evaluation then continues on
		// whatever exit code the kill produced.
		log.Debug("execution cancelled, killing process", "pid", proc.Pid())
		_ = proc.Kill()
		<-proc.Exited()
	}
	code, waitErr := proc.WaitResult()

	if wd != nil {
		wd.Stop()
	}
	if streams != nil {
		if err := streams.Stop(); err != nil {
			firstErr.Store(fmt.Errorf("stop streams: %w", err))
		}
	}
	closeProcessStreams(proc, firstErr)

	if err := firstErr.Err(); err != nil {
		return InvalidExitCode, err
	}
	if wd != nil {
		if err := wd.Err(); err != nil {
			return InvalidExitCode, err
		}
	}
	if waitErr != nil {
		return code, fmt.Errorf("collect exit status of pid %d: %w", proc.Pid(), waitErr)
	}
	if policy.IsFailure(code, launcher.IsFailure) {
		return code, &ExitError{Code: code}
	}
	return code, nil
}

// abort tears down a process that cannot be supervised: kill it, wait for
// the exit to be collected, stop any pumping, and close the descriptors.
// Errors are irrelevant here, the execution already failed.
func (e *executor) abort(proc Proc, streams StreamHandler) {
	_ = proc.Kill()
	<-proc.Exited()
	if streams != nil {
		_ = streams.Stop()
	}
	closeProcessStreams(proc, nil)
}

// closeProcessStreams closes all three process stream ends unconditionally.
// A close failure on one stream never prevents closing the others. The
// first error lands in firstErr (when provided and still empty); the rest
// are logged and dropped. Without a slot every close error is logged. The
// stream handler may already have closed stdin, so an already-closed
// descriptor is not an error.
func closeProcessStreams(proc Proc, firstErr *core.FirstError) {
	for _, s := range []struct {
		name string
		c    io.Closer
	}{
		{"stdin", proc.Stdin()},
		{"stdout", proc.Stdout()},
		{"stderr", proc.Stderr()},
	} {
		err := s.c.Close()
		if err == nil || errors.Is(err, os.ErrClosed) {
			continue
		}
		wrapped := fmt.Errorf("close process %s: %w", s.name, err)
		switch {
		case firstErr == nil:
			core.Logger().Debug("stream close error during teardown", "error", wrapped)
		case !firstErr.Store(wrapped):
			core.Logger().Debug("dropping subsequent stream close error", "error", wrapped)
		}
	}
}

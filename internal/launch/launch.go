package launch

import (
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"slices"

	"github.com/giantswarm/subproc/internal/sentinel"
)

// ErrNoTokens is returned by Start when the command has no tokens.
const ErrNoTokens = sentinel.Error("command must contain at least one token")

// Spec describes one process launch.
type Spec struct {
	// Tokens is the program followed by its arguments. Must be non-empty.
	// The program is resolved against PATH when it contains no separator.
	Tokens []string

	// Env is the complete environment for the child as name→value pairs.
	// A nil map inherits the parent's environment; a non-nil map is passed
	// through as-is, replacing the inherited environment entirely.
	Env map[string]string

	// Dir is the child's working directory. Empty means the parent's.
	Dir string
}

// Process is a live child process. The three parent-side stream ends are
// created with os.Pipe rather than the exec package's pipe helpers so that
// their lifetime is fully owned by the caller: cmd.Wait never touches them,
// and closing them is an explicit, observable step.
//
// Exactly one goroutine calls cmd.Wait, started in Start. Its result is
// published in code/waitErr before exited is closed, so any reader of
// WaitResult observes the stored values.
type Process struct {
	cmd    *exec.Cmd
	stdin  io.WriteCloser
	stdout io.ReadCloser
	stderr io.ReadCloser

	exited  chan struct{}
	code    int
	waitErr error
}

// Start launches the process described by spec. On success the child is
// running and the parent-side stream ends are available via Stdin, Stdout,
// and Stderr. On failure no process exists and no descriptors remain open.
func Start(spec Spec) (*Process, error) {
	if len(spec.Tokens) == 0 {
		return nil, ErrNoTokens
	}

	cmd := exec.Command(spec.Tokens[0], spec.Tokens[1:]...)
	cmd.Dir = spec.Dir
	if spec.Env != nil {
		cmd.Env = environList(spec.Env)
	}
	configureSysProcAttr(cmd)

	// Three pipe pairs: the child ends are handed to exec.Cmd, the parent
	// ends are retained on the Process. closeAll unwinds on any failure.
	var opened []io.Closer
	closeAll := func() {
		for _, c := range opened {
			_ = c.Close()
		}
	}

	stdinR, stdinW, err := os.Pipe()
	if err != nil {
		return nil, fmt.Errorf("create stdin pipe: %w", err)
	}
	opened = append(opened, stdinR, stdinW)

	stdoutR, stdoutW, err := os.Pipe()
	if err != nil {
		closeAll()
		return nil, fmt.Errorf("create stdout pipe: %w", err)
	}
	opened = append(opened, stdoutR, stdoutW)

	stderrR, stderrW, err := os.Pipe()
	if err != nil {
		closeAll()
		return nil, fmt.Errorf("create stderr pipe: %w", err)
	}
	opened = append(opened, stderrR, stderrW)

	cmd.Stdin = stdinR
	cmd.Stdout = stdoutW
	cmd.Stderr = stderrW

	if err := cmd.Start(); err != nil {
		closeAll()
		return nil, fmt.Errorf("start %s: %w", cmd.Path, err)
	}

	// The child holds its own copies now; the parent must drop the child
	// ends so that pipe EOF propagates when the child exits.
	_ = stdinR.Close()
	_ = stdoutW.Close()
	_ = stderrW.Close()

	p := &Process{
		cmd:    cmd,
		stdin:  stdinW,
		stdout: stdoutR,
		stderr: stderrR,
		exited: make(chan struct{}),
	}

	// The single cmd.Wait goroutine. cmd.Wait must be called exactly once
	// per started process; the stored result plus the closed channel let
	// any number of callers consume it through WaitResult.
	go func() {
		p.code, p.waitErr = exitStatus(cmd.Wait())
		close(p.exited)
	}()

	return p, nil
}

// environList converts an environment map into sorted KEY=value pairs.
// Sorting keeps launches deterministic for identical inputs.
func environList(env map[string]string) []string {
	pairs := make([]string, 0, len(env))
	for k, v := range env {
		pairs = append(pairs, k+"="+v)
	}
	slices.Sort(pairs)
	return pairs
}

// Pid returns the operating-system process id of the child.
func (p *Process) Pid() int {
	return p.cmd.Process.Pid
}

// Path returns the resolved path of the program being run.
func (p *Process) Path() string {
	return p.cmd.Path
}

// Stdin returns the parent-side write end of the child's standard input.
func (p *Process) Stdin() io.WriteCloser {
	return p.stdin
}

// Stdout returns the parent-side read end of the child's standard output.
func (p *Process) Stdout() io.ReadCloser {
	return p.stdout
}

// Stderr returns the parent-side read end of the child's standard error.
func (p *Process) Stderr() io.ReadCloser {
	return p.stderr
}

// Exited returns a channel that is closed when the process has exited and
// its result has been collected. Safe to select on from any number of
// goroutines.
func (p *Process) Exited() <-chan struct{} {
	return p.exited
}

// WaitResult blocks until the process exits and returns its exit code. The
// error is non-nil only when waiting itself failed; a non-zero exit code is
// not an error at this layer. Safe for concurrent callers.
func (p *Process) WaitResult() (int, error) {
	<-p.exited
	return p.code, p.waitErr
}

// Signal sends sig to the process. Signaling an already-finished process is
// a no-op rather than an error, so racing observers can all safely request
// termination.
func (p *Process) Signal(sig os.Signal) error {
	select {
	case <-p.exited:
		return nil
	default:
	}
	if err := p.cmd.Process.Signal(sig); err != nil && !isProcessDone(err) {
		return fmt.Errorf("signal %s pid %d: %w", sig, p.Pid(), err)
	}
	return nil
}

// Kill forcibly terminates the process. Idempotent and safe to call
// concurrently from multiple observers; killing an already-finished process
// returns nil.
func (p *Process) Kill() error {
	select {
	case <-p.exited:
		return nil
	default:
	}
	if err := p.cmd.Process.Kill(); err != nil && !isProcessDone(err) {
		return fmt.Errorf("kill pid %d: %w", p.Pid(), err)
	}
	return nil
}

// isProcessDone reports whether err indicates the process had already
// finished when it was signaled.
func isProcessDone(err error) bool {
	return errors.Is(err, os.ErrProcessDone)
}

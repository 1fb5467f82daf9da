package pump

import (
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/giantswarm/subproc/internal/sentinel"
)

// ErrNotAttached is returned by Start when Attach has not been called.
const ErrNotAttached = sentinel.Error("stream handler not attached to a process")

// ErrAlreadyStarted is returned by Start when pumping is already running.
const ErrAlreadyStarted = sentinel.Error("stream handler already started")

// ErrDrainTimeout is returned by Stop when the pump goroutines do not finish
// within the drain window. This happens when a descendant of the child keeps
// the output pipe open after the child itself exited.
const ErrDrainTimeout = sentinel.Error("stream pump did not drain before timeout")

// DefaultDrainTimeout bounds how long Stop waits for the pump goroutines.
const DefaultDrainTimeout = 10 * time.Second

// Handler copies the child's output streams to out/errOut and optionally
// feeds its stdin from in. The zero value is not usable; construct with New.
//
// One pump cycle is Attach, Start, Stop, in that order. Attach begins a new
// cycle, so a handler can be reused across processes as long as the cycles
// are serialized. Not safe for concurrent use.
type Handler struct {
	out    io.Writer
	errOut io.Writer
	in     io.Reader

	stdin  io.WriteCloser
	stdout io.ReadCloser
	stderr io.ReadCloser

	drainTimeout time.Duration

	group   *errgroup.Group
	started bool
}

// New returns a handler writing the child's stdout to out and stderr to
// errOut, and feeding stdin from in. Nil writers discard; a nil reader
// means the child's stdin is closed immediately on Start so it observes EOF.
func New(out, errOut io.Writer, in io.Reader) *Handler {
	if out == nil {
		out = io.Discard
	}
	if errOut == nil {
		errOut = io.Discard
	}
	return &Handler{out: out, errOut: errOut, in: in, drainTimeout: DefaultDrainTimeout}
}

// NewConsole returns a handler pumping the child's output into the parent's
// own stdout and stderr, the default wiring when nothing is configured.
func NewConsole() *Handler {
	return New(os.Stdout, os.Stderr, nil)
}

// SetDrainTimeout overrides how long Stop waits for pump goroutines before
// giving up. Must be called before Start. Non-positive values are ignored.
func (h *Handler) SetDrainTimeout(d time.Duration) {
	if d > 0 {
		h.drainTimeout = d
	}
}

// Attach binds the handler to a process's stream ends. stdin is the write
// end of the child's standard input; stdout and stderr are the read ends of
// its output streams.
func (h *Handler) Attach(stdin io.WriteCloser, stdout, stderr io.ReadCloser) error {
	if stdin == nil || stdout == nil || stderr == nil {
		return errors.New("attach requires all three process streams")
	}
	h.stdin = stdin
	h.stdout = stdout
	h.stderr = stderr
	// A new attachment starts a fresh pump cycle.
	h.started = false
	h.group = nil
	return nil
}

// Start begins pumping in background goroutines and returns immediately.
// The goroutines run until their stream reaches EOF, which for stdout and
// stderr happens when the child (and anything holding its pipe) exits.
func (h *Handler) Start() error {
	if h.stdout == nil {
		return ErrNotAttached
	}
	if h.started {
		return ErrAlreadyStarted
	}
	h.started = true

	g := &errgroup.Group{}
	h.group = g

	stdout, stderr := h.stdout, h.stderr
	g.Go(func() error {
		if _, err := io.Copy(h.out, stdout); err != nil {
			return fmt.Errorf("pump stdout: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		if _, err := io.Copy(h.errOut, stderr); err != nil {
			return fmt.Errorf("pump stderr: %w", err)
		}
		return nil
	})

	if h.in == nil {
		// No input source: close the child's stdin now so it sees EOF
		// instead of blocking on reads forever.
		_ = h.stdin.Close()
		return nil
	}

	in, stdin := h.in, h.stdin
	g.Go(func() error {
		_, err := io.Copy(stdin, in)
		// Close regardless so the child observes EOF after the input is
		// exhausted or the copy failed.
		if closeErr := stdin.Close(); closeErr != nil && err == nil {
			err = closeErr
		}
		if err != nil {
			return fmt.Errorf("pump stdin: %w", err)
		}
		return nil
	})
	return nil
}

// Stop blocks until the pump goroutines finish and returns the first copy
// error, if any. The wait is bounded by the drain timeout; on timeout the
// goroutines are left running (they exit once the executor closes the
// process descriptors) and ErrDrainTimeout is returned.
func (h *Handler) Stop() error {
	if h.group == nil {
		return nil
	}

	done := make(chan error, 1)
	go func() { done <- h.group.Wait() }()

	t := time.NewTimer(h.drainTimeout)
	defer t.Stop()

	select {
	case err := <-done:
		return err
	case <-t.C:
		return ErrDrainTimeout
	}
}

package subproc

import (
	"io"
	"time"

	"github.com/giantswarm/subproc/internal/pump"
)

// PumpStreamHandler copies the child's stdout and stderr to configurable
// writers and optionally feeds its stdin from a reader. It is the
// StreamHandler every executor uses unless configured otherwise.
type PumpStreamHandler struct {
	inner *pump.Handler
}

var _ StreamHandler = (*PumpStreamHandler)(nil)

// NewPumpStreamHandler returns a handler writing the child's stdout to out
// and stderr to errOut, feeding stdin from in. Nil writers discard output;
// a nil reader closes the child's stdin immediately so it observes EOF.
func NewPumpStreamHandler(out, errOut io.Writer, in io.Reader) *PumpStreamHandler {
	return &PumpStreamHandler{inner: pump.New(out, errOut, in)}
}

// NewConsoleStreamHandler returns a handler pumping the child's output to
// the parent's own stdout and stderr.
func NewConsoleStreamHandler() *PumpStreamHandler {
	return &PumpStreamHandler{inner: pump.NewConsole()}
}

// SetDrainTimeout overrides how long Stop waits for the pump goroutines.
// Must be called before Start; non-positive values are ignored.
func (h *PumpStreamHandler) SetDrainTimeout(d time.Duration) {
	h.inner.SetDrainTimeout(d)
}

func (h *PumpStreamHandler) Attach(stdin io.WriteCloser, stdout, stderr io.ReadCloser) error {
	return h.inner.Attach(stdin, stdout, stderr)
}

func (h *PumpStreamHandler) Start() error { return h.inner.Start() }

func (h *PumpStreamHandler) Stop() error { return h.inner.Stop() }

// FileStreamHandler captures the child's stdout and stderr into log files
// in a directory. Unlike PumpStreamHandler it is single-use: the files are
// created eagerly and closed by Stop.
type FileStreamHandler struct {
	inner *pump.FileHandler
}

var _ StreamHandler = (*FileStreamHandler)(nil)

// NewFileStreamHandler creates <name>-stdout.log and <name>-stderr.log in
// dir and returns a handler pumping the child's output into them.
// Panics if name is empty.
func NewFileStreamHandler(dir, name string) (*FileStreamHandler, error) {
	requireNonEmpty("stream log name", name)
	f, err := pump.NewFile(dir, name)
	if err != nil {
		return nil, err
	}
	return &FileStreamHandler{inner: f}, nil
}

// StdoutPath returns the path of the stdout log file.
func (h *FileStreamHandler) StdoutPath() string { return h.inner.StdoutPath() }

// StderrPath returns the path of the stderr log file.
func (h *FileStreamHandler) StderrPath() string { return h.inner.StderrPath() }

func (h *FileStreamHandler) Attach(stdin io.WriteCloser, stdout, stderr io.ReadCloser) error {
	return h.inner.Attach(stdin, stdout, stderr)
}

func (h *FileStreamHandler) Start() error { return h.inner.Start() }

// Stop joins the pump goroutines and closes the log files.
func (h *FileStreamHandler) Stop() error { return h.inner.Stop() }

// Close releases the log files of a handler that was never started.
func (h *FileStreamHandler) Close() { h.inner.Close() }

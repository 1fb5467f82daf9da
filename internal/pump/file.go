package pump

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/giantswarm/subproc/internal/fileutil"
)

// FileHandler pumps the child's stdout and stderr into per-process log
// files (<name>-stdout.log, <name>-stderr.log) inside a directory, for
// callers that want durable output instead of live streams.
type FileHandler struct {
	inner *Handler

	stdoutFile *os.File
	stderrFile *os.File
	dir        string
	name       string
}

// NewFile creates the two log files eagerly and returns a handler pumping
// into them. Both files are created before either is kept, so a failure
// leaves nothing open on disk. The directory is created if needed.
func NewFile(dir, name string) (*FileHandler, error) {
	f := &FileHandler{dir: dir, name: name}

	if err := fileutil.EnsureDirForFile(f.StdoutPath()); err != nil {
		return nil, err
	}
	stdoutFile, err := os.Create(f.StdoutPath())
	if err != nil {
		return nil, fmt.Errorf("create stdout log: %w", err)
	}
	stderrFile, err := os.Create(f.StderrPath())
	if err != nil {
		_ = stdoutFile.Close()
		return nil, fmt.Errorf("create stderr log: %w", err)
	}

	f.stdoutFile = stdoutFile
	f.stderrFile = stderrFile
	f.inner = New(stdoutFile, stderrFile, nil)
	return f, nil
}

// StdoutPath returns the absolute path of the stdout log file.
func (f *FileHandler) StdoutPath() string {
	return filepath.Join(f.dir, f.name+"-stdout.log")
}

// StderrPath returns the absolute path of the stderr log file.
func (f *FileHandler) StderrPath() string {
	return filepath.Join(f.dir, f.name+"-stderr.log")
}

// Attach binds the handler to a process's stream ends.
func (f *FileHandler) Attach(stdin io.WriteCloser, stdout, stderr io.ReadCloser) error {
	return f.inner.Attach(stdin, stdout, stderr)
}

// Start begins pumping process output into the log files.
func (f *FileHandler) Start() error {
	return f.inner.Start()
}

// Stop joins the pump goroutines and closes both log files. The first pump
// error wins over close errors.
func (f *FileHandler) Stop() error {
	err := f.inner.Stop()
	f.closeFiles()
	return err
}

// Close releases the log file handles without pumping; for handlers that
// were created but never used because the launch failed.
func (f *FileHandler) Close() {
	f.closeFiles()
}

// closeFiles closes both log files and nils them to prevent double-close.
func (f *FileHandler) closeFiles() {
	if f.stdoutFile != nil {
		_ = f.stdoutFile.Close()
		f.stdoutFile = nil
	}
	if f.stderrFile != nil {
		_ = f.stderrFile.Close()
		f.stderrFile = nil
	}
}

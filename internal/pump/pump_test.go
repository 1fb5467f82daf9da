package pump

import (
	"bytes"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

// pipePair builds an os.Pipe and registers cleanup for both ends.
func pipePair(t *testing.T) (*os.File, *os.File) {
	t.Helper()
	r, w, err := os.Pipe()
	if err != nil {
		t.Fatalf("os.Pipe: %v", err)
	}
	t.Cleanup(func() {
		_ = r.Close()
		_ = w.Close()
	})
	return r, w
}

// fakeStreams builds the three parent-side stream ends plus the far ends a
// fake child would hold.
type fakeStreams struct {
	stdin  *os.File // parent write end
	stdout *os.File // parent read end
	stderr *os.File // parent read end

	childStdin  *os.File
	childStdout *os.File
	childStderr *os.File
}

func newFakeStreams(t *testing.T) *fakeStreams {
	t.Helper()
	childStdin, stdin := pipePair(t)
	stdout, childStdout := pipePair(t)
	stderr, childStderr := pipePair(t)
	return &fakeStreams{
		stdin: stdin, stdout: stdout, stderr: stderr,
		childStdin: childStdin, childStdout: childStdout, childStderr: childStderr,
	}
}

func TestHandler_PumpsBothOutputStreams(t *testing.T) {
	t.Parallel()

	s := newFakeStreams(t)
	var out, errOut bytes.Buffer
	h := New(&out, &errOut, nil)

	if err := h.Attach(s.stdin, s.stdout, s.stderr); err != nil {
		t.Fatalf("Attach: %v", err)
	}
	if err := h.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}

	if _, err := io.WriteString(s.childStdout, "standard output"); err != nil {
		t.Fatalf("child write: %v", err)
	}
	if _, err := io.WriteString(s.childStderr, "standard error"); err != nil {
		t.Fatalf("child write: %v", err)
	}
	_ = s.childStdout.Close()
	_ = s.childStderr.Close()

	if err := h.Stop(); err != nil {
		t.Fatalf("Stop: %v", err)
	}
	if got := out.String(); got != "standard output" {
		t.Errorf("stdout sink = %q, want %q", got, "standard output")
	}
	if got := errOut.String(); got != "standard error" {
		t.Errorf("stderr sink = %q, want %q", got, "standard error")
	}
}

func TestHandler_FeedsStdinAndClosesIt(t *testing.T) {
	t.Parallel()

	s := newFakeStreams(t)
	h := New(nil, nil, strings.NewReader("input payload"))

	if err := h.Attach(s.stdin, s.stdout, s.stderr); err != nil {
		t.Fatalf("Attach: %v", err)
	}
	if err := h.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	_ = s.childStdout.Close()
	_ = s.childStderr.Close()

	got, err := io.ReadAll(s.childStdin)
	if err != nil {
		t.Fatalf("child read stdin: %v", err)
	}
	if string(got) != "input payload" {
		t.Errorf("child stdin = %q, want %q", got, "input payload")
	}
	if err := h.Stop(); err != nil {
		t.Fatalf("Stop: %v", err)
	}
}

func TestHandler_NilInputClosesChildStdin(t *testing.T) {
	t.Parallel()

	s := newFakeStreams(t)
	h := New(nil, nil, nil)

	if err := h.Attach(s.stdin, s.stdout, s.stderr); err != nil {
		t.Fatalf("Attach: %v", err)
	}
	if err := h.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}

	// The child side must see immediate EOF.
	got, err := io.ReadAll(s.childStdin)
	if err != nil {
		t.Fatalf("child read stdin: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("child stdin = %q, want empty", got)
	}

	_ = s.childStdout.Close()
	_ = s.childStderr.Close()
	if err := h.Stop(); err != nil {
		t.Fatalf("Stop: %v", err)
	}
}

func TestHandler_StartWithoutAttach(t *testing.T) {
	t.Parallel()

	h := New(nil, nil, nil)
	if err := h.Start(); !errors.Is(err, ErrNotAttached) {
		t.Errorf("Start = %v, want ErrNotAttached", err)
	}
}

func TestHandler_DoubleStart(t *testing.T) {
	t.Parallel()

	s := newFakeStreams(t)
	h := New(nil, nil, nil)
	if err := h.Attach(s.stdin, s.stdout, s.stderr); err != nil {
		t.Fatalf("Attach: %v", err)
	}
	if err := h.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if err := h.Start(); !errors.Is(err, ErrAlreadyStarted) {
		t.Errorf("second Start = %v, want ErrAlreadyStarted", err)
	}

	_ = s.childStdout.Close()
	_ = s.childStderr.Close()
	_ = h.Stop()
}

func TestHandler_StopTimesOutWhenPipeHeldOpen(t *testing.T) {
	t.Parallel()

	s := newFakeStreams(t)
	h := New(nil, nil, nil)
	h.SetDrainTimeout(50 * time.Millisecond)

	if err := h.Attach(s.stdin, s.stdout, s.stderr); err != nil {
		t.Fatalf("Attach: %v", err)
	}
	if err := h.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}

	// Child ends stay open: no EOF, the pumpers cannot finish.
	if err := h.Stop(); !errors.Is(err, ErrDrainTimeout) {
		t.Errorf("Stop = %v, want ErrDrainTimeout", err)
	}
}

func TestHandler_StopBeforeStartIsNoop(t *testing.T) {
	t.Parallel()

	h := New(nil, nil, nil)
	if err := h.Stop(); err != nil {
		t.Errorf("Stop before Start = %v, want nil", err)
	}
}

func TestFileHandler_WritesLogFiles(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	s := newFakeStreams(t)

	f, err := NewFile(dir, "worker")
	if err != nil {
		t.Fatalf("NewFile: %v", err)
	}
	if err := f.Attach(s.stdin, s.stdout, s.stderr); err != nil {
		t.Fatalf("Attach: %v", err)
	}
	if err := f.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}

	if _, err := io.WriteString(s.childStdout, "payload"); err != nil {
		t.Fatalf("child write: %v", err)
	}
	_ = s.childStdout.Close()
	_ = s.childStderr.Close()

	if err := f.Stop(); err != nil {
		t.Fatalf("Stop: %v", err)
	}

	data, err := os.ReadFile(f.StdoutPath())
	if err != nil {
		t.Fatalf("read stdout log: %v", err)
	}
	if string(data) != "payload" {
		t.Errorf("stdout log = %q, want %q", data, "payload")
	}
	if filepath.Base(f.StderrPath()) != "worker-stderr.log" {
		t.Errorf("stderr log name = %q, want worker-stderr.log", filepath.Base(f.StderrPath()))
	}
}

func TestFileHandler_CreatesMissingDirectory(t *testing.T) {
	t.Parallel()

	dir := filepath.Join(t.TempDir(), "logs", "worker-7")
	f, err := NewFile(dir, "worker")
	if err != nil {
		t.Fatalf("NewFile: %v", err)
	}
	f.Close()

	if _, err := os.Stat(f.StdoutPath()); err != nil {
		t.Errorf("stdout log not created: %v", err)
	}
}

func TestFileHandler_CreateFailureLeavesNothingOpen(t *testing.T) {
	t.Parallel()

	// A regular file where the log directory should be makes creation fail.
	blocker := filepath.Join(t.TempDir(), "blocker")
	if err := os.WriteFile(blocker, nil, 0o644); err != nil {
		t.Fatalf("write blocker file: %v", err)
	}
	if _, err := NewFile(blocker, "worker"); err == nil {
		t.Fatal("NewFile should fail when the directory path is a file")
	}
}

func TestFileHandler_CloseWithoutStart(t *testing.T) {
	t.Parallel()

	f, err := NewFile(t.TempDir(), "worker")
	if err != nil {
		t.Fatalf("NewFile: %v", err)
	}
	f.Close()
	f.Close() // double close must be safe
}

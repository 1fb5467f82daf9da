//go:build unix

package subproc_test

import (
	"bytes"
	"context"
	"errors"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/giantswarm/subproc"
)

func requireShell(t *testing.T) {
	t.Helper()
	if _, err := os.Stat("/bin/sh"); err != nil {
		t.Skip("/bin/sh not available")
	}
}

func shellCommand(script string) *subproc.Command {
	return subproc.NewCommand("/bin/sh", "-c", script)
}

func TestExecuteShell(t *testing.T) {
	t.Parallel()
	requireShell(t)

	tests := map[string]struct {
		script   string
		options  []subproc.Option
		wantCode int
		wantErr  bool
	}{
		"clean exit": {
			script:   "exit 0",
			wantCode: 0,
		},
		"nonzero exit fails by convention": {
			script:   "exit 3",
			wantCode: 3,
			wantErr:  true,
		},
		"nonzero exit accepted by policy": {
			script:   "exit 3",
			options:  []subproc.Option{subproc.WithExitValue(3)},
			wantCode: 3,
		},
		"any exit accepted by nil policy": {
			script:   "exit 7",
			options:  []subproc.Option{subproc.WithExitValues(nil)},
			wantCode: 7,
		},
	}

	for name, tt := range tests {
		tt := tt
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			opts := append([]subproc.Option{
				subproc.WithStreamHandler(subproc.NewPumpStreamHandler(nil, nil, nil)),
			}, tt.options...)
			exec := subproc.New(opts...)

			code, err := exec.Execute(context.Background(), shellCommand(tt.script))
			if tt.wantErr {
				var exitErr *subproc.ExitError
				if !errors.As(err, &exitErr) {
					t.Fatalf("expected *ExitError, got %v", err)
				}
				if exitErr.Code != tt.wantCode {
					t.Fatalf("expected ExitError code %d, got %d", tt.wantCode, exitErr.Code)
				}
			} else if err != nil {
				t.Fatalf("expected success, got %v", err)
			}
			if code != tt.wantCode {
				t.Fatalf("expected exit code %d, got %d", tt.wantCode, code)
			}
		})
	}
}

func TestExecuteCapturesOutput(t *testing.T) {
	t.Parallel()
	requireShell(t)

	var out, errOut bytes.Buffer
	exec := subproc.New(
		subproc.WithStreamHandler(subproc.NewPumpStreamHandler(&out, &errOut, nil)),
	)

	_, err := exec.Execute(context.Background(),
		shellCommand("echo to-stdout; echo to-stderr >&2"))
	if err != nil {
		t.Fatalf("expected success, got %v", err)
	}
	if got := out.String(); got != "to-stdout\n" {
		t.Fatalf("expected stdout %q, got %q", "to-stdout\n", got)
	}
	if got := errOut.String(); got != "to-stderr\n" {
		t.Fatalf("expected stderr %q, got %q", "to-stderr\n", got)
	}
}

func TestExecuteFeedsStdin(t *testing.T) {
	t.Parallel()
	requireShell(t)

	var out bytes.Buffer
	exec := subproc.New(
		subproc.WithStreamHandler(
			subproc.NewPumpStreamHandler(&out, nil, strings.NewReader("ping\n")),
		),
	)

	if _, err := exec.Execute(context.Background(), subproc.NewCommand("cat")); err != nil {
		t.Fatalf("expected success, got %v", err)
	}
	if got := out.String(); got != "ping\n" {
		t.Fatalf("expected %q, got %q", "ping\n", got)
	}
}

func TestExecuteCommandSubstitution(t *testing.T) {
	t.Parallel()
	requireShell(t)

	var out bytes.Buffer
	exec := subproc.New(
		subproc.WithStreamHandler(subproc.NewPumpStreamHandler(&out, nil, nil)),
	)

	cmd := subproc.NewCommand("/bin/sh", "-c", "echo ${greeting}").
		WithSubstitutions(map[string]string{"greeting": "hello"})
	if _, err := exec.Execute(context.Background(), cmd); err != nil {
		t.Fatalf("expected success, got %v", err)
	}
	if got := out.String(); got != "hello\n" {
		t.Fatalf("expected %q, got %q", "hello\n", got)
	}
}

func TestExecuteWorkingDirectory(t *testing.T) {
	t.Parallel()
	requireShell(t)

	dir := t.TempDir()
	var out bytes.Buffer
	exec := subproc.New(
		subproc.WithWorkingDirectory(dir),
		subproc.WithStreamHandler(subproc.NewPumpStreamHandler(&out, nil, nil)),
	)

	if _, err := exec.Execute(context.Background(), shellCommand("pwd")); err != nil {
		t.Fatalf("expected success, got %v", err)
	}
	// Symlinked temp dirs (macOS) make an exact match fragile; the base
	// name is stable.
	if got := strings.TrimSpace(out.String()); !strings.HasSuffix(got, "/"+pathBase(dir)) {
		t.Fatalf("expected pwd inside %q, got %q", dir, got)
	}
}

func pathBase(p string) string {
	if i := strings.LastIndex(p, "/"); i >= 0 {
		return p[i+1:]
	}
	return p
}

func TestExecuteWatchdogKillsRunaway(t *testing.T) {
	t.Parallel()
	requireShell(t)

	wd := subproc.NewTimeoutWatchdog(200 * time.Millisecond)
	exec := subproc.New(
		subproc.WithWatchdog(wd),
		subproc.WithStreamHandler(subproc.NewPumpStreamHandler(nil, nil, nil)),
	)

	start := time.Now()
	code, err := exec.Execute(context.Background(), subproc.NewCommand("/bin/sleep", "60"))
	if elapsed := time.Since(start); elapsed > 30*time.Second {
		t.Fatalf("expected the watchdog to end the execution promptly, took %v", elapsed)
	}

	// SIGTERM death surfaces as 128+15 under the default policy.
	var exitErr *subproc.ExitError
	if !errors.As(err, &exitErr) {
		t.Fatalf("expected *ExitError after watchdog kill, got %v", err)
	}
	if code != 143 {
		t.Fatalf("expected exit code 143 from SIGTERM, got %d", code)
	}
	if !wd.Killed() {
		t.Fatal("expected the watchdog to report the kill")
	}
	if !wd.Started() {
		t.Fatal("expected the watchdog to report the process as started")
	}
	if wdErr := wd.Err(); wdErr != nil {
		t.Fatalf("expected no watchdog fault from a normal kill, got %v", wdErr)
	}
}

func TestExecuteContextCancelKillsShell(t *testing.T) {
	t.Parallel()
	requireShell(t)

	exec := subproc.New(
		subproc.WithStreamHandler(subproc.NewPumpStreamHandler(nil, nil, nil)),
	)

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	code, err := exec.Execute(ctx, subproc.NewCommand("/bin/sleep", "60"))
	if errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected the kill's exit code to be evaluated, got %v", err)
	}
	var exitErr *subproc.ExitError
	if !errors.As(err, &exitErr) {
		t.Fatalf("expected *ExitError from the forced kill, got %v", err)
	}
	if code != 137 {
		t.Fatalf("expected exit code 137 from SIGKILL, got %d", code)
	}
}

func TestFileStreamHandlerCapturesOutput(t *testing.T) {
	t.Parallel()
	requireShell(t)

	dir := t.TempDir()
	h, err := subproc.NewFileStreamHandler(dir, "job")
	if err != nil {
		t.Fatalf("expected handler creation to succeed, got %v", err)
	}

	exec := subproc.New(subproc.WithStreamHandler(h))
	if _, err := exec.Execute(context.Background(),
		shellCommand("echo out-line; echo err-line >&2")); err != nil {
		t.Fatalf("expected success, got %v", err)
	}

	stdout, err := os.ReadFile(h.StdoutPath())
	if err != nil {
		t.Fatalf("expected stdout log readable, got %v", err)
	}
	if string(stdout) != "out-line\n" {
		t.Fatalf("expected stdout log %q, got %q", "out-line\n", stdout)
	}
	stderr, err := os.ReadFile(h.StderrPath())
	if err != nil {
		t.Fatalf("expected stderr log readable, got %v", err)
	}
	if string(stderr) != "err-line\n" {
		t.Fatalf("expected stderr log %q, got %q", "err-line\n", stderr)
	}
}

func TestShutdownDestroyerTracksExecution(t *testing.T) {
	t.Parallel()
	requireShell(t)

	d := subproc.NewShutdownDestroyer(subproc.WithDestroyerSignals())
	defer d.Close() //nolint:errcheck

	exec := subproc.New(
		subproc.WithDestroyer(d),
		subproc.WithStreamHandler(subproc.NewPumpStreamHandler(nil, nil, nil)),
	)

	if _, err := exec.Execute(context.Background(), shellCommand("exit 0")); err != nil {
		t.Fatalf("expected success, got %v", err)
	}
	if got := d.Size(); got != 0 {
		t.Fatalf("expected destroyer drained after execution, got size %d", got)
	}
}

func TestShutdownDestroyerKillAllEndsExecution(t *testing.T) {
	t.Parallel()
	requireShell(t)

	d := subproc.NewShutdownDestroyer(subproc.WithDestroyerSignals())
	defer d.Close() //nolint:errcheck

	exec := subproc.New(
		subproc.WithDestroyer(d),
		subproc.WithStreamHandler(subproc.NewPumpStreamHandler(nil, nil, nil)),
	)

	recorder := newResultRecorder()
	err := exec.ExecuteAsync(context.Background(), subproc.NewCommand("/bin/sleep", "60"), recorder)
	if err != nil {
		t.Fatalf("expected async start to succeed, got %v", err)
	}

	// The running process is tracked; killing the set ends the execution.
	deadline := time.Now().Add(5 * time.Second)
	for d.Size() == 0 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	if d.Size() != 1 {
		t.Fatal("expected the running process to be tracked")
	}
	if err := d.KillAll(context.Background()); err != nil {
		t.Fatalf("expected KillAll to succeed, got %v", err)
	}

	select {
	case exitErr := <-recorder.failed:
		if exitErr.Code != 137 {
			t.Fatalf("expected SIGKILL exit code 137, got %d", exitErr.Code)
		}
	case code := <-recorder.completed:
		t.Fatalf("expected failure callback after KillAll, got completion %d", code)
	case <-time.After(10 * time.Second):
		t.Fatal("expected the execution to end after KillAll")
	}
	if got := d.Size(); got != 0 {
		t.Fatalf("expected destroyer drained after KillAll, got size %d", got)
	}
}

// Package subproc launches external processes and supervises their whole
// lifetime: stream pumping, a timeout watchdog, orphan cleanup on program
// shutdown, and exit-code evaluation, with descriptors and goroutines
// released on every exit path.
//
// # Basic Usage
//
//	import "github.com/giantswarm/subproc"
//
//	ctx := context.Background()
//
//	exec := subproc.New()
//	code, err := exec.Execute(ctx, subproc.NewCommand("make", "generate"))
//	if err != nil {
//	    log.Fatal(err)
//	}
//	_ = code // 0 on the default policy
//
// A non-zero exit code surfaces as an *ExitError carrying the code:
//
//	code, err := exec.Execute(ctx, subproc.NewCommand("grep", "pattern", "file"))
//	var exitErr *subproc.ExitError
//	if errors.As(err, &exitErr) && exitErr.Code == 1 {
//	    // no match, not a real failure for grep
//	}
//
// Or declare acceptable codes up front:
//
//	exec := subproc.New(subproc.WithExitValues([]int{0, 1}))
//
// # Timeouts and Shutdown Cleanup
//
// A watchdog bounds an execution; a destroyer kills in-flight processes
// when the program itself is told to shut down:
//
//	destroyer := subproc.NewShutdownDestroyer(
//	    subproc.WithLedgerDir("/var/lib/myapp/procs"),
//	)
//	defer destroyer.Close()
//
//	exec := subproc.New(
//	    subproc.WithWatchdog(subproc.NewTimeoutWatchdog(30*time.Second)),
//	    subproc.WithDestroyer(destroyer),
//	)
//
// With a ledger directory configured, a later run can kill processes a
// crashed supervisor left behind:
//
//	killed, err := subproc.ReapOrphans(ctx, "/var/lib/myapp/procs")
//
// # Asynchronous Execution
//
// ExecuteAsync returns once the launch attempt has resolved and reports
// the outcome through a callback on a background goroutine:
//
//	err := exec.ExecuteAsync(ctx, cmd, handler) // handler is a ResultHandler
//	// err only reports setup problems; the process is now running.
//
// Output goes to the parent's stdout and stderr unless a different stream
// handler is configured, e.g. NewFileStreamHandler to capture output into
// log files.
package subproc

// Package launch starts native child processes and owns their low-level
// lifecycle: pipe plumbing for the three standard streams, the single
// cmd.Wait goroutine, exit-code derivation, and graceful-then-forced
// termination.
package launch

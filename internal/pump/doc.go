// Package pump implements the default stream handlers: goroutines that copy
// a child process's stdout and stderr to caller-supplied writers and feed
// its stdin from an optional reader. An un-pumped child can deadlock once
// the platform pipe buffer fills, so pumping starts before the executor
// waits on the process and is joined before its descriptors are closed.
package pump

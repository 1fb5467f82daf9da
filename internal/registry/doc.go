// Package registry implements the process destroyer: a set of in-flight
// child processes killed en masse when the supervising program shuts down.
// An optional on-disk ledger records tracked processes in SQLite so that a
// later run can reap orphans left behind by a supervisor that crashed
// before its shutdown hook ran.
package registry

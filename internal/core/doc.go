// Package core provides the invocation-level building blocks shared by the
// subproc executor and its collaborators: the package-level logger, the
// exit-value policy used to classify process exit codes, and the
// single-assignment first-error slot that aggregates cleanup failures.
package core

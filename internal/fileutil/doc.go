// Package fileutil provides small filesystem helpers.
//
// EnsureDir creates directories recursively; subproc uses it to prepare
// ledger directories before opening the database and its lock file.
package fileutil

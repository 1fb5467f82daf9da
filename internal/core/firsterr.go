package core

import "sync"

// FirstError is a single-assignment error slot. During stream teardown and
// descriptor close, several independent steps can each fail; only the first
// failure is authoritative and later ones must not mask it. Store keeps the
// first non-nil error and reports whether it was kept, so callers can log
// the discarded ones.
//
// The slot is contended only between the evaluation path and the cleanup
// path of a single invocation, but the mutex keeps it safe if a stop
// callback fires from a collaborator's goroutine.
type FirstError struct {
	mu  sync.Mutex
	err error
}

// Store records err if the slot is empty. It reports whether err was kept.
// Storing nil is a no-op and reports false.
func (f *FirstError) Store(err error) bool {
	if err == nil {
		return false
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return false
	}
	f.err = err
	return true
}

// Err returns the recorded error, or nil if nothing was stored.
func (f *FirstError) Err() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.err
}

package subproc

import (
	"log/slog"

	"github.com/giantswarm/subproc/internal/core"
)

// SetLogger replaces the package-level logger used by subproc.
// This allows applications to integrate subproc logging with their own
// logging infrastructure. The provided logger should already have any
// desired attributes; subproc will not add additional attributes.
//
// If l is nil, the logger resets to the default: slog.Default() with
// "component" attribute, re-derived on the next use and then cached. Call
// SetLogger(nil) after slog.SetDefault() to pick up changes.
//
// SetLogger is safe to call concurrently with running executions; both the
// custom logger and the cached default are stored as atomic pointers. For a
// strict happens-before guarantee, call SetLogger before starting the
// executions that should use it.
func SetLogger(l *slog.Logger) {
	core.SetLogger(l)
}

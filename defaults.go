package subproc

import (
	"time"

	"github.com/giantswarm/subproc/internal/pump"
)

// Default configuration values for New. Exported so callers can reference
// them when building custom configurations relative to the defaults.
const (
	// DefaultWorkingDirectory is the working directory used when none is
	// configured. It must exist at call time like any other.
	DefaultWorkingDirectory = "."

	// DefaultKillGrace is how long a watchdog or terminate request waits
	// between the polite termination signal and the forced kill.
	DefaultKillGrace = 10 * time.Second

	// DefaultStreamDrainTimeout bounds how long the default stream
	// handler's Stop waits for its pump goroutines after process exit.
	DefaultStreamDrainTimeout = pump.DefaultDrainTimeout
)

package subproc

import "github.com/giantswarm/subproc/internal/core"

// ConfigSnapshot holds a copy of executorConfig fields for test assertions.
// Exported only via export_test.go so that the _test package can verify
// option closures actually mutate the config without accessing internals.
type ConfigSnapshot struct {
	StreamHandler    StreamHandler
	Watchdog         Watchdog
	Destroyer        Destroyer
	Launcher         Launcher
	WorkingDirectory string
	ExitValues       []int
}

// ApplyOptionsForTesting creates a default executorConfig, applies the
// given options, and returns a ConfigSnapshot of the result. This tests
// the option closures directly without building an executor.
func ApplyOptionsForTesting(opts ...Option) ConfigSnapshot {
	cfg := defaultExecutorConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	return ConfigSnapshot{
		StreamHandler:    cfg.streamHandler,
		Watchdog:         cfg.watchdog,
		Destroyer:        cfg.destroyer,
		Launcher:         cfg.launcher,
		WorkingDirectory: cfg.workingDirectory,
		ExitValues:       cfg.policy.Values(),
	}
}

// ExpandTokenForTesting exposes token substitution for table tests.
func ExpandTokenForTesting(tok string, subs map[string]string) string {
	return expandToken(tok, subs)
}

// NewExitPolicyValuesForTesting round-trips values through the policy
// representation, preserving the nil / empty distinction.
func NewExitPolicyValuesForTesting(values []int) []int {
	return core.NewExitPolicy(values).Values()
}

package subproc

import "github.com/giantswarm/subproc/internal/core"

// executorConfig holds configuration for an Executor, assembled from the
// defaults and the Option closures passed to New.
type executorConfig struct {
	streamHandler    StreamHandler
	watchdog         Watchdog
	destroyer        Destroyer
	launcher         Launcher
	workingDirectory string
	policy           core.ExitPolicy
}

// defaultExecutorConfig returns the configuration New starts from: console
// stream pumping, the platform launcher, no watchdog, no destroyer, and the
// empty exit-value policy (defer to the launcher's convention).
func defaultExecutorConfig() executorConfig {
	return executorConfig{
		streamHandler:    NewConsoleStreamHandler(),
		launcher:         defaultLauncher{},
		workingDirectory: DefaultWorkingDirectory,
		policy:           core.NewExitPolicy([]int{}),
	}
}

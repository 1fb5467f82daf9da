package subproc

import "github.com/giantswarm/subproc/internal/launch"

// defaultLauncher spawns OS processes with pipe-backed standard streams.
type defaultLauncher struct{}

var _ Launcher = defaultLauncher{}
var _ Proc = (*launch.Process)(nil)

func (defaultLauncher) Launch(cmd *Command, dir string) (Proc, error) {
	p, err := launch.Start(launch.Spec{
		Tokens: cmd.Tokens(),
		Env:    cmd.Env(),
		Dir:    dir,
	})
	if err != nil {
		return nil, err
	}
	return p, nil
}

// IsFailure implements the platform convention: any exit code other than 0
// is a failure.
func (defaultLauncher) IsFailure(exitCode int) bool {
	return exitCode != 0
}

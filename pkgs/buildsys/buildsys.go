// Package buildsys holds the pieces shared by build-system drivers (CMake,
// Autotools): the Command/Runner pair used to shell out and the
// BuildSystem lifecycle interface.
package buildsys

import "context"

// DefaultJobs is the make concurrency used when none is configured.
const DefaultJobs = 12

// BuildSystem captures shared capabilities of build helpers (CMake, Autotools, etc).
// It keeps the common lifecycle; implementations add their own extras.
type BuildSystem interface {
	// Lifecycle.
	Configure(ctx context.Context, args ...string) error
	Build(ctx context.Context, args ...string) error
	Install(ctx context.Context, args ...string) error

	// Where artifacts land.
	OutputDir() string
}

// Options is the environment a driver needs from the toolchain.
type Options struct {
	SourceDir  string
	BuildDir   string
	InstallDir string
	// Env is a full "KEY=VALUE" environment for the spawned tools.
	// A nil Env inherits the current process environment.
	Env  []string
	Jobs int
	// Runner defaults to ExecRunner.
	Runner Runner
}

// JobsOrDefault returns o.Jobs, or DefaultJobs when unset.
func (o *Options) JobsOrDefault() int {
	if o.Jobs <= 0 {
		return DefaultJobs
	}
	return o.Jobs
}

// RunnerOrDefault returns o.Runner, or a new ExecRunner when unset.
func (o *Options) RunnerOrDefault() Runner {
	if o.Runner == nil {
		return NewExecRunner()
	}
	return o.Runner
}

// Package autotools drives the classic configure/make/make-install workflow,
// with out-of-tree builds and an optional autogen (libtoolize, aclocal,
// automake, autoconf) step for tarballs shipped without a configure script.
package autotools

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"strconv"

	"github.com/goplus/depbuild/pkgs/buildsys"
)

// AutoTools wraps common Autotools build steps.
type AutoTools struct {
	sourceDir  string
	buildDir   string
	installDir string
	host       string
	env        []string
	jobs       int
	runner     buildsys.Runner
}

var _ buildsys.BuildSystem = (*AutoTools)(nil)

// New creates an AutoTools driver for the given directories.
func New(opts buildsys.Options) *AutoTools {
	return &AutoTools{
		sourceDir:  opts.SourceDir,
		buildDir:   opts.BuildDir,
		installDir: opts.InstallDir,
		env:        opts.Env,
		jobs:       opts.JobsOrDefault(),
		runner:     opts.RunnerOrDefault(),
	}
}

// Host sets the --host triplet passed to configure for cross builds.
func (a *AutoTools) Host(triplet string) *AutoTools {
	a.host = triplet
	return a
}

// Autogen regenerates the build system in the source directory.
func (a *AutoTools) Autogen(ctx context.Context) error {
	libtoolize := "libtoolize"
	if runtime.GOOS == "darwin" {
		libtoolize = "glibtoolize"
	}
	steps := [][]string{
		{libtoolize, "--force"},
		{"aclocal"},
		{"automake", "--add-missing", "--force-missing", "--foreign"},
		{"autoconf"},
	}
	for _, step := range steps {
		err := a.runner.Run(ctx, &buildsys.Command{
			Name: step[0],
			Args: step[1:],
			Dir:  a.sourceDir,
			Env:  a.env,
		})
		if err != nil {
			return err
		}
	}
	return nil
}

// ConfigureArgs returns the configure argument list: --prefix and --host
// first, then args in the order given.
func (a *AutoTools) ConfigureArgs(args ...string) []string {
	flags := make([]string, 0, 2+len(args))
	if a.installDir != "" {
		flags = append(flags, "--prefix="+a.installDir)
	}
	if a.host != "" {
		flags = append(flags, "--host="+a.host)
	}
	return append(flags, args...)
}

// Configure runs <sourceDir>/configure inside the build directory.
func (a *AutoTools) Configure(ctx context.Context, args ...string) error {
	dir := a.workDir()
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	exe := filepath.Join(a.sourceDir, "configure")
	if dir == a.sourceDir {
		exe = "./configure"
	}
	return a.run(ctx, exe, a.ConfigureArgs(args...))
}

// Build runs "make --quiet -j<jobs>" with optional extra arguments.
func (a *AutoTools) Build(ctx context.Context, args ...string) error {
	makeArgs := []string{"--quiet", "-j" + strconv.Itoa(a.jobs)}
	return a.run(ctx, "make", append(makeArgs, args...))
}

// Install runs "make --quiet install" with optional extra arguments appended.
func (a *AutoTools) Install(ctx context.Context, args ...string) error {
	makeArgs := []string{"--quiet", "install"}
	return a.run(ctx, "make", append(makeArgs, args...))
}

// OutputDir returns installDir if set, otherwise buildDir.
func (a *AutoTools) OutputDir() string {
	if a.installDir != "" {
		return a.installDir
	}
	return a.buildDir
}

func (a *AutoTools) workDir() string {
	if a.buildDir == "" {
		return a.sourceDir
	}
	return a.buildDir
}

func (a *AutoTools) run(ctx context.Context, name string, args []string) error {
	return a.runner.Run(ctx, &buildsys.Command{
		Name: name,
		Args: args,
		Dir:  a.workDir(),
		Env:  a.env,
	})
}

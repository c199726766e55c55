// Package cmake drives CMake projects through the Makefile generator:
// cmake configure, then make and make install in the build directory.
package cmake

import (
	"context"
	"os"
	"sort"
	"strconv"

	"github.com/goplus/depbuild/pkgs/buildsys"
)

// Generator is the only generator depbuild uses.
const Generator = "Unix Makefiles"

type defineValue struct {
	value    string
	typeName string
}

// CMake wraps common CMake build steps with chainable configuration.
type CMake struct {
	sourceDir  string
	buildDir   string
	installDir string
	env        []string
	jobs       int
	runner     buildsys.Runner
	defines    map[string]defineValue
}

var _ buildsys.BuildSystem = (*CMake)(nil)

// New creates a CMake driver for the given directories.
func New(opts buildsys.Options) *CMake {
	return &CMake{
		sourceDir:  opts.SourceDir,
		buildDir:   opts.BuildDir,
		installDir: opts.InstallDir,
		env:        opts.Env,
		jobs:       opts.JobsOrDefault(),
		runner:     opts.RunnerOrDefault(),
		defines:    map[string]defineValue{},
	}
}

// Define adds a -D<key>:STRING=<value> definition.
func (c *CMake) Define(key, value string) *CMake {
	c.defines[key] = defineValue{value: value, typeName: "STRING"}
	return c
}

// DefineBool adds a -D<key>:BOOL=ON/OFF definition.
func (c *CMake) DefineBool(key string, value bool) *CMake {
	v := "OFF"
	if value {
		v = "ON"
	}
	c.defines[key] = defineValue{value: v, typeName: "BOOL"}
	return c
}

// ConfigureArgs returns the cmake argument list Configure would use.
// Project args always come last, in the order given.
func (c *CMake) ConfigureArgs(args ...string) []string {
	cmakeArgs := []string{"-G" + Generator}
	if c.installDir != "" {
		cmakeArgs = append(cmakeArgs, "-DCMAKE_INSTALL_PREFIX="+c.installDir)
	}
	cmakeArgs = append(cmakeArgs, c.sourceDir)
	cmakeArgs = append(cmakeArgs, c.definesArgs()...)
	return append(cmakeArgs, args...)
}

// Configure runs cmake inside the build directory to generate Makefiles.
func (c *CMake) Configure(ctx context.Context, args ...string) error {
	if err := os.MkdirAll(c.buildDir, 0o755); err != nil {
		return err
	}
	return c.run(ctx, "cmake", c.ConfigureArgs(args...))
}

// Build runs "make --quiet -j<jobs>" in the build directory.
func (c *CMake) Build(ctx context.Context, args ...string) error {
	makeArgs := []string{"--quiet", "-j" + strconv.Itoa(c.jobs)}
	return c.run(ctx, "make", append(makeArgs, args...))
}

// Install runs "make --quiet install" in the build directory.
func (c *CMake) Install(ctx context.Context, args ...string) error {
	makeArgs := []string{"--quiet", "install"}
	return c.run(ctx, "make", append(makeArgs, args...))
}

// OutputDir returns the install dir if set, otherwise the build dir.
func (c *CMake) OutputDir() string {
	if c.installDir != "" {
		return c.installDir
	}
	return c.buildDir
}

func (c *CMake) run(ctx context.Context, bin string, args []string) error {
	return c.runner.Run(ctx, &buildsys.Command{
		Name: bin,
		Args: args,
		Dir:  c.buildDir,
		Env:  c.env,
	})
}

func (c *CMake) definesArgs() []string {
	if len(c.defines) == 0 {
		return nil
	}
	keys := make([]string, 0, len(c.defines))
	for k := range c.defines {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	args := make([]string, 0, len(keys))
	for _, k := range keys {
		def := c.defines[k]
		args = append(args, "-D"+k+":"+def.typeName+"="+def.value)
	}
	return args
}

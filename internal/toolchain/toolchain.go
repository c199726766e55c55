// Package toolchain describes the compiler environment and directory layout
// shared by every library build.
package toolchain

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/goplus/depbuild/pkgs/buildsys"
	"go.trai.ch/zerr"
)

// Toolchain is the install prefix, work directories and compiler settings
// used for all builds.
type Toolchain struct {
	InstallPrefix string

	// TarballPath holds downloaded tarballs, SrcPath unpacked sources and
	// BuildPath out-of-tree build directories.
	TarballPath string
	SrcPath     string
	BuildPath   string

	// Host is the configure triplet for cross builds; empty for native.
	Host string

	CC       string
	CXX      string
	CFLAGS   string
	CPPFLAGS string
	LDFLAGS  string

	Jobs int

	// Env is the environment every build tool runs with.
	Env []string
}

// Options configures New.
type Options struct {
	InstallPrefix string
	WorkDir       string
	Host          string
	CC            string
	CXX           string
	CFLAGS        string
	CPPFLAGS      string
	LDFLAGS       string
	Jobs          int
	// Environ is the base environment; nil means os.Environ().
	Environ []string
}

// New builds a Toolchain rooted at opts.WorkDir. The environment points
// pkg-config, the preprocessor and the linker at the install prefix.
func New(opts Options) (*Toolchain, error) {
	if opts.InstallPrefix == "" || opts.WorkDir == "" {
		return nil, zerr.New("toolchain: install prefix and work dir are required")
	}
	prefix, err := filepath.Abs(opts.InstallPrefix)
	if err != nil {
		return nil, err
	}
	work, err := filepath.Abs(opts.WorkDir)
	if err != nil {
		return nil, err
	}
	jobs := opts.Jobs
	if jobs <= 0 {
		jobs = buildsys.DefaultJobs
	}
	tc := &Toolchain{
		InstallPrefix: prefix,
		TarballPath:   filepath.Join(work, "tarballs"),
		SrcPath:       filepath.Join(work, "src"),
		BuildPath:     filepath.Join(work, "build"),
		Host:          opts.Host,
		CC:            opts.CC,
		CXX:           opts.CXX,
		CFLAGS:        opts.CFLAGS,
		CPPFLAGS:      joinFlags("-isystem "+filepath.Join(prefix, "include"), opts.CPPFLAGS),
		LDFLAGS:       joinFlags("-L"+filepath.Join(prefix, "lib"), opts.LDFLAGS),
		Jobs:          jobs,
	}

	base := opts.Environ
	if base == nil {
		base = os.Environ()
	}
	override := map[string]string{
		"PKG_CONFIG_LIBDIR": filepath.Join(prefix, "lib", "pkgconfig"),
		"CPPFLAGS":          tc.CPPFLAGS,
		"LDFLAGS":           tc.LDFLAGS,
	}
	if tc.CFLAGS != "" {
		override["CFLAGS"] = tc.CFLAGS
		override["CXXFLAGS"] = tc.CFLAGS
	}
	if tc.CC != "" {
		override["CC"] = tc.CC
	}
	if tc.CXX != "" {
		override["CXX"] = tc.CXX
	}
	tc.Env = buildsys.MergeEnv(base, override)
	return tc, nil
}

// Cross reports whether the toolchain targets another host.
func (tc *Toolchain) Cross() bool {
	return tc.Host != ""
}

// Options returns driver options for a build of src in build.
func (tc *Toolchain) Options(src, build string, runner buildsys.Runner) buildsys.Options {
	return buildsys.Options{
		SourceDir:  src,
		BuildDir:   build,
		InstallDir: tc.InstallPrefix,
		Env:        tc.Env,
		Jobs:       tc.Jobs,
		Runner:     runner,
	}
}

// MakeBuildPath recreates an empty BuildPath/base and returns it.
func (tc *Toolchain) MakeBuildPath(base string) (string, error) {
	path := filepath.Join(tc.BuildPath, base)
	if err := os.RemoveAll(path); err != nil {
		return "", err
	}
	if err := os.MkdirAll(path, 0o755); err != nil {
		return "", err
	}
	return path, nil
}

func joinFlags(flags ...string) string {
	var parts []string
	for _, f := range flags {
		if f = strings.TrimSpace(f); f != "" {
			parts = append(parts, f)
		}
	}
	return strings.Join(parts, " ")
}

package build

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/goplus/depbuild/internal/project"
	"github.com/goplus/depbuild/pkgs/archive"
	"github.com/goplus/depbuild/pkgs/buildsys"
	"github.com/goplus/depbuild/pkgs/buildsys/autotools"
	"github.com/goplus/depbuild/pkgs/buildsys/cmake"
	"go.trai.ch/zerr"
)

type recipeFunc func(ctx context.Context, lib *project.Descriptor, tarball string) error

func (b *Builder) recipe(lib *project.Descriptor) recipeFunc {
	switch lib.Kind {
	case project.CMake:
		return b.buildCMake
	case project.FFmpeg:
		return b.buildFFmpeg
	case project.Zlib:
		return b.buildZlib
	case project.Boost:
		return b.buildBoost
	default:
		return b.buildAutotools
	}
}

// unpack extracts the tarball into the source directory, or into the
// build directory for in-tree builds.
func (b *Builder) unpack(ctx context.Context, lib *project.Descriptor, tarball string) (string, error) {
	parent := b.tc.SrcPath
	if !lib.OutOfTree() {
		parent = b.tc.BuildPath
	}
	return archive.UntarWith(ctx, b.extractor, tarball, parent, lib.Base)
}

// driveAll runs configure, build and install in order.
func driveAll(ctx context.Context, bs buildsys.BuildSystem, args []string) error {
	if err := bs.Configure(ctx, args...); err != nil {
		return err
	}
	if err := bs.Build(ctx); err != nil {
		return err
	}
	return bs.Install(ctx)
}

func (b *Builder) buildCMake(ctx context.Context, lib *project.Descriptor, tarball string) error {
	src, err := b.unpack(ctx, lib, tarball)
	if err != nil {
		return err
	}
	build, err := b.tc.MakeBuildPath(lib.Base)
	if err != nil {
		return err
	}
	c := cmake.New(b.tc.Options(src, build, b.runner))
	b.cmakeDefines(c)
	return driveAll(ctx, c, lib.Args)
}

// cmakeDefines passes the configured compilers to cmake and, for cross
// builds, the target system. find_package then only searches the prefix.
func (b *Builder) cmakeDefines(c *cmake.CMake) {
	if b.tc.CC != "" {
		c.Define("CMAKE_C_COMPILER", b.tc.CC)
	}
	if b.tc.CXX != "" {
		c.Define("CMAKE_CXX_COMPILER", b.tc.CXX)
	}
	if !b.tc.Cross() {
		return
	}
	arch, targetOS := splitTriplet(b.tc.Host)
	c.Define("CMAKE_SYSTEM_NAME", cmakeSystemNames[targetOS]).
		Define("CMAKE_SYSTEM_PROCESSOR", arch).
		Define("CMAKE_FIND_ROOT_PATH", b.tc.InstallPrefix).
		DefineBool("CMAKE_FIND_USE_PACKAGE_REGISTRY", false)
}

// cmakeSystemNames maps splitTriplet's target OS to CMAKE_SYSTEM_NAME.
var cmakeSystemNames = map[string]string{
	"linux":   "Linux",
	"android": "Android",
	"mingw32": "Windows",
	"darwin":  "Darwin",
}

func (b *Builder) buildAutotools(ctx context.Context, lib *project.Descriptor, tarball string) error {
	src, err := b.unpack(ctx, lib, tarball)
	if err != nil {
		return err
	}
	build, err := b.tc.MakeBuildPath(lib.Base)
	if err != nil {
		return err
	}
	a := autotools.New(b.tc.Options(src, build, b.runner)).Host(b.tc.Host)
	if lib.Autogen {
		if err := a.Autogen(ctx); err != nil {
			return err
		}
	}
	return driveAll(ctx, a, lib.Args)
}

// ffmpegArgs returns the toolchain flags FFmpeg's configure understands,
// to be placed between --prefix and the library's own flags.
func (b *Builder) ffmpegArgs() []string {
	var args []string
	if b.tc.CC != "" {
		args = append(args, "--cc="+b.tc.CC)
	}
	if b.tc.CXX != "" {
		args = append(args, "--cxx="+b.tc.CXX)
	}
	cflags := b.tc.CPPFLAGS
	if b.tc.CFLAGS != "" {
		cflags = b.tc.CFLAGS + " " + cflags
	}
	if cflags != "" {
		args = append(args, "--extra-cflags="+cflags)
	}
	if b.tc.LDFLAGS != "" {
		args = append(args, "--extra-ldflags="+b.tc.LDFLAGS)
	}
	if b.tc.Cross() {
		arch, targetOS := splitTriplet(b.tc.Host)
		args = append(args, "--enable-cross-compile", "--arch="+arch, "--target-os="+targetOS)
	}
	return args
}

func (b *Builder) buildFFmpeg(ctx context.Context, lib *project.Descriptor, tarball string) error {
	src, err := b.unpack(ctx, lib, tarball)
	if err != nil {
		return err
	}
	build, err := b.tc.MakeBuildPath(lib.Base)
	if err != nil {
		return err
	}
	args := append(b.ffmpegArgs(), lib.Args...)
	return driveAll(ctx, autotools.New(b.tc.Options(src, build, b.runner)), args)
}

// buildZlib runs zlib's own configure script in the source tree. It takes
// the cross compiler prefix from CHOST instead of --host; a CHOST already in
// the environment is left alone.
func (b *Builder) buildZlib(ctx context.Context, lib *project.Descriptor, tarball string) error {
	src, err := b.unpack(ctx, lib, tarball)
	if err != nil {
		return err
	}
	opts := b.tc.Options(src, "", b.runner)
	if _, set := buildsys.LookupEnv(opts.Env, "CHOST"); b.tc.Cross() && !set {
		opts.Env = buildsys.MergeEnv(opts.Env, map[string]string{"CHOST": b.tc.Host})
	}
	args := append([]string{"--static"}, lib.Args...)
	return driveAll(ctx, autotools.New(opts), args)
}

// buildBoost installs the headers only; depbuild uses header-only parts
// of boost.
func (b *Builder) buildBoost(ctx context.Context, lib *project.Descriptor, tarball string) error {
	src, err := b.unpack(ctx, lib, tarball)
	if err != nil {
		return err
	}
	dest := filepath.Join(b.tc.InstallPrefix, "include", "boost")
	if err := os.RemoveAll(dest); err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return err
	}
	if err := os.CopyFS(dest, os.DirFS(filepath.Join(src, "boost"))); err != nil {
		return zerr.With(zerr.Wrap(err, "copy boost headers"), "dest", dest)
	}
	return nil
}

// splitTriplet maps a configure triplet such as aarch64-linux-android to
// FFmpeg's --arch and --target-os values.
func splitTriplet(host string) (arch, targetOS string) {
	arch, _, _ = strings.Cut(host, "-")
	switch {
	case strings.Contains(host, "android"):
		targetOS = "android"
	case strings.Contains(host, "mingw"), strings.Contains(host, "windows"):
		targetOS = "mingw32"
	case strings.Contains(host, "darwin"), strings.Contains(host, "apple"):
		targetOS = "darwin"
	default:
		targetOS = "linux"
	}
	return arch, targetOS
}

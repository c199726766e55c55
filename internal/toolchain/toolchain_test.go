package toolchain

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/goplus/depbuild/pkgs/buildsys"
)

func TestNew(t *testing.T) {
	root := t.TempDir()
	prefix := filepath.Join(root, "root")
	tc, err := New(Options{
		InstallPrefix: prefix,
		WorkDir:       filepath.Join(root, "work"),
		CC:            "clang",
		CFLAGS:        "-O2",
		LDFLAGS:       "-static",
		Environ:       []string{"PATH=/usr/bin", "CC=gcc"},
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	if tc.Jobs != buildsys.DefaultJobs {
		t.Errorf("Jobs = %d, want %d", tc.Jobs, buildsys.DefaultJobs)
	}
	if want := filepath.Join(root, "work", "tarballs"); tc.TarballPath != want {
		t.Errorf("TarballPath = %q, want %q", tc.TarballPath, want)
	}

	want := map[string]string{
		"PATH":              "/usr/bin",
		"CC":                "clang",
		"CFLAGS":            "-O2",
		"CXXFLAGS":          "-O2",
		"PKG_CONFIG_LIBDIR": filepath.Join(prefix, "lib", "pkgconfig"),
		"CPPFLAGS":          "-isystem " + filepath.Join(prefix, "include"),
		"LDFLAGS":           "-L" + filepath.Join(prefix, "lib") + " -static",
	}
	for k, v := range want {
		got, ok := buildsys.LookupEnv(tc.Env, k)
		if !ok || got != v {
			t.Errorf("%s = %q, want %q", k, got, v)
		}
	}
	if _, ok := buildsys.LookupEnv(tc.Env, "CXX"); ok {
		t.Error("CXX should not be set")
	}
	if tc.Cross() {
		t.Error("native toolchain reports Cross")
	}
}

func TestNewRequiresDirs(t *testing.T) {
	if _, err := New(Options{WorkDir: "w"}); err == nil {
		t.Error("expected error without install prefix")
	}
	if _, err := New(Options{InstallPrefix: "p"}); err == nil {
		t.Error("expected error without work dir")
	}
}

func TestMakeBuildPath(t *testing.T) {
	root := t.TempDir()
	tc, err := New(Options{InstallPrefix: filepath.Join(root, "p"), WorkDir: root, Environ: []string{}})
	if err != nil {
		t.Fatal(err)
	}
	stale := filepath.Join(tc.BuildPath, "curl-7.57.0", "Makefile")
	if err := os.MkdirAll(filepath.Dir(stale), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(stale, nil, 0o644); err != nil {
		t.Fatal(err)
	}

	path, err := tc.MakeBuildPath("curl-7.57.0")
	if err != nil {
		t.Fatalf("MakeBuildPath: %v", err)
	}
	entries, err := os.ReadDir(path)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 0 {
		t.Errorf("build path not empty: %v", entries)
	}
}

func TestOptions(t *testing.T) {
	root := t.TempDir()
	tc, err := New(Options{InstallPrefix: root, WorkDir: root, Jobs: 3, Environ: []string{}})
	if err != nil {
		t.Fatal(err)
	}
	o := tc.Options("s", "b", nil)
	if o.InstallDir != tc.InstallPrefix || o.Jobs != 3 || o.SourceDir != "s" || o.BuildDir != "b" {
		t.Errorf("unexpected options %+v", o)
	}
}

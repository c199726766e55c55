package archive

import (
	"archive/tar"
	"bytes"
	"compress/gzip"
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/goplus/depbuild/pkgs/buildsys"
	"github.com/goplus/depbuild/pkgs/buildsys/mocks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ulikunitz/xz"
	"go.uber.org/mock/gomock"
)

type entry struct {
	name     string
	body     string
	typeflag byte
	linkname string
}

func writeTar(t *testing.T, w io.Writer, entries []entry) {
	t.Helper()
	tw := tar.NewWriter(w)
	for _, e := range entries {
		hdr := &tar.Header{Name: e.name, Typeflag: e.typeflag, Linkname: e.linkname, Mode: 0o644}
		switch e.typeflag {
		case tar.TypeDir:
			hdr.Mode = 0o755
		case tar.TypeReg:
			hdr.Size = int64(len(e.body))
		}
		require.NoError(t, tw.WriteHeader(hdr))
		if e.typeflag == tar.TypeReg {
			_, err := tw.Write([]byte(e.body))
			require.NoError(t, err)
		}
	}
	require.NoError(t, tw.Close())
}

func soundioEntries() []entry {
	return []entry{
		{name: "libsoundio-master/", typeflag: tar.TypeDir},
		{name: "libsoundio-master/CMakeLists.txt", body: "project(libsoundio)\n", typeflag: tar.TypeReg},
		{name: "libsoundio-master/src/", typeflag: tar.TypeDir},
		{name: "libsoundio-master/src/soundio.c", body: "int x;\n", typeflag: tar.TypeReg},
		{name: "libsoundio-master/LINK", typeflag: tar.TypeSymlink, linkname: "CMakeLists.txt"},
	}
}

func makeTarGz(t *testing.T, dir string, entries []entry) string {
	t.Helper()
	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	writeTar(t, zw, entries)
	require.NoError(t, zw.Close())
	path := filepath.Join(dir, "libsoundio.tar.gz")
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o644))
	return path
}

func TestUntarReplacesStaleDirectory(t *testing.T) {
	cache := t.TempDir()
	parent := filepath.Join(t.TempDir(), "build")
	tarball := makeTarGz(t, cache, soundioEntries())

	stale := filepath.Join(parent, "libsoundio-master", "stale.o")
	require.NoError(t, os.MkdirAll(filepath.Dir(stale), 0o755))
	require.NoError(t, os.WriteFile(stale, []byte("old"), 0o644))

	for _, x := range []Extractor{DefaultExtractor(nil), NativeExtractor{}} {
		path, err := UntarWith(context.Background(), x, tarball, parent, "libsoundio-master")
		require.NoError(t, err)
		assert.Equal(t, filepath.Join(parent, "libsoundio-master"), path)
		assert.NoFileExists(t, stale)

		data, err := os.ReadFile(filepath.Join(path, "src", "soundio.c"))
		require.NoError(t, err)
		assert.Equal(t, "int x;\n", string(data))
	}
}

func TestUntarIdempotent(t *testing.T) {
	tarball := makeTarGz(t, t.TempDir(), soundioEntries())
	parent := t.TempDir()

	list := func(root string) []string {
		var names []string
		require.NoError(t, filepath.Walk(root, func(p string, _ os.FileInfo, err error) error {
			require.NoError(t, err)
			rel, _ := filepath.Rel(root, p)
			names = append(names, rel)
			return nil
		}))
		return names
	}

	first, err := Untar(context.Background(), tarball, parent, "libsoundio-master")
	require.NoError(t, err)
	before := list(first)

	second, err := Untar(context.Background(), tarball, parent, "libsoundio-master")
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Equal(t, before, list(second))
}

func TestUntarCreatesParent(t *testing.T) {
	tarball := makeTarGz(t, t.TempDir(), soundioEntries())
	parent := filepath.Join(t.TempDir(), "a", "b")
	path, err := UntarWith(context.Background(), NativeExtractor{}, tarball, parent, "libsoundio-master")
	require.NoError(t, err)
	assert.FileExists(t, filepath.Join(path, "CMakeLists.txt"))
	target, err := os.Readlink(filepath.Join(path, "LINK"))
	require.NoError(t, err)
	assert.Equal(t, "CMakeLists.txt", target)
}

func TestUntarInvalidBase(t *testing.T) {
	for _, base := range []string{"", ".", "..", "a/b"} {
		_, err := UntarWith(context.Background(), NativeExtractor{}, "x.tar", t.TempDir(), base)
		assert.ErrorIs(t, err, ErrInvalidBase, base)
	}
}

func TestNativeExtractXz(t *testing.T) {
	var buf bytes.Buffer
	xw, err := xz.NewWriter(&buf)
	require.NoError(t, err)
	writeTar(t, xw, []entry{
		{name: "libogg-1.3.2/", typeflag: tar.TypeDir},
		{name: "libogg-1.3.2/configure", body: "#!/bin/sh\n", typeflag: tar.TypeReg},
	})
	require.NoError(t, xw.Close())

	tarball := filepath.Join(t.TempDir(), "libogg-1.3.2.tar.xz")
	require.NoError(t, os.WriteFile(tarball, buf.Bytes(), 0o644))

	parent := t.TempDir()
	require.NoError(t, NativeExtractor{}.Extract(context.Background(), tarball, parent))
	assert.FileExists(t, filepath.Join(parent, "libogg-1.3.2", "configure"))
}

func TestNativeExtractPlainTarWithHardLink(t *testing.T) {
	var buf bytes.Buffer
	writeTar(t, &buf, []entry{
		{name: "fftw-3.3.6-pl2/a.h", body: "a", typeflag: tar.TypeReg},
		{name: "fftw-3.3.6-pl2/b.h", typeflag: tar.TypeLink, linkname: "fftw-3.3.6-pl2/a.h"},
	})
	tarball := filepath.Join(t.TempDir(), "fftw.tar")
	require.NoError(t, os.WriteFile(tarball, buf.Bytes(), 0o644))

	parent := t.TempDir()
	require.NoError(t, NativeExtractor{}.Extract(context.Background(), tarball, parent))
	data, err := os.ReadFile(filepath.Join(parent, "fftw-3.3.6-pl2", "b.h"))
	require.NoError(t, err)
	assert.Equal(t, "a", string(data))
}

func TestNativeExtractRejectsTraversal(t *testing.T) {
	var buf bytes.Buffer
	writeTar(t, &buf, []entry{{name: "../evil", body: "x", typeflag: tar.TypeReg}})
	tarball := filepath.Join(t.TempDir(), "evil.tar")
	require.NoError(t, os.WriteFile(tarball, buf.Bytes(), 0o644))

	parent := t.TempDir()
	err := NativeExtractor{}.Extract(context.Background(), tarball, parent)
	require.ErrorIs(t, err, ErrUnsafePath)
	assert.NoFileExists(t, filepath.Join(filepath.Dir(parent), "evil"))
}

func TestNativeExtractRejectsSymlinkEscape(t *testing.T) {
	outside := t.TempDir()
	tests := map[string][]entry{
		"absolute target": {
			{name: "pkg-1.0/esc", typeflag: tar.TypeSymlink, linkname: outside},
			{name: "pkg-1.0/esc/pwned", body: "x", typeflag: tar.TypeReg},
		},
		"relative target": {
			{name: "pkg-1.0/esc", typeflag: tar.TypeSymlink, linkname: "../../" + filepath.Base(outside)},
			{name: "pkg-1.0/esc/pwned", body: "x", typeflag: tar.TypeReg},
		},
		"through in-tree link": {
			{name: "pkg-1.0/sub/up", typeflag: tar.TypeSymlink, linkname: ".."},
			{name: "pkg-1.0/sub/esc", typeflag: tar.TypeSymlink, linkname: "up/../../" + filepath.Base(outside)},
			{name: "pkg-1.0/sub/esc/pwned", body: "x", typeflag: tar.TypeReg},
		},
		"hard link out": {
			{name: "pkg-1.0/h", typeflag: tar.TypeLink, linkname: "../outside"},
		},
	}
	for name, entries := range tests {
		t.Run(name, func(t *testing.T) {
			var buf bytes.Buffer
			writeTar(t, &buf, entries)
			tarball := filepath.Join(t.TempDir(), "esc.tar")
			require.NoError(t, os.WriteFile(tarball, buf.Bytes(), 0o644))

			// parent sits next to outside so "../../<outside>" from
			// parent/pkg-1.0 would land in it.
			parent := filepath.Join(filepath.Dir(outside), "parent-"+name)
			t.Cleanup(func() { os.RemoveAll(parent) })

			err := NativeExtractor{}.Extract(context.Background(), tarball, parent)
			require.Error(t, err)
			assert.NoFileExists(t, filepath.Join(outside, "pwned"))
		})
	}
}

func TestNativeExtractFileUnderInTreeSymlink(t *testing.T) {
	var buf bytes.Buffer
	writeTar(t, &buf, []entry{
		{name: "pkg-1.0/real/", typeflag: tar.TypeDir},
		{name: "pkg-1.0/alias", typeflag: tar.TypeSymlink, linkname: "real"},
		{name: "pkg-1.0/alias/f.h", body: "f", typeflag: tar.TypeReg},
	})
	tarball := filepath.Join(t.TempDir(), "pkg.tar")
	require.NoError(t, os.WriteFile(tarball, buf.Bytes(), 0o644))

	parent := t.TempDir()
	require.NoError(t, NativeExtractor{}.Extract(context.Background(), tarball, parent))
	data, err := os.ReadFile(filepath.Join(parent, "pkg-1.0", "real", "f.h"))
	require.NoError(t, err)
	assert.Equal(t, "f", string(data))
}

func TestTarExtractorArgs(t *testing.T) {
	ctrl := gomock.NewController(t)
	runner := mocks.NewMockRunner(ctrl)
	runner.EXPECT().Run(gomock.Any(), &buildsys.Command{
		Name: "/usr/bin/tar",
		Args: []string{"xfC", "/cache/libsoundio.tar.gz", "/build"},
	}).Return(nil)

	x := &TarExtractor{Path: "/usr/bin/tar", Runner: runner}
	require.NoError(t, x.Extract(context.Background(), "/cache/libsoundio.tar.gz", "/build"))
}

func TestUntarExtractorFailure(t *testing.T) {
	ctrl := gomock.NewController(t)
	runner := mocks.NewMockRunner(ctrl)
	runner.EXPECT().Run(gomock.Any(), gomock.Any()).Return(buildsys.ErrCommandFailed)

	parent := t.TempDir()
	_, err := UntarWith(context.Background(), &TarExtractor{Path: "tar", Runner: runner},
		"/cache/libsoundio.tar.gz", parent, "libsoundio-master")
	require.ErrorIs(t, err, buildsys.ErrCommandFailed)
}

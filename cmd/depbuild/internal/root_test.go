package internal

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/goplus/depbuild/internal/project"
	"github.com/mitchellh/go-homedir"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// resetFlags restores every flag to its default, since rootCmd is shared
// between tests.
func resetFlags(cmd *cobra.Command) {
	reset := func(f *pflag.Flag) {
		_ = f.Value.Set(f.DefValue)
		f.Changed = false
	}
	cmd.Flags().VisitAll(reset)
	cmd.PersistentFlags().VisitAll(reset)
	for _, c := range cmd.Commands() {
		resetFlags(c)
	}
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	resetFlags(rootCmd)
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(io.Discard)
	rootCmd.SetArgs(args)
	err := rootCmd.ExecuteContext(context.Background())
	return out.String(), err
}

// sandbox isolates HOME and the working directory and returns a work dir.
func sandbox(t *testing.T) string {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)
	homedir.DisableCache = true
	t.Cleanup(func() { homedir.DisableCache = false })
	wd := t.TempDir()
	t.Chdir(wd)
	return filepath.Join(wd, "work")
}

func TestListShowsInstallState(t *testing.T) {
	work := sandbox(t)
	prefix := filepath.Join(work, "root")
	marker := filepath.Join(prefix, "lib", "libogg.a")
	require.NoError(t, os.MkdirAll(filepath.Dir(marker), 0o755))
	require.NoError(t, os.WriteFile(marker, nil, 0o644))

	out, err := execute(t, "list", "--work-dir", work)
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 1+len(project.Default().Libs()))
	assert.Equal(t, []string{"NAME", "VERSION", "KIND", "STATUS"}, strings.Fields(lines[0]))
	assert.Equal(t, []string{"libogg", "1.3.2", "autotools", "installed"}, strings.Fields(lines[1]))
	assert.Equal(t, []string{"libvorbis", "1.3.5", "autotools", "-"}, strings.Fields(lines[2]))
	assert.Equal(t, []string{"fftw", "3.3.6-pl2", "autotools", "-"}, strings.Fields(lines[len(lines)-1]))
}

func TestListMergesLibsFile(t *testing.T) {
	work := sandbox(t)
	libs := filepath.Join(t.TempDir(), "libs.yaml")
	require.NoError(t, os.WriteFile(libs, []byte(`
- url: https://example.com/expat-2.2.5.tar.bz2
  kind: cmake
  checksum: 5c3a34309d8b98640827e5d0991a4015
  installed: lib/libexpat.a
`), 0o644))

	out, err := execute(t, "list", "--work-dir", work, "--libs-file", libs)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	assert.Equal(t, []string{"expat", "2.2.5", "cmake", "-"}, strings.Fields(lines[len(lines)-1]))
}

func TestBuildUnknownLibrary(t *testing.T) {
	work := sandbox(t)
	_, err := execute(t, "build", "--work-dir", work, "libnope")
	assert.ErrorIs(t, err, project.ErrUnknownLibrary)
}

func TestFetchWithLibsFile(t *testing.T) {
	work := sandbox(t)
	content := []byte("not really a tarball")
	sum := sha256.Sum256(content)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(content)
	}))
	defer srv.Close()

	libs := filepath.Join(t.TempDir(), "libs.yaml")
	require.NoError(t, os.WriteFile(libs, []byte(`
- url: `+srv.URL+`/files/foo-1.0.tar.gz
  checksum: `+hex.EncodeToString(sum[:])+`
  installed: lib/libfoo.a
`), 0o644))

	out, err := execute(t, "fetch", "--work-dir", work, "--libs-file", libs, "foo")
	require.NoError(t, err)

	want := filepath.Join(work, "tarballs", "foo-1.0.tar.gz")
	assert.Equal(t, []string{"foo", want}, strings.Fields(out))
	got, err := os.ReadFile(want)
	require.NoError(t, err)
	assert.Equal(t, content, got)
}

func TestClean(t *testing.T) {
	work := sandbox(t)
	for _, dir := range []string{"src/a-1", "build/a-1", "tarballs"} {
		require.NoError(t, os.MkdirAll(filepath.Join(work, dir), 0o755))
	}

	_, err := execute(t, "clean", "--work-dir", work)
	require.NoError(t, err)
	assert.NoDirExists(t, filepath.Join(work, "src"))
	assert.NoDirExists(t, filepath.Join(work, "build"))
	assert.DirExists(t, filepath.Join(work, "tarballs"))

	_, err = execute(t, "clean", "--work-dir", work, "--all")
	require.NoError(t, err)
	assert.NoDirExists(t, filepath.Join(work, "tarballs"))
}

func TestConfigFileFlag(t *testing.T) {
	work := sandbox(t)
	conf := filepath.Join(t.TempDir(), "conf.yaml")
	require.NoError(t, os.WriteFile(conf, []byte("work_dir: "+work+"\njobs: 3\n"), 0o644))

	_, err := execute(t, "clean", "--config", conf)
	require.NoError(t, err)
	assert.Equal(t, work, cfg.WorkDir)
	assert.Equal(t, 3, cfg.Jobs)
	assert.Equal(t, filepath.Join(work, "root"), cfg.Prefix)
}

// Package archive unpacks source tarballs into a fresh directory.
package archive

import (
	"context"
	"errors"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/goplus/depbuild/pkgs/buildsys"
	"github.com/sirupsen/logrus"
	"go.trai.ch/zerr"
)

// Extractor unpacks tarball into dir.
type Extractor interface {
	Extract(ctx context.Context, tarball, dir string) error
}

// TarExtractor runs the system tar binary.
type TarExtractor struct {
	// Path is the tar executable.
	Path   string
	Runner buildsys.Runner
}

// Extract runs "tar xfC <tarball> <dir>".
func (e *TarExtractor) Extract(ctx context.Context, tarball, dir string) error {
	runner := e.Runner
	if runner == nil {
		runner = buildsys.NewExecRunner()
	}
	return runner.Run(ctx, &buildsys.Command{
		Name: e.Path,
		Args: []string{"xfC", tarball, dir},
	})
}

// DefaultExtractor returns a TarExtractor when tar is on PATH and the
// native extractor otherwise.
func DefaultExtractor(runner buildsys.Runner) Extractor {
	if path, err := exec.LookPath("tar"); err == nil {
		return &TarExtractor{Path: path, Runner: runner}
	}
	logrus.Debug("tar not found on PATH, using built-in extractor")
	return NativeExtractor{}
}

// Untar removes parent/base, makes sure parent exists, extracts tarball
// into parent and returns parent/base.
//
// The tarball is expected to contain a single top-level directory named base.
func Untar(ctx context.Context, tarball, parent, base string) (string, error) {
	return UntarWith(ctx, DefaultExtractor(nil), tarball, parent, base)
}

// UntarWith is Untar with an explicit extractor.
func UntarWith(ctx context.Context, x Extractor, tarball, parent, base string) (string, error) {
	if base == "" || base != filepath.Base(base) || base == "." || base == ".." {
		return "", zerr.With(ErrInvalidBase, "base", base)
	}
	path := filepath.Join(parent, base)
	// os.RemoveAll reports nil when path does not exist.
	if err := os.RemoveAll(path); err != nil {
		return "", zerr.With(zerr.Wrap(err, "remove stale directory"), "path", path)
	}
	if err := os.MkdirAll(parent, 0o755); err != nil {
		return "", zerr.With(zerr.Wrap(err, "create parent directory"), "path", parent)
	}
	if err := x.Extract(ctx, tarball, parent); err != nil {
		return "", zerr.With(zerr.Wrap(err, "extract"), "tarball", tarball)
	}
	return path, nil
}

// ErrInvalidBase is returned when base is not a single path element.
var ErrInvalidBase = errors.New("invalid base directory name")

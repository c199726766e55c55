package archive

import (
	"archive/tar"
	"bufio"
	"bytes"
	"compress/bzip2"
	"compress/gzip"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/ulikunitz/xz"
	"go.trai.ch/zerr"
)

// ErrUnsafePath is returned for archive entries that would land outside the
// destination directory.
var ErrUnsafePath = errors.New("archive entry escapes destination")

var (
	gzipMagic  = []byte{0x1f, 0x8b}
	bzip2Magic = []byte("BZh")
	xzMagic    = []byte{0xfd, '7', 'z', 'X', 'Z', 0x00}
)

// NativeExtractor unpacks tar, tar.gz, tar.bz2 and tar.xz archives without
// an external tar binary. The compression is detected from magic bytes.
type NativeExtractor struct{}

func (NativeExtractor) Extract(ctx context.Context, tarball, dir string) error {
	f, err := os.Open(tarball)
	if err != nil {
		return err
	}
	defer f.Close()

	r, err := decompress(bufio.NewReader(f))
	if err != nil {
		return zerr.With(zerr.Wrap(err, "decompress"), "tarball", tarball)
	}
	return extractTar(ctx, tar.NewReader(r), dir)
}

func decompress(br *bufio.Reader) (io.Reader, error) {
	head, err := br.Peek(len(xzMagic))
	if err != nil && !errors.Is(err, io.EOF) {
		return nil, err
	}
	switch {
	case bytes.HasPrefix(head, gzipMagic):
		return gzip.NewReader(br)
	case bytes.HasPrefix(head, bzip2Magic):
		return bzip2.NewReader(br), nil
	case bytes.HasPrefix(head, xzMagic):
		return xz.NewReader(br)
	default:
		return br, nil
	}
}

// extractTar writes the entries of tr below dir. Files are created through
// an os.Root, and link entries must resolve inside dir.
func extractTar(ctx context.Context, tr *tar.Reader, dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	root, err := os.OpenRoot(dir)
	if err != nil {
		return err
	}
	defer root.Close()
	realDir, err := filepath.EvalSymlinks(dir)
	if err != nil {
		return err
	}

	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		hdr, err := tr.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
		name, err := entryName(hdr.Name)
		if err != nil {
			return err
		}

		switch hdr.Typeflag {
		case tar.TypeDir:
			if err := mkdirAll(root, name); err != nil {
				return err
			}
		case tar.TypeReg:
			if err := writeFile(root, name, tr, os.FileMode(hdr.Mode).Perm()); err != nil {
				return err
			}
		case tar.TypeSymlink:
			parent, err := realParent(root, realDir, name)
			if err != nil {
				return err
			}
			if filepath.IsAbs(hdr.Linkname) || !within(realDir, filepath.Join(parent, filepath.FromSlash(hdr.Linkname))) {
				return zerr.With(zerr.With(ErrUnsafePath, "entry", hdr.Name), "link", hdr.Linkname)
			}
			link := filepath.Join(parent, filepath.Base(name))
			if err := os.Symlink(hdr.Linkname, link); err != nil {
				return err
			}
			if target, err := filepath.EvalSymlinks(link); err == nil && !within(realDir, target) {
				os.Remove(link)
				return zerr.With(zerr.With(ErrUnsafePath, "entry", hdr.Name), "link", hdr.Linkname)
			}
		case tar.TypeLink:
			old, err := entryName(hdr.Linkname)
			if err != nil {
				return err
			}
			oldname, err := filepath.EvalSymlinks(filepath.Join(realDir, old))
			if err != nil {
				return err
			}
			if !within(realDir, oldname) {
				return zerr.With(zerr.With(ErrUnsafePath, "entry", hdr.Name), "link", hdr.Linkname)
			}
			parent, err := realParent(root, realDir, name)
			if err != nil {
				return err
			}
			if err := os.Link(oldname, filepath.Join(parent, filepath.Base(name))); err != nil {
				return err
			}
		case tar.TypeXGlobalHeader, tar.TypeXHeader:
			// pax metadata, e.g. the commit id in GitHub archives.
		default:
			return fmt.Errorf("unsupported tar entry type %q for %s", hdr.Typeflag, hdr.Name)
		}
	}
}

// entryName returns name as a local relative path. "./" yields ".".
func entryName(name string) (string, error) {
	clean := filepath.Clean(filepath.FromSlash(name))
	if clean == "." {
		return clean, nil
	}
	if !filepath.IsLocal(clean) {
		return "", zerr.With(ErrUnsafePath, "entry", name)
	}
	return clean, nil
}

// mkdirAll creates name and its parents inside root.
func mkdirAll(root *os.Root, name string) error {
	if name == "." {
		return nil
	}
	var path string
	for _, part := range strings.Split(name, string(filepath.Separator)) {
		path = filepath.Join(path, part)
		if err := root.Mkdir(path, 0o755); err != nil && !errors.Is(err, fs.ErrExist) {
			return zerr.With(err, "entry", name)
		}
	}
	return nil
}

// realParent creates the parent directory of name and returns its resolved
// path, which must lie inside realDir.
func realParent(root *os.Root, realDir, name string) (string, error) {
	if name == "." {
		return "", zerr.With(ErrUnsafePath, "entry", name)
	}
	dir := filepath.Dir(name)
	if err := mkdirAll(root, dir); err != nil {
		return "", err
	}
	parent, err := filepath.EvalSymlinks(filepath.Join(realDir, dir))
	if err != nil {
		return "", err
	}
	if !within(realDir, parent) {
		return "", zerr.With(ErrUnsafePath, "entry", name)
	}
	return parent, nil
}

func writeFile(root *os.Root, name string, r io.Reader, mode os.FileMode) error {
	if name == "." {
		return zerr.With(ErrUnsafePath, "entry", name)
	}
	if err := mkdirAll(root, filepath.Dir(name)); err != nil {
		return err
	}
	f, err := root.OpenFile(name, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, mode|0o200)
	if err != nil {
		return zerr.With(err, "entry", name)
	}
	if _, err := io.Copy(f, r); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// within reports whether path is base or below it.
func within(base, path string) bool {
	rel, err := filepath.Rel(base, path)
	return err == nil && rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)) && !filepath.IsAbs(rel)
}

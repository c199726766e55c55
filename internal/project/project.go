// Package project defines library descriptors: where a third-party library's
// source comes from, how to check it, how to build it and how to tell that it
// is already installed.
package project

import (
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"regexp"
	"slices"

	"go.trai.ch/zerr"
)

// Kind selects the build recipe for a descriptor.
type Kind string

const (
	Autotools Kind = "autotools"
	CMake     Kind = "cmake"
	FFmpeg    Kind = "ffmpeg"
	Zlib      Kind = "zlib"
	Boost     Kind = "boost"
)

// Kinds lists every supported Kind.
var Kinds = []Kind{Autotools, CMake, FFmpeg, Zlib, Boost}

var (
	ErrUnknownLibrary = errors.New("unknown library")
	ErrUnknownKind    = errors.New("unknown build kind")
	ErrInvalid        = errors.New("invalid descriptor")
)

var (
	archiveRe     = regexp.MustCompile(`^(.+)\.(tar(\.(gz|bz2|xz|lzma))?|tgz|zip)$`)
	nameVersionRe = regexp.MustCompile(`^([-\w]+)-(\d[\d.]*[a-z]?)$`)
)

// Descriptor is the static record of one library.
type Descriptor struct {
	Name    string `yaml:"name"`
	Version string `yaml:"version"`
	// Base is the top-level directory the tarball unpacks into.
	Base     string `yaml:"base"`
	Kind     Kind   `yaml:"kind"`
	URL      string `yaml:"url"`
	Checksum string `yaml:"checksum"`
	// Installed is a path relative to the install prefix that exists once
	// the library is installed.
	Installed string   `yaml:"installed"`
	Args      []string `yaml:"args"`
	// Autogen regenerates configure before building (autotools only).
	Autogen bool `yaml:"autogen"`
}

// Option overrides a derived descriptor field.
type Option func(*Descriptor)

// WithName overrides the library name.
func WithName(name string) Option { return func(d *Descriptor) { d.Name = name } }

// WithVersion overrides the library version.
func WithVersion(v string) Option { return func(d *Descriptor) { d.Version = v } }

// WithBase overrides the top-level directory of the tarball.
func WithBase(base string) Option { return func(d *Descriptor) { d.Base = base } }

// WithAutogen enables the autotools regeneration step.
func WithAutogen() Option { return func(d *Descriptor) { d.Autogen = true } }

// New creates a descriptor. Base, Name and Version are derived from the URL
// unless overridden.
func New(kind Kind, url, checksum, installed string, args []string, opts ...Option) (*Descriptor, error) {
	d := &Descriptor{
		Kind:      kind,
		URL:       url,
		Checksum:  checksum,
		Installed: installed,
		Args:      args,
	}
	for _, opt := range opts {
		opt(d)
	}
	if err := d.complete(); err != nil {
		return nil, err
	}
	if err := d.Validate(); err != nil {
		return nil, err
	}
	return d, nil
}

// MustNew is like New but panics on error. It is used for the static table.
func MustNew(kind Kind, url, checksum, installed string, args []string, opts ...Option) *Descriptor {
	d, err := New(kind, url, checksum, installed, args, opts...)
	if err != nil {
		panic(err)
	}
	return d
}

// complete derives Base, Name and Version from the URL where unset.
func (d *Descriptor) complete() error {
	if d.Base == "" {
		m := archiveRe.FindStringSubmatch(path.Base(d.URL))
		if m == nil {
			return zerr.With(fmt.Errorf("%w: cannot derive base from url", ErrInvalid), "url", d.URL)
		}
		d.Base = m[1]
	}
	if d.Name == "" || d.Version == "" {
		m := nameVersionRe.FindStringSubmatch(d.Base)
		if m == nil {
			return zerr.With(fmt.Errorf("%w: cannot derive name and version", ErrInvalid), "base", d.Base)
		}
		if d.Name == "" {
			d.Name = m[1]
		}
		if d.Version == "" {
			d.Version = m[2]
		}
	}
	return nil
}

// Validate checks that d is buildable.
func (d *Descriptor) Validate() error {
	invalid := func(msg string) error {
		return zerr.With(fmt.Errorf("%w: %s", ErrInvalid, msg), "lib", d.Name)
	}
	switch {
	case d.Name == "":
		return invalid("missing name")
	case d.URL == "":
		return invalid("missing url")
	case !slices.Contains(Kinds, d.Kind):
		return zerr.With(zerr.With(ErrUnknownKind, "kind", string(d.Kind)), "lib", d.Name)
	case len(d.Checksum) != 32 && len(d.Checksum) != 64:
		return invalid("checksum must be md5 or sha256")
	case d.Installed == "" || filepath.IsAbs(d.Installed) || !filepath.IsLocal(d.Installed):
		return invalid("installed marker must be a relative path inside the prefix")
	case d.Base == "" || d.Base != filepath.Base(d.Base):
		return invalid("base must be a single directory name")
	case d.Autogen && d.Kind != Autotools:
		return invalid("autogen only applies to autotools")
	}
	return nil
}

// String returns "name@version".
func (d *Descriptor) String() string {
	return d.Name + "@" + d.Version
}

// MarkerPath returns the install marker under prefix.
func (d *Descriptor) MarkerPath(prefix string) string {
	return filepath.Join(prefix, filepath.FromSlash(d.Installed))
}

// IsInstalled reports whether the marker exists under prefix and is not
// older than tarball. A missing tarball only requires the marker to exist.
func (d *Descriptor) IsInstalled(prefix, tarball string) bool {
	marker, err := os.Stat(d.MarkerPath(prefix))
	if err != nil {
		return false
	}
	if tarball == "" {
		return true
	}
	src, err := os.Stat(tarball)
	if err != nil {
		return true
	}
	return !marker.ModTime().Before(src.ModTime())
}

// OutOfTree reports whether the library unpacks into the source directory
// and builds in a separate directory. zlib and boost unpack in-tree.
func (d *Descriptor) OutOfTree() bool {
	return d.Kind != Zlib && d.Kind != Boost
}

// Package build fetches, unpacks and builds library descriptors into the
// toolchain's install prefix, one after another.
package build

import (
	"context"
	"errors"
	"path/filepath"
	"time"

	"github.com/goplus/depbuild/internal/fetch"
	"github.com/goplus/depbuild/internal/lockedfile"
	"github.com/goplus/depbuild/internal/project"
	"github.com/goplus/depbuild/internal/toolchain"
	"github.com/goplus/depbuild/pkgs/archive"
	"github.com/goplus/depbuild/pkgs/buildsys"
	"github.com/sirupsen/logrus"
	"go.trai.ch/zerr"
)

// ErrMarkerMissing is returned when a build succeeded but did not produce
// the library's install marker.
var ErrMarkerMissing = errors.New("install marker missing after build")

// Options configures a Builder.
type Options struct {
	Toolchain *toolchain.Toolchain
	// Fetcher defaults to fetch.New(Toolchain.TarballPath).
	Fetcher *fetch.Fetcher
	// Runner defaults to buildsys.NewExecRunner().
	Runner buildsys.Runner
	// Extractor defaults to archive.DefaultExtractor.
	Extractor archive.Extractor
	// Force rebuilds libraries whose marker is already present.
	Force bool
	Log   logrus.FieldLogger
}

// Result reports what happened to one library.
type Result struct {
	Lib     *project.Descriptor
	Tarball string
	// Skipped is true when the library was already installed.
	Skipped bool
}

// Builder builds libraries into a single install prefix.
type Builder struct {
	tc        *toolchain.Toolchain
	fetcher   *fetch.Fetcher
	runner    buildsys.Runner
	extractor archive.Extractor
	force     bool
	log       logrus.FieldLogger
	now       func() time.Time
}

// NewBuilder creates a Builder.
func NewBuilder(opts Options) (*Builder, error) {
	if opts.Toolchain == nil {
		return nil, zerr.New("build: toolchain is required")
	}
	b := &Builder{
		tc:        opts.Toolchain,
		fetcher:   opts.Fetcher,
		runner:    opts.Runner,
		extractor: opts.Extractor,
		force:     opts.Force,
		log:       opts.Log,
		now:       time.Now,
	}
	if b.runner == nil {
		b.runner = buildsys.NewExecRunner()
	}
	if b.fetcher == nil {
		b.fetcher = fetch.New(b.tc.TarballPath)
		b.fetcher.Runner = b.runner
	}
	if b.extractor == nil {
		b.extractor = archive.DefaultExtractor(b.runner)
	}
	if b.log == nil {
		b.log = logrus.StandardLogger()
	}
	return b, nil
}

// Build builds libs in order. The first failure stops the run; results
// for the libraries handled before it are returned along with the error.
func (b *Builder) Build(ctx context.Context, libs []*project.Descriptor) ([]Result, error) {
	unlock, err := b.lockPrefix()
	if err != nil {
		return nil, err
	}
	defer unlock()

	cache, err := loadCache(b.tc.InstallPrefix)
	if err != nil {
		return nil, zerr.Wrap(err, "load build cache")
	}

	results := make([]Result, 0, len(libs))
	for _, lib := range libs {
		res, err := b.buildOne(ctx, lib, cache)
		if err != nil {
			return results, zerr.With(err, "lib", lib.Name)
		}
		results = append(results, res)
	}
	return results, nil
}

// lockPrefix takes the prefix lock, logging when another run holds it.
func (b *Builder) lockPrefix() (func(), error) {
	mu := lockedfile.MutexAt(filepath.Join(b.tc.InstallPrefix, stateDir, lockFile))
	unlock, ok, err := mu.TryLock()
	if err != nil {
		return nil, err
	}
	if ok {
		return unlock, nil
	}
	b.log.WithField("prefix", b.tc.InstallPrefix).Info("waiting for lock on prefix")
	return mu.Lock()
}

func (b *Builder) buildOne(ctx context.Context, lib *project.Descriptor, cache *buildCache) (Result, error) {
	log := b.log.WithField("lib", lib.String())
	res := Result{Lib: lib}

	tarball, err := b.fetcher.Fetch(ctx, lib.URL, lib.Checksum)
	if err != nil {
		return res, err
	}
	res.Tarball = tarball

	if !b.force && lib.IsInstalled(b.tc.InstallPrefix, tarball) {
		log.Info("already installed")
		res.Skipped = true
		return res, nil
	}

	log.Info("building")
	start := b.now()
	if err := b.recipe(lib)(ctx, lib, tarball); err != nil {
		return res, err
	}
	if !lib.IsInstalled(b.tc.InstallPrefix, "") {
		return res, zerr.With(ErrMarkerMissing, "marker", lib.MarkerPath(b.tc.InstallPrefix))
	}

	sum, err := tarballSum(tarball)
	if err != nil {
		return res, err
	}
	cache.set(lib.Name, &cacheEntry{
		Version:   lib.Version,
		URL:       lib.URL,
		Sum:       sum,
		BuildTime: b.now(),
	})
	if err := saveCache(b.tc.InstallPrefix, cache); err != nil {
		return res, zerr.Wrap(err, "save build cache")
	}
	log.WithField("elapsed", b.now().Sub(start).Round(time.Second)).Info("installed")
	return res, nil
}

// Status is the install state of one library.
type Status struct {
	Installed bool
	// BuildTime and Sum are set when depbuild recorded the build.
	BuildTime time.Time
	Sum       string
}

// Status reports the install state of lib in the toolchain prefix.
func (b *Builder) Status(lib *project.Descriptor) (Status, error) {
	st := Status{Installed: lib.IsInstalled(b.tc.InstallPrefix, "")}
	cache, err := loadCache(b.tc.InstallPrefix)
	if err != nil {
		return st, err
	}
	if entry, ok := cache.get(lib.Name); ok && entry.Version == lib.Version {
		st.BuildTime = entry.BuildTime
		st.Sum = entry.Sum
	}
	return st, nil
}

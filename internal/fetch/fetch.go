// Package fetch downloads source tarballs into a cache directory and
// verifies them against their md5 or sha256 checksum.
package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"sync"
	"time"

	"github.com/briandowns/spinner"
	"github.com/goplus/depbuild/pkgs/buildsys"
	"github.com/sirupsen/logrus"
	"go.trai.ch/zerr"
	"golang.org/x/sync/errgroup"
)

// DefaultConcurrency bounds FetchAll.
const DefaultConcurrency = 4

// ErrNameCollision is returned when two URLs map to the same tarball path.
var ErrNameCollision = errors.New("tarball name used by another url")

// Source is one tarball to fetch.
type Source struct {
	URL      string
	Checksum string
}

// Fetcher downloads tarballs into Dir.
type Fetcher struct {
	Dir        string
	HTTPClient *http.Client
	// Runner runs curl for URL schemes net/http does not speak (ftp).
	Runner buildsys.Runner
	// Progress shows a spinner on stderr while downloading.
	Progress bool
	Log      logrus.FieldLogger

	mu      sync.Mutex
	claimed map[string]string // tarball path -> url
}

// New creates a Fetcher storing tarballs in dir.
func New(dir string) *Fetcher {
	return &Fetcher{
		Dir:        dir,
		HTTPClient: &http.Client{},
		Runner:     buildsys.NewExecRunner(),
		Log:        logrus.StandardLogger(),
	}
}

// claim records that dest holds the tarball of rawURL for the lifetime of f.
func (f *Fetcher) claim(dest, rawURL string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if prev, ok := f.claimed[dest]; ok && prev != rawURL {
		return zerr.With(zerr.With(zerr.With(ErrNameCollision, "path", dest), "url", rawURL), "other", prev)
	}
	if f.claimed == nil {
		f.claimed = make(map[string]string)
	}
	f.claimed[dest] = rawURL
	return nil
}

// Path returns where the tarball for rawURL is stored.
func (f *Fetcher) Path(rawURL string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", zerr.With(zerr.Wrap(err, "parse url"), "url", rawURL)
	}
	base := path.Base(u.Path)
	if base == "." || base == "/" || base == "" {
		return "", zerr.With(zerr.New("url has no file name"), "url", rawURL)
	}
	return filepath.Join(f.Dir, base), nil
}

// Fetch returns the local path of the tarball at rawURL, downloading and
// verifying it first if it is not in the cache yet.
// Only verified files are ever stored under their final name.
func (f *Fetcher) Fetch(ctx context.Context, rawURL, checksum string) (string, error) {
	dest, err := f.Path(rawURL)
	if err != nil {
		return "", err
	}
	if err := f.claim(dest, rawURL); err != nil {
		return "", err
	}
	if _, err := os.Stat(dest); err == nil {
		return dest, nil
	}
	// Reject malformed checksums before spending time on the download.
	if _, err := NewHash(checksum); err != nil {
		return "", err
	}
	if err := os.MkdirAll(f.Dir, 0o755); err != nil {
		return "", err
	}

	log := f.logger().WithField("url", rawURL)
	log.Info("downloading")
	stop := f.startSpinner(filepath.Base(dest))
	tmp := dest + ".tmp"
	err = f.download(ctx, rawURL, tmp)
	stop()
	if err != nil {
		os.Remove(tmp)
		return "", err
	}
	if err := Verify(tmp, checksum); err != nil {
		os.Remove(tmp)
		return "", err
	}
	if err := os.Rename(tmp, dest); err != nil {
		return "", err
	}
	log.WithField("path", dest).Debug("verified")
	return dest, nil
}

// FetchAll fetches srcs concurrently and returns their paths in order.
// Sources sharing a URL are downloaded once; different URLs that map to
// the same tarball path are rejected before anything is downloaded.
func (f *Fetcher) FetchAll(ctx context.Context, srcs []Source) ([]string, error) {
	var unique []Source
	byURL := make(map[string]string, len(srcs))
	for _, src := range srcs {
		dest, err := f.Path(src.URL)
		if err != nil {
			return nil, err
		}
		if err := f.claim(dest, src.URL); err != nil {
			return nil, err
		}
		if _, ok := byURL[src.URL]; !ok {
			byURL[src.URL] = ""
			unique = append(unique, src)
		}
	}

	var mu sync.Mutex
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(DefaultConcurrency)
	for _, src := range unique {
		g.Go(func() error {
			p, err := f.Fetch(ctx, src.URL, src.Checksum)
			if err != nil {
				return err
			}
			mu.Lock()
			byURL[src.URL] = p
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	paths := make([]string, len(srcs))
	for i, src := range srcs {
		paths[i] = byURL[src.URL]
	}
	return paths, nil
}

func (f *Fetcher) download(ctx context.Context, rawURL, dest string) error {
	u, err := url.Parse(rawURL)
	if err != nil {
		return err
	}
	switch u.Scheme {
	case "http", "https":
		return f.httpGet(ctx, rawURL, dest)
	default:
		runner := f.Runner
		if runner == nil {
			runner = buildsys.NewExecRunner()
		}
		return runner.Run(ctx, &buildsys.Command{
			Name: "curl",
			Args: []string{"--fail", "--silent", "--show-error", "--location", "--output", dest, rawURL},
		})
	}
}

func (f *Fetcher) httpGet(ctx context.Context, rawURL, dest string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return err
	}
	client := f.HTTPClient
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return zerr.With(zerr.Wrap(err, "download"), "url", rawURL)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return zerr.With(fmt.Errorf("download %s: unexpected status: %s", rawURL, resp.Status), "status", resp.StatusCode)
	}

	out, err := os.Create(dest)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, resp.Body); err != nil {
		out.Close()
		return zerr.With(zerr.Wrap(err, "download"), "url", rawURL)
	}
	return out.Close()
}

func (f *Fetcher) startSpinner(name string) (stop func()) {
	if !f.Progress {
		return func() {}
	}
	s := spinner.New(spinner.CharSets[14], 100*time.Millisecond, spinner.WithWriter(os.Stderr))
	s.Suffix = " downloading " + name
	s.Start()
	return s.Stop
}

func (f *Fetcher) logger() logrus.FieldLogger {
	if f.Log == nil {
		return logrus.StandardLogger()
	}
	return f.Log
}

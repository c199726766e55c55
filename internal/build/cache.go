package build

import (
	"encoding/json"
	"errors"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"golang.org/x/mod/sumdb/dirhash"
)

// Prefix state layout:
//
//	<prefix>/
//	  .depbuild/
//	    .lock        # held for the duration of a build run
//	    cache.json   # maps library name → cacheEntry
//	  include/
//	  lib/
//	  ...
const (
	stateDir  = ".depbuild"
	cacheFile = "cache.json"
	lockFile  = ".lock"
)

// cacheEntry contains metadata about a single successful build.
type cacheEntry struct {
	Version string `json:"version"`
	URL     string `json:"url"`
	// Sum is the h1: hash of the tarball the library was built from.
	Sum       string    `json:"sum"`
	BuildTime time.Time `json:"build_time"`
}

// buildCache maps library names to their last successful build.
type buildCache struct {
	Cache map[string]*cacheEntry `json:"cache"`
}

func (c *buildCache) get(name string) (*cacheEntry, bool) {
	entry, ok := c.Cache[name]
	return entry, ok
}

func (c *buildCache) set(name string, entry *cacheEntry) {
	if c.Cache == nil {
		c.Cache = make(map[string]*cacheEntry)
	}
	c.Cache[name] = entry
}

func cachePath(prefix string) string {
	return filepath.Join(prefix, stateDir, cacheFile)
}

// loadCache reads the cache of prefix. A missing file is an empty cache.
func loadCache(prefix string) (*buildCache, error) {
	data, err := os.ReadFile(cachePath(prefix))
	if errors.Is(err, fs.ErrNotExist) {
		return &buildCache{}, nil
	}
	if err != nil {
		return nil, err
	}
	var cache buildCache
	if err := json.Unmarshal(data, &cache); err != nil {
		return nil, err
	}
	return &cache, nil
}

// saveCache writes the cache file of prefix.
func saveCache(prefix string, cache *buildCache) error {
	path := cachePath(prefix)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(cache, "", "  ")
	if err != nil {
		return err
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

// tarballSum returns the h1: hash of a single file, as used in go.sum.
func tarballSum(path string) (string, error) {
	name := filepath.Base(path)
	return dirhash.Hash1([]string{name}, func(string) (io.ReadCloser, error) {
		return os.Open(path)
	})
}

// Package env locates depbuild's per-user directories.
package env

import (
	"os"
	"path/filepath"

	"github.com/mitchellh/go-homedir"
)

// WorkDir returns the default work directory holding tarballs, sources and
// build trees.
func WorkDir() (string, error) {
	userCacheDir, err := os.UserCacheDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(userCacheDir, "depbuild"), nil
}

// ConfigDir returns ~/.config/depbuild.
func ConfigDir() (string, error) {
	home, err := homedir.Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "depbuild"), nil
}

// ExpandPath expands a leading ~ and makes path absolute.
// An empty path stays empty.
func ExpandPath(path string) (string, error) {
	if path == "" {
		return "", nil
	}
	expanded, err := homedir.Expand(path)
	if err != nil {
		return "", err
	}
	return filepath.Abs(expanded)
}

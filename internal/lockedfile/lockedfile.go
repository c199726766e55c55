// Package lockedfile provides an inter-process mutex backed by a lock file.
package lockedfile

import (
	"os"
	"path/filepath"
)

// A Mutex provides mutual exclusion within and across processes by locking
// a well-known file.
type Mutex struct {
	Path string
}

// MutexAt returns a new Mutex with Path set to the given path.
func MutexAt(path string) *Mutex {
	return &Mutex{Path: path}
}

// Lock blocks until it holds the lock and returns a function that releases it.
func (mu *Mutex) Lock() (release func(), err error) {
	if err := os.MkdirAll(filepath.Dir(mu.Path), 0o755); err != nil {
		return nil, err
	}
	f, err := os.OpenFile(mu.Path, os.O_RDWR|os.O_CREATE, 0o666)
	if err != nil {
		return nil, err
	}
	if err := lock(f); err != nil {
		f.Close()
		return nil, &os.PathError{Op: "lock", Path: mu.Path, Err: err}
	}
	return func() {
		unlock(f)
		f.Close()
	}, nil
}

// TryLock is like Lock but reports false instead of waiting when another
// process holds the lock.
func (mu *Mutex) TryLock() (release func(), ok bool, err error) {
	if err := os.MkdirAll(filepath.Dir(mu.Path), 0o755); err != nil {
		return nil, false, err
	}
	f, err := os.OpenFile(mu.Path, os.O_RDWR|os.O_CREATE, 0o666)
	if err != nil {
		return nil, false, err
	}
	ok, err = tryLock(f)
	if err != nil || !ok {
		f.Close()
		return nil, false, err
	}
	return func() {
		unlock(f)
		f.Close()
	}, true, nil
}

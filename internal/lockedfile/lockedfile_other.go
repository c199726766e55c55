//go:build !(darwin || dragonfly || freebsd || linux || netbsd || openbsd)

package lockedfile

import "os"

// No flock on this platform: the lock is a no-op.

func lock(*os.File) error { return nil }

func tryLock(*os.File) (bool, error) { return true, nil }

func unlock(*os.File) error { return nil }

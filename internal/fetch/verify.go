package fetch

import (
	"crypto/md5"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"hash"
	"io"
	"os"
	"strings"

	"go.trai.ch/zerr"
)

var (
	// ErrBadChecksum means a checksum is neither an md5 nor a sha256 hex digest.
	ErrBadChecksum = errors.New("checksum must be 32 (md5) or 64 (sha256) hex digits")

	// ErrChecksumMismatch means a downloaded file does not match its checksum.
	ErrChecksumMismatch = errors.New("checksum mismatch")
)

// NewHash returns the hash implied by the length of checksum.
func NewHash(checksum string) (hash.Hash, error) {
	if _, err := hex.DecodeString(checksum); err != nil {
		return nil, zerr.With(ErrBadChecksum, "checksum", checksum)
	}
	switch len(checksum) {
	case md5.Size * 2:
		return md5.New(), nil
	case sha256.Size * 2:
		return sha256.New(), nil
	}
	return nil, zerr.With(ErrBadChecksum, "checksum", checksum)
}

// Verify checks the digest of the file at path against checksum.
func Verify(path, checksum string) error {
	h, err := NewHash(checksum)
	if err != nil {
		return err
	}
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	if _, err := io.Copy(h, f); err != nil {
		return zerr.With(zerr.Wrap(err, "read"), "path", path)
	}
	got := hex.EncodeToString(h.Sum(nil))
	if !strings.EqualFold(got, checksum) {
		err := zerr.With(zerr.Wrap(ErrChecksumMismatch, path), "want", checksum)
		return zerr.With(err, "got", got)
	}
	return nil
}

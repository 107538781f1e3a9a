// Package contenthash computes the stable content hash used throughout the
// engine to decide whether a file needs to be fetched or can be left alone.
package contenthash

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
)

// Disabled is the sentinel hash value a manifest entry carries when its
// publisher opted out of hashing for that entry.
const Disabled = "DISABLED"

// bufSize is the read buffer size used while streaming a file through the
// hasher. Large enough to amortize syscall overhead, small enough that
// hashing a multi-gigabyte modpack archive never holds it all in memory.
const bufSize = 256 * 1024

// File streams path through SHA-256 and returns its lowercase hex digest.
// It never loads the whole file into memory.
func File(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("contenthash: open %q: %w", path, err)
	}
	defer f.Close()
	return Reader(f)
}

// Reader streams r through SHA-256 and returns its lowercase hex digest.
func Reader(r io.Reader) (string, error) {
	h := sha256.New()
	buf := make([]byte, bufSize)
	if _, err := io.CopyBuffer(h, r, buf); err != nil {
		return "", fmt.Errorf("contenthash: read: %w", err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// Equal reports whether hash a and b are the same, excluding the Disabled
// sentinel from ever comparing equal to anything (including itself) — a
// disabled hash carries no verification meaning.
func Equal(a, b string) bool {
	if a == Disabled || b == Disabled {
		return false
	}
	return a == b
}

// Valid reports whether hash is either the Disabled sentinel or 64 lowercase
// hex characters, per the manifest entry invariant.
func Valid(hash string) bool {
	if hash == Disabled {
		return true
	}
	if len(hash) != 64 {
		return false
	}
	for _, c := range hash {
		if (c < '0' || c > '9') && (c < 'a' || c > 'f') {
			return false
		}
	}
	return true
}

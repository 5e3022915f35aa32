package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// Fingerprint identifies one version of a notebook file on disk.
// Two fingerprints are equal when the file has not been rewritten.
type Fingerprint struct {
	Path    string // absolute, cleaned
	Size    int64
	ModTime time.Time
}

// Stat returns the fingerprint of the notebook at path.
func Stat(path string) (Fingerprint, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return Fingerprint{}, fmt.Errorf("failed to resolve %s: %w", path, err)
	}

	info, err := os.Stat(abs)
	if err != nil {
		return Fingerprint{}, err
	}

	return Fingerprint{
		Path:    abs,
		Size:    info.Size(),
		ModTime: info.ModTime(),
	}, nil
}

// Same reports whether f and other describe the same file contents.
func (f Fingerprint) Same(other Fingerprint) bool {
	return f.Path == other.Path && f.Size == other.Size && f.ModTime.Equal(other.ModTime)
}

// ContentHash returns the SHA-256 of data as hex. The catalog stores it to
// skip notebooks whose contents have not changed.
func ContentHash(data []byte) string {
	h := sha256.Sum256(data)
	return hex.EncodeToString(h[:])
}

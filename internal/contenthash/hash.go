// Package contenthash provides deterministic fingerprints for file content
// and collision-safe storage keys derived from file paths.
package contenthash

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// Hash returns the SHA-256 hex digest of content. The exact bytes are
// hashed; no normalization is applied, so identical content always yields
// the same digest.
func Hash(content string) string {
	sum := sha256.Sum256([]byte(content))
	return hex.EncodeToString(sum[:])
}

// HashBytes is Hash for raw byte content.
func HashBytes(content []byte) string {
	sum := sha256.Sum256(content)
	return hex.EncodeToString(sum[:])
}

// StorageKey derives a flat storage key from a file path. Both path
// separators and the extension dot collapse to a single underscore, so paths
// differing only in separator style map to the same key while remaining
// distinct from other paths.
func StorageKey(path string) string {
	r := strings.NewReplacer("/", "_", "\\", "_", ".", "_")
	return r.Replace(path)
}

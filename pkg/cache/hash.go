package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// digestKey returns prefix followed by the SHA-256 of parts joined with NUL
// bytes. The result has a fixed length and contains no path separators.
func digestKey(prefix string, parts ...string) string {
	sum := sha256.Sum256([]byte(strings.Join(parts, "\x00")))
	return prefix + ":" + hex.EncodeToString(sum[:])
}

// Hash returns the hex SHA-256 digest of data.
func Hash(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

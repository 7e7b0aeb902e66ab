package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
)

// hashKey builds a namespaced cache key: prefix:hash(parts...). Parts
// are JSON-encoded before hashing so composite key material (root name,
// render options) keys consistently.
func hashKey(prefix string, parts ...any) string {
	data, _ := json.Marshal(parts)
	sum := sha256.Sum256(data)
	// Full 256-bit digest; snapshot and artifact keys must never collide.
	return fmt.Sprintf("%s:%s", prefix, hex.EncodeToString(sum[:]))
}

// Hash returns the SHA-256 content hash of data as a 64-character hex
// string. The pipeline keys snapshots by the hash of the bundle document
// and artifacts by the hash of the snapshot.
func Hash(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// Package checksum produces the content digest the search index uses for
// change detection: a document is reindexed only when its digest differs
// from the stored one.
package checksum

import (
	"crypto/sha256"
	"encoding/hex"
)

// Sum returns the hex-encoded SHA-256 digest of data.
func Sum(data []byte) string {
	h := sha256.Sum256(data)
	return hex.EncodeToString(h[:])
}

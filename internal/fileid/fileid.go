// Package fileid derives a stable letter id from a local file path.
package fileid

import (
	"crypto/sha256"
	"encoding/hex"
	"path/filepath"
)

const prefix = "local:"

// LetterID returns a deterministic letter id for a locally imported file.
// The same path always yields the same id, so re-importing a directory
// updates records instead of duplicating them. The prefix keeps locally
// imported letters distinguishable from dataset ids.
func LetterID(absolutePath string) string {
	normalized := filepath.Clean(absolutePath)
	hash := sha256.Sum256([]byte(normalized))
	return prefix + hex.EncodeToString(hash[:])
}

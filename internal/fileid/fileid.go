// Package fileid derives stable document IDs for files stored in a workspace.
package fileid

import (
	"crypto/sha256"
	"encoding/hex"
	"path/filepath"
)

const prefix = "doc_"

// DocID returns a stable document ID for the file name within a workspace.
// Only the base name counts, so re-uploading or moving the data directory
// keeps the same ID. The same name in different workspaces yields different IDs.
func DocID(workspaceID, path string) string {
	h := sha256.New()
	h.Write([]byte(workspaceID))
	h.Write([]byte{0})
	h.Write([]byte(filepath.Base(filepath.Clean(path))))
	return prefix + hex.EncodeToString(h.Sum(nil)[:16])
}

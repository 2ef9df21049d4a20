//go:build windows

package backend

import (
	"os"

	"github.com/watchkit/dirwatch/internal/tree"
)

// identity is a no-op on a bare filepath.WalkDir traversal: NTFS file
// references require an open handle (GetFileInformationByHandle), which
// the Windows backend's live ReadDirectoryChangesW path maintains but a
// one-shot brute-force walk does not open per entry. A brute-force scan
// on Windows therefore falls back to path-keyed identity, same as any
// platform lacking a populated ino/fileId.
func identity(fi os.FileInfo) (ino uint64, fileID string) {
	return tree.FakeIno, tree.FakeFileID
}

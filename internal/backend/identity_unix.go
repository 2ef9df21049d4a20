//go:build !windows

package backend

import (
	"os"
	"syscall"

	"github.com/watchkit/dirwatch/internal/tree"
)

// identity extracts the POSIX inode number from fi. fileID is always
// FakeFileID on POSIX platforms; ino carries the stable identity.
func identity(fi os.FileInfo) (ino uint64, fileID string) {
	if st, ok := fi.Sys().(*syscall.Stat_t); ok {
		return uint64(st.Ino), tree.FakeFileID
	}
	return tree.FakeIno, tree.FakeFileID
}

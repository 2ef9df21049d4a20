// Package tree implements the in-memory directory snapshot (DirEntry,
// DirTree) that backends mutate as they observe filesystem notifications,
// and the snapshot-diff engine that reconciles two such snapshots.
package tree

// Sentinel identity values meaning "unknown/unused", per the wire format
// and the identity tie-break rules in getChanges.
const (
	FakeIno    uint64 = 0
	FakeFileID        = ""
)

// Entry is an immutable-ish record of one filesystem object: a file,
// directory, or symlink beneath a watched root.
//
// At least one of {Ino, FileID} should be populated when the platform can
// supply it; identity comparisons prefer FileID over Ino over Path.
type Entry struct {
	Path   string // absolute, canonicalized at root-resolution time
	Ino    uint64 // POSIX inode number; FakeIno if unknown
	FileID string // Windows NTFS file reference; FakeFileID if unused
	MTime  int64  // modification time, nanoseconds since epoch
	IsDir  bool
}

// HasIno reports whether e carries a usable inode identity.
func (e Entry) HasIno() bool { return e.Ino != FakeIno }

// HasFileID reports whether e carries a usable Windows file-id identity.
func (e Entry) HasFileID() bool { return e.FileID != FakeFileID }

// SameIdentity reports whether e and other refer to the same underlying
// filesystem object, preferring FileID, then Ino. It never falls back to
// Path — callers that want path-keyed matching do that separately.
func (e Entry) SameIdentity(other Entry) bool {
	switch {
	case e.HasFileID() || other.HasFileID():
		return e.FileID == other.FileID && e.HasFileID() && other.HasFileID()
	case e.HasIno() || other.HasIno():
		return e.Ino == other.Ino && e.HasIno() && other.HasIno()
	default:
		return false
	}
}

// Kind returns "directory" or "file", the public-facing kind label used
// in delivered events (symlinks are reported as files per spec).
func (e Entry) Kind() string {
	if e.IsDir {
		return "directory"
	}
	return "file"
}

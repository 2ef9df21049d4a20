package tree

import (
	"strings"
	"sync"

	"github.com/watchkit/dirwatch/internal/eventlog"
)

// Tree is a process-wide cache of path -> Entry for one watched root. A
// mutex guards every mutation and any iteration that could race with a
// mutation (e.g. the diff engine below).
type Tree struct {
	mu sync.RWMutex

	root            string
	entries         map[string]*Entry
	isComplete      bool
	recursiveRemove bool
}

// New creates an empty, not-yet-scanned tree for root.
//
// recursiveRemove controls what Remove does to a directory's descendants:
// true means Remove atomically removes every descendant entry too; false
// leaves descendant bookkeeping to the caller. Every tree the backends
// build (readTree, NewSubscription, snapshot Load) uses true.
func New(root string, recursiveRemove bool) *Tree {
	return &Tree{
		root:            root,
		entries:         make(map[string]*Entry),
		recursiveRemove: recursiveRemove,
	}
}

func (t *Tree) Root() string { return t.root }

func (t *Tree) IsComplete() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.isComplete
}

func (t *Tree) SetComplete(v bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.isComplete = v
}

// Len reports the number of entries currently tracked.
func (t *Tree) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.entries)
}

// Add inserts or replaces the entry at path and returns the stored copy.
func (t *Tree) Add(path string, ino uint64, mtime int64, isDir bool, fileID string) Entry {
	t.mu.Lock()
	defer t.mu.Unlock()

	e := &Entry{Path: path, Ino: ino, MTime: mtime, IsDir: isDir, FileID: fileID}
	t.entries[path] = e
	return *e
}

// Update updates mtime unconditionally, and Ino/FileID only where the
// supplied value is non-sentinel. Returns the updated entry, or false if
// path isn't tracked.
func (t *Tree) Update(path string, ino uint64, mtime int64, fileID string) (Entry, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	e, ok := t.entries[path]
	if !ok {
		return Entry{}, false
	}
	e.MTime = mtime
	if ino != FakeIno {
		e.Ino = ino
	}
	if fileID != FakeFileID {
		e.FileID = fileID
	}
	return *e, true
}

// Remove erases path. If the removed entry is a directory and
// recursiveRemove is set, every descendant (path + separator prefix) is
// erased too.
func (t *Tree) Remove(path string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.removeLocked(path)
}

func (t *Tree) removeLocked(path string) {
	e, ok := t.entries[path]
	if !ok {
		return
	}
	delete(t.entries, path)
	if e.IsDir && t.recursiveRemove {
		prefix := path + string(pathSeparator)
		for p := range t.entries {
			if strings.HasPrefix(p, prefix) {
				delete(t.entries, p)
			}
		}
	}
}

// Find looks up an entry by exact path.
func (t *Tree) Find(path string) (Entry, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	e, ok := t.entries[path]
	if !ok {
		return Entry{}, false
	}
	return *e, true
}

// FindByIno scans for an entry with the given inode number. O(n) in the
// number of entries.
func (t *Tree) FindByIno(ino uint64) (Entry, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	for _, e := range t.entries {
		if e.Ino == ino && e.HasIno() {
			return *e, true
		}
	}
	return Entry{}, false
}

// FindByFileID scans for an entry with the given Windows file-id.
func (t *Tree) FindByFileID(fileID string) (Entry, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	for _, e := range t.entries {
		if e.FileID == fileID && e.HasFileID() {
			return *e, true
		}
	}
	return Entry{}, false
}

// Snapshot returns a point-in-time copy of every entry, for callers that
// need to iterate without holding the tree lock (e.g. the Windows
// backend's subtree rename).
func (t *Tree) Snapshot() []Entry {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]Entry, 0, len(t.entries))
	for _, e := range t.entries {
		out = append(out, *e)
	}
	return out
}

// Each calls f for every entry. f must not mutate the tree.
func (t *Tree) Each(f func(Entry)) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	for _, e := range t.entries {
		f(*e)
	}
}

// GetChanges reconstructs the logical events needed to reconcile prior
// (an older snapshot of the same root) with t (the current state),
// appending them to out. Identity is matched by FileID first, then Ino,
// falling back to path-keyed lookup when neither identifies a prior
// entry. The passes are described inline below.
//
// Lock order: t then prior, matching the rest of the package's
// lock-acquisition discipline (this tree's own lock, then any other
// tree's).
func GetChanges(t, prior *Tree, out *eventlog.List) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	prior.mu.Lock() // prior is mutated (descendant Path rewrite) during the walk
	defer prior.mu.Unlock()

	// findPriorByFileID/findPriorByIno scan prior.entries linearly for an
	// identity match, skipping prior entries already recorded in matched.
	matched := make(map[string]bool, len(prior.entries)) // prior paths already matched

	findPriorByFileID := func(fileID string) (*Entry, string) {
		for p, e := range prior.entries {
			if matched[p] {
				continue
			}
			if e.FileID == fileID && e.HasFileID() {
				return e, p
			}
		}
		return nil, ""
	}
	findPriorByIno := func(ino uint64) (*Entry, string) {
		for p, e := range prior.entries {
			if matched[p] {
				continue
			}
			if e.Ino == ino && e.HasIno() {
				return e, p
			}
		}
		return nil, ""
	}

	// Pass 1: directory renames. Handled as a dedicated first pass, before
	// any other identity matching, so that descendant paths in prior are
	// already rewritten by the time pass 2 reaches them — independent of
	// map iteration order. Without this, a child processed before its
	// renamed parent would identity-match its (still old-prefixed) prior
	// path and spuriously emit its own rename, instead of silently
	// following the parent.
	handledSelf := make(map[string]bool)
	for path, e := range t.entries {
		if !e.IsDir {
			continue
		}
		var (
			f     *Entry
			fpath string
		)
		switch {
		case e.HasFileID():
			f, fpath = findPriorByFileID(e.FileID)
		case e.HasIno():
			f, fpath = findPriorByIno(e.Ino)
		}
		if f == nil || !f.IsDir || fpath == e.Path {
			continue
		}

		matched[fpath] = true
		handledSelf[path] = true
		out.Rename(fpath, e.Path, e.IsDir, e.Ino, e.FileID)

		oldPrefix := fpath + string(pathSeparator)
		newPrefix := e.Path + string(pathSeparator)
		for p, pe := range prior.entries {
			if p == fpath || matched[p] {
				continue
			}
			if strings.HasPrefix(p, oldPrefix) {
				pe.Path = newPrefix + strings.TrimPrefix(p, oldPrefix)
			}
		}
	}

	// Pass 2: everything else — files, directories that didn't rename,
	// and the (already-rewritten) descendants of any renamed directory.
	for path, e := range t.entries {
		if handledSelf[path] {
			continue
		}

		var (
			f     *Entry
			fpath string
		)
		switch {
		case e.HasFileID():
			f, fpath = findPriorByFileID(e.FileID)
		case e.HasIno():
			f, fpath = findPriorByIno(e.Ino)
		}

		if f != nil {
			matched[fpath] = true
			// f.Path, not fpath (the prior map key), reflects this
			// entry's true prior path: a directory-rename in pass 1
			// rewrites descendant Path fields in place without moving
			// them to a new map key.
			priorPath := f.Path

			switch {
			case f.IsDir != e.IsDir:
				out.Remove(priorPath, f.IsDir, f.Ino, f.FileID)
				out.Create(e.Path, e.IsDir, e.Ino, e.FileID)

			case priorPath != e.Path:
				out.Rename(priorPath, e.Path, e.IsDir, e.Ino, e.FileID)

			case !e.IsDir && f.MTime != e.MTime:
				out.Update(e.Path, e.IsDir, e.Ino, e.FileID)
			}
			continue
		}

		// No identity match: fall back to path-keyed lookup.
		if pf, ok := prior.entries[e.Path]; ok && !matched[e.Path] {
			matched[e.Path] = true
			if !pf.IsDir && !e.IsDir && pf.MTime != e.MTime {
				out.Update(e.Path, e.IsDir, e.Ino, e.FileID)
			}
			continue
		}

		out.Create(e.Path, e.IsDir, e.Ino, e.FileID)
	}

	for p, pe := range prior.entries {
		if matched[p] {
			continue
		}
		out.Remove(p, pe.IsDir, pe.Ino, pe.FileID)
	}
}

//go:build windows

package backend

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"unsafe"

	"golang.org/x/sys/windows"

	"github.com/watchkit/dirwatch/internal/tree"
)

func init() { Register("windows", func() Backend { return &Windows{} }) }

// Windows is the native backend on that platform: a single recursive
// ReadDirectoryChangesW watch on the root, delivered through an I/O
// completion port. One handle per subscription suffices since a
// subscription always watches one root recursively rather than an
// arbitrary set of non-recursive paths.
type Windows struct{}

func (b *Windows) Name() string { return "windows" }

const watchFilter = windows.FILE_NOTIFY_CHANGE_FILE_NAME |
	windows.FILE_NOTIFY_CHANGE_DIR_NAME |
	windows.FILE_NOTIFY_CHANGE_ATTRIBUTES |
	windows.FILE_NOTIFY_CHANGE_LAST_WRITE

type windowsState struct {
	handle windows.Handle
	port   windows.Handle
	ov     windows.Overlapped
	buf    [65536]byte
	root   string
	quit   chan struct{}
	done   chan struct{}
}

func (b *Windows) Subscribe(ctx context.Context, s *Subscription) error {
	t, err := ensureTree(s)
	if err != nil {
		return err
	}
	s.Tree = t

	pathp, err := windows.UTF16PtrFromString(s.Root)
	if err != nil {
		return err
	}
	h, err := windows.CreateFile(pathp,
		windows.FILE_LIST_DIRECTORY,
		windows.FILE_SHARE_READ|windows.FILE_SHARE_WRITE|windows.FILE_SHARE_DELETE,
		nil, windows.OPEN_EXISTING,
		windows.FILE_FLAG_BACKUP_SEMANTICS|windows.FILE_FLAG_OVERLAPPED, 0)
	if err != nil {
		return fmt.Errorf("windows: CreateFile %q: %w", s.Root, os.NewSyscallError("CreateFile", err))
	}

	port, err := windows.CreateIoCompletionPort(h, 0, 0, 0)
	if err != nil {
		windows.CloseHandle(h)
		return fmt.Errorf("windows: CreateIoCompletionPort: %w", os.NewSyscallError("CreateIoCompletionPort", err))
	}

	st := &windowsState{handle: h, port: port, root: s.Root, quit: make(chan struct{}), done: make(chan struct{})}
	if err := st.startRead(); err != nil {
		windows.CloseHandle(h)
		return err
	}

	s.SetState(st)
	go b.readLoop(s, st)
	return nil
}

func (st *windowsState) startRead() error {
	err := windows.ReadDirectoryChanges(st.handle, &st.buf[0], uint32(len(st.buf)), true, watchFilter, nil, &st.ov, 0)
	if err != nil {
		return os.NewSyscallError("ReadDirectoryChanges", err)
	}
	return nil
}

func (b *Windows) Unsubscribe(s *Subscription) error {
	st, _ := s.State().(*windowsState)
	if st == nil {
		return nil
	}
	close(st.quit)
	windows.CancelIo(st.handle)
	windows.PostQueuedCompletionStatus(st.port, 0, 0, nil)
	<-st.done
	windows.CloseHandle(st.handle)
	windows.CloseHandle(st.port)
	return nil
}

func (b *Windows) readLoop(s *Subscription, st *windowsState) {
	defer close(st.done)
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	var renaming string
	for {
		var n uint32
		var key uintptr
		var ov *windows.Overlapped
		qErr := windows.GetQueuedCompletionStatus(st.port, &n, &key, &ov, windows.INFINITE)

		select {
		case <-st.quit:
			return
		default:
		}

		if qErr != nil {
			if qErr == windows.ERROR_OPERATION_ABORTED {
				return
			}
			s.Fail(fmt.Errorf("windows: completion port for %q: %w: %w", s.Root, ErrChannelLost, qErr))
			return
		}
		if n == 0 {
			if err := st.startRead(); err != nil {
				s.Fail(fmt.Errorf("windows: re-arming watch on %q: %w: %w", s.Root, ErrWatchInstall, err))
				return
			}
			continue
		}

		var offset uint32
		for {
			raw := (*windows.FileNotifyInformation)(unsafe.Pointer(&st.buf[offset]))
			size := int(raw.FileNameLength / 2)
			nameSlice := unsafe.Slice((*uint16)(unsafe.Pointer(&raw.FileName)), size)
			fullname := filepath.Join(st.root, windows.UTF16ToString(nameSlice))

			b.handleAction(s, st, raw.Action, fullname, &renaming)

			if raw.NextEntryOffset == 0 {
				break
			}
			offset += raw.NextEntryOffset
		}

		if err := st.startRead(); err != nil {
			s.Notify()
			s.Fail(fmt.Errorf("windows: re-arming watch on %q: %w: %w", s.Root, ErrWatchInstall, err))
			return
		}
		s.Notify()
	}
}

func (b *Windows) handleAction(s *Subscription, st *windowsState, action uint32, fullname string, renaming *string) {
	if s.Ignored(fullname) {
		return
	}

	switch action {
	case windows.FILE_ACTION_ADDED:
		fi, err := os.Lstat(fullname)
		if err != nil {
			return
		}
		ino, fileID := windowsIdentity(fullname)
		s.Tree.Add(fullname, ino, fi.ModTime().UnixNano(), fi.IsDir(), fileID)
		s.Events.Create(fullname, fi.IsDir(), ino, fileID)

	case windows.FILE_ACTION_REMOVED:
		entry, ok := s.Tree.Find(fullname)
		if !ok {
			return
		}
		s.Tree.Remove(fullname)
		s.Events.Remove(fullname, entry.IsDir, entry.Ino, entry.FileID)

	case windows.FILE_ACTION_MODIFIED:
		entry, ok := s.Tree.Find(fullname)
		if !ok {
			return
		}
		fi, err := os.Lstat(fullname)
		if err != nil {
			return
		}
		ino, fileID := windowsIdentity(fullname)
		s.Tree.Update(fullname, ino, fi.ModTime().UnixNano(), fileID)
		s.Events.Update(fullname, entry.IsDir, ino, fileID)

	case windows.FILE_ACTION_RENAMED_OLD_NAME:
		*renaming = fullname

	case windows.FILE_ACTION_RENAMED_NEW_NAME:
		old := *renaming
		entry, hadEntry := s.Tree.Find(old)
		fi, statErr := os.Lstat(fullname)
		isDir := hadEntry && entry.IsDir
		if statErr == nil {
			isDir = fi.IsDir()
		}
		ino, fileID := windowsIdentity(fullname)

		if isDir {
			renameSubtree(s.Tree, old, fullname)
		}
		s.Tree.Remove(old)
		mtime := entry.MTime
		if statErr == nil {
			mtime = fi.ModTime().UnixNano()
		}
		s.Tree.Add(fullname, ino, mtime, isDir, fileID)
		s.Events.Rename(old, fullname, isDir, ino, fileID)
	}
}

// renameSubtree rewrites every tracked descendant of a renamed directory
// onto its new path prefix. ReadDirectoryChangesW only reports the
// renamed directory itself, never its children, so the tree has to
// follow along by hand — same problem the inotify backend solves with
// its watch-descriptor table, solved here directly against the tree
// since there's no separate per-directory handle to rewrite.
func renameSubtree(t *tree.Tree, oldPath, newPath string) {
	oldPrefix := oldPath + string(filepath.Separator)
	newPrefix := newPath + string(filepath.Separator)
	for _, e := range t.Snapshot() {
		if !strings.HasPrefix(e.Path, oldPrefix) {
			continue
		}
		rewritten := newPrefix + strings.TrimPrefix(e.Path, oldPrefix)
		t.Remove(e.Path)
		t.Add(rewritten, e.Ino, e.MTime, e.IsDir, e.FileID)
	}
}

// windowsIdentity opens a short-lived handle to extract the NTFS
// (volume, file index) pair, the same identity windows.go's getIno reads
// off a held watch handle — here a fresh handle per notification, since
// this backend holds only the root's handle, not one per entry.
func windowsIdentity(path string) (ino uint64, fileID string) {
	pathp, err := windows.UTF16PtrFromString(path)
	if err != nil {
		return tree.FakeIno, tree.FakeFileID
	}
	h, err := windows.CreateFile(pathp,
		0,
		windows.FILE_SHARE_READ|windows.FILE_SHARE_WRITE|windows.FILE_SHARE_DELETE,
		nil, windows.OPEN_EXISTING, windows.FILE_FLAG_BACKUP_SEMANTICS, 0)
	if err != nil {
		return tree.FakeIno, tree.FakeFileID
	}
	defer windows.CloseHandle(h)

	var fi windows.ByHandleFileInformation
	if err := windows.GetFileInformationByHandle(h, &fi); err != nil {
		return tree.FakeIno, tree.FakeFileID
	}
	index := uint64(fi.FileIndexHigh)<<32 | uint64(fi.FileIndexLow)
	return index, fmt.Sprintf("%d:%d", fi.VolumeSerialNumber, index)
}

func (b *Windows) Scan(ctx context.Context, s *Subscription) error {
	return Scan(ctx, s)
}

func (b *Windows) WriteSnapshot(ctx context.Context, s *Subscription, w io.Writer) error {
	return WriteSnapshot(ctx, s, w)
}

func (b *Windows) GetEventsSince(ctx context.Context, s *Subscription, snapshot io.Reader) error {
	return GetEventsSince(ctx, s, snapshot)
}

//go:build linux

package backend

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
	"unsafe"

	"golang.org/x/sys/unix"

	"github.com/watchkit/dirwatch/internal/capprobe"
	"github.com/watchkit/dirwatch/internal/tree"
)

func init() {
	Register("inotify", func() Backend { return &Inotify{pendingMoveAge: defaultPendingMoveAge, readBufferEvents: defaultReadBufferEvents} })
	registerTuning(func(t Tuning) {
		age := t.InotifyPendingMoveAge
		if age <= 0 {
			age = defaultPendingMoveAge
		}
		bufEvents := t.InotifyReadBufferEvents
		if bufEvents <= 0 {
			bufEvents = defaultReadBufferEvents
		}
		Register("inotify", func() Backend { return &Inotify{pendingMoveAge: age, readBufferEvents: bufEvents} })
	})
}

// watchMask is the fixed event mask installed on every directory, per
// the abstract contract: attribute changes, creates, deletes (both
// directly and of the watched directory itself), content modification,
// and every flavor of move.
const watchMask = unix.IN_ATTRIB | unix.IN_CREATE | unix.IN_DELETE |
	unix.IN_DELETE_SELF | unix.IN_MODIFY | unix.IN_MOVE_SELF |
	unix.IN_MOVED_FROM | unix.IN_MOVED_TO | unix.IN_DONT_FOLLOW |
	unix.IN_ONLYDIR | unix.IN_EXCL_UNLINK

// defaultPendingMoveAge is how long a MOVED_FROM half-pair is kept
// before being aged out unmatched, absent operator tuning.
const defaultPendingMoveAge = 5 * time.Second

// defaultReadBufferEvents sizes the read buffer in inotify_event units,
// absent operator tuning.
const defaultReadBufferEvents = 4096

// Inotify is the Linux native backend. It keeps one inotify file
// descriptor and one dedicated reader goroutine per subscription —
// simpler than multiplexing several watchers over a shared descriptor;
// recursion over many directories is handled by one watch descriptor
// per directory within that single fd.
type Inotify struct {
	pendingMoveAge   time.Duration
	readBufferEvents int
}

func (b *Inotify) Name() string { return "inotify" }

type koekje struct {
	path string
	at   time.Time
}

type inotifyState struct {
	file *os.File
	fd   int

	mu       sync.Mutex
	wdPath   map[uint32]string
	pathWd   map[string]uint32
	pending  map[uint32]koekje // cookie -> MOVED_FROM half-pair

	done chan struct{}
}

func (b *Inotify) Subscribe(ctx context.Context, s *Subscription) error {
	if ok, err := capprobe.HasDirReadSearch(); err == nil && !ok {
		slog.Warn("inotify: process lacks CAP_DAC_READ_SEARCH; some subdirectories may be unreadable", "root", s.Root)
	}

	t, err := ensureTree(s)
	if err != nil {
		return err
	}
	s.Tree = t

	fd, errno := unix.InotifyInit1(unix.IN_CLOEXEC | unix.IN_NONBLOCK)
	if fd == -1 {
		return fmt.Errorf("inotify: init: %w", errno)
	}

	st := &inotifyState{
		file:    os.NewFile(uintptr(fd), "inotify"),
		fd:      fd,
		wdPath:  make(map[uint32]string),
		pathWd:  make(map[string]uint32),
		pending: make(map[uint32]koekje),
		done:    make(chan struct{}),
	}

	if err := st.watchDir(s.Root); err != nil {
		st.file.Close()
		return fmt.Errorf("inotify: watching root %q: %w", s.Root, err)
	}
	t.Each(func(e tree.Entry) {
		if e.IsDir && !s.Ignored(e.Path) {
			_ = st.watchDir(e.Path)
		}
	})

	s.SetState(st)
	go b.readLoop(s, st)
	return nil
}

func (st *inotifyState) watchDir(path string) error {
	wd, err := unix.InotifyAddWatch(st.fd, path, watchMask)
	if wd == -1 {
		return err
	}
	st.mu.Lock()
	st.wdPath[uint32(wd)] = path
	st.pathWd[path] = uint32(wd)
	st.mu.Unlock()
	return nil
}

func (b *Inotify) Unsubscribe(s *Subscription) error {
	st, _ := s.State().(*inotifyState)
	if st == nil {
		return nil
	}
	if err := st.file.Close(); err != nil {
		return err
	}
	<-st.done
	return nil
}

func (b *Inotify) readLoop(s *Subscription, st *inotifyState) {
	defer close(st.done)

	buf := make([]byte, unix.SizeofInotifyEvent*b.readBufferEvents)
	lastAge := time.Now()

	for {
		n, err := st.file.Read(buf)
		if err != nil {
			if errors.Is(err, os.ErrClosed) || errors.Unwrap(err) == os.ErrClosed {
				return // Unsubscribe closed the fd
			}
			if errors.Is(err, unix.EAGAIN) {
				time.Sleep(10 * time.Millisecond)
				continue
			}
			s.Fail(fmt.Errorf("inotify: reading %q: %w: %w", s.Root, ErrChannelLost, err))
			return
		}

		if err := b.processBuffer(s, st, buf[:n]); err != nil {
			s.Notify() // deliver what was logged before the failure
			s.Fail(err)
			return
		}

		if time.Since(lastAge) > b.pendingMoveAge {
			st.agePending(b.pendingMoveAge)
			lastAge = time.Now()
		}

		s.Notify()
	}
}

func (st *inotifyState) agePending(maxAge time.Duration) {
	st.mu.Lock()
	defer st.mu.Unlock()
	now := time.Now()
	for cookie, k := range st.pending {
		if now.Sub(k.at) > maxAge {
			slog.Warn("inotify: pending move aged out unmatched", "path", k.path)
			delete(st.pending, cookie)
		}
	}
}

func (b *Inotify) processBuffer(s *Subscription, st *inotifyState, buf []byte) error {
	n := uint32(len(buf))
	if n < unix.SizeofInotifyEvent {
		return nil
	}
	var offset uint32
	for offset <= n-unix.SizeofInotifyEvent {
		raw := (*unix.InotifyEvent)(unsafe.Pointer(&buf[offset]))
		mask := uint32(raw.Mask)
		nameLen := uint32(raw.Len)
		next := func() { offset += unix.SizeofInotifyEvent + nameLen }

		if mask&unix.IN_Q_OVERFLOW != 0 {
			slog.Warn("inotify: event queue overflow; some events were dropped", "root", s.Root)
			next()
			continue
		}

		st.mu.Lock()
		dirPath := st.wdPath[uint32(raw.Wd)]
		st.mu.Unlock()

		name := dirPath
		if nameLen > 0 {
			nameBytes := buf[offset+unix.SizeofInotifyEvent : offset+unix.SizeofInotifyEvent+nameLen]
			name = filepath.Join(dirPath, strings.TrimRight(string(nameBytes), "\x00"))
		}

		if mask&unix.IN_IGNORED != 0 {
			next()
			continue
		}

		if err := b.handleEvent(s, st, name, mask, raw.Cookie); err != nil {
			return err
		}
		next()
	}
	return nil
}

func (b *Inotify) handleEvent(s *Subscription, st *inotifyState, name string, mask uint32, cookie uint32) error {
	if s.Ignored(name) {
		return nil
	}
	isDir := mask&unix.IN_ISDIR != 0

	switch {
	case mask&unix.IN_DELETE_SELF != 0:
		st.mu.Lock()
		_, parentWatched := st.pathWd[filepath.Dir(name)]
		if wd, ok := st.pathWd[name]; ok {
			delete(st.wdPath, wd)
			delete(st.pathWd, name)
		}
		st.mu.Unlock()
		if parentWatched {
			return nil // parent watch already reports its own delete
		}
		entry, _ := s.Tree.Find(name)
		s.Tree.Remove(name)
		// Self events only fire for directories (every watch is on one);
		// the root itself is never a tree entry, so entry.IsDir can't be
		// trusted here.
		s.Events.Remove(name, true, entry.Ino, entry.FileID)

	case mask&unix.IN_MOVE_SELF != 0:
		if name == s.Root {
			s.Events.Remove(name, true, tree.FakeIno, tree.FakeFileID)
			return nil
		}
		// A non-root directory's move already arrived as MOVED_FROM on
		// its parent. If a MOVED_TO pair rewrote the bookkeeping, name
		// resolves to the new location and still exists; otherwise the
		// directory left the root and its watch goes with it.
		if _, err := os.Lstat(name); err == nil {
			return nil
		}
		st.mu.Lock()
		if wd, ok := st.pathWd[name]; ok {
			delete(st.wdPath, wd)
			delete(st.pathWd, name)
			_, _ = unix.InotifyRmWatch(st.fd, wd)
		}
		st.mu.Unlock()

	case mask&(unix.IN_CREATE|unix.IN_MOVED_TO) != 0:
		fi, err := os.Lstat(name)
		if err != nil {
			return nil
		}
		ino, fileID := identity(fi)
		s.Tree.Add(name, ino, fi.ModTime().UnixNano(), isDir, fileID)
		s.Events.Create(name, isDir, ino, fileID)

		if isDir {
			if werr := st.watchDir(name); werr != nil {
				// The directory may already be gone again; that's just a
				// lost race, not a broken subscription.
				if _, serr := os.Lstat(name); serr == nil {
					return fmt.Errorf("inotify: watching %q: %w: %w", name, ErrWatchInstall, werr)
				}
			}
		}

		if cookie != 0 && mask&unix.IN_MOVED_TO != 0 {
			st.mu.Lock()
			from, ok := st.pending[cookie]
			if ok {
				delete(st.pending, cookie)
			}
			st.mu.Unlock()
			if ok && isDir {
				st.rewriteDescendants(from.path, name)
			}
		}

	case mask&unix.IN_MOVED_FROM != 0:
		entry, _ := s.Tree.Find(name)
		s.Tree.Remove(name)
		s.Events.Remove(name, entry.IsDir || isDir, entry.Ino, entry.FileID)
		if cookie != 0 {
			st.mu.Lock()
			st.pending[cookie] = koekje{path: name, at: time.Now()}
			st.mu.Unlock()
		}

	case mask&unix.IN_DELETE != 0:
		entry, _ := s.Tree.Find(name)
		s.Tree.Remove(name)
		s.Events.Remove(name, entry.IsDir, entry.Ino, entry.FileID)

	case mask&unix.IN_MODIFY != 0:
		entry, ok := s.Tree.Find(name)
		if !ok {
			return nil
		}
		fi, err := os.Lstat(name)
		if err != nil {
			return nil
		}
		ino, fileID := identity(fi)
		s.Tree.Update(name, ino, fi.ModTime().UnixNano(), fileID)
		s.Events.Update(name, entry.IsDir, ino, fileID)

	case mask&unix.IN_ATTRIB != 0:
		if entry, ok := s.Tree.Find(name); ok {
			s.Events.Update(name, entry.IsDir, entry.Ino, entry.FileID)
		}

	default:
		slog.Warn("inotify: unhandled event dropped", "root", s.Root, "path", name, "mask", mask)
	}
	return nil
}

// rewriteDescendants updates watch paths after a directory move so
// future events for its children resolve under the new name — the
// pending-move pairing addresses kernel-level wd bookkeeping, distinct
// from EventList's own path-based rename coalescing.
func (st *inotifyState) rewriteDescendants(oldPath, newPath string) {
	st.mu.Lock()
	defer st.mu.Unlock()
	// The moved directory's own watch was re-registered under newPath by
	// watchDir (same inode, same wd); only its stale path key lingers.
	if wd, ok := st.pathWd[oldPath]; ok && st.wdPath[wd] != oldPath {
		delete(st.pathWd, oldPath)
	}
	oldPrefix := oldPath + string(filepath.Separator)
	newPrefix := newPath + string(filepath.Separator)
	for wd, p := range st.wdPath {
		if !strings.HasPrefix(p, oldPrefix) {
			continue
		}
		rewritten := newPrefix + strings.TrimPrefix(p, oldPrefix)
		st.wdPath[wd] = rewritten
		delete(st.pathWd, p)
		st.pathWd[rewritten] = wd
	}
}

func (b *Inotify) Scan(ctx context.Context, s *Subscription) error {
	return Scan(ctx, s)
}

func (b *Inotify) WriteSnapshot(ctx context.Context, s *Subscription, w io.Writer) error {
	return WriteSnapshot(ctx, s, w)
}

func (b *Inotify) GetEventsSince(ctx context.Context, s *Subscription, snapshot io.Reader) error {
	return GetEventsSince(ctx, s, snapshot)
}

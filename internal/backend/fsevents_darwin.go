//go:build darwin

package backend

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/fsnotify/fsevents"

	"github.com/watchkit/dirwatch/internal/tree"
)

func init() { Register("fs-events", func() Backend { return &FSEvents{} }) }

// FSEvents is the macOS native backend: one recursive fsevents.EventStream
// per subscription. Each batch it delivers is lstat-classified against
// the tree per the abstract recipe — update/remove/create, plus a
// within-batch identity match pairing a remove and an appear into a
// rename.
type FSEvents struct{}

func (b *FSEvents) Name() string { return "fs-events" }

type fsEventsState struct {
	stream *fsevents.EventStream
	stop   chan struct{}
	exited chan struct{}
}

func (b *FSEvents) Subscribe(ctx context.Context, s *Subscription) error {
	t, err := ensureTree(s)
	if err != nil {
		return err
	}
	s.Tree = t

	stream := &fsevents.EventStream{
		Paths:   []string{s.Root},
		Latency: 0,
		Flags:   fsevents.FileEvents | fsevents.WatchRoot | fsevents.NoDefer,
	}
	stream.Start()

	st := &fsEventsState{stream: stream, stop: make(chan struct{}), exited: make(chan struct{})}
	s.SetState(st)
	go b.loop(s, st)
	return nil
}

func (b *FSEvents) Unsubscribe(s *Subscription) error {
	st, _ := s.State().(*fsEventsState)
	if st == nil {
		return nil
	}
	close(st.stop)
	st.stream.Stop()
	<-st.exited
	return nil
}

func (b *FSEvents) loop(s *Subscription, st *fsEventsState) {
	defer close(st.exited)
	for {
		select {
		case <-st.stop:
			return
		case batch, ok := <-st.stream.Events:
			if !ok {
				select {
				case <-st.stop: // Unsubscribe tore the stream down
				default:
					s.Fail(fmt.Errorf("fsevents: stream for %q closed: %w", s.Root, ErrChannelLost))
				}
				return
			}
			b.processBatch(s, batch)
			s.Notify()
		}
	}
}

func (b *FSEvents) processBatch(s *Subscription, batch []fsevents.Event) {
	var removed, appeared []tree.Entry

	for _, ev := range batch {
		if ev.Flags&(fsevents.MustScanSubDirs|fsevents.KernelDropped|fsevents.UserDropped) != 0 {
			slog.Warn("fsevents: queue overflow, some events may have been lost", "root", s.Root, "path", ev.Path)
			continue
		}
		if ev.Flags&(fsevents.HistoryDone|fsevents.RootChanged|fsevents.Mount|fsevents.Unmount) != 0 {
			continue
		}
		if s.Ignored(ev.Path) {
			continue
		}

		prior, existedBefore := s.Tree.Find(ev.Path)
		fi, statErr := os.Lstat(ev.Path)
		existsNow := statErr == nil

		var ino uint64
		var fileID string
		var isDir bool
		var mtime int64
		if existsNow {
			ino, fileID = identity(fi)
			isDir = fi.IsDir()
			mtime = fi.ModTime().UnixNano()
		} else {
			isDir = prior.IsDir
		}

		switch {
		case existedBefore && existsNow:
			s.Tree.Update(ev.Path, ino, mtime, fileID)
			if !isDir && prior.MTime != mtime {
				s.Events.Update(ev.Path, isDir, ino, fileID)
			}
		case existedBefore && !existsNow:
			s.Tree.Remove(ev.Path)
			removed = append(removed, prior)
		case !existedBefore && existsNow:
			s.Tree.Add(ev.Path, ino, mtime, isDir, fileID)
			appeared = append(appeared, tree.Entry{Path: ev.Path, Ino: ino, FileID: fileID, IsDir: isDir})
		}
	}

	used := make(map[int]bool, len(appeared))
	for _, r := range removed {
		matchIdx := -1
		for i, a := range appeared {
			if used[i] {
				continue
			}
			if r.SameIdentity(a) {
				matchIdx = i
				break
			}
		}
		if matchIdx >= 0 {
			a := appeared[matchIdx]
			used[matchIdx] = true
			s.Events.Rename(r.Path, a.Path, a.IsDir, a.Ino, a.FileID)
			continue
		}
		s.Events.Remove(r.Path, r.IsDir, r.Ino, r.FileID)
	}
	for i, a := range appeared {
		if used[i] {
			continue
		}
		s.Events.Create(a.Path, a.IsDir, a.Ino, a.FileID)
	}
}

func (b *FSEvents) Scan(ctx context.Context, s *Subscription) error {
	return Scan(ctx, s)
}

func (b *FSEvents) WriteSnapshot(ctx context.Context, s *Subscription, w io.Writer) error {
	return WriteSnapshot(ctx, s, w)
}

func (b *FSEvents) GetEventsSince(ctx context.Context, s *Subscription, snapshot io.Reader) error {
	return GetEventsSince(ctx, s, snapshot)
}

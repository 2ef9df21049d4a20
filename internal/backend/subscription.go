// Package backend implements the platform-native watch drivers (inotify,
// FSEvents, ReadDirectoryChangesW) and the portable brute-force fallback
// that also backs snapshot mode, behind one dispatch-by-name Backend
// interface.
package backend

import (
	"path/filepath"
	"strings"
	"sync"

	"github.com/watchkit/dirwatch/internal/eventlog"
	"github.com/watchkit/dirwatch/internal/tree"
)

// Subscription is shared subscription state: root, ignore set, owned
// tree and event log, consumer callback, and a hook for a backend to
// attach its own per-subscription state (inotify watch descriptors, an
// FSEvents stream handle, ...). It is the Go expression of spec's
// Watcher type; dirwatch.Watcher wraps one of these with the public,
// backend-agnostic handle a caller holds.
type Subscription struct {
	ID       string
	Root     string
	Ignore   []string
	Tree     *tree.Tree
	Events   *eventlog.List
	Callback func([]eventlog.Event)

	// OnError receives the one-shot failure signal when the backend's
	// kernel channel is lost or a watch install fails after Subscribe
	// succeeded. Delivered at most once, through Fail; the subscription
	// is dead afterwards and the caller must resubscribe.
	OnError func(error)

	mu     sync.Mutex
	state  any
	failed bool
}

// NewSubscription builds a Subscription ready to be handed to a Backend.
func NewSubscription(id, root string, ignore []string, callback func([]eventlog.Event)) *Subscription {
	return &Subscription{
		ID:       id,
		Root:     root,
		Ignore:   ignore,
		Tree:     tree.New(root, true),
		Events:   eventlog.New(),
		Callback: callback,
	}
}

// Ignored reports whether path is equal to or beneath an ignored entry;
// such paths are elided at the earliest point and never reach the tree
// or event log (property P2).
func (s *Subscription) Ignored(path string) bool {
	for _, ig := range s.Ignore {
		if path == ig || strings.HasPrefix(path, ig+string(filepath.Separator)) {
			return true
		}
	}
	return false
}

// State returns the backend-private per-subscription state previously
// stored with SetState, or nil.
func (s *Subscription) State() any {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// SetState stores backend-private per-subscription state.
func (s *Subscription) SetState(v any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = v
}

// Notify drains the event log and, if anything was logged, delivers the
// batch to the callback — "notify each touched watcher exactly once"
// per the inotify backend's draining contract, generalized to every
// backend.
func (s *Subscription) Notify() {
	events := s.Events.Drain()
	if len(events) == 0 {
		return
	}
	s.Callback(events)
}

// Fail delivers err to OnError, at most once per subscription. Backends
// call it from their watcher goroutine right before that goroutine
// exits on a fatal error; wrap ErrChannelLost or ErrWatchInstall so the
// public layer can classify.
func (s *Subscription) Fail(err error) {
	s.mu.Lock()
	already := s.failed
	s.failed = true
	s.mu.Unlock()
	if already || s.OnError == nil {
		return
	}
	s.OnError(err)
}

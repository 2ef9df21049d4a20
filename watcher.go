// Package dirwatch is a cross-platform recursive filesystem
// change-notification engine. Given a root directory, it reports the
// sequence of logical events — create, update, delete, rename —
// affecting any file, directory, or symbolic link beneath that root,
// identifying each affected entity by path, kind, and a stable
// inode-style identifier. It supports a long-lived Subscribe mode that
// streams coalesced event batches to a callback, and a snapshot mode
// that persists a tree to disk and later reconciles it against current
// disk state.
package dirwatch

import (
	"context"
	"errors"
	"io"
	"os"

	"github.com/google/uuid"

	"github.com/watchkit/dirwatch/internal/backend"
	"github.com/watchkit/dirwatch/internal/eventlog"
	"github.com/watchkit/dirwatch/internal/logging"
	"github.com/watchkit/dirwatch/internal/workerpool"
)

func defaultBackendName() string { return backend.DefaultName }

// pool bounds the one-shot Scan/WriteSnapshot/GetEventsSince operations;
// Subscribe/Unsubscribe stay off it since they hand off to a backend's
// own dedicated watcher thread.
var pool = workerpool.New(8)

var baseLogger = logging.New("text", "info", os.Stdout)

// Watcher is the handle to one active subscription, returned by
// Subscribe. Root, ignore set, consumer callback, and the backend
// implementation are fixed for its lifetime; Unsubscribe releases its
// kernel resources.
type Watcher struct {
	ID   string
	Root string

	// Errors delivers the one-shot failure signal raised after a
	// successful Subscribe: a *WatcherError with Kind ErrChannelLost or
	// ErrWatchInstall when the kernel channel dies or a mid-stream
	// watch install fails. At most one error is ever sent, and the
	// channel is closed afterwards; a closed Errors means the
	// subscription is dead and the caller must resubscribe.
	Errors <-chan error

	b backend.Backend
	s *backend.Subscription
}

// Subscribe starts delivering coalesced event batches for everything
// under root to callback, using the backend named by opts.Backend (or
// the platform default). It blocks briefly to walk the initial tree and
// returns a *WatcherError if root is missing or not a directory.
func Subscribe(ctx context.Context, root string, opts Options, callback func([]Event)) (*Watcher, error) {
	b, err := backend.New(opts.backendName())
	if err != nil {
		return nil, err
	}

	id := uuid.NewString()
	log := logging.WithRoot(logging.WithWatcher(baseLogger, id), root)

	sub := backend.NewSubscription(id, root, opts.Ignore, func(events []eventlog.Event) {
		callback(fromInternalBatch(events))
	})

	errs := make(chan error, 1)
	sub.OnError = func(err error) {
		log.Error("subscription failed", "err", err)
		errs <- &WatcherError{Kind: classifyAsyncErr(err), Root: root, Err: err}
		close(errs)
	}

	if err := b.Subscribe(ctx, sub); err != nil {
		return nil, subscribeErr(root, err)
	}
	log.Info("subscribed", "backend", b.Name())

	return &Watcher{ID: id, Root: root, Errors: errs, b: b, s: sub}, nil
}

// Unsubscribe stops delivery and releases the backend's kernel
// resources, blocking until the backend's watcher thread exits.
func (w *Watcher) Unsubscribe() error {
	return w.b.Unsubscribe(w.s)
}

// Scan performs a one-shot walk of root and returns a create event per
// existing entry beneath it (excluding root itself), dispatched through
// the shared worker pool.
func Scan(ctx context.Context, root string, opts Options) ([]Event, error) {
	b, err := backend.New(opts.backendName())
	if err != nil {
		return nil, err
	}
	sub := backend.NewSubscription(uuid.NewString(), root, opts.Ignore, nil)

	err = pool.Run(ctx, func(ctx context.Context) error {
		return b.Scan(ctx, sub)
	})
	if err != nil {
		return nil, wrapRootErr(root, err)
	}
	return fromInternalBatch(sub.Events.Drain()), nil
}

// WriteSnapshot walks root fresh and serializes the resulting tree to w,
// dispatched through the shared worker pool.
func WriteSnapshot(ctx context.Context, root string, w io.Writer, opts Options) error {
	b, err := backend.New(opts.backendName())
	if err != nil {
		return err
	}
	sub := backend.NewSubscription(uuid.NewString(), root, opts.Ignore, nil)

	err = pool.Run(ctx, func(ctx context.Context) error {
		return b.WriteSnapshot(ctx, sub, w)
	})
	if err != nil {
		return wrapRootErr(root, err)
	}
	return nil
}

// GetEventsSince loads snapshot as a prior tree state, walks root fresh,
// and returns the events needed to reconcile the two, dispatched through
// the shared worker pool.
func GetEventsSince(ctx context.Context, root string, snapshot io.Reader, opts Options) ([]Event, error) {
	b, err := backend.New(opts.backendName())
	if err != nil {
		return nil, err
	}
	sub := backend.NewSubscription(uuid.NewString(), root, opts.Ignore, nil)

	err = pool.Run(ctx, func(ctx context.Context) error {
		return b.GetEventsSince(ctx, sub, snapshot)
	})
	if err != nil {
		return nil, wrapRootErr(root, err)
	}
	return fromInternalBatch(sub.Events.Drain()), nil
}

func subscribeErr(root string, err error) error {
	return &WatcherError{Kind: classifyRootErr(err, ErrWatchInstall), Root: root, Err: err}
}

func wrapRootErr(root string, err error) error {
	kind := classifyRootErr(err, -1)
	if kind < 0 {
		return err
	}
	return &WatcherError{Kind: kind, Root: root, Err: err}
}

func classifyRootErr(err error, fallback Kind) Kind {
	switch {
	case errors.Is(err, os.ErrNotExist):
		return ErrRootMissing
	case errors.Is(err, backend.ErrNotADirectory):
		return ErrNotDirectory
	default:
		return fallback
	}
}

// classifyAsyncErr maps a post-Subscribe backend failure onto its Kind.
// Anything a backend didn't tag as a watch-install failure means its
// notification channel is gone.
func classifyAsyncErr(err error) Kind {
	if errors.Is(err, backend.ErrWatchInstall) {
		return ErrWatchInstall
	}
	return ErrChannelLost
}

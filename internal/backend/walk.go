package backend

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/watchkit/dirwatch/internal/tree"
	"github.com/watchkit/dirwatch/internal/treecache"
)

// ErrNotADirectory is wrapped into readTree's error when root exists but
// isn't a directory, so callers can distinguish it from ErrRootMissing
// via errors.Is.
var ErrNotADirectory = errors.New("backend: root is not a directory")

// ErrChannelLost is wrapped into the error a backend delivers through
// Subscription.Fail when its kernel notification channel dies after a
// successful Subscribe. The subscription is dead; the caller must
// resubscribe.
var ErrChannelLost = errors.New("backend: notification channel lost")

// ErrWatchInstall is wrapped into the error delivered through
// Subscription.Fail when installing a watch mid-stream fails (e.g. a
// newly created subdirectory couldn't be added).
var ErrWatchInstall = errors.New("backend: watch install failed")

// sharedTrees is the process-wide cache backing the cyclic-ownership
// design note: independent Subscriptions on the same root share one
// Tree instance rather than each walking and holding its own.
var sharedTrees = treecache.New()

// ensureTree returns the cached tree for s.Root if a live one exists,
// else performs the initial walk and installs it in the cache. Only a
// backend's Subscribe should call this; Scan/WriteSnapshot/GetEventsSince
// always want a fresh, uncached walk of current disk state.
func ensureTree(s *Subscription) (*tree.Tree, error) {
	return sharedTrees.GetOrCreate(s.Root, func() (*tree.Tree, error) {
		return readTree(s.Root, s.Ignore)
	})
}

// readTree performs a full recursive directory walk rooted at root,
// honoring ignore by pruning whole subtrees (and skipping individual
// ignored files), and returns a populated, complete Tree. It underlies
// every backend's Scan/WriteSnapshot/GetEventsSince and the brute-force
// backend's Subscribe poll loop.
func readTree(root string, ignore []string) (*tree.Tree, error) {
	info, err := os.Lstat(root)
	if err != nil {
		return nil, fmt.Errorf("backend: stat root %q: %w", root, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("backend: root %q: %w", root, ErrNotADirectory)
	}

	t := tree.New(root, true)
	ignored := func(path string) bool {
		for _, ig := range ignore {
			if path == ig || strings.HasPrefix(path, ig+string(filepath.Separator)) {
				return true
			}
		}
		return false
	}

	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if path == root {
			return nil
		}
		if ignored(path) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}

		fi, err := d.Info()
		if err != nil {
			return err
		}
		ino, fileID := identity(fi)
		t.Add(path, ino, fi.ModTime().UnixNano(), d.IsDir(), fileID)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("backend: walking %q: %w", root, err)
	}

	t.SetComplete(true)
	return t, nil
}

// Scan is the BruteForce-grounded implementation of the abstract
// contract's scan: populate s.Events with a create event per existing
// entry under s.Root.
func Scan(ctx context.Context, s *Subscription) error {
	t, err := readTree(s.Root, s.Ignore)
	if err != nil {
		return err
	}
	var walkErr error
	t.Each(func(e tree.Entry) {
		if ctx.Err() != nil {
			walkErr = ctx.Err()
			return
		}
		s.Events.Create(e.Path, e.IsDir, e.Ino, e.FileID)
	})
	if walkErr != nil {
		return walkErr
	}
	s.Tree = t
	return nil
}

// WriteSnapshot walks s.Root fresh and serializes the result to w.
func WriteSnapshot(ctx context.Context, s *Subscription, w io.Writer) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	t, err := readTree(s.Root, s.Ignore)
	if err != nil {
		return err
	}
	return t.Write(w)
}

// GetEventsSince loads snapshot as the prior tree, walks s.Root fresh as
// the current tree, and diffs them into s.Events.
func GetEventsSince(ctx context.Context, s *Subscription, snapshot io.Reader) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	prior, err := tree.Load(s.Root, snapshot, true)
	if err != nil {
		return fmt.Errorf("backend: loading snapshot: %w", err)
	}
	cur, err := readTree(s.Root, s.Ignore)
	if err != nil {
		return err
	}
	tree.GetChanges(cur, prior, s.Events)
	s.Tree = cur
	return nil
}

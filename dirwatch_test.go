package dirwatch

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/watchkit/dirwatch/internal/backend"
)

// bf forces the portable backend so these tests run identically on every
// platform; the native backends are covered by their own build-tagged
// tests.
var bf = Options{Backend: "brute-force"}

func TestScanListsEntries(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.Mkdir(filepath.Join(dir, "sub"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.txt"), []byte("a"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "sub", "b.txt"), []byte("b"), 0o644))

	events, err := Scan(context.Background(), dir, bf)
	require.NoError(t, err)
	require.Len(t, events, 3)

	byPath := map[string]Event{}
	for _, e := range events {
		require.Equal(t, "create", e.Type)
		byPath[e.Path] = e
	}
	require.Equal(t, "directory", byPath[filepath.Join(dir, "sub")].Kind)
	require.Equal(t, "file", byPath[filepath.Join(dir, "a.txt")].Kind)
	require.Equal(t, "file", byPath[filepath.Join(dir, "sub", "b.txt")].Kind)
}

func TestScanHonorsIgnore(t *testing.T) {
	dir := t.TempDir()
	ignored := filepath.Join(dir, "ignored")
	require.NoError(t, os.Mkdir(ignored, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(ignored, "x"), []byte("x"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a"), []byte("a"), 0o644))

	events, err := Scan(context.Background(), dir, Options{Backend: "brute-force", Ignore: []string{ignored}})
	require.NoError(t, err)
	require.Len(t, events, 1)
	require.Equal(t, filepath.Join(dir, "a"), events[0].Path)
}

func TestScanMissingRoot(t *testing.T) {
	_, err := Scan(context.Background(), filepath.Join(t.TempDir(), "missing"), bf)
	var werr *WatcherError
	require.ErrorAs(t, err, &werr)
	require.Equal(t, ErrRootMissing, werr.Kind)
}

func TestScanRootNotADirectory(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "plain")
	require.NoError(t, os.WriteFile(file, []byte("x"), 0o644))

	_, err := Scan(context.Background(), file, bf)
	var werr *WatcherError
	require.ErrorAs(t, err, &werr)
	require.Equal(t, ErrNotDirectory, werr.Kind)
}

func TestSnapshotRoundTripIsEmpty(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a"), []byte("a"), 0o644))

	var snap bytes.Buffer
	require.NoError(t, WriteSnapshot(context.Background(), dir, &snap, bf))

	events, err := GetEventsSince(context.Background(), dir, &snap, bf)
	require.NoError(t, err)
	require.Empty(t, events)
}

func TestSnapshotDetectsRename(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("brute-force walks carry no file-id on windows; rename detection needs identity")
	}
	dir := t.TempDir()
	oldPath := filepath.Join(dir, "A")
	newPath := filepath.Join(dir, "B")
	require.NoError(t, os.WriteFile(oldPath, []byte("data"), 0o644))

	var snap bytes.Buffer
	require.NoError(t, WriteSnapshot(context.Background(), dir, &snap, bf))
	require.NoError(t, os.Rename(oldPath, newPath))

	events, err := GetEventsSince(context.Background(), dir, &snap, bf)
	require.NoError(t, err)
	require.Len(t, events, 1)
	require.Equal(t, "rename", events[0].Type)
	require.Equal(t, oldPath, events[0].OldPath)
	require.Equal(t, newPath, events[0].Path)
}

func TestSnapshotDetectsCreateAndDelete(t *testing.T) {
	dir := t.TempDir()
	keep := filepath.Join(dir, "keep")
	gone := filepath.Join(dir, "gone")
	require.NoError(t, os.WriteFile(keep, []byte("k"), 0o644))
	require.NoError(t, os.WriteFile(gone, []byte("g"), 0o644))

	var snap bytes.Buffer
	require.NoError(t, WriteSnapshot(context.Background(), dir, &snap, bf))

	added := filepath.Join(dir, "added")
	require.NoError(t, os.WriteFile(added, []byte("n"), 0o644))
	require.NoError(t, os.Remove(gone))

	events, err := GetEventsSince(context.Background(), dir, &snap, bf)
	require.NoError(t, err)

	byPath := map[string]Event{}
	for _, e := range events {
		byPath[e.Path] = e
	}
	require.Len(t, byPath, 2)
	require.Equal(t, "create", byPath[added].Type)
	require.Equal(t, "delete", byPath[gone].Type)
}

func TestSubscribeDeliversBatches(t *testing.T) {
	dir := t.TempDir()

	var mu sync.Mutex
	var got []Event
	w, err := Subscribe(context.Background(), dir, bf, func(events []Event) {
		mu.Lock()
		defer mu.Unlock()
		got = append(got, events...)
	})
	require.NoError(t, err)
	defer w.Unsubscribe()

	target := filepath.Join(dir, "new.txt")
	require.NoError(t, os.WriteFile(target, []byte("hello"), 0o644))

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		for _, e := range got {
			if e.Type == "create" && e.Path == target {
				return true
			}
		}
		return false
	}, 10*time.Second, 50*time.Millisecond)
}

func TestSubscribeSurfacesAsyncFailure(t *testing.T) {
	dir := t.TempDir()
	w, err := Subscribe(context.Background(), dir, bf, func([]Event) {})
	require.NoError(t, err)
	defer w.Unsubscribe()

	// Inject the one-shot failure a backend raises when its kernel
	// channel dies; it must arrive as a classified *WatcherError and
	// the channel must close afterwards.
	w.s.Fail(fmt.Errorf("kernel went away: %w", backend.ErrChannelLost))

	select {
	case err := <-w.Errors:
		var werr *WatcherError
		require.ErrorAs(t, err, &werr)
		require.Equal(t, ErrChannelLost, werr.Kind)
	case <-time.After(time.Second):
		t.Fatal("no error delivered")
	}
	_, open := <-w.Errors
	require.False(t, open)
}

func TestSubscribeMissingRoot(t *testing.T) {
	_, err := Subscribe(context.Background(), filepath.Join(t.TempDir(), "missing"), bf, func([]Event) {})
	var werr *WatcherError
	require.ErrorAs(t, err, &werr)
	require.Equal(t, ErrRootMissing, werr.Kind)
}

func TestUnknownBackend(t *testing.T) {
	_, err := Scan(context.Background(), t.TempDir(), Options{Backend: "nope"})
	require.Error(t, err)
	require.False(t, errors.As(err, new(*WatcherError))) // construction error, not a subscription error
}

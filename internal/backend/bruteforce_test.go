package backend

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/watchkit/dirwatch/internal/eventlog"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func collectEvents() (func([]eventlog.Event), func() []eventlog.Event) {
	var mu sync.Mutex
	var got []eventlog.Event
	return func(batch []eventlog.Event) {
			mu.Lock()
			defer mu.Unlock()
			got = append(got, batch...)
		}, func() []eventlog.Event {
			mu.Lock()
			defer mu.Unlock()
			out := make([]eventlog.Event, len(got))
			copy(out, got)
			return out
		}
}

func TestBruteForceSubscribeDetectsCreate(t *testing.T) {
	dir := t.TempDir()
	callback, snapshot := collectEvents()

	b := NewBruteForce(20 * time.Millisecond)
	sub := NewSubscription("sub-1", dir, nil, callback)
	require.NoError(t, b.Subscribe(context.Background(), sub))
	defer b.Unsubscribe(sub)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.txt"), []byte("hi"), 0o644))

	require.Eventually(t, func() bool {
		for _, e := range snapshot() {
			if e.Type() == eventlog.Create && e.Path == filepath.Join(dir, "a.txt") {
				return true
			}
		}
		return false
	}, 2*time.Second, 10*time.Millisecond)
}

func TestBruteForceUnsubscribeStopsPolling(t *testing.T) {
	dir := t.TempDir()
	callback, _ := collectEvents()

	b := NewBruteForce(10 * time.Millisecond)
	sub := NewSubscription("sub-2", dir, nil, callback)
	require.NoError(t, b.Subscribe(context.Background(), sub))
	require.NoError(t, b.Unsubscribe(sub))

	// A second Unsubscribe must be safe: callers may race a shutdown
	// path against an already-stopped subscription.
	require.NoError(t, b.Unsubscribe(sub))
}

func TestBruteForceSubscribeRejectsMissingRoot(t *testing.T) {
	callback, _ := collectEvents()
	b := NewBruteForce(0)
	sub := NewSubscription("sub-3", filepath.Join(t.TempDir(), "missing"), nil, callback)
	err := b.Subscribe(context.Background(), sub)
	require.Error(t, err)
}

func TestBruteForceScanListsExistingEntries(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.Mkdir(filepath.Join(dir, "sub"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "sub", "f.txt"), []byte("x"), 0o644))

	callback, _ := collectEvents()
	b := NewBruteForce(0)
	sub := NewSubscription("sub-4", dir, nil, callback)
	require.NoError(t, b.Scan(context.Background(), sub))

	events := sub.Events.Drain()
	require.Len(t, events, 2)
	for _, e := range events {
		require.Equal(t, eventlog.Create, e.Type())
	}
}

package backend

import (
	"context"
	"fmt"
	"io"
	"runtime"
)

// unsupported stands in for a native backend on a GOOS that doesn't
// build it; constructing it succeeds (so Register/New stay uniform) but
// every operation fails naming the platform.
type unsupported struct {
	name string
}

func newUnsupported(name string) Backend { return &unsupported{name: name} }

func (u *unsupported) Name() string { return u.name }

func (u *unsupported) err() error {
	return fmt.Errorf("backend: %q not supported on %s", u.name, runtime.GOOS)
}

func (u *unsupported) Subscribe(ctx context.Context, s *Subscription) error { return u.err() }

func (u *unsupported) Unsubscribe(s *Subscription) error { return nil }

func (u *unsupported) Scan(ctx context.Context, s *Subscription) error { return u.err() }

func (u *unsupported) WriteSnapshot(ctx context.Context, s *Subscription, w io.Writer) error {
	return u.err()
}
func (u *unsupported) GetEventsSince(ctx context.Context, s *Subscription, snapshot io.Reader) error {
	return u.err()
}

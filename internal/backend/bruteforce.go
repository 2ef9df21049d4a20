package backend

import (
	"context"
	"io"
	"time"

	"github.com/watchkit/dirwatch/internal/tree"
)

func init() {
	Register("brute-force", func() Backend { return &BruteForce{pollInterval: 2 * time.Second} })
	registerTuning(func(t Tuning) {
		if t.BruteForcePollInterval <= 0 {
			return
		}
		interval := t.BruteForcePollInterval
		Register("brute-force", func() Backend { return NewBruteForce(interval) })
	})
}

// BruteForce is the portable fallback backend: it has no kernel
// notification source, so Subscribe polls readTree on an interval and
// diffs successive trees with tree.GetChanges. It also underlies
// Scan/WriteSnapshot/GetEventsSince for every other backend, and is the
// default (and only working) backend on a platform without a native one.
type BruteForce struct {
	pollInterval time.Duration
}

// NewBruteForce returns a BruteForce backend polling at the given
// interval (2s if <= 0).
func NewBruteForce(pollInterval time.Duration) *BruteForce {
	if pollInterval <= 0 {
		pollInterval = 2 * time.Second
	}
	return &BruteForce{pollInterval: pollInterval}
}

func (b *BruteForce) Name() string { return "brute-force" }

type bruteForceState struct {
	cancel context.CancelFunc
	done   chan struct{}
}

func (b *BruteForce) Subscribe(ctx context.Context, s *Subscription) error {
	prior, err := ensureTree(s)
	if err != nil {
		return err
	}
	s.Tree = prior

	runCtx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	s.SetState(&bruteForceState{cancel: cancel, done: done})

	go b.pollLoop(runCtx, s, prior, done)
	return nil
}

func (b *BruteForce) pollLoop(ctx context.Context, s *Subscription, prior *tree.Tree, done chan struct{}) {
	defer close(done)
	ticker := time.NewTicker(b.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			cur, err := readTree(s.Root, s.Ignore)
			if err != nil {
				continue // transient stat/read failures: try again next tick
			}
			tree.GetChanges(cur, prior, s.Events)
			prior = cur
			s.Tree = cur
			s.Notify()
		}
	}
}

func (b *BruteForce) Unsubscribe(s *Subscription) error {
	state, _ := s.State().(*bruteForceState)
	if state == nil {
		return nil
	}
	state.cancel()
	<-state.done
	return nil
}

func (b *BruteForce) Scan(ctx context.Context, s *Subscription) error {
	return Scan(ctx, s)
}

func (b *BruteForce) WriteSnapshot(ctx context.Context, s *Subscription, w io.Writer) error {
	return WriteSnapshot(ctx, s, w)
}

func (b *BruteForce) GetEventsSince(ctx context.Context, s *Subscription, snapshot io.Reader) error {
	return GetEventsSince(ctx, s, snapshot)
}

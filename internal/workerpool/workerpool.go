// Package workerpool dispatches the one-shot Scan/WriteSnapshot/
// GetEventsSince operations onto a bounded goroutine pool, so a caller
// issuing many of them concurrently doesn't spawn unbounded goroutines.
// Subscribe/Unsubscribe stay off the pool: they hand off to a backend's
// own dedicated watcher thread.
package workerpool

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// Pool bounds concurrent execution of one-shot operations across every
// call made against it — a shared semaphore, not a per-call one, so the
// limit holds whether callers go through Run or RunEach and regardless
// of how many calls are in flight at once.
type Pool struct {
	sem chan struct{} // nil means unbounded
}

// New returns a Pool that runs at most limit operations concurrently.
// limit <= 0 means unbounded.
func New(limit int) *Pool {
	if limit <= 0 {
		return &Pool{}
	}
	return &Pool{sem: make(chan struct{}, limit)}
}

func (p *Pool) acquire(ctx context.Context) error {
	if p.sem == nil {
		return nil
	}
	select {
	case p.sem <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (p *Pool) release() {
	if p.sem != nil {
		<-p.sem
	}
}

// Run executes fn, blocking until the pool has a free slot and then for
// fn's result. Run itself may be called concurrently; the pool's limit
// bounds how many such calls are actually executing fn at once.
func (p *Pool) Run(ctx context.Context, fn func(context.Context) error) error {
	if err := p.acquire(ctx); err != nil {
		return err
	}
	defer p.release()
	return fn(ctx)
}

// RunEach dispatches fn once per item, each trip through the same
// bounded pool as Run, returning the first error encountered (other
// items keep running; errgroup cancels gctx once one fn returns an
// error, so well-behaved callers observe it via ctx.Err()).
func RunEach[T any](ctx context.Context, p *Pool, items []T, fn func(context.Context, T) error) error {
	g, gctx := errgroup.WithContext(ctx)
	for _, item := range items {
		item := item
		g.Go(func() error {
			return p.Run(gctx, func(ctx context.Context) error {
				return fn(ctx, item)
			})
		})
	}
	return g.Wait()
}

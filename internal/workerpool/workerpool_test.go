package workerpool

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRunExecutesFn(t *testing.T) {
	p := New(2)
	var ran atomic.Bool
	err := p.Run(context.Background(), func(ctx context.Context) error {
		ran.Store(true)
		return nil
	})
	require.NoError(t, err)
	require.True(t, ran.Load())
}

func TestRunPropagatesError(t *testing.T) {
	p := New(2)
	boom := errors.New("boom")
	err := p.Run(context.Background(), func(ctx context.Context) error {
		return boom
	})
	require.ErrorIs(t, err, boom)
}

func TestRunEachBoundsConcurrency(t *testing.T) {
	p := New(2)
	var current, max atomic.Int32

	items := make([]int, 10)
	err := RunEach(context.Background(), p, items, func(ctx context.Context, item int) error {
		n := current.Add(1)
		for {
			m := max.Load()
			if n <= m || max.CompareAndSwap(m, n) {
				break
			}
		}
		current.Add(-1)
		return nil
	})
	require.NoError(t, err)
	require.LessOrEqual(t, max.Load(), int32(2))
}

package backend

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFailDeliversOnce(t *testing.T) {
	var got []error
	s := NewSubscription("s-1", "/r", nil, nil)
	s.OnError = func(err error) { got = append(got, err) }

	boom := errors.New("boom")
	s.Fail(boom)
	s.Fail(errors.New("again"))

	require.Len(t, got, 1)
	require.ErrorIs(t, got[0], boom)
}

func TestFailWithoutHandlerIsSafe(t *testing.T) {
	s := NewSubscription("s-2", "/r", nil, nil)
	s.Fail(errors.New("nobody listening"))
}

func TestIgnoredMatchesSelfAndDescendants(t *testing.T) {
	s := NewSubscription("s-3", "/r", []string{"/r/skip"}, nil)
	require.True(t, s.Ignored("/r/skip"))
	require.True(t, s.Ignored("/r/skip/deep/file"))
	require.False(t, s.Ignored("/r/skipped")) // prefix of the name, not of the path
	require.False(t, s.Ignored("/r/other"))
}

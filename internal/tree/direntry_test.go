package tree

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSameIdentityPrefersFileID(t *testing.T) {
	a := Entry{Ino: 1, FileID: "fid-1"}
	b := Entry{Ino: 2, FileID: "fid-1"}
	require.True(t, a.SameIdentity(b))
}

func TestSameIdentityFallsBackToIno(t *testing.T) {
	a := Entry{Ino: 7}
	b := Entry{Ino: 7}
	require.True(t, a.SameIdentity(b))
}

func TestSameIdentityNeverFallsBackToPath(t *testing.T) {
	a := Entry{Path: "/a"}
	b := Entry{Path: "/a"}
	require.False(t, a.SameIdentity(b))
}

func TestSameIdentityMismatchedFileID(t *testing.T) {
	a := Entry{FileID: "fid-1"}
	b := Entry{FileID: "fid-2"}
	require.False(t, a.SameIdentity(b))
}

func TestKind(t *testing.T) {
	require.Equal(t, "directory", Entry{IsDir: true}.Kind())
	require.Equal(t, "file", Entry{IsDir: false}.Kind())
}

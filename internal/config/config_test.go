package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoadAppliesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "dirwatch.yaml")
	require.NoError(t, os.WriteFile(path, []byte("ignore: [\"/tmp/x\"]\n"), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, []string{"/tmp/x"}, cfg.Ignore)
	require.Equal(t, 4096, cfg.Inotify.ReadBufferEvents)
	require.Equal(t, 2, cfg.BruteForce.PollIntervalSeconds)
	require.Equal(t, 5, cfg.PendingMove.AgeSeconds)
}

func TestLoadHonorsExplicitValues(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "dirwatch.yaml")
	require.NoError(t, os.WriteFile(path, []byte("pending_move:\n  age_seconds: 30\n"), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, 30, cfg.PendingMove.AgeSeconds)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
}

func TestDefault(t *testing.T) {
	cfg := Default()
	require.Equal(t, 4096, cfg.Inotify.ReadBufferEvents)
}

//go:build linux

// Package capprobe probes for CAP_DAC_READ_SEARCH, the capability that
// lets the inotify backend walk directories the watching process would
// otherwise be denied read access to. Its absence only degrades a
// subscription (some subtrees go unwatched) rather than breaking it, so
// callers log a warning instead of failing subscribe.
package capprobe

import (
	"fmt"

	"github.com/syndtr/gocapability/capability"
)

// HasDirReadSearch reports whether the current process carries an
// effective CAP_DAC_READ_SEARCH, the capability inotify's recursive walk
// relies on to read directories it doesn't otherwise own.
func HasDirReadSearch() (bool, error) {
	caps, err := capability.NewPid2(0)
	if err != nil {
		return false, fmt.Errorf("capprobe: load process capabilities: %w", err)
	}
	if err := caps.Load(); err != nil {
		return false, fmt.Errorf("capprobe: load process capabilities: %w", err)
	}
	return caps.Get(capability.EFFECTIVE, capability.CAP_DAC_READ_SEARCH), nil
}

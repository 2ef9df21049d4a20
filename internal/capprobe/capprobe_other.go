//go:build !linux

package capprobe

// HasDirReadSearch always reports true on platforms without a Linux
// capability model; the inotify backend (and this probe) only exists on
// Linux.
func HasDirReadSearch() (bool, error) {
	return true, nil
}

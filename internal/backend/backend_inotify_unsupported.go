//go:build !linux

package backend

func init() { Register("inotify", func() Backend { return newUnsupported("inotify") }) }

//go:build linux

package backend

func init() { DefaultName = "inotify" }

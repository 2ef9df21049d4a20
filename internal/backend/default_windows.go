//go:build windows

package backend

func init() { DefaultName = "windows" }

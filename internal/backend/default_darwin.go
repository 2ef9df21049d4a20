//go:build darwin

package backend

func init() { DefaultName = "fs-events" }

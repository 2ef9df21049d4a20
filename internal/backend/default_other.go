//go:build !linux && !darwin && !windows

package backend

func init() { DefaultName = "brute-force" }

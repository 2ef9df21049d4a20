//go:build !windows

package backend

func init() { Register("windows", func() Backend { return newUnsupported("windows") }) }

//go:build !darwin

package backend

func init() { Register("fs-events", func() Backend { return newUnsupported("fs-events") }) }

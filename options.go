package dirwatch

// Options controls backend selection and path filtering for every public
// operation. The zero value is valid: Backend empty selects the best
// native backend for the running platform, and a nil Ignore filters
// nothing.
type Options struct {
	// Backend is one of "fs-events", "inotify", "windows", "brute-force".
	// Empty selects the best native backend for the platform.
	Backend string

	// Ignore is a list of absolute paths; any path equal to or beneath
	// an entry is elided from every batch and from Scan/GetEventsSince
	// results (property P2).
	Ignore []string
}

func (o Options) backendName() string {
	if o.Backend != "" {
		return o.Backend
	}
	return defaultBackendName()
}

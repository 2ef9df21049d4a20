package main

import (
	"time"

	"github.com/watchkit/dirwatch/internal/backend"
	"github.com/watchkit/dirwatch/internal/config"
)

// loadConfig reads flagConfig (if set) and applies it to the backend
// registry via backend.Configure, and returns the merged ignore list so
// callers can fold it into dirwatch.Options. Config-file values never
// override an explicit --ignore; they only add to it.
func loadConfig() ([]string, error) {
	cfg := config.Default()
	if flagConfig != "" {
		loaded, err := config.Load(flagConfig)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	backend.Configure(backend.Tuning{
		InotifyReadBufferEvents: cfg.Inotify.ReadBufferEvents,
		InotifyPendingMoveAge:   time.Duration(cfg.PendingMove.AgeSeconds) * time.Second,
		BruteForcePollInterval:  time.Duration(cfg.BruteForce.PollIntervalSeconds) * time.Second,
	})

	return append(append([]string{}, flagIgnore...), cfg.Ignore...), nil
}

package main

import (
	"context"
	"log/slog"
	"sync"

	"github.com/spf13/cobra"

	"github.com/watchkit/dirwatch"
	"github.com/watchkit/dirwatch/internal/workerpool"
)

// scanPool bounds concurrent walks when several directories are given on
// one command line.
var scanPool = workerpool.New(4)

func newScanCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "scan <dir>...",
		Short: "Walk one or more directories and print a create event per entry",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			slog.SetDefault(buildLogger())

			ignore, err := loadConfig()
			if err != nil {
				return err
			}
			opts := dirwatch.Options{Backend: flagBackend, Ignore: ignore}

			var mu sync.Mutex
			results := make([][]dirwatch.Event, len(args))
			err = workerpool.RunEach(cmd.Context(), scanPool, indexes(args), func(ctx context.Context, i int) error {
				events, err := dirwatch.Scan(ctx, args[i], opts)
				if err != nil {
					return err
				}
				mu.Lock()
				results[i] = events
				mu.Unlock()
				return nil
			})
			if err != nil {
				return err
			}

			// Output stays grouped per argument, in argument order,
			// however the walks interleaved.
			for _, events := range results {
				printEvents(events)
			}
			return nil
		},
	}
}

func indexes(args []string) []int {
	out := make([]int, len(args))
	for i := range args {
		out[i] = i
	}
	return out
}

package main

import (
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/watchkit/dirwatch"
)

func newWatchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "watch <dir>",
		Short: "Subscribe to a directory and print events as they arrive",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			slog.SetDefault(buildLogger())

			ignore, err := loadConfig()
			if err != nil {
				return err
			}

			ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer cancel()

			opts := dirwatch.Options{Backend: flagBackend, Ignore: ignore}
			w, err := dirwatch.Subscribe(ctx, args[0], opts, printEvents)
			if err != nil {
				return err
			}
			defer w.Unsubscribe()

			select {
			case <-ctx.Done():
				return nil
			case err := <-w.Errors:
				return err
			}
		},
	}
}

package main

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"
)

var (
	flagBackend string
	flagIgnore  []string
	flagJSON    bool
	flagVerbose bool
	flagConfig  string
)

func buildLogger() *slog.Logger {
	level := slog.LevelWarn
	if flagVerbose {
		level = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "dirwatch",
		Short:         "Recursive filesystem change notification tool",
		Long:          "A development tool exercising the dirwatch library's subscribe/scan/snapshot operations directly.",
		SilenceErrors: true,
		SilenceUsage:  true,
	}

	cmd.PersistentFlags().StringVar(&flagBackend, "backend", "", "backend to use (fs-events, inotify, windows, brute-force); default is the platform's native backend")
	cmd.PersistentFlags().StringSliceVar(&flagIgnore, "ignore", nil, "absolute path to ignore (repeatable)")
	cmd.PersistentFlags().BoolVar(&flagJSON, "json", false, "print events as JSON lines")
	cmd.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "enable info-level logging")
	cmd.PersistentFlags().StringVar(&flagConfig, "config", "", "path to a YAML config file tuning backend buffers, poll interval, and extra ignore paths")

	cmd.AddCommand(newWatchCmd())
	cmd.AddCommand(newScanCmd())
	cmd.AddCommand(newSnapshotCmd())

	return cmd
}
